package domain

// EmbeddingModel describes a remote model that produces embeddings.
type EmbeddingModel struct {
	Name             string `yaml:"name"`
	Encoding         string `yaml:"encoding"`          // tokenizer encoding, e.g. cl100k_base
	MaxTokens        int    `yaml:"max_tokens"`        // per input text
	OutputDimensions int    `yaml:"output_dimensions"` // length of one embedding vector
}

// DefaultEmbeddingModel is OpenAI's text-embedding-ada-002.
var DefaultEmbeddingModel = EmbeddingModel{
	Name:             "text-embedding-ada-002",
	Encoding:         "cl100k_base",
	MaxTokens:        8191,
	OutputDimensions: 1536,
}
