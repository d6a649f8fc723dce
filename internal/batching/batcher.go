// Package batching groups texts into embedding batches.
package batching

import (
	"github.com/vietddude/requester/internal/core/domain"
)

// DefaultMaxItems is the most inputs the embeddings endpoint accepts in one call.
const DefaultMaxItems = 2048

// Config bounds the size of a batch.
type Config struct {
	MaxItems          int `yaml:"max_items"`            // inputs per batch
	MaxTokensPerBatch int `yaml:"max_tokens_per_batch"` // 0 means 10 x model max tokens
}

// DefaultConfig returns the batching defaults.
func DefaultConfig() Config {
	return Config{MaxItems: DefaultMaxItems}
}

// TokenCeiling returns the effective token ceiling of a batch for model.
func (c Config) TokenCeiling(model domain.EmbeddingModel) int {
	if c.MaxTokensPerBatch > 0 {
		return c.MaxTokensPerBatch
	}
	return 10 * model.MaxTokens
}

// Validate checks the config against model.
func (c Config) Validate(model domain.EmbeddingModel) error {
	if c.MaxItems <= 0 {
		return domain.Configuration("batching.max_items must be positive, got %d", c.MaxItems)
	}
	if c.MaxTokensPerBatch < 0 {
		return domain.Configuration("batching.max_tokens_per_batch must not be negative, got %d", c.MaxTokensPerBatch)
	}
	if ceiling := c.TokenCeiling(model); ceiling < model.MaxTokens {
		return domain.Configuration("batch token ceiling %d is below the model limit %d", ceiling, model.MaxTokens)
	}
	return nil
}

// Batch is one planned call. A placeholder batch stands for a single input
// that cannot be embedded; it costs nothing and is never sent.
type Batch struct {
	Texts       []string
	Tokens      int
	Placeholder bool
}

// Batcher packs texts greedily, in input order, into batches.
type Batcher struct {
	cfg       Config
	model     domain.EmbeddingModel
	tokenizer Tokenizer
}

// NewBatcher validates cfg and creates a Batcher.
func NewBatcher(cfg Config, model domain.EmbeddingModel, tokenizer Tokenizer) (*Batcher, error) {
	if err := cfg.Validate(model); err != nil {
		return nil, err
	}
	return &Batcher{cfg: cfg, model: model, tokenizer: tokenizer}, nil
}

// Plan splits texts into batches. Concatenating the texts of the returned
// batches, with one entry per placeholder, reproduces the input.
//
// A batch closes when adding the next text would exceed the item count or
// the token ceiling. An empty text, or one above the model's per-input
// limit, closes the pending batch and becomes a placeholder of its own.
func (b *Batcher) Plan(texts []string) []Batch {
	var (
		batches []Batch
		pending []string
		tokens  int
	)
	ceiling := b.cfg.TokenCeiling(b.model)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batches = append(batches, Batch{Texts: pending, Tokens: tokens})
		pending, tokens = nil, 0
	}

	for _, text := range texts {
		n := 0
		if text != "" {
			n = b.tokenizer.Count(text)
		}
		if text == "" || n > b.model.MaxTokens {
			flush()
			batches = append(batches, Batch{Texts: []string{text}, Placeholder: true})
			continue
		}

		if len(pending) >= b.cfg.MaxItems || tokens+n > ceiling {
			flush()
		}
		pending = append(pending, text)
		tokens += n
	}
	flush()

	return batches
}
