// Package embeddings turns texts into embedding vectors through a
// rate-limited scheduler.
package embeddings

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vietddude/requester/internal/core/domain"
)

// Embedder is the remote embeddings capability.
type Embedder interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float64, error)
}

// Request embeds one batch of texts. Its cost is the batch's token count.
type Request struct {
	texts    []string
	tokens   int
	model    domain.EmbeddingModel
	embedder Embedder
}

// NewRequest builds a batch request. Newlines are replaced by spaces, which
// the endpoint embeds better.
func NewRequest(texts []string, tokens int, model domain.EmbeddingModel, embedder Embedder) *Request {
	normalized := make([]string, len(texts))
	for i, text := range texts {
		normalized[i] = strings.ReplaceAll(text, "\n", " ")
	}
	return &Request{texts: normalized, tokens: tokens, model: model, embedder: embedder}
}

// Cost implements scheduler.Request.
func (r *Request) Cost() int { return r.tokens }

// Perform implements scheduler.Request.
func (r *Request) Perform(ctx context.Context) ([][]float64, error) {
	rows, err := r.embedder.Embed(ctx, r.model.Name, r.texts)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(r.texts) {
		return nil, domain.Permanent(fmt.Errorf("expected %d embeddings, got %d", len(r.texts), len(rows)))
	}
	return rows, nil
}

// StaticRequest returns fixed rows without calling anything.
type StaticRequest struct {
	rows [][]float64
}

// NewPlaceholder stands in for count inputs that cannot be embedded.
func NewPlaceholder(count, dimensions int) *StaticRequest {
	rows := make([][]float64, count)
	for i := range rows {
		rows[i] = NaNRow(dimensions)
	}
	return &StaticRequest{rows: rows}
}

// Cost implements scheduler.Request. Placeholders use no quota.
func (r *StaticRequest) Cost() int { return 0 }

// Perform implements scheduler.Request.
func (r *StaticRequest) Perform(context.Context) ([][]float64, error) {
	return r.rows, nil
}

// NaNRow returns a vector of NaN, the value of an input without an embedding.
func NaNRow(dimensions int) []float64 {
	row := make([]float64, dimensions)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}
