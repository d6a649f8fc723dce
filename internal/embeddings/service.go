package embeddings

import (
	"context"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/vietddude/requester/internal/batching"
	"github.com/vietddude/requester/internal/core/domain"
	"github.com/vietddude/requester/internal/scheduler"
)

// Service embeds lists of texts, one row per text in input order.
type Service struct {
	model     domain.EmbeddingModel
	batcher   *batching.Batcher
	scheduler *scheduler.Scheduler[[][]float64]
	embedder  Embedder
	logger    *slog.Logger
}

// NewService wires the pieces together. A full batch must fit in the
// scheduler's cost quota, otherwise it could never be dispatched.
func NewService(
	model domain.EmbeddingModel,
	batchCfg batching.Config,
	batcher *batching.Batcher,
	sched *scheduler.Scheduler[[][]float64],
	embedder Embedder,
	logger *slog.Logger,
) (*Service, error) {
	if ceiling, quota := batchCfg.TokenCeiling(model), sched.Config().MaxCostPerMinute; ceiling > quota {
		return nil, domain.Configuration("batch token ceiling %d exceeds max_cost_per_minute %d", ceiling, quota)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		model:     model,
		batcher:   batcher,
		scheduler: sched,
		embedder:  embedder,
		logger:    logger,
	}, nil
}

// Embed returns an embedding per text. Texts that are empty or too long get
// a NaN row. If any batch fails terminally the whole call fails.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	batches, responses, err := s.run(ctx, texts)
	if err != nil {
		return nil, err
	}
	values, err := scheduler.Collect(responses)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, 0, len(texts))
	for i := range batches {
		out = append(out, values[i]...)
	}
	return out, nil
}

// EmbedPartial is Embed with per-batch isolation: rows of a failed batch are
// NaN and the returned error combines every batch failure.
func (s *Service) EmbedPartial(ctx context.Context, texts []string) ([][]float64, error) {
	batches, responses, err := s.run(ctx, texts)
	if err != nil && responses == nil {
		return nil, err
	}

	var errs error
	out := make([][]float64, 0, len(texts))
	for i, batch := range batches {
		resp := responses[i]
		if resp.Err != nil {
			errs = multierr.Append(errs, resp.Err)
			for range batch.Texts {
				out = append(out, NaNRow(s.model.OutputDimensions))
			}
			continue
		}
		out = append(out, resp.Value...)
	}
	return out, errs
}

func (s *Service) run(ctx context.Context, texts []string) ([]batching.Batch, []scheduler.Response[[][]float64], error) {
	batches := s.batcher.Plan(texts)

	reqs := make([]scheduler.Request[[][]float64], len(batches))
	placeholders := 0
	for i, batch := range batches {
		if batch.Placeholder {
			placeholders++
			reqs[i] = NewPlaceholder(len(batch.Texts), s.model.OutputDimensions)
			continue
		}
		reqs[i] = NewRequest(batch.Texts, batch.Tokens, s.model, s.embedder)
	}

	s.logger.Info("Embedding texts",
		"model", s.model.Name,
		"texts", len(texts),
		"batches", len(batches),
		"placeholders", placeholders,
	)

	responses, err := s.scheduler.RunSlice(ctx, reqs)
	return batches, responses, err
}

// Status exposes the scheduler's progress counters.
func (s *Service) Status() scheduler.Snapshot {
	return s.scheduler.Status()
}
