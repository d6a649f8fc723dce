// Package control assembles the embedding pipeline from configuration and
// manages its lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/requester/internal/batching"
	"github.com/vietddude/requester/internal/core/config"
	"github.com/vietddude/requester/internal/embeddings"
	"github.com/vietddude/requester/internal/health"
	"github.com/vietddude/requester/internal/infra/openai"
	redisclient "github.com/vietddude/requester/internal/infra/redis"
	"github.com/vietddude/requester/internal/scheduler"
)

const schedulerName = "embeddings"

// Options overrides the production dependencies, mostly for tests.
type Options struct {
	Embedder  embeddings.Embedder
	Tokenizer batching.Tokenizer
	Logger    *slog.Logger
}

// App is the embedding pipeline with its optional health server and stats sink.
type App struct {
	cfg          *config.AppConfig
	service      *embeddings.Service
	healthServer *health.Server
	redisClient  *redisclient.Client
	stats        *redisclient.OutcomeStats
	log          *slog.Logger
}

// NewApp validates cfg and builds every component.
func NewApp(cfg *config.AppConfig, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	tokenizer := opts.Tokenizer
	if tokenizer == nil {
		tk, err := batching.NewTiktokenTokenizer(cfg.Model.Encoding)
		if err != nil {
			return nil, err
		}
		tokenizer = tk
	}
	batcher, err := batching.NewBatcher(cfg.Batching, cfg.Model, tokenizer)
	if err != nil {
		return nil, err
	}

	embedder := opts.Embedder
	if embedder == nil {
		embedder = openai.NewClient(cfg.OpenAI)
	}

	app := &App{cfg: cfg, log: log}

	schedOpts := []scheduler.Option{
		scheduler.WithName(schedulerName),
		scheduler.WithLogger(log),
	}
	if cfg.Redis.Enabled() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			// Stats are best-effort; the job runs without them.
			log.Warn("Redis unavailable, outcome stats disabled", "error", err)
		} else {
			app.redisClient = client
			app.stats = redisclient.NewOutcomeStats(client, cfg.Redis)
			schedOpts = append(schedOpts, scheduler.WithOutcomeSink(app.stats))
		}
	}

	sched, err := scheduler.New[[][]float64](cfg.Scheduler, schedOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.service, err = embeddings.NewService(cfg.Model, cfg.Batching, batcher, sched, embedder, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	if cfg.Server.Port > 0 {
		app.healthServer = health.NewServer(map[string]health.StatusProvider{schedulerName: app.service}, cfg.Server.Port)
	}
	return app, nil
}

// Embed runs one embedding job. The health server, if configured, serves
// for the duration of the job. With partial set, failed batches yield NaN
// rows and the error lists them instead of discarding every row.
func (a *App) Embed(ctx context.Context, texts []string, partial bool) ([][]float64, error) {
	g, gctx := errgroup.WithContext(ctx)
	jobDone := make(chan struct{})

	if a.healthServer != nil {
		g.Go(func() error {
			a.log.Info("Health server listening", "port", a.cfg.Server.Port)
			if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-jobDone:
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.healthServer.Stop(shutdownCtx)
		})
	}

	var rows [][]float64
	var jobErr error
	g.Go(func() error {
		defer close(jobDone)
		if partial {
			rows, jobErr = a.service.EmbedPartial(gctx, texts)
		} else {
			rows, jobErr = a.service.Embed(gctx, texts)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.logRunStats(ctx)
	return rows, jobErr
}

func (a *App) logRunStats(ctx context.Context) {
	if a.stats == nil {
		return
	}
	runID := a.Status().RunID
	totals, err := a.stats.RunTotals(ctx, runID)
	if err != nil {
		a.log.Warn("Failed to read outcome stats", "run_id", runID, "error", err)
		return
	}
	a.log.Info("Outcome stats", "run_id", runID, "totals", totals)
}

// Status returns the scheduler counters of the current or last job.
func (a *App) Status() scheduler.Snapshot {
	return a.service.Status()
}

// Close releases external connections.
func (a *App) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
}
