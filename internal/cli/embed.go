package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/requester/internal/control"
)

var (
	inputPath  string
	outputPath string
	partial    bool
	port       int
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed every line of a text file and write JSON lines",
	Long: `Embed reads one text per line and writes one JSON object per input line,
in input order: {"index": 0, "embedding": [...]}. Inputs that cannot be
embedded (empty or over the model's token limit) get a null embedding.`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVarP(&inputPath, "input", "i", "-", "input file, one text per line (- for stdin)")
	embedCmd.Flags().StringVarP(&outputPath, "output", "o", "-", "output file (- for stdout)")
	embedCmd.Flags().BoolVar(&partial, "partial", false, "keep rows of successful batches when others fail")
	embedCmd.Flags().IntVar(&port, "port", -1, "health and metrics port, 0 disables (default from config)")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port >= 0 {
		cfg.Server.Port = port
	}

	texts, err := readLines(inputPath)
	if err != nil {
		slog.Error("Failed to read input", "input", inputPath, "error", err)
		return err
	}

	app, err := control.NewApp(cfg, control.Options{})
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	rows, embedErr := app.Embed(ctx, texts, partial)
	if rows == nil {
		slog.Error("Embedding failed", "error", embedErr)
		return embedErr
	}

	if err := writeOutput(outputPath, rows); err != nil {
		slog.Error("Failed to write output", "output", outputPath, "error", err)
		return err
	}

	snap := app.Status()
	slog.Info("Embedding finished",
		"texts", len(texts),
		"succeeded", snap.Succeeded,
		"failed", snap.Failed,
		"retries", snap.Retries,
		"rate_limit_errors", snap.RateLimitErrors,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	if embedErr != nil {
		slog.Warn("Some batches failed, their rows are null", "error", embedErr)
		return fmt.Errorf("partial result: %w", embedErr)
	}
	return nil
}

func writeOutput(path string, rows [][]float64) error {
	if path == "-" {
		return writeJSONL(os.Stdout, rows)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSONL(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

