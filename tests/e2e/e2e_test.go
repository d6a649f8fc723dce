package e2e

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/vietddude/requester/internal/control"
	"github.com/vietddude/requester/internal/core/config"
)

// fakeOpenAI serves /embeddings. Each embedding is [len(input), index].
// The first rateLimited calls get a 429. With release set, every call
// hangs until the client goes away or release is closed.
type fakeOpenAI struct {
	rateLimited int32
	calls       atomic.Int32
	release     chan struct{}
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.calls.Add(1)
	if f.release != nil {
		// The server only notices a client disconnect once the body is read.
		io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-f.release:
		}
		return
	}
	if n <= f.rateLimited {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"Rate limit reached for requests","type":"requests"}}`)
		return
	}

	var req struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	type item struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	}
	resp := struct {
		Data []item `json:"data"`
	}{}
	// Reverse order, clients must sort by index.
	for i := len(req.Input) - 1; i >= 0; i-- {
		resp.Data = append(resp.Data, item{Index: i, Embedding: []float64{float64(len(req.Input[i])), float64(i)}})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newConfig(baseURL string) *config.AppConfig {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.OpenAI.BaseURL = baseURL
	cfg.Model.OutputDimensions = 2
	cfg.Batching.MaxItems = 3
	return &cfg
}

func newApp(t *testing.T, cfg *config.AppConfig) *control.App {
	t.Helper()
	app, err := control.NewApp(cfg, control.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func startServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server
}

// blockingOpenAI starts a server whose calls hang. Hung handlers are
// released before the server closes.
func blockingOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	f := &fakeOpenAI{release: make(chan struct{})}
	server := startServer(t, f)
	t.Cleanup(func() { close(f.release) })
	return server
}
