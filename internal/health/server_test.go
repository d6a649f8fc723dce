package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/requester/internal/scheduler"
)

type stubProvider struct {
	snap scheduler.Snapshot
}

func (s stubProvider) Status() scheduler.Snapshot { return s.snap }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		snap     scheduler.Snapshot
		expected SystemStatus
	}{
		{"idle", scheduler.Snapshot{}, StatusHealthy},
		{"running", scheduler.Snapshot{Started: 10, InProgress: 4, Succeeded: 6}, StatusHealthy},
		{"cooling down", scheduler.Snapshot{Started: 10, Succeeded: 6, CoolingDown: true}, StatusDegraded},
		{"some failures", scheduler.Snapshot{Started: 10, Succeeded: 9, Failed: 1}, StatusDegraded},
		{"only failures", scheduler.Snapshot{Started: 3, Failed: 3}, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.snap); got != tt.expected {
				t.Errorf("Evaluate() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name       string
		providers  map[string]StatusProvider
		wantCode   int
		wantStatus SystemStatus
	}{
		{
			name:       "healthy",
			providers:  map[string]StatusProvider{"a": stubProvider{scheduler.Snapshot{Succeeded: 1, Started: 1}}},
			wantCode:   http.StatusOK,
			wantStatus: StatusHealthy,
		},
		{
			name: "worst case wins",
			providers: map[string]StatusProvider{
				"a": stubProvider{scheduler.Snapshot{Started: 1, Succeeded: 1}},
				"b": stubProvider{scheduler.Snapshot{CoolingDown: true}},
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
		},
		{
			name:       "critical",
			providers:  map[string]StatusProvider{"a": stubProvider{scheduler.Snapshot{Started: 2, Failed: 2}}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(tt.providers, 0)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["status"] != string(tt.wantStatus) {
				t.Errorf("status = %q, want %q", body["status"], tt.wantStatus)
			}
		})
	}
}

func TestServer_Detailed(t *testing.T) {
	snap := scheduler.Snapshot{Started: 5, InProgress: 2, Succeeded: 3, Retries: 1}
	s := NewServer(map[string]StatusProvider{"embed": stubProvider{snap}}, 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))

	var body struct {
		SystemStatus SystemStatus               `json:"system_status"`
		Schedulers   map[string]SchedulerHealth `json:"schedulers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	got, ok := body.Schedulers["embed"]
	if !ok {
		t.Fatalf("missing scheduler in report: %+v", body)
	}
	if got.Stats.Started != 5 || got.Stats.InProgress != 2 || got.Stats.Retries != 1 {
		t.Errorf("unexpected stats: %+v", got.Stats)
	}
	if body.SystemStatus != StatusHealthy {
		t.Errorf("system status = %s", body.SystemStatus)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := NewServer(nil, 0)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
}
