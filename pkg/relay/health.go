package relay

import (
	"encoding/json"
	"net/http"

	"github.com/go-go-golems/avatar-relay/pkg/loader"
)

// ReadinessReporter is the view of a readiness handle the relay reports on.
type ReadinessReporter interface {
	State() loader.State
	Err() error
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type readyResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// NewReadyHandler reports the dependency warmer state. Without a reporter the
// warmer is disabled and the relay counts as ready.
func NewReadyHandler(reporter ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := readyResponse{State: "disabled"}
		status := http.StatusOK
		if reporter != nil {
			state := reporter.State()
			out.State = state.String()
			if state != loader.StateReady {
				status = http.StatusServiceUnavailable
			}
			if err := reporter.Err(); err != nil {
				out.Error = err.Error()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(out)
	}
}
