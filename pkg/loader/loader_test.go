package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-go-golems/avatar-relay/pkg/page"
)

const testURL = "https://cdn.example/live2dcubismcore.min.js"

// countingFetcher serves a fixed body, or an error, and counts calls.
type countingFetcher struct {
	calls atomic.Int64
	body  string
	err   error
	block chan struct{}
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

func newTestPage(t *testing.T, f page.Fetcher) *page.Page {
	t.Helper()
	pg := page.New(f)
	t.Cleanup(pg.Close)
	return pg
}

func testPolicy() Policy {
	return Policy{
		URL:        testURL,
		Symbol:     DefaultSymbol,
		Timeout:    time.Second,
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
	}
}

// recordingAttempter returns scripted outcomes and records when each attempt started.
type recordingAttempter struct {
	mu       sync.Mutex
	outcomes []Outcome
	starts   []time.Time
}

func (a *recordingAttempter) Attempt(ctx context.Context, url string, timeout time.Duration) Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.starts)
	a.starts = append(a.starts, time.Now())
	if n < len(a.outcomes) {
		return a.outcomes[n]
	}
	return a.outcomes[len(a.outcomes)-1]
}

func (a *recordingAttempter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.starts)
}
