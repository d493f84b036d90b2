package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-go-golems/avatar-relay/pkg/page"
	"github.com/rs/zerolog/log"
)

// LoadRequest is immutable per attempt chain step; retries derive a new one.
type LoadRequest struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
}

func (r LoadRequest) next() LoadRequest {
	r.MaxRetries--
	return r
}

// Outcome is the settled result of one attempt. A zero Kind means success.
type Outcome struct {
	Kind   Kind
	Reason string
}

func Success() Outcome { return Outcome{} }

func Failure(kind Kind, reason string) Outcome {
	return Outcome{Kind: kind, Reason: reason}
}

func (o Outcome) OK() bool { return o.Kind == "" }

// Document is the part of the page the injector writes to.
type Document interface {
	CreateScript(src string) *page.Script
	Append(s *page.Script)
	Remove(s *page.Script)
}

// Injector performs single load attempts. It holds at most one pending
// element at a time; concurrent Attempt calls queue behind each other.
type Injector struct {
	doc Document

	mu      sync.Mutex
	pending atomic.Pointer[page.Script]
}

func NewInjector(doc Document) *Injector {
	return &Injector{doc: doc}
}

// Pending returns the element of the attempt in flight, if any.
func (i *Injector) Pending() *page.Script {
	return i.pending.Load()
}

// settleOnce is a single-assignment cell: the first trigger to claim it runs
// its side effects, every later trigger is a no-op.
type settleOnce struct {
	done atomic.Bool
}

func (s *settleOnce) claim() bool {
	return s.done.CompareAndSwap(false, true)
}

// Attempt injects one element for url and races its load signal, its error
// signal and a timer. On success the element stays attached; on any failure
// it is removed.
func (i *Injector) Attempt(ctx context.Context, url string, timeout time.Duration) Outcome {
	i.mu.Lock()
	defer i.mu.Unlock()

	s := i.doc.CreateScript(url)
	i.pending.Store(s)
	defer i.pending.Store(nil)

	var once settleOnce
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	fail := func(kind Kind, reason string) Outcome {
		if !once.claim() {
			return Failure(kind, reason)
		}
		timer.Stop()
		i.doc.Remove(s)
		if s.Executed() {
			log.Warn().Str("script_id", s.ID).Str("url", url).Str("kind", string(kind)).Msg("attempt abandoned after the script body started executing")
		}
		log.Debug().Str("script_id", s.ID).Str("url", url).Str("kind", string(kind)).Str("reason", reason).Msg("load attempt failed")
		return Failure(kind, reason)
	}

	i.doc.Append(s)

	select {
	case <-s.Loaded():
		if once.claim() {
			timer.Stop()
			log.Debug().Str("script_id", s.ID).Str("url", url).Msg("load attempt succeeded")
		}
		return Success()
	case <-s.Failed():
		reason := "failed loading: " + url
		if err := s.Err(); err != nil {
			reason = err.Error()
		}
		return fail(KindLoadError, reason)
	case <-timer.C:
		return fail(KindTimeout, "timeout loading: "+url)
	case <-ctx.Done():
		return fail(KindCanceled, ctx.Err().Error())
	}
}
