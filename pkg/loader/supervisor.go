package loader

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Attempter runs one load attempt.
type Attempter interface {
	Attempt(ctx context.Context, url string, timeout time.Duration) Outcome
}

// Supervisor wraps attempts with a bounded retry budget and a fixed delay
// between tries.
type Supervisor struct {
	attempter  Attempter
	retryDelay time.Duration
}

func NewSupervisor(a Attempter, retryDelay time.Duration) *Supervisor {
	return &Supervisor{attempter: a, retryDelay: retryDelay}
}

// Load returns nil once an attempt succeeds. Timeouts and load errors are
// retried while req.MaxRetries > 0; the terminal error is a *LoadFailure.
func (s *Supervisor) Load(ctx context.Context, req LoadRequest) error {
	if s == nil || s.attempter == nil {
		return errors.New("supervisor: not initialized")
	}
	if req.Timeout <= 0 {
		return errors.Errorf("supervisor: timeout must be positive, got %s", req.Timeout)
	}
	if req.MaxRetries < 0 {
		return errors.Errorf("supervisor: max retries must be >= 0, got %d", req.MaxRetries)
	}
	chain := uuid.NewString()
	return s.load(ctx, chain, req, 1)
}

func (s *Supervisor) load(ctx context.Context, chain string, req LoadRequest, attempt int) error {
	log.Debug().Str("chain", chain).Str("url", req.URL).Int("attempt", attempt).Dur("timeout", req.Timeout).Msg("starting load attempt")

	out := s.attempter.Attempt(ctx, req.URL, req.Timeout)
	if out.OK() {
		log.Info().Str("chain", chain).Str("url", req.URL).Int("attempt", attempt).Msg("dependency loaded")
		return nil
	}

	if !out.Kind.Retryable() {
		return &LoadFailure{Kind: out.Kind, URL: req.URL, Reason: out.Reason, Last: out.Kind, Attempts: attempt}
	}
	if req.MaxRetries == 0 {
		return &LoadFailure{Kind: KindRetryExhausted, URL: req.URL, Reason: out.Reason, Last: out.Kind, Attempts: attempt}
	}

	log.Warn().Str("chain", chain).Str("url", req.URL).Int("attempt", attempt).
		Str("kind", string(out.Kind)).Str("reason", out.Reason).
		Int("retries_left", req.MaxRetries).Dur("delay", s.retryDelay).
		Msg("load attempt failed, retrying")

	if err := sleep(ctx, s.retryDelay); err != nil {
		return &LoadFailure{Kind: KindCanceled, URL: req.URL, Reason: err.Error(), Last: out.Kind, Attempts: attempt}
	}
	return s.load(ctx, chain, req.next(), attempt+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
