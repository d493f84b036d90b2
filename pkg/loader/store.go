package loader

import (
	"context"
	"sync"
	"sync/atomic"
)

// PublishedKey is the namespaced key under which the core readiness handle is
// stored and published to page code.
const PublishedKey = "avatar-relay/cubism-core"

type State int32

const (
	StatePending State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Readiness is a pending-then-settled signal. It settles exactly once and
// every observer sees the same terminal value.
type Readiness struct {
	once  settleOnce
	state atomic.Int32
	done  chan struct{}
	err   error
}

func newReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

func (r *Readiness) settle(err error) bool {
	if !r.once.claim() {
		return false
	}
	r.err = err
	if err != nil {
		r.state.Store(int32(StateFailed))
	} else {
		r.state.Store(int32(StateReady))
	}
	close(r.done)
	return true
}

func (r *Readiness) Done() <-chan struct{} { return r.done }

// Err returns the terminal error, or nil while pending or after success.
func (r *Readiness) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

func (r *Readiness) State() State { return State(r.state.Load()) }

// Wait blocks until the handle settles or ctx ends. A ctx error does not
// affect the handle.
func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Store holds readiness handles by key. The first LoadOrCreate for a key
// writes it; everything after reads.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Readiness
}

func NewStore() *Store {
	return &Store{entries: map[string]*Readiness{}}
}

// DefaultStore is the process-wide store used when a gate is not given one.
var DefaultStore = NewStore()

func (s *Store) Lookup(key string) (*Readiness, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.entries[key]
	return r, ok
}

// LoadOrCreate returns the handle for key, creating it if absent. created is
// true for exactly one caller per key.
func (s *Store) LoadOrCreate(key string) (r *Readiness, created bool) {
	if r, ok := s.Lookup(key); ok {
		return r, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.entries[key]; ok {
		return r, false
	}
	r = newReadiness()
	s.entries[key] = r
	return r, true
}

// Reset forgets every handle. Handles already given out are unaffected.
func (s *Store) Reset() {
	s.mu.Lock()
	s.entries = map[string]*Readiness{}
	s.mu.Unlock()
}
