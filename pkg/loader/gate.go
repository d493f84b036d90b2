package loader

import (
	"context"
	"strings"

	"github.com/go-go-golems/avatar-relay/pkg/page"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Globals answers presence checks against the page's global namespace.
type Globals interface {
	HasGlobal(name string) bool
}

// Loader runs a full attempt chain.
type Loader interface {
	Load(ctx context.Context, req LoadRequest) error
}

// Publisher exposes a readiness handle to page code under a key.
type Publisher interface {
	Publish(key string, s page.Settleable) error
}

// GateOption configures optional dependencies for a Gate.
type GateOption func(*Gate) error

func WithStore(s *Store) GateOption {
	return func(g *Gate) error {
		if s == nil {
			return errors.New("readiness store is nil")
		}
		g.store = s
		return nil
	}
}

func WithKey(key string) GateOption {
	return func(g *Gate) error {
		if strings.TrimSpace(key) == "" {
			return errors.New("readiness key is empty")
		}
		g.key = key
		return nil
	}
}

func WithPublisher(p Publisher) GateOption {
	return func(g *Gate) error {
		if p == nil {
			return errors.New("publisher is nil")
		}
		g.publisher = p
		return nil
	}
}

// Gate hands out the single readiness handle for one dependency and makes
// sure its loader runs at most once.
type Gate struct {
	globals   Globals
	loader    Loader
	policy    Policy
	store     *Store
	key       string
	publisher Publisher
}

func NewGate(globals Globals, l Loader, policy Policy, opts ...GateOption) (*Gate, error) {
	if globals == nil {
		return nil, errors.New("globals is nil")
	}
	if l == nil {
		return nil, errors.New("loader is nil")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	g := &Gate{
		globals: globals,
		loader:  l,
		policy:  policy,
		store:   DefaultStore,
		key:     PublishedKey,
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Gate) Key() string { return g.key }

// Ready returns the gate's readiness handle, starting the load on the first
// call. Every call returns the same handle. The load is not tied to ctx.
func (g *Gate) Ready(ctx context.Context) *Readiness {
	r, created := g.store.LoadOrCreate(g.key)
	if !created {
		return r
	}

	if g.publisher != nil {
		if err := g.publisher.Publish(g.key, r); err != nil {
			log.Warn().Err(err).Str("key", g.key).Msg("could not publish readiness handle")
		}
	}

	if g.globals.HasGlobal(g.policy.Symbol) {
		log.Debug().Str("symbol", g.policy.Symbol).Msg("dependency already present, skipping load")
		r.settle(nil)
		return r
	}

	go g.run(context.WithoutCancel(ctx), r)
	return r
}

func (g *Gate) run(ctx context.Context, r *Readiness) {
	err := g.loader.Load(ctx, g.policy.Request())
	if err == nil && !g.globals.HasGlobal(g.policy.Symbol) {
		err = &LoadFailure{
			Kind:   KindIntegrity,
			URL:    g.policy.URL,
			Reason: "loaded but " + g.policy.Symbol + " is still undefined",
		}
	}
	r.settle(err)
}

// New wires an injector, a supervisor and a gate over one page.
func New(pg *page.Page, policy Policy, opts ...GateOption) (*Gate, error) {
	if pg == nil {
		return nil, errors.New("page is nil")
	}
	sup := NewSupervisor(NewInjector(pg.Document()), policy.RetryDelay)
	return NewGate(pg, sup, policy, opts...)
}
