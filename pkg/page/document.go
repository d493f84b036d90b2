package page

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	errDetached          = errors.New("page: script detached")
	errDetachedDuringRun = errors.New("page: script detached during execution")
)

// Script is a script element. It fires at most one of Loaded or Failed.
//
// Execution cannot be interrupted. An element removed while its body is
// running fires neither signal, but Executed reports true and any globals the
// body defined stay in place.
type Script struct {
	ID          string
	Src         string
	Async       bool
	CrossOrigin string

	attached bool
	cancel   context.CancelFunc

	executed atomic.Bool
	fired    atomic.Bool
	loaded   chan struct{}
	failed   chan struct{}
	err      error
}

func (s *Script) Loaded() <-chan struct{} { return s.loaded }
func (s *Script) Failed() <-chan struct{} { return s.failed }

// Executed reports whether the body started running on the page.
func (s *Script) Executed() bool { return s.executed.Load() }

// Err is the failure reason. It is only meaningful once Failed is closed.
func (s *Script) Err() error {
	select {
	case <-s.failed:
		return s.err
	default:
		return nil
	}
}

func (s *Script) fireLoad() bool {
	if !s.fired.CompareAndSwap(false, true) {
		return false
	}
	close(s.loaded)
	return true
}

func (s *Script) fireError(err error) bool {
	if !s.fired.CompareAndSwap(false, true) {
		return false
	}
	s.err = err
	close(s.failed)
	return true
}

// Document holds the page head. Appending a script fetches and executes it.
type Document struct {
	page    *Page
	fetcher Fetcher

	mu   sync.Mutex
	head []*Script
}

func newDocument(p *Page, fetcher Fetcher) *Document {
	return &Document{page: p, fetcher: fetcher}
}

// CreateScript builds a detached element marked async and cross-origin anonymous.
func (d *Document) CreateScript(src string) *Script {
	return &Script{
		ID:          uuid.NewString(),
		Src:         src,
		Async:       true,
		CrossOrigin: "anonymous",
		loaded:      make(chan struct{}),
		failed:      make(chan struct{}),
	}
}

// Append attaches s to the head and starts loading it. Appending an element
// that is already attached is a no-op.
func (d *Document) Append(s *Script) {
	if s == nil {
		return
	}
	d.mu.Lock()
	if s.attached {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.page.ctx)
	s.attached = true
	s.cancel = cancel
	d.head = append(d.head, s)
	d.mu.Unlock()

	log.Debug().Str("script_id", s.ID).Str("src", s.Src).Msg("page: script attached")
	go d.load(ctx, s)
}

// Remove detaches s and aborts its fetch. A script removed before execution
// starts never executes; one removed during execution runs to completion
// without firing Loaded or Failed.
func (d *Document) Remove(s *Script) {
	if s == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !s.attached {
		return
	}
	s.attached = false
	if s.cancel != nil {
		s.cancel()
	}
	for i, el := range d.head {
		if el == s {
			d.head = append(d.head[:i], d.head[i+1:]...)
			break
		}
	}
	log.Debug().Str("script_id", s.ID).Str("src", s.Src).Msg("page: script removed")
}

// Scripts returns the currently attached elements.
func (d *Document) Scripts() []*Script {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Script(nil), d.head...)
}

func (d *Document) isAttached(s *Script) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return s.attached
}

func (d *Document) load(ctx context.Context, s *Script) {
	body, err := d.fetcher.Fetch(ctx, s.Src)
	if !d.isAttached(s) {
		return
	}
	if err != nil {
		s.fireError(errors.Wrapf(err, "fetch %s", s.Src))
		return
	}

	err = d.page.do(func(vm *goja.Runtime) error {
		if !d.isAttached(s) {
			return errDetached
		}
		s.executed.Store(true)
		_, err := vm.RunScript(s.Src, string(body))
		if !d.isAttached(s) {
			return errDetachedDuringRun
		}
		return err
	})
	switch {
	case errors.Is(err, errDetached):
		return
	case errors.Is(err, errDetachedDuringRun):
		log.Warn().Str("script_id", s.ID).Str("src", s.Src).Msg("page: script removed while executing")
		return
	case err != nil:
		s.fireError(errors.Wrapf(err, "execute %s", s.Src))
	default:
		s.fireLoad()
	}
}
