// Package page provides a headless page runtime: a goja VM driven by a single
// event loop, with a document head that script elements can be attached to.
//
// All JavaScript runs on the loop goroutine. Callers on other goroutines go
// through Page methods, which hop onto the loop and wait for the result.
package page

import (
	"context"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned when the page loop has been stopped.
var ErrClosed = errors.New("page: closed")

// DepsGlobal is the namespace object under which readiness promises are published.
const DepsGlobal = "__deps"

// Settleable is anything that settles once and reports a terminal error.
type Settleable interface {
	Done() <-chan struct{}
	Err() error
}

type Page struct {
	loop *eventloop.EventLoop
	doc  *Document

	closeOnce sync.Once
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// New starts a page whose script elements are resolved through fetcher.
func New(fetcher Fetcher) *Page {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Page{
		loop:   eventloop.NewEventLoop(),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	p.doc = newDocument(p, fetcher)
	p.loop.Start()
	if err := p.do(p.installHostAPIs); err != nil {
		// only fails if the loop refused the job, which cannot happen right after Start
		panic(err)
	}
	return p
}

func (p *Page) installHostAPIs(vm *goja.Runtime) error {
	if err := vm.Set("window", vm.GlobalObject()); err != nil {
		return err
	}
	return vm.Set(DepsGlobal, vm.NewObject())
}

func (p *Page) Document() *Document { return p.doc }

// do runs fn on the loop and waits for it.
func (p *Page) do(fn func(vm *goja.Runtime) error) error {
	errc := make(chan error, 1)
	if !p.loop.RunOnLoop(func(vm *goja.Runtime) { errc <- fn(vm) }) {
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-p.done:
		return ErrClosed
	}
}

// HasGlobal reports whether name resolves to a defined, non-null value in the
// page's global namespace.
func (p *Page) HasGlobal(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	present := false
	err := p.do(func(vm *goja.Runtime) error {
		v := vm.GlobalObject().Get(name)
		present = v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
		return nil
	})
	if err != nil {
		return false
	}
	return present
}

// RunScript evaluates source in page scope.
func (p *Page) RunScript(name string, source string) error {
	if strings.TrimSpace(name) == "" {
		name = "inline.js"
	}
	err := p.do(func(vm *goja.Runtime) error {
		_, err := vm.RunScript(name, source)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "page: run script %q", name)
	}
	return nil
}

// Publish exposes s to page code as a promise at __deps[key]. The promise
// resolves with undefined or rejects with the settled error.
func (p *Page) Publish(key string, s Settleable) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("page: empty publish key")
	}
	if s == nil {
		return errors.New("page: nil settleable")
	}
	return p.do(func(vm *goja.Runtime) error {
		promise, resolve, reject := vm.NewPromise()
		deps := vm.Get(DepsGlobal).ToObject(vm)
		if err := deps.Set(key, promise); err != nil {
			return errors.Wrapf(err, "page: publish %q", key)
		}
		go func() {
			select {
			case <-s.Done():
			case <-p.done:
				return
			}
			err := s.Err()
			p.loop.RunOnLoop(func(vm *goja.Runtime) {
				if err != nil {
					reject(vm.NewGoError(err))
				} else {
					resolve(goja.Undefined())
				}
				// drain promise reactions queued by the settle above
				if _, rerr := vm.RunString("void 0"); rerr != nil {
					log.Warn().Err(rerr).Str("key", key).Msg("page: drain after publish failed")
				}
			})
		}()
		return nil
	})
}

// Close stops the loop and cancels in-flight fetches.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		close(p.done)
		p.loop.Stop()
	})
}
