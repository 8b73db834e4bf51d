// Package clock provides frame-paced schedulers.
//
// Every FrameFunc registered with a Scheduler runs on a single goroutine, so the
// code driven by it (timelines, controllers) needs no locking of its own.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// FrameFunc is called once per frame with the time since the previous frame.
type FrameFunc func(dt time.Duration)

// Scheduler delivers frames to registered functions.
// The returned cancel func is idempotent; once it returns, fn is never called again.
type Scheduler interface {
	Register(fn FrameFunc) (cancel func())
}

type registration struct {
	fn     FrameFunc
	active atomic.Bool
}

// registry is the registration list shared by the schedulers.
type registry struct {
	mu   sync.Mutex
	regs []*registration
}

func (r *registry) add(fn FrameFunc) func() {
	reg := &registration{fn: fn}
	reg.active.Store(true)
	r.mu.Lock()
	r.regs = append(r.regs, reg)
	r.mu.Unlock()
	return func() {
		if reg.active.CompareAndSwap(true, false) {
			r.compact()
		}
	}
}

func (r *registry) compact() {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.regs[:0]
	for _, reg := range r.regs {
		if reg.active.Load() {
			kept = append(kept, reg)
		}
	}
	for i := len(kept); i < len(r.regs); i++ {
		r.regs[i] = nil
	}
	r.regs = kept
}

// tick runs every registration that is live at the moment it is reached.
// Registrations added during the tick start on the next one.
func (r *registry) tick(dt time.Duration) {
	r.mu.Lock()
	snapshot := append([]*registration(nil), r.regs...)
	r.mu.Unlock()
	for _, reg := range snapshot {
		if reg.active.Load() {
			reg.fn(dt)
		}
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regs)
}
