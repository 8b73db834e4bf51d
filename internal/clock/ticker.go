package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Ticker is a real-time Scheduler running frames on its own goroutine at a
// fixed rate. Work from other goroutines reaches the loop through Post or Do.
type Ticker struct {
	reg      registry
	interval time.Duration
	posts    chan func()
	elapsed  atomic.Int64
	frames   atomic.Uint64

	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	wg       sync.WaitGroup
}

// NewTicker creates a stopped Ticker delivering fps frames per second.
func NewTicker(fps int) *Ticker {
	if fps <= 0 {
		fps = 60
	}
	return &Ticker{
		interval: time.Second / time.Duration(fps),
		posts:    make(chan func(), 64),
		stopChan: make(chan struct{}),
	}
}

// Register implements Scheduler.
func (t *Ticker) Register(fn FrameFunc) func() {
	return t.reg.add(fn)
}

// Start begins the frame loop. Calling it twice is a no-op.
func (t *Ticker) Start() {
	if t.running.CompareAndSwap(false, true) {
		t.wg.Add(1)
		go t.loop()
	}
}

// Stop halts the loop and waits for the current frame to finish.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		if t.running.Load() {
			t.wg.Wait()
		}
	})
}

// Post queues fn to run on the loop goroutine. It returns false once the
// ticker is stopped.
func (t *Ticker) Post(fn func()) bool {
	select {
	case <-t.stopChan:
		return false
	default:
	}
	select {
	case <-t.stopChan:
		return false
	case t.posts <- fn:
		return true
	}
}

// Do runs fn on the loop goroutine and waits for it. Must not be called from
// the loop goroutine itself.
func (t *Ticker) Do(fn func()) bool {
	done := make(chan struct{})
	if !t.Post(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-t.stopChan:
		return false
	}
}

// Now returns the time delivered to frame functions so far.
func (t *Ticker) Now() time.Duration {
	return time.Duration(t.elapsed.Load())
}

// Frames returns the number of frames delivered so far.
func (t *Ticker) Frames() uint64 {
	return t.frames.Load()
}

func (t *Ticker) loop() {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-t.stopChan:
			return
		case fn := <-t.posts:
			fn()
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			t.elapsed.Add(int64(dt))
			t.frames.Add(1)
			t.reg.tick(dt)
		}
	}
}
