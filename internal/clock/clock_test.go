package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManualStepAndCancel(t *testing.T) {
	m := NewManual()
	calls := 0
	cancel := m.Register(func(dt time.Duration) { calls++ })

	m.Step(10 * time.Millisecond)
	m.Step(10 * time.Millisecond)
	if calls != 2 {
		t.Fatalf("Expected 2 calls, got %d", calls)
	}

	cancel()
	cancel()
	m.Step(10 * time.Millisecond)
	if calls != 2 {
		t.Errorf("Cancelled registration was called: %d", calls)
	}
	if m.Registered() != 0 {
		t.Errorf("Expected no registrations, got %d", m.Registered())
	}
	if m.Now() != 30*time.Millisecond || m.Frames() != 3 {
		t.Errorf("Unexpected clock state now=%v frames=%d", m.Now(), m.Frames())
	}
}

func TestManualCancelDuringTick(t *testing.T) {
	m := NewManual()
	var second func()
	secondCalls := 0

	m.Register(func(dt time.Duration) { second() })
	second = m.Register(func(dt time.Duration) { secondCalls++ })

	m.Step(time.Millisecond)
	if secondCalls != 0 {
		t.Errorf("Registration cancelled earlier in the same frame must not run, got %d calls", secondCalls)
	}
}

func TestManualAdvance(t *testing.T) {
	m := NewManual()
	var total time.Duration
	m.Register(func(dt time.Duration) { total += dt })

	m.Advance(105*time.Millisecond, 20)
	if total != 105*time.Millisecond {
		t.Errorf("Expected 105ms delivered, got %v", total)
	}
	if m.Frames() != 3 {
		t.Errorf("Expected 3 frames (50+50+5ms), got %d", m.Frames())
	}
}

func TestTickerRunsFramesAndPosts(t *testing.T) {
	tk := NewTicker(200)
	var frames atomic.Int32
	tk.Register(func(dt time.Duration) { frames.Add(1) })
	tk.Start()
	defer tk.Stop()

	ran := false
	if !tk.Do(func() { ran = true }) {
		t.Fatal("Do returned false on a running ticker")
	}
	if !ran {
		t.Error("Posted work did not run")
	}

	deadline := time.After(2 * time.Second)
	for frames.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Ticker delivered only %d frames", frames.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTickerStopIdempotent(t *testing.T) {
	tk := NewTicker(60)
	tk.Start()
	tk.Stop()
	tk.Stop()
	if tk.Post(func() {}) {
		t.Error("Post should fail after Stop")
	}
}
