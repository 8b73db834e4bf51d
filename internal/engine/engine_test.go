package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/clock"
	"github.com/ivlev/choreo/internal/director"
	"github.com/ivlev/choreo/internal/effects"
	"github.com/ivlev/choreo/internal/fault"
	"github.com/ivlev/choreo/internal/observability"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

type fixture struct {
	scene  *scene.Memory
	clock  *clock.Manual
	ctl    *Controller
	target scene.NodeID
}

func newFixture(t *testing.T, seed int64, metrics *observability.Metrics) *fixture {
	t.Helper()
	m := scene.NewMemory(640, 360)
	target, err := m.CreateChild(m.Root())
	if err != nil {
		t.Fatal(err)
	}
	m.SetProperties(target, scene.Properties{
		scene.Left:    scene.Num(20),
		scene.Top:     scene.Num(30),
		scene.Width:   scene.Num(300),
		scene.Height:  scene.Num(300),
		scene.Content: scene.Str("slide-1"),
	})
	clk := clock.NewManual()
	ctl, err := New(Options{Scene: m, Scheduler: clk, Seed: seed, Logger: zerolog.Nop(), Metrics: metrics})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{scene: m, clock: clk, ctl: ctl, target: target}
}

// counter records callbacks with the clock time they fired at.
type counter struct {
	clk      *clock.Manual
	mids     int
	complete int
	midAt    time.Duration
	doneAt   time.Duration
}

func (c *counter) callbacks() Callbacks {
	return Callbacks{
		Mid: func() {
			c.mids++
			c.midAt = c.clk.Now()
		},
		Complete: func() {
			c.complete++
			c.doneAt = c.clk.Now()
		},
	}
}

func TestStartThenCancel(t *testing.T) {
	f := newFixture(t, 1, nil)
	cb := &counter{clk: f.clock}
	run, err := f.ctl.Start(f.target, effects.Shatter, sampler.Dramatic, effects.Options{}, cb.callbacks())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if f.ctl.LiveFragments() != 9 || f.ctl.Phase() != Running {
		t.Fatalf("Expected 9 live fragments while running, got %d (%v)", f.ctl.LiveFragments(), f.ctl.Phase())
	}

	run.Cancel()
	if f.ctl.LiveFragments() != 0 || f.scene.Len() != 1 {
		t.Errorf("Fragments left after cancel: pool %d, scene %d", f.ctl.LiveFragments(), f.scene.Len())
	}
	f.clock.Advance(3*time.Second, 60)
	if cb.mids != 0 || cb.complete != 0 {
		t.Errorf("Cancelled run fired callbacks: mid %d complete %d", cb.mids, cb.complete)
	}
	if run.State() != RunCancelled || f.ctl.Phase() != Idle || f.clock.Registered() != 0 {
		t.Errorf("Unexpected state %v / %v with %d frame funcs", run.State(), f.ctl.Phase(), f.clock.Registered())
	}
	run.Cancel()
	f.ctl.Stop(run)
}

func TestShatterRun(t *testing.T) {
	f := newFixture(t, 42, nil)
	cb := &counter{clk: f.clock}
	run, err := f.ctl.Start(f.target, effects.Shatter, sampler.Dramatic, effects.Options{Pieces: 9}, cb.callbacks())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	frags := run.Fragments()
	if len(frags) != 9 {
		t.Fatalf("Expected 9 fragments, got %d", len(frags))
	}
	for i, id := range frags {
		x, _ := f.scene.Property(id, scene.ClipX)
		y, _ := f.scene.Property(id, scene.ClipY)
		w, _ := f.scene.Property(id, scene.ClipW)
		if x.Float() != float64(i%3)*100 || y.Float() != float64(i/3)*100 || w.Float() != 100 {
			t.Errorf("Fragment %d clip (%v,%v) w=%v", i, x, y, w)
		}
		if p, _ := f.scene.Parent(id); p != f.scene.Root() {
			t.Errorf("Fragment %d is not a sibling of the target", i)
		}
	}

	f.clock.Advance(3*time.Second, 60)
	if cb.complete != 1 || cb.mids != 1 {
		t.Fatalf("Expected one mid and one complete, got %d and %d", cb.mids, cb.complete)
	}
	if cb.midAt >= cb.doneAt {
		t.Errorf("Mid at %v is not before completion at %v", cb.midAt, cb.doneAt)
	}
	ratio := cb.midAt.Seconds() / run.Duration()
	t.Logf("mid at %v of %.2fs (%.3f)", cb.midAt, run.Duration(), ratio)
	if ratio < 0.30 || ratio > 0.36 {
		t.Errorf("Mid ratio %.3f outside the first-phase window", ratio)
	}
	if at, ok := run.Mid(); !ok || at != cb.midAt {
		t.Errorf("Run.Mid() = %v %v, expected %v", at, ok, cb.midAt)
	}
	if f.ctl.LiveFragments() != 0 || f.scene.Len() != 1 {
		t.Errorf("Fragments not disposed at completion")
	}
	if run.State() != RunCompleted || f.ctl.Phase() != Idle {
		t.Errorf("Unexpected end state %v / %v", run.State(), f.ctl.Phase())
	}
	if v, _ := f.scene.Property(f.target, scene.Opacity); v.Float() != 1 {
		t.Errorf("Target not revealed, opacity %v", v.Float())
	}
}

func TestPreemption(t *testing.T) {
	f := newFixture(t, 3, nil)
	first := &counter{clk: f.clock}
	r1, err := f.ctl.Start(f.target, effects.Shatter, sampler.Extreme, effects.Options{}, first.callbacks())
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(200*time.Millisecond, 60)

	second := &counter{clk: f.clock}
	r2, err := f.ctl.Start(f.target, effects.Shift, sampler.Subtle, effects.Options{Variant: effects.ShiftSlice, Pieces: 4}, second.callbacks())
	if err != nil {
		t.Fatal(err)
	}
	if r1.State() != RunCancelled {
		t.Errorf("First run should be cancelled, got %v", r1.State())
	}

	children := f.scene.Children(f.scene.Root())
	if len(children) != 1+len(r2.Fragments()) || f.ctl.LiveFragments() != 4 {
		t.Errorf("Expected only the new run's 4 fragments, scene has %d children, pool %d", len(children), f.ctl.LiveFragments())
	}
	for _, id := range r1.Fragments() {
		if f.scene.Exists(id) {
			t.Errorf("Fragment %d of the preempted run still exists", id)
		}
	}

	f.ctl.Stop(r1)
	if r2.State() != RunActive {
		t.Error("Stopping a stale handle cancelled the current run")
	}

	f.clock.Advance(3*time.Second, 60)
	if first.mids != 0 || first.complete != 0 {
		t.Errorf("Preempted run fired callbacks: %+v", first)
	}
	if second.complete != 1 {
		t.Errorf("Second run completed %d times", second.complete)
	}
}

func TestInvalidStartKeepsCurrentRun(t *testing.T) {
	f := newFixture(t, 5, nil)
	run, err := f.ctl.Start(f.target, effects.Glow, sampler.High, effects.Options{}, Callbacks{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		effect  effects.Key
		profile sampler.Key
		opts    effects.Options
		want    error
	}{
		{"unknown effect", "confetti", sampler.High, effects.Options{}, fault.ErrInvalidParameter},
		{"unknown profile", effects.Shift, "gentle", effects.Options{}, fault.ErrInvalidParameter},
		{"unknown variant", effects.Shift, sampler.Low, effects.Options{Variant: "zigzag"}, fault.ErrInvalidParameter},
		{"unknown direction", effects.Shift, sampler.Low, effects.Options{Direction: "diagonal"}, fault.ErrInvalidParameter},
		{"typewriter without text", effects.Glitch, sampler.Low, effects.Options{Variant: effects.GlitchTypewriter}, fault.ErrInvalidParameter},
		{"nan scenario duration", effects.Scenario, sampler.Low, effects.Options{Scenario: &director.Scenario{Duration: math.NaN()}}, fault.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ctl.Start(f.target, tt.effect, tt.profile, tt.opts, Callbacks{}); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if f.ctl.Active() != run || run.State() != RunActive {
				t.Error("Invalid start touched the running run")
			}
		})
	}
}

// brokenPlan passes option validation but yields a step with a NaN duration.
type brokenPlan struct{}

func (brokenPlan) Validate(effects.Options) error { return nil }

func (brokenPlan) Plan(t effects.Target, p sampler.Profile, o effects.Options, rng *sampler.Sampler) (*effects.Output, error) {
	plan := timeline.NewPlan(rng.Seed())
	plan.Tween(timeline.Step{
		Targets:  timeline.Nodes(t.Node),
		To:       timeline.Delta{scene.Opacity: timeline.Num(0)},
		Duration: math.NaN(),
	})
	return &effects.Output{Plan: plan}, nil
}

func TestInvalidPlanKeepsCurrentRun(t *testing.T) {
	m := scene.NewMemory(640, 360)
	target, _ := m.CreateChild(m.Root())
	m.SetProperties(target, scene.Properties{scene.Width: scene.Num(300), scene.Height: scene.Num(300)})
	reg := effects.Default()
	if err := reg.Register("broken", brokenPlan{}); err != nil {
		t.Fatal(err)
	}
	clk := clock.NewManual()
	ctl, err := New(Options{Scene: m, Scheduler: clk, Registry: reg, Seed: 3, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}

	run, err := ctl.Start(target, effects.Shatter, sampler.Dramatic, effects.Options{}, Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	live := ctl.LiveFragments()
	if _, err := ctl.Start(target, "broken", sampler.Dramatic, effects.Options{}, Callbacks{}); !errors.Is(err, fault.ErrInvalidParameter) {
		t.Fatalf("Expected ErrInvalidParameter, got %v", err)
	}
	if ctl.Active() != run || run.State() != RunActive || ctl.LiveFragments() != live || live == 0 {
		t.Errorf("Invalid plan preempted the run: state %v, %d of %d fragments live", run.State(), ctl.LiveFragments(), live)
	}
	clk.Advance(3*time.Second, 60)
	if run.State() != RunCompleted {
		t.Errorf("Kept run did not complete: %v", run.State())
	}
}

func TestCancelEveryEffect(t *testing.T) {
	mid := 0.5
	recorded := &director.Scenario{
		Version:  director.Version,
		Duration: 1,
		Mid:      &mid,
		Tracks: []director.Track{
			{Role: director.RoleTarget, Keyframes: []director.Keyframe{
				{Time: 1, Values: map[string]float64{scene.Opacity: 0}},
			}},
			{Role: director.RoleFragment, Index: 0,
				Init:      director.Keyframe{Values: map[string]float64{scene.Width: 300, scene.Height: 300}},
				Keyframes: []director.Keyframe{{Time: 1, Values: map[string]float64{scene.X: 80}}},
			},
		},
	}

	type variant struct {
		effect effects.Key
		opts   effects.Options
	}
	var variants []variant
	for _, k := range effects.Default().Keys() {
		opts := effects.Options{}
		if k == effects.Scenario {
			opts.Scenario = recorded
		}
		variants = append(variants, variant{k, opts})
	}
	variants = append(variants,
		variant{effects.Sweep, effects.Options{Loop: true}},
		variant{effects.Glow, effects.Options{Variant: effects.GlowPulse}},
	)

	for _, v := range variants {
		for _, p := range sampler.Keys {
			name := fmt.Sprintf("%s %s/%s", v.effect, v.opts.Variant, p)
			if v.opts.Loop {
				name += " loop"
			}
			t.Run(name, func(t *testing.T) {
				f := newFixture(t, 11, nil)
				cb := &counter{clk: f.clock}
				run, err := f.ctl.Start(f.target, v.effect, p, v.opts, cb.callbacks())
				if err != nil {
					t.Fatalf("Start failed: %v", err)
				}
				run.Cancel()
				f.clock.Advance(5*time.Second, 60)

				if f.ctl.LiveFragments() != 0 || f.scene.Len() != 1 {
					t.Errorf("Fragments left after cancel: pool %d, scene %d", f.ctl.LiveFragments(), f.scene.Len())
				}
				if cb.mids != 0 || cb.complete != 0 {
					t.Errorf("Cancelled run fired callbacks: mid %d complete %d", cb.mids, cb.complete)
				}
				if run.State() != RunCancelled || f.clock.Registered() != 0 {
					t.Errorf("Unexpected state %v with %d frame funcs", run.State(), f.clock.Registered())
				}
			})
		}
	}
}

func TestRunUnbounded(t *testing.T) {
	tests := []struct {
		name   string
		effect effects.Key
		opts   effects.Options
		want   bool
	}{
		{"shatter", effects.Shatter, effects.Options{}, false},
		{"sweep once", effects.Sweep, effects.Options{}, false},
		{"sweep loop", effects.Sweep, effects.Options{Loop: true}, true},
		{"glow pulse", effects.Glow, effects.Options{Variant: effects.GlowPulse}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 2, nil)
			run, err := f.ctl.Start(f.target, tt.effect, sampler.Medium, tt.opts, Callbacks{})
			if err != nil {
				t.Fatal(err)
			}
			if run.Unbounded() != tt.want {
				t.Errorf("Expected unbounded %v, got %v (duration %.2fs)", tt.want, run.Unbounded(), run.Duration())
			}
			if run.Duration() <= 0 {
				t.Errorf("Expected a positive duration, got %v", run.Duration())
			}
			f.ctl.Stop(run)
		})
	}
}

func TestUnsupportedTarget(t *testing.T) {
	f := newFixture(t, 1, nil)
	root := f.scene.Root()
	if _, err := f.ctl.Start(root, effects.Shatter, sampler.Dramatic, effects.Options{}, Callbacks{}); !errors.Is(err, fault.ErrUnsupportedTarget) {
		t.Errorf("Fragments on a parentless node: expected ErrUnsupportedTarget, got %v", err)
	}
	if _, err := f.ctl.Start(root, effects.Mask, sampler.Dramatic, effects.Options{}, Callbacks{}); err != nil {
		t.Errorf("Mask needs no parent, got %v", err)
	}
	if _, err := f.ctl.Start(999, effects.Mask, sampler.Dramatic, effects.Options{}, Callbacks{}); !errors.Is(err, fault.ErrUnsupportedTarget) {
		t.Errorf("Missing node: expected ErrUnsupportedTarget, got %v", err)
	}
}

func TestGlowPulseStop(t *testing.T) {
	f := newFixture(t, 1, nil)
	run, err := f.ctl.Start(f.target, effects.Glow, sampler.Dramatic, effects.Options{Variant: effects.GlowPulse}, Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(5*time.Second, 30)
	if run.State() != RunActive {
		t.Fatalf("Pulse ended on its own: %v", run.State())
	}

	f.ctl.Stop(run)
	before := f.scene.Mutations()
	f.clock.Advance(2*time.Second, 30)
	if f.scene.Mutations() != before {
		t.Errorf("Scene mutated %d times after stop", f.scene.Mutations()-before)
	}
	if f.clock.Registered() != 0 {
		t.Errorf("Frame function still registered after stop")
	}
}

func TestSeedsReplay(t *testing.T) {
	final := func() ([]int64, []float64) {
		f := newFixture(t, 99, nil)
		var seeds []int64
		var xs []float64
		for i := 0; i < 3; i++ {
			run, err := f.ctl.Start(f.target, effects.Shatter, sampler.Dramatic, effects.Options{Variant: effects.ShatterRadial}, Callbacks{})
			if err != nil {
				t.Fatal(err)
			}
			seeds = append(seeds, run.Seed())
			f.clock.Advance(600*time.Millisecond, 60)
			for _, id := range run.Fragments() {
				v, _ := f.scene.Property(id, scene.X)
				xs = append(xs, v.Float())
			}
		}
		return seeds, xs
	}

	s1, x1 := final()
	s2, x2 := final()
	if s1[0] == s1[1] || s1[1] == s1[2] {
		t.Errorf("Consecutive runs share a seed: %v", s1)
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Fatalf("Seed sequence differs: %v vs %v", s1, s2)
		}
	}
	for i := range x1 {
		if x1[i] != x2[i] {
			t.Fatalf("Fragment positions differ at %d: %v vs %v", i, x1[i], x2[i])
		}
	}
}

func TestTargetRemovedMidRun(t *testing.T) {
	f := newFixture(t, 8, nil)
	cb := &counter{clk: f.clock}
	run, err := f.ctl.Start(f.target, effects.Shatter, sampler.Subtle, effects.Options{}, cb.callbacks())
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(100*time.Millisecond, 60)
	if err := f.scene.Remove(f.target); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(3*time.Second, 60)
	if run.State() != RunCancelled || f.ctl.Phase() != Idle {
		t.Errorf("Expected the run to end cancelled, got %v / %v", run.State(), f.ctl.Phase())
	}
	if cb.complete != 0 {
		t.Error("Faulted run reported completion")
	}
	if f.ctl.LiveFragments() != 0 || f.scene.Len() != 0 {
		t.Errorf("Fragments left after fault: pool %d, scene %d", f.ctl.LiveFragments(), f.scene.Len())
	}
}

func TestChainFromComplete(t *testing.T) {
	f := newFixture(t, 2, nil)
	var second *Run
	_, err := f.ctl.Start(f.target, effects.Bounce, sampler.Low, effects.Options{}, Callbacks{
		Complete: func() {
			var err error
			second, err = f.ctl.Start(f.target, effects.Mask, sampler.Low, effects.Options{Direction: effects.Out}, Callbacks{})
			if err != nil {
				t.Errorf("Start from Complete failed: %v", err)
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(1500*time.Millisecond, 60)
	if second == nil || f.ctl.Active() != second {
		t.Fatal("Run started from Complete is not active")
	}
}

func TestDestroyAndReset(t *testing.T) {
	f := newFixture(t, 4, nil)
	run, err := f.ctl.Start(f.target, effects.Fold, sampler.Medium, effects.Options{}, Callbacks{})
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(300*time.Millisecond, 60)

	if err := f.ctl.Reset(f.target); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if run.State() != RunCancelled {
		t.Error("Reset should cancel the run on its target")
	}
	for name, want := range scene.Baseline() {
		if got, _ := f.scene.Property(f.target, name); got != want {
			t.Errorf("%s = %v after reset, expected %v", name, got, want)
		}
	}
	if v, _ := f.scene.Property(f.target, scene.Content); v.Text() != "slide-1" {
		t.Error("Reset should not clear content")
	}

	f.ctl.Destroy()
	if _, err := f.ctl.Start(f.target, effects.Mask, sampler.Low, effects.Options{}, Callbacks{}); !errors.Is(err, fault.ErrUnsupportedTarget) {
		t.Errorf("Start after Destroy: expected ErrUnsupportedTarget, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, fault.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter without scene, got %v", err)
	}
	bad := sampler.Defaults()
	bad[sampler.Low] = sampler.Profile{DurationSeconds: -1}
	if _, err := New(Options{Scene: scene.NewMemory(1, 1), Scheduler: clock.NewManual(), Profiles: bad}); !errors.Is(err, fault.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for a bad profile table, got %v", err)
	}
}

func TestRunMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, 6, m)

	run, _ := f.ctl.Start(f.target, effects.Glow, sampler.Low, effects.Options{}, Callbacks{})
	f.ctl.Start(f.target, effects.Mask, sampler.Low, effects.Options{}, Callbacks{})
	f.clock.Advance(2*time.Second, 60)
	f.ctl.Start(f.target, effects.Glow, sampler.Low, effects.Options{}, Callbacks{})
	f.ctl.Stop(f.ctl.Active())
	f.ctl.Stop(run)

	expected := `
# HELP choreo_runs_finished_total Choreography runs finished, by outcome.
# TYPE choreo_runs_finished_total counter
choreo_runs_finished_total{effect="glow",outcome="cancelled"} 1
choreo_runs_finished_total{effect="glow",outcome="preempted"} 1
choreo_runs_finished_total{effect="mask",outcome="completed"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "choreo_runs_finished_total"); err != nil {
		t.Error(err)
	}
	if n, _ := testutil.GatherAndCount(reg, "choreo_runs_started_total"); n != 2 {
		t.Errorf("Expected 2 started series, got %d", n)
	}
}
