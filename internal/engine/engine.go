// Package engine is the choreography controller: it owns at most one run per
// host, preempts it on retrigger and disposes its fragments however it ends.
//
// A Controller is not goroutine-safe. Call it from the goroutine driving its
// scheduler (clock.Ticker.Post / Do for real-time hosts).
package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/clock"
	"github.com/ivlev/choreo/internal/effects"
	"github.com/ivlev/choreo/internal/fault"
	"github.com/ivlev/choreo/internal/observability"
	"github.com/ivlev/choreo/internal/pool"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Phase of a Controller.
type Phase int

const (
	Idle Phase = iota
	Running
)

func (p Phase) String() string {
	if p == Running {
		return "running"
	}
	return "idle"
}

// RunState is where a Run ended up.
type RunState int

const (
	RunActive RunState = iota
	RunCompleted
	RunCancelled
)

func (s RunState) String() string {
	switch s {
	case RunActive:
		return "active"
	case RunCompleted:
		return "completed"
	case RunCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("runstate(%d)", int(s))
}

// Callbacks of one run. Both are optional and never fire for a cancelled run.
type Callbacks struct {
	Mid      func()
	Complete func()
}

// Options configure a Controller. Scene and Scheduler are required.
type Options struct {
	Scene     scene.Scene
	Scheduler clock.Scheduler
	Registry  *effects.Registry // nil means effects.Default()
	Profiles  sampler.Table     // nil means sampler.Defaults()
	Seed      int64
	Logger    zerolog.Logger
	Metrics   *observability.Metrics
}

// Controller runs choreographies against one scene.
type Controller struct {
	scene    scene.Scene
	registry *effects.Registry
	profiles sampler.Table
	seed     int64
	logger   zerolog.Logger
	metrics  *observability.Metrics

	pool    *pool.Pool
	builder *timeline.Builder

	current   *Run
	runs      uint64
	destroyed bool
}

// New creates a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Scene == nil || opts.Scheduler == nil {
		return nil, fault.Invalid("controller needs a scene and a scheduler")
	}
	if opts.Registry == nil {
		opts.Registry = effects.Default()
	}
	if opts.Profiles == nil {
		opts.Profiles = sampler.Defaults()
	}
	if err := opts.Profiles.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		scene:    opts.Scene,
		registry: opts.Registry,
		profiles: opts.Profiles,
		seed:     opts.Seed,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		pool:     pool.New(opts.Scene, opts.Logger),
		builder:  &timeline.Builder{Scene: opts.Scene, Scheduler: opts.Scheduler, Logger: opts.Logger},
	}, nil
}

// Run is the handle of one choreography run.
type Run struct {
	c        *Controller
	id       uint64
	effect   effects.Key
	profile  sampler.Key
	seed     int64
	target   scene.NodeID
	frags    []pool.Fragment
	handle   *timeline.Handle
	cb       Callbacks
	state    RunState
	midFired bool
	midAt    time.Duration
}

// Start validates the request, preempts the current run and starts a new one.
// Invalid requests return before the current run is touched.
func (c *Controller) Start(target scene.NodeID, effect effects.Key, profile sampler.Key, opts effects.Options, cb Callbacks) (*Run, error) {
	if c.destroyed {
		return nil, fault.Unsupported("controller destroyed")
	}
	strategy, err := c.registry.Lookup(effect)
	if err != nil {
		return nil, err
	}
	prof, err := c.profiles.Sample(profile)
	if err != nil {
		return nil, err
	}
	if err := strategy.Validate(opts); err != nil {
		return nil, err
	}

	t, err := c.describe(target)
	if err != nil {
		return nil, err
	}

	seed := sampler.Derive(c.seed, c.runs)
	out, err := strategy.Plan(t, prof, opts, sampler.New(seed))
	if err != nil {
		return nil, err
	}
	if _, err := out.Plan.Duration(out.Fragments); err != nil {
		return nil, fmt.Errorf("plan %s: %w", effect, err)
	}

	var parent scene.NodeID
	if out.Fragments > 0 {
		p, ok := c.scene.Parent(target)
		if !ok {
			return nil, fault.Unsupported("node %d has no parent for %d fragments", target, out.Fragments)
		}
		parent = p
	}

	if c.current != nil {
		c.logger.Debug().Err(fault.ErrRunPreempted).Uint64("run", c.current.id).Msg("preempting run")
		c.current.cancel(observability.OutcomePreempted)
	}

	c.runs++
	r := &Run{
		c:       c,
		id:      c.runs,
		effect:  effect,
		profile: profile,
		seed:    seed,
		target:  target,
		cb:      cb,
	}
	if out.Plan.HasLabel(effects.MidLabel) {
		out.Plan.Call(effects.MidLabel, timeline.AtLabel(effects.MidLabel, 0), r.mid)
	}

	r.frags, err = c.pool.Materialize(parent, out.Fragments, out.Recipe)
	if err != nil {
		return nil, fmt.Errorf("materialize %s fragments: %w", effect, err)
	}
	r.handle, err = c.builder.Build(out.Plan, pool.Nodes(r.frags), timeline.Hooks{
		Complete: r.complete,
		Fault:    r.faulted,
	})
	if err != nil {
		c.pool.Dispose(r.frags)
		return nil, fmt.Errorf("build %s timeline: %w", effect, err)
	}

	c.current = r
	c.metrics.RunStarted(string(effect))
	c.metrics.Fragments(c.pool.Live())
	c.logger.Info().
		Uint64("run", r.id).
		Str("effect", string(effect)).
		Str("profile", string(profile)).
		Int64("seed", seed).
		Int("fragments", len(r.frags)).
		Float64("duration", r.handle.Duration()).
		Msg("run started")
	return r, nil
}

// describe reads what strategies need to know about target.
func (c *Controller) describe(target scene.NodeID) (effects.Target, error) {
	b, err := c.scene.Bounds(target)
	if err != nil {
		return effects.Target{}, fault.Unsupported("target %d: %v", target, err)
	}
	t := effects.Target{Node: target, Bounds: b}
	if v, ok := c.scene.Property(target, scene.Content); ok {
		t.Content = v.Text()
	}
	if v, ok := c.scene.Property(target, scene.Text); ok {
		t.Text = v.Text()
	}
	return t, nil
}

// Stop cancels r if it is the current run. Stale handles are ignored.
func (c *Controller) Stop(r *Run) {
	if r == nil || r != c.current {
		return
	}
	r.cancel(observability.OutcomeCancelled)
}

// Destroy cancels the current run and refuses further starts.
func (c *Controller) Destroy() {
	if c.current != nil {
		c.current.cancel(observability.OutcomeCancelled)
	}
	c.destroyed = true
}

// Reset cancels any run on target and restores its baseline properties.
func (c *Controller) Reset(target scene.NodeID) error {
	if c.current != nil && c.current.target == target {
		c.current.cancel(observability.OutcomeCancelled)
	}
	if err := c.scene.SetProperties(target, scene.Baseline()); err != nil {
		return fmt.Errorf("reset node %d: %w", target, err)
	}
	return nil
}

// Phase reports whether a run is in flight.
func (c *Controller) Phase() Phase {
	if c.current != nil {
		return Running
	}
	return Idle
}

// Active returns the current run, or nil.
func (c *Controller) Active() *Run {
	return c.current
}

// LiveFragments returns the number of fragments attached to the scene.
func (c *Controller) LiveFragments() int {
	return c.pool.Live()
}

// end detaches r and releases its fragments.
func (c *Controller) end(r *Run, state RunState, outcome string) {
	r.state = state
	if c.current == r {
		c.current = nil
	}
	c.pool.Dispose(r.frags)
	c.metrics.RunFinished(string(r.effect), outcome, r.handle.Elapsed())
	c.metrics.Fragments(c.pool.Live())
	c.logger.Info().
		Uint64("run", r.id).
		Str("effect", string(r.effect)).
		Str("outcome", outcome).
		Dur("elapsed", r.handle.Elapsed()).
		Msg("run finished")
}

func (r *Run) cancel(outcome string) {
	if r.state != RunActive {
		return
	}
	r.handle.Cancel()
	r.c.end(r, RunCancelled, outcome)
}

func (r *Run) mid() {
	if r.state != RunActive || r.midFired {
		return
	}
	r.midFired = true
	r.midAt = r.handle.Elapsed()
	if r.cb.Mid != nil {
		r.cb.Mid()
	}
}

func (r *Run) complete() {
	if r.state != RunActive {
		return
	}
	r.c.end(r, RunCompleted, observability.OutcomeCompleted)
	if r.cb.Complete != nil {
		r.cb.Complete()
	}
}

// faulted ends the run like a cancellation: fragments go, callbacks don't fire.
func (r *Run) faulted(err error) {
	if r.state != RunActive {
		return
	}
	r.c.logger.Warn().Err(err).Uint64("run", r.id).Msg("run faulted, cancelling")
	r.c.end(r, RunCancelled, observability.OutcomeFaulted)
}

// Cancel stops the run. Same as Controller.Stop(r).
func (r *Run) Cancel() {
	r.c.Stop(r)
}

// ID is the run number within its controller, starting at 1.
func (r *Run) ID() uint64 { return r.id }

// Effect returns the run's effect key.
func (r *Run) Effect() effects.Key { return r.effect }

// Profile returns the run's profile key.
func (r *Run) Profile() sampler.Key { return r.profile }

// Seed returns the seed the run's plan was drawn from.
func (r *Run) Seed() int64 { return r.seed }

// Target returns the animated node.
func (r *Run) Target() scene.NodeID { return r.target }

// State returns where the run is.
func (r *Run) State() RunState { return r.state }

// Fragments lists the run's fragment nodes in origin order. They are gone
// from the scene once the run has ended.
func (r *Run) Fragments() []scene.NodeID { return pool.Nodes(r.frags) }

// Elapsed returns the playback time so far.
func (r *Run) Elapsed() time.Duration { return r.handle.Elapsed() }

// Duration returns the finite plan length in seconds.
func (r *Run) Duration() float64 { return r.handle.Duration() }

// Unbounded reports whether the run only ends when stopped.
func (r *Run) Unbounded() bool { return r.handle.Unbounded() }

// Mid reports the playback time at which the mid callback fired.
func (r *Run) Mid() (time.Duration, bool) { return r.midAt, r.midFired }
