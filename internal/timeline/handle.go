package timeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/ivlev/choreo/internal/clock"
	"github.com/ivlev/choreo/internal/fault"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
)

// State of a Handle.
type State int

const (
	Running State = iota
	Completed
	Cancelled
	Faulted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Faulted:
		return "faulted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Hooks receive the terminal transition of a Handle. Neither fires after Cancel.
type Hooks struct {
	Complete func()
	Fault    func(error)
}

// Builder turns plans into running handles.
type Builder struct {
	Scene     scene.Scene
	Scheduler clock.Scheduler
	Logger    zerolog.Logger
}

type track struct {
	node  scene.NodeID
	index int
	count int
	start float64
	step  *Step
	easeF ease.TweenFunc

	started bool
	done    bool
	from    map[string]float64
	to      map[string]float64
	tweens  map[string]*gween.Tween
}

type cue struct {
	at   float64
	name string
	fn   func()
}

// Handle is a running plan.
type Handle struct {
	scene  scene.Scene
	logger zerolog.Logger
	hooks  Hooks

	tracks    []*track
	cues      []cue
	nextCue   int
	pending   int
	unbounded bool
	total     float64

	elapsed    time.Duration
	state      State
	unregister func()
}

// Build validates p, resolves its selectors against fragments and starts it on
// the scheduler. Tracks starting at offset zero are initialised before Build
// returns, so from-states are visible before the first frame.
func (b *Builder) Build(p *Plan, fragments []scene.NodeID, hooks Hooks) (*Handle, error) {
	if p == nil {
		return nil, fault.Invalid("nil plan")
	}
	l, err := p.resolve(len(fragments))
	if err != nil {
		return nil, err
	}

	h := &Handle{scene: b.Scene, logger: b.Logger, hooks: hooks, total: l.total}
	rng := sampler.New(p.Seed)

	for i := range p.entries {
		e := &p.entries[i]
		switch e.kind {
		case tweenEntry:
			targets, err := e.step.Targets.resolve(fragments)
			if err != nil {
				return nil, err
			}
			easeF, _ := Ease(e.step.Ease)
			var perm []int
			if e.step.Stagger.From == StaggerRandom {
				perm = rng.Perm(len(targets))
			}
			delays := e.step.Stagger.offsets(len(targets), perm)
			for j, node := range targets {
				h.tracks = append(h.tracks, &track{
					node:  node,
					index: j,
					count: len(targets),
					start: l.starts[i] + delays[j],
					step:  &e.step,
					easeF: easeF,
				})
			}
			if e.step.Repeat == -1 {
				h.unbounded = true
			}
		case callEntry:
			h.cues = append(h.cues, cue{at: l.starts[i], name: e.name, fn: e.fn})
		}
	}
	sort.SliceStable(h.cues, func(i, j int) bool { return h.cues[i].at < h.cues[j].at })
	for _, tr := range h.tracks {
		if tr.step.Repeat != -1 {
			h.pending++
		}
	}

	if err := h.applyTracks(); err != nil {
		return nil, err
	}
	h.unregister = b.Scheduler.Register(h.frame)
	h.logger.Debug().Int("tracks", len(h.tracks)).Int("cues", len(h.cues)).Float64("duration", h.total).Msg("timeline started")
	return h, nil
}

// Cancel stops the handle. Applied properties are kept. Idempotent.
func (h *Handle) Cancel() {
	if h.state != Running {
		return
	}
	h.state = Cancelled
	h.stop()
}

// State returns the current state.
func (h *Handle) State() State {
	return h.state
}

// Elapsed returns the playback time so far.
func (h *Handle) Elapsed() time.Duration {
	return h.elapsed
}

// Duration returns the finite plan length in seconds.
func (h *Handle) Duration() float64 {
	return h.total
}

// Unbounded reports whether a step repeats until cancelled, in which case
// Duration covers a single cycle of it.
func (h *Handle) Unbounded() bool {
	return h.unbounded
}

func (h *Handle) stop() {
	if h.unregister != nil {
		h.unregister()
	}
}

func (h *Handle) frame(dt time.Duration) {
	if h.state != Running {
		return
	}
	h.elapsed += dt

	if err := h.applyTracks(); err != nil {
		h.fail(err)
		return
	}

	for h.nextCue < len(h.cues) && h.cues[h.nextCue].at <= h.seconds() {
		c := h.cues[h.nextCue]
		h.nextCue++
		h.logger.Debug().Str("call", c.name).Dur("elapsed", h.elapsed).Msg("timeline call")
		c.fn()
		if h.state != Running {
			return
		}
	}

	if h.pending == 0 && !h.unbounded && h.nextCue == len(h.cues) {
		h.state = Completed
		h.stop()
		h.logger.Debug().Dur("elapsed", h.elapsed).Msg("timeline completed")
		if h.hooks.Complete != nil {
			h.hooks.Complete()
		}
	}
}

func (h *Handle) fail(err error) {
	h.state = Faulted
	h.stop()
	h.logger.Warn().Err(err).Msg("timeline faulted")
	if h.hooks.Fault != nil {
		h.hooks.Fault(err)
	}
}

func (h *Handle) seconds() float64 {
	return h.elapsed.Seconds()
}

// applyTracks starts due tracks and writes one batched property set per node.
func (h *Handle) applyTracks() error {
	now := h.seconds()
	batch := make(map[scene.NodeID]scene.Properties)
	var order []scene.NodeID
	put := func(node scene.NodeID, props scene.Properties) {
		if len(props) == 0 {
			return
		}
		dst, ok := batch[node]
		if !ok {
			dst = make(scene.Properties, len(props))
			batch[node] = dst
			order = append(order, node)
		}
		dst.Merge(props)
	}

	for _, tr := range h.tracks {
		if tr.done || now < tr.start {
			continue
		}
		if !tr.started {
			put(tr.node, h.begin(tr, batch[tr.node]))
		}
		props, finished := tr.sample(now - tr.start)
		put(tr.node, props)
		if finished {
			tr.done = true
			h.pending--
		}
	}

	for _, node := range order {
		if err := h.scene.SetProperties(node, batch[node]); err != nil {
			return fmt.Errorf("apply frame to node %d: %w", node, err)
		}
	}
	return nil
}

// begin evaluates the step's generators for one target and returns the
// discrete writes due at its start. Values written earlier in the same frame
// are seen through pending.
func (h *Handle) begin(tr *track, pending scene.Properties) scene.Properties {
	tr.started = true
	tr.from = make(map[string]float64)
	tr.to = make(map[string]float64)
	tr.tweens = make(map[string]*gween.Tween)
	out := make(scene.Properties)

	ctx := Ctx{Index: tr.index, Count: tr.count, Node: tr.node}
	for name, v := range tr.step.From {
		ctx.Current = h.current(tr.node, name, pending)
		val := v.eval(ctx)
		out[name] = val
		if !val.IsText() {
			tr.from[name] = val.Float()
		}
	}
	for name, v := range tr.step.To {
		if f, ok := tr.from[name]; ok {
			ctx.Current = scene.Num(f)
		} else {
			ctx.Current = h.current(tr.node, name, pending)
		}
		val := v.eval(ctx)
		if val.IsText() {
			out[name] = val
			continue
		}
		if _, ok := tr.from[name]; !ok {
			tr.from[name] = ctx.Current.Float()
		}
		tr.to[name] = val.Float()
		tr.tweens[name] = gween.New(float32(tr.from[name]), float32(tr.to[name]), float32(tr.step.Duration), tr.easeF)
	}
	return out
}

func (h *Handle) current(node scene.NodeID, name string, pending scene.Properties) scene.Value {
	if v, ok := pending[name]; ok {
		return v
	}
	if v, ok := h.scene.Property(node, name); ok {
		return v
	}
	return scene.Default(name)
}

// sample returns the interpolated numeric properties at local time t.
func (tr *track) sample(t float64) (scene.Properties, bool) {
	out := make(scene.Properties, len(tr.tweens))
	d := tr.step.Duration
	cycles := tr.step.cycles()

	if d == 0 || (cycles > 0 && t >= d*float64(cycles)) {
		endAtStart := tr.step.Yoyo && cycles > 0 && cycles%2 == 0
		for name := range tr.tweens {
			if endAtStart {
				out[name] = scene.Num(tr.from[name])
			} else {
				out[name] = scene.Num(tr.to[name])
			}
		}
		return out, true
	}

	cycle := math.Floor(t / d)
	within := t - cycle*d
	if tr.step.Yoyo && int(cycle)%2 == 1 {
		within = d - within
	}
	for name, tw := range tr.tweens {
		v, _ := tw.Set(float32(within))
		out[name] = scene.Num(float64(v))
	}
	return out, false
}
