// Package effects holds one Strategy per effect family. A strategy turns a
// target and an intensity profile into a timeline plan plus an optional
// fragment recipe; it never touches the scene itself.
package effects

import (
	"math"
	"sort"

	"github.com/ivlev/choreo/internal/director"
	"github.com/ivlev/choreo/internal/fault"
	"github.com/ivlev/choreo/internal/pool"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Key identifies an effect family.
type Key string

const (
	Shatter  Key = "shatter"
	Shift    Key = "shift"
	Mask     Key = "mask"
	Glow     Key = "glow"
	Bounce   Key = "bounce"
	Fold     Key = "fold"
	Morph    Key = "morph"
	Sweep    Key = "sweep"
	Glitch   Key = "glitch"
	Scenario Key = "scenario"
)

// MidLabel marks the point where callers may swap the underlying content.
const MidLabel = "mid"

// MaxPieces bounds the fragment count of any strategy.
const MaxPieces = 256

// Options select a variant inside a family. Empty strings pick the family default.
type Options struct {
	Variant   string
	Direction string
	Pieces    int
	Text      string
	Loop      bool
	Scenario  *director.Scenario
}

// Target is what a strategy knows about the node it animates.
type Target struct {
	Node    scene.NodeID
	Bounds  scene.Rect
	Content string
	Text    string
}

// Output is a strategy's plan and, when Fragments > 0, the recipe for them.
type Output struct {
	Plan      *timeline.Plan
	Fragments int
	Recipe    pool.Recipe
}

// Strategy is the algorithm of one effect family.
type Strategy interface {
	// Validate rejects unknown variants and directions.
	Validate(opts Options) error
	// Plan builds the run. All randomness comes from rng.
	Plan(t Target, p sampler.Profile, opts Options, rng *sampler.Sampler) (*Output, error)
}

// Registry maps keys to strategies.
type Registry struct {
	strategies map[Key]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[Key]Strategy)}
}

// Default returns a registry with every built-in family.
func Default() *Registry {
	r := NewRegistry()
	r.strategies[Shatter] = shatter{}
	r.strategies[Shift] = shift{}
	r.strategies[Mask] = mask{}
	r.strategies[Glow] = glow{}
	r.strategies[Bounce] = bounce{}
	r.strategies[Fold] = fold{}
	r.strategies[Morph] = morph{}
	r.strategies[Sweep] = sweep{}
	r.strategies[Glitch] = glitch{}
	r.strategies[Scenario] = scenarioEffect{}
	return r
}

// Register adds s under k. Keys cannot be replaced.
func (r *Registry) Register(k Key, s Strategy) error {
	if k == "" || s == nil {
		return fault.Invalid("empty strategy registration")
	}
	if _, ok := r.strategies[k]; ok {
		return fault.Invalid("effect %q already registered", k)
	}
	r.strategies[k] = s
	return nil
}

// Lookup returns the strategy for k.
func (r *Registry) Lookup(k Key) (Strategy, error) {
	s, ok := r.strategies[k]
	if !ok {
		return nil, fault.Invalid("unknown effect %q", k)
	}
	return s, nil
}

// Keys lists the registered effects in name order.
func (r *Registry) Keys() []Key {
	out := make([]Key, 0, len(r.strategies))
	for k := range r.strategies {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// oneOf accepts "" (the default) or any of allowed.
func oneOf(field, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fault.Invalid("unknown %s %q (allowed: %v)", field, value, allowed)
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func checkPieces(n int) error {
	if n < 0 || n > MaxPieces {
		return fault.Invalid("piece count %d outside [0,%d]", n, MaxPieces)
	}
	return nil
}

// pieces resolves the fragment count: explicit option, then profile, then def.
func pieces(opts Options, p sampler.Profile, def int) int {
	switch {
	case opts.Pieces > 0:
		return opts.Pieces
	case p.PieceCount > 0:
		return p.PieceCount
	}
	return def
}

// baseProps gives a fragment the target's layout box and content.
func baseProps(t Target) scene.Properties {
	props := scene.Properties{
		scene.Left:   scene.Num(t.Bounds.X),
		scene.Top:    scene.Num(t.Bounds.Y),
		scene.Width:  scene.Num(t.Bounds.W),
		scene.Height: scene.Num(t.Bounds.H),
	}
	if t.Content != "" {
		props[scene.Content] = scene.Str(t.Content)
	}
	if t.Text != "" {
		props[scene.Text] = scene.Str(t.Text)
	}
	return props
}

// hide and reveal bracket a fragment effect: the target is replaced by its
// fragments for the duration of the run.
func hide(plan *timeline.Plan, node scene.NodeID) {
	plan.Tween(timeline.Step{
		Targets: timeline.Nodes(node),
		To:      timeline.Delta{scene.Opacity: timeline.Num(0)},
	})
}

func reveal(plan *timeline.Plan, node scene.NodeID) {
	plan.Tween(timeline.Step{
		Targets:  timeline.Nodes(node),
		To:       timeline.Delta{scene.Opacity: timeline.Num(1)},
		Position: timeline.After(0),
	})
}

// perIndex returns a generator reading a precomputed value per target.
func perIndex(values []float64) timeline.Value {
	return timeline.Gen(func(c timeline.Ctx) scene.Value {
		return scene.Num(values[c.Index%len(values)])
	})
}

// scaled continues the value a target has at step start by factor k.
func scaled(k float64) timeline.Value {
	return timeline.Gen(func(c timeline.Ctx) scene.Value {
		return scene.Num(c.Current.Float() * k)
	})
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// frame is one link of a keyframe chain.
type frame struct {
	share float64 // fraction of the chain duration
	to    timeline.Delta
	ease  string
}

// chain appends frames back to back on one node.
func chain(plan *timeline.Plan, node scene.NodeID, total float64, frames []frame) {
	sum := 0.0
	for _, f := range frames {
		sum += f.share
	}
	for i, f := range frames {
		pos := timeline.After(0)
		if i == 0 {
			pos = timeline.At(0)
		}
		plan.Tween(timeline.Step{
			Targets:  timeline.Nodes(node),
			To:       f.to,
			Duration: total * f.share / sum,
			Ease:     f.ease,
			Position: pos,
		})
	}
}
