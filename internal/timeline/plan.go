// Package timeline composes property tweens, labels and callbacks into a plan
// and runs it on a frame clock as a single cancellable Handle.
//
// Plans are pure data plus generator closures; nothing touches the scene until
// Build. Everything a Handle does happens on the scheduler goroutine.
package timeline

import (
	"math"

	"github.com/ivlev/choreo/internal/fault"
	"github.com/ivlev/choreo/internal/scene"
)

type posKind int

const (
	posAt posKind = iota
	posAfter
	posWith
	posLabel
)

// Position resolves the start offset of a plan entry, in seconds.
type Position struct {
	kind  posKind
	value float64
	label string
}

// At is an absolute offset from the start of the run.
func At(sec float64) Position { return Position{kind: posAt, value: sec} }

// After starts gap seconds after the previous entry ends.
func After(gap float64) Position { return Position{kind: posAfter, value: gap} }

// With starts delta seconds after the previous entry starts.
func With(delta float64) Position { return Position{kind: posWith, value: delta} }

// AtLabel starts delta seconds after a label defined earlier in the plan.
func AtLabel(name string, delta float64) Position {
	return Position{kind: posLabel, value: delta, label: name}
}

func (p Position) resolve(prevStart, prevEnd float64, labels map[string]float64) (float64, error) {
	var t float64
	switch p.kind {
	case posAt:
		t = p.value
	case posAfter:
		t = prevEnd + p.value
	case posWith:
		t = prevStart + p.value
	case posLabel:
		at, ok := labels[p.label]
		if !ok {
			return 0, fault.Invalid("label %q referenced before it is defined", p.label)
		}
		t = at + p.value
	}
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, fault.Invalid("position resolves to %v", t)
	}
	return t, nil
}

// Selector picks the nodes a step animates.
type Selector struct {
	nodes     []scene.NodeID
	fragments []int
	all       bool
}

// Nodes selects host nodes by id.
func Nodes(ids ...scene.NodeID) Selector { return Selector{nodes: ids} }

// Fragments selects every fragment supplied to Build, in origin order.
func Fragments() Selector { return Selector{all: true} }

// Fragment selects fragments by origin index.
func Fragment(idx ...int) Selector { return Selector{fragments: idx} }

func (s Selector) count(fragments int) int {
	switch {
	case s.all:
		return fragments
	case len(s.fragments) > 0:
		return len(s.fragments)
	default:
		return len(s.nodes)
	}
}

func (s Selector) resolve(fragments []scene.NodeID) ([]scene.NodeID, error) {
	switch {
	case s.all:
		return append([]scene.NodeID(nil), fragments...), nil
	case len(s.fragments) > 0:
		out := make([]scene.NodeID, len(s.fragments))
		for i, idx := range s.fragments {
			if idx < 0 || idx >= len(fragments) {
				return nil, fault.Invalid("fragment index %d out of range [0,%d)", idx, len(fragments))
			}
			out[i] = fragments[idx]
		}
		return out, nil
	default:
		return append([]scene.NodeID(nil), s.nodes...), nil
	}
}

// Ctx is passed to a Generator when its step begins on one target.
type Ctx struct {
	Index   int
	Count   int
	Node    scene.NodeID
	Current scene.Value
}

// Generator computes a destination value for one target.
type Generator func(Ctx) scene.Value

// Value is a fixed or generated destination.
type Value struct {
	fixed scene.Value
	gen   Generator
}

// Num is a fixed numeric destination.
func Num(v float64) Value { return Value{fixed: scene.Num(v)} }

// Text is a fixed string destination, applied discretely.
func Text(s string) Value { return Value{fixed: scene.Str(s)} }

// Gen is a destination computed once per target when the step begins.
func Gen(fn Generator) Value { return Value{gen: fn} }

// Offset is a destination relative to the value at step start.
func Offset(delta float64) Value {
	return Gen(func(c Ctx) scene.Value { return scene.Num(c.Current.Float() + delta) })
}

func (v Value) eval(c Ctx) scene.Value {
	if v.gen != nil {
		return v.gen(c)
	}
	return v.fixed
}

// Delta maps property names to destinations.
type Delta map[string]Value

// Stagger distribution origins.
const (
	StaggerStart  = "start"
	StaggerEnd    = "end"
	StaggerCenter = "center"
	StaggerRandom = "random"
)

// Stagger spreads the start of a step across its targets.
type Stagger struct {
	Each float64
	From string
}

func (s Stagger) validate() error {
	if s.Each < 0 || math.IsNaN(s.Each) {
		return fault.Invalid("stagger %v is negative", s.Each)
	}
	switch s.From {
	case "", StaggerStart, StaggerEnd, StaggerCenter, StaggerRandom:
		return nil
	}
	return fault.Invalid("unknown stagger origin %q", s.From)
}

// offsets returns the start delay of each of n targets. perm is used for the
// random distribution.
func (s Stagger) offsets(n int, perm []int) []float64 {
	out := make([]float64, n)
	if s.Each == 0 {
		return out
	}
	mid := float64(n-1) / 2
	for i := range out {
		switch s.From {
		case StaggerEnd:
			out[i] = float64(n-1-i) * s.Each
		case StaggerCenter:
			out[i] = math.Abs(float64(i)-mid) * s.Each
		case StaggerRandom:
			out[i] = float64(perm[i]) * s.Each
		default:
			out[i] = float64(i) * s.Each
		}
	}
	return out
}

func (s Stagger) span(n int) float64 {
	if n <= 1 {
		return 0
	}
	if s.From == StaggerCenter {
		return float64(n-1) / 2 * s.Each
	}
	return float64(n-1) * s.Each
}

// Step is one tween over a set of targets.
type Step struct {
	Targets  Selector
	From     Delta
	To       Delta
	Duration float64
	Ease     string
	// Position defaults to At(0).
	Position Position
	// Repeat counts extra cycles; -1 repeats until cancelled.
	Repeat  int
	Yoyo    bool
	Stagger Stagger
}

func (s *Step) validate() error {
	if s.Duration < 0 || math.IsNaN(s.Duration) || math.IsInf(s.Duration, 0) {
		return fault.Invalid("duration %v is not a finite non-negative number", s.Duration)
	}
	if s.Repeat < -1 {
		return fault.Invalid("repeat %d below -1", s.Repeat)
	}
	if s.Repeat == -1 && s.Duration == 0 {
		return fault.Invalid("unbounded repeat needs a positive duration")
	}
	if len(s.To) == 0 && len(s.From) == 0 {
		return fault.Invalid("step animates no property")
	}
	if _, err := Ease(s.Ease); err != nil {
		return err
	}
	return s.Stagger.validate()
}

// cycles returns the number of played cycles, or -1 when unbounded.
func (s *Step) cycles() int {
	if s.Repeat < 0 {
		return -1
	}
	return s.Repeat + 1
}

// span is the finite length of the step over n targets. Unbounded steps
// contribute one cycle.
func (s *Step) span(n int) float64 {
	per := s.Duration
	if c := s.cycles(); c > 0 {
		per = s.Duration * float64(c)
	}
	return s.Stagger.span(n) + per
}

type entryKind int

const (
	tweenEntry entryKind = iota
	labelEntry
	callEntry
)

type entry struct {
	kind entryKind
	pos  Position
	step Step
	name string
	fn   func()
}

// Plan is an ordered list of tweens, labels and callbacks. Entries resolve
// their positions in insertion order, so a label must be added before any
// entry that refers to it.
type Plan struct {
	// Seed drives the random stagger distribution.
	Seed    int64
	entries []entry
}

// NewPlan returns an empty plan.
func NewPlan(seed int64) *Plan {
	return &Plan{Seed: seed}
}

// Tween appends s.
func (p *Plan) Tween(s Step) *Plan {
	p.entries = append(p.entries, entry{kind: tweenEntry, pos: s.Position, step: s})
	return p
}

// Label names a point in time.
func (p *Plan) Label(name string, pos Position) *Plan {
	p.entries = append(p.entries, entry{kind: labelEntry, pos: pos, name: name})
	return p
}

// Call schedules fn at pos. Calls fire during forward playback only.
func (p *Plan) Call(name string, pos Position, fn func()) *Plan {
	p.entries = append(p.entries, entry{kind: callEntry, pos: pos, name: name, fn: fn})
	return p
}

// HasLabel reports whether name is defined by the plan.
func (p *Plan) HasLabel(name string) bool {
	for _, e := range p.entries {
		if e.kind == labelEntry && e.name == name {
			return true
		}
	}
	return false
}

// Steps returns the number of tween entries.
func (p *Plan) Steps() int {
	n := 0
	for _, e := range p.entries {
		if e.kind == tweenEntry {
			n++
		}
	}
	return n
}

// Unbounded reports whether any step repeats forever.
func (p *Plan) Unbounded() bool {
	for _, e := range p.entries {
		if e.kind == tweenEntry && e.step.Repeat == -1 {
			return true
		}
	}
	return false
}

type layout struct {
	starts []float64
	ends   []float64
	labels map[string]float64
	total  float64
}

func (p *Plan) resolve(fragments int) (*layout, error) {
	l := &layout{
		starts: make([]float64, len(p.entries)),
		ends:   make([]float64, len(p.entries)),
		labels: make(map[string]float64),
	}
	var prevStart, prevEnd float64
	for i := range p.entries {
		e := &p.entries[i]
		start, err := e.pos.resolve(prevStart, prevEnd, l.labels)
		if err != nil {
			return nil, err
		}
		end := start
		switch e.kind {
		case tweenEntry:
			if err := e.step.validate(); err != nil {
				return nil, err
			}
			n := e.step.Targets.count(fragments)
			if n == 0 {
				return nil, fault.Invalid("step %d has no targets", i)
			}
			end = start + e.step.span(n)
		case labelEntry:
			if e.name == "" {
				return nil, fault.Invalid("label %d has no name", i)
			}
			l.labels[e.name] = start
		case callEntry:
			if e.fn == nil {
				return nil, fault.Invalid("call %q has no function", e.name)
			}
		}
		l.starts[i], l.ends[i] = start, end
		prevStart, prevEnd = start, end
		if end > l.total {
			l.total = end
		}
	}
	return l, nil
}

// Duration returns the finite length of the plan when run with the given
// number of fragments.
func (p *Plan) Duration(fragments int) (float64, error) {
	l, err := p.resolve(fragments)
	if err != nil {
		return 0, err
	}
	return l.total, nil
}

// LabelTime returns the resolved offset of a label.
func (p *Plan) LabelTime(name string, fragments int) (float64, error) {
	l, err := p.resolve(fragments)
	if err != nil {
		return 0, err
	}
	t, ok := l.labels[name]
	if !ok {
		return 0, fault.Invalid("label %q not defined", name)
	}
	return t, nil
}
