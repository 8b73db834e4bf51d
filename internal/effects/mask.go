package effects

import (
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Mask shapes and directions.
const (
	MaskCircle  = "circle"
	MaskInset   = "inset"
	MaskDiamond = "diamond"
	MaskWipe    = "wipe"

	In  = "in"
	Out = "out"
)

// mask reveals (in) or hides (out) the target behind a growing clip shape.
// It animates the target itself and creates no fragments.
type mask struct{}

func (mask) Validate(o Options) error {
	if err := oneOf("mask type", o.Variant, MaskCircle, MaskInset, MaskDiamond, MaskWipe); err != nil {
		return err
	}
	return oneOf("mask direction", o.Direction, In, Out)
}

func (mask) Plan(t Target, p sampler.Profile, o Options, rng *sampler.Sampler) (*Output, error) {
	var shape, prop string
	var closed, open float64
	from := timeline.Delta{}

	switch orDefault(o.Variant, MaskCircle) {
	case MaskCircle:
		shape, prop, closed, open = scene.ShapeCircle, scene.ClipRadius, 0, 100
	case MaskDiamond:
		shape, prop, closed, open = scene.ShapeDiamond, scene.ClipRadius, 0, 100
	case MaskInset:
		shape, prop, closed, open = scene.ShapeInset, scene.ClipInset, 50, 0
	case MaskWipe:
		shape, prop, closed, open = scene.ShapeRect, scene.ClipW, 0, t.Bounds.W
		from[scene.ClipX] = timeline.Num(0)
		from[scene.ClipY] = timeline.Num(0)
		from[scene.ClipH] = timeline.Num(t.Bounds.H)
	}

	start, end := closed, open
	if orDefault(o.Direction, In) == Out {
		start, end = open, closed
	}
	from[scene.ClipShape] = timeline.Text(shape)
	from[prop] = timeline.Num(start)

	plan := timeline.NewPlan(rng.Seed())
	plan.Tween(timeline.Step{
		Targets:  timeline.Nodes(t.Node),
		From:     from,
		To:       timeline.Delta{prop: timeline.Num(end)},
		Duration: p.DurationSeconds,
		Ease:     "power2.inOut",
	})
	return &Output{Plan: plan}, nil
}
