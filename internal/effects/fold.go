package effects

import (
	"github.com/ivlev/choreo/internal/pool"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Fold variants.
const (
	FoldVertical   = "vertical"
	FoldHorizontal = "horizontal"
)

// fold collapses the target into panels like origami: panels hinge on
// alternating edges, fold shut from the far end, and unfold again after the
// mid label.
type fold struct{}

func (fold) Validate(o Options) error {
	if err := oneOf("fold variant", o.Variant, FoldVertical, FoldHorizontal); err != nil {
		return err
	}
	return checkPieces(o.Pieces)
}

func (fold) Plan(t Target, p sampler.Profile, o Options, rng *sampler.Sampler) (*Output, error) {
	n := 4
	if o.Pieces > 0 {
		n = o.Pieces
	}
	vertical := orDefault(o.Variant, FoldVertical) == FoldVertical

	cells := stripCells(n, t.Bounds.W, t.Bounds.H, vertical)
	axis := scene.RotateY
	hinges := [2]string{"left", "right"}
	if vertical {
		axis = scene.RotateX
		hinges = [2]string{"top", "bottom"}
	}

	angle := make([]float64, n)
	specs := make([]pool.Spec, n)
	for i, c := range cells {
		props := baseProps(t)
		props.Merge(c.clip())
		specs[i] = pool.Spec{Props: props, TransformOrigin: hinges[i%2]}
		angle[i] = 90
		if i%2 == 1 {
			angle[i] = -90
		}
	}

	total := p.DurationSeconds
	half := total / 2
	each := half / float64(2*n)
	per := half - each*float64(n-1)

	plan := timeline.NewPlan(rng.Seed())
	hide(plan, t.Node)
	plan.Tween(timeline.Step{
		Targets:  timeline.Fragments(),
		To:       timeline.Delta{axis: perIndex(angle), scene.Brightness: timeline.Num(0.6)},
		Duration: per,
		Ease:     "power2.in",
		Stagger:  timeline.Stagger{Each: each, From: timeline.StaggerEnd},
	})
	plan.Label(MidLabel, timeline.After(0))
	plan.Tween(timeline.Step{
		Targets:  timeline.Fragments(),
		To:       timeline.Delta{axis: timeline.Num(0), scene.Brightness: timeline.Num(1)},
		Duration: per,
		Ease:     "power2.out",
		Position: timeline.AtLabel(MidLabel, 0),
		Stagger:  timeline.Stagger{Each: each, From: timeline.StaggerStart},
	})
	reveal(plan, t.Node)

	return &Output{Plan: plan, Fragments: n, Recipe: func(i, _ int) pool.Spec { return specs[i] }}, nil
}
