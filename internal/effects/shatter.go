package effects

import (
	"math"

	"github.com/ivlev/choreo/internal/pool"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Shatter variants.
const (
	ShatterGrid   = "grid"
	ShatterRadial = "radial"
	ShatterSlice  = "slice"
)

// shatter breaks the target into pieces that fly outward in two phases. The
// first phase takes a third of the run and ends at the mid label; the second
// doubles every displacement while the pieces shrink and fade out.
type shatter struct{}

func (shatter) Validate(o Options) error {
	if err := oneOf("shatter variant", o.Variant, ShatterGrid, ShatterRadial, ShatterSlice); err != nil {
		return err
	}
	return checkPieces(o.Pieces)
}

func (shatter) Plan(t Target, p sampler.Profile, o Options, rng *sampler.Sampler) (*Output, error) {
	n := pieces(o, p, 9)
	variant := orDefault(o.Variant, ShatterGrid)
	w, h := t.Bounds.W, t.Bounds.H
	cx, cy := w/2, h/2

	var cells []cell
	switch variant {
	case ShatterSlice:
		cells = stripCells(n, w, h, true)
	case ShatterGrid:
		cells = gridCells(n, w, h)
	}

	dx := make([]float64, n)
	dy := make([]float64, n)
	rot := make([]float64, n)
	for i := 0; i < n; i++ {
		var ux, uy float64
		if variant == ShatterRadial {
			ux, uy = wedgeDirection(i, n)
		} else {
			x, y := cells[i].center()
			ux, uy = outward(cx, cy, x, y, rng.Between(0, 2*math.Pi))
		}
		dist := p.Distance * rng.Between(0.75, 1.25)
		dx[i], dy[i] = ux*dist, uy*dist
		rot[i] = rng.Jitter(p.RotationDeg)
	}

	recipe := func(i, count int) pool.Spec {
		props := baseProps(t)
		if variant == ShatterRadial {
			props.Merge(wedgeClip(i, count))
			return pool.Spec{Props: props, TransformOrigin: "center"}
		}
		props.Merge(cells[i].clip())
		return pool.Spec{Props: props, TransformOrigin: origin(cells[i])}
	}

	total := p.DurationSeconds
	phase1 := total / 3
	phase2 := total - phase1

	plan := timeline.NewPlan(rng.Fork().Seed())
	hide(plan, t.Node)
	plan.Tween(timeline.Step{
		Targets: timeline.Fragments(),
		To: timeline.Delta{
			scene.X:        perIndex(dx),
			scene.Y:        perIndex(dy),
			scene.Rotation: perIndex(rot),
		},
		Duration: phase1,
		Ease:     "power2.out",
	})
	plan.Label(MidLabel, timeline.After(0))
	plan.Tween(timeline.Step{
		Targets: timeline.Fragments(),
		To: timeline.Delta{
			scene.X:        scaled(2),
			scene.Y:        scaled(2),
			scene.Rotation: scaled(2),
			scene.Scale:    timeline.Num(0),
			scene.Opacity:  timeline.Num(0),
		},
		Duration: phase2,
		Ease:     "power2.in",
		Position: timeline.AtLabel(MidLabel, 0),
	})
	reveal(plan, t.Node)

	return &Output{Plan: plan, Fragments: n, Recipe: recipe}, nil
}
