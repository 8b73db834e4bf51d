package effects

import (
	"math"

	"github.com/ivlev/choreo/internal/pool"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Shift variants and directions.
const (
	ShiftSplit       = "split"
	ShiftSlice       = "slice"
	ShiftFragment    = "fragment"
	ShiftDimensional = "dimensional"

	Horizontal = "horizontal"
	Vertical   = "vertical"
	Radial     = "radial"
)

// shiftMid is the share of the run spent moving out before the mid label.
const shiftMid = 0.45

// shift is the "parallel world" family: pieces of the target drift apart,
// the content is swapped at the mid label, and the pieces settle back.
type shift struct{}

func (shift) Validate(o Options) error {
	if err := oneOf("shift type", o.Variant, ShiftSplit, ShiftSlice, ShiftFragment, ShiftDimensional); err != nil {
		return err
	}
	if err := oneOf("direction", o.Direction, Horizontal, Vertical, Radial); err != nil {
		return err
	}
	return checkPieces(o.Pieces)
}

type shiftLayout struct {
	specs []pool.Spec
	out   timeline.Delta // phase 1 destinations
	back  timeline.Delta // phase 2 destinations
	each  float64        // stagger between pieces
	from  string
}

func (shift) Plan(t Target, p sampler.Profile, o Options, rng *sampler.Sampler) (*Output, error) {
	dir := orDefault(o.Direction, Horizontal)
	var l shiftLayout
	switch orDefault(o.Variant, ShiftSplit) {
	case ShiftSplit:
		l = shiftSplit(t, p, dir)
	case ShiftSlice:
		l = shiftSlice(t, p, dir, pieces(o, p, 6))
	case ShiftFragment:
		l = shiftFragments(t, p, dir, pieces(o, p, 9), rng)
	case ShiftDimensional:
		l = shiftDimensional(t, p, dir)
	}

	n := len(l.specs)
	total := p.DurationSeconds
	phase1 := total * shiftMid
	phase2 := total - phase1
	stagger := math.Min(l.each, phase1/float64(4*n))
	span := stagger * float64(n-1)

	plan := timeline.NewPlan(rng.Fork().Seed())
	hide(plan, t.Node)
	plan.Tween(timeline.Step{
		Targets:  timeline.Fragments(),
		To:       l.out,
		Duration: phase1 - span,
		Ease:     "power3.out",
		Stagger:  timeline.Stagger{Each: stagger, From: l.from},
	})
	plan.Label(MidLabel, timeline.After(0))
	plan.Tween(timeline.Step{
		Targets:  timeline.Fragments(),
		To:       l.back,
		Duration: phase2 - span,
		Ease:     "power3.inOut",
		Position: timeline.AtLabel(MidLabel, 0),
		Stagger:  timeline.Stagger{Each: stagger, From: l.from},
	})
	reveal(plan, t.Node)

	recipe := func(i, _ int) pool.Spec { return l.specs[i] }
	return &Output{Plan: plan, Fragments: n, Recipe: recipe}, nil
}

func settle() timeline.Delta {
	return timeline.Delta{
		scene.X:        timeline.Num(0),
		scene.Y:        timeline.Num(0),
		scene.Rotation: timeline.Num(0),
		scene.RotateX:  timeline.Num(0),
		scene.RotateY:  timeline.Num(0),
		scene.Scale:    timeline.Num(1),
		scene.Opacity:  timeline.Num(1),
	}
}

func cellSpecs(t Target, cells []cell) []pool.Spec {
	specs := make([]pool.Spec, len(cells))
	for i, c := range cells {
		props := baseProps(t)
		props.Merge(c.clip())
		specs[i] = pool.Spec{Props: props, TransformOrigin: origin(c)}
	}
	return specs
}

// shiftSplit opens the target like a door: two halves, or four quadrants
// for the radial direction.
func shiftSplit(t Target, p sampler.Profile, dir string) shiftLayout {
	w, h := t.Bounds.W, t.Bounds.H
	var cells []cell
	switch dir {
	case Vertical:
		cells = stripCells(2, w, h, true)
	case Radial:
		cells = gridCells(4, w, h)
	default:
		cells = stripCells(2, w, h, false)
	}

	dx := make([]float64, len(cells))
	dy := make([]float64, len(cells))
	for i, c := range cells {
		x, y := c.center()
		ux, uy := outward(w/2, h/2, x, y, 0)
		dx[i], dy[i] = ux*p.Distance, uy*p.Distance
	}
	return shiftLayout{
		specs: cellSpecs(t, cells),
		out: timeline.Delta{
			scene.X:       perIndex(dx),
			scene.Y:       perIndex(dy),
			scene.Opacity: timeline.Num(0.85),
		},
		back: settle(),
	}
}

// shiftSlice slides strips in alternating directions. Even strips move
// forward, odd strips backward.
func shiftSlice(t Target, p sampler.Profile, dir string, n int) shiftLayout {
	w, h := t.Bounds.W, t.Bounds.H
	out := make([]float64, n)
	for i := range out {
		sign := 1.0
		if i%2 == 1 {
			sign = -1
		}
		out[i] = sign * p.Distance
	}

	l := shiftLayout{each: 0.04, back: settle()}
	switch dir {
	case Vertical:
		l.specs = cellSpecs(t, stripCells(n, w, h, false))
		l.out = timeline.Delta{scene.Y: perIndex(out)}
	case Radial:
		l.specs = make([]pool.Spec, n)
		for i := range l.specs {
			props := baseProps(t)
			props.Merge(wedgeClip(i, n))
			l.specs[i] = pool.Spec{Props: props, TransformOrigin: "center"}
		}
		rot := make([]float64, n)
		for i := range rot {
			rot[i] = math.Copysign(p.RotationDeg, out[i])
		}
		l.out = timeline.Delta{scene.Rotation: perIndex(rot)}
		l.from = centerOrStart(n)
	default:
		l.specs = cellSpecs(t, stripCells(n, w, h, true))
		l.out = timeline.Delta{scene.X: perIndex(out)}
	}
	return l
}

// centerOrStart staggers from the middle piece when there is one.
func centerOrStart(n int) string {
	if n%2 == 1 {
		return timeline.StaggerCenter
	}
	return timeline.StaggerStart
}

// shiftFragments scatters grid pieces along the direction axis.
func shiftFragments(t Target, p sampler.Profile, dir string, n int, rng *sampler.Sampler) shiftLayout {
	w, h := t.Bounds.W, t.Bounds.H
	cells := gridCells(n, w, h)
	dx := make([]float64, n)
	dy := make([]float64, n)
	rot := make([]float64, n)
	scale := make([]float64, n)
	for i, c := range cells {
		switch dir {
		case Vertical:
			dx[i], dy[i] = rng.Jitter(p.Distance*0.2), rng.Jitter(p.Distance)
		case Radial:
			x, y := c.center()
			ux, uy := outward(w/2, h/2, x, y, rng.Between(0, 2*math.Pi))
			d := p.Distance * rng.Between(0.5, 1)
			dx[i], dy[i] = ux*d, uy*d
		default:
			dx[i], dy[i] = rng.Jitter(p.Distance), rng.Jitter(p.Distance*0.2)
		}
		rot[i] = rng.Jitter(p.RotationDeg)
		scale[i] = 1 + rng.Jitter(math.Abs(p.ScaleFactor-1))
	}
	return shiftLayout{
		specs: cellSpecs(t, cells),
		out: timeline.Delta{
			scene.X:        perIndex(dx),
			scene.Y:        perIndex(dy),
			scene.Rotation: perIndex(rot),
			scene.Scale:    perIndex(scale),
		},
		back: settle(),
		each: 0.03,
		from: timeline.StaggerRandom,
	}
}

// shiftDimensional fans three full copies of the target out in depth.
func shiftDimensional(t Target, p sampler.Profile, dir string) shiftLayout {
	const layers = 3
	specs := make([]pool.Spec, layers)
	offset := make([]float64, layers)
	turn := make([]float64, layers)
	scale := make([]float64, layers)
	alpha := make([]float64, layers)
	for i := range specs {
		specs[i] = pool.Spec{Props: baseProps(t), TransformOrigin: "center"}
		depth := float64(i - 1)
		offset[i] = depth * p.Distance * 0.5
		turn[i] = depth * p.RotationDeg * 0.5
		scale[i] = 1 + depth*(p.ScaleFactor-1)
		alpha[i] = 1 - math.Abs(depth)*0.4
	}

	out := timeline.Delta{scene.Opacity: perIndex(alpha)}
	switch dir {
	case Vertical:
		out[scene.Y] = perIndex(offset)
		out[scene.RotateX] = perIndex(turn)
	case Radial:
		out[scene.Scale] = perIndex(scale)
		out[scene.Rotation] = perIndex(turn)
	default:
		out[scene.X] = perIndex(offset)
		out[scene.RotateY] = perIndex(turn)
	}
	return shiftLayout{specs: specs, out: out, back: settle()}
}
