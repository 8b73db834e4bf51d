package effects

import (
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Bounce variants.
const (
	BounceBounce     = "bounce"
	BounceJello      = "jello"
	BounceWobble     = "wobble"
	BounceRubberband = "rubberband"
)

// bounce plays heuristic keyframe chains. None of them simulate physics;
// each chain decays toward the rest state and ends exactly on it.
type bounce struct{}

func (bounce) Validate(o Options) error {
	return oneOf("bounce variant", o.Variant, BounceBounce, BounceJello, BounceWobble, BounceRubberband)
}

func num(v float64) timeline.Value { return timeline.Num(v) }

func (bounce) Plan(t Target, p sampler.Profile, o Options, rng *sampler.Sampler) (*Output, error) {
	plan := timeline.NewPlan(rng.Seed())
	d := p.Distance
	s := p.ScaleFactor - 1
	var frames []frame

	switch orDefault(o.Variant, BounceBounce) {
	case BounceBounce:
		frames = []frame{
			{0.1, timeline.Delta{scene.ScaleY: num(1 - s/2), scene.ScaleX: num(1 + s/2)}, "power1.out"},
			{0.3, timeline.Delta{scene.Y: num(-d), scene.ScaleY: num(1 + s/2), scene.ScaleX: num(1 - s/4)}, "power2.out"},
			{0.45, timeline.Delta{scene.Y: num(0), scene.ScaleY: num(1), scene.ScaleX: num(1)}, "bounce.out"},
			{0.15, timeline.Delta{scene.Y: num(0)}, "none"},
		}
	case BounceJello:
		skew := p.RotationDeg / 3
		for i, k := range []float64{1, -0.5, 0.25, -0.125, 0.0625, 0} {
			frames = append(frames, frame{1, timeline.Delta{scene.SkewX: num(skew * k), scene.SkewY: num(skew * k)}, jelloEase(i)})
		}
	case BounceWobble:
		for _, k := range []float64{-0.25, 0.2, -0.15, 0.1, -0.05, 0} {
			frames = append(frames, frame{1, timeline.Delta{
				scene.X:        num(d * k),
				scene.Rotation: num(p.RotationDeg * k / 5),
			}, "sine.inOut"})
		}
	case BounceRubberband:
		for _, k := range [][2]float64{{1.25, 0.75}, {0.75, 1.25}, {1.15, 0.85}, {0.95, 1.05}, {1.05, 0.95}, {1, 1}} {
			frames = append(frames, frame{1, timeline.Delta{
				scene.ScaleX: num(1 + (k[0]-1)*s*4),
				scene.ScaleY: num(1 + (k[1]-1)*s*4),
			}, "power1.inOut"})
		}
	}

	chain(plan, t.Node, p.DurationSeconds, frames)
	return &Output{Plan: plan}, nil
}

func jelloEase(i int) string {
	if i == 0 {
		return "power2.out"
	}
	return "sine.inOut"
}
