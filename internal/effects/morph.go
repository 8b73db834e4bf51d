package effects

import (
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Morph variants.
const (
	MorphBlob    = "blob"
	MorphWave    = "wave"
	MorphElastic = "elastic"
	MorphLiquid  = "liquid"
)

// morph deforms the target's outline through corner radii, skew and blur,
// then returns it to its rest shape.
type morph struct{}

func (morph) Validate(o Options) error {
	return oneOf("morph variant", o.Variant, MorphBlob, MorphWave, MorphElastic, MorphLiquid)
}

func corners(tl, tr, br, bl float64) timeline.Delta {
	return timeline.Delta{
		scene.RadiusTL: num(tl),
		scene.RadiusTR: num(tr),
		scene.RadiusBR: num(br),
		scene.RadiusBL: num(bl),
	}
}

func (morph) Plan(t Target, p sampler.Profile, o Options, rng *sampler.Sampler) (*Output, error) {
	plan := timeline.NewPlan(rng.Seed())
	s := p.ScaleFactor - 1
	var frames []frame

	switch orDefault(o.Variant, MorphBlob) {
	case MorphBlob:
		// Corner radii in percent of the shorter side.
		for i := 0; i < 4; i++ {
			d := corners(rng.Between(20, 60), rng.Between(20, 60), rng.Between(20, 60), rng.Between(20, 60))
			d[scene.Scale] = num(1 + rng.Jitter(s))
			d[scene.Rotation] = num(rng.Jitter(p.RotationDeg / 4))
			frames = append(frames, frame{1, d, "sine.inOut"})
		}
		rest := corners(0, 0, 0, 0)
		rest[scene.Scale] = num(1)
		rest[scene.Rotation] = num(0)
		frames = append(frames, frame{1, rest, "power2.out"})

	case MorphWave:
		amp := p.RotationDeg / 3
		for i, k := range []float64{1, -1, 0.6, -0.6, 0.25, 0} {
			frames = append(frames, frame{1, timeline.Delta{
				scene.SkewX: num(amp * k),
				scene.Y:     num(p.Distance * 0.1 * k),
			}, waveEase(i)})
		}

	case MorphElastic:
		frames = []frame{
			{0.25, timeline.Delta{scene.ScaleX: num(1 + s*2), scene.ScaleY: num(1 - s)}, "power2.out"},
			{0.75, timeline.Delta{scene.ScaleX: num(1), scene.ScaleY: num(1)}, "elastic.out"},
		}

	case MorphLiquid:
		in := corners(50, 50, 50, 50)
		in[scene.Blur] = num(p.Distance / 20)
		in[scene.Scale] = num(1 - s/2)
		out := corners(0, 0, 0, 0)
		out[scene.Blur] = num(0)
		out[scene.Scale] = num(1)
		frames = []frame{{0.45, in, "power2.inOut"}, {0.55, out, "power2.out"}}
	}

	chain(plan, t.Node, p.DurationSeconds, frames)
	return &Output{Plan: plan}, nil
}

func waveEase(i int) string {
	if i == 5 {
		return "power2.out"
	}
	return "sine.inOut"
}
