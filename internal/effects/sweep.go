package effects

import (
	"github.com/ivlev/choreo/internal/pool"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// SweepRadar is the only sweep variant.
const SweepRadar = "radar"

// sweep turns a glowing wedge beam once around the target's center. With
// Loop set the beam keeps turning until the run is stopped.
type sweep struct{}

func (sweep) Validate(o Options) error {
	return oneOf("sweep variant", o.Variant, SweepRadar)
}

func (sweep) Plan(t Target, p sampler.Profile, o Options, rng *sampler.Sampler) (*Output, error) {
	width := clamp(p.RotationDeg, 10, 90)
	beam := baseProps(t)
	delete(beam, scene.Content)
	delete(beam, scene.Text)
	beam.Merge(scene.Properties{
		scene.ClipShape:  scene.Str(scene.ShapeWedge),
		scene.ClipFrom:   scene.Num(0),
		scene.ClipTo:     scene.Num(width),
		scene.ClipRadius: scene.Num(100),
		scene.Glow:       scene.Num(glowLevel(p)),
		scene.Opacity:    scene.Num(0),
	})
	recipe := func(int, int) pool.Spec {
		return pool.Spec{Props: beam, TransformOrigin: "center"}
	}

	total := p.DurationSeconds
	plan := timeline.NewPlan(rng.Seed())
	plan.Tween(timeline.Step{
		Targets:  timeline.Fragments(),
		To:       timeline.Delta{scene.Opacity: num(0.6)},
		Duration: 0.1 * total,
	})
	turn := timeline.Step{
		Targets:  timeline.Fragments(),
		From:     timeline.Delta{scene.Rotation: num(0)},
		To:       timeline.Delta{scene.Rotation: num(360)},
		Duration: total,
		Ease:     "linear",
	}
	if o.Loop {
		turn.Repeat = -1
		plan.Tween(turn)
		return &Output{Plan: plan, Fragments: 1, Recipe: recipe}, nil
	}
	plan.Tween(turn)
	plan.Tween(timeline.Step{
		Targets:  timeline.Fragments(),
		To:       timeline.Delta{scene.Opacity: num(0)},
		Duration: 0.15 * total,
		Position: timeline.At(0.85 * total),
	})
	return &Output{Plan: plan, Fragments: 1, Recipe: recipe}, nil
}
