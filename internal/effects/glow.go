package effects

import (
	"math"

	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Glow variants.
const (
	GlowPulse   = "pulse"
	GlowFlicker = "flicker"
	GlowNeon    = "neon"
)

// glow drives the glow and brightness filters of the target. The pulse
// variant never ends on its own and has to be stopped by the caller.
type glow struct{}

func (glow) Validate(o Options) error {
	return oneOf("glow variant", o.Variant, GlowPulse, GlowFlicker, GlowNeon)
}

// glowLevel maps a profile to a glow strength in [0.3, 1].
func glowLevel(p sampler.Profile) float64 {
	return clamp(0.3+p.Distance/200, 0.3, 1)
}

func (glow) Plan(t Target, p sampler.Profile, o Options, rng *sampler.Sampler) (*Output, error) {
	level := glowLevel(p)
	total := p.DurationSeconds
	plan := timeline.NewPlan(rng.Seed())
	node := timeline.Nodes(t.Node)

	switch orDefault(o.Variant, GlowPulse) {
	case GlowPulse:
		pulse(plan, node, level, total, timeline.At(0))

	case GlowFlicker:
		// Each flick is a short step; dark ones are drawn with the profile
		// probability.
		flicks := 6 + rng.Intn(5)
		for i := 0; i < flicks; i++ {
			alpha := rng.Between(0.8, 1)
			if rng.Chance(p.Chance(0.3)) {
				alpha = rng.Between(0.1, 0.4)
			}
			pos := timeline.After(rng.Between(0.02, 0.08) * total)
			if i == 0 {
				pos = timeline.At(0)
			}
			plan.Tween(timeline.Step{
				Targets:  node,
				To:       timeline.Delta{scene.Opacity: timeline.Num(alpha), scene.Glow: timeline.Num(level * alpha)},
				Duration: 0.03 * total,
				Ease:     "none",
				Position: pos,
			})
		}
		plan.Tween(timeline.Step{
			Targets:  node,
			To:       timeline.Delta{scene.Opacity: timeline.Num(1), scene.Glow: timeline.Num(level)},
			Duration: 0.1 * total,
			Position: timeline.After(0),
		})
		if o.Loop {
			pulse(plan, node, level, total, timeline.After(0))
		}

	case GlowNeon:
		plan.Tween(timeline.Step{
			Targets:  node,
			From:     timeline.Delta{scene.Glow: timeline.Num(0)},
			To:       timeline.Delta{scene.Glow: timeline.Num(level), scene.Hue: timeline.Num(math.Min(60, p.RotationDeg))},
			Duration: 0.3 * total,
			Ease:     "expo.out",
		})
		for _, at := range []float64{0.4, 0.55} {
			plan.Tween(timeline.Step{
				Targets:  node,
				To:       timeline.Delta{scene.Opacity: timeline.Num(0.6)},
				Duration: 0.05 * total,
				Ease:     "none",
				Position: timeline.At(at * total),
				Repeat:   1,
				Yoyo:     true,
			})
		}
		plan.Tween(timeline.Step{
			Targets:  node,
			To:       timeline.Delta{scene.Glow: timeline.Num(0.8 * level), scene.Brightness: timeline.Num(1.1)},
			Duration: 0.3 * total,
			Ease:     "sine.out",
			Position: timeline.At(0.7 * total),
		})
		if o.Loop {
			pulse(plan, node, 0.8*level, total, timeline.After(0))
		}
	}
	return &Output{Plan: plan}, nil
}

// pulse breathes glow and brightness until cancelled.
func pulse(plan *timeline.Plan, node timeline.Selector, level, total float64, pos timeline.Position) {
	plan.Tween(timeline.Step{
		Targets:  node,
		From:     timeline.Delta{scene.Glow: timeline.Num(level * 0.2)},
		To:       timeline.Delta{scene.Glow: timeline.Num(level), scene.Brightness: timeline.Num(1 + level*0.2)},
		Duration: total / 2,
		Ease:     "sine.inOut",
		Position: pos,
		Repeat:   -1,
		Yoyo:     true,
	})
}
