package effects

import (
	"github.com/ivlev/choreo/internal/fault"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Glitch variants.
const (
	GlitchGlitch     = "glitch"
	GlitchTypewriter = "typewriter"
)

const glitchGlyphs = "!<>-_\\/[]{}=+*^?#"

// glitch jolts the target with discrete offset, skew and hue jumps and
// scrambles its text; typewriter types the text out one rune at a time.
type glitch struct{}

func (glitch) Validate(o Options) error {
	return oneOf("glitch variant", o.Variant, GlitchGlitch, GlitchTypewriter)
}

func (glitch) Plan(t Target, p sampler.Profile, o Options, rng *sampler.Sampler) (*Output, error) {
	text := o.Text
	if text == "" {
		text = t.Text
	}
	total := p.DurationSeconds
	plan := timeline.NewPlan(rng.Seed())
	node := timeline.Nodes(t.Node)

	if orDefault(o.Variant, GlitchGlitch) == GlitchTypewriter {
		runes := []rune(text)
		if len(runes) == 0 {
			return nil, fault.Invalid("typewriter needs text")
		}
		per := total / float64(len(runes))
		plan.Tween(timeline.Step{Targets: node, To: timeline.Delta{scene.Text: timeline.Text("")}})
		for i := range runes {
			typed := string(runes[:i+1])
			if i < len(runes)-1 {
				typed += "_"
			}
			plan.Tween(timeline.Step{
				Targets:  node,
				To:       timeline.Delta{scene.Text: timeline.Text(typed)},
				Position: timeline.At(float64(i+1) * per),
			})
		}
		return &Output{Plan: plan}, nil
	}

	jolts := 8 + rng.Intn(4)
	per := total / float64(jolts+1)
	for i := 0; i < jolts; i++ {
		d := timeline.Delta{
			scene.X:     num(rng.Jitter(p.Distance / 8)),
			scene.SkewX: num(rng.Jitter(p.RotationDeg / 3)),
			scene.Hue:   num(rng.Jitter(90)),
		}
		if rng.Chance(p.Chance(0.3)) {
			d[scene.Opacity] = num(rng.Between(0.3, 0.8))
		} else {
			d[scene.Opacity] = num(1)
		}
		if text != "" {
			d[scene.Text] = timeline.Text(scramble(text, p.Chance(0.3), rng))
		}
		plan.Tween(timeline.Step{
			Targets:  node,
			To:       d,
			Duration: per * 0.3,
			Ease:     "none",
			Position: timeline.At(float64(i) * per),
		})
	}

	rest := timeline.Delta{
		scene.X:       num(0),
		scene.SkewX:   num(0),
		scene.Hue:     num(0),
		scene.Opacity: num(1),
	}
	if text != "" {
		rest[scene.Text] = timeline.Text(text)
	}
	plan.Tween(timeline.Step{
		Targets:  node,
		To:       rest,
		Duration: per,
		Ease:     "power2.out",
		Position: timeline.At(float64(jolts) * per),
	})
	return &Output{Plan: plan}, nil
}

// scramble replaces each non-space rune with a glyph with probability p.
func scramble(text string, p float64, rng *sampler.Sampler) string {
	glyphs := []rune(glitchGlyphs)
	out := []rune(text)
	for i, r := range out {
		if r != ' ' && rng.Chance(p) {
			out[i] = sampler.Pick(rng, glyphs)
		}
	}
	return string(out)
}
