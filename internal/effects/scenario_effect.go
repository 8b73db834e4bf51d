package effects

import (
	"github.com/ivlev/choreo/internal/director"
	"github.com/ivlev/choreo/internal/fault"
	"github.com/ivlev/choreo/internal/pool"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/timeline"
)

// Scenario playback variants.
const (
	ScenarioRecorded = "recorded"
	ScenarioFit      = "fit"
)

// scenarioEffect plays a recorded director scenario back. Keyframes are
// joined by linear steps; the fit variant rescales them to the profile
// duration.
type scenarioEffect struct{}

func (scenarioEffect) Validate(o Options) error {
	if err := oneOf("scenario variant", o.Variant, ScenarioRecorded, ScenarioFit); err != nil {
		return err
	}
	if o.Scenario == nil {
		return fault.Invalid("scenario effect needs a scenario")
	}
	return o.Scenario.Validate()
}

func (scenarioEffect) Plan(t Target, p sampler.Profile, o Options, rng *sampler.Sampler) (*Output, error) {
	s := o.Scenario

	// Scale keyframes to the requested duration
	timeScale := 1.0
	if o.Variant == ScenarioFit && s.Duration > 0 {
		timeScale = p.DurationSeconds / s.Duration
	}

	plan := timeline.NewPlan(rng.Seed())
	if s.Mid != nil {
		plan.Label(MidLabel, timeline.At(*s.Mid*timeScale))
	}

	frags := s.Fragments()
	for _, tr := range s.Tracks {
		sel := timeline.Nodes(t.Node)
		if tr.Role == director.RoleFragment {
			sel = timeline.Fragment(tr.Index)
		}
		playTrack(plan, sel, tr.Keyframes, timeScale)
	}

	specs := make([]pool.Spec, len(frags))
	for i, tr := range frags {
		specs[i] = pool.Spec{Props: tr.Init.Props(), TransformOrigin: tr.Origin}
	}
	out := &Output{Plan: plan, Fragments: len(frags)}
	if len(frags) > 0 {
		out.Recipe = func(i, _ int) pool.Spec { return specs[i] }
	}

	// A scenario without keyframes still needs one step to complete on.
	if plan.Steps() == 0 {
		plan.Tween(timeline.Step{
			Targets:  timeline.Nodes(t.Node),
			To:       timeline.Delta{scene.Opacity: timeline.Offset(0)},
			Duration: s.Duration * timeScale,
			Ease:     "none",
		})
	}
	return out, nil
}

func playTrack(plan *timeline.Plan, sel timeline.Selector, kfs []director.Keyframe, timeScale float64) {
	prev := 0.0
	for _, kf := range kfs {
		at := kf.Time * timeScale
		if len(kf.Values) > 0 {
			to := make(timeline.Delta, len(kf.Values))
			for name, v := range kf.Values {
				to[name] = timeline.Num(v)
			}
			plan.Tween(timeline.Step{
				Targets:  sel,
				To:       to,
				Duration: at - prev,
				Ease:     "linear",
				Position: timeline.At(prev),
			})
		}
		if len(kf.Text) > 0 {
			to := make(timeline.Delta, len(kf.Text))
			for name, v := range kf.Text {
				to[name] = timeline.Text(v)
			}
			plan.Tween(timeline.Step{Targets: sel, To: to, Position: timeline.At(at)})
		}
		prev = at
	}
}
