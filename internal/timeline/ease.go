package timeline

import (
	"sort"

	"github.com/tanema/gween/ease"

	"github.com/ivlev/choreo/internal/fault"
)

// DefaultEase is used when a step names no easing.
const DefaultEase = "power1.out"

var easings = map[string]ease.TweenFunc{
	"linear": ease.Linear,
	"none":   ease.Linear,
}

func init() {
	families := []struct {
		names                 []string
		in, out, inOut, outIn ease.TweenFunc
	}{
		{[]string{"power1", "quad"}, ease.InQuad, ease.OutQuad, ease.InOutQuad, ease.OutInQuad},
		{[]string{"power2", "cubic"}, ease.InCubic, ease.OutCubic, ease.InOutCubic, ease.OutInCubic},
		{[]string{"power3", "quart"}, ease.InQuart, ease.OutQuart, ease.InOutQuart, ease.OutInQuart},
		{[]string{"power4", "quint"}, ease.InQuint, ease.OutQuint, ease.InOutQuint, ease.OutInQuint},
		{[]string{"sine"}, ease.InSine, ease.OutSine, ease.InOutSine, ease.OutInSine},
		{[]string{"expo"}, ease.InExpo, ease.OutExpo, ease.InOutExpo, ease.OutInExpo},
		{[]string{"circ"}, ease.InCirc, ease.OutCirc, ease.InOutCirc, ease.OutInCirc},
		{[]string{"back"}, ease.InBack, ease.OutBack, ease.InOutBack, ease.OutInBack},
		{[]string{"elastic"}, ease.InElastic, ease.OutElastic, ease.InOutElastic, ease.OutInElastic},
		{[]string{"bounce"}, ease.InBounce, ease.OutBounce, ease.InOutBounce, ease.OutInBounce},
	}
	for _, f := range families {
		for _, n := range f.names {
			easings[n+".in"] = f.in
			easings[n+".out"] = f.out
			easings[n] = f.out
			easings[n+".inOut"] = f.inOut
			easings[n+".outIn"] = f.outIn
		}
	}
}

// Ease returns the easing function registered under name. An empty name
// selects DefaultEase.
func Ease(name string) (ease.TweenFunc, error) {
	if name == "" {
		name = DefaultEase
	}
	fn, ok := easings[name]
	if !ok {
		return nil, fault.Invalid("unknown easing %q", name)
	}
	return fn, nil
}

// Easings lists every registered easing name.
func Easings() []string {
	out := make([]string, 0, len(easings))
	for n := range easings {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
