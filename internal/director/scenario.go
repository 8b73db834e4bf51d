package director

import (
	"math"
	"sort"

	"github.com/ivlev/choreo/internal/fault"
)

// Version is written into every scenario file.
const Version = "2.0"

// Track roles.
const (
	RoleTarget   = "target"
	RoleFragment = "fragment"
)

// Scenario is a recorded choreography run that can be played back without the
// strategy that produced it.
type Scenario struct {
	Version  string   `yaml:"version"`
	Effect   string   `yaml:"effect"`
	Profile  string   `yaml:"profile"`
	Seed     int64    `yaml:"seed"`
	Duration float64  `yaml:"duration"`      // Total duration in seconds
	Mid      *float64 `yaml:"mid,omitempty"` // Offset of the mid callback, if any
	Tracks   []Track  `yaml:"tracks"`
}

// Track holds the keyframes of one node.
type Track struct {
	Role      string     `yaml:"role"`
	Index     int        `yaml:"index"`
	Origin    string     `yaml:"origin,omitempty"`
	Init      Keyframe   `yaml:"init,omitempty"` // Fragment state at creation
	Keyframes []Keyframe `yaml:"keyframes"`
}

// Keyframe is the state of a node at a time offset.
type Keyframe struct {
	Time   float64            `yaml:"time"`
	Values map[string]float64 `yaml:"values,omitempty"`
	Text   map[string]string  `yaml:"text,omitempty"`
}

// Fragments returns the fragment tracks ordered by index.
func (s *Scenario) Fragments() []Track {
	var out []Track
	for _, t := range s.Tracks {
		if t.Role == RoleFragment {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Validate checks roles, fragment indexes and keyframe ordering.
func (s *Scenario) Validate() error {
	if !finite(s.Duration) || s.Duration < 0 {
		return fault.Invalid("scenario duration %v is not a finite non-negative number", s.Duration)
	}
	if s.Mid != nil && (!finite(*s.Mid) || *s.Mid < 0 || *s.Mid > s.Duration) {
		return fault.Invalid("mid %v outside [0,%v]", *s.Mid, s.Duration)
	}

	targets := 0
	seen := make(map[int]bool)
	for i, t := range s.Tracks {
		switch t.Role {
		case RoleTarget:
			targets++
		case RoleFragment:
			if t.Index < 0 || seen[t.Index] {
				return fault.Invalid("track %d: fragment index %d duplicated or negative", i, t.Index)
			}
			seen[t.Index] = true
		default:
			return fault.Invalid("track %d: unknown role %q", i, t.Role)
		}

		for name, v := range t.Init.Values {
			if !finite(v) {
				return fault.Invalid("track %d init: %s %v is not finite", i, name, v)
			}
		}
		last := 0.0
		for j, kf := range t.Keyframes {
			if !finite(kf.Time) {
				return fault.Invalid("track %d keyframe %d: time %v is not finite", i, j, kf.Time)
			}
			for name, v := range kf.Values {
				if !finite(v) {
					return fault.Invalid("track %d keyframe %d: %s %v is not finite", i, j, name, v)
				}
			}
			if kf.Time < last {
				return fault.Invalid("track %d keyframe %d: time %v goes backwards", i, j, kf.Time)
			}
			last = kf.Time
		}
		if last > s.Duration {
			return fault.Invalid("track %d ends at %v after duration %v", i, last, s.Duration)
		}
	}
	if targets > 1 {
		return fault.Invalid("scenario has %d target tracks", targets)
	}
	for i := 0; i < len(seen); i++ {
		if !seen[i] {
			return fault.Invalid("fragment index %d missing", i)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
