// Package director turns recorded choreography runs into YAML scenarios and
// reads them back for playback.
package director

import (
	"fmt"
	"math"
	"time"

	"github.com/ivlev/choreo/internal/scene"
)

// Director converts property recordings into keyframe tracks
type Director struct {
	MinGap    float64 // Samples closer than this (seconds) merge into one keyframe
	Precision float64 // Values are rounded to this step; 0 keeps them exact
}

// NewDirector creates a new Director with default settings
func NewDirector() *Director {
	return &Director{
		MinGap:    1.0 / 30,
		Precision: 0.001,
	}
}

// Info is the run metadata stored with a scenario.
type Info struct {
	Effect  string
	Profile string
	Seed    int64
	Mid     *time.Duration // Absolute clock time of the mid callback
}

// FromRecording builds a scenario from the samples of one run that started at
// start. Fragments are listed in origin order.
func (d *Director) FromRecording(samples []scene.Sample, start time.Duration, target scene.NodeID, fragments []scene.NodeID, info Info) (*Scenario, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples recorded")
	}

	index := make(map[scene.NodeID]int, len(fragments))
	for i, f := range fragments {
		index[f] = i
	}

	targetTrack := &Track{Role: RoleTarget}
	fragTracks := make([]*Track, len(fragments))
	for i := range fragTracks {
		fragTracks[i] = &Track{Role: RoleFragment, Index: i}
	}
	anchors := make(map[*Track]float64)
	initDone := make(map[*Track]bool)

	end := 0.0
	for _, s := range samples {
		if s.At < start {
			continue
		}
		var tr *Track
		if s.Node == target {
			tr = targetTrack
		} else if i, ok := index[s.Node]; ok {
			tr = fragTracks[i]
		} else {
			continue
		}

		at := d.round((s.At - start).Seconds())
		if at > end {
			end = at
		}

		// The first write to a fragment is its creation state.
		if tr.Role == RoleFragment && !initDone[tr] {
			initDone[tr] = true
			d.merge(&tr.Init, s.Props)
			if v, ok := s.Props[scene.TransformOrigin]; ok {
				tr.Origin = v.Text()
			}
			continue
		}

		n := len(tr.Keyframes)
		if n > 0 && at-anchors[tr] < d.MinGap {
			tr.Keyframes[n-1].Time = at
			d.merge(&tr.Keyframes[n-1], s.Props)
			continue
		}
		kf := Keyframe{Time: at}
		d.merge(&kf, s.Props)
		tr.Keyframes = append(tr.Keyframes, kf)
		anchors[tr] = at
	}

	scenario := &Scenario{
		Version:  Version,
		Effect:   info.Effect,
		Profile:  info.Profile,
		Seed:     info.Seed,
		Duration: end,
	}
	if info.Mid != nil {
		mid := math.Min(d.round((*info.Mid - start).Seconds()), end)
		scenario.Mid = &mid
	}
	if len(targetTrack.Keyframes) > 0 {
		scenario.Tracks = append(scenario.Tracks, *targetTrack)
	}
	for _, tr := range fragTracks {
		scenario.Tracks = append(scenario.Tracks, *tr)
	}

	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}

func (d *Director) merge(kf *Keyframe, props scene.Properties) {
	for name, v := range props {
		if v.IsText() {
			if kf.Text == nil {
				kf.Text = make(map[string]string)
			}
			kf.Text[name] = v.Text()
			continue
		}
		if kf.Values == nil {
			kf.Values = make(map[string]float64)
		}
		kf.Values[name] = d.round(v.Float())
	}
}

// round snaps v to the configured precision
func (d *Director) round(v float64) float64 {
	if d.Precision <= 0 {
		return v
	}
	scale := 1 / d.Precision
	return math.Round(v*scale) / scale
}

// Props converts a keyframe back into scene properties.
func (k Keyframe) Props() scene.Properties {
	out := make(scene.Properties, len(k.Values)+len(k.Text))
	for name, v := range k.Values {
		out[name] = scene.Num(v)
	}
	for name, v := range k.Text {
		out[name] = scene.Str(v)
	}
	return out
}
