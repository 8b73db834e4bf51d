package director

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlev/choreo/internal/fault"
	"github.com/ivlev/choreo/internal/scene"
)

func record(t *testing.T) (*scene.Recorder, *time.Duration, scene.NodeID, []scene.NodeID) {
	t.Helper()
	now := time.Duration(0)
	m := scene.NewMemory(100, 100)
	rec := scene.NewRecorder(m, func() time.Duration { return now })

	target, _ := m.CreateChild(m.Root())
	frags := make([]scene.NodeID, 2)
	for i := range frags {
		frags[i], _ = rec.CreateChild(m.Root())
		rec.SetProperties(frags[i], scene.Properties{
			scene.ClipX:           scene.Num(float64(i) * 50),
			scene.ClipW:           scene.Num(50),
			scene.TransformOrigin: scene.Str("center"),
		})
	}
	return rec, &now, target, frags
}

func TestDirector(t *testing.T) {
	rec, now, target, frags := record(t)

	for step := 1; step <= 20; step++ {
		*now = time.Duration(step) * 10 * time.Millisecond
		for i, f := range frags {
			rec.SetProperties(f, scene.Properties{scene.X: scene.Num(float64(step*(i+1)) * 0.5)})
		}
		if step == 10 {
			rec.SetProperties(target, scene.Properties{scene.Text: scene.Str("next")})
		}
	}

	mid := 100 * time.Millisecond
	d := NewDirector()
	s, err := d.FromRecording(rec.Samples(), 0, target, frags, Info{Effect: "shatter", Profile: "dramatic", Seed: 7, Mid: &mid})
	if err != nil {
		t.Fatalf("FromRecording failed: %v", err)
	}

	if s.Version != Version || s.Effect != "shatter" || s.Seed != 7 {
		t.Errorf("Metadata lost: %+v", s)
	}
	if s.Duration != 0.2 {
		t.Errorf("Expected duration 0.2, got %v", s.Duration)
	}
	if s.Mid == nil || *s.Mid != 0.1 {
		t.Errorf("Expected mid at 0.1, got %v", s.Mid)
	}

	fr := s.Fragments()
	if len(fr) != 2 {
		t.Fatalf("Expected 2 fragment tracks, got %d", len(fr))
	}
	if fr[1].Init.Values[scene.ClipX] != 50 || fr[1].Origin != "center" {
		t.Errorf("Fragment init state lost: %+v", fr[1].Init)
	}

	// 20 samples 10ms apart with a 1/30s merge window
	if n := len(fr[0].Keyframes); n < 4 || n > 7 {
		t.Errorf("Expected samples to be thinned to about 5 keyframes, got %d", n)
	}
	last := fr[1].Keyframes[len(fr[1].Keyframes)-1]
	if last.Time != 0.2 || last.Values[scene.X] != 20 {
		t.Errorf("Last keyframe should carry the final state, got %+v", last)
	}

	t.Logf("Scenario: %d tracks, %d keyframes on fragment 0", len(s.Tracks), len(fr[0].Keyframes))
}

func TestFromRecordingEmpty(t *testing.T) {
	if _, err := NewDirector().FromRecording(nil, 0, 1, nil, Info{}); err == nil {
		t.Error("Expected error for empty recording")
	}
}

func TestScenarioWriteRead(t *testing.T) {
	mid := 0.5
	scenario := &Scenario{
		Version:  Version,
		Effect:   "fold",
		Profile:  "medium",
		Duration: 1.0,
		Mid:      &mid,
		Tracks: []Track{
			{Role: RoleTarget, Keyframes: []Keyframe{{Time: 1.0, Values: map[string]float64{scene.Opacity: 1}}}},
			{
				Role:  RoleFragment,
				Index: 0,
				Init:  Keyframe{Values: map[string]float64{scene.ClipH: 25}},
				Keyframes: []Keyframe{
					{Time: 0.25, Values: map[string]float64{scene.RotateX: 45}},
					{Time: 0.5, Values: map[string]float64{scene.RotateX: 90}, Text: map[string]string{scene.Content: "page-2"}},
				},
			},
		},
	}

	tmpFile := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := WriteScenario(scenario, tmpFile); err != nil {
		t.Fatalf("WriteScenario failed: %v", err)
	}

	readScenario, err := ReadScenario(tmpFile)
	if err != nil {
		t.Fatalf("ReadScenario failed: %v", err)
	}

	if readScenario.Version != scenario.Version || *readScenario.Mid != 0.5 {
		t.Errorf("Metadata mismatch: %+v", readScenario)
	}
	if len(readScenario.Tracks) != len(scenario.Tracks) {
		t.Fatalf("Track count mismatch: expected %d, got %d", len(scenario.Tracks), len(readScenario.Tracks))
	}
	kf := readScenario.Tracks[1].Keyframes[1]
	if kf.Props()[scene.Content].Text() != "page-2" || kf.Props()[scene.RotateX].Float() != 90 {
		t.Errorf("Keyframe round trip lost values: %+v", kf)
	}
}

func TestScenarioValidate(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name     string
		scenario Scenario
	}{
		{"unknown role", Scenario{Duration: 1, Tracks: []Track{{Role: "camera"}}}},
		{"missing fragment index", Scenario{Duration: 1, Tracks: []Track{{Role: RoleFragment, Index: 1}}}},
		{"duplicate fragment", Scenario{Duration: 1, Tracks: []Track{{Role: RoleFragment}, {Role: RoleFragment}}}},
		{"time goes backwards", Scenario{Duration: 1, Tracks: []Track{{Role: RoleTarget, Keyframes: []Keyframe{{Time: 0.5}, {Time: 0.2}}}}}},
		{"past duration", Scenario{Duration: 1, Tracks: []Track{{Role: RoleTarget, Keyframes: []Keyframe{{Time: 2}}}}}},
		{"two targets", Scenario{Duration: 1, Tracks: []Track{{Role: RoleTarget}, {Role: RoleTarget}}}},
		{"nan duration", Scenario{Duration: math.NaN()}},
		{"infinite duration", Scenario{Duration: math.Inf(1)}},
		{"nan mid", Scenario{Duration: 1, Mid: &nan}},
		{"nan keyframe time", Scenario{Duration: 1, Tracks: []Track{{Role: RoleTarget, Keyframes: []Keyframe{{Time: math.NaN()}}}}}},
		{"nan keyframe value", Scenario{Duration: 1, Tracks: []Track{{Role: RoleTarget, Keyframes: []Keyframe{{Time: 0.5, Values: map[string]float64{scene.X: math.NaN()}}}}}}},
		{"infinite init value", Scenario{Duration: 1, Tracks: []Track{{Role: RoleFragment, Init: Keyframe{Values: map[string]float64{scene.Width: math.Inf(-1)}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.scenario.Validate(); !errors.Is(err, fault.ErrInvalidParameter) {
				t.Errorf("Expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestFindLatestScenario(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		filepath.Join(dir, "shatter_2026-02-12_10-00-00.yaml"),
		filepath.Join(dir, "shatter_2026-02-13_01-00-00.yaml"),
		filepath.Join(dir, "fold_2026-02-11_15-30-00.yaml"),
	}
	for i, f := range files {
		os.WriteFile(f, []byte("version: \"2.0\"\n"), 0644)
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(f, modTime, modTime)
	}

	latest, err := FindLatestScenario(dir)
	if err != nil {
		t.Fatalf("FindLatestScenario failed: %v", err)
	}
	if latest != files[len(files)-1] {
		t.Errorf("Expected latest to be %s, got %s", files[len(files)-1], latest)
	}

	if _, err := FindLatestScenario(t.TempDir()); err == nil {
		t.Error("Expected error for an empty directory")
	}

	path := GenerateScenarioPath(dir, "glow")
	if filepath.Dir(path) != dir || filepath.Ext(path) != ".yaml" {
		t.Errorf("Unexpected generated path: %s", path)
	}
}
