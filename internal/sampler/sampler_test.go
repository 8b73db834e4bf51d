package sampler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/choreo/internal/fault"
)

func TestDefaultsAreValid(t *testing.T) {
	table := Defaults()
	if err := table.Validate(); err != nil {
		t.Fatalf("Default table invalid: %v", err)
	}
	for _, k := range Keys {
		if _, err := table.Sample(k); err != nil {
			t.Errorf("Sample(%s) failed: %v", k, err)
		}
	}
}

func TestSampleUnknownKey(t *testing.T) {
	_, err := Defaults().Sample("nuclear")
	if !errors.Is(err, fault.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"valid", Profile{Distance: 1, DurationSeconds: 1}, false},
		{"negative distance", Profile{Distance: -1, DurationSeconds: 1}, true},
		{"negative rotation", Profile{RotationDeg: -5, DurationSeconds: 1}, true},
		{"zero duration", Profile{}, true},
		{"probability above one", Profile{DurationSeconds: 1, Probability: prob(1.5)}, true},
		{"probability at bound", Profile{DurationSeconds: 1, Probability: prob(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr && !errors.Is(err, fault.ErrInvalidParameter) {
				t.Errorf("Expected ErrInvalidParameter, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestJitterRangeAndDeterminism(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 1000; i++ {
		va, vb := a.Jitter(5), b.Jitter(5)
		if va != vb {
			t.Fatalf("Draw %d differs under the same seed: %v vs %v", i, va, vb)
		}
		if va < -5 || va > 5 {
			t.Fatalf("Draw %d out of range: %v", i, va)
		}
	}

	if v := New(1).Between(3, 4); v < 3 || v > 4 {
		t.Errorf("Between out of range: %v", v)
	}
	if New(1).Jitter(0) != 0 {
		t.Error("Zero range jitter must be zero")
	}
}

func TestPureJitterMatchesSampler(t *testing.T) {
	s := New(7)
	for i := 0; i < 5; i++ {
		want := s.Jitter(2)
		if got := Jitter(7, i, 2); got != want {
			t.Errorf("Draw %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestDerive(t *testing.T) {
	if Derive(1, 0) == Derive(1, 1) {
		t.Error("Consecutive derived seeds should differ")
	}
	if Derive(9, 3) != Derive(9, 3) {
		t.Error("Derive must be deterministic")
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	data := []byte(`profiles:
  dramatic:
    distance: 200
    rotation_deg: 90
    scale_factor: 1.5
    duration_seconds: 3
    probability: 0.25
    piece_count: 12
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	p, _ := table.Sample(Dramatic)
	if p.Distance != 200 || p.PieceCount != 12 || p.Chance(0) != 0.25 {
		t.Errorf("Override not applied: %+v", p)
	}
	if s, _ := table.Sample(Subtle); s.Distance != Defaults()[Subtle].Distance {
		t.Errorf("Untouched profile changed: %+v", s)
	}

	out := filepath.Join(dir, "written.yaml")
	if err := WriteTable(table, out); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	again, err := LoadTable(out)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if again[Dramatic].Distance != 200 {
		t.Errorf("Reloaded table lost override: %+v", again[Dramatic])
	}
}

func TestParseTableRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "profiles:\n  mega:\n    duration_seconds: 1\n"},
		{"probability above one", "profiles:\n  low:\n    duration_seconds: 1\n    probability: 2\n"},
		{"nan distance", "profiles:\n  dramatic:\n    distance: .nan\n    duration_seconds: 1\n"},
		{"nan duration", "profiles:\n  dramatic:\n    duration_seconds: .nan\n"},
		{"infinite rotation", "profiles:\n  subtle:\n    rotation_deg: .inf\n    duration_seconds: 1\n"},
		{"nan probability", "profiles:\n  high:\n    duration_seconds: 1\n    probability: .nan\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseTable([]byte(tt.yaml))
			if !errors.Is(err, fault.ErrInvalidParameter) {
				t.Errorf("Expected InvalidParameter, got %v (table %+v)", err, table)
			}
		})
	}
}
