// Package sampler turns intensity keys into numeric profiles and produces
// seeded, replayable random values within those ranges.
package sampler

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/choreo/internal/fault"
)

// Key selects a profile.
type Key string

const (
	Subtle   Key = "subtle"
	Dramatic Key = "dramatic"
	Extreme  Key = "extreme"
	Low      Key = "low"
	Medium   Key = "medium"
	High     Key = "high"
)

// Keys lists every known profile key.
var Keys = []Key{Subtle, Dramatic, Extreme, Low, Medium, High}

// Profile is the resolved numeric parameter set for one key.
type Profile struct {
	Distance        float64  `yaml:"distance"`
	RotationDeg     float64  `yaml:"rotation_deg"`
	ScaleFactor     float64  `yaml:"scale_factor"`
	DurationSeconds float64  `yaml:"duration_seconds"`
	Probability     *float64 `yaml:"probability,omitempty"`
	PieceCount      int      `yaml:"piece_count"`
}

// Chance returns the profile probability, or fallback when unset.
func (p Profile) Chance(fallback float64) float64 {
	if p.Probability == nil {
		return fallback
	}
	return *p.Probability
}

// Validate checks the numeric invariants of a profile.
func (p Profile) Validate() error {
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"distance", &p.Distance},
		{"rotation", &p.RotationDeg},
		{"scale factor", &p.ScaleFactor},
		{"duration", &p.DurationSeconds},
		{"probability", p.Probability},
	} {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			return fault.Invalid("%s %v is not a finite number", f.name, *f.v)
		}
	}

	switch {
	case p.Distance < 0:
		return fault.Invalid("distance %v is negative", p.Distance)
	case p.RotationDeg < 0:
		return fault.Invalid("rotation %v is negative", p.RotationDeg)
	case p.ScaleFactor < 0:
		return fault.Invalid("scale factor %v is negative", p.ScaleFactor)
	case p.DurationSeconds <= 0:
		return fault.Invalid("duration %v must be positive", p.DurationSeconds)
	case p.PieceCount < 0:
		return fault.Invalid("piece count %d is negative", p.PieceCount)
	}
	if p.Probability != nil && (*p.Probability < 0 || *p.Probability > 1) {
		return fault.Invalid("probability %v outside [0,1]", *p.Probability)
	}
	return nil
}

func prob(v float64) *float64 { return &v }

// Table maps keys to profiles.
type Table map[Key]Profile

// Defaults returns the built-in profile table.
func Defaults() Table {
	return Table{
		Subtle:   {Distance: 40, RotationDeg: 15, ScaleFactor: 0.9, DurationSeconds: 0.9, Probability: prob(0.2), PieceCount: 6},
		Dramatic: {Distance: 120, RotationDeg: 45, ScaleFactor: 1.2, DurationSeconds: 1.5, Probability: prob(0.5), PieceCount: 9},
		Extreme:  {Distance: 260, RotationDeg: 120, ScaleFactor: 1.6, DurationSeconds: 2.1, Probability: prob(0.85), PieceCount: 16},
		Low:      {Distance: 20, RotationDeg: 8, ScaleFactor: 1.05, DurationSeconds: 0.6, Probability: prob(0.1), PieceCount: 4},
		Medium:   {Distance: 60, RotationDeg: 20, ScaleFactor: 1.15, DurationSeconds: 1.0, Probability: prob(0.3), PieceCount: 6},
		High:     {Distance: 100, RotationDeg: 35, ScaleFactor: 1.3, DurationSeconds: 1.4, Probability: prob(0.6), PieceCount: 9},
	}
}

// Sample resolves key. An unknown key is a caller error, never defaulted.
func (t Table) Sample(key Key) (Profile, error) {
	p, ok := t[key]
	if !ok {
		return Profile{}, fault.Invalid("unknown profile %q", key)
	}
	return p, nil
}

// Validate checks every profile of the table.
func (t Table) Validate() error {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := t[Key(k)].Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", k, err)
		}
	}
	return nil
}

type tableFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// LoadTable reads profile overrides from a YAML file on top of Defaults.
// Only known keys may be overridden.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTable(data)
}

// ParseTable is LoadTable for in-memory YAML.
func ParseTable(data []byte) (Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	table := Defaults()
	for name, p := range file.Profiles {
		key := Key(name)
		if _, ok := table[key]; !ok {
			return nil, fault.Invalid("unknown profile %q in file", name)
		}
		table[key] = p
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// WriteTable writes t as YAML.
func WriteTable(t Table, path string) error {
	file := tableFile{Profiles: make(map[string]Profile, len(t))}
	for k, p := range t {
		file.Profiles[string(k)] = p
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
