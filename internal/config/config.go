// Package config holds the CLI configuration and its TOML file overlay.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Run modes of the CLI.
const (
	ModeRender = "render"
	ModeTerm   = "term"
	ModeServe  = "serve"
)

type Config struct {
	Mode      string
	Effect    string
	Profile   string
	Variant   string
	Direction string
	Pieces    int
	Text      string
	Loop      bool
	Seed      int64

	Width    int
	Height   int
	FPS      int
	Workers  int
	DPI      int
	Page     int
	Input    string
	Output   string
	Video    string
	Encoder  string
	Quality  int // 0 picks the encoder default
	Addr     string
	Profiles string
	Focus    bool

	ScenarioInput  string
	ScenarioOutput string

	ShowStats    bool
	Verbose      bool
	BuildVersion string
}

// Default returns the configuration used when neither flags nor a file set a
// value.
func Default() Config {
	return Config{
		Mode:    ModeRender,
		Effect:  "shatter",
		Profile: "dramatic",
		Seed:    1,
		Width:   1280,
		Height:  720,
		FPS:     30,
		Workers: 4,
		DPI:     110,
		Page:    1,
		Output:  "frames",
		Addr:    ":8080",
	}
}

// Validate checks the numeric ranges and the mode.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeRender, ModeTerm, ModeServe:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("fps %d outside 1-240", c.FPS)
	}
	if c.Page < 1 {
		return fmt.Errorf("page %d: pages start at 1", c.Page)
	}
	return nil
}

type fileConfig struct {
	Mode      string `toml:"mode"`
	Effect    string `toml:"effect"`
	Profile   string `toml:"profile"`
	Variant   string `toml:"variant"`
	Direction string `toml:"direction"`
	Pieces    int    `toml:"pieces"`
	Text      string `toml:"text"`
	Loop      bool   `toml:"loop"`
	Seed      int64  `toml:"seed"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	FPS       int    `toml:"fps"`
	Workers   int    `toml:"workers"`
	DPI       int    `toml:"dpi"`
	Page      int    `toml:"page"`
	Input     string `toml:"input"`
	Output    string `toml:"output"`
	Video     string `toml:"video"`
	Encoder   string `toml:"encoder"`
	Quality   int    `toml:"quality"`
	Addr      string `toml:"addr"`
	Profiles  string `toml:"profiles"`
	Focus     bool   `toml:"focus"`
	Scenario  string `toml:"scenario"`
	ScenOut   string `toml:"scenario_out"`
	Stats     bool   `toml:"stats"`
	Verbose   bool   `toml:"verbose"`
}

// LoadFile overlays the TOML file at path onto cfg. Keys listed in explicit
// (flag names set on the command line) are left alone.
func LoadFile(path string, cfg *Config, explicit map[string]bool) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown keys %v", undecoded)
	}

	set := func(key string) bool {
		return meta.IsDefined(key) && !explicit[key]
	}
	str := func(key string, dst *string, v string) {
		if set(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int, v int) {
		if set(key) {
			*dst = v
		}
	}
	flag := func(key string, dst *bool, v bool) {
		if set(key) {
			*dst = v
		}
	}

	str("mode", &cfg.Mode, raw.Mode)
	str("effect", &cfg.Effect, raw.Effect)
	str("profile", &cfg.Profile, raw.Profile)
	str("variant", &cfg.Variant, raw.Variant)
	str("direction", &cfg.Direction, raw.Direction)
	num("pieces", &cfg.Pieces, raw.Pieces)
	str("text", &cfg.Text, raw.Text)
	flag("loop", &cfg.Loop, raw.Loop)
	if set("seed") {
		cfg.Seed = raw.Seed
	}
	num("width", &cfg.Width, raw.Width)
	num("height", &cfg.Height, raw.Height)
	num("fps", &cfg.FPS, raw.FPS)
	num("workers", &cfg.Workers, raw.Workers)
	num("dpi", &cfg.DPI, raw.DPI)
	num("page", &cfg.Page, raw.Page)
	str("input", &cfg.Input, raw.Input)
	str("output", &cfg.Output, raw.Output)
	str("video", &cfg.Video, raw.Video)
	str("encoder", &cfg.Encoder, raw.Encoder)
	num("quality", &cfg.Quality, raw.Quality)
	str("addr", &cfg.Addr, raw.Addr)
	str("profiles", &cfg.Profiles, raw.Profiles)
	flag("focus", &cfg.Focus, raw.Focus)
	str("scenario", &cfg.ScenarioInput, raw.Scenario)
	str("scenario_out", &cfg.ScenarioOutput, raw.ScenOut)
	flag("stats", &cfg.ShowStats, raw.Stats)
	flag("verbose", &cfg.Verbose, raw.Verbose)
	return nil
}
