package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ivlev/choreo/internal/config"
	"github.com/ivlev/choreo/internal/director"
	"github.com/ivlev/choreo/internal/effects"
	"github.com/ivlev/choreo/internal/observability"
	"github.com/ivlev/choreo/internal/sampler"
)

var version = "dev"

func main() {
	cfg := config.Default()
	cfg.BuildVersion = version

	configPath := flag.String("config", "", "TOML file with default values for the flags below")
	flag.StringVar(&cfg.Mode, "mode", cfg.Mode, "render, term or serve")
	flag.StringVar(&cfg.Effect, "effect", cfg.Effect, "Effect family: "+effectNames())
	flag.StringVar(&cfg.Profile, "profile", cfg.Profile, "Intensity: subtle, dramatic, extreme, low, medium, high")
	flag.StringVar(&cfg.Variant, "variant", cfg.Variant, "Variant inside the family (empty = family default)")
	flag.StringVar(&cfg.Direction, "direction", cfg.Direction, "Direction for shift/mask/bounce/fold")
	flag.IntVar(&cfg.Pieces, "pieces", cfg.Pieces, "Fragment count (0 = profile)")
	flag.StringVar(&cfg.Text, "text", cfg.Text, "Text for the typewriter variant")
	flag.BoolVar(&cfg.Loop, "loop", cfg.Loop, "Loop sweep radar until stopped")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Controller seed")
	flag.IntVar(&cfg.Width, "width", cfg.Width, "Width")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "Height")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "FPS")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Workers for page rendering and PNG export")
	flag.IntVar(&cfg.DPI, "dpi", cfg.DPI, "DPI for PDF pages")
	flag.IntVar(&cfg.Page, "page", cfg.Page, "First page shown (1-based)")
	flag.StringVar(&cfg.Input, "input", cfg.Input, "PDF, image or directory (empty = QR test card)")
	flag.StringVar(&cfg.Output, "output", cfg.Output, "Directory for PNG frames")
	flag.StringVar(&cfg.Video, "video", cfg.Video, "Encode an mp4 with ffmpeg instead of writing PNGs")
	flag.StringVar(&cfg.Encoder, "encoder", cfg.Encoder, "ffmpeg encoder (empty = best available)")
	flag.IntVar(&cfg.Quality, "quality", cfg.Quality, "Video quality (0 = auto, x264: CRF 1-51, VideoToolbox: bitrate = Q*100kbit/s)")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address for serve mode")
	flag.BoolVar(&cfg.Focus, "focus", cfg.Focus, "Pivot effects on the busiest region of the page")
	flag.StringVar(&cfg.Profiles, "profiles", cfg.Profiles, "YAML file overriding the intensity profiles")
	flag.StringVar(&cfg.ScenarioInput, "scenario", cfg.ScenarioInput, "Scenario YAML to play back (implies -effect scenario)")
	flag.StringVar(&cfg.ScenarioOutput, "scenario-out", cfg.ScenarioOutput, "Record the run as a scenario (file or directory)")
	flag.BoolVar(&cfg.ShowStats, "stats", cfg.ShowStats, "Print a resource report after rendering")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Debug logging")
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		explicit[strings.ReplaceAll(f.Name, "-", "_")] = true
	})
	if *configPath != "" {
		if err := config.LoadFile(*configPath, &cfg, explicit); err != nil {
			fmt.Fprintf(os.Stderr, "[-] %v\n", err)
			os.Exit(2)
		}
	}

	logger := observability.InitLogger("choreo", cfg.Verbose)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cfg.Mode {
	case config.ModeRender:
		err = runRender(ctx, cfg, logger)
	case config.ModeTerm:
		err = runTerm(ctx, cfg, logger)
	case config.ModeServe:
		err = runServe(ctx, cfg, logger)
	}
	if err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Str("mode", cfg.Mode).Msg("choreo failed")
	}
}

func effectNames() string {
	keys := effects.Default().Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// profiles returns the built-in table or the YAML override.
func profiles(cfg config.Config) (sampler.Table, error) {
	if cfg.Profiles == "" {
		return sampler.Defaults(), nil
	}
	return sampler.LoadTable(cfg.Profiles)
}

// effectOptions maps the configuration onto strategy options, loading the
// scenario to play back when there is one.
func effectOptions(cfg config.Config, logger zerolog.Logger) (effects.Key, effects.Options, error) {
	key := effects.Key(cfg.Effect)
	opts := effects.Options{
		Variant:   cfg.Variant,
		Direction: cfg.Direction,
		Pieces:    cfg.Pieces,
		Text:      cfg.Text,
		Loop:      cfg.Loop,
	}

	path := cfg.ScenarioInput
	if path == "" && key == effects.Scenario {
		latest, err := director.FindLatestScenario("scenarios")
		if err != nil {
			return key, opts, err
		}
		path = latest
	}
	if path == "" {
		return key, opts, nil
	}
	scenario, err := director.ReadScenario(path)
	if err != nil {
		return key, opts, err
	}
	logger.Info().Str("scenario", path).Str("recorded", scenario.Effect).Float64("duration", scenario.Duration).Msg("scenario loaded")
	opts.Scenario = scenario
	return effects.Scenario, opts, nil
}
