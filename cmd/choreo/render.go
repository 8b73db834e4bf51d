package main

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/clock"
	"github.com/ivlev/choreo/internal/config"
	"github.com/ivlev/choreo/internal/director"
	"github.com/ivlev/choreo/internal/engine"
	"github.com/ivlev/choreo/internal/renderer"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/system"
	"github.com/ivlev/choreo/internal/video"
)

// maxRenderSeconds caps unbounded runs (glow pulse, looping sweep).
const maxRenderSeconds = 8

// frameLimit is the frame count after which a run still going is stopped:
// one second past its end, or maxRenderSeconds when it never ends.
func frameLimit(duration float64, unbounded bool, fps int) int {
	if unbounded || duration <= 0 {
		return fps * maxRenderSeconds
	}
	return int(math.Ceil(duration*float64(fps))) + fps
}

// runRender plays one run offline on a manual clock and exports every frame.
func runRender(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	table, err := profiles(cfg)
	if err != nil {
		return err
	}
	key, opts, err := effectOptions(cfg, logger)
	if err != nil {
		return err
	}
	st, err := newStage(ctx, cfg, cfg.Width, cfg.Height, logger)
	if err != nil {
		return err
	}

	clk := clock.NewManual()
	var sc scene.Scene = st.mem
	var rec *scene.Recorder
	if cfg.ScenarioOutput != "" {
		rec = scene.NewRecorder(st.mem, clk.Now)
		sc = rec
		st.sc = rec
	}
	ctl, err := engine.New(engine.Options{
		Scene:     sc,
		Scheduler: clk,
		Profiles:  table,
		Seed:      cfg.Seed,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer ctl.Destroy()

	rnd := renderer.New(cfg.Width, cfg.Height, st.assets, system.NewImagePool())
	sink, err := openSink(ctx, cfg, rnd.Release, logger)
	if err != nil {
		return err
	}

	done := false
	start := clk.Now()
	run, err := ctl.Start(st.target, key, sampler.Key(cfg.Profile), opts, engine.Callbacks{
		Mid:      st.nextPage,
		Complete: func() { done = true },
	})
	if err != nil {
		sink.Close()
		return err
	}
	logger.Info().Str("effect", string(run.Effect())).Int64("seed", run.Seed()).Float64("duration", run.Duration()).Int("fragments", len(run.Fragments())).Msg("rendering")

	dt := time.Second / time.Duration(cfg.FPS)
	limit := frameLimit(run.Duration(), run.Unbounded(), cfg.FPS)
	tail := cfg.FPS / 2
	wall := time.Now()
	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			sink.Close()
			return err
		}
		if err := sink.WriteFrame(frames, rnd.Frame(st.mem.Snapshot())); err != nil {
			sink.Close()
			return err
		}
		frames++
		if done {
			if tail--; tail < 0 {
				break
			}
		} else if frames > limit {
			logger.Warn().Int("frames", frames).Msg("frame limit reached, stopping the run")
			ctl.Stop(run)
			break
		}
		clk.Step(dt)
	}
	if err := sink.Close(); err != nil {
		return err
	}
	logger.Info().Int("frames", frames).Dur("elapsed", time.Since(wall)).Str("state", run.State().String()).Msg("render finished")

	if rec != nil {
		if err := writeScenario(cfg, run, rec, start, logger); err != nil {
			return err
		}
	}
	if cfg.ShowStats {
		snap, err := system.TakeSnapshot()
		if err != nil {
			logger.Warn().Err(err).Msg("stats unavailable")
		}
		system.Report{
			Effect:   string(run.Effect()),
			Profile:  string(run.Profile()),
			Seed:     run.Seed(),
			Frames:   uint64(frames),
			Elapsed:  time.Since(wall),
			Playback: clk.Now() - start,
			Snapshot: snap,
		}.Write(os.Stdout)
	}
	return nil
}

func openSink(ctx context.Context, cfg config.Config, release func(*image.RGBA), logger zerolog.Logger) (video.Sink, error) {
	if cfg.Video == "" {
		logger.Info().Str("dir", cfg.Output).Msg("writing PNG frames")
		return video.NewPNGWriter(ctx, cfg.Output, cfg.Workers, release)
	}
	encoder := cfg.Encoder
	if encoder == "" {
		encoder = system.BestH264Encoder(ctx)
	}
	quality := cfg.Quality
	if quality == 0 {
		quality = video.DefaultQuality(encoder)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Video), 0755); err != nil {
		return nil, err
	}
	logger.Info().Str("video", cfg.Video).Str("encoder", encoder).Int("quality", quality).Msg("encoding")
	return video.NewFFmpegEncoder(ctx, cfg.Video, video.EncoderParams{
		Width:   cfg.Width,
		Height:  cfg.Height,
		FPS:     cfg.FPS,
		Encoder: encoder,
		Quality: quality,
	}, release)
}

func writeScenario(cfg config.Config, run *engine.Run, rec *scene.Recorder, start time.Duration, logger zerolog.Logger) error {
	info := director.Info{
		Effect:  string(run.Effect()),
		Profile: string(run.Profile()),
		Seed:    run.Seed(),
	}
	if mid, ok := run.Mid(); ok {
		at := start + mid
		info.Mid = &at
	}
	scenario, err := director.NewDirector().FromRecording(rec.Samples(), start, run.Target(), run.Fragments(), info)
	if err != nil {
		return fmt.Errorf("record scenario: %w", err)
	}

	path := cfg.ScenarioOutput
	if !strings.HasSuffix(path, ".yaml") {
		if err := os.MkdirAll(path, 0755); err != nil {
			return err
		}
		path = director.GenerateScenarioPath(path, info.Effect)
	}
	if err := director.WriteScenario(scenario, path); err != nil {
		return err
	}
	logger.Info().Str("scenario", path).Int("tracks", len(scenario.Tracks)).Msg("scenario written")
	return nil
}
