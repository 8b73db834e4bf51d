package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/clock"
	"github.com/ivlev/choreo/internal/config"
	"github.com/ivlev/choreo/internal/engine"
	"github.com/ivlev/choreo/internal/renderer"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/system"
	"github.com/ivlev/choreo/internal/terminal"
)

// termScale shrinks the canvas; a terminal cell covers many pixels anyway.
const termScale = 4

// runTerm plays runs live in the terminal: space retriggers, s stops, q quits.
func runTerm(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	table, err := profiles(cfg)
	if err != nil {
		return err
	}
	key, opts, err := effectOptions(cfg, logger)
	if err != nil {
		return err
	}
	w, h := cfg.Width/termScale, cfg.Height/termScale
	st, err := newStage(ctx, cfg, w, h, logger)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()
	// The console writer would scribble over the screen.
	logger = zerolog.Nop()

	ticker := clock.NewTicker(cfg.FPS)
	ctl, err := engine.New(engine.Options{
		Scene:     st.mem,
		Scheduler: ticker,
		Profiles:  table,
		Seed:      cfg.Seed,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	var last *engine.Run
	player := &terminal.Player{
		Screen:     screen,
		Loop:       ticker,
		Controller: ctl,
		Scene:      st.mem,
		Renderer:   renderer.New(w, h, st.assets, system.NewImagePool()),
		Trigger: func() (*engine.Run, error) {
			run, err := ctl.Start(st.target, key, sampler.Key(cfg.Profile), opts, engine.Callbacks{Mid: st.nextPage})
			if err == nil {
				last = run
			}
			return run, err
		},
		Status: func() string {
			if last == nil {
				return fmt.Sprintf(" %s/%s  [space] start  [s] stop  [q] quit", key, cfg.Profile)
			}
			return fmt.Sprintf(" %s/%s  run %d seed %d  %s %.2fs/%.2fs  fragments %d",
				last.Effect(), last.Profile(), last.ID(), last.Seed(), last.State(),
				last.Elapsed().Seconds(), last.Duration(), ctl.LiveFragments())
		},
		Logger: logger,
	}

	ticker.Start()
	defer ticker.Stop()
	defer ticker.Do(ctl.Destroy)
	ticker.Post(func() {
		if _, err := player.Trigger(); err != nil {
			logger.Warn().Err(err).Msg("start failed")
		}
	})

	if err := player.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
