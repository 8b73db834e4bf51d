package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/clock"
	"github.com/ivlev/choreo/internal/config"
	"github.com/ivlev/choreo/internal/effects"
	"github.com/ivlev/choreo/internal/engine"
	"github.com/ivlev/choreo/internal/observability"
	"github.com/ivlev/choreo/internal/sampler"
	"github.com/ivlev/choreo/internal/wsbridge"
)

var errLoopStopped = errors.New("frame loop stopped")

// runServe exposes the scene over websocket and drives runs from HTTP.
func runServe(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return err
	}

	ticker := clock.NewTicker(cfg.FPS)
	ctl, err := engine.New(engine.Options{
		Scene:     st.mem,
		Scheduler: ticker,
		Profiles:  table,
		Seed:      cfg.Seed,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}
	hub := wsbridge.NewHub(st.mem, logger)
	controls := &loopControls{ticker: ticker, ctl: ctl, stage: st, effect: key, profile: sampler.Key(cfg.Profile), opts: opts}

	ticker.Start()
	defer ticker.Stop()
	defer ticker.Do(ctl.Destroy)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           wsbridge.NewMux(hub, controls, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", cfg.Addr).Msg("serving /ws, /start, /stop and /metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loopControls hops HTTP requests onto the ticker goroutine that owns the
// controller. Empty request fields fall back to the configured run.
type loopControls struct {
	ticker  *clock.Ticker
	ctl     *engine.Controller
	stage   *stage
	effect  effects.Key
	profile sampler.Key
	opts    effects.Options
}

func (c *loopControls) Start(req wsbridge.StartRequest) (wsbridge.RunInfo, error) {
	effect, profile, opts := c.effect, c.profile, c.opts
	if req.Effect != "" {
		effect = effects.Key(req.Effect)
		opts = effects.Options{Scenario: c.opts.Scenario}
	}
	if req.Profile != "" {
		profile = sampler.Key(req.Profile)
	}
	if req.Variant != "" {
		opts.Variant = req.Variant
	}
	if req.Direction != "" {
		opts.Direction = req.Direction
	}
	if req.Pieces != 0 {
		opts.Pieces = req.Pieces
	}
	if req.Text != "" {
		opts.Text = req.Text
	}
	opts.Loop = opts.Loop || req.Loop

	var info wsbridge.RunInfo
	var err error
	ok := c.ticker.Do(func() {
		var run *engine.Run
		run, err = c.ctl.Start(c.stage.target, effect, profile, opts, engine.Callbacks{Mid: c.stage.nextPage})
		if err != nil {
			return
		}
		info = wsbridge.RunInfo{
			Run:      run.ID(),
			Effect:   string(run.Effect()),
			Profile:  string(run.Profile()),
			Seed:     run.Seed(),
			Duration: run.Duration(),
		}
	})
	if !ok {
		return info, errLoopStopped
	}
	return info, err
}

func (c *loopControls) Stop() bool {
	stopped := false
	c.ticker.Do(func() {
		if run := c.ctl.Active(); run != nil {
			c.ctl.Stop(run)
			stopped = true
		}
	})
	return stopped
}
