package main

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/analyzer"
	"github.com/ivlev/choreo/internal/config"
	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/source"
	"github.com/ivlev/choreo/internal/system"
)

// stagePages is how many pages are preloaded; the mid callback cycles them.
const stagePages = 4

// stage is the scene every mode animates: one target node showing a page.
type stage struct {
	mem *scene.Memory
	// sc receives page swaps; it is mem unless the run is recorded.
	sc     scene.Scene
	target scene.NodeID
	assets map[string]image.Image
	pages  []string
	shown  int
	logger zerolog.Logger
}

func newStage(ctx context.Context, cfg config.Config, width, height int, logger zerolog.Logger) (*stage, error) {
	var src source.Source
	if cfg.Input == "" {
		src = &source.TestCard{
			Label:  fmt.Sprintf("choreo %s/%s seed %d", cfg.Effect, cfg.Profile, cfg.Seed),
			Pages:  stagePages,
			Width:  width,
			Height: height,
		}
		logger.Info().Msg("no input, using the test card")
	} else {
		path, err := system.ResolveInput(cfg.Input)
		if err != nil {
			return nil, fmt.Errorf("resolve input: %w", err)
		}
		if src, err = source.Open(path); err != nil {
			return nil, err
		}
		logger.Info().Str("input", path).Int("pages", src.PageCount()).Msg("input opened")
	}
	defer src.Close()

	first := cfg.Page - 1
	if first >= src.PageCount() {
		return nil, fmt.Errorf("page %d out of range (1-%d)", cfg.Page, src.PageCount())
	}
	var pages []int
	for i := first; i < src.PageCount() && len(pages) < stagePages; i++ {
		pages = append(pages, i)
	}
	assets, err := source.Preload(ctx, src, pages, cfg.DPI, cfg.Workers)
	if err != nil {
		return nil, err
	}
	pw, ph, err := src.PageSize(first)
	if err != nil {
		return nil, err
	}

	st := &stage{mem: scene.NewMemory(float64(width), float64(height)), assets: assets, logger: logger}
	st.sc = st.mem
	for _, p := range pages {
		st.pages = append(st.pages, source.PageKey(p))
	}
	if st.target, err = st.mem.CreateChild(st.mem.Root()); err != nil {
		return nil, err
	}
	box := fit(pw, ph, float64(width), float64(height), 0.8)
	props := scene.Properties{
		scene.Left:    scene.Num(box.X),
		scene.Top:     scene.Num(box.Y),
		scene.Width:   scene.Num(box.W),
		scene.Height:  scene.Num(box.H),
		scene.Content: scene.Str(st.pages[0]),
	}
	if cfg.Focus {
		fx, fy, ok, err := analyzer.Focus(analyzer.NewContrastDetector(), assets[st.pages[0]])
		if err != nil {
			return nil, fmt.Errorf("detect focus: %w", err)
		}
		if ok {
			props[scene.TransformOrigin] = scene.Str(analyzer.Origin(fx, fy))
		}
		logger.Info().Float64("x", fx).Float64("y", fy).Bool("found", ok).Msg("focus point")
	}
	return st, st.mem.SetProperties(st.target, props)
}

// nextPage swaps the target's content; it runs as the mid callback.
func (s *stage) nextPage() {
	s.shown = (s.shown + 1) % len(s.pages)
	if err := s.sc.SetProperties(s.target, scene.Properties{scene.Content: scene.Str(s.pages[s.shown])}); err != nil {
		s.logger.Warn().Err(err).Str("page", s.pages[s.shown]).Msg("page swap failed")
	}
}

// fit centres a w x h box inside the canvas, scaled to cover share of it.
func fit(w, h, canvasW, canvasH, share float64) scene.Rect {
	if w <= 0 || h <= 0 {
		w, h = canvasW, canvasH
	}
	k := math.Min(canvasW*share/w, canvasH*share/h)
	bw, bh := math.Round(w*k), math.Round(h*k)
	return scene.Rect{X: math.Round((canvasW - bw) / 2), Y: math.Round((canvasH - bh) / 2), W: bw, H: bh}
}
