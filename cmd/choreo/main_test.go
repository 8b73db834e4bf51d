package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/choreo/internal/config"
	"github.com/ivlev/choreo/internal/effects"
	"github.com/ivlev/choreo/internal/scene"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name string
		w, h float64
		want scene.Rect
	}{
		{"same aspect", 160, 90, scene.Rect{X: 32, Y: 18, W: 256, H: 144}},
		{"portrait", 90, 160, scene.Rect{X: 120, Y: 18, W: 81, H: 144}},
		{"unknown size", 0, 0, scene.Rect{X: 32, Y: 18, W: 256, H: 144}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fit(tt.w, tt.h, 320, 180, 0.8); got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestStageFromTestCard(t *testing.T) {
	cfg := config.Default()
	cfg.Focus = true
	st, err := newStage(context.Background(), cfg, 320, 180, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(st.pages) != stagePages || len(st.assets) != stagePages {
		t.Fatalf("Expected %d pages, got %d (%d assets)", stagePages, len(st.pages), len(st.assets))
	}
	if v, _ := st.mem.Property(st.target, scene.Content); v.Text() != "page-1" {
		t.Errorf("Expected page-1, got %q", v.Text())
	}
	if _, ok := st.mem.Property(st.target, scene.TransformOrigin); !ok {
		t.Error("Expected a focus origin on the target")
	}
	for i := 0; i < stagePages; i++ {
		st.nextPage()
	}
	if v, _ := st.mem.Property(st.target, scene.Content); v.Text() != "page-1" {
		t.Errorf("Expected pages to cycle back to page-1, got %q", v.Text())
	}
}

func TestEffectOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Effect = "mask"
	cfg.Variant = "circle"
	key, opts, err := effectOptions(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if key != effects.Mask || opts.Variant != "circle" || opts.Scenario != nil {
		t.Errorf("Unexpected %s %+v", key, opts)
	}

	cfg.ScenarioInput = t.TempDir() + "/missing.yaml"
	if _, _, err := effectOptions(cfg, zerolog.Nop()); err == nil {
		t.Error("Expected an error for a missing scenario")
	}
}

func TestNextPageRecordedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	st, err := newStage(context.Background(), config.Default(), 320, 180, zerolog.New(&buf))
	if err != nil {
		t.Fatal(err)
	}
	rec := scene.NewRecorder(st.mem, func() time.Duration { return time.Second })
	st.sc = rec
	st.nextPage()

	samples := rec.Samples()
	if len(samples) != 1 || samples[0].Node != st.target {
		t.Fatalf("Expected one recorded page swap on the target, got %+v", samples)
	}
	if v := samples[0].Props[scene.Content]; v.Text() != "page-2" {
		t.Errorf("Expected page-2 recorded, got %q", v.Text())
	}

	if err := st.mem.Remove(st.target); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	st.nextPage()
	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), "page swap failed") {
		t.Errorf("Expected a warning for the failed swap, got %q", buf.String())
	}
}

func TestFrameLimit(t *testing.T) {
	tests := []struct {
		name      string
		duration  float64
		unbounded bool
		want      int
	}{
		{"bounded", 1.5, false, 75},
		{"bounded rounds up", 1.01, false, 61},
		{"unbounded pulse", 0.9, true, 30 * maxRenderSeconds},
		{"empty plan", 0, false, 30 * maxRenderSeconds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := frameLimit(tt.duration, tt.unbounded, 30); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}
