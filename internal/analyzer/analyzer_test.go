package analyzer

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func page(w, h int, blocks ...image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for _, b := range blocks {
		draw.Draw(img, b, image.NewUniform(color.Black), image.Point{}, draw.Src)
	}
	return img
}

func TestContrastDetector(t *testing.T) {
	img := page(200, 200, image.Rect(50, 50, 150, 150))

	blocks, err := NewContrastDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blocks) == 0 {
		t.Fatal("Expected at least one block, got none")
	}

	r := blocks[0].Rect
	t.Logf("Detected block: %v score %.2f", r, blocks[0].Score)
	if r.Min.X < 40 || r.Min.X > 55 || r.Max.X < 145 || r.Max.X > 160 {
		t.Errorf("Block x range %d-%d does not match 50-150", r.Min.X, r.Max.X)
	}
	if r.Min.Y < 40 || r.Min.Y > 55 || r.Max.Y < 145 || r.Max.Y > 160 {
		t.Errorf("Block y range %d-%d does not match 50-150", r.Min.Y, r.Max.Y)
	}
}

func TestDetectDownscales(t *testing.T) {
	img := page(1200, 600, image.Rect(600, 100, 1100, 500))
	blocks, err := NewContrastDetector().Detect(img)
	if err != nil || len(blocks) == 0 {
		t.Fatalf("Detect: %v, %d blocks", err, len(blocks))
	}
	r := blocks[0].Rect
	if r.Min.X < 570 || r.Max.X > 1130 || r.Min.Y < 70 || r.Max.Y > 530 {
		t.Errorf("Unexpected block %v", r)
	}
}

func TestBlankPage(t *testing.T) {
	blocks, err := NewContrastDetector().Detect(page(100, 100))
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 0 {
		t.Errorf("Expected no blocks on a blank page, got %v", blocks)
	}
	fx, fy, ok, _ := Focus(NewContrastDetector(), page(100, 100))
	if ok || fx != 0.5 || fy != 0.5 {
		t.Errorf("Expected centre fallback, got %v %v %v", fx, fy, ok)
	}
}

func TestFocusPicksLargestBlock(t *testing.T) {
	img := page(400, 200, image.Rect(20, 20, 40, 40), image.Rect(240, 40, 380, 180))
	fx, fy, ok, err := Focus(NewContrastDetector(), img)
	if err != nil || !ok {
		t.Fatalf("Focus: %v %v", ok, err)
	}
	if fx < 0.72 || fx > 0.8 || fy < 0.5 || fy > 0.6 {
		t.Errorf("Expected focus near (0.775, 0.55), got (%.3f, %.3f)", fx, fy)
	}
	if got := Origin(0.25, 0.5); got != "25.0% 50.0%" {
		t.Errorf("Unexpected origin %q", got)
	}
}

func TestNewDetector(t *testing.T) {
	if _, err := NewDetector("contrast"); err != nil {
		t.Errorf("contrast: %v", err)
	}
	if _, err := NewDetector("ocr"); err == nil {
		t.Error("Expected an error for an unknown variant")
	}
}
