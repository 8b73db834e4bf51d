package source

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestImagesDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 30, 20)
	writePNG(t, filepath.Join(dir, "a.PNG"), 10, 10)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644)

	src, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()
	if src.PageCount() != 2 {
		t.Fatalf("Expected 2 pages, got %d", src.PageCount())
	}
	w, h, err := src.PageSize(1)
	if err != nil || w != 30 || h != 20 {
		t.Errorf("PageSize(1) = %vx%v, %v", w, h, err)
	}
}

func TestTestCard(t *testing.T) {
	card := &TestCard{Label: "shatter/dramatic", Pages: 2, Width: 160, Height: 90}
	img, err := card.RenderPage(1, 0)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if img.Bounds().Dx() != 160 || img.Bounds().Dy() != 90 {
		t.Errorf("Card size %v", img.Bounds())
	}
	if got := color.RGBAModel.Convert(img.At(2, 2)); got != cardColors[1] {
		t.Errorf("Card background %v, expected %v", got, cardColors[1])
	}
	// The code is centred with a white quiet zone around it.
	border := color.RGBAModel.Convert(img.At(51, 16)).(color.RGBA)
	if border.R < 200 || border.G < 200 || border.B < 200 {
		t.Errorf("Expected the white QR border at (51,16), got %v", border)
	}
	if _, err := card.RenderPage(2, 0); err == nil {
		t.Error("Expected an error past the last page")
	}
}

func TestPreload(t *testing.T) {
	card := &TestCard{Label: "x", Pages: 3, Width: 64, Height: 64}
	imgs, err := Preload(context.Background(), card, []int{0, 2}, 72, 2)
	if err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	if len(imgs) != 2 || imgs[PageKey(0)] == nil || imgs[PageKey(2)] == nil {
		t.Errorf("Unexpected preload keys: %v", imgs)
	}
	if PageKey(0) != "page-1" {
		t.Errorf("PageKey(0) = %s", PageKey(0))
	}
	if _, err := Preload(context.Background(), card, []int{5}, 72, 1); err == nil {
		t.Error("Expected an out of range error")
	}
}

func TestImagesErrors(t *testing.T) {
	if _, err := NewImages(t.TempDir()); err == nil {
		t.Error("Expected an error for a directory without images")
	}
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "only.png"), 8, 8)
	src, err := NewImages(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.RenderPage(1, 0); err == nil {
		t.Error("Expected an error past the last image")
	}
}
