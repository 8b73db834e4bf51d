// Package source provides the content images that scene nodes reference
// through their content property.
package source

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/sync/errgroup"
)

type Source interface {
	PageCount() int
	PageSize(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks a source by file extension: PDF through go-fitz, anything else
// as an image file or directory of images.
func Open(path string) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewPDF(path)
	}
	return NewImages(path)
}

// PageKey is the content key under which page index is registered.
func PageKey(index int) string {
	return fmt.Sprintf("page-%d", index+1)
}

// Preload renders pages in parallel and returns them keyed by PageKey.
func Preload(ctx context.Context, src Source, pages []int, dpi int, workers int) (map[string]image.Image, error) {
	imgs := make([]image.Image, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, page := range pages {
		if page < 0 || page >= src.PageCount() {
			return nil, fmt.Errorf("page %d out of range (1-%d)", page+1, src.PageCount())
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := src.RenderPage(page, dpi)
			if err != nil {
				return fmt.Errorf("render page %d: %w", page+1, err)
			}
			imgs[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]image.Image, len(pages))
	for i, page := range pages {
		out[PageKey(page)] = imgs[i]
	}
	return out, nil
}

type PDF struct {
	doc  *fitz.Document
	path string
}

func NewPDF(path string) (*PDF, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &PDF{doc: doc, path: path}, nil
}

func (f *PDF) PageCount() int {
	return f.doc.NumPage()
}

func (f *PDF) PageSize(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage opens its own document handle so pages can render concurrently.
func (f *PDF) RenderPage(index int, dpi int) (image.Image, error) {
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(dpi))
}

func (f *PDF) Close() error {
	return f.doc.Close()
}
