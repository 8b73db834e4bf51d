// Package analyzer finds the busy regions of a page so effects can pivot on
// its content instead of its geometric centre.
package analyzer

import (
	"fmt"
	"image"
	"sort"
)

// Region is a detected block of content in page pixels.
type Region struct {
	Rect  image.Rectangle
	Score float64 // edge pixels per area, 0-1
}

// Detector finds regions in a page image, largest first.
type Detector interface {
	Detect(img image.Image) ([]Region, error)
}

// NewDetector creates a detector for variant. Only "contrast" exists.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}

// Focus returns the centre of the largest region as fractions of the image
// size. ok is false when nothing was found.
func Focus(d Detector, img image.Image) (fx, fy float64, ok bool, err error) {
	regions, err := d.Detect(img)
	if err != nil || len(regions) == 0 {
		return 0.5, 0.5, false, err
	}
	b := img.Bounds()
	r := regions[0].Rect
	fx = (float64(r.Min.X+r.Max.X)/2 - float64(b.Min.X)) / float64(b.Dx())
	fy = (float64(r.Min.Y+r.Max.Y)/2 - float64(b.Min.Y)) / float64(b.Dy())
	return fx, fy, true, nil
}

// Origin formats a focus point as a transform origin.
func Origin(fx, fy float64) string {
	return fmt.Sprintf("%.1f%% %.1f%%", fx*100, fy*100)
}

func byArea(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		ai := regions[i].Rect.Dx() * regions[i].Rect.Dy()
		aj := regions[j].Rect.Dx() * regions[j].Rect.Dy()
		return ai > aj
	})
}
