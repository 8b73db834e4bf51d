package analyzer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ContrastDetector finds regions with Sobel edges, dilation and connected
// components on a downscaled grey copy of the page.
type ContrastDetector struct {
	MaxSide       int     // Working resolution of the longer side
	MinArea       float64 // Smallest region kept, as a fraction of the page
	EdgeThreshold float64 // Gradient magnitude threshold
	Dilate        int     // Dilation radius in working pixels
}

// NewContrastDetector creates a contrast-based detector with default settings
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MaxSide:       240,
		MinArea:       0.002,
		EdgeThreshold: 60,
		Dilate:        2,
	}
}

// Detect returns regions in img coordinates, largest first.
func (d *ContrastDetector) Detect(img image.Image) ([]Region, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}
	gray, k := d.shrink(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()

	edges := sobel(gray, d.EdgeThreshold)
	mask := dilate(edges, w, h, d.Dilate)

	var out []Region
	minArea := d.MinArea * float64(w*h)
	for _, c := range components(mask, w, h) {
		area := float64(c.rect.Dx() * c.rect.Dy())
		if area < minArea {
			continue
		}
		r := image.Rect(
			b.Min.X+int(math.Floor(float64(c.rect.Min.X)/k)),
			b.Min.Y+int(math.Floor(float64(c.rect.Min.Y)/k)),
			b.Min.X+int(math.Ceil(float64(c.rect.Max.X)/k)),
			b.Min.Y+int(math.Ceil(float64(c.rect.Max.Y)/k)),
		).Intersect(b)
		out = append(out, Region{Rect: r, Score: c.edges / area})
	}
	byArea(out)
	return out, nil
}

// shrink returns a grey copy no larger than MaxSide and the scale applied.
func (d *ContrastDetector) shrink(img image.Image) (*image.Gray, float64) {
	b := img.Bounds()
	k := 1.0
	if side := max(b.Dx(), b.Dy()); d.MaxSide > 0 && side > d.MaxSide {
		k = float64(d.MaxSide) / float64(side)
	}
	w := max(1, int(math.Round(float64(b.Dx())*k)))
	h := max(1, int(math.Round(float64(b.Dy())*k)))
	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, b, draw.Src, nil)
	return gray, float64(w) / float64(b.Dx())
}

func sobel(gray *image.Gray, threshold float64) []bool {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	at := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }
	edges := make([]bool, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			edges[y*w+x] = math.Hypot(gx, gy) > threshold
		}
	}
	return edges
}

// dilate grows every set pixel into a (2r+1) square so nearby edges join.
func dilate(src []bool, w, h, r int) []bool {
	if r <= 0 {
		return src
	}
	out := make([]bool, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !src[y*w+x] {
				continue
			}
			for yy := max(0, y-r); yy <= min(h-1, y+r); yy++ {
				for xx := max(0, x-r); xx <= min(w-1, x+r); xx++ {
					out[yy*w+xx] = true
				}
			}
		}
	}
	return out
}

type component struct {
	rect  image.Rectangle
	edges float64
}

// components returns the bounding box of every 4-connected set region.
func components(mask []bool, w, h int) []component {
	seen := make([]bool, len(mask))
	var out []component
	var stack []int
	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		c := component{rect: image.Rect(start%w, start/w, start%w+1, start/w+1)}
		stack = append(stack[:0], start)
		seen[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			c.edges++
			c.rect = c.rect.Union(image.Rect(x, y, x+1, y+1))
			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				if n[0] < 0 || n[0] >= w || n[1] < 0 || n[1] >= h {
					continue
				}
				j := n[1]*w + n[0]
				if mask[j] && !seen[j] {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
		out = append(out, c)
	}
	return out
}
