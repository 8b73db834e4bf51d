// Package renderer composites a scene snapshot into RGBA frames.
//
// Each node is drawn as its content image scaled into the layout box, masked
// by its clip and opacity, then mapped through its 2D transform. rotateX and
// rotateY are projected as a squash of the matching axis.
package renderer

import (
	"hash/fnv"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/choreo/internal/scene"
	"github.com/ivlev/choreo/internal/system"
)

// Renderer draws frames of a fixed size.
type Renderer struct {
	Width, Height int
	Background    color.RGBA
	// Assets maps content keys to images. Unknown keys are drawn as a flat
	// colour picked from the key; nodes without content use Fill.
	Assets map[string]image.Image
	Fill   color.RGBA

	pool *system.ImagePool
}

// New creates a renderer. pool may be shared between renderers.
func New(width, height int, assets map[string]image.Image, pool *system.ImagePool) *Renderer {
	if pool == nil {
		pool = system.NewImagePool()
	}
	if assets == nil {
		assets = make(map[string]image.Image)
	}
	return &Renderer{
		Width:      width,
		Height:     height,
		Background: color.RGBA{16, 16, 20, 255},
		Fill:       color.RGBA{120, 255, 170, 255},
		Assets:     assets,
		pool:       pool,
	}
}

// Frame composites nodes, which must be in painter order with parents first
// (as scene.Memory.Snapshot returns them). The root is not drawn. Release the
// frame when done.
func (r *Renderer) Frame(nodes []scene.NodeState) *image.RGBA {
	bounds := image.Rect(0, 0, r.Width, r.Height)
	dst := r.pool.Get(bounds)
	draw.Draw(dst, bounds, image.NewUniform(r.Background), image.Point{}, draw.Src)

	// origin of each node's layout space in frame coordinates
	offsets := make(map[scene.NodeID][2]float64, len(nodes))
	for _, n := range nodes {
		if n.Parent == 0 {
			offsets[n.ID] = [2]float64{}
			continue
		}
		po := offsets[n.Parent]
		ox := po[0] + n.Props.Float(scene.Left) + n.Props.Float(scene.X)
		oy := po[1] + n.Props.Float(scene.Top) + n.Props.Float(scene.Y)
		offsets[n.ID] = [2]float64{ox, oy}
		r.drawNode(dst, n.Props, po)
	}
	return dst
}

// Release returns a frame to the buffer pool.
func (r *Renderer) Release(img *image.RGBA) {
	r.pool.Put(img)
}

func (r *Renderer) drawNode(dst *image.RGBA, p scene.Properties, parent [2]float64) {
	w, h := p.Float(scene.Width), p.Float(scene.Height)
	opacity := clamp01(p.Float(scene.Opacity))
	if w < 1 || h < 1 || opacity == 0 {
		return
	}

	m, ok := transform(p, parent)
	if !ok {
		return
	}

	lw, lh := int(math.Ceil(w)), int(math.Ceil(h))
	local := r.pool.Get(image.Rect(0, 0, lw, lh))
	defer r.pool.Put(local)
	r.paintContent(local, p.Text(scene.Content))
	shade(local, p, opacity)

	draw.BiLinear.Transform(dst, m, local, local.Bounds(), draw.Over, nil)
}

// paintContent fills local with the node's content scaled to the box.
func (r *Renderer) paintContent(local *image.RGBA, content string) {
	b := local.Bounds()
	if img, ok := r.Assets[content]; ok {
		draw.BiLinear.Scale(local, b, img, img.Bounds(), draw.Src, nil)
		return
	}
	c := r.Fill
	if content != "" {
		c = keyColor(content)
	}
	draw.Draw(local, b, image.NewUniform(c), image.Point{}, draw.Src)
}

// keyColor derives a stable, fairly bright colour from a content key.
func keyColor(key string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(key))
	v := h.Sum32()
	return color.RGBA{uint8(64 + v&0x7f), uint8(64 + (v>>8)&0x7f), uint8(64 + (v>>16)&0x7f), 255}
}

// shade applies clip, opacity, brightness and glow to the premultiplied
// pixels of local in place.
func shade(local *image.RGBA, p scene.Properties, opacity float64) {
	b := local.Bounds()
	inside := clipFunc(p, float64(b.Dx()), float64(b.Dy()))
	bright := math.Max(0, p.Float(scene.Brightness))
	lift := clamp01(p.Float(scene.Glow)) * 64

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := local.PixOffset(x, y)
			px := local.Pix[i : i+4 : i+4]
			k := opacity
			if !inside(float64(x)+0.5, float64(y)+0.5) {
				k = 0
			}
			a := float64(px[3]) * k
			for c := 0; c < 3; c++ {
				v := float64(px[c])*k*bright + lift*a/255
				px[c] = uint8(math.Min(v, a))
			}
			px[3] = uint8(a)
		}
	}
}

// clipFunc reports whether a node-local point is visible.
func clipFunc(p scene.Properties, w, h float64) func(x, y float64) bool {
	cx, cy := w/2, h/2
	half := math.Hypot(w, h) / 2
	switch p.Text(scene.ClipShape) {
	case scene.ShapeRect:
		x0, y0 := p.Float(scene.ClipX), p.Float(scene.ClipY)
		x1, y1 := x0+p.Float(scene.ClipW), y0+p.Float(scene.ClipH)
		return func(x, y float64) bool { return x >= x0 && x < x1 && y >= y0 && y < y1 }
	case scene.ShapeCircle:
		r := p.Float(scene.ClipRadius) / 100 * half
		return func(x, y float64) bool { return math.Hypot(x-cx, y-cy) <= r }
	case scene.ShapeDiamond:
		k := 2 * p.Float(scene.ClipRadius) / 100
		return func(x, y float64) bool { return math.Abs(x-cx)/cx+math.Abs(y-cy)/cy <= k }
	case scene.ShapeInset:
		in := p.Float(scene.ClipInset) / 100
		return func(x, y float64) bool {
			return x >= w*in && x < w*(1-in) && y >= h*in && y < h*(1-in)
		}
	case scene.ShapeWedge:
		from, to := p.Float(scene.ClipFrom), p.Float(scene.ClipTo)
		r := p.Float(scene.ClipRadius) / 100 * half
		return func(x, y float64) bool {
			dx, dy := x-cx, y-cy
			if math.Hypot(dx, dy) > r {
				return false
			}
			a := math.Mod(math.Atan2(dx, -dy)*180/math.Pi+360, 360)
			return inArc(a, from, to)
		}
	}
	return func(float64, float64) bool { return true }
}

// inArc reports whether angle a lies on the clockwise arc from..to.
func inArc(a, from, to float64) bool {
	if to-from >= 360 {
		return true
	}
	from = math.Mod(math.Mod(from, 360)+360, 360)
	to = math.Mod(math.Mod(to, 360)+360, 360)
	if from <= to {
		return a >= from && a < to
	}
	return a >= from || a < to
}

// transform maps node-local pixels to frame pixels. ok is false for a
// degenerate (invisible) transform.
func transform(p scene.Properties, parent [2]float64) (f64.Aff3, bool) {
	ox, oy := Origin(p)

	sx := p.Float(scene.Scale) * p.Float(scene.ScaleX) * math.Cos(rad(p.Float(scene.RotateY)))
	sy := p.Float(scene.Scale) * p.Float(scene.ScaleY) * math.Cos(rad(p.Float(scene.RotateX)))
	if math.Abs(sx) < 1e-6 || math.Abs(sy) < 1e-6 {
		return f64.Aff3{}, false
	}

	m := translate(-ox, -oy)
	m = mul(scaleM(sx, sy), m)
	m = mul(skew(rad(p.Float(scene.SkewX)), rad(p.Float(scene.SkewY))), m)
	m = mul(rotate(rad(p.Float(scene.Rotation))), m)
	m = mul(translate(ox, oy), m)
	tx := parent[0] + p.Float(scene.Left) + p.Float(scene.X)
	ty := parent[1] + p.Float(scene.Top) + p.Float(scene.Y)
	return mul(translate(tx, ty), m), true
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// mul returns a∘b: apply b, then a.
func mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3], a[0]*b[1] + a[1]*b[4], a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3], a[3]*b[1] + a[4]*b[4], a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

func translate(x, y float64) f64.Aff3 { return f64.Aff3{1, 0, x, 0, 1, y} }
func scaleM(x, y float64) f64.Aff3    { return f64.Aff3{x, 0, 0, 0, y, 0} }
func skew(ax, ay float64) f64.Aff3    { return f64.Aff3{1, math.Tan(ax), 0, math.Tan(ay), 1, 0} }

func rotate(a float64) f64.Aff3 {
	s, c := math.Sincos(a)
	return f64.Aff3{c, -s, 0, s, c, 0}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
