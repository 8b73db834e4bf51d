package scene

// Layout box, in the parent's coordinate space.
const (
	Left   = "left"
	Top    = "top"
	Width  = "width"
	Height = "height"
)

// Transform and appearance.
const (
	X               = "x"
	Y               = "y"
	Rotation        = "rotation"
	RotateX         = "rotateX"
	RotateY         = "rotateY"
	Scale           = "scale"
	ScaleX          = "scaleX"
	ScaleY          = "scaleY"
	SkewX           = "skewX"
	SkewY           = "skewY"
	Opacity         = "opacity"
	Blur            = "blur"
	Glow            = "glow"
	Brightness      = "brightness"
	Hue             = "hue"
	TransformOrigin = "transformOrigin"
	Content         = "content"
	Text            = "text"
)

// Corner radii as a percentage of the shorter side.
const (
	RadiusTL = "radius.tl"
	RadiusTR = "radius.tr"
	RadiusBR = "radius.br"
	RadiusBL = "radius.bl"
)

// Clip region. Rect clips are in node-local pixels, circle radius and inset are
// percentages, wedge angles are degrees clockwise from 12 o'clock.
const (
	ClipShape  = "clip.shape"
	ClipX      = "clip.x"
	ClipY      = "clip.y"
	ClipW      = "clip.w"
	ClipH      = "clip.h"
	ClipRadius = "clip.radius"
	ClipInset  = "clip.inset"
	ClipFrom   = "clip.from"
	ClipTo     = "clip.to"
)

// Clip shapes.
const (
	ShapeRect    = "rect"
	ShapeCircle  = "circle"
	ShapeWedge   = "wedge"
	ShapeInset   = "inset"
	ShapeDiamond = "diamond"
)

// Default returns the value a property has before anything sets it.
func Default(name string) Value {
	switch name {
	case Opacity, Scale, ScaleX, ScaleY, Brightness:
		return Num(1)
	case ClipRadius:
		return Num(100)
	case TransformOrigin:
		return Str("center")
	case ClipShape, Content, Text:
		return Str("")
	}
	return Num(0)
}

// Baseline is the neutral transform state a node is reset to.
func Baseline() Properties {
	return Properties{
		X:          Num(0),
		Y:          Num(0),
		Rotation:   Num(0),
		RotateX:    Num(0),
		RotateY:    Num(0),
		Scale:      Num(1),
		ScaleX:     Num(1),
		ScaleY:     Num(1),
		SkewX:      Num(0),
		SkewY:      Num(0),
		Opacity:    Num(1),
		Blur:       Num(0),
		Glow:       Num(0),
		Brightness: Num(1),
		Hue:        Num(0),
		ClipShape:  Str(""),
		ClipRadius: Num(100),
		ClipInset:  Num(0),
		RadiusTL:   Num(0),
		RadiusTR:   Num(0),
		RadiusBR:   Num(0),
		RadiusBL:   Num(0),
	}
}
