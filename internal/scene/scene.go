// Package scene is the binding between the choreography engine and a host scene.
//
// The engine never owns a host node's lifecycle. It creates and removes only the
// fragments it materializes, and otherwise mutates properties through Scene.
package scene

import (
	"errors"
	"fmt"
	"strconv"
)

// NodeID addresses a node inside a Scene. Zero is never a valid node.
type NodeID uint64

// ErrNodeNotFound is returned when a node id is unknown or already removed.
var ErrNodeNotFound = errors.New("node not found")

// Scene is the minimal capability the engine requires from a host.
type Scene interface {
	CreateChild(parent NodeID) (NodeID, error)
	Remove(id NodeID) error
	SetProperties(id NodeID, props Properties) error
	Property(id NodeID, name string) (Value, bool)
	Parent(id NodeID) (NodeID, bool)
	Bounds(id NodeID) (Rect, error)
}

// Rect is a layout box in the parent's coordinate space.
type Rect struct {
	X, Y, W, H float64
}

// Center returns the middle point of the box.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Empty reports whether the box has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Value is either a number or a string. Numbers are interpolated by timelines,
// strings are applied discretely.
type Value struct {
	num   float64
	str   string
	isStr bool
}

// Num returns a numeric value.
func Num(v float64) Value { return Value{num: v} }

// Str returns a string value.
func Str(s string) Value { return Value{str: s, isStr: true} }

// IsText reports whether v holds a string.
func (v Value) IsText() bool { return v.isStr }

// Float returns the numeric payload, or 0 for strings.
func (v Value) Float() float64 {
	if v.isStr {
		return 0
	}
	return v.num
}

// Text returns the string payload, or the formatted number.
func (v Value) Text() string {
	if v.isStr {
		return v.str
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

func (v Value) String() string {
	if v.isStr {
		return fmt.Sprintf("%q", v.str)
	}
	return v.Text()
}

// Properties maps property names to values.
type Properties map[string]Value

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge copies every entry of src into p.
func (p Properties) Merge(src Properties) {
	for k, v := range src {
		p[k] = v
	}
}

// Float returns the numeric value of name, falling back to Default.
func (p Properties) Float(name string) float64 {
	if v, ok := p[name]; ok && !v.IsText() {
		return v.num
	}
	return Default(name).Float()
}

// Text returns the string value of name or "".
func (p Properties) Text(name string) string {
	if v, ok := p[name]; ok {
		return v.Text()
	}
	return ""
}
