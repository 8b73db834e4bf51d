package renderer

import (
	"fmt"
	"strings"

	"github.com/ivlev/choreo/internal/scene"
)

// Origin resolves the transformOrigin of a node to node-local pixels.
// Keywords (center, top, bottom-right, ...) and "X% Y%" pairs are relative to
// the rect clip when one is set, so a fragment turns around its own piece.
func Origin(p scene.Properties) (float64, float64) {
	x, y := 0.0, 0.0
	w, h := p.Float(scene.Width), p.Float(scene.Height)
	if p.Text(scene.ClipShape) == scene.ShapeRect {
		x, y = p.Float(scene.ClipX), p.Float(scene.ClipY)
		w, h = p.Float(scene.ClipW), p.Float(scene.ClipH)
	}
	fx, fy := originFractions(p.Text(scene.TransformOrigin))
	return x + fx*w, y + fy*h
}

func originFractions(s string) (float64, float64) {
	s = strings.TrimSpace(s)
	var px, py float64
	if n, _ := fmt.Sscanf(s, "%f%% %f%%", &px, &py); n == 2 {
		return px / 100, py / 100
	}

	fx, fy := 0.5, 0.5
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == ' ' }) {
		switch part {
		case "left":
			fx = 0
		case "right":
			fx = 1
		case "top":
			fy = 0
		case "bottom":
			fy = 1
		}
	}
	return fx, fy
}
