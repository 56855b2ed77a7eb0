package render

import (
	"image"
	"image/color"
)

// strokeOffsets is the compass ring used to fake a text stroke: the glyph
// mask stamped in solid stroke color at sixteen offsets around the origin.
// Offsets that collapse to (0,0) at small widths are skipped.
func strokeOffsets(width int) []image.Point {
	if width <= 0 {
		return nil
	}
	w := width
	h := w / 2
	candidates := []image.Point{
		{-w, 0}, {w, 0}, {0, -w}, {0, w},
		{-w, -w}, {-w, w}, {w, -w}, {w, w},
		{-w, -h}, {-w, h}, {w, -h}, {w, h},
		{-h, -w}, {h, -w}, {-h, w}, {h, w},
	}
	out := make([]image.Point, 0, len(candidates))
	for _, pt := range candidates {
		if pt.X == 0 && pt.Y == 0 {
			continue
		}
		out = append(out, pt)
	}
	return out
}

// shadowLayer is one stacked drop shadow: shared offset and color, its own
// blur radius.
type shadowLayer struct {
	OffsetX int
	OffsetY int
	Blur    int
	Color   color.NRGBA
}

// shadowLayers expands the style's blur list into one layer per radius.
func shadowLayers(style Style) []shadowLayer {
	if style.ShadowColor.A == 0 {
		return nil
	}
	layers := make([]shadowLayer, 0, len(style.ShadowBlur))
	for _, blur := range style.ShadowBlur {
		layers = append(layers, shadowLayer{
			OffsetX: style.ShadowOffsetX,
			OffsetY: style.ShadowOffsetY,
			Blur:    blur,
			Color:   style.ShadowColor,
		})
	}
	return layers
}
