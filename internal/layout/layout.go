package layout

import (
	"fmt"
	"math"
	"strings"
)

// VAlign describes how text distributes vertically inside its box.
type VAlign string

const (
	VAlignStart  VAlign = "start"
	VAlignCenter VAlign = "center"
	VAlignEnd    VAlign = "end"
)

// Position is a validated grid cell literal such as "bottom-center".
type Position struct {
	vertical   string
	horizontal string
}

var validVerticals = map[string]struct{}{"top": {}, "middle": {}, "bottom": {}}

var validHorizontals = map[string]struct{}{"left": {}, "center": {}, "right": {}}

// ParsePosition validates a grid cell literal.
func ParsePosition(value string) (Position, error) {
	parts := strings.SplitN(strings.TrimSpace(value), "-", 2)
	if len(parts) != 2 {
		return Position{}, fmt.Errorf("invalid position %q: expected <vertical>-<horizontal>", value)
	}
	if _, ok := validVerticals[parts[0]]; !ok {
		return Position{}, fmt.Errorf("invalid position %q: unknown vertical %q", value, parts[0])
	}
	if _, ok := validHorizontals[parts[1]]; !ok {
		return Position{}, fmt.Errorf("invalid position %q: unknown horizontal %q", value, parts[1])
	}
	return Position{vertical: parts[0], horizontal: parts[1]}, nil
}

// String returns the canonical literal form.
func (p Position) String() string {
	return p.vertical + "-" + p.horizontal
}

// Box is a resolved pixel bounding box for one text layer.
type Box struct {
	Top    int
	Left   int
	Width  int
	Height int
	VAlign VAlign
}

// ResolveBox maps a grid position, fractional box width, and fine-tune
// offsets (points) onto pixel coordinates for a square page.
//
// The safe-zone margin is converted from points to pixels at dpi/72. Top
// boxes span the full interior height; middle and bottom boxes get the
// middle and bottom halves respectively. Offsets are applied after anchor
// placement and may push the box outside the safe zone; no clamping is done.
func ResolveBox(position string, boxWidth, offsetXPt, offsetYPt float64, pageSizePx int, safeZonePt float64, dpi int) (Box, error) {
	pos, err := ParsePosition(position)
	if err != nil {
		return Box{}, err
	}
	if boxWidth <= 0 || boxWidth > 1 {
		return Box{}, fmt.Errorf("box width %v out of range (0, 1]", boxWidth)
	}
	if pageSizePx <= 0 {
		return Box{}, fmt.Errorf("page size %d must be positive", pageSizePx)
	}
	if dpi <= 0 {
		return Box{}, fmt.Errorf("dpi %d must be positive", dpi)
	}

	ptToPx := float64(dpi) / 72
	safePx := int(math.Round(safeZonePt * ptToPx))

	safeW := pageSizePx - 2*safePx
	safeH := pageSizePx - 2*safePx

	boxW := int(math.Round(float64(safeW) * boxWidth))

	var x int
	switch pos.horizontal {
	case "left":
		x = safePx
	case "center":
		x = safePx + (safeW-boxW)/2
	default:
		x = safePx + safeW - boxW
	}

	var y, boxH int
	var valign VAlign
	switch pos.vertical {
	case "top":
		y = safePx
		boxH = safeH
		valign = VAlignStart
	case "middle":
		y = safePx + safeH/4
		boxH = safeH / 2
		valign = VAlignCenter
	default:
		y = safePx + safeH/2
		boxH = safeH / 2
		valign = VAlignEnd
	}

	x += int(math.Round(offsetXPt * ptToPx))
	y += int(math.Round(offsetYPt * ptToPx))

	return Box{Top: y, Left: x, Width: boxW, Height: boxH, VAlign: valign}, nil
}
