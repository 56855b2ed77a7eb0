package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"storyloom/internal/layout"
	"storyloom/internal/manifest"
	"storyloom/internal/services"
)

// Style is the fully resolved, typed style for one text layer. Override
// precedence is fixed at merge time: typography defaults, then layer style
// overrides, then computed geometry (which overrides are never allowed to
// touch).
type Style struct {
	TargetSize int

	FontSizePx      int
	LineHeightPx    int
	Color           color.NRGBA
	FontWeight      int
	LetterSpacingPx float64

	StrokeWidthPx int
	StrokeColor   color.NRGBA

	ShadowColor   color.NRGBA // alpha premixed from opacity
	ShadowOffsetX int
	ShadowOffsetY int
	ShadowBlur    []int

	AccentSizePx int
	AccentColor  color.NRGBA

	Box       layout.Box
	TextAlign string
}

// Body style defaults applied when typography leaves fields unset.
const (
	defaultFontSize      = "14pt"
	defaultLineHeight    = "19pt"
	defaultAccentSize    = "19pt"
	defaultBodyColor     = "#ffffff"
	defaultFontWeight    = 400
	defaultLetterSpacing = 0.5
	defaultStrokeColor   = "#ffffff"
)

// MergeStyle builds the layer's effective style. outputPx and dpi come from
// the manifest's output spec; box is the already-resolved pixel geometry.
func MergeStyle(typo manifest.TypographySpec, layer manifest.TextLayer, box layout.Box, outputPx, dpi int) (Style, error) {
	ptToPx := float64(dpi) / 72

	style := Style{
		TargetSize:      outputPx,
		FontWeight:      defaultFontWeight,
		LetterSpacingPx: defaultLetterSpacing,
		Box:             box,
		TextAlign:       layer.TextAlign,
	}

	body := typo.Body
	var err error
	if style.FontSizePx, err = ptVal(valueOr(body.FontSize, defaultFontSize), ptToPx); err != nil {
		return Style{}, fmt.Errorf("%w: body font_size: %v", services.ErrValidation, err)
	}
	if style.LineHeightPx, err = ptVal(valueOr(body.LineHeight, defaultLineHeight), ptToPx); err != nil {
		return Style{}, fmt.Errorf("%w: body line_height: %v", services.ErrValidation, err)
	}
	if style.Color, err = parseHexColor(valueOr(body.Color, defaultBodyColor)); err != nil {
		return Style{}, fmt.Errorf("%w: body color: %v", services.ErrValidation, err)
	}
	if body.FontWeight != nil {
		style.FontWeight = *body.FontWeight
	}
	if body.LetterSpacing != nil {
		style.LetterSpacingPx = *body.LetterSpacing
	}
	if body.StrokeWidth != nil {
		style.StrokeWidthPx = *body.StrokeWidth
	}
	if style.StrokeColor, err = parseHexColor(valueOr(body.StrokeColor, defaultStrokeColor)); err != nil {
		return Style{}, fmt.Errorf("%w: body stroke_color: %v", services.ErrValidation, err)
	}

	shadow := typo.Shadow
	shadowColor := shadow.Color
	shadowOpacity := shadow.Opacity
	offsetX := shadow.Offset
	offsetY := shadow.Offset
	if shadow.OffsetX != nil {
		offsetX = *shadow.OffsetX
	}
	if shadow.OffsetY != nil {
		offsetY = *shadow.OffsetY
	}
	shadowBlur := append([]int(nil), shadow.Blur...)

	// Accent defaults: size from accent spec, color falls back to body color.
	if style.AccentSizePx, err = ptVal(valueOr(typo.Accent.FontSize, defaultAccentSize), ptToPx); err != nil {
		return Style{}, fmt.Errorf("%w: accent font_size: %v", services.ErrValidation, err)
	}
	accentColor := typo.Accent.Color

	// Layer overrides win over typography; geometry stays computed-only.
	if layer.Style != nil {
		over := layer.Style
		if over.FontSize != "" {
			if style.FontSizePx, err = ptVal(over.FontSize, ptToPx); err != nil {
				return Style{}, fmt.Errorf("%w: layer font_size: %v", services.ErrValidation, err)
			}
		}
		if over.LineHeight != "" {
			if style.LineHeightPx, err = ptVal(over.LineHeight, ptToPx); err != nil {
				return Style{}, fmt.Errorf("%w: layer line_height: %v", services.ErrValidation, err)
			}
		}
		if over.Color != "" {
			if style.Color, err = parseHexColor(over.Color); err != nil {
				return Style{}, fmt.Errorf("%w: layer color: %v", services.ErrValidation, err)
			}
		}
		if over.FontWeight != nil {
			style.FontWeight = *over.FontWeight
		}
		if over.LetterSpacing != nil {
			style.LetterSpacingPx = *over.LetterSpacing
		}
		if over.StrokeWidth != nil {
			style.StrokeWidthPx = *over.StrokeWidth
		}
		if over.StrokeColor != "" {
			if style.StrokeColor, err = parseHexColor(over.StrokeColor); err != nil {
				return Style{}, fmt.Errorf("%w: layer stroke_color: %v", services.ErrValidation, err)
			}
		}
		if over.ShadowColor != "" {
			shadowColor = over.ShadowColor
		}
		if over.ShadowOpacity != nil {
			shadowOpacity = *over.ShadowOpacity
		}
		if over.ShadowOffset != nil {
			offsetX = *over.ShadowOffset
			offsetY = *over.ShadowOffset
		}
		if over.ShadowOffsetX != nil {
			offsetX = *over.ShadowOffsetX
		}
		if over.ShadowOffsetY != nil {
			offsetY = *over.ShadowOffsetY
		}
		if over.ShadowBlur != nil {
			shadowBlur = append([]int(nil), over.ShadowBlur...)
		}
	}

	if style.ShadowColor, err = parseShadowColor(shadowColor, shadowOpacity); err != nil {
		return Style{}, fmt.Errorf("%w: shadow color: %v", services.ErrValidation, err)
	}
	style.ShadowOffsetX = offsetX
	style.ShadowOffsetY = offsetY
	style.ShadowBlur = shadowBlur

	if accentColor != "" {
		if style.AccentColor, err = parseHexColor(accentColor); err != nil {
			return Style{}, fmt.Errorf("%w: accent color: %v", services.ErrValidation, err)
		}
	} else {
		style.AccentColor = style.Color
	}

	if style.TextAlign == "" {
		style.TextAlign = "left"
	}
	return style, nil
}

// ptVal parses a point-suffixed value ("14pt") into pixels, or passes a bare
// numeric value through as pixels.
func ptVal(value string, ptToPx float64) (int, error) {
	trimmed := strings.TrimSpace(value)
	if strings.HasSuffix(trimmed, "pt") {
		pts, err := strconv.ParseFloat(strings.TrimSuffix(trimmed, "pt"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid point value %q", value)
		}
		return int(math.Round(pts * ptToPx)), nil
	}
	px, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid pixel value %q", value)
	}
	return int(px), nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func parseHexColor(value string) (color.NRGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", value)
	}
	parsed, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", value)
	}
	return color.NRGBA{
		R: uint8(parsed >> 16),
		G: uint8(parsed >> 8),
		B: uint8(parsed),
		A: 255,
	}, nil
}

// parseShadowColor parses the "r,g,b" decimal convention and premixes the
// opacity into the alpha channel.
func parseShadowColor(value string, opacity float64) (color.NRGBA, error) {
	parts := strings.Split(strings.TrimSpace(value), ",")
	if len(parts) != 3 {
		return color.NRGBA{}, fmt.Errorf("invalid shadow color %q", value)
	}
	var rgb [3]uint8
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 255 {
			return color.NRGBA{}, fmt.Errorf("invalid shadow color %q", value)
		}
		rgb[i] = uint8(n)
	}
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: uint8(math.Round(opacity * 255))}, nil
}
