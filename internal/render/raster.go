package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"storyloom/internal/layout"
)

// positionedRun is a measured run of uniform style anchored at a baseline
// origin, ready to stamp.
type positionedRun struct {
	x      fixed.Int26_6
	y      fixed.Int26_6 // baseline
	text   string
	accent bool
}

// rasterizeLayer draws one layer's text block onto dst. The same glyph
// geometry is stamped three ways: blurred for each shadow layer, offset in
// solid stroke color for the stroke ring, then filled per-run on top.
func rasterizeLayer(dst *image.RGBA, spans []Span, style Style, fonts FontSet) error {
	bodyFace, err := face(fonts.Regular, style.FontSizePx)
	if err != nil {
		return fmt.Errorf("body face: %w", err)
	}
	defer bodyFace.Close()

	accentFont := fonts.Bold
	if accentFont == nil {
		accentFont = fonts.Regular
	}
	accentFace, err := face(accentFont, style.AccentSizePx)
	if err != nil {
		return fmt.Errorf("accent face: %w", err)
	}
	defer accentFace.Close()

	runs := layoutRuns(spans, style, bodyFace, accentFace)
	if len(runs) == 0 {
		return nil
	}

	bounds := image.Rect(0, 0, style.TargetSize, style.TargetSize)

	// One alpha mask of the whole block feeds both shadows and stroke.
	needMask := len(style.ShadowBlur) > 0 && style.ShadowColor.A > 0 || style.StrokeWidthPx > 0
	var mask *image.Alpha
	if needMask {
		mask = image.NewAlpha(bounds)
		for _, run := range runs {
			stampRun(mask, image.NewUniform(color.Alpha{A: 255}), run, style, bodyFace, accentFace)
		}
	}

	for _, shadow := range shadowLayers(style) {
		blurred := boxBlurAlpha(mask, shadow.Blur)
		offset := image.Pt(shadow.OffsetX, shadow.OffsetY)
		draw.DrawMask(dst, bounds.Add(offset), image.NewUniform(shadow.Color), image.Point{}, blurred, image.Point{}, draw.Over)
	}

	for _, offset := range strokeOffsets(style.StrokeWidthPx) {
		draw.DrawMask(dst, bounds.Add(offset), image.NewUniform(style.StrokeColor), image.Point{}, mask, image.Point{}, draw.Over)
	}

	for _, run := range runs {
		fill := style.Color
		if run.accent {
			fill = style.AccentColor
		}
		stampRun(dst, image.NewUniform(fill), run, style, bodyFace, accentFace)
	}
	return nil
}

// stampRun draws a run glyph by glyph so letter spacing applies between every
// pair of glyphs.
func stampRun(dst draw.Image, src image.Image, run positionedRun, style Style, bodyFace, accentFace font.Face) {
	f := bodyFace
	if run.accent {
		f = accentFace
	}
	drawer := font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: f,
		Dot:  fixed.Point26_6{X: run.x, Y: run.y},
	}
	spacing := fixed.Int26_6(style.LetterSpacingPx * 64)
	for _, r := range run.text {
		drawer.DrawString(string(r))
		drawer.Dot.X += spacing
	}
}

// layoutRuns wraps the spans into lines inside the style's box and positions
// each run at its baseline.
func layoutRuns(spans []Span, style Style, bodyFace, accentFace font.Face) []positionedRun {
	lines := wrapLines(spans, style, bodyFace, accentFace)
	if len(lines) == 0 {
		return nil
	}

	lineHeight := style.LineHeightPx
	total := len(lines) * lineHeight
	halfLeading := (lineHeight - style.FontSizePx) / 2

	// Half-leading compensation keeps the glyphs, not the line boxes, flush
	// with the safe-zone edge for edge-anchored boxes.
	var top int
	switch style.Box.VAlign {
	case layout.VAlignEnd:
		top = style.Box.Top + style.Box.Height - total + halfLeading
	case layout.VAlignCenter:
		top = style.Box.Top + (style.Box.Height-total)/2
	default:
		top = style.Box.Top - halfLeading
	}

	ascent := bodyFace.Metrics().Ascent

	var runs []positionedRun
	for i, line := range lines {
		lineWidth := line.width
		var x fixed.Int26_6
		switch style.TextAlign {
		case "center":
			x = fixed.I(style.Box.Left) + (fixed.I(style.Box.Width)-lineWidth)/2
		case "right":
			x = fixed.I(style.Box.Left+style.Box.Width) - lineWidth
		default:
			x = fixed.I(style.Box.Left)
		}
		baseline := fixed.I(top+i*lineHeight+halfLeading) + ascent

		for _, w := range line.words {
			runs = append(runs, positionedRun{x: x, y: baseline, text: w.text, accent: w.accent})
			x += w.width
		}
	}
	return runs
}

type word struct {
	text   string
	accent bool
	width  fixed.Int26_6
}

type line struct {
	words []word
	width fixed.Int26_6
}

// wrapLines splits spans into words, honors explicit newlines, and greedily
// wraps to the box width. A word wider than the box gets its own line rather
// than being broken mid-word.
func wrapLines(spans []Span, style Style, bodyFace, accentFace font.Face) []line {
	spacing := fixed.Int26_6(style.LetterSpacingPx * 64)
	measure := func(text string, accent bool) fixed.Int26_6 {
		f := bodyFace
		if accent {
			f = accentFace
		}
		var width fixed.Int26_6
		for _, r := range text {
			adv, ok := f.GlyphAdvance(r)
			if !ok {
				adv, _ = f.GlyphAdvance('?')
			}
			width += adv + spacing
		}
		return width
	}

	// Flatten spans into word tokens separated by spaces, with explicit line
	// breaks carried as nil markers.
	type token struct {
		word      *word
		lineBreak bool
	}
	var tokens []token
	for _, span := range spans {
		paragraphs := strings.Split(span.Text, "\n")
		for pi, paragraph := range paragraphs {
			if pi > 0 {
				tokens = append(tokens, token{lineBreak: true})
			}
			for _, raw := range strings.Fields(paragraph) {
				w := word{text: raw, accent: span.Accent, width: measure(raw, span.Accent)}
				tokens = append(tokens, token{word: &w})
			}
		}
	}

	maxWidth := fixed.I(style.Box.Width)

	var lines []line
	var current line
	flush := func() {
		if len(current.words) > 0 {
			lines = append(lines, current)
		}
		current = line{}
	}

	for _, tok := range tokens {
		if tok.lineBreak {
			flush()
			continue
		}
		w := *tok.word
		if len(current.words) == 0 {
			current.words = append(current.words, w)
			current.width = w.width
			continue
		}
		spaceWidth := measure(" ", w.accent)
		extended := current.width + spaceWidth + w.width
		if extended > maxWidth {
			flush()
			current.words = append(current.words, w)
			current.width = w.width
			continue
		}
		last := &current.words[len(current.words)-1]
		last.text += " "
		last.width += spaceWidth
		current.words = append(current.words, w)
		current.width = extended
	}
	flush()
	return lines
}
