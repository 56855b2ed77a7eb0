package render

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"storyloom/internal/layout"
	"storyloom/internal/logging"
	"storyloom/internal/manifest"
	"storyloom/internal/services"
)

// Compositor renders text layers over backgrounds. Font assets come from the
// blob store through a per-run cache; construct one Compositor per stage run.
type Compositor struct {
	fonts *FontCache
	log   *slog.Logger
}

func NewCompositor(fonts *FontCache, log *slog.Logger) *Compositor {
	if log == nil {
		log = logging.NewNop()
	}
	return &Compositor{fonts: fonts, log: log}
}

// Params carries the per-page inputs for one compositing call.
type Params struct {
	Layers       []manifest.TextLayer
	TemplateVars map[string]string
	OutputPx     int
	Typography   manifest.TypographySpec
	DPI          int
	SafeZonePt   float64
}

// CompositeLayers renders each layer in order onto the running composite.
// Every layer draws onto the previous layer's output, so overlapping layers
// stack deterministically. Zero layers returns the background unchanged.
func (c *Compositor) CompositeLayers(ctx context.Context, background image.Image, params Params) (image.Image, error) {
	if len(params.Layers) == 0 {
		return background, nil
	}

	composite := NormalizeSize(background, params.OutputPx)

	for i, textLayer := range params.Layers {
		text, err := RenderTemplate(textLayer, params.TemplateVars)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "", "composite", fmt.Sprintf("layer %d template", i), err)
		}
		spans := ParseMarkup(text)

		box, err := layout.ResolveBox(
			textLayer.Position,
			textLayer.BoxWidth,
			textLayer.OffsetX,
			textLayer.OffsetY,
			params.OutputPx,
			params.SafeZonePt,
			params.DPI,
		)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "", "composite", fmt.Sprintf("layer %d geometry", i), err)
		}

		style, err := MergeStyle(params.Typography, textLayer, box, params.OutputPx, params.DPI)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "", "composite", fmt.Sprintf("layer %d style", i), err)
		}

		fontKey := textLayer.FontKey
		if fontKey == "" {
			fontKey = params.Typography.FontKey
		}
		if fontKey == "" {
			return nil, fmt.Errorf("%w: no font configured for layer %d", services.ErrConfiguration, i)
		}
		fonts, err := c.fonts.Resolve(ctx, fontKey, params.Typography.FontBoldKey)
		if err != nil {
			return nil, err
		}

		if err := rasterizeLayer(composite, spans, style, fonts); err != nil {
			return nil, fmt.Errorf("rasterize layer %d: %w", i, err)
		}

		c.log.Debug("rendered text layer",
			logging.Int("layer", i),
			logging.String("position", textLayer.Position),
			logging.Int("output_px", params.OutputPx),
		)
	}
	return composite, nil
}
