package render

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"storyloom/internal/blob"
	"storyloom/internal/logging"
)

// FontSet holds a layer's resolved regular and optional bold font.
type FontSet struct {
	Regular *sfnt.Font
	Bold    *sfnt.Font // nil when no bold variant exists; accents fall back to regular
}

// FontCache loads and caches parsed fonts for one compositing run. It is not
// shared across jobs and holds no locks: compositing is single-threaded.
type FontCache struct {
	store blob.Store
	log   *slog.Logger
	fonts map[string]*sfnt.Font
	bold  map[string]*sfnt.Font // keyed by regular font key; nil entries cache misses
}

func NewFontCache(store blob.Store, log *slog.Logger) *FontCache {
	if log == nil {
		log = logging.NewNop()
	}
	return &FontCache{
		store: store,
		log:   log,
		fonts: make(map[string]*sfnt.Font),
		bold:  make(map[string]*sfnt.Font),
	}
}

func (c *FontCache) load(ctx context.Context, key string) (*sfnt.Font, error) {
	if f, ok := c.fonts[key]; ok {
		return f, nil
	}
	data, err := c.store.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load font %s: %w", key, err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", key, err)
	}
	c.fonts[key] = parsed
	return parsed, nil
}

// Resolve returns the effective fonts for a layer: the layer's font key
// overrides the typography's. The bold variant is the explicitly configured
// key when set, otherwise derived by the Regular->Bold filename convention; a
// missing bold asset logs and falls back rather than failing.
func (c *FontCache) Resolve(ctx context.Context, fontKey, fontBoldKey string) (FontSet, error) {
	if fontKey == "" {
		return FontSet{}, fmt.Errorf("font key is empty")
	}
	regular, err := c.load(ctx, fontKey)
	if err != nil {
		return FontSet{}, err
	}

	if cached, ok := c.bold[fontKey]; ok {
		return FontSet{Regular: regular, Bold: cached}, nil
	}

	boldKey := fontBoldKey
	if boldKey == "" {
		if base := path.Base(fontKey); strings.Contains(base, "Regular") {
			boldKey = strings.Replace(fontKey, "Regular", "Bold", 1)
		}
	}

	var bold *sfnt.Font
	if boldKey != "" {
		bold, err = c.load(ctx, boldKey)
		if err != nil {
			c.log.Debug("bold font variant not found", logging.String("font_key", boldKey))
			bold = nil
		}
	}
	c.bold[fontKey] = bold
	return FontSet{Regular: regular, Bold: bold}, nil
}

// face builds a pixel-sized face. Size is given in pixels, so the face is
// created at 72 DPI where points equal pixels.
func face(f *sfnt.Font, sizePx int) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(sizePx),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
