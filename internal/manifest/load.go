package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storyloom/internal/layout"
)

// BlobReader is the subset of the blob store contract needed to fetch
// manifest documents.
type BlobReader interface {
	Read(ctx context.Context, locator string) ([]byte, error)
}

// Key returns the blob store key for a book's manifest.
func Key(slug string) string {
	return "manifests/" + slug + ".json"
}

// Load fetches and decodes the manifest for a book slug.
func Load(ctx context.Context, store BlobReader, slug string) (*Manifest, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("manifest: slug is empty")
	}
	data, err := store.Read(ctx, Key(slug))
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", Key(slug), err)
	}
	return Decode(data)
}

// Decode parses and validates a manifest document.
func Decode(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	m.normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) normalize() {
	m.Slug = strings.TrimSpace(m.Slug)
	if m.Output.DPI == 0 {
		m.Output.DPI = 300
	}
	if m.Output.PageSizePx == 0 {
		m.Output.PageSizePx = 2551
	}
	if m.Output.SafeZonePt == 0 {
		m.Output.SafeZonePt = 24
	}
	normalizeTypography(&m.Typography)
	for i := range m.Pages {
		normalizePage(&m.Pages[i])
	}
	if m.Covers != nil {
		for _, cover := range []*CoverSpec{m.Covers.Front, m.Covers.Back} {
			if cover == nil {
				continue
			}
			normalizeCover(cover)
		}
		if m.Covers.Typography != nil {
			normalizeTypography(m.Covers.Typography)
		}
	}
}

func normalizeTypography(t *TypographySpec) {
	if t.Shadow.Color == "" {
		t.Shadow.Color = "0,0,0"
	}
	if t.Shadow.Opacity == 0 {
		t.Shadow.Opacity = 0.5
	}
	if t.Shadow.Offset == 0 {
		t.Shadow.Offset = 4
	}
	if t.Shadow.Blur == nil {
		t.Shadow.Blur = []int{0, 4}
	}
	if t.Body.FontSize == "" {
		t.Body.FontSize = "14pt"
	}
	if t.Body.LineHeight == "" {
		t.Body.LineHeight = "19pt"
	}
	if t.Body.Color == "" {
		t.Body.Color = "#ffffff"
	}
	if t.Accent.FontSize == "" {
		t.Accent.FontSize = "19pt"
	}
}

func normalizePage(p *PageSpec) {
	if p.Availability == nil {
		p.Availability = &Availability{Postpay: true}
	}
	for i := range p.TextLayers {
		normalizeLayer(&p.TextLayers[i])
	}
}

func normalizeCover(c *CoverSpec) {
	if c.Availability == nil {
		c.Availability = &Availability{Postpay: true}
	}
	for i := range c.TextLayers {
		normalizeLayer(&c.TextLayers[i])
	}
	if c.Typography != nil {
		normalizeTypography(c.Typography)
	}
}

func normalizeLayer(l *TextLayer) {
	if l.TemplateEngine == "" {
		l.TemplateEngine = "format"
	}
	if l.TemplateVars == nil {
		l.TemplateVars = []string{"child_name"}
	}
	if l.BoxWidth == 0 {
		l.BoxWidth = 0.8
	}
	if l.TextAlign == "" {
		l.TextAlign = "left"
	}
}

// Validate checks manifest invariants.
func (m *Manifest) Validate() error {
	if m.Slug == "" {
		return fmt.Errorf("manifest: slug is required")
	}
	if len(m.Pages) == 0 {
		return fmt.Errorf("manifest %s: at least one page is required", m.Slug)
	}
	seen := make(map[int]struct{}, len(m.Pages))
	for i := range m.Pages {
		p := &m.Pages[i]
		if _, dup := seen[p.PageNum]; dup {
			return fmt.Errorf("manifest %s: duplicate page_num %d", m.Slug, p.PageNum)
		}
		seen[p.PageNum] = struct{}{}
		if p.PageNum < 1 {
			return fmt.Errorf("manifest %s: page_num %d must be positive (negative values are reserved for covers)", m.Slug, p.PageNum)
		}
		if p.BaseKey == "" {
			return fmt.Errorf("manifest %s: page %d: base_key is required", m.Slug, p.PageNum)
		}
		for j := range p.TextLayers {
			if err := validateLayer(&p.TextLayers[j]); err != nil {
				return fmt.Errorf("manifest %s: page %d: layer %d: %w", m.Slug, p.PageNum, j, err)
			}
		}
	}
	if m.Covers != nil {
		for _, entry := range []struct {
			name string
			spec *CoverSpec
		}{{"front", m.Covers.Front}, {"back", m.Covers.Back}} {
			if entry.spec == nil {
				continue
			}
			if entry.spec.BaseKey == "" {
				return fmt.Errorf("manifest %s: %s cover: base_key is required", m.Slug, entry.name)
			}
			for j := range entry.spec.TextLayers {
				if err := validateLayer(&entry.spec.TextLayers[j]); err != nil {
					return fmt.Errorf("manifest %s: %s cover: layer %d: %w", m.Slug, entry.name, j, err)
				}
			}
		}
	}
	return nil
}

func validateLayer(l *TextLayer) error {
	hasKey := l.TextKey != ""
	hasTemplate := l.TextTemplate != ""
	if hasKey == hasTemplate {
		return fmt.Errorf("exactly one of text_key or text_template must be set")
	}
	if l.TemplateEngine != "format" {
		return fmt.Errorf("unsupported template_engine %q", l.TemplateEngine)
	}
	if _, err := layout.ParsePosition(l.Position); err != nil {
		return err
	}
	if l.BoxWidth <= 0 || l.BoxWidth > 1 {
		return fmt.Errorf("box_width %v out of range (0, 1]", l.BoxWidth)
	}
	switch l.TextAlign {
	case "left", "center", "right":
	default:
		return fmt.Errorf("unsupported text_align %q", l.TextAlign)
	}
	return nil
}
