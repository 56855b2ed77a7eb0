package manifest

import "encoding/json"

// Availability controls which commercial stage includes a page or cover.
type Availability struct {
	Prepay  bool `json:"prepay"`
	Postpay bool `json:"postpay"`
}

// UnmarshalJSON applies the authoring defaults: prepay off, postpay on.
func (a *Availability) UnmarshalJSON(data []byte) error {
	aux := struct {
		Prepay  *bool `json:"prepay"`
		Postpay *bool `json:"postpay"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Prepay = aux.Prepay != nil && *aux.Prepay
	a.Postpay = aux.Postpay == nil || *aux.Postpay
	return nil
}

// ShadowSpec describes the drop shadow applied to rendered text. Each blur
// radius produces one stacked shadow layer at the same offset.
type ShadowSpec struct {
	Color   string `json:"color"`   // "r,g,b" decimal components
	Opacity float64 `json:"opacity"`
	Offset  int    `json:"offset"`
	OffsetX *int   `json:"offset_x,omitempty"` // overrides Offset horizontally when set
	OffsetY *int   `json:"offset_y,omitempty"` // overrides Offset vertically when set
	Blur    []int  `json:"blur"`
}

// StyleSpec carries typographic style values. All fields are optional so the
// same type serves as typography defaults and as per-layer overrides; unset
// fields never override.
type StyleSpec struct {
	FontSize      string   `json:"font_size,omitempty"`   // point-suffixed ("14pt") or bare pixels ("42")
	LineHeight    string   `json:"line_height,omitempty"` // same convention as FontSize
	Color         string   `json:"color,omitempty"`       // hex
	FontWeight    *int     `json:"font_weight,omitempty"`
	LetterSpacing *float64 `json:"letter_spacing,omitempty"` // px
	StrokeWidth   *int     `json:"stroke_width,omitempty"`   // px
	StrokeColor   string   `json:"stroke_color,omitempty"`   // hex
	ShadowColor   string   `json:"shadow_color,omitempty"`   // "r,g,b"
	ShadowOpacity *float64 `json:"shadow_opacity,omitempty"`
	ShadowOffset  *int     `json:"shadow_offset,omitempty"`
	ShadowOffsetX *int     `json:"shadow_offset_x,omitempty"`
	ShadowOffsetY *int     `json:"shadow_offset_y,omitempty"`
	ShadowBlur    []int    `json:"shadow_blur,omitempty"`
}

// TypographySpec is the book-level (or per-cover) typography.
type TypographySpec struct {
	FontKey     string     `json:"font_key"`
	FontBoldKey string     `json:"font_bold_key,omitempty"`
	Body        StyleSpec  `json:"body"`
	Accent      StyleSpec  `json:"accent"`
	Shadow      ShadowSpec `json:"shadow"`
}

// TextLayer positions one templated text block on a page.
type TextLayer struct {
	TextKey      string `json:"text_key,omitempty"`
	TextTemplate string `json:"text_template,omitempty"`

	TemplateEngine string   `json:"template_engine,omitempty"`
	TemplateVars   []string `json:"template_vars,omitempty"`

	Position  string  `json:"position"`
	BoxWidth  float64 `json:"box_width"`
	TextAlign string  `json:"text_align,omitempty"`
	OffsetX   float64 `json:"offset_x,omitempty"` // points
	OffsetY   float64 `json:"offset_y,omitempty"` // points

	FontKey string     `json:"font_key,omitempty"` // per-layer override
	Style   *StyleSpec `json:"style,omitempty"`    // per-layer overrides
}

// Template returns the effective template text: the literal template when
// present, otherwise the lookup key itself.
func (l *TextLayer) Template() string {
	if l.TextTemplate != "" {
		return l.TextTemplate
	}
	return l.TextKey
}

// PageSpec describes one interior page.
type PageSpec struct {
	PageNum int    `json:"page_num"`
	BaseKey string `json:"base_key"`

	NeedsFaceSwap bool        `json:"needs_face_swap"`
	TextLayers    []TextLayer `json:"text_layers,omitempty"`

	Availability *Availability `json:"availability,omitempty"`

	Prompt         string `json:"prompt,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

// CoverSpec describes a front or back cover.
type CoverSpec struct {
	BaseKey        string          `json:"base_key"`
	NeedsFaceSwap  bool            `json:"needs_face_swap"`
	TextLayers     []TextLayer     `json:"text_layers,omitempty"`
	Availability   *Availability   `json:"availability,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	NegativePrompt string          `json:"negative_prompt,omitempty"`
	Typography     *TypographySpec `json:"typography,omitempty"` // per-cover override
}

// CoversSpec groups the optional covers and their shared typography override.
type CoversSpec struct {
	Front      *CoverSpec      `json:"front,omitempty"`
	Back       *CoverSpec      `json:"back,omitempty"`
	Typography *TypographySpec `json:"typography,omitempty"`
}

// OutputSpec describes the target raster geometry.
type OutputSpec struct {
	DPI        int     `json:"dpi"`
	PageSizePx int     `json:"page_size_px"`
	SafeZonePt float64 `json:"safe_zone_pt"`
}

// Manifest is the full declarative book description.
type Manifest struct {
	Slug       string         `json:"slug"`
	Typography TypographySpec `json:"typography"`
	Pages      []PageSpec     `json:"pages"`
	Covers     *CoversSpec    `json:"covers,omitempty"`
	Output     OutputSpec     `json:"output"`
}

// PageByNum returns the page spec with the given number, or nil.
func (m *Manifest) PageByNum(pageNum int) *PageSpec {
	for i := range m.Pages {
		if m.Pages[i].PageNum == pageNum {
			return &m.Pages[i]
		}
	}
	return nil
}

// Reserved page numbers used for cover artifacts in storage addressing.
const (
	FrontCoverPageNum = -1
	BackCoverPageNum  = -2
)
