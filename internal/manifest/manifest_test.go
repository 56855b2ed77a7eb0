package manifest_test

import (
	"strings"
	"testing"

	"storyloom/internal/manifest"
)

const sampleManifest = `{
  "slug": "woodland-tale",
  "typography": {
    "font_key": "fonts/Storybook-Regular.ttf",
    "body": {"font_size": "14pt", "line_height": "19pt", "color": "#ffffff"},
    "accent": {"font_size": "19pt"},
    "shadow": {"color": "0,0,0", "opacity": 0.5, "offset": 4, "blur": [0, 4]}
  },
  "pages": [
    {
      "page_num": 1,
      "base_key": "books/woodland-tale/pages/01.png",
      "needs_face_swap": true,
      "availability": {"prepay": true, "postpay": true},
      "prompt": "child in a forest clearing",
      "text_layers": [
        {
          "text_template": "Once upon a time, **{child_name}** set off.",
          "position": "bottom-center",
          "box_width": 0.8,
          "text_align": "center"
        }
      ]
    },
    {
      "page_num": 2,
      "base_key": "books/woodland-tale/pages/02.png"
    }
  ],
  "covers": {
    "front": {
      "base_key": "books/woodland-tale/covers/front.png",
      "needs_face_swap": true,
      "availability": {"prepay": true},
      "text_layers": [
        {"text_template": "{child_name}'s Adventure", "position": "top-center", "text_align": "center"}
      ]
    }
  },
  "output": {"dpi": 300, "page_size_px": 1000, "safe_zone_pt": 24}
}`

func TestDecodeAppliesDefaults(t *testing.T) {
	m, err := manifest.Decode([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	page2 := m.PageByNum(2)
	if page2 == nil {
		t.Fatal("expected page 2")
	}
	if page2.Availability.Prepay {
		t.Error("availability default: prepay should be false")
	}
	if !page2.Availability.Postpay {
		t.Error("availability default: postpay should be true")
	}

	cover := m.Covers.Front
	if !cover.Availability.Prepay {
		t.Error("front cover prepay flag lost")
	}
	if !cover.Availability.Postpay {
		t.Error("postpay omitted in JSON should default to true")
	}

	layer := m.PageByNum(1).TextLayers[0]
	if layer.TemplateEngine != "format" {
		t.Errorf("template engine default: got %q", layer.TemplateEngine)
	}
	if layer.BoxWidth != 0.8 {
		t.Errorf("box width: got %v", layer.BoxWidth)
	}

	coverLayer := cover.TextLayers[0]
	if coverLayer.BoxWidth != 0.8 {
		t.Errorf("cover layer box width default: got %v", coverLayer.BoxWidth)
	}
}

func TestDecodeRejectsDuplicatePageNums(t *testing.T) {
	doc := strings.Replace(sampleManifest, `"page_num": 2`, `"page_num": 1`, 1)
	if _, err := manifest.Decode([]byte(doc)); err == nil {
		t.Fatal("expected duplicate page_num error")
	}
}

func TestDecodeRejectsLayerWithBothSources(t *testing.T) {
	doc := strings.Replace(
		sampleManifest,
		`"text_template": "Once upon a time, **{child_name}** set off.",`,
		`"text_template": "both", "text_key": "also-both",`,
		1,
	)
	if _, err := manifest.Decode([]byte(doc)); err == nil {
		t.Fatal("expected error for layer with both text sources")
	}
}

func TestDecodeRejectsInvalidPosition(t *testing.T) {
	doc := strings.Replace(sampleManifest, `"position": "bottom-center"`, `"position": "lower-third"`, 1)
	if _, err := manifest.Decode([]byte(doc)); err == nil {
		t.Fatal("expected error for invalid position")
	}
}

func TestDecodeRejectsReservedPageNums(t *testing.T) {
	doc := strings.Replace(sampleManifest, `"page_num": 2`, `"page_num": -1`, 1)
	if _, err := manifest.Decode([]byte(doc)); err == nil {
		t.Fatal("expected error for reserved page_num")
	}
}

func TestTemplateFallsBackToKey(t *testing.T) {
	layer := manifest.TextLayer{TextKey: "greeting_line"}
	if layer.Template() != "greeting_line" {
		t.Fatalf("unexpected template %q", layer.Template())
	}
	layer.TextTemplate = "Hello {child_name}"
	if layer.Template() != "Hello {child_name}" {
		t.Fatalf("unexpected template %q", layer.Template())
	}
}

func TestOutputDefaults(t *testing.T) {
	doc := strings.Replace(sampleManifest, `"output": {"dpi": 300, "page_size_px": 1000, "safe_zone_pt": 24}`, `"output": {}`, 1)
	m, err := manifest.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Output.DPI != 300 || m.Output.PageSizePx != 2551 || m.Output.SafeZonePt != 24 {
		t.Fatalf("unexpected output defaults: %+v", m.Output)
	}
}
