package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"storyloom/internal/blob"
	"storyloom/internal/manifest"
	"storyloom/internal/services"
)

const (
	testFontKey     = "fonts/Go-Regular.ttf"
	testFontBoldKey = "fonts/Go-Bold.ttf"
)

func newTestCompositor(t *testing.T) *Compositor {
	t.Helper()
	store := blob.NewMemoryStore()
	ctx := context.Background()
	if _, err := store.Write(ctx, testFontKey, goregular.TTF, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write(ctx, testFontBoldKey, gobold.TTF, nil); err != nil {
		t.Fatal(err)
	}
	return NewCompositor(NewFontCache(store, nil), nil)
}

func testParams(layers ...manifest.TextLayer) Params {
	return Params{
		Layers:       layers,
		TemplateVars: map[string]string{"child_name": "Mira"},
		OutputPx:     400,
		DPI:          150,
		SafeZonePt:   24,
		Typography: manifest.TypographySpec{
			FontKey:     testFontKey,
			FontBoldKey: testFontBoldKey,
			Body: manifest.StyleSpec{
				FontSize:   "14pt",
				LineHeight: "19pt",
				Color:      "#ffffff",
			},
			Accent: manifest.StyleSpec{FontSize: "19pt", Color: "#ffd700"},
			Shadow: manifest.ShadowSpec{Color: "0,0,0", Opacity: 0.5, Offset: 2, Blur: []int{0, 2}},
		},
	}
}

func solidBackground(size int, c color.NRGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = 255
	}
	return img
}

func TestCompositeZeroLayersIsIdentity(t *testing.T) {
	comp := newTestCompositor(t)
	bg := solidBackground(400, color.NRGBA{R: 20, G: 40, B: 60})

	out, err := comp.CompositeLayers(context.Background(), bg, testParams())
	if err != nil {
		t.Fatal(err)
	}
	if out != image.Image(bg) {
		t.Fatal("zero layers must return the input image unchanged")
	}
}

func TestCompositeDrawsText(t *testing.T) {
	comp := newTestCompositor(t)
	bg := solidBackground(400, color.NRGBA{R: 20, G: 40, B: 60})

	layer := manifest.TextLayer{
		TextTemplate: "Hello **{child_name}**!",
		Position:     "bottom-center",
		BoxWidth:     0.8,
		TextAlign:    "center",
	}
	out, err := comp.CompositeLayers(context.Background(), bg, testParams(layer))
	if err != nil {
		t.Fatal(err)
	}

	rgba, ok := out.(*image.RGBA)
	if !ok {
		t.Fatalf("output type %T", out)
	}
	if !imagesDiffer(rgba, solidBackground(400, color.NRGBA{R: 20, G: 40, B: 60})) {
		t.Fatal("compositing a text layer left the background untouched")
	}
}

func TestCompositeIsOrderSensitive(t *testing.T) {
	comp := newTestCompositor(t)

	// Two overlapping layers in contrasting colors on the same grid cell.
	red := manifest.TextLayer{
		TextTemplate: "OVERLAP OVERLAP OVERLAP",
		Position:     "middle-center",
		BoxWidth:     0.9,
		Style:        &manifest.StyleSpec{Color: "#ff0000", FontSize: "40"},
	}
	blue := manifest.TextLayer{
		TextTemplate: "OVERLAP OVERLAP OVERLAP",
		Position:     "middle-center",
		BoxWidth:     0.9,
		Style:        &manifest.StyleSpec{Color: "#0000ff", FontSize: "40"},
	}

	bg := func() *image.RGBA { return solidBackground(400, color.NRGBA{R: 200, G: 200, B: 200}) }

	first, err := comp.CompositeLayers(context.Background(), bg(), testParams(red, blue))
	if err != nil {
		t.Fatal(err)
	}
	second, err := comp.CompositeLayers(context.Background(), bg(), testParams(blue, red))
	if err != nil {
		t.Fatal(err)
	}
	if !imagesDiffer(first.(*image.RGBA), second.(*image.RGBA)) {
		t.Fatal("swapping overlapping layers should change the composite")
	}
}

func TestCompositeDeterministic(t *testing.T) {
	comp := newTestCompositor(t)
	layer := manifest.TextLayer{
		TextTemplate: "Hello {child_name}",
		Position:     "top-left",
		BoxWidth:     0.8,
	}
	bg := func() *image.RGBA { return solidBackground(400, color.NRGBA{R: 10, G: 10, B: 10}) }

	a, err := comp.CompositeLayers(context.Background(), bg(), testParams(layer))
	if err != nil {
		t.Fatal(err)
	}
	b, err := comp.CompositeLayers(context.Background(), bg(), testParams(layer))
	if err != nil {
		t.Fatal(err)
	}
	if imagesDiffer(a.(*image.RGBA), b.(*image.RGBA)) {
		t.Fatal("identical inputs must produce identical composites")
	}
}

func TestCompositeUndefinedVariableFails(t *testing.T) {
	comp := newTestCompositor(t)
	layer := manifest.TextLayer{
		TextTemplate: "Hello {nobody}",
		Position:     "top-left",
		BoxWidth:     0.5,
	}
	_, err := comp.CompositeLayers(context.Background(), solidBackground(400, color.NRGBA{}), testParams(layer))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCompositeMissingBoldFallsBack(t *testing.T) {
	store := blob.NewMemoryStore()
	if _, err := store.Write(context.Background(), testFontKey, goregular.TTF, nil); err != nil {
		t.Fatal(err)
	}
	comp := NewCompositor(NewFontCache(store, nil), nil)

	params := testParams(manifest.TextLayer{
		TextTemplate: "**{child_name}** smiles",
		Position:     "bottom-left",
		BoxWidth:     0.8,
	})
	params.Typography.FontBoldKey = "" // force Regular->Bold derivation, which misses

	if _, err := comp.CompositeLayers(context.Background(), solidBackground(400, color.NRGBA{}), params); err != nil {
		t.Fatalf("missing bold variant must not fail the render: %v", err)
	}
}

func TestEncodePNGStampsDensity(t *testing.T) {
	img := solidBackground(8, color.NRGBA{R: 1, G: 2, B: 3})
	data, err := EncodePNG(img, 300)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("pHYs")) {
		t.Fatal("expected pHYs chunk in encoded png")
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png no longer decodable after pHYs insertion: %v", err)
	}
	if decoded.Bounds().Dx() != 8 {
		t.Fatalf("bounds = %v", decoded.Bounds())
	}
}

func TestNormalizeSize(t *testing.T) {
	small := solidBackground(100, color.NRGBA{R: 9, G: 9, B: 9})
	out := NormalizeSize(small, 200)
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 200 {
		t.Fatalf("bounds = %v", out.Bounds())
	}

	exact := solidBackground(200, color.NRGBA{R: 9, G: 9, B: 9})
	if NormalizeSize(exact, 200) != exact {
		t.Fatal("image already at target size should pass through")
	}
}

func imagesDiffer(a, b *image.RGBA) bool {
	return !bytes.Equal(a.Pix, b.Pix)
}
