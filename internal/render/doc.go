// Package render composites styled text layers onto page backgrounds.
//
// Layers render sequentially: each layer draws onto the previous layer's
// output, so overlapping layers stack in list order. Geometry comes from the
// layout package; typography defaults merge with per-layer overrides into a
// typed style before any pixel is touched. Glyph effects (stroke ring, stacked
// blur shadows) are rasterized directly with golang.org/x/image.
package render
