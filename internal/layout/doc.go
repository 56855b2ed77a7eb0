// Package layout converts declarative grid positions into pixel geometry.
//
// A text box is addressed by one of nine grid cells (top/middle/bottom ×
// left/center/right) inside the page's safe zone, a fractional width, and
// fine-tune offsets in points. ResolveBox is a pure function: identical
// inputs always produce identical pixel boxes.
package layout
