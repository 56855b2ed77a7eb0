package render

import "image"

// boxBlurAlpha applies a separable box blur of the given radius to an alpha
// mask. Radius zero returns the input untouched. A box blur is close enough
// to the CSS gaussian for print-resolution shadows and is O(n) per axis.
func boxBlurAlpha(src *image.Alpha, radius int) *image.Alpha {
	if radius <= 0 {
		return src
	}
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w == 0 || h == 0 {
		return src
	}

	window := 2*radius + 1
	tmp := image.NewAlpha(bounds)
	dst := image.NewAlpha(bounds)

	// Horizontal pass with a sliding sum.
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		out := tmp.Pix[y*tmp.Stride : y*tmp.Stride+w]
		sum := 0
		for x := -radius; x <= radius; x++ {
			sum += int(row[clampIndex(x, w)])
		}
		for x := 0; x < w; x++ {
			out[x] = uint8(sum / window)
			sum += int(row[clampIndex(x+radius+1, w)])
			sum -= int(row[clampIndex(x-radius, w)])
		}
	}

	// Vertical pass.
	for x := 0; x < w; x++ {
		sum := 0
		for y := -radius; y <= radius; y++ {
			sum += int(tmp.Pix[clampIndex(y, h)*tmp.Stride+x])
		}
		for y := 0; y < h; y++ {
			dst.Pix[y*dst.Stride+x] = uint8(sum / window)
			sum += int(tmp.Pix[clampIndex(y+radius+1, h)*tmp.Stride+x])
			sum -= int(tmp.Pix[clampIndex(y-radius, h)*tmp.Stride+x])
		}
	}
	return dst
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
