package render

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	_ "image/jpeg" // register decoder for DecodeImage
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"storyloom/internal/services"
)

// DecodeImage decodes PNG or JPEG bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", services.ErrValidation, err)
	}
	return img, nil
}

// NormalizeSize scales an image to the square target size. Images already at
// target size pass through; everything else is resampled with Catmull-Rom.
func NormalizeSize(img image.Image, sizePx int) *image.RGBA {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Dx() == sizePx && bounds.Dy() == sizePx && bounds.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, sizePx, sizePx))
	if bounds.Dx() == sizePx && bounds.Dy() == sizePx {
		xdraw.Draw(dst, dst.Bounds(), img, bounds.Min, xdraw.Src)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}

// EncodePNG encodes the image and stamps the physical-pixel-density chunk so
// print tooling sees the intended DPI.
func EncodePNG(img image.Image, dpi int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return setPNGDensity(buf.Bytes(), dpi)
}

// setPNGDensity inserts a pHYs chunk after IHDR. The stdlib encoder never
// writes one, and print pipelines read it to size pages in physical units.
func setPNGDensity(data []byte, dpi int) ([]byte, error) {
	if dpi <= 0 {
		return data, nil
	}
	const (
		signatureLen = 8
		ihdrTotal    = 4 + 4 + 13 + 4 // length + type + payload + crc
	)
	if len(data) < signatureLen+ihdrTotal {
		return nil, fmt.Errorf("png too short for pHYs insertion")
	}

	pixelsPerMetre := uint32(math.Round(float64(dpi) / 0.0254))
	payload := make([]byte, 9)
	binary.BigEndian.PutUint32(payload[0:4], pixelsPerMetre)
	binary.BigEndian.PutUint32(payload[4:8], pixelsPerMetre)
	payload[8] = 1 // unit: metre

	chunk := make([]byte, 0, 4+4+9+4)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 9)
	chunk = append(chunk, lenBuf[:]...)
	chunk = append(chunk, 'p', 'H', 'Y', 's')
	chunk = append(chunk, payload...)
	crc := crc32.NewIEEE()
	crc.Write([]byte("pHYs"))
	crc.Write(payload)
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc.Sum32())
	chunk = append(chunk, crcBuf[:]...)

	cut := signatureLen + ihdrTotal
	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:cut]...)
	out = append(out, chunk...)
	out = append(out, data[cut:]...)
	return out, nil
}
