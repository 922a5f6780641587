package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
)

// CropPNG cuts the selection out of a full-viewport screenshot. The
// rectangle arrives in CSS pixels and is scaled by the device pixel ratio
// before cropping; the result is clamped to the screenshot bounds.
func CropPNG(screenshot []byte, sel Rect, devicePixelRatio float64) ([]byte, error) {
	if devicePixelRatio <= 0 {
		devicePixelRatio = 1
	}

	src, err := png.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	scaled := image.Rect(
		int(math.Round(float64(sel.X)*devicePixelRatio)),
		int(math.Round(float64(sel.Y)*devicePixelRatio)),
		int(math.Round(float64(sel.X+sel.Width)*devicePixelRatio)),
		int(math.Round(float64(sel.Y+sel.Height)*devicePixelRatio)),
	)
	cropRect := scaled.Intersect(src.Bounds())
	if cropRect.Empty() {
		return nil, fmt.Errorf("selection %v is outside the screenshot bounds %v", scaled, src.Bounds())
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	sub, ok := src.(subImager)
	if !ok {
		return nil, fmt.Errorf("screenshot image type %T does not support cropping", src)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, sub.SubImage(cropRect)); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return out.Bytes(), nil
}
