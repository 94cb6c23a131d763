package providers

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Resolution bounds for uploaded images. At least one vendor rejects images
// with a side under 200px; anything much larger wastes bandwidth and cost.
const (
	minImageEdge = 200
	maxImageEdge = 2000
)

// NormalizeImage rescales an image so its shorter edge lands within
// [minImageEdge, maxImageEdge], preserving aspect ratio, and re-encodes it
// as JPEG. Images already inside the bounds are re-encoded untouched.
func NormalizeImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", w, h)
	}

	newW, newH := scaleDimensions(w, h)
	if newW != w || newH != h {
		dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

// scaleDimensions computes target dimensions. Upscale when the shorter edge
// is under the minimum; then clamp so neither edge exceeds the maximum.
func scaleDimensions(w, h int) (int, int) {
	shorter := w
	if h < shorter {
		shorter = h
	}
	if shorter >= minImageEdge && w <= maxImageEdge && h <= maxImageEdge {
		return w, h
	}

	scale := 1.0
	if shorter < minImageEdge {
		scale = float64(minImageEdge) / float64(shorter)
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)

	longer := newW
	if newH > longer {
		longer = newH
	}
	if longer > maxImageEdge {
		clamp := float64(maxImageEdge) / float64(longer)
		newW = int(float64(newW) * clamp)
		newH = int(float64(newH) * clamp)
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return newW, newH
}
