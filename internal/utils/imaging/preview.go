package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils/storage"
)

const (
	DefaultPreviewMaxDimension = 1024
	// MaxSourcePixels caps what EncodePreview will decode; a decoded image
	// costs four bytes per pixel.
	MaxSourcePixels    = 50_000_000
	previewJPEGQuality = 85
)

var ErrImageTooLarge = errors.New("image dimensions too large for preview")

// Resize scales src so its longest side is at most maxDim. Images already
// within bounds are returned unchanged.
func Resize(src image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		maxDim = DefaultPreviewMaxDimension
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = max(1, h*maxDim/w)
	} else {
		nh = maxDim
		nw = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

// EncodePreview decodes an original image and returns a resized JPEG. The
// header is checked first so an image declaring more than MaxSourcePixels is
// rejected before any pixel buffer is allocated.
func EncodePreview(original []byte, maxDim int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("decode original image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("decode original image: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Resize(src, maxDim), &jpeg.Options{Quality: previewJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// GeneratePreview reads originalPath from the store, writes a resized JPEG to
// previewPath, and overwrites any preview already there.
func GeneratePreview(ctx context.Context, store storage.BlobStore, originalPath, previewPath string, maxDim int) error {
	original, err := storage.ReadAll(ctx, store, originalPath)
	if err != nil {
		return fmt.Errorf("read original %s: %w", originalPath, err)
	}
	preview, err := EncodePreview(original, maxDim)
	if err != nil {
		return err
	}
	return store.Write(ctx, previewPath, bytes.NewReader(preview))
}
