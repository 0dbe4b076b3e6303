package imaging

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResize_KeepsAspectRatio(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))

	out := Resize(src, 100)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())

	tall := Resize(image.NewRGBA(image.Rect(0, 0, 30, 300)), 100)
	assert.Equal(t, 10, tall.Bounds().Dx())
	assert.Equal(t, 100, tall.Bounds().Dy())
}

func TestResize_SmallImageUntouched(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 40))
	assert.Same(t, src, Resize(src, 100))
}

func TestGeneratePreview_WritesJPEG(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, "orig.png", bytes.NewReader(pngBytes(t, 640, 480))))

	require.NoError(t, GeneratePreview(ctx, store, "orig.png", "preview.jpg", 160))

	data, err := storage.ReadAll(ctx, store, "preview.jpg")
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 160, cfg.Width)
	assert.Equal(t, 120, cfg.Height)
}

func TestEncodePreview_RejectsGarbage(t *testing.T) {
	_, err := EncodePreview([]byte("not an image"), 100)
	assert.Error(t, err)
}

// withPNGDimensions rewrites the IHDR header of a PNG to claim w x h pixels,
// leaving the tiny pixel stream as it is.
func withPNGDimensions(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestEncodePreview_RejectsOversizedDimensions(t *testing.T) {
	bomb := withPNGDimensions(t, pngBytes(t, 2, 2), 60000, 60000)

	_, err := EncodePreview(bomb, 100)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, "bomb.png", bytes.NewReader(bomb)))
	assert.ErrorIs(t, GeneratePreview(ctx, store, "bomb.png", "bomb_preview.jpg", 100), ErrImageTooLarge)
	_, err = store.Stat(ctx, "bomb_preview.jpg")
	assert.ErrorIs(t, err, storage.ErrBlobNotFound)
}
