package imageio

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 30), uint8(y * 40), uint8((x + y) * 10), 255})
		}
	}
	return img
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"out.png":      PNG,
		"OUT.JPG":      JPEG,
		"a/b/c.jpeg":   JPEG,
		"frame.webp":   WebP,
		"quilt.tga":    TGA,
		"dir.x/y.Webp": WebP,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatFromPath("frame.bmp")
	assert.Error(t, err)
}

func TestLosslessRoundTrip(t *testing.T) {
	src := pattern(7, 5)
	dir := t.TempDir()

	for _, name := range []string{"a.png", "a.webp", "a.tga"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			require.NoError(t, Save(path, src, EncodeOptions{}))

			got, err := Load(path)
			require.NoError(t, err)
			require.Equal(t, src.Bounds(), got.Bounds())
			for y := 0; y < 5; y++ {
				for x := 0; x < 7; x++ {
					require.Equal(t, src.NRGBAAt(x, y), got.NRGBAAt(x, y), "%s at %d,%d", name, x, y)
				}
			}
		})
	}
}

func TestJPEGRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 120, 60, 200, 255
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src, JPEG, EncodeOptions{JPEGQuality: 100}))
	got, format, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	c := got.NRGBAAt(8, 8)
	assert.InDelta(t, 120, int(c.R), 4)
	assert.InDelta(t, 60, int(c.G), 4)
	assert.InDelta(t, 200, int(c.B), 4)
	assert.Equal(t, uint8(255), c.A)
}

func TestToNRGBA(t *testing.T) {
	src := pattern(4, 4)
	assert.Same(t, src, ToNRGBA(src))

	sub := src.SubImage(image.Rect(1, 1, 3, 4)).(*image.NRGBA)
	got := ToNRGBA(sub)
	assert.Equal(t, image.Rect(0, 0, 2, 3), got.Bounds())
	assert.Equal(t, src.NRGBAAt(1, 1), got.NRGBAAt(0, 0))
	assert.Equal(t, src.NRGBAAt(2, 3), got.NRGBAAt(1, 2))

	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 0, color.Gray{Y: 90})
	g := ToNRGBA(gray)
	assert.Equal(t, color.NRGBA{90, 90, 90, 255}, g.NRGBAAt(1, 0))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0644))
	_, err = Load(junk)
	assert.ErrorContains(t, err, "imageio: decode")
}
