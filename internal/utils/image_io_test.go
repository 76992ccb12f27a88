package utils

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedImage(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"plate.jpg", true},
		{"plate.JPG", true},
		{"plate.jpeg", true},
		{"plate.png", true},
		{"plate.bmp", true},
		{"plate.tiff", false},
		{"plate.mp4", false},
		{"plate", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupportedImage(tt.path))
		})
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.png")

	src := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{uint8(x * 30), uint8(y * 40), 0, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
}

func TestLoadImageErrors(t *testing.T) {
	_, err := LoadImage("")
	require.Error(t, err)

	_, err = LoadImage("nonexistent.txt")
	require.Error(t, err)

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestEncodeDecodeJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 12))
	data, err := EncodeJPEG(src, 90)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := DecodeImageBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 12, img.Bounds().Dy())
}

func TestEncodeJPEGNilImage(t *testing.T) {
	_, err := EncodeJPEG(nil, 90)
	require.Error(t, err)
}

func TestDecodeImageBytesErrors(t *testing.T) {
	_, err := DecodeImageBytes(nil)
	require.Error(t, err)

	_, err = DecodeImageBytes([]byte("not an image"))
	require.Error(t, err)
}

func TestJPEGDataURL(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	url, err := JPEGDataURL(src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))
	assert.Greater(t, len(url), len("data:image/jpeg;base64,"))
}
