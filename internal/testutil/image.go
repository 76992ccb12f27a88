package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PlateImageConfig holds configuration for generating synthetic plate
// images.
type PlateImageConfig struct {
	Text       string
	Width      int
	Height     int
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
}

// DefaultPlateImageConfig returns a default configuration: a small white
// plate with black text.
func DefaultPlateImageConfig() PlateImageConfig {
	return PlateImageConfig{
		Text:       "AB12CD",
		Width:      200,
		Height:     60,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// GeneratePlateImage creates a synthetic plate image with centered text.
func GeneratePlateImage(config PlateImageConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, config.Width, config.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{config.Foreground},
		Face: config.FontFace,
	}

	textWidth := font.MeasureString(config.FontFace, config.Text).Ceil()
	textHeight := config.FontFace.Metrics().Height.Ceil()
	x := (config.Width - textWidth) / 2
	y := (config.Height + textHeight) / 2
	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(config.Text)

	return img
}

// SolidImage creates a uniformly colored image.
func SolidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// GradientGray creates a grayscale image with a horizontal left-to-right
// ramp from black to white.
func GradientGray(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(x * 255 / max(1, width-1))
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// SaveImage saves an image to the specified path, inferring the format
// from the extension.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	f, err := os.Create(path) //nolint:gosec // test helper writes into temp dirs
	require.NoError(t, err, "Failed to create image file")
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(f, img)
	}
	require.NoError(t, err, "Failed to encode image")
}
