package analyzer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestImage creates a uniform test image
func createTestImage(width, height int, fillColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fillColor)
		}
	}
	return img
}

// createGradientImage creates a diagonal black-to-white gradient
func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x + y) * 255 / (width + height))
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// createNoiseImage fills with seeded gray noise.
func createNoiseImage(width, height int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(rng.Intn(256))
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// createStripeImage draws a vertical sine grating, the spectral signature
// of a display pixel grid or a halftone screen.
func createStripeImage(width, height int, period float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(128 + 100*math.Sin(2*math.Pi*float64(x)/period))
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// createCardImage draws a light card on a dark background.
func createCardImage(width, height int, card image.Rectangle) *image.RGBA {
	img := createTestImage(width, height, color.RGBA{10, 10, 10, 255})
	for y := card.Min.Y; y < card.Max.Y; y++ {
		for x := card.Min.X; x < card.Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{245, 245, 240, 255})
		}
	}
	return img
}

// createRotatedCardImage draws a cardW x cardH light card centred on a dark
// frame and rotated by deg degrees.
func createRotatedCardImage(width, height, cardW, cardH int, deg float64) *image.RGBA {
	img := createTestImage(width, height, color.RGBA{10, 10, 10, 255})
	sin, cos := math.Sincos(deg * math.Pi / 180)
	cx, cy := float64(width)/2, float64(height)/2
	hw, hh := float64(cardW)/2, float64(cardH)/2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			rx := dx*cos + dy*sin
			ry := -dx*sin + dy*cos
			if math.Abs(rx) <= hw && math.Abs(ry) <= hh {
				img.SetRGBA(x, y, color.RGBA{245, 245, 240, 255})
			}
		}
	}
	return img
}

func mustRaw(t *testing.T, img image.Image) *RawImage {
	t.Helper()
	raw, err := FromImage(img, "png")
	require.NoError(t, err)
	return raw
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
