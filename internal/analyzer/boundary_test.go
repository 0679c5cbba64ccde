package analyzer

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-capture-inspector/pkg/validation"
)

var cardAspect = validation.Range{Min: 1.40, Max: 1.75}

func TestDetectBoundaryFindsCard(t *testing.T) {
	raw := mustRaw(t, createCardImage(400, 300, image.Rect(50, 50, 350, 250)))

	b := detectBoundary(raw.Gray(), cardAspect)
	require.NotNil(t, b)
	assert.False(t, b.Fallback)
	assert.InDelta(t, 1.49, b.AspectRatio, 0.03)
	assert.InDelta(t, 0.52, b.AreaRatio, 0.04)
	assert.InDelta(t, 0.12, b.Margins.Left, 0.02)
	assert.InDelta(t, 0.12, b.Margins.Right, 0.02)
	assert.InDelta(t, 0.16, b.Margins.Top, 0.02)
	assert.InDelta(t, 0.16, b.Margins.Bottom, 0.02)
	assert.InDelta(t, 0.12, b.Margins.Min(), 0.02)

	for _, c := range b.Corners {
		assert.True(t, c.In(raw.Bounds()))
	}
}

func TestDetectBoundaryDownscalesLargeImages(t *testing.T) {
	raw := mustRaw(t, createCardImage(1280, 960, image.Rect(160, 160, 1120, 800)))

	b := detectBoundary(raw.Gray(), cardAspect)
	require.NotNil(t, b)
	assert.False(t, b.Fallback)
	assert.InDelta(t, 1.5, b.AspectRatio, 0.04)
	assert.InDelta(t, 0.125, b.Margins.Left, 0.02)
	assert.InDelta(t, 0.167, b.Margins.Top, 0.02)
}

func TestDetectBoundaryFindsTiltedCard(t *testing.T) {
	// A 4:3 phone frame is itself out of range, so only a real detection
	// yields a boundary.
	tests := []struct {
		name string
		deg  float64
	}{
		{"level", 0},
		{"tilted half a degree", 0.5},
		{"tilted 1 degree", 1},
		{"tilted 2 degrees", 2},
		{"tilted 4 degrees", 4},
		{"tilted 6 degrees", 6},
		{"tilted 8 degrees", 8},
		{"tilted minus 3 degrees", -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := mustRaw(t, createRotatedCardImage(1200, 900, 860, 520, tt.deg))

			b := detectBoundary(raw.Gray(), cardAspect)
			require.NotNil(t, b)
			assert.False(t, b.Fallback)
			assert.True(t, cardAspect.Contains(b.AspectRatio), "aspect %.3f", b.AspectRatio)
			assert.Greater(t, b.AreaRatio, 0.38)
			assert.Less(t, b.AreaRatio, 0.58)
			assert.Greater(t, b.Margins.Min(), 0.04)
		})
	}
}

func TestDetectBoundaryRejectsWrongAspect(t *testing.T) {
	// A square card is out of range; the 4:3 frame is too.
	raw := mustRaw(t, createCardImage(400, 300, image.Rect(100, 50, 300, 250)))
	assert.Nil(t, detectBoundary(raw.Gray(), cardAspect))
}

func TestDetectBoundaryFallsBackToWholeImage(t *testing.T) {
	raw := mustRaw(t, createTestImage(600, 400, color.RGBA{200, 200, 200, 255}))

	b := detectBoundary(raw.Gray(), cardAspect)
	require.NotNil(t, b)
	assert.True(t, b.Fallback)
	assert.Equal(t, 1.0, b.AreaRatio)
	assert.Equal(t, 0.0, b.Margins.Min())
	assert.Equal(t, 1.5, b.AspectRatio)
}

func TestDetectBoundaryNoneForSquareFrame(t *testing.T) {
	raw := mustRaw(t, createTestImage(400, 400, color.RGBA{200, 200, 200, 255}))
	assert.Nil(t, detectBoundary(raw.Gray(), cardAspect))
}

func TestFlatCellRatio(t *testing.T) {
	img := createNoiseImage(80, 80, 9)
	// Tape over the top-left quarter.
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.SetRGBA(x, y, color.RGBA{230, 230, 230, 255})
		}
	}
	raw := mustRaw(t, img)

	ratio, err := flatCellRatio(raw.Gray(), raw.Bounds(), 8, 4.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, ratio, 1e-9)

	_, err = flatCellRatio(raw.Gray(), image.Rect(0, 0, 10, 10), 8, 4.0)
	assert.Error(t, err)
}
