package analyzer

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/stat"
)

// sharpnessReference maps Laplacian variance onto [0,1]; variances at or
// above it are fully sharp.
const sharpnessReference = 100.0

// laplacianVariance convolves with the 4-neighbour kernel
// [0 1 0; 1 -4 1; 0 1 0] and returns the variance of the response.
func laplacianVariance(gray *image.Gray) (float64, error) {
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	if width < 3 || height < 3 {
		return 0, fmt.Errorf("image %dx%d too small for a 3x3 kernel", width, height)
	}

	pix, stride := gray.Pix, gray.Stride
	data := make([]float64, 0, (width-2)*(height-2))
	for y := 1; y < height-1; y++ {
		row := y * stride
		for x := 1; x < width-1; x++ {
			i := row + x
			lap := float64(pix[i-stride]) + float64(pix[i+stride]) +
				float64(pix[i-1]) + float64(pix[i+1]) - 4*float64(pix[i])
			data = append(data, lap)
		}
	}
	if len(data) < 2 {
		return 0, nil
	}
	return stat.Variance(data, nil), nil
}

// sharpnessScore returns the normalised score and the raw variance.
func sharpnessScore(gray *image.Gray) (float64, float64, error) {
	v, err := laplacianVariance(gray)
	if err != nil {
		return 0, 0, err
	}
	return clamp01(v / sharpnessReference), v, nil
}
