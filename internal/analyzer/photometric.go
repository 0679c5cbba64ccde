package analyzer

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/stat"
)

// flatCellRatio splits roi into an n x n grid and returns the fraction of
// cells whose gray variance is below cutoff. Tape, stickers and fingers
// pressed over the card read as unnaturally flat cells.
func flatCellRatio(gray *image.Gray, roi image.Rectangle, n int, cutoff float64) (float64, error) {
	roi = roi.Intersect(gray.Bounds())
	cw, ch := roi.Dx()/n, roi.Dy()/n
	if n <= 0 || cw < 2 || ch < 2 {
		return 0, fmt.Errorf("region %dx%d too small for a %dx%d grid", roi.Dx(), roi.Dy(), n, n)
	}

	flat := 0
	cell := make([]float64, 0, cw*ch)
	for gy := 0; gy < n; gy++ {
		for gx := 0; gx < n; gx++ {
			cell = cell[:0]
			x0 := roi.Min.X + gx*cw
			y0 := roi.Min.Y + gy*ch
			for y := y0; y < y0+ch; y++ {
				row := y * gray.Stride
				for x := x0; x < x0+cw; x++ {
					cell = append(cell, float64(gray.Pix[row+x]))
				}
			}
			if stat.Variance(cell, nil) < cutoff {
				flat++
			}
		}
	}
	return float64(flat) / float64(n*n), nil
}
