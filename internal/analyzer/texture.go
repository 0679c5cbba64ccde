package analyzer

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/stat"
)

const (
	lbpMinSide = 10
	// lbpVarianceMax is the largest variance a distribution over 0..255 can
	// have: half the mass at each end.
	lbpVarianceMax = 127.5 * 127.5
)

// lbpOffsets are (dy, dx) neighbour offsets, most significant bit first.
var lbpOffsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1}, {0, 1},
	{1, 1}, {1, 0}, {1, -1}, {0, -1},
}

// lbpHistogram counts 8-neighbour local binary pattern codes. Border pixels
// use edge padding. A neighbour at least as bright as the centre sets its bit.
func lbpHistogram(gray *image.Gray) ([256]float64, error) {
	var counts [256]float64
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	if width < lbpMinSide || height < lbpMinSide {
		return counts, fmt.Errorf("image %dx%d too small for texture analysis", width, height)
	}

	pix, stride := gray.Pix, gray.Stride
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := pix[y*stride+x]
			code := 0
			for bit, off := range lbpOffsets {
				ny := clampInt(y+off[0], 0, height-1)
				nx := clampInt(x+off[1], 0, width-1)
				if pix[ny*stride+nx] >= c {
					code |= 1 << uint(7-bit)
				}
			}
			counts[code]++
		}
	}
	return counts, nil
}

// textureScore is the variance of the LBP code distribution normalised by
// its theoretical maximum. A perfectly flat region scores 0.
func textureScore(gray *image.Gray) (float64, float64, error) {
	counts, err := lbpHistogram(gray)
	if err != nil {
		return 0, 0, err
	}
	codes := make([]float64, 256)
	for i := range codes {
		codes[i] = float64(i)
	}
	_, variance := stat.MeanVariance(codes, counts[:])
	return clamp01(variance / lbpVarianceMax), variance, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
