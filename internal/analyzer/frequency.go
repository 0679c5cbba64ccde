package analyzer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Radial bands, in frequency bins from DC.
const (
	moireValidMin = 5.0
	moireValidMax = 120.0
	moireMidMin   = 20.0
	moireMidMax   = 80.0

	gridRingMin     = 25.0
	gridRingMax     = 90.0
	gridMinBins     = 10
	gridPeakDivisor = 20.0

	halftoneRingMin = 8.0
	halftoneRingMax = 100.0
	halftoneTopBins = 50
)

// moireScore compares log energy in the mid band to the whole valid band.
// Natural captures fall off with frequency; re-photographed screens and
// prints carry extra mid-band energy and score lower. Higher is more authentic.
func moireScore(s *spectrum) float64 {
	var valid, mid float64
	for i, m := range s.mag {
		d := spectrumRadii[i]
		if d <= moireValidMin || d >= moireValidMax {
			continue
		}
		lm := math.Log1p(m)
		valid += lm
		if d > moireMidMin && d < moireMidMax {
			mid += lm
		}
	}
	if valid == 0 {
		return 0.5
	}
	return clamp01(1 - 1.5*(mid/valid))
}

// screenGridScore measures how far the strongest ring bin stands above the
// ring mean. Pixel grids of displays show up as isolated peaks.
func screenGridScore(s *spectrum) float64 {
	ring := make([]float64, 0, 1024)
	for i, m := range s.mag {
		d := spectrumRadii[i]
		if d < gridRingMin || d > gridRingMax || m == 0 {
			continue
		}
		ring = append(ring, m)
	}
	if len(ring) < gridMinBins {
		return 0
	}
	mean := stat.Mean(ring, nil)
	if mean == 0 {
		return 0
	}
	return clamp01((floats.Max(ring)/mean - 1) / gridPeakDivisor)
}

// halftoneScore measures how much ring energy concentrates in a few bins,
// the periodic dot pattern of printed copies.
func halftoneScore(s *spectrum) float64 {
	ring := make([]float64, 0, 1024)
	for i, m := range s.mag {
		d := spectrumRadii[i]
		if d < halftoneRingMin || d > halftoneRingMax {
			continue
		}
		ring = append(ring, m)
	}
	if len(ring) == 0 {
		return 0
	}
	total := floats.Sum(ring)
	sort.Float64s(ring)
	top := ring
	if len(top) > halftoneTopBins {
		top = ring[len(ring)-halftoneTopBins:]
	}
	peak := floats.Sum(top)
	return math.Min(1, peak/math.Max(total*0.15, 1e-6)*0.5)
}
