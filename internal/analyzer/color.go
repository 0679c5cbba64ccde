package analyzer

import (
	"image"
	"image/color"
	"math"
	"sync"

	"go-capture-inspector/pkg/validation"
)

// rgbToHSV converts normalised RGB to hue in degrees and saturation/value in [0,1].
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	v = max

	if max == 0 {
		s = 0
	} else {
		s = delta / max
	}

	if delta == 0 {
		h = 0
	} else if max == r {
		h = 60 * (((g - b) / delta) + 0)
	} else if max == g {
		h = 60 * (((b - r) / delta) + 2)
	} else {
		h = 60 * (((r - g) / delta) + 4)
	}

	if h < 0 {
		h += 360
	}

	return h, s, v
}

// colorStats accumulates per-pixel colour measurements over a region.
type colorStats struct {
	pixels     int
	saturation float64
	glare      int
	skin       int
	skinTone   int
}

type colorParams struct {
	glareCutoff uint8
	skinBands   []validation.HSVBand
	skinCr      validation.Range
	skinCb      validation.Range
	toneEnabled bool
}

// colorStrips is fixed so float accumulation order does not depend on the host.
const colorStrips = 8

// collectColorStats walks roi in horizontal strips, one goroutine per strip,
// and folds the strips in order.
func collectColorStats(img *RawImage, roi image.Rectangle, p colorParams) colorStats {
	roi = roi.Intersect(img.Bounds())
	if roi.Empty() {
		return colorStats{}
	}
	height := roi.Dy()

	numStrips := colorStrips
	if height < numStrips {
		numStrips = height
	}
	rowsPerStrip := (height + numStrips - 1) / numStrips

	strips := make([]colorStats, numStrips)
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		stripPanic interface{}
	)

	for i := 0; i < numStrips; i++ {
		startY := roi.Min.Y + i*rowsPerStrip
		endY := startY + rowsPerStrip
		if endY > roi.Max.Y {
			endY = roi.Max.Y
		}
		if startY >= endY {
			continue
		}
		wg.Add(1)
		go func(i, startY, endY int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if stripPanic == nil {
						stripPanic = r
					}
					mu.Unlock()
				}
			}()
			strips[i] = colorStrip(img, roi.Min.X, roi.Max.X, startY, endY, p)
		}(i, startY, endY)
	}
	wg.Wait()
	// Surface a strip panic on the caller's goroutine where it can be recovered.
	if stripPanic != nil {
		panic(stripPanic)
	}

	var total colorStats
	for _, r := range strips {
		total.pixels += r.pixels
		total.saturation += r.saturation
		total.glare += r.glare
		total.skin += r.skin
		total.skinTone += r.skinTone
	}
	return total
}

func colorStrip(img *RawImage, x0, x1, y0, y1 int, p colorParams) colorStats {
	var st colorStats
	rgba, gray := img.rgba, img.gray
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := y*rgba.Stride + x*4
			r8, g8, b8 := rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2]

			h, s, v := rgbToHSV(float64(r8)/255, float64(g8)/255, float64(b8)/255)
			st.saturation += s
			for _, band := range p.skinBands {
				if band.Contains(h, s, v) {
					st.skin++
					break
				}
			}
			if p.glareCutoff > 0 && gray.Pix[y*gray.Stride+x] >= p.glareCutoff {
				st.glare++
			}
			if p.toneEnabled {
				_, cb, cr := color.RGBToYCbCr(r8, g8, b8)
				if p.skinCr.Contains(float64(cr)) && p.skinCb.Contains(float64(cb)) {
					st.skinTone++
				}
			}
			st.pixels++
		}
	}
	return st
}

func (st colorStats) ratio(n int) float64 {
	if st.pixels == 0 {
		return 0
	}
	return float64(n) / float64(st.pixels)
}

func (st colorStats) meanSaturation() float64 {
	if st.pixels == 0 {
		return 0
	}
	return st.saturation / float64(st.pixels)
}
