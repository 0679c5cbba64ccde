package analyzer

import (
	"fmt"
	"image"
	"sync"

	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/pkg/models"
)

// Signal names, shared with the checks built on them.
const (
	SignalSharpness  = "sharpness"
	SignalMoire      = "moire"
	SignalScreenGrid = "screen_grid"
	SignalHalftone   = "halftone"
	SignalTexture    = "texture"
	SignalSaturation = "saturation"
	SignalGlare      = "glare"
	SignalSkin       = "skin_ratio"
	SignalFlatCells  = "flat_cells"
	SignalSkinTone   = "skin_tone"
)

// Measurement is one extracted signal. Err is set when the signal could not
// be computed; Value is then meaningless.
type Measurement struct {
	Value float64
	Raw   *float64
	Err   error
}

// Measured wraps a successfully computed value.
func Measured(v float64) Measurement {
	return Measurement{Value: v}
}

// FailedMeasurement records a per-signal computation failure.
func FailedMeasurement(signal string, err error) Measurement {
	return Measurement{Err: apperrors.NewCheckComputationError(signal, err)}
}

// Failed reports whether the signal could not be computed.
func (m Measurement) Failed() bool {
	return m.Err != nil
}

// Signals holds every extracted value for one image. Nil pointers mark
// signals that were not applicable, e.g. obstruction without a boundary.
type Signals struct {
	Width  int
	Height int

	Sharpness  Measurement
	Moire      Measurement
	ScreenGrid Measurement
	Halftone   Measurement
	Texture    Measurement
	Saturation Measurement
	Glare      Measurement
	SkinTone   Measurement

	Boundary  *Boundary
	SkinRatio *Measurement
	FlatRatio *Measurement
}

// MinSide is the shorter image dimension in pixels.
func (s Signals) MinSide() int {
	if s.Width < s.Height {
		return s.Width
	}
	return s.Height
}

type extractor struct{}

// NewExtractor returns the stateless signal extractor.
func NewExtractor() SignalExtractor {
	return extractor{}
}

// Extract computes the signals selected by opts. Independent signal groups
// run concurrently; each writes only its own fields.
func (extractor) Extract(img *RawImage, opts ExtractOptions) Signals {
	sig := Signals{Width: img.Width, Height: img.Height}
	gray := img.Gray()

	roi := opts.ROI.Intersect(img.Bounds())
	if roi.Empty() {
		roi = img.Bounds()
	}
	roiGray := gray.SubImage(roi).(*image.Gray)

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = safely(func() error {
				fn()
				return nil
			})
		}()
	}

	run(func() {
		sig.Sharpness = guard(SignalSharpness, func() (float64, *float64, error) {
			v, raw, err := sharpnessScore(gray)
			return v, &raw, err
		})
	})

	if opts.Spectrum {
		run(func() {
			var spec *spectrum
			specErr := safely(func() (err error) {
				spec, err = computeSpectrum(gray)
				return err
			})
			fromSpectrum := func(score func(*spectrum) float64) func() (float64, *float64, error) {
				return func() (float64, *float64, error) {
					if specErr != nil {
						return 0, nil, specErr
					}
					return score(spec), nil, nil
				}
			}
			sig.Moire = guard(SignalMoire, fromSpectrum(moireScore))
			sig.ScreenGrid = guard(SignalScreenGrid, fromSpectrum(screenGridScore))
			sig.Halftone = guard(SignalHalftone, fromSpectrum(halftoneScore))
		})
	}

	if opts.Texture {
		run(func() {
			sig.Texture = guard(SignalTexture, func() (float64, *float64, error) {
				v, raw, err := textureScore(roiGray)
				return v, &raw, err
			})
		})
	}

	if opts.Saturation || opts.SkinTone {
		run(func() {
			var st colorStats
			statsErr := safely(func() error {
				st = collectColorStats(img, roi, colorParams{
					skinCr:      opts.SkinCr,
					skinCb:      opts.SkinCb,
					toneEnabled: opts.SkinTone,
				})
				return nil
			})
			if opts.Saturation {
				sig.Saturation = guard(SignalSaturation, fromStats(statsErr, st.meanSaturation))
			}
			if opts.SkinTone {
				sig.SkinTone = guard(SignalSkinTone, fromStats(statsErr, func() float64 { return st.ratio(st.skinTone) }))
			}
		})
	}

	if opts.Boundary || opts.Glare {
		run(func() {
			if opts.Boundary {
				if err := safely(func() error {
					sig.Boundary = detectBoundary(gray, opts.AspectRange)
					return nil
				}); err != nil {
					sig.Boundary = nil
				}
			}
			docROI := img.Bounds()
			if sig.Boundary != nil {
				docROI = sig.Boundary.Rect
			}
			var st colorStats
			statsErr := safely(func() error {
				st = collectColorStats(img, docROI, colorParams{
					glareCutoff: opts.GlareCutoff,
					skinBands:   opts.SkinBands,
				})
				return nil
			})
			if opts.Glare {
				sig.Glare = guard(SignalGlare, fromStats(statsErr, func() float64 { return st.ratio(st.glare) }))
			}
			if opts.Obstruction && sig.Boundary != nil {
				skin := guard(SignalSkin, fromStats(statsErr, func() float64 { return st.ratio(st.skin) }))
				flat := guard(SignalFlatCells, func() (float64, *float64, error) {
					v, err := flatCellRatio(gray, docROI, opts.GridSize, opts.FlatVarianceCutoff)
					return v, nil, err
				})
				sig.SkinRatio = &skin
				sig.FlatRatio = &flat
			}
		})
	}

	wg.Wait()
	return sig
}

// guard runs one signal computation, turning errors and panics into a
// failed measurement so a single bad signal never aborts the others.
func guard(signal string, fn func() (float64, *float64, error)) (m Measurement) {
	var (
		v   float64
		raw *float64
	)
	err := safely(func() (err error) {
		v, raw, err = fn()
		return err
	})
	if err != nil {
		return FailedMeasurement(signal, err)
	}
	return Measurement{Value: v, Raw: raw}
}

// fromStats adapts a colour statistic to guard, failing when the shared
// pass over the pixels did.
func fromStats(statsErr error, score func() float64) func() (float64, *float64, error) {
	return func() (float64, *float64, error) {
		if statsErr != nil {
			return 0, nil, statsErr
		}
		return score(), nil, nil
	}
}

func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func clamp01(v float64) float64 {
	return models.Clamp01(v)
}
