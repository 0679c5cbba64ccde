package analyzer

import (
	"image"

	"go-capture-inspector/pkg/validation"
)

// ExtractOptions selects which signals to extract and the parameters the
// extractors need. Thresholds are not applied here.
type ExtractOptions struct {
	// Feature toggles
	Spectrum    bool
	Texture     bool
	Saturation  bool
	Boundary    bool
	Glare       bool
	Obstruction bool
	SkinTone    bool

	// Extractor parameters
	AspectRange        validation.Range
	GlareCutoff        uint8
	SkinBands          []validation.HSVBand
	GridSize           int
	FlatVarianceCutoff float64
	SkinCr             validation.Range
	SkinCb             validation.Range

	// ROI restricts texture and skin-tone analysis. Empty means whole image.
	ROI image.Rectangle
}

// DocumentOptions extracts everything a document profile evaluates.
func DocumentOptions(p validation.ThresholdProfile) ExtractOptions {
	return ExtractOptions{
		Spectrum:           true,
		Texture:            true,
		Saturation:         true,
		Boundary:           true,
		Glare:              true,
		Obstruction:        true,
		AspectRange:        p.Framing.AspectRatio,
		GlareCutoff:        uint8(p.Glare.Cutoff),
		SkinBands:          p.Obstruction.SkinBands,
		GridSize:           p.Obstruction.GridSize,
		FlatVarianceCutoff: p.Obstruction.FlatVarianceCutoff,
	}
}

// LivenessOptions extracts the passive liveness signals.
func LivenessOptions(p validation.LivenessProfile) ExtractOptions {
	return ExtractOptions{
		Spectrum: true,
		Texture:  true,
		SkinTone: true,
		SkinCr:   p.SkinCr,
		SkinCb:   p.SkinCb,
	}
}

// WithROI restricts region-dependent signals to roi.
func (o ExtractOptions) WithROI(roi image.Rectangle) ExtractOptions {
	o.ROI = roi
	return o
}

// WithoutBoundary skips boundary detection and everything that depends on it.
func (o ExtractOptions) WithoutBoundary() ExtractOptions {
	o.Boundary = false
	o.Obstruction = false
	return o
}
