package document

import (
	"go-capture-inspector/internal/analyzer"
	"go-capture-inspector/pkg/models"
	"go-capture-inspector/pkg/validation"
)

const (
	subSaturation    = "saturation"
	subScreenCapture = "screen_capture_signature"
)

type comparison func(name string, score, threshold float64) models.CheckResult

// measured applies cmp to a signal, or fails the check with the
// computation error as its note.
func measured(name string, m analyzer.Measurement, threshold float64, cmp comparison) models.CheckResult {
	if m.Failed() {
		return models.FailedCheck(name, threshold, m.Err.Error())
	}
	res := cmp(name, m.Value, threshold)
	res.RawScore = m.Raw
	return res
}

func measuredWithin(name string, m analyzer.Measurement, r validation.Range) models.CheckResult {
	if m.Failed() {
		return models.FailedCheck(name, r.Min, m.Err.Error())
	}
	res := validation.Within(name, m.Value, r)
	res.RawScore = m.Raw
	return res
}

// captureSource decides whether the capture is an original rather than a
// screenshot, a re-photographed screen or a printed copy.
func captureSource(sig analyzer.Signals, th validation.CaptureSourceThresholds) models.CheckResult {
	subs := []models.CheckResult{
		measured(analyzer.SignalSharpness, sig.Sharpness, th.SharpnessMin, validation.AtLeast),
		measured(analyzer.SignalMoire, sig.Moire, th.MoireMin, validation.Above),
		measured(analyzer.SignalScreenGrid, sig.ScreenGrid, th.ScreenGridMax, validation.AtMost),
		measuredWithin(analyzer.SignalTexture, sig.Texture, th.Texture),
		measured(analyzer.SignalHalftone, sig.Halftone, th.HalftoneMax, validation.AtMost),
		saturationGate(sig, th),
	}
	if th.ScreenCapture != nil {
		subs = append(subs, screenCaptureSignature(sig, *th.ScreenCapture))
	}
	return validation.Conjunction(CheckCaptureSource, subs...)
}

// saturationGate only applies to very high texture scores, where flat
// desaturated prints can pass for natural detail.
func saturationGate(sig analyzer.Signals, th validation.CaptureSourceThresholds) models.CheckResult {
	if sig.Texture.Failed() || sig.Texture.Value < th.HighTexture {
		return models.CheckResult{
			Name:      subSaturation,
			Passed:    true,
			Score:     1,
			Threshold: th.SaturationMin,
			Note:      "not triggered",
		}
	}
	return measured(subSaturation, sig.Saturation, th.SaturationMin, validation.AtLeast)
}

// screenCaptureSignature fails when moiré sits in its borderline band while
// the screen grid is in its suspicious band. Each value may clear its own
// threshold; together they are the fingerprint of a photographed display.
func screenCaptureSignature(sig analyzer.Signals, band validation.ScreenCaptureBand) models.CheckResult {
	res := models.CheckResult{Name: subScreenCapture, Passed: true, Score: 1, Threshold: 1}
	if sig.Moire.Failed() || sig.ScreenGrid.Failed() {
		return res
	}
	if band.Moire.Contains(sig.Moire.Value) && band.ScreenGrid.Contains(sig.ScreenGrid.Value) {
		res.Passed = false
		res.Score = 0
		res.Note = "borderline moire together with a screen-grid peak"
	}
	return res
}
