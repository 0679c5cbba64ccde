package document

import (
	"fmt"
	"regexp"

	"go-capture-inspector/internal/analyzer"
	"go-capture-inspector/internal/ocr"
	"go-capture-inspector/pkg/models"
	"go-capture-inspector/pkg/validation"
)

const (
	subFace          = "face_present"
	subOCRContent    = "ocr_content"
	subOCRConfidence = "ocr_confidence"
)

// External carries the outputs of collaborators for one capture.
type External struct {
	OCR  *models.OCRResult
	Face *models.FaceResult
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

func resolution(sig analyzer.Signals, th validation.ResolutionThresholds) models.CheckResult {
	minSide := sig.MinSide()
	res := models.CheckResult{
		Name:      CheckResolution,
		Passed:    minSide >= th.MinSidePx,
		Score:     models.Clamp01(float64(minSide) / float64(th.MinSidePx)),
		RawScore:  models.Float(float64(minSide)),
		Threshold: float64(th.MinSidePx),
	}
	if !res.Passed {
		res.Note = fmt.Sprintf("image too small (min side %dpx)", minSide)
	}
	return res
}

func facePresent(name string, face *models.FaceResult) models.CheckResult {
	res := models.CheckResult{
		Name:      name,
		Passed:    face.HasFace(),
		Score:     boolScore(face.HasFace()),
		Threshold: 1,
	}
	if !res.Passed {
		res.Note = "face not detected on document"
	}
	return res
}

// officialDocument expects the holder's portrait on the capture.
func officialDocument(ext External) models.CheckResult {
	return facePresent(CheckOfficialDocument, ext.Face)
}

// integrity is the place for cross-region consistency checks; for now it
// requires the portrait.
func integrity(ext External) models.CheckResult {
	return facePresent(CheckIntegrity, ext.Face)
}

// documentTypeMatch accepts the OCR-declared type, an MRZ line or a fuzzy
// keyword hit as evidence of the declared document type.
func documentTypeMatch(ext External, th validation.DocumentTypeThresholds) models.CheckResult {
	res := models.CheckResult{Name: CheckDocumentTypeMatch, Threshold: 1}
	switch {
	case ext.OCR == nil:
		res.Note = "no OCR result"
	case ocr.DeclaresType(ext.OCR, th.DeclaredTypes):
		res.Passed = true
		res.Note = "declared type"
	default:
		if _, ok := ocr.FindMRZ(ext.OCR); ok {
			res.Passed = true
			res.Note = "machine-readable zone"
		} else if kw, ok := ocr.MatchKeyword(ext.OCR, th.Keywords, th.KeywordMaxDistance); ok {
			res.Passed = true
			res.Note = "keyword " + kw
		} else {
			res.Note = "document type not recognised"
		}
	}
	res.Score = boolScore(res.Passed)
	return res
}

func ocrContent(ext External, th validation.ReadabilityThresholds, identifier *regexp.Regexp) models.CheckResult {
	ok := ocr.HasContent(ext.OCR, th.RequiredContent, identifier)
	res := models.CheckResult{Name: subOCRContent, Passed: ok, Score: boolScore(ok), Threshold: 1}
	switch {
	case ok:
	case ext.OCR == nil:
		res.Note = "no OCR result"
	default:
		res.Note = "required " + th.RequiredContent + " not found"
	}
	return res
}

// readability requires a sharp capture and, when the profile asks for it,
// legible required content at a loose confidence floor.
func readability(sig analyzer.Signals, ext External, p validation.ThresholdProfile, identifier *regexp.Regexp) models.CheckResult {
	subs := []models.CheckResult{
		measured(analyzer.SignalSharpness, sig.Sharpness, p.CaptureSource.SharpnessMin, validation.AtLeast),
	}
	if th := p.Readability; th.RequiredContent != "" {
		subs = append(subs,
			ocrContent(ext, th, identifier),
			validation.AtLeast(subOCRConfidence, ocr.Confidence(ext.OCR, th.RequiredContent), th.MinOCRConfidence),
		)
	}
	return validation.Conjunction(CheckReadability, subs...)
}

// framing requires a boundary covering enough of the frame, with margins on
// every side unless the document nearly fills the frame.
func framing(b *analyzer.Boundary, th validation.FramingThresholds) models.CheckResult {
	if b == nil {
		return models.FailedCheck(CheckFraming, th.MinCoverageRatio, "no document boundary with the expected aspect ratio")
	}
	coverageOK := b.AreaRatio >= th.MinCoverageRatio
	marginOK := b.Margins.Min() >= th.MinMarginRatio
	res := models.CheckResult{
		Name:      CheckFraming,
		Passed:    coverageOK && (marginOK || b.AreaRatio >= th.FullFrameCoverageRatio),
		Score:     models.Clamp01(b.AreaRatio),
		RawScore:  models.Float(b.Margins.Min()),
		Threshold: th.MinCoverageRatio,
	}
	switch {
	case !coverageOK:
		res.Note = "document cropped or too small in frame"
	case !res.Passed:
		res.Note = "margins too small"
	}
	return res
}

func noExtraObjects(b *analyzer.Boundary, th validation.FramingThresholds) models.CheckResult {
	if b == nil {
		return models.FailedCheck(CheckNoExtraObjects, th.MinCoverageRatio, "could not assess document coverage")
	}
	res := validation.AtLeast(CheckNoExtraObjects, b.AreaRatio, th.MinCoverageRatio)
	if !res.Passed {
		res.Note = "document does not dominate the frame"
	}
	return res
}

// occlusion requires a visible portrait, no glare, no obstruction over the
// boundary and, when the profile asks for it, legible required content.
func occlusion(sig analyzer.Signals, ext External, p validation.ThresholdProfile, identifier *regexp.Regexp) models.CheckResult {
	subs := []models.CheckResult{
		facePresent(subFace, ext.Face),
		measured(analyzer.SignalGlare, sig.Glare, p.Glare.MaxRatio, validation.AtMost),
	}
	if sig.SkinRatio != nil {
		subs = append(subs, measured(analyzer.SignalSkin, *sig.SkinRatio, p.Obstruction.MaxSkinRatio, validation.AtMost))
	}
	if sig.FlatRatio != nil {
		subs = append(subs, measured(analyzer.SignalFlatCells, *sig.FlatRatio, p.Obstruction.MaxFlatRatio, validation.AtMost))
	}
	if p.Readability.RequiredContent != "" {
		subs = append(subs, ocrContent(ext, p.Readability, identifier))
	}
	return validation.Conjunction(CheckOcclusion, subs...)
}
