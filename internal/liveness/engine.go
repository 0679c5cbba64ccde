// Package liveness decides whether a selfie is a live capture of a person.
package liveness

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"go-capture-inspector/internal/analyzer"
	"go-capture-inspector/internal/logger"
	"go-capture-inspector/pkg/models"
	"go-capture-inspector/pkg/validation"
)

// Check names. The first six decide the verdict and the confidence.
const (
	CheckImageSize  = "image_size"
	CheckTexture    = "texture"
	CheckColor      = "color"
	CheckSharpness  = "sharpness"
	CheckMoire      = "moire"
	CheckModel      = "ml_model"
	CheckSameSource = "same_source"
)

var verdictChecks = []string{
	CheckImageSize,
	CheckTexture,
	CheckColor,
	CheckSharpness,
	CheckMoire,
	CheckModel,
}

// Evidence is what external components contribute to a liveness decision.
type Evidence struct {
	SelfieFace       *models.FaceResult
	DocumentFace     *models.FaceResult
	SpoofProbability *float64
}

// Engine evaluates selfies against one liveness profile.
type Engine struct {
	profile   validation.LivenessProfile
	extractor analyzer.SignalExtractor
}

func NewEngine(profile validation.LivenessProfile, extractor analyzer.SignalExtractor) *Engine {
	return &Engine{profile: profile, extractor: extractor}
}

// Extract computes the liveness signals, restricted to the face when the
// detector supplied a bounding box.
func (e *Engine) Extract(img *analyzer.RawImage, face *models.FaceResult) analyzer.Signals {
	opts := analyzer.LivenessOptions(e.profile)
	if face.HasFace() && face.BoundingBox != nil {
		opts = opts.WithROI(face.BoundingBox.Rect())
	}
	return e.extractor.Extract(img, opts)
}

// Assess extracts and evaluates in one step.
func (e *Engine) Assess(img *analyzer.RawImage, ev Evidence) *models.LivenessResult {
	return e.Evaluate(e.Extract(img, ev.SelfieFace), ev)
}

// Evaluate runs all six checks. The capture is live only when every one
// passes and the selfie is not the document's own portrait. Confidence is
// the share of passing checks and is reported even when the verdict fails.
func (e *Engine) Evaluate(sig analyzer.Signals, ev Evidence) *models.LivenessResult {
	p := e.profile
	checks := map[string]models.CheckResult{
		CheckImageSize: imageSize(sig, p.MinSidePx),
		CheckTexture:   above(CheckTexture, sig.Texture, p.TextureMin),
		CheckColor:     above(CheckColor, sig.SkinTone, p.SkinToneMin),
		CheckSharpness: above(CheckSharpness, sig.Sharpness, p.SharpnessMin),
		CheckMoire:     above(CheckMoire, sig.Moire, p.MoireMin),
		CheckModel:     modelCheck(ev.SpoofProbability, p),
	}

	failed := models.FailedNames(checks, verdictChecks)
	passed := len(verdictChecks) - len(failed)
	confidence := float64(passed) / float64(len(verdictChecks))

	res := &models.LivenessResult{
		IsLive:           len(failed) == 0,
		Confidence:       confidence,
		SpoofProbability: 1 - confidence,
		Checks:           checks,
	}

	if same, ok := sameSource(ev.SelfieFace, ev.DocumentFace, p.SameSourceMaxSimilarity); ok {
		checks[CheckSameSource] = same
		if !same.Passed {
			res.IsLive = false
			res.SameSourceOverride = true
			failed = append(failed, CheckSameSource)
		}
	}
	res.Error = models.FailureMessage(failed)

	logger.WithFields(logrus.Fields{
		"is_live":    res.IsLive,
		"confidence": res.Confidence,
		"override":   res.SameSourceOverride,
	}).Debug("liveness evaluated")
	return res
}

func imageSize(sig analyzer.Signals, minSide int) models.CheckResult {
	side := sig.MinSide()
	res := models.CheckResult{
		Name:      CheckImageSize,
		Passed:    side >= minSide,
		Score:     models.Clamp01(float64(side) / float64(minSide)),
		RawScore:  models.Float(float64(side)),
		Threshold: float64(minSide),
	}
	if !res.Passed {
		res.Note = fmt.Sprintf("image too small (min side %dpx)", side)
	}
	return res
}

func above(name string, m analyzer.Measurement, threshold float64) models.CheckResult {
	if m.Failed() {
		return models.FailedCheck(name, threshold, m.Err.Error())
	}
	res := validation.Above(name, m.Value, threshold)
	res.RawScore = m.Raw
	return res
}

// modelCheck scores the anti-spoof model as 1 - spoof probability.
func modelCheck(spoof *float64, p validation.LivenessProfile) models.CheckResult {
	if spoof == nil {
		if p.RequireModel {
			return models.FailedCheck(CheckModel, p.ModelMin, "no anti-spoof score supplied")
		}
		return models.CheckResult{Name: CheckModel, Passed: true, Score: 1, Threshold: p.ModelMin, Note: "not required"}
	}
	res := validation.AtLeast(CheckModel, 1-*spoof, p.ModelMin)
	res.RawScore = models.Float(*spoof)
	return res
}

// sameSource compares face embeddings of the selfie and the document
// portrait. It only applies when both embeddings are present and
// comparable.
func sameSource(selfie, document *models.FaceResult, maxSimilarity float64) (models.CheckResult, bool) {
	if selfie == nil || document == nil {
		return models.CheckResult{}, false
	}
	a, b := selfie.Embedding, document.Embedding
	if len(a) == 0 || len(a) != len(b) {
		if len(a) != len(b) && len(a) > 0 && len(b) > 0 {
			logger.WithFields(logrus.Fields{"selfie": len(a), "document": len(b)}).Warn("face embedding sizes differ")
		}
		return models.CheckResult{}, false
	}
	sim, ok := cosineSimilarity(a, b)
	if !ok {
		return models.CheckResult{}, false
	}
	res := validation.AtMost(CheckSameSource, sim, maxSimilarity)
	res.RawScore = models.Float(sim)
	if !res.Passed {
		res.Note = "selfie matches the document portrait too closely"
	}
	return res, true
}

func cosineSimilarity(a, b []float64) (float64, bool) {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, false
	}
	return floats.Dot(a, b) / (na * nb), true
}
