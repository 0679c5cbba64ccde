// Package document folds extracted signals into per-profile document checks
// and an overall verdict.
package document

import (
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"go-capture-inspector/internal/analyzer"
	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/internal/logger"
	"go-capture-inspector/pkg/models"
	"go-capture-inspector/pkg/validation"
)

// Evaluation is the outcome of one capture under one profile.
type Evaluation struct {
	Profile validation.ProfileKey
	Checks  map[string]models.CheckResult
	Passed  bool
	Failed  []string
}

// Validator evaluates document captures. It holds only read-only profile
// data and is safe for concurrent use.
type Validator struct {
	profiles    *validation.ProfileSet
	identifiers map[validation.ProfileKey]*regexp.Regexp
	extractor   analyzer.SignalExtractor
}

// NewValidator prepares a validator over a validated profile set.
func NewValidator(profiles *validation.ProfileSet, extractor analyzer.SignalExtractor) (*Validator, error) {
	if profiles == nil {
		return nil, apperrors.NewConfigurationError("threshold profiles are required", nil)
	}
	v := &Validator{
		profiles:    profiles,
		identifiers: make(map[validation.ProfileKey]*regexp.Regexp),
		extractor:   extractor,
	}
	for key := range checkPlans {
		p, err := profiles.Document(key)
		if err != nil {
			return nil, err
		}
		if p.Readability.IdentifierPattern == "" {
			continue
		}
		re, err := regexp.Compile(p.Readability.IdentifierPattern)
		if err != nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("profile %s: bad identifier pattern", key), err)
		}
		v.identifiers[key] = re
	}
	return v, nil
}

// Extract computes the signals a document profile needs from img.
func (v *Validator) Extract(key validation.ProfileKey, img *analyzer.RawImage) (analyzer.Signals, error) {
	p, err := v.profiles.Document(key)
	if err != nil {
		return analyzer.Signals{}, err
	}
	return v.extractor.Extract(img, analyzer.DocumentOptions(p)), nil
}

// Evaluate runs every check in the profile's plan. No check short-circuits
// another, so the result names every failure.
func (v *Validator) Evaluate(key validation.ProfileKey, sig analyzer.Signals, ext External) (Evaluation, error) {
	p, err := v.profiles.Document(key)
	if err != nil {
		return Evaluation{}, err
	}
	plan := checkPlans[key]
	identifier := v.identifiers[key]

	builders := map[string]func() models.CheckResult{
		CheckResolution:        func() models.CheckResult { return resolution(sig, p.Resolution) },
		CheckOfficialDocument:  func() models.CheckResult { return officialDocument(ext) },
		CheckDocumentTypeMatch: func() models.CheckResult { return documentTypeMatch(ext, p.DocumentType) },
		CheckCaptureSource:     func() models.CheckResult { return captureSource(sig, p.CaptureSource) },
		CheckReadability:       func() models.CheckResult { return readability(sig, ext, p, identifier) },
		CheckFraming:           func() models.CheckResult { return framing(sig.Boundary, p.Framing) },
		CheckOcclusion:         func() models.CheckResult { return occlusion(sig, ext, p, identifier) },
		CheckNoExtraObjects:    func() models.CheckResult { return noExtraObjects(sig.Boundary, p.Framing) },
		CheckIntegrity:         func() models.CheckResult { return integrity(ext) },
	}

	ev := Evaluation{Profile: key, Checks: make(map[string]models.CheckResult, len(plan))}
	for _, name := range plan {
		ev.Checks[name] = runCheck(name, builders[name])
	}
	ev.Failed = models.FailedNames(ev.Checks, plan)
	ev.Passed = len(ev.Failed) == 0
	return ev, nil
}

// runCheck turns a panic inside one check into a failed result.
func runCheck(name string, build func() models.CheckResult) (res models.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.NewCheckComputationError(name, fmt.Errorf("panic: %v", r))
			logger.WithError(err).WithField("check", name).Error("check computation failed")
			res = models.FailedCheck(name, 0, err.Error())
		}
	}()
	if build == nil {
		return models.FailedCheck(name, 0, "check not implemented")
	}
	return build()
}

// Result folds front and optional back evaluations into the reported verdict.
// A back evaluation adds the aggregated back-side check to the front checks.
func Result(docType models.DocumentType, front Evaluation, back *Evaluation) *models.ValidationResult {
	res := &models.ValidationResult{
		DocumentType: docType,
		Checks:       make(map[string]models.CheckResult, len(front.Checks)+1),
	}
	for name, c := range front.Checks {
		res.Checks[name] = c
	}
	failed := append([]string(nil), front.Failed...)

	if back != nil {
		plan := checkPlans[back.Profile]
		subs := make([]models.CheckResult, 0, len(plan))
		for _, name := range plan {
			subs = append(subs, back.Checks[name])
		}
		agg := validation.Conjunction(CheckBackSide, subs...)
		res.Checks[CheckBackSide] = agg
		res.ChecksBack = back.Checks
		if !agg.Passed {
			failed = append(failed, CheckBackSide)
		}
	}

	res.Passed = len(failed) == 0
	res.Error = models.FailureMessage(failed)
	return res
}

// Validate extracts and evaluates the front and, for document types that
// have one, the back capture.
func (v *Validator) Validate(docType models.DocumentType, front, back *analyzer.RawImage, ext External) (*models.ValidationResult, error) {
	frontKey, ok := FrontProfile(docType)
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported document type %q", docType), nil)
	}
	backKey, hasBack := BackProfile(docType)
	if back != nil && !hasBack {
		return nil, apperrors.NewValidationError(fmt.Sprintf("document type %q has no back side", docType), nil)
	}

	sig, err := v.Extract(frontKey, front)
	if err != nil {
		return nil, err
	}
	frontEval, err := v.Evaluate(frontKey, sig, ext)
	if err != nil {
		return nil, err
	}

	var backEval *Evaluation
	if back != nil {
		backSig, err := v.Extract(backKey, back)
		if err != nil {
			return nil, err
		}
		ev, err := v.Evaluate(backKey, backSig, External{})
		if err != nil {
			return nil, err
		}
		backEval = &ev
	}

	res := Result(docType, frontEval, backEval)
	logger.WithFields(logrus.Fields{
		"document_type": docType,
		"passed":        res.Passed,
		"failed":        frontEval.Failed,
	}).Debug("document evaluated")
	return res, nil
}
