package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go-capture-inspector/internal/analyzer"
	"go-capture-inspector/internal/document"
	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/internal/liveness"
	"go-capture-inspector/internal/logger"
	"go-capture-inspector/internal/observer"
	"go-capture-inspector/internal/ocr"
	"go-capture-inspector/internal/repository"
	"go-capture-inspector/pkg/models"
	"go-capture-inspector/pkg/validation"
)

// CaptureService defines the verdict operations exposed over HTTP
type CaptureService interface {
	ValidateDocument(ctx context.Context, req *models.DocumentValidationRequest) (*models.ValidationResult, error)
	AssessLiveness(ctx context.Context, req *models.LivenessRequest) (*models.LivenessResult, error)
}

// Dependencies groups what the service is built from. OCR and Events are
// optional; a zero MaxPixels means analyzer.DefaultMaxPixels.
type Dependencies struct {
	Images    repository.ImageRepository
	Validator *document.Validator
	Liveness  *liveness.Engine
	Pool      *analyzer.WorkerPool
	OCR       ocr.Provider
	Events    observer.Subject
	Timeout   time.Duration
	MaxPixels int64
}

type captureService struct {
	Dependencies
}

// NewCaptureService creates a new capture service
func NewCaptureService(deps Dependencies) CaptureService {
	return &captureService{Dependencies: deps}
}

// loaded is one decoded capture plus the signals extracted from it.
type loaded struct {
	data    []byte
	signals analyzer.Signals
}

// ValidateDocument loads, decodes and analyses the front and optional back
// captures in parallel, then folds both into one verdict.
func (s *captureService) ValidateDocument(ctx context.Context, req *models.DocumentValidationRequest) (*models.ValidationResult, error) {
	start := time.Now()
	subject := string(req.DocumentType)
	s.publish(ctx, observer.VerdictEvent{Type: observer.VerdictStarted, Kind: observer.KindDocument, Subject: subject})

	res, err := s.validateDocument(ctx, req)
	if err != nil {
		s.publishFailure(ctx, observer.KindDocument, subject, start, err)
		return nil, err
	}

	s.publish(ctx, observer.VerdictEvent{
		Type:         observer.VerdictCompleted,
		Kind:         observer.KindDocument,
		Subject:      subject,
		Duration:     time.Since(start),
		Passed:       res.Passed,
		FailedChecks: models.FailedNames(res.Checks, models.SortedNames(res.Checks)),
	})
	return res, nil
}

func (s *captureService) validateDocument(ctx context.Context, req *models.DocumentValidationRequest) (*models.ValidationResult, error) {
	frontKey, ok := document.FrontProfile(req.DocumentType)
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported document type %q", req.DocumentType), nil)
	}
	backKey, hasBack := document.BackProfile(req.DocumentType)
	if req.Back != nil && !hasBack {
		return nil, apperrors.NewValidationError(fmt.Sprintf("document type %q has no back side", req.DocumentType), nil)
	}
	if err := s.Images.ValidateRef(&req.Front); err != nil {
		return nil, err
	}
	if req.Back != nil {
		if err := s.Images.ValidateRef(req.Back); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var front, back *loaded
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		front, err = s.loadDocument(gctx, &req.Front, frontKey)
		return err
	})
	if req.Back != nil {
		g.Go(func() error {
			var err error
			back, err = s.loadDocument(gctx, req.Back, backKey)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, asTimeout(ctx, err)
	}

	ext := document.External{OCR: req.OCR, Face: req.Face}
	if ext.OCR == nil {
		ext.OCR = s.extractText(ctx, front.data)
	}

	frontEval, err := s.Validator.Evaluate(frontKey, front.signals, ext)
	if err != nil {
		return nil, err
	}
	var backEval *document.Evaluation
	if back != nil {
		// The back side carries no portrait and no OCR contract.
		ev, err := s.Validator.Evaluate(backKey, back.signals, document.External{})
		if err != nil {
			return nil, err
		}
		backEval = &ev
	}
	return document.Result(req.DocumentType, frontEval, backEval), nil
}

func (s *captureService) loadDocument(ctx context.Context, ref *models.ImageRef, key validation.ProfileKey) (*loaded, error) {
	data, img, err := s.load(ctx, observer.KindDocument, ref)
	if err != nil {
		return nil, err
	}

	var (
		sig        analyzer.Signals
		extractErr error
	)
	if err := s.Pool.Do(ctx, func() {
		sig, extractErr = s.Validator.Extract(key, img)
	}); err != nil {
		return nil, err
	}
	if extractErr != nil {
		return nil, extractErr
	}
	return &loaded{data: data, signals: sig}, nil
}

// AssessLiveness loads the selfie and runs the liveness engine on it.
func (s *captureService) AssessLiveness(ctx context.Context, req *models.LivenessRequest) (*models.LivenessResult, error) {
	start := time.Now()
	const subject = "selfie"
	s.publish(ctx, observer.VerdictEvent{Type: observer.VerdictStarted, Kind: observer.KindLiveness, Subject: subject})

	res, err := s.assessLiveness(ctx, req)
	if err != nil {
		s.publishFailure(ctx, observer.KindLiveness, subject, start, err)
		return nil, err
	}

	s.publish(ctx, observer.VerdictEvent{
		Type:         observer.VerdictCompleted,
		Kind:         observer.KindLiveness,
		Subject:      subject,
		Duration:     time.Since(start),
		Passed:       res.IsLive,
		FailedChecks: models.FailedNames(res.Checks, models.SortedNames(res.Checks)),
		Metadata: map[string]interface{}{
			"confidence":           res.Confidence,
			"same_source_override": res.SameSourceOverride,
		},
	})
	return res, nil
}

func (s *captureService) assessLiveness(ctx context.Context, req *models.LivenessRequest) (*models.LivenessResult, error) {
	if p := req.SpoofProbability; p != nil && (*p < 0 || *p > 1) {
		return nil, apperrors.NewValidationError("spoof_probability must be within [0,1]", nil)
	}
	if err := s.Images.ValidateRef(&req.Selfie); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	_, img, err := s.load(ctx, observer.KindLiveness, &req.Selfie)
	if err != nil {
		return nil, asTimeout(ctx, err)
	}

	var sig analyzer.Signals
	if err := s.Pool.Do(ctx, func() {
		sig = s.Liveness.Extract(img, req.SelfieFace)
	}); err != nil {
		return nil, asTimeout(ctx, err)
	}

	return s.Liveness.Evaluate(sig, liveness.Evidence{
		SelfieFace:       req.SelfieFace,
		DocumentFace:     req.DocumentFace,
		SpoofProbability: req.SpoofProbability,
	}), nil
}

// load resolves and decodes one capture.
func (s *captureService) load(ctx context.Context, kind observer.Kind, ref *models.ImageRef) ([]byte, *analyzer.RawImage, error) {
	data, err := s.Images.Load(ctx, ref)
	if err != nil {
		s.publish(ctx, observer.VerdictEvent{
			Type:         observer.ImageLoadFailed,
			Kind:         kind,
			ErrorType:    errorType(err),
			ErrorMessage: err.Error(),
		})
		return nil, nil, err
	}

	img, err := analyzer.DecodeLimited(data, s.MaxPixels)
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, observer.VerdictEvent{
		Type: observer.ImageLoaded,
		Kind: kind,
		Metadata: map[string]interface{}{
			"image": img.Metadata(),
			"bytes": len(data),
		},
	})
	return data, img, nil
}

// extractText runs the OCR provider when one is configured. OCR failure is
// not fatal: checks that need text simply fail.
func (s *captureService) extractText(ctx context.Context, data []byte) *models.OCRResult {
	if s.OCR == nil {
		return nil
	}
	res, err := s.OCR.Extract(ctx, data)
	if err != nil {
		logger.WithError(err).Warn("OCR extraction failed, continuing without text")
		return nil
	}
	logger.WithFields(logrus.Fields{
		"blocks":     len(res.TextBlocks),
		"confidence": res.Confidence,
	}).Debug("OCR extraction finished")
	return res
}

func (s *captureService) publish(ctx context.Context, event observer.VerdictEvent) {
	if s.Events == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = RequestID(ctx)
	}
	s.Events.NotifyObservers(ctx, event)
}

func (s *captureService) publishFailure(ctx context.Context, kind observer.Kind, subject string, start time.Time, err error) {
	s.publish(ctx, observer.VerdictEvent{
		Type:         observer.VerdictFailed,
		Kind:         kind,
		Subject:      subject,
		Duration:     time.Since(start),
		ErrorType:    errorType(err),
		ErrorMessage: err.Error(),
	})
}

// asTimeout reports an expired analysis deadline as a timeout error.
func asTimeout(ctx context.Context, err error) error {
	if apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("analysis deadline exceeded", err)
	}
	return err
}

func errorType(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Type)
	}
	return string(apperrors.ErrorTypeInternal)
}
