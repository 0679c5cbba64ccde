package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-capture-inspector/internal/analyzer"
	"go-capture-inspector/internal/document"
	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/internal/liveness"
	"go-capture-inspector/internal/observer"
	"go-capture-inspector/internal/repository"
	"go-capture-inspector/pkg/models"
	"go-capture-inspector/pkg/validation"
)

// fakeRepository serves inline data directly and maps URLs to canned bytes.
type fakeRepository struct {
	urls  map[string][]byte
	err   error
	block bool
}

func (r *fakeRepository) ValidateRef(ref *models.ImageRef) error {
	if ref.IsZero() {
		return apperrors.NewValidationError("image reference is empty", nil)
	}
	return nil
}

func (r *fakeRepository) Load(ctx context.Context, ref *models.ImageRef) ([]byte, error) {
	if r.block {
		<-ctx.Done()
		return nil, apperrors.NewTimeoutError("image fetch timed out", ctx.Err())
	}
	if r.err != nil {
		return nil, r.err
	}
	if ref.Data != "" {
		return base64.StdEncoding.DecodeString(ref.Data)
	}
	return r.urls[ref.URL], nil
}

type fakeOCR struct {
	res   *models.OCRResult
	err   error
	calls int
}

func (f *fakeOCR) Extract(ctx context.Context, data []byte) (*models.OCRResult, error) {
	f.calls++
	return f.res, f.err
}

type recorder struct {
	mu     sync.Mutex
	events []observer.VerdictEvent
}

func (r *recorder) OnEvent(ctx context.Context, event observer.VerdictEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) GetObserverName() string { return "recorder" }

func (r *recorder) ofType(t observer.EventType) []observer.VerdictEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []observer.VerdictEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	svc       CaptureService
	events    *recorder
	publisher *observer.EventPublisher
}

func newFixture(t *testing.T, images repository.ImageRepository, provider *fakeOCR) *fixture {
	t.Helper()
	set, err := validation.DefaultProfiles()
	require.NoError(t, err)
	extractor := analyzer.NewExtractor()
	validator, err := document.NewValidator(set, extractor)
	require.NoError(t, err)

	pool := analyzer.NewWorkerPool(2)
	pool.Start()
	t.Cleanup(pool.Close)

	rec := &recorder{}
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(rec)

	deps := Dependencies{
		Images:    images,
		Validator: validator,
		Liveness:  liveness.NewEngine(set.Liveness(), extractor),
		Pool:      pool,
		Events:    publisher,
		Timeout:   5 * time.Second,
	}
	if provider != nil {
		deps.OCR = provider
	}
	return &fixture{svc: NewCaptureService(deps), events: rec, publisher: publisher}
}

func encode(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func cardPNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 900, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 900; x++ {
			c := color.RGBA{20, 20, 20, 255}
			if x >= 60 && x < 840 && y >= 60 && y < 540 {
				v := uint8(150 + (x*7+y*13)%60)
				c = color.RGBA{v, v - 20, v - 40, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return encode(t, img)
}

func selfiePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			c := color.RGBA{40, 70, 160, 255}
			if x >= 100 && x < 220 && y >= 60 && y < 200 {
				d := uint8((x*31 + y*17) % 24)
				c = color.RGBA{210 + d, 160 + d, 130 + d, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return encode(t, img)
}

func yemenOCR() *models.OCRResult {
	return &models.OCRResult{
		TextBlocks: []string{"REPUBLIC OF YEMEN", "12345678901"},
		Confidence: 0.8,
	}
}

func TestValidateDocumentFrontAndBack(t *testing.T) {
	f := newFixture(t, &fakeRepository{}, nil)
	card := cardPNG(t)

	res, err := f.svc.ValidateDocument(context.Background(), &models.DocumentValidationRequest{
		DocumentType: models.DocumentTypeYemenID,
		Front:        models.ImageRef{Data: card},
		Back:         &models.ImageRef{Data: card},
		OCR:          yemenOCR(),
		Face:         &models.FaceResult{Present: true},
	})
	require.NoError(t, err)
	assert.Len(t, res.Checks, 9)
	assert.Len(t, res.ChecksBack, 5)
	assert.Equal(t, res.Passed, res.Error == nil)

	f.publisher.Flush()
	assert.Len(t, f.events.ofType(observer.ImageLoaded), 2)
	completed := f.events.ofType(observer.VerdictCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, "yemen_id", completed[0].Subject)
	assert.Equal(t, res.Passed, completed[0].Passed)
}

// tiltedCardPNG renders a textured card tilted by deg degrees on a textured
// 4:3 background, the way a phone camera frames an ID.
func tiltedCardPNG(t *testing.T, deg float64, seed int64) string {
	t.Helper()
	const (
		width, height = 1200, 900
		cardW, cardH  = 1100, 690
	)
	rng := rand.New(rand.NewSource(seed))
	sin, cos := math.Sincos(deg * math.Pi / 180)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)+0.5-width/2, float64(y)+0.5-height/2
			n := rng.Intn(121) - 60
			c := color.RGBA{uint8(85 + n), uint8(85 + n), uint8(85 + n), 255}
			if math.Abs(dx*cos+dy*sin) <= cardW/2 && math.Abs(-dx*sin+dy*cos) <= cardH/2 {
				c = color.RGBA{uint8(135 + n), uint8(175 + n), uint8(185 + n), 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return encode(t, img)
}

func TestValidateDocumentGenuineCapturePasses(t *testing.T) {
	f := newFixture(t, &fakeRepository{}, nil)

	res, err := f.svc.ValidateDocument(context.Background(), &models.DocumentValidationRequest{
		DocumentType: models.DocumentTypeYemenID,
		Front:        models.ImageRef{Data: tiltedCardPNG(t, 2.5, 11)},
		Back:         &models.ImageRef{Data: tiltedCardPNG(t, -2, 5)},
		OCR:          yemenOCR(),
		Face:         &models.FaceResult{Present: true},
	})
	require.NoError(t, err)

	for name, check := range res.Checks {
		assert.True(t, check.Passed, "%s: %s", name, check.Note)
	}
	for name, check := range res.ChecksBack {
		assert.True(t, check.Passed, "back %s: %s", name, check.Note)
	}
	assert.True(t, res.Passed)
	assert.Nil(t, res.Error)

	// The 4:3 frame is outside the card aspect range, so framing can only
	// pass on a detected boundary.
	assert.InDelta(t, 0.78, res.Checks[document.CheckFraming].Score, 0.05)

	f.publisher.Flush()
	completed := f.events.ofType(observer.VerdictCompleted)
	require.Len(t, completed, 1)
	assert.True(t, completed[0].Passed)
	assert.Empty(t, completed[0].FailedChecks)
}

func TestValidateDocumentIsDeterministic(t *testing.T) {
	f := newFixture(t, &fakeRepository{}, nil)
	req := &models.DocumentValidationRequest{
		DocumentType: models.DocumentTypePassport,
		Front:        models.ImageRef{Data: cardPNG(t)},
		Face:         &models.FaceResult{Present: true},
	}

	first, err := f.svc.ValidateDocument(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.ValidateDocument(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func passportOCR() *models.OCRResult {
	return &models.OCRResult{
		TextBlocks: []string{"REPUBLIC OF TESTLAND", "PASSPORT"},
		Confidence: 0.8,
	}
}

func TestValidateDocumentOCRFallback(t *testing.T) {
	card := cardPNG(t)
	request := func(text *models.OCRResult) *models.DocumentValidationRequest {
		return &models.DocumentValidationRequest{
			DocumentType: models.DocumentTypePassport,
			Front:        models.ImageRef{Data: card},
			OCR:          text,
		}
	}

	t.Run("provider used when request has no text", func(t *testing.T) {
		provider := &fakeOCR{res: passportOCR()}
		f := newFixture(t, &fakeRepository{}, provider)
		res, err := f.svc.ValidateDocument(context.Background(), request(nil))
		require.NoError(t, err)
		assert.Equal(t, 1, provider.calls)
		assert.True(t, res.Checks[document.CheckDocumentTypeMatch].Passed)
	})

	t.Run("request text wins", func(t *testing.T) {
		provider := &fakeOCR{res: &models.OCRResult{TextBlocks: []string{"nothing useful"}}}
		f := newFixture(t, &fakeRepository{}, provider)
		res, err := f.svc.ValidateDocument(context.Background(), request(passportOCR()))
		require.NoError(t, err)
		assert.Zero(t, provider.calls)
		assert.True(t, res.Checks[document.CheckDocumentTypeMatch].Passed)
	})

	t.Run("provider failure is not fatal", func(t *testing.T) {
		provider := &fakeOCR{err: errors.New("engine crashed")}
		f := newFixture(t, &fakeRepository{}, provider)
		res, err := f.svc.ValidateDocument(context.Background(), request(nil))
		require.NoError(t, err)
		assert.False(t, res.Passed)
		check := res.Checks[document.CheckDocumentTypeMatch]
		assert.False(t, check.Passed)
		assert.Equal(t, "no OCR result", check.Note)
	})
}

func TestValidateDocumentRejectsRequests(t *testing.T) {
	card := cardPNG(t)
	tests := []struct {
		name string
		req  *models.DocumentValidationRequest
	}{
		{"unknown type", &models.DocumentValidationRequest{DocumentType: "drivers_licence", Front: models.ImageRef{Data: card}}},
		{"passport with back", &models.DocumentValidationRequest{
			DocumentType: models.DocumentTypePassport,
			Front:        models.ImageRef{Data: card},
			Back:         &models.ImageRef{Data: card},
		}},
		{"empty front", &models.DocumentValidationRequest{DocumentType: models.DocumentTypeYemenID}},
		{"empty back", &models.DocumentValidationRequest{
			DocumentType: models.DocumentTypeYemenID,
			Front:        models.ImageRef{Data: card},
			Back:         &models.ImageRef{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeRepository{}, nil)
			_, err := f.svc.ValidateDocument(context.Background(), tt.req)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)

			f.publisher.Flush()
			assert.Empty(t, f.events.ofType(observer.ImageLoaded))
			require.Len(t, f.events.ofType(observer.VerdictFailed), 1)
		})
	}
}

func TestValidateDocumentUndecodableImage(t *testing.T) {
	f := newFixture(t, &fakeRepository{}, nil)
	_, err := f.svc.ValidateDocument(context.Background(), &models.DocumentValidationRequest{
		DocumentType: models.DocumentTypePassport,
		Front:        models.ImageRef{Data: base64.StdEncoding.EncodeToString([]byte("not an image"))},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInput), "got %v", err)

	f.publisher.Flush()
	failed := f.events.ofType(observer.VerdictFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "input", failed[0].ErrorType)
}

func TestValidateDocumentRejectsOversizedImage(t *testing.T) {
	f := newFixture(t, &fakeRepository{}, nil)
	f.svc.(*captureService).MaxPixels = 900 * 600 / 2

	_, err := f.svc.ValidateDocument(context.Background(), &models.DocumentValidationRequest{
		DocumentType: models.DocumentTypePassport,
		Front:        models.ImageRef{Data: cardPNG(t)},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInput), "got %v", err)

	f.publisher.Flush()
	assert.Empty(t, f.events.ofType(observer.ImageLoaded))
}

func TestValidateDocumentLoadFailure(t *testing.T) {
	repo := &fakeRepository{err: apperrors.NewNotFoundError("image not found", nil)}
	f := newFixture(t, repo, nil)

	_, err := f.svc.ValidateDocument(context.Background(), &models.DocumentValidationRequest{
		DocumentType: models.DocumentTypePassport,
		Front:        models.ImageRef{URL: "https://cdn.example.com/p.jpg"},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	f.publisher.Flush()
	assert.Len(t, f.events.ofType(observer.ImageLoadFailed), 1)
}

func TestAnalysisDeadline(t *testing.T) {
	f := newFixture(t, &fakeRepository{block: true}, nil)
	f.svc.(*captureService).Timeout = 20 * time.Millisecond

	_, err := f.svc.ValidateDocument(context.Background(), &models.DocumentValidationRequest{
		DocumentType: models.DocumentTypeYemenID,
		Front:        models.ImageRef{URL: "https://cdn.example.com/front.jpg"},
		Back:         &models.ImageRef{URL: "https://cdn.example.com/back.jpg"},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout), "got %v", err)

	_, err = f.svc.AssessLiveness(context.Background(), &models.LivenessRequest{
		Selfie: models.ImageRef{URL: "https://cdn.example.com/selfie.jpg"},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout), "got %v", err)
}

func TestAssessLiveness(t *testing.T) {
	f := newFixture(t, &fakeRepository{}, nil)
	p := 0.1
	face := &models.FaceResult{
		Present:     true,
		BoundingBox: &models.Box{X: 100, Y: 60, Width: 120, Height: 140},
		Embedding:   []float64{0.1, 0.7, 0.2},
	}

	res, err := f.svc.AssessLiveness(context.Background(), &models.LivenessRequest{
		Selfie:           models.ImageRef{Data: selfiePNG(t)},
		SelfieFace:       face,
		SpoofProbability: &p,
	})
	require.NoError(t, err)
	assert.Len(t, res.Checks, 6)
	assert.InDelta(t, 1-res.Confidence, res.SpoofProbability, 1e-9)

	// The document portrait is the selfie itself.
	res, err = f.svc.AssessLiveness(context.Background(), &models.LivenessRequest{
		Selfie:           models.ImageRef{Data: selfiePNG(t)},
		SelfieFace:       face,
		DocumentFace:     face,
		SpoofProbability: &p,
	})
	require.NoError(t, err)
	assert.False(t, res.IsLive)
	assert.True(t, res.SameSourceOverride)
	assert.Contains(t, *res.Error, liveness.CheckSameSource)

	f.publisher.Flush()
	completed := f.events.ofType(observer.VerdictCompleted)
	require.Len(t, completed, 2)
	assert.Equal(t, observer.KindLiveness, completed[1].Kind)
}

func TestAssessLivenessRejectsBadProbability(t *testing.T) {
	f := newFixture(t, &fakeRepository{}, nil)
	p := 1.5
	_, err := f.svc.AssessLiveness(context.Background(), &models.LivenessRequest{
		Selfie:           models.ImageRef{Data: selfiePNG(t)},
		SpoofProbability: &p,
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestRequestIDPropagates(t *testing.T) {
	f := newFixture(t, &fakeRepository{}, nil)
	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))

	_, err := f.svc.AssessLiveness(ctx, &models.LivenessRequest{Selfie: models.ImageRef{Data: selfiePNG(t)}})
	require.NoError(t, err)

	f.publisher.Flush()
	for _, e := range f.events.ofType(observer.VerdictCompleted) {
		assert.Equal(t, "req-42", e.RequestID)
	}
}
