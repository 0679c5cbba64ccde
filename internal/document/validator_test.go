package document

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-capture-inspector/internal/analyzer"
	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/pkg/models"
	"go-capture-inspector/pkg/validation"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	set, err := validation.DefaultProfiles()
	require.NoError(t, err)
	v, err := NewValidator(set, analyzer.NewExtractor())
	require.NoError(t, err)
	return v
}

func measurement(v float64) *analyzer.Measurement {
	m := analyzer.Measured(v)
	return &m
}

// genuineFront describes an 800x500 capture of a real card.
func genuineFront() analyzer.Signals {
	return analyzer.Signals{
		Width:      800,
		Height:     500,
		Sharpness:  analyzer.Measured(0.5),
		Moire:      analyzer.Measured(0.5),
		ScreenGrid: analyzer.Measured(0.3),
		Texture:    analyzer.Measured(0.5),
		Halftone:   analyzer.Measured(0.1),
		Saturation: analyzer.Measured(0.3),
		Glare:      analyzer.Measured(0.05),
		Boundary: &analyzer.Boundary{
			AspectRatio: 1.5,
			AreaRatio:   0.8,
			Margins:     analyzer.Margins{Left: 0.05, Top: 0.05, Right: 0.05, Bottom: 0.05},
		},
		SkinRatio: measurement(0.05),
		FlatRatio: measurement(0.1),
	}
}

func genuineExternal() External {
	return External{
		OCR: &models.OCRResult{
			TextBlocks: []string{"REPUBLIC OF YEMEN", "12345678901"},
			Confidence: 0.8,
		},
		Face: &models.FaceResult{Present: true},
	}
}

func evaluate(t *testing.T, v *Validator, key validation.ProfileKey, sig analyzer.Signals, ext External) Evaluation {
	t.Helper()
	ev, err := v.Evaluate(key, sig, ext)
	require.NoError(t, err)
	return ev
}

func assertScoresInRange(t *testing.T, checks map[string]models.CheckResult) {
	t.Helper()
	for name, c := range checks {
		assert.GreaterOrEqual(t, c.Score, 0.0, name)
		assert.LessOrEqual(t, c.Score, 1.0, name)
		assertScoresInRange(t, c.SubChecks)
	}
}

func TestYemenFrontPasses(t *testing.T) {
	v := newTestValidator(t)

	ev := evaluate(t, v, validation.ProfileYemenIDFront, genuineFront(), genuineExternal())
	assert.True(t, ev.Passed, "failed: %v", ev.Failed)
	assert.Len(t, ev.Checks, 8)

	res := Result(models.DocumentTypeYemenID, ev, nil)
	assert.True(t, res.Passed)
	assert.Nil(t, res.Error)
	assert.Nil(t, res.ChecksBack)
	assertScoresInRange(t, res.Checks)
}

func TestYemenFrontGlareFails(t *testing.T) {
	v := newTestValidator(t)
	sig := genuineFront()
	sig.Glare = analyzer.Measured(0.25)

	res := Result(models.DocumentTypeYemenID, evaluate(t, v, validation.ProfileYemenIDFront, sig, genuineExternal()), nil)
	assert.False(t, res.Passed)
	obscured := res.Checks[CheckOcclusion]
	assert.False(t, obscured.Passed)
	assert.False(t, obscured.SubChecks[analyzer.SignalGlare].Passed)
	require.NotNil(t, res.Error)
	assert.Equal(t, "failed checks: not_obscured", *res.Error)
}

func TestEveryFailureIsReported(t *testing.T) {
	v := newTestValidator(t)
	sig := genuineFront()
	sig.Width, sig.Height = 400, 300
	ext := genuineExternal()
	ext.Face = nil

	res := Result(models.DocumentTypeYemenID, evaluate(t, v, validation.ProfileYemenIDFront, sig, ext), nil)
	require.NotNil(t, res.Error)
	assert.Equal(t, "failed checks: resolution, official_document, not_obscured, integrity", *res.Error)
	assert.Len(t, res.Checks, 8, "all checks still ran")
}

func TestComparisonDirectionsAtThreshold(t *testing.T) {
	v := newTestValidator(t)
	set, err := validation.DefaultProfiles()
	require.NoError(t, err)
	th := set.YemenIDFront.CaptureSource

	sig := genuineFront()
	sig.Moire = analyzer.Measured(th.MoireMin)
	sig.ScreenGrid = analyzer.Measured(th.ScreenGridMax)
	sig.Halftone = analyzer.Measured(th.HalftoneMax)
	sig.Texture = analyzer.Measured(th.Texture.Max)
	sig.Sharpness = analyzer.Measured(th.SharpnessMin)

	subs := evaluate(t, v, validation.ProfileYemenIDFront, sig, genuineExternal()).Checks[CheckCaptureSource].SubChecks
	assert.False(t, subs[analyzer.SignalMoire].Passed, "moire is strict")
	assert.True(t, subs[analyzer.SignalScreenGrid].Passed)
	assert.True(t, subs[analyzer.SignalHalftone].Passed)
	assert.True(t, subs[analyzer.SignalTexture].Passed)
	assert.True(t, subs[analyzer.SignalSharpness].Passed)

	sig.Texture = analyzer.Measured(th.Texture.Min)
	subs = evaluate(t, v, validation.ProfileYemenIDFront, sig, genuineExternal()).Checks[CheckCaptureSource].SubChecks
	assert.True(t, subs[analyzer.SignalTexture].Passed)
}

func TestPassportScreenCaptureSignature(t *testing.T) {
	v := newTestValidator(t)
	sig := genuineFront()
	sig.Width, sig.Height = 900, 640
	sig.Moire = analyzer.Measured(0.345)
	sig.ScreenGrid = analyzer.Measured(0.40)

	capture := evaluate(t, v, validation.ProfilePassport, sig, genuineExternal()).Checks[CheckCaptureSource]
	assert.False(t, capture.Passed)
	assert.True(t, capture.SubChecks[analyzer.SignalMoire].Passed)
	assert.True(t, capture.SubChecks[analyzer.SignalScreenGrid].Passed)
	assert.False(t, capture.SubChecks[subScreenCapture].Passed)

	sig.ScreenGrid = analyzer.Measured(0.30)
	capture = evaluate(t, v, validation.ProfilePassport, sig, genuineExternal()).Checks[CheckCaptureSource]
	assert.True(t, capture.Passed)

	// Yemen ID profiles carry no joint rule.
	sig.ScreenGrid = analyzer.Measured(0.40)
	capture = evaluate(t, v, validation.ProfileYemenIDFront, sig, genuineExternal()).Checks[CheckCaptureSource]
	assert.True(t, capture.Passed)
	assert.NotContains(t, capture.SubChecks, subScreenCapture)
}

func TestSaturationGate(t *testing.T) {
	v := newTestValidator(t)
	sig := genuineFront()
	sig.Saturation = analyzer.Measured(0.02)

	gate := evaluate(t, v, validation.ProfileYemenIDFront, sig, genuineExternal()).Checks[CheckCaptureSource].SubChecks[subSaturation]
	assert.True(t, gate.Passed)
	assert.Equal(t, "not triggered", gate.Note)

	sig.Texture = analyzer.Measured(0.95)
	gate = evaluate(t, v, validation.ProfileYemenIDFront, sig, genuineExternal()).Checks[CheckCaptureSource].SubChecks[subSaturation]
	assert.False(t, gate.Passed)
}

func TestFramingMarginBypass(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name   string
		area   float64
		margin float64
		passed bool
	}{
		{"fills frame without margin", 0.9, 0, true},
		{"comfortable margins", 0.6, 0.05, true},
		{"small document touching edge", 0.6, 0, false},
		{"too small", 0.4, 0.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := genuineFront()
			sig.Boundary = &analyzer.Boundary{
				AspectRatio: 1.5,
				AreaRatio:   tt.area,
				Margins:     analyzer.Margins{Left: tt.margin, Top: tt.margin, Right: tt.margin, Bottom: tt.margin},
			}
			check := evaluate(t, v, validation.ProfileYemenIDFront, sig, genuineExternal()).Checks[CheckFraming]
			assert.Equal(t, tt.passed, check.Passed)
			assert.InDelta(t, tt.area, check.Score, 1e-9)
		})
	}
}

func TestMissingBoundary(t *testing.T) {
	v := newTestValidator(t)
	sig := genuineFront()
	sig.Boundary = nil
	sig.SkinRatio = nil
	sig.FlatRatio = nil

	ev := evaluate(t, v, validation.ProfileYemenIDFront, sig, genuineExternal())
	assert.False(t, ev.Checks[CheckFraming].Passed)
	assert.False(t, ev.Checks[CheckNoExtraObjects].Passed)
	assert.True(t, ev.Checks[CheckOcclusion].Passed, "obstruction only applies with a boundary")
	assert.NotContains(t, ev.Checks[CheckOcclusion].SubChecks, analyzer.SignalFlatCells)
}

func TestFailedSignalFailsOnlyItsChecks(t *testing.T) {
	v := newTestValidator(t)
	sig := genuineFront()
	sig.Moire = analyzer.FailedMeasurement(analyzer.SignalMoire, errors.New("degenerate spectrum"))

	ev := evaluate(t, v, validation.ProfileYemenIDFront, sig, genuineExternal())
	assert.Equal(t, []string{CheckCaptureSource}, ev.Failed)
	moire := ev.Checks[CheckCaptureSource].SubChecks[analyzer.SignalMoire]
	assert.False(t, moire.Passed)
	assert.Contains(t, moire.Note, "degenerate spectrum")
}

func TestReadability(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name   string
		ocr    *models.OCRResult
		passed bool
	}{
		{"no ocr", nil, false},
		{"low confidence", &models.OCRResult{TextBlocks: []string{"12345678901"}, Confidence: 0.5}, false},
		{"missing identifier", &models.OCRResult{TextBlocks: []string{"REPUBLIC OF YEMEN"}, Confidence: 0.9}, false},
		{"field confidence wins", &models.OCRResult{
			TextBlocks:      []string{"12345678901"},
			Confidence:      0.3,
			FieldConfidence: map[string]float64{"identifier": 0.9},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := genuineExternal()
			ext.OCR = tt.ocr
			ev := evaluate(t, v, validation.ProfileYemenIDFront, genuineFront(), ext)
			assert.Equal(t, tt.passed, ev.Checks[CheckReadability].Passed)
		})
	}
}

func TestDocumentTypeMatch(t *testing.T) {
	v := newTestValidator(t)
	sig := genuineFront()
	sig.Width, sig.Height = 900, 640

	tests := []struct {
		name   string
		ocr    *models.OCRResult
		passed bool
	}{
		{"no ocr", nil, false},
		{"declared", &models.OCRResult{DocumentType: "passport"}, true},
		{"mrz", &models.OCRResult{TextBlocks: []string{"P<YEMALAHMADI<<MOHAMMED<ALI<<<<<<<<<<<<<<<<<"}}, true},
		{"keyword", &models.OCRResult{TextBlocks: []string{"REPUBLIC OF YEMEN PASSP0RT"}}, true},
		{"national id", &models.OCRResult{DocumentType: "yemen_id", TextBlocks: []string{"REPUBLIC OF YEMEN"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := genuineExternal()
			ext.OCR = tt.ocr
			ev := evaluate(t, v, validation.ProfilePassport, sig, ext)
			assert.Equal(t, tt.passed, ev.Checks[CheckDocumentTypeMatch].Passed)
		})
	}
}

func TestBackSideAggregation(t *testing.T) {
	v := newTestValidator(t)
	front := evaluate(t, v, validation.ProfileYemenIDFront, genuineFront(), genuineExternal())

	backSig := genuineFront()
	back := evaluate(t, v, validation.ProfileYemenIDBack, backSig, External{})
	assert.True(t, back.Passed, "back needs no OCR or face: %v", back.Failed)
	assert.Len(t, back.Checks, 5)

	res := Result(models.DocumentTypeYemenID, front, &back)
	assert.True(t, res.Passed)
	assert.Equal(t, back.Checks, res.ChecksBack)
	assert.Len(t, res.Checks[CheckBackSide].SubChecks, 5)

	backSig.Boundary = nil
	back = evaluate(t, v, validation.ProfileYemenIDBack, backSig, External{})
	res = Result(models.DocumentTypeYemenID, front, &back)
	assert.False(t, res.Passed)
	assert.False(t, res.Checks[CheckBackSide].Passed)
	require.NotNil(t, res.Error)
	assert.Equal(t, "failed checks: original_and_genuine_back", *res.Error)
}

func TestUnknownProfile(t *testing.T) {
	v := newTestValidator(t)
	_, err := v.Evaluate(validation.ProfileLivenessSelfie, genuineFront(), External{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestPlans(t *testing.T) {
	assert.Len(t, Plan(validation.ProfilePassport), 9)
	assert.Contains(t, Plan(validation.ProfilePassport), CheckDocumentTypeMatch)
	assert.NotContains(t, Plan(validation.ProfileYemenIDFront), CheckDocumentTypeMatch)
	assert.NotContains(t, Plan(validation.ProfileYemenIDBack), CheckOcclusion)

	_, ok := BackProfile(models.DocumentTypePassport)
	assert.False(t, ok)
	key, ok := BackProfile(models.DocumentTypeYemenID)
	assert.True(t, ok)
	assert.Equal(t, validation.ProfileYemenIDBack, key)
}

func cardImage(t *testing.T) *analyzer.RawImage {
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
	raw, err := analyzer.FromImage(img, "png")
	require.NoError(t, err)
	return raw
}

func TestValidateImages(t *testing.T) {
	v := newTestValidator(t)
	img := cardImage(t)

	res, err := v.Validate(models.DocumentTypeYemenID, img, img, genuineExternal())
	require.NoError(t, err)
	assert.Equal(t, models.DocumentTypeYemenID, res.DocumentType)
	assert.Len(t, res.Checks, 9)
	assert.Len(t, res.ChecksBack, 5)
	assertScoresInRange(t, res.Checks)

	again, err := v.Validate(models.DocumentTypeYemenID, img, img, genuineExternal())
	require.NoError(t, err)
	assert.Equal(t, res, again)

	_, err = v.Validate(models.DocumentTypePassport, img, img, genuineExternal())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = v.Validate(models.DocumentType("drivers_licence"), img, nil, genuineExternal())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
