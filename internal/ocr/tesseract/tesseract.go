//go:build tesseract

// Package tesseract extracts text with the Tesseract engine. It needs the
// tesseract and leptonica shared libraries at build and run time, so it is
// only compiled with the tesseract build tag.
package tesseract

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/internal/logger"
	"go-capture-inspector/pkg/models"
)

// Provider runs one tesseract client per call; clients are not safe for
// concurrent use.
type Provider struct {
	languages []string
}

// New returns a provider for the given tesseract language codes.
func New(languages []string) *Provider {
	return &Provider{languages: languages}
}

// Extract reads text lines and their confidences from data. Line
// confidences are averaged into the overall confidence in [0,1].
func (p *Provider) Extract(ctx context.Context, data []byte) (*models.OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTimeoutError("ocr cancelled", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(p.languages) > 0 {
		if err := client.SetLanguage(p.languages...); err != nil {
			return nil, apperrors.NewConfigurationError("unsupported ocr language", err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, apperrors.NewInputError("ocr could not read image", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, apperrors.NewInternalError("ocr failed", err)
	}

	res := &models.OCRResult{TextBlocks: make([]string, 0, len(boxes))}
	var sum float64
	for _, b := range boxes {
		line := strings.TrimSpace(b.Word)
		if line == "" {
			continue
		}
		res.TextBlocks = append(res.TextBlocks, line)
		sum += b.Confidence
	}
	if n := len(res.TextBlocks); n > 0 {
		res.Confidence = sum / float64(n) / 100
	}

	logger.WithFields(logrus.Fields{
		"lines":      len(res.TextBlocks),
		"confidence": res.Confidence,
	}).Debug("ocr extracted text")
	return res, nil
}
