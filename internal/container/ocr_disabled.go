//go:build !tesseract

package container

import (
	"go-capture-inspector/internal/config"
	"go-capture-inspector/internal/logger"
	"go-capture-inspector/internal/ocr"
)

// newOCRProvider has nothing to offer without the tesseract build tag.
// Requests must then carry their own OCR result.
func newOCRProvider(cfg *config.Config) ocr.Provider {
	if cfg.OCREnabled {
		logger.Warn("OCR_ENABLED is set but the binary was built without the tesseract tag; OCR fallback is off")
	}
	return nil
}
