//go:build tesseract

package container

import (
	"go-capture-inspector/internal/config"
	"go-capture-inspector/internal/ocr"
	"go-capture-inspector/internal/ocr/tesseract"
)

func newOCRProvider(cfg *config.Config) ocr.Provider {
	if !cfg.OCREnabled {
		return nil
	}
	return tesseract.New(cfg.OCRLanguages)
}
