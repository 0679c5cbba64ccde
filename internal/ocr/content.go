// Package ocr interprets text extracted from a capture. Extraction itself is
// an external concern; see the tesseract subpackage for the bundled provider.
package ocr

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/arbovm/levenshtein"

	"go-capture-inspector/pkg/models"
)

// Required content kinds a profile can ask for.
const (
	ContentIdentifier = "identifier"
	ContentMRZ        = "mrz"
)

// Provider extracts text from encoded image bytes.
type Provider interface {
	Extract(ctx context.Context, data []byte) (*models.OCRResult, error)
}

// mrzLine matches one machine-readable-zone line once spaces are removed.
// TD1 lines are 30 characters and TD3 lines 44; filler runs always appear.
var mrzLine = regexp.MustCompile(`^[A-Z0-9<]{30,44}$`)

// FindIdentifier returns the first match of pattern, preferring the
// identifier field reported by the OCR component over raw text.
func FindIdentifier(res *models.OCRResult, pattern *regexp.Regexp) (string, bool) {
	if res == nil || pattern == nil {
		return "", false
	}
	if m := pattern.FindString(res.Identifier); m != "" {
		return m, true
	}
	for _, block := range res.TextBlocks {
		if m := pattern.FindString(block); m != "" {
			return m, true
		}
	}
	return "", false
}

// FindMRZ returns the first MRZ-like line. Lines are upper-cased and
// stripped of spaces, which OCR engines insert around filler characters.
func FindMRZ(res *models.OCRResult) (string, bool) {
	if res == nil {
		return "", false
	}
	for _, block := range res.TextBlocks {
		for _, line := range strings.Split(block, "\n") {
			norm := strings.ToUpper(strings.Join(strings.Fields(line), ""))
			if mrzLine.MatchString(norm) && strings.Contains(norm, "<<") {
				return norm, true
			}
		}
	}
	return "", false
}

// HasContent reports whether res contains the content of the given kind.
// An empty kind requires nothing.
func HasContent(res *models.OCRResult, kind string, identifier *regexp.Regexp) bool {
	switch kind {
	case "":
		return true
	case ContentIdentifier:
		_, ok := FindIdentifier(res, identifier)
		return ok
	case ContentMRZ:
		_, ok := FindMRZ(res)
		return ok
	}
	return false
}

// Confidence is the confidence for the required content: a per-field value
// for kind wins over the overall confidence.
func Confidence(res *models.OCRResult, kind string) float64 {
	if res == nil {
		return 0
	}
	if c, ok := res.FieldConfidence[kind]; ok && kind != "" {
		return c
	}
	return res.Confidence
}

// DeclaresType reports whether the document type named by the OCR component
// is one of declared, ignoring case.
func DeclaresType(res *models.OCRResult, declared []string) bool {
	if res == nil || res.DocumentType == "" {
		return false
	}
	for _, d := range declared {
		if strings.EqualFold(res.DocumentType, d) {
			return true
		}
	}
	return false
}

// MatchKeyword returns the first keyword found among the text tokens within
// maxDistance edits. Matching is case-insensitive.
func MatchKeyword(res *models.OCRResult, keywords []string, maxDistance int) (string, bool) {
	if res == nil || len(keywords) == 0 {
		return "", false
	}
	for _, block := range res.TextBlocks {
		for _, token := range tokens(block) {
			for _, kw := range keywords {
				kw = strings.ToUpper(kw)
				if abs(len(token)-len(kw)) > maxDistance {
					continue
				}
				if levenshtein.Distance(token, kw) <= maxDistance {
					return kw, true
				}
			}
		}
	}
	return "", false
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
