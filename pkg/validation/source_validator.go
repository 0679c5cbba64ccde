package validation

import (
	"encoding/base64"
	"net/url"
	"strings"

	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/pkg/models"
)

// SourceValidator checks where capture bytes may come from.
type SourceValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	maxInlineBytes int
}

// NewSourceValidator accepts http(s) URLs on any host. A host entry starting
// with "." matches any subdomain, e.g. ".blob.core.windows.net".
func NewSourceValidator(hosts []string, maxInlineBytes int) *SourceValidator {
	return &SourceValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   hosts,
		maxInlineBytes: maxInlineBytes,
	}
}

// ValidateRef requires exactly one of URL or inline data.
func (v *SourceValidator) ValidateRef(ref *models.ImageRef) error {
	if ref.IsZero() {
		return apperrors.NewValidationError("image reference is empty", nil)
	}
	if ref.URL != "" && ref.Data != "" {
		return apperrors.NewValidationError("image reference must set either url or data, not both", nil)
	}
	if ref.URL != "" {
		return v.ValidateImageURL(ref.URL)
	}
	if v.maxInlineBytes > 0 && base64.StdEncoding.DecodedLen(len(ref.Data)) > v.maxInlineBytes {
		return apperrors.NewValidationError("inline image exceeds size limit", nil)
	}
	return nil
}

// ValidateImageURL validates if the provided URL is acceptable for capture retrieval
func (v *SourceValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

func (v *SourceValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *SourceValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, allowed := range v.allowedHosts {
		allowed = strings.ToLower(allowed)
		if strings.HasPrefix(allowed, ".") {
			if strings.HasSuffix(host, allowed) {
				return true
			}
			continue
		}
		if host == allowed {
			return true
		}
	}
	return false
}
