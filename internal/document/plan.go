package document

import (
	"go-capture-inspector/pkg/models"
	"go-capture-inspector/pkg/validation"
)

// Check names as reported in results.
const (
	CheckResolution        = "resolution"
	CheckOfficialDocument  = "official_document"
	CheckDocumentTypeMatch = "document_type_match"
	CheckCaptureSource     = "not_screenshot_or_copy"
	CheckReadability       = "clear_and_readable"
	CheckFraming           = "fully_visible"
	CheckOcclusion         = "not_obscured"
	CheckNoExtraObjects    = "no_extra_objects"
	CheckIntegrity         = "integrity"
	CheckBackSide          = "original_and_genuine_back"
)

// checkPlans lists, in report order, the checks each profile requires.
// A profile's verdict is the AND of exactly these checks.
var checkPlans = map[validation.ProfileKey][]string{
	validation.ProfileYemenIDFront: {
		CheckResolution,
		CheckOfficialDocument,
		CheckCaptureSource,
		CheckReadability,
		CheckFraming,
		CheckOcclusion,
		CheckNoExtraObjects,
		CheckIntegrity,
	},
	validation.ProfileYemenIDBack: {
		CheckResolution,
		CheckCaptureSource,
		CheckReadability,
		CheckFraming,
		CheckNoExtraObjects,
	},
	validation.ProfilePassport: {
		CheckResolution,
		CheckOfficialDocument,
		CheckDocumentTypeMatch,
		CheckCaptureSource,
		CheckReadability,
		CheckFraming,
		CheckOcclusion,
		CheckNoExtraObjects,
		CheckIntegrity,
	},
}

// Plan returns the ordered check names for key.
func Plan(key validation.ProfileKey) []string {
	return append([]string(nil), checkPlans[key]...)
}

// sides maps a document type to its front and optional back profile.
var sides = map[models.DocumentType]struct {
	front, back validation.ProfileKey
}{
	models.DocumentTypeYemenID:  {validation.ProfileYemenIDFront, validation.ProfileYemenIDBack},
	models.DocumentTypePassport: {front: validation.ProfilePassport},
}

// FrontProfile is the profile applied to the front capture of docType.
func FrontProfile(docType models.DocumentType) (validation.ProfileKey, bool) {
	s, ok := sides[docType]
	return s.front, ok
}

// BackProfile is the profile applied to the back capture, if docType has one.
func BackProfile(docType models.DocumentType) (validation.ProfileKey, bool) {
	s, ok := sides[docType]
	return s.back, ok && s.back != ""
}
