package validation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "go-capture-inspector/internal/errors"
)

//go:embed profiles.yaml
var defaultProfilesYAML []byte

// ProfileKey names a threshold profile.
type ProfileKey string

const (
	ProfileYemenIDFront   ProfileKey = "yemen_id_front"
	ProfileYemenIDBack    ProfileKey = "yemen_id_back"
	ProfilePassport       ProfileKey = "passport"
	ProfileLivenessSelfie ProfileKey = "liveness_selfie"
)

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `yaml:"min" validate:"gte=0"`
	Max float64 `yaml:"max" validate:"gtefield=Min"`
}

// Contains reports whether v lies in the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// HSVBand selects pixels by hue (degrees) and saturation/value (0..1).
// A band whose HueMin exceeds HueMax wraps through 360.
type HSVBand struct {
	HueMin float64 `yaml:"hue_min" validate:"gte=0,lte=360"`
	HueMax float64 `yaml:"hue_max" validate:"gte=0,lte=360"`
	SatMin float64 `yaml:"sat_min" validate:"gte=0,lte=1"`
	SatMax float64 `yaml:"sat_max" validate:"gtefield=SatMin,lte=1"`
	ValMin float64 `yaml:"val_min" validate:"gte=0,lte=1"`
	ValMax float64 `yaml:"val_max" validate:"gtefield=ValMin,lte=1"`
}

// Contains reports whether the HSV triple lies inside the band.
func (b HSVBand) Contains(h, s, v float64) bool {
	if s < b.SatMin || s > b.SatMax || v < b.ValMin || v > b.ValMax {
		return false
	}
	if b.HueMin <= b.HueMax {
		return h >= b.HueMin && h <= b.HueMax
	}
	return h >= b.HueMin || h <= b.HueMax
}

// ScreenCaptureBand flags the joint signature of a photographed screen:
// a borderline moiré score together with a suspicious screen-grid score.
type ScreenCaptureBand struct {
	Moire      Range `yaml:"moire"`
	ScreenGrid Range `yaml:"screen_grid"`
}

type ResolutionThresholds struct {
	MinSidePx int `yaml:"min_side_px" validate:"gt=0"`
}

type CaptureSourceThresholds struct {
	SharpnessMin  float64            `yaml:"sharpness_min" validate:"gte=0,lte=1"`
	MoireMin      float64            `yaml:"moire_min" validate:"gte=0,lte=1"`
	ScreenGridMax float64            `yaml:"screen_grid_max" validate:"gte=0,lte=1"`
	Texture       Range              `yaml:"texture"`
	HalftoneMax   float64            `yaml:"halftone_max" validate:"gte=0,lte=1"`
	HighTexture   float64            `yaml:"high_texture" validate:"gte=0,lte=1"`
	SaturationMin float64            `yaml:"saturation_min" validate:"gte=0,lte=1"`
	ScreenCapture *ScreenCaptureBand `yaml:"screen_capture_band,omitempty"`
}

type FramingThresholds struct {
	AspectRatio            Range   `yaml:"aspect_ratio"`
	MinCoverageRatio       float64 `yaml:"min_coverage_ratio" validate:"gt=0,lte=1"`
	MinMarginRatio         float64 `yaml:"min_margin_ratio" validate:"gte=0,lt=0.5"`
	FullFrameCoverageRatio float64 `yaml:"full_frame_coverage_ratio" validate:"gtefield=MinCoverageRatio,lte=1"`
}

type GlareThresholds struct {
	Cutoff   int     `yaml:"cutoff" validate:"gte=1,lte=255"`
	MaxRatio float64 `yaml:"max_ratio" validate:"gte=0,lte=1"`
}

type ObstructionThresholds struct {
	SkinBands          []HSVBand `yaml:"skin_bands" validate:"min=1,dive"`
	MaxSkinRatio       float64   `yaml:"max_skin_ratio" validate:"gte=0,lte=1"`
	GridSize           int       `yaml:"grid_size" validate:"gte=2,lte=64"`
	FlatVarianceCutoff float64   `yaml:"flat_variance_cutoff" validate:"gte=0"`
	MaxFlatRatio       float64   `yaml:"max_flat_ratio" validate:"gte=0,lte=1"`
}

type ReadabilityThresholds struct {
	MinOCRConfidence  float64 `yaml:"min_ocr_confidence" validate:"gte=0,lte=1"`
	RequiredContent   string  `yaml:"required_content" validate:"omitempty,oneof=identifier mrz"`
	IdentifierPattern string  `yaml:"identifier_pattern" validate:"required_if=RequiredContent identifier"`
}

type DocumentTypeThresholds struct {
	DeclaredTypes      []string `yaml:"declared_types"`
	Keywords           []string `yaml:"keywords"`
	KeywordMaxDistance int      `yaml:"keyword_max_distance" validate:"gte=0,lte=5"`
}

// ThresholdProfile holds every constant a document check compares against.
// Profiles are loaded once and shared read-only; callers must not mutate
// the slices they contain.
type ThresholdProfile struct {
	Key           ProfileKey              `yaml:"-"`
	Resolution    ResolutionThresholds    `yaml:"resolution"`
	CaptureSource CaptureSourceThresholds `yaml:"capture_source"`
	Framing       FramingThresholds       `yaml:"framing"`
	Glare         GlareThresholds         `yaml:"glare"`
	Obstruction   ObstructionThresholds   `yaml:"obstruction"`
	Readability   ReadabilityThresholds   `yaml:"readability"`
	DocumentType  DocumentTypeThresholds  `yaml:"document_type"`
}

// LivenessProfile holds the constants for the selfie liveness checks.
type LivenessProfile struct {
	Key                     ProfileKey `yaml:"-"`
	MinSidePx               int        `yaml:"min_side_px" validate:"gt=0"`
	TextureMin              float64    `yaml:"texture_min" validate:"gte=0,lte=1"`
	SkinToneMin             float64    `yaml:"skin_tone_min" validate:"gte=0,lte=1"`
	SkinCr                  Range      `yaml:"skin_cr"`
	SkinCb                  Range      `yaml:"skin_cb"`
	SharpnessMin            float64    `yaml:"sharpness_min" validate:"gte=0,lte=1"`
	MoireMin                float64    `yaml:"moire_min" validate:"gte=0,lte=1"`
	ModelMin                float64    `yaml:"model_min" validate:"gte=0,lte=1"`
	RequireModel            bool       `yaml:"require_model"`
	SameSourceMaxSimilarity float64    `yaml:"same_source_max_similarity" validate:"gt=0,lte=1"`
}

// ProfileSet is the full, validated collection of profiles.
type ProfileSet struct {
	YemenIDFront   ThresholdProfile `yaml:"yemen_id_front"`
	YemenIDBack    ThresholdProfile `yaml:"yemen_id_back"`
	Passport       ThresholdProfile `yaml:"passport"`
	LivenessSelfie LivenessProfile  `yaml:"liveness_selfie"`
}

// Document returns the document profile registered under key.
func (s *ProfileSet) Document(key ProfileKey) (ThresholdProfile, error) {
	switch key {
	case ProfileYemenIDFront:
		return s.YemenIDFront, nil
	case ProfileYemenIDBack:
		return s.YemenIDBack, nil
	case ProfilePassport:
		return s.Passport, nil
	}
	return ThresholdProfile{}, apperrors.NewConfigurationError(fmt.Sprintf("no document profile %q", key), nil)
}

// Liveness returns the liveness profile.
func (s *ProfileSet) Liveness() LivenessProfile {
	return s.LivenessSelfie
}

// DefaultProfiles returns the embedded profile set.
func DefaultProfiles() (*ProfileSet, error) {
	set := &ProfileSet{}
	if err := decodeProfiles(defaultProfilesYAML, set); err != nil {
		return nil, err
	}
	return finalize(set)
}

// LoadProfiles overlays the YAML file at path onto the embedded defaults.
// Keys absent from the file keep their default values; lists are replaced.
// An empty path yields the defaults.
func LoadProfiles(path string) (*ProfileSet, error) {
	if path == "" {
		return DefaultProfiles()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to read profile file", err).WithDetails(path)
	}
	return ParseProfiles(data)
}

// ParseProfiles overlays raw YAML onto the embedded defaults.
func ParseProfiles(data []byte) (*ProfileSet, error) {
	set := &ProfileSet{}
	if err := decodeProfiles(defaultProfilesYAML, set); err != nil {
		return nil, err
	}
	if err := decodeProfiles(data, set); err != nil {
		return nil, err
	}
	return finalize(set)
}

func decodeProfiles(data []byte, set *ProfileSet) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(set); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewConfigurationError("malformed threshold profiles", err)
	}
	return nil
}

var validate = validator.New()

func finalize(set *ProfileSet) (*ProfileSet, error) {
	set.YemenIDFront.Key = ProfileYemenIDFront
	set.YemenIDBack.Key = ProfileYemenIDBack
	set.Passport.Key = ProfilePassport
	set.LivenessSelfie.Key = ProfileLivenessSelfie

	if err := validate.Struct(set); err != nil {
		return nil, apperrors.NewConfigurationError("invalid threshold profiles", err)
	}
	for _, p := range []ThresholdProfile{set.YemenIDFront, set.YemenIDBack, set.Passport} {
		if p.Framing.AspectRatio.Min <= 0 {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("profile %s: aspect ratio range must be positive", p.Key), nil)
		}
		if p.Readability.IdentifierPattern != "" {
			if _, err := regexp.Compile(p.Readability.IdentifierPattern); err != nil {
				return nil, apperrors.NewConfigurationError(
					fmt.Sprintf("profile %s: bad identifier pattern", p.Key), err)
			}
		}
	}
	return set, nil
}
