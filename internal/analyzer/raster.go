package analyzer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/pkg/models"
)

// RawImage is a decoded capture normalised to a zero-origin RGBA buffer with
// its grayscale plane. It is created per call and never mutated.
type RawImage struct {
	Width    int
	Height   int
	Channels int
	Format   string

	rgba *image.RGBA
	gray *image.Gray
}

// DefaultMaxPixels bounds the declared width*height Decode accepts.
const DefaultMaxPixels = 40_000_000

// Decode turns encoded bytes into a RawImage. Empty, undecodable, zero-size
// or oversized input is an InputError.
func Decode(data []byte) (*RawImage, error) {
	return DecodeLimited(data, DefaultMaxPixels)
}

// DecodeLimited is Decode with an explicit pixel budget. The header is read
// first so an oversized image is rejected before any pixel buffer is
// allocated. A non-positive maxPixels means DefaultMaxPixels.
func DecodeLimited(data []byte, maxPixels int64) (*RawImage, error) {
	if len(data) == 0 {
		return nil, apperrors.NewInputError("image is empty", nil)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewInputError("image could not be decoded", err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, apperrors.NewInputError(
			fmt.Sprintf("image is %dx%d, above the %d pixel limit", cfg.Width, cfg.Height, maxPixels), nil)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewInputError("image could not be decoded", err)
	}
	return FromImage(img, format)
}

// FromImage wraps an already decoded image.
func FromImage(img image.Image, format string) (*RawImage, error) {
	if img == nil {
		return nil, apperrors.NewInputError("image is nil", nil)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, apperrors.NewInputError("image has zero size", nil)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)

	return &RawImage{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: channelCount(img),
		Format:   format,
		rgba:     rgba,
		gray:     toGray(rgba),
	}, nil
}

// Bounds is the zero-origin rectangle of the image.
func (r *RawImage) Bounds() image.Rectangle {
	return r.rgba.Bounds()
}

// RGBA exposes the colour plane. Callers must treat it as read-only.
func (r *RawImage) RGBA() *image.RGBA {
	return r.rgba
}

// Gray exposes the luma plane. Callers must treat it as read-only.
func (r *RawImage) Gray() *image.Gray {
	return r.gray
}

// MinSide is the shorter image dimension in pixels.
func (r *RawImage) MinSide() int {
	if r.Width < r.Height {
		return r.Width
	}
	return r.Height
}

func (r *RawImage) Metadata() models.ImageMetadata {
	return models.ImageMetadata{
		Width:    r.Width,
		Height:   r.Height,
		Channels: r.Channels,
		Format:   r.Format,
	}
}

// toGray uses the ITU-R 601 luma weights, matching color.GrayModel.
func toGray(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		si := y * src.Stride
		di := y * gray.Stride
		for x := 0; x < b.Dx(); x++ {
			r := uint32(src.Pix[si])
			g := uint32(src.Pix[si+1])
			bl := uint32(src.Pix[si+2])
			gray.Pix[di+x] = uint8((19595*r + 38470*g + 7471*bl + 1<<15) >> 16)
			si += 4
		}
	}
	return gray
}

func channelCount(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return 4
	default:
		return 3
	}
}
