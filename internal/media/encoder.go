package media

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// ImageFormat identifies the encoding used for saved frames.
type ImageFormat string

const (
	// FormatJPEG writes baseline JPEG files with the ".jpg" extension.
	FormatJPEG ImageFormat = "jpg"
	// FormatPNG writes lossless PNG files.
	FormatPNG ImageFormat = "png"
	// FormatBMP writes uncompressed BMP files.
	FormatBMP ImageFormat = "bmp"
	// FormatTIFF writes deflate-compressed TIFF files.
	FormatTIFF ImageFormat = "tiff"
)

// DefaultJPEGQuality matches the quality most frame grabbers use by default.
const DefaultJPEGQuality = 95

// ErrUnsupportedFormat is returned for image formats the encoder cannot write.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ParseImageFormat normalizes a user supplied format name.
func ParseImageFormat(name string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "", "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// ImageEncoder turns decoded frames into image files.
type ImageEncoder struct {
	format   ImageFormat
	quality  int
	maxWidth int
}

// EncoderOption configures an ImageEncoder.
type EncoderOption func(*ImageEncoder)

// WithJPEGQuality sets the JPEG quality (1-100). Out of range values are ignored.
func WithJPEGQuality(q int) EncoderOption {
	return func(e *ImageEncoder) {
		if q >= 1 && q <= 100 {
			e.quality = q
		}
	}
}

// WithMaxWidth downscales frames wider than w pixels, preserving aspect ratio.
// Zero disables scaling.
func WithMaxWidth(w int) EncoderOption {
	return func(e *ImageEncoder) {
		if w >= 0 {
			e.maxWidth = w
		}
	}
}

// NewImageEncoder creates an encoder for the given format.
func NewImageEncoder(format ImageFormat, opts ...EncoderOption) (*ImageEncoder, error) {
	switch format {
	case FormatJPEG, FormatPNG, FormatBMP, FormatTIFF:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	e := &ImageEncoder{
		format:  format,
		quality: DefaultJPEGQuality,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extension returns the file extension, without the dot, for encoded frames.
func (e *ImageEncoder) Extension() string {
	return string(e.format)
}

// Encode writes img to w in the configured format.
func (e *ImageEncoder) Encode(w io.Writer, img image.Image) error {
	img = e.scale(img)

	switch e.format {
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: e.quality})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, e.format)
	}
}

// scale returns img unchanged unless it is wider than maxWidth.
func (e *ImageEncoder) scale(img image.Image) image.Image {
	bounds := img.Bounds()
	if e.maxWidth <= 0 || bounds.Dx() <= e.maxWidth {
		return img
	}

	height := int(float64(bounds.Dy()) * float64(e.maxWidth) / float64(bounds.Dx()))
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, e.maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
