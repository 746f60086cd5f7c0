package analyzer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-fitter/pkg/types"
)

// ImageAnalyzer inspects captured photo buffers before they are decoded
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{
		config: Config{
			SupportedFormats: []string{"jpeg", "png", "webp"},
			MinImageSize:     1,
		},
	}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	Format      string
	AspectRatio float64
	Area        int

	// ExifOrientation is the raw EXIF tag (1-8), 0 when absent
	ExifOrientation int
	Orientation     types.Orientation
	Mirrored        bool
}

// Dimensions returns the stored pixel size
func (i ImageInfo) Dimensions() types.Dimensions {
	return types.Dimensions{Width: i.Width, Height: i.Height}
}

// Inspect reads the header and EXIF block of an encoded image without
// decoding its pixels.
func (a *ImageAnalyzer) Inspect(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	if !a.isFormatSupported(format) {
		return ImageInfo{}, fmt.Errorf("unsupported image format: %s", format)
	}

	info := ImageInfo{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
		Area:   cfg.Width * cfg.Height,
	}
	if cfg.Height > 0 {
		info.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}

	if tag, ok := exifOrientation(data); ok {
		info.ExifOrientation = tag
		info.Orientation, info.Mirrored = OrientationFromExif(tag)
	}
	return info, nil
}

// GetImageInfo returns basic information about a decoded image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{
		Width:  width,
		Height: height,
		Area:   width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(img image.Image) error {
	return a.ValidateInfo(a.GetImageInfo(img))
}

// ValidateInfo checks inspected dimensions against the minimum size
func (a *ImageAnalyzer) ValidateInfo(info ImageInfo) error {
	if info.Width < a.config.MinImageSize || info.Height < a.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			info.Width, info.Height, a.config.MinImageSize)
	}
	return nil
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	format = normalizeFormat(format)
	for _, supported := range a.config.SupportedFormats {
		if normalizeFormat(supported) == format {
			return true
		}
	}
	return false
}

// normalizeFormat lower-cases a format name and maps jpg to jpeg
func normalizeFormat(format string) string {
	format = strings.ToLower(format)
	if format == "jpg" {
		return "jpeg"
	}
	return format
}

func exifOrientation(data []byte) (int, bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, false
	}
	value, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return value, true
}

// OrientationFromExif converts an EXIF orientation tag into the clockwise
// rotation and horizontal mirroring that bring the stored pixels upright.
// Mirroring is applied after the rotation.
func OrientationFromExif(tag int) (types.Orientation, bool) {
	switch tag {
	case 2:
		return types.Rotate0, true
	case 3:
		return types.Rotate180, false
	case 4:
		return types.Rotate180, true
	case 5:
		return types.Rotate90, true
	case 6:
		return types.Rotate90, false
	case 7:
		return types.Rotate270, true
	case 8:
		return types.Rotate270, false
	default:
		return types.Rotate0, false
	}
}
