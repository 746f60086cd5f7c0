// Package imagefitter turns camera sensor frames into images of an exact
// requested size and orientation.
//
// A captured frame is stored the way the sensor reads it out, which is
// usually rotated relative to what the user saw on screen. The fitter
// center-crops the frame to the target aspect ratio in display space,
// scales it to the requested pixel size, rotates it upright and mirrors
// it for front camera shots.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		imagefitter "github.com/menta2k/image-fitter"
//		"github.com/menta2k/image-fitter/pkg/types"
//	)
//
//	func main() {
//		f := imagefitter.New()
//
//		// 4032x3024 sensor frame, displayed rotated 90 degrees clockwise
//		err := f.FitFile("photo.jpg", "photo_1080x1920.jpg", types.FitRequest{
//			Target:      types.Dimensions{Width: 1080, Height: 1920},
//			Orientation: types.Rotate90,
//		}, types.EncodeConfig{Quality: 90})
//		if err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these components:
//
// 1. Fitter (pkg/fitter): crop geometry, resampling and re-orientation
// 2. Analyzer (pkg/analyzer): header and EXIF inspection of encoded frames
// 3. Processing (pkg/processing): decoding, encoding and debug overlays
// 4. Capture (pkg/capture): camera settings and the photo pipeline
//
// Fitting is synchronous and the fitter holds no per-call state, so one
// ImageFitter can serve concurrent callers.
package imagefitter

import (
	"fmt"
	"image"

	"github.com/menta2k/image-fitter/pkg/analyzer"
	"github.com/menta2k/image-fitter/pkg/fitter"
	"github.com/menta2k/image-fitter/pkg/processing"
	"github.com/menta2k/image-fitter/pkg/types"
)

// Version of the image fitter library
const Version = "1.0.0"

// ImageFitter provides a high-level interface for fitting encoded photos
type ImageFitter struct {
	analyzer  *analyzer.ImageAnalyzer
	processor *processing.Processor
	fitter    *fitter.Fitter
}

// New creates a new ImageFitter with default configuration
func New() *ImageFitter {
	return &ImageFitter{
		analyzer:  analyzer.New(),
		processor: processing.NewProcessor(),
		fitter:    fitter.New(),
	}
}

// NewWithConfig creates a new ImageFitter with custom configuration
func NewWithConfig(analyzerConfig analyzer.Config, fitterConfig fitter.Config) *ImageFitter {
	return &ImageFitter{
		analyzer:  analyzer.NewWithConfig(analyzerConfig),
		processor: processing.NewProcessor(),
		fitter:    fitter.NewWithConfig(fitterConfig),
	}
}

// SetResampler replaces the scaling kernel
func (f *ImageFitter) SetResampler(r fitter.Resampler) {
	f.fitter.SetResampler(r)
}

// Fitter returns the underlying fitter
func (f *ImageFitter) Fitter() *fitter.Fitter {
	return f.fitter
}

// Inspect reads size, format and EXIF orientation from encoded bytes
func (f *ImageFitter) Inspect(data []byte) (analyzer.ImageInfo, error) {
	return f.analyzer.Inspect(data)
}

// Plan computes the crop for req without touching pixels
func (f *ImageFitter) Plan(req types.FitRequest) (types.FitResult, error) {
	return f.fitter.Plan(req)
}

// Fit crops, scales and re-orients a decoded image
func (f *ImageFitter) Fit(img image.Image, req types.FitRequest) (*types.FitResult, error) {
	return f.fitter.Fit(img, req)
}

// FitBytes decodes an encoded photo and fits it. The source size in req is
// taken from the decoded image; target, orientation and mirroring are used
// as given.
func (f *ImageFitter) FitBytes(data []byte, req types.FitRequest) (*types.FitResult, error) {
	info, err := f.analyzer.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("inspection failed: %w", err)
	}
	if err := f.analyzer.ValidateInfo(info); err != nil {
		return nil, fmt.Errorf("image validation failed: %w", err)
	}

	img, _, err := f.processor.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	req.Source = types.DimensionsOf(img.Bounds())
	return f.fitter.Fit(img, req)
}

// FitBytesExif fits an encoded photo using the orientation and mirroring
// recorded in its EXIF block. Photos without the tag are treated as upright.
func (f *ImageFitter) FitBytesExif(data []byte, target types.Dimensions) (*types.FitResult, error) {
	info, err := f.analyzer.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("inspection failed: %w", err)
	}
	return f.FitBytes(data, types.FitRequest{
		Target:      target,
		Orientation: info.Orientation,
		Mirrored:    info.Mirrored,
	})
}

// FitFile is a convenience function that loads, fits and saves a photo
func (f *ImageFitter) FitFile(inputPath, outputPath string, req types.FitRequest, enc types.EncodeConfig) error {
	img, err := f.processor.LoadImage(inputPath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	if err := f.analyzer.ValidateImage(img); err != nil {
		return fmt.Errorf("image validation failed: %w", err)
	}

	req.Source = types.DimensionsOf(img.Bounds())
	result, err := f.fitter.Fit(img, req)
	if err != nil {
		return err
	}

	if err := f.SaveImage(result.Image, outputPath, enc); err != nil {
		return fmt.Errorf("failed to save %s: %w", outputPath, err)
	}
	return nil
}

// LoadImage loads an image from file
func (f *ImageFitter) LoadImage(path string) (image.Image, error) {
	return f.processor.LoadImage(path)
}

// SaveImage saves an image to file in the configured format
func (f *ImageFitter) SaveImage(img image.Image, path string, enc types.EncodeConfig) error {
	return f.processor.SaveImage(img, path, enc.Extension, enc.Quality, enc.Lossless)
}

// EncodeImage encodes an image in the configured format
func (f *ImageFitter) EncodeImage(img image.Image, enc types.EncodeConfig) ([]byte, error) {
	return f.processor.EncodeImage(img, enc.Extension, enc.Quality, enc.Lossless)
}

// DebugOverlay draws the crop of result over the display-oriented source
func (f *ImageFitter) DebugOverlay(src image.Image, orientation types.Orientation, result types.FitResult) image.Image {
	return f.processor.CreateDebugOverlay(src, orientation, result.Crop)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
