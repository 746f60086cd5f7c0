package fitter

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-fitter/pkg/types"
)

// AspectTolerance is the relative error allowed between crop and target aspect
const AspectTolerance = 1e-3

// Fitter crops, scales and re-orients captured photos to a requested size
type Fitter struct {
	resampler Resampler
	config    Config
}

// Config holds configuration for fitting
type Config struct {
	// Orientation is used by FitImage when the caller does not pass one
	Orientation types.Orientation
	// AllowUpscaling permits targets larger than the crop region
	AllowUpscaling bool
}

// New creates a Fitter with the platform's default sensor convention
// (buffers rotated 90 degrees from display) and upscaling allowed.
func New() *Fitter {
	return &Fitter{
		resampler: DefaultResampler(),
		config: Config{
			Orientation:    types.Rotate90,
			AllowUpscaling: true,
		},
	}
}

// NewWithConfig creates a Fitter with custom configuration
func NewWithConfig(config Config) *Fitter {
	return &Fitter{
		resampler: DefaultResampler(),
		config:    config,
	}
}

// SetResampler replaces the interpolation used when scaling
func (f *Fitter) SetResampler(r Resampler) {
	if r == nil {
		r = DefaultResampler()
	}
	f.resampler = r
}

// Resampler returns the interpolation in use
func (f *Fitter) Resampler() Resampler {
	return f.resampler
}

// Plan computes the crop geometry for a request without touching pixels.
// The returned result has no Image.
func (f *Fitter) Plan(req types.FitRequest) (types.FitResult, error) {
	if !req.Source.Valid() {
		return types.FitResult{}, fmt.Errorf("%w: source %s", ErrInvalidDimensions, req.Source)
	}
	if !req.Target.Valid() {
		return types.FitResult{}, fmt.Errorf("%w: target %s", ErrInvalidDimensions, req.Target)
	}
	if req.Orientation < types.Rotate0 || req.Orientation > types.Rotate270 {
		return types.FitResult{}, fmt.Errorf("%w: unknown orientation %d", ErrInvalidDimensions, int(req.Orientation))
	}

	logical := req.Orientation.Apply(req.Source)
	crop := centerCrop(logical, req.Target)

	if !f.config.AllowUpscaling && (req.Target.Width > int(crop.Width) || req.Target.Height > int(crop.Height)) {
		return types.FitResult{}, fmt.Errorf("%w: target %s is larger than crop %.0fx%.0f and upscaling is disabled",
			ErrInvalidDimensions, req.Target, crop.Width, crop.Height)
	}

	pixels := clampRect(crop.Pixels(), image.Rect(0, 0, logical.Width, logical.Height))

	return types.FitResult{
		Crop:       crop,
		SourceRect: toSource(pixels, req.Source, req.Orientation),
		Logical:    logical,
		Output:     req.Target,
	}, nil
}

// FitImage fits img to width x height using the configured orientation
func (f *Fitter) FitImage(img image.Image, width, height int, mirrored bool) (*types.FitResult, error) {
	req := types.FitRequest{
		Target:      types.Dimensions{Width: width, Height: height},
		Orientation: f.config.Orientation,
		Mirrored:    mirrored,
	}
	if img != nil {
		req.Source = types.DimensionsOf(img.Bounds())
	}
	return f.Fit(img, req)
}

// Fit crops the centre of src to the target aspect ratio, resamples it to
// exactly the target size, applies the request orientation and mirrors it
// horizontally when asked. A zero req.Source is taken from src. src is never
// modified.
func (f *Fitter) Fit(src image.Image, req types.FitRequest) (*types.FitResult, error) {
	if !req.Target.Valid() {
		return nil, fmt.Errorf("%w: target %s", ErrInvalidDimensions, req.Target)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: no source bitmap", ErrCropFailed)
	}
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: source bitmap has no pixels", ErrCropFailed)
	}
	if req.Source == (types.Dimensions{}) {
		req.Source = types.DimensionsOf(bounds)
	}

	plan, err := f.Plan(req)
	if err != nil {
		return nil, err
	}
	if got := types.DimensionsOf(bounds); got != req.Source {
		return nil, fmt.Errorf("%w: source bitmap is %s, request declares %s", ErrCropFailed, got, req.Source)
	}

	region := plan.SourceRect.Add(bounds.Min)
	cropped := imaging.Crop(src, region)
	if cropped.Bounds().Dx() != plan.SourceRect.Dx() || cropped.Bounds().Dy() != plan.SourceRect.Dy() {
		return nil, fmt.Errorf("%w: extracted %s from %s", ErrCropFailed,
			types.DimensionsOf(cropped.Bounds()), types.DimensionsOf(plan.SourceRect))
	}

	// Scale in buffer orientation, then rotate into place.
	scaled := req.Orientation.Apply(req.Target)
	var out image.Image = f.resampler.Resample(cropped, scaled.Width, scaled.Height)
	out = Orient(out, req.Orientation)
	if req.Mirrored {
		out = imaging.FlipH(out)
	}

	if out == nil || types.DimensionsOf(out.Bounds()) != req.Target {
		var got types.Dimensions
		if out != nil {
			got = types.DimensionsOf(out.Bounds())
		}
		return nil, fmt.Errorf("%w: %s resampler produced %s, want %s", ErrEncodingFailed,
			f.resampler.Name(), got, req.Target)
	}

	plan.Image = out
	return &plan, nil
}

// AspectMatches reports whether a crop keeps the target aspect ratio within AspectTolerance
func AspectMatches(crop types.Rect, target types.Dimensions) bool {
	want := target.Aspect()
	return math.Abs(crop.Aspect()-want)/want <= AspectTolerance
}

// centerCrop returns the largest rectangle of the target aspect centred in bounds
func centerCrop(bounds, target types.Dimensions) types.Rect {
	fromW, fromH := float64(bounds.Width), float64(bounds.Height)
	toAspect := target.Aspect()

	if bounds.Aspect() < toAspect {
		h := fromW / toAspect
		return types.Rect{X: 0, Y: (fromH - h) / 2, Width: fromW, Height: h}
	}
	w := fromH * toAspect
	return types.Rect{X: (fromW - w) / 2, Y: 0, Width: w, Height: fromH}
}

// clampRect moves r inside b where it overhangs, then trims what still does
// not fit. b must be non-empty.
func clampRect(r, b image.Rectangle) image.Rectangle {
	if d := r.Max.X - b.Max.X; d > 0 {
		r = r.Sub(image.Pt(d, 0))
	}
	if d := r.Max.Y - b.Max.Y; d > 0 {
		r = r.Sub(image.Pt(0, d))
	}
	if d := b.Min.X - r.Min.X; d > 0 {
		r = r.Add(image.Pt(d, 0))
	}
	if d := b.Min.Y - r.Min.Y; d > 0 {
		r = r.Add(image.Pt(0, d))
	}
	return r.Intersect(b)
}

// toSource maps a rectangle in logical space back into the raw buffer of
// size src that o rotates clockwise into display orientation.
func toSource(r image.Rectangle, src types.Dimensions, o types.Orientation) image.Rectangle {
	w, h := src.Width, src.Height
	switch o {
	case types.Rotate90:
		return image.Rect(r.Min.Y, h-r.Max.X, r.Max.Y, h-r.Min.X)
	case types.Rotate180:
		return image.Rect(w-r.Max.X, h-r.Max.Y, w-r.Min.X, h-r.Min.Y)
	case types.Rotate270:
		return image.Rect(w-r.Max.Y, r.Min.X, w-r.Min.Y, r.Max.X)
	}
	return r
}

// Orient rotates img clockwise by o. imaging rotates counter-clockwise.
func Orient(img image.Image, o types.Orientation) image.Image {
	switch o {
	case types.Rotate90:
		return imaging.Rotate270(img)
	case types.Rotate180:
		return imaging.Rotate180(img)
	case types.Rotate270:
		return imaging.Rotate90(img)
	}
	return img
}
