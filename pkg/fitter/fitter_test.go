package fitter

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-fitter/pkg/types"
)

// createMarkedImage creates a gray image with a red block in the top-left corner
func createMarkedImage(width, height, block int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < block && y < block {
				img.Set(x, y, color.NRGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.NRGBA{128, 128, 128, 255})
			}
		}
	}
	return img
}

func isRed(img image.Image, x, y int) bool {
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return c.R > 200 && c.G < 60 && c.B < 60
}

func TestPlanScenarios(t *testing.T) {
	f := New()
	tests := []struct {
		name   string
		req    types.FitRequest
		crop   types.Rect
		source image.Rectangle
	}{
		{
			name: "portrait target keeps full frame",
			req: types.FitRequest{
				Source:      types.Dimensions{Width: 4032, Height: 3024},
				Target:      types.Dimensions{Width: 3024, Height: 4032},
				Orientation: types.Rotate90,
			},
			crop:   types.Rect{X: 0, Y: 0, Width: 3024, Height: 4032},
			source: image.Rect(0, 0, 4032, 3024),
		},
		{
			name: "square target crops vertically",
			req: types.FitRequest{
				Source:      types.Dimensions{Width: 4032, Height: 3024},
				Target:      types.Dimensions{Width: 3024, Height: 3024},
				Orientation: types.Rotate90,
			},
			crop:   types.Rect{X: 0, Y: 504, Width: 3024, Height: 3024},
			source: image.Rect(504, 0, 3528, 3024),
		},
		{
			name: "wide target on upright source",
			req: types.FitRequest{
				Source: types.Dimensions{Width: 400, Height: 300},
				Target: types.Dimensions{Width: 160, Height: 90},
			},
			crop:   types.Rect{X: 0, Y: 37.5, Width: 400, Height: 225},
			source: image.Rect(0, 37, 400, 263),
		},
		{
			name: "one pixel high target on landscape source",
			req: types.FitRequest{
				Source: types.Dimensions{Width: 640, Height: 480},
				Target: types.Dimensions{Width: 1000, Height: 1},
			},
			crop:   types.Rect{X: 0, Y: 239.68, Width: 640, Height: 0.64},
			source: image.Rect(0, 239, 640, 241),
		},
		{
			name: "one pixel high target on rotated source",
			req: types.FitRequest{
				Source:      types.Dimensions{Width: 640, Height: 480},
				Target:      types.Dimensions{Width: 1000, Height: 1},
				Orientation: types.Rotate90,
			},
			crop:   types.Rect{X: 0, Y: 319.76, Width: 480, Height: 0.48},
			source: image.Rect(319, 0, 321, 480),
		},
		{
			name: "tall target on upright source",
			req: types.FitRequest{
				Source: types.Dimensions{Width: 400, Height: 300},
				Target: types.Dimensions{Width: 100, Height: 150},
			},
			crop:   types.Rect{X: 100, Y: 0, Width: 200, Height: 300},
			source: image.Rect(100, 0, 300, 300),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assert.New(t)
			got, err := f.Plan(tt.req)
			require.NoError(t, err)

			a.InDelta(tt.crop.X, got.Crop.X, 1e-9)
			a.InDelta(tt.crop.Y, got.Crop.Y, 1e-9)
			a.InDelta(tt.crop.Width, got.Crop.Width, 1e-9)
			a.InDelta(tt.crop.Height, got.Crop.Height, 1e-9)
			a.Equal(tt.source, got.SourceRect)
			a.Equal(tt.req.Target, got.Output)
			a.Nil(got.Image)
		})
	}
}

func TestPlanProperties(t *testing.T) {
	f := New()
	sources := []types.Dimensions{
		{Width: 4032, Height: 3024}, {Width: 1920, Height: 1080}, {Width: 1080, Height: 1920},
		{Width: 640, Height: 480}, {Width: 333, Height: 777}, {Width: 1, Height: 1000},
	}
	targets := []types.Dimensions{
		{Width: 3024, Height: 4032}, {Width: 1, Height: 1}, {Width: 1200, Height: 630},
		{Width: 90, Height: 160}, {Width: 7, Height: 3}, {Width: 1000, Height: 1},
	}
	orientations := []types.Orientation{types.Rotate0, types.Rotate90, types.Rotate180, types.Rotate270}

	for _, src := range sources {
		for _, dst := range targets {
			for _, o := range orientations {
				name := fmt.Sprintf("%s->%s@%s", src, dst, o)
				req := types.FitRequest{Source: src, Target: dst, Orientation: o}
				got, err := f.Plan(req)
				require.NoError(t, err, name)

				assert.True(t, AspectMatches(got.Crop, dst), "%s: crop aspect %f", name, got.Crop.Aspect())
				assert.True(t, got.Crop.Within(o.Apply(src)), "%s: crop %s outside %s", name, got.Crop, o.Apply(src))
				assert.True(t, got.SourceRect.In(image.Rect(0, 0, src.Width, src.Height)), "%s: source rect %v", name, got.SourceRect)
				assert.False(t, got.SourceRect.Empty(), "%s: empty source rect", name)
				assert.Equal(t, dst, got.Output, name)
			}
		}
	}
}

func TestPlanInvalidDimensions(t *testing.T) {
	f := New()
	src := types.Dimensions{Width: 4032, Height: 3024}
	for _, target := range []types.Dimensions{
		{Width: 0, Height: 100}, {Width: 100, Height: 0}, {Width: -1, Height: 100}, {Width: 100, Height: -5},
	} {
		_, err := f.Plan(types.FitRequest{Source: src, Target: target})
		assert.ErrorIs(t, err, ErrInvalidDimensions, "target %s", target)
	}

	_, err := f.Plan(types.FitRequest{Target: src})
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = f.Plan(types.FitRequest{Source: src, Target: src, Orientation: types.Orientation(7)})
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestPlanThinCrop(t *testing.T) {
	f := New()
	tests := []struct {
		src    types.Dimensions
		target types.Dimensions
	}{
		{types.Dimensions{Width: 2, Height: 1}, types.Dimensions{Width: 1, Height: 100}},
		{types.Dimensions{Width: 1, Height: 1000}, types.Dimensions{Width: 1000, Height: 1}},
		{types.Dimensions{Width: 1, Height: 1}, types.Dimensions{Width: 1, Height: 5000}},
	}
	for _, tt := range tests {
		for o := types.Rotate0; o <= types.Rotate270; o++ {
			got, err := f.Plan(types.FitRequest{Source: tt.src, Target: tt.target, Orientation: o})
			require.NoError(t, err, "%s->%s@%s", tt.src, tt.target, o)
			assert.False(t, got.SourceRect.Empty())
			assert.True(t, got.SourceRect.In(image.Rect(0, 0, tt.src.Width, tt.src.Height)), "%v", got.SourceRect)
		}
	}
}

func TestFitThinCrop(t *testing.T) {
	src := createMarkedImage(1, 1000, 1)
	got, err := New().Fit(src, types.FitRequest{
		Target:      types.Dimensions{Width: 1000, Height: 1},
		Orientation: types.Rotate0,
	})
	require.NoError(t, err)
	assert.Equal(t, types.Dimensions{Width: 1000, Height: 1}, types.DimensionsOf(got.Image.Bounds()))
	assert.Equal(t, image.Rect(0, 499, 1, 501), got.SourceRect)
}

func TestPlanUpscalingDisabled(t *testing.T) {
	f := NewWithConfig(Config{AllowUpscaling: false})
	req := types.FitRequest{
		Source: types.Dimensions{Width: 200, Height: 200},
		Target: types.Dimensions{Width: 400, Height: 400},
	}
	_, err := f.Plan(req)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	req.Target = types.Dimensions{Width: 100, Height: 50}
	_, err = f.Plan(req)
	assert.NoError(t, err)
}

func TestFitOrientation(t *testing.T) {
	src := createMarkedImage(40, 30, 10)

	tests := []struct {
		name        string
		orientation types.Orientation
		mirrored    bool
		target      types.Dimensions
		marker      image.Point
		clear       image.Point
	}{
		{"upright", types.Rotate0, false, types.Dimensions{Width: 40, Height: 30}, image.Pt(3, 3), image.Pt(36, 3)},
		{"upright mirrored", types.Rotate0, true, types.Dimensions{Width: 40, Height: 30}, image.Pt(36, 3), image.Pt(3, 3)},
		{"rotate 90", types.Rotate90, false, types.Dimensions{Width: 30, Height: 40}, image.Pt(26, 3), image.Pt(3, 3)},
		{"rotate 90 mirrored", types.Rotate90, true, types.Dimensions{Width: 30, Height: 40}, image.Pt(3, 3), image.Pt(26, 3)},
		{"rotate 180", types.Rotate180, false, types.Dimensions{Width: 40, Height: 30}, image.Pt(36, 26), image.Pt(3, 3)},
		{"rotate 270", types.Rotate270, false, types.Dimensions{Width: 30, Height: 40}, image.Pt(3, 36), image.Pt(3, 3)},
	}

	f := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Fit(src, types.FitRequest{
				Target:      tt.target,
				Orientation: tt.orientation,
				Mirrored:    tt.mirrored,
			})
			require.NoError(t, err)
			require.NotNil(t, got.Image)

			assert.Equal(t, tt.target, types.DimensionsOf(got.Image.Bounds()))
			assert.True(t, isRed(got.Image, tt.marker.X, tt.marker.Y), "expected marker at %v", tt.marker)
			assert.False(t, isRed(got.Image, tt.clear.X, tt.clear.Y), "unexpected marker at %v", tt.clear)
		})
	}
}

func TestFitOutputMatchesTarget(t *testing.T) {
	src := createMarkedImage(64, 48, 8)
	targets := []types.Dimensions{
		{Width: 48, Height: 64}, {Width: 32, Height: 32}, {Width: 100, Height: 20},
		{Width: 5, Height: 90}, {Width: 1, Height: 1}, {Width: 128, Height: 96},
		{Width: 200, Height: 1}, {Width: 1, Height: 200},
	}

	for _, name := range []string{CatmullRom, Lanczos, NfntCubic} {
		r, err := ResamplerByName(name)
		require.NoError(t, err)
		f := New()
		f.SetResampler(r)

		for _, target := range targets {
			for o := types.Rotate0; o <= types.Rotate270; o++ {
				got, err := f.Fit(src, types.FitRequest{Target: target, Orientation: o, Mirrored: o == types.Rotate90})
				require.NoError(t, err, "%s %s %s", name, target, o)
				assert.Equal(t, target, types.DimensionsOf(got.Image.Bounds()), "%s %s %s", name, target, o)
				assert.Equal(t, target, got.Output)
			}
		}
	}
}

func TestFitDoesNotMutateSource(t *testing.T) {
	src := createMarkedImage(40, 30, 10)
	before := make([]uint8, len(src.Pix))
	copy(before, src.Pix)

	_, err := New().Fit(src, types.FitRequest{Target: types.Dimensions{Width: 20, Height: 20}, Mirrored: true})
	require.NoError(t, err)
	assert.Equal(t, before, src.Pix)
}

func TestFitOffsetBounds(t *testing.T) {
	base := createMarkedImage(80, 60, 10)
	sub := base.SubImage(image.Rect(20, 10, 60, 40))

	got, err := New().Fit(sub, types.FitRequest{Target: types.Dimensions{Width: 30, Height: 40}, Orientation: types.Rotate90})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), got.SourceRect)
	assert.Equal(t, types.Dimensions{Width: 30, Height: 40}, types.DimensionsOf(got.Image.Bounds()))
}

func TestFitImageUsesConfiguredOrientation(t *testing.T) {
	f := NewWithConfig(Config{Orientation: types.Rotate270, AllowUpscaling: true})
	got, err := f.FitImage(createMarkedImage(40, 30, 10), 30, 40, false)
	require.NoError(t, err)
	assert.Equal(t, types.Dimensions{Width: 30, Height: 40}, got.Logical)
	assert.True(t, isRed(got.Image, 3, 36))
}

func TestFitErrors(t *testing.T) {
	f := New()
	target := types.Dimensions{Width: 10, Height: 10}

	_, err := f.Fit(nil, types.FitRequest{Target: target})
	assert.ErrorIs(t, err, ErrCropFailed)

	_, err = f.Fit(nil, types.FitRequest{Target: types.Dimensions{Width: 0, Height: 10}})
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = f.Fit(image.NewNRGBA(image.Rectangle{}), types.FitRequest{Target: target})
	assert.ErrorIs(t, err, ErrCropFailed)

	_, err = f.Fit(createMarkedImage(40, 30, 5), types.FitRequest{
		Source: types.Dimensions{Width: 4032, Height: 3024},
		Target: target,
	})
	assert.ErrorIs(t, err, ErrCropFailed)

	_, err = f.Fit(createMarkedImage(40, 30, 5), types.FitRequest{Target: types.Dimensions{Width: 0, Height: 10}})
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	f.SetResampler(brokenResampler{})
	_, err = f.Fit(createMarkedImage(40, 30, 5), types.FitRequest{Target: target})
	assert.ErrorIs(t, err, ErrEncodingFailed)
}

func TestResamplerByName(t *testing.T) {
	for _, name := range []string{"", "CatmullRom", "bicubic", "lanczos", "nfnt"} {
		r, err := ResamplerByName(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, r.Name())
	}

	_, err := ResamplerByName("box")
	assert.Error(t, err)
}

type brokenResampler struct{}

func (brokenResampler) Resample(img image.Image, width, height int) image.Image {
	return image.NewNRGBA(image.Rect(0, 0, width/2, height))
}

func (brokenResampler) Name() string {
	return "broken"
}

func BenchmarkFit(b *testing.B) {
	f := New()
	src := createMarkedImage(1920, 1080, 100)
	req := types.FitRequest{Target: types.Dimensions{Width: 720, Height: 720}, Orientation: types.Rotate90}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Fit(src, req)
	}
}

func BenchmarkPlan(b *testing.B) {
	f := New()
	req := types.FitRequest{
		Source:      types.Dimensions{Width: 4032, Height: 3024},
		Target:      types.Dimensions{Width: 1080, Height: 1920},
		Orientation: types.Rotate90,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Plan(req)
	}
}
