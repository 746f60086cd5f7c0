package fitter

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Resampler scales an image to exactly width x height pixels
type Resampler interface {
	Resample(img image.Image, width, height int) image.Image
	Name() string
}

// Resampler names accepted by ResamplerByName
const (
	CatmullRom = "catmullrom"
	Lanczos    = "lanczos"
	NfntCubic  = "nfnt"
)

type imagingResampler struct {
	name   string
	filter imaging.ResampleFilter
}

func (r imagingResampler) Resample(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, r.filter)
}

func (r imagingResampler) Name() string {
	return r.name
}

type nfntResampler struct{}

func (nfntResampler) Resample(img image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), img, resize.Bicubic)
}

func (nfntResampler) Name() string {
	return NfntCubic
}

// DefaultResampler returns the bicubic CatmullRom resampler
func DefaultResampler() Resampler {
	return imagingResampler{name: CatmullRom, filter: imaging.CatmullRom}
}

// ResamplerByName returns one of the built-in resamplers
func ResamplerByName(name string) (Resampler, error) {
	switch strings.ToLower(name) {
	case "", CatmullRom, "bicubic":
		return DefaultResampler(), nil
	case Lanczos:
		return imagingResampler{name: Lanczos, filter: imaging.Lanczos}, nil
	case NfntCubic:
		return nfntResampler{}, nil
	}
	return nil, fmt.Errorf("unknown resampler %q (use %s, %s or %s)", name, CatmullRom, Lanczos, NfntCubic)
}
