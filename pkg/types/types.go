package types

import (
	"fmt"
	"image"
	"math"
)

// Dimensions represents a pixel size of a source image or a requested output
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both sides are positive
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// Aspect returns width divided by height
func (d Dimensions) Aspect() float64 {
	return float64(d.Width) / float64(d.Height)
}

// Swap returns the dimensions with width and height exchanged
func (d Dimensions) Swap() Dimensions {
	return Dimensions{Width: d.Height, Height: d.Width}
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// DimensionsOf returns the size of an image rectangle
func DimensionsOf(r image.Rectangle) Dimensions {
	return Dimensions{Width: r.Dx(), Height: r.Dy()}
}

// Rect is an axis-aligned rectangle in logical source pixel space
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Aspect returns width divided by height
func (r Rect) Aspect() float64 {
	return r.Width / r.Height
}

// Within reports whether the rectangle lies fully inside (0,0)-(d.Width,d.Height)
func (r Rect) Within(d Dimensions) bool {
	const eps = 1e-9
	return r.X >= -eps && r.Y >= -eps &&
		r.X+r.Width <= float64(d.Width)+eps &&
		r.Y+r.Height <= float64(d.Height)+eps
}

// Pixels returns the smallest whole-pixel rectangle covering r. Edges
// within 1e-9 of a pixel boundary snap to it, and the result is at least
// one pixel in each direction.
func (r Rect) Pixels() image.Rectangle {
	const eps = 1e-9
	x0 := int(math.Floor(r.X + eps))
	y0 := int(math.Floor(r.Y + eps))
	x1 := int(math.Ceil(r.X + r.Width - eps))
	y1 := int(math.Ceil(r.Y + r.Height - eps))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return image.Rect(x0, y0, x1, y1)
}

func (r Rect) String() string {
	return fmt.Sprintf("%.1fx%.1f@%.1f,%.1f", r.Width, r.Height, r.X, r.Y)
}

// Orientation is the clockwise rotation that brings a raw sensor buffer
// into display orientation.
type Orientation int

const (
	Rotate0 Orientation = iota
	Rotate90
	Rotate180
	Rotate270
)

// OrientationFromDegrees converts 0, 90, 180 or 270 (also negative or >360
// multiples of 90) into an Orientation.
func OrientationFromDegrees(degrees int) (Orientation, error) {
	if degrees%90 != 0 {
		return Rotate0, fmt.Errorf("orientation must be a multiple of 90 degrees, got %d", degrees)
	}
	steps := ((degrees/90)%4 + 4) % 4
	return Orientation(steps), nil
}

// Degrees returns the clockwise rotation in degrees
func (o Orientation) Degrees() int {
	return int(o) * 90
}

// Transposed reports whether the rotation swaps width and height
func (o Orientation) Transposed() bool {
	return o == Rotate90 || o == Rotate270
}

// Apply returns the size of a buffer of dimensions d after the rotation
func (o Orientation) Apply(d Dimensions) Dimensions {
	if o.Transposed() {
		return d.Swap()
	}
	return d
}

func (o Orientation) String() string {
	switch o {
	case Rotate0:
		return "0"
	case Rotate90:
		return "90"
	case Rotate180:
		return "180"
	case Rotate270:
		return "270"
	}
	return "unknown"
}

// FitRequest describes how a source image should be fitted to a target size
type FitRequest struct {
	Source      Dimensions  `json:"source"`
	Target      Dimensions  `json:"target"`
	Orientation Orientation `json:"orientation"`
	Mirrored    bool        `json:"mirrored"`
}

// FitResult contains the output of a fit together with the crop geometry
type FitResult struct {
	Image image.Image `json:"-"`
	// Crop is expressed in logical (orientation corrected) source space
	Crop Rect `json:"crop"`
	// SourceRect is the pixel region taken from the raw source buffer
	SourceRect image.Rectangle `json:"source_rect"`
	Logical    Dimensions      `json:"logical"`
	Output     Dimensions      `json:"output"`
}

// EncodeConfig defines how a fitted image is written out
type EncodeConfig struct {
	Quality   int
	Lossless  bool
	Extension string
}
