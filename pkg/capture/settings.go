package capture

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	messagebus "github.com/vardius/message-bus"

	"github.com/menta2k/image-fitter/pkg/fitter"
	"github.com/menta2k/image-fitter/pkg/types"
)

// CameraPosition selects the front or back camera
type CameraPosition int

const (
	Back CameraPosition = iota
	Front
)

func (p CameraPosition) String() string {
	switch p {
	case Back:
		return "back"
	case Front:
		return "front"
	}
	return "unknown"
}

// FlashMode controls the flash used for still captures
type FlashMode int

const (
	FlashOff FlashMode = iota
	FlashOn
	FlashAuto
)

func (m FlashMode) String() string {
	switch m {
	case FlashOff:
		return "off"
	case FlashOn:
		return "on"
	case FlashAuto:
		return "auto"
	}
	return "unknown"
}

// ParseFlashMode parses off, on or auto
func ParseFlashMode(s string) (FlashMode, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return FlashOff, nil
	case "on":
		return FlashOn, nil
	case "auto":
		return FlashAuto, nil
	}
	return FlashOff, fmt.Errorf("unknown flash mode %q", s)
}

// FocusPoint is a point of interest in normalized buffer coordinates,
// (0,0) top-left to (1,1) bottom-right.
type FocusPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CenterFocus is the point a device focuses on by default
var CenterFocus = FocusPoint{X: 0.5, Y: 0.5}

// Valid reports whether the point lies inside the unit square
func (p FocusPoint) Valid() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

func (p FocusPoint) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}

// Zoom limits
const (
	MinZoom        = 1.0
	DefaultMaxZoom = 10.0
)

var (
	// ErrZoomOutOfRange is returned by SetZoom for factors outside [MinZoom, max]
	ErrZoomOutOfRange = errors.New("zoom out of range")
	// ErrInvalidFocusPoint is returned by SetFocusPoint outside the unit square
	ErrInvalidFocusPoint = errors.New("focus point out of range")
)

// Device is the host platform binding that applies hardware settings
type Device interface {
	SetZoomFactor(factor float64) error
	SetFlashMode(mode FlashMode) error
	// SetFocusPoint moves the point of interest and switches to
	// continuous autofocus.
	SetFocusPoint(p FocusPoint) error
}

// Setting names carried by Change
const (
	SettingResolution  = "resolution"
	SettingPosition    = "position"
	SettingOrientation = "orientation"
	SettingZoom        = "zoom"
	SettingFlash       = "flash"
	SettingFocus       = "focus"
)

// Change is published on TopicSettingChanged after a setter succeeds
type Change struct {
	Setting string
	Value   interface{}
}

// Settings holds the camera configuration used when processing photos.
// Every change goes through a setter that reports failure.
type Settings struct {
	mu          sync.RWMutex
	device      Device
	bus         messagebus.MessageBus
	resolution  types.Dimensions
	position    CameraPosition
	orientation types.Orientation
	zoom        float64
	maxZoom     float64
	flash       FlashMode
	focus       FocusPoint
}

// Snapshot is an immutable copy of Settings taken when a photo is processed
type Snapshot struct {
	Resolution  types.Dimensions
	Position    CameraPosition
	Orientation types.Orientation
	Zoom        float64
	Flash       FlashMode
	Focus       FocusPoint
}

// Mirrored reports whether output should be flipped horizontally
func (s Snapshot) Mirrored() bool {
	return s.Position == Front
}

// NewSettings creates settings for the back camera with no output
// resolution, flash off, centred focus and the 90 degree sensor
// convention. device may be nil.
func NewSettings(device Device) *Settings {
	return &Settings{
		device:      device,
		position:    Back,
		orientation: types.Rotate90,
		zoom:        MinZoom,
		maxZoom:     DefaultMaxZoom,
		flash:       FlashOff,
		focus:       CenterFocus,
	}
}

// attach makes successful setters publish a Change on bus
func (s *Settings) attach(bus messagebus.MessageBus) {
	s.mu.Lock()
	s.bus = bus
	s.mu.Unlock()
}

// changed must be called without holding mu
func (s *Settings) changed(setting string, value interface{}) {
	s.mu.RLock()
	bus := s.bus
	s.mu.RUnlock()
	if bus != nil {
		bus.Publish(TopicSettingChanged, Change{Setting: setting, Value: value})
	}
}

// SetResolution sets the output size photos are fitted to. The zero value
// disables fitting.
func (s *Settings) SetResolution(d types.Dimensions) error {
	if d != (types.Dimensions{}) && !d.Valid() {
		return fmt.Errorf("%w: resolution %s", fitter.ErrInvalidDimensions, d)
	}
	s.mu.Lock()
	s.resolution = d
	s.mu.Unlock()
	s.changed(SettingResolution, d)
	return nil
}

// SetCameraPosition selects the active camera
func (s *Settings) SetCameraPosition(p CameraPosition) error {
	if p != Back && p != Front {
		return fmt.Errorf("unknown camera position %d", int(p))
	}
	s.mu.Lock()
	s.position = p
	s.mu.Unlock()
	s.changed(SettingPosition, p)
	return nil
}

// TogglePosition switches between front and back and returns the new position
func (s *Settings) TogglePosition() CameraPosition {
	s.mu.Lock()
	if s.position == Back {
		s.position = Front
	} else {
		s.position = Back
	}
	p := s.position
	s.mu.Unlock()
	s.changed(SettingPosition, p)
	return p
}

// SetSensorOrientation sets the rotation from raw buffer to display
func (s *Settings) SetSensorOrientation(o types.Orientation) error {
	if o < types.Rotate0 || o > types.Rotate270 {
		return fmt.Errorf("unknown orientation %d", int(o))
	}
	s.mu.Lock()
	s.orientation = o
	s.mu.Unlock()
	s.changed(SettingOrientation, o)
	return nil
}

// SetMaxZoom sets the upper zoom bound
func (s *Settings) SetMaxZoom(limit float64) error {
	if limit < MinZoom {
		return fmt.Errorf("%w: max zoom %.2f below %.2f", ErrZoomOutOfRange, limit, MinZoom)
	}
	s.mu.Lock()
	s.maxZoom = limit
	s.mu.Unlock()
	return nil
}

// SetZoom forwards the zoom factor to the device. The stored factor only
// changes when the device accepts it.
func (s *Settings) SetZoom(factor float64) error {
	s.mu.Lock()
	if factor < MinZoom || factor > s.maxZoom {
		limit := s.maxZoom
		s.mu.Unlock()
		return fmt.Errorf("%w: %.2f not in [%.2f, %.2f]", ErrZoomOutOfRange, factor, MinZoom, limit)
	}
	if s.device != nil {
		if err := s.device.SetZoomFactor(factor); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to set zoom %.2f: %w", factor, err)
		}
	}
	s.zoom = factor
	s.mu.Unlock()

	s.changed(SettingZoom, factor)
	return nil
}

// SetFlashMode forwards the flash mode to the device
func (s *Settings) SetFlashMode(mode FlashMode) error {
	if mode < FlashOff || mode > FlashAuto {
		return fmt.Errorf("unknown flash mode %d", int(mode))
	}

	s.mu.Lock()
	if s.device != nil {
		if err := s.device.SetFlashMode(mode); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to set flash %s: %w", mode, err)
		}
	}
	s.flash = mode
	s.mu.Unlock()

	s.changed(SettingFlash, mode)
	return nil
}

// SetFocusPoint asks the device to focus at p
func (s *Settings) SetFocusPoint(p FocusPoint) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidFocusPoint, p)
	}

	s.mu.Lock()
	if s.device != nil {
		if err := s.device.SetFocusPoint(p); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to focus at %s: %w", p, err)
		}
	}
	s.focus = p
	s.mu.Unlock()

	s.changed(SettingFocus, p)
	return nil
}

// ClampZoom limits a gesture-derived zoom factor to [MinZoom, limit]
func ClampZoom(factor, limit float64) float64 {
	if factor < MinZoom {
		return MinZoom
	}
	if factor > limit {
		return limit
	}
	return factor
}

// Snapshot returns a copy of the current settings
func (s *Settings) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Resolution:  s.resolution,
		Position:    s.position,
		Orientation: s.orientation,
		Zoom:        s.zoom,
		Flash:       s.flash,
		Focus:       s.focus,
	}
}
