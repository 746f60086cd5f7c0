package capture

import (
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	messagebus "github.com/vardius/message-bus"

	"github.com/menta2k/image-fitter/pkg/analyzer"
	"github.com/menta2k/image-fitter/pkg/fitter"
	"github.com/menta2k/image-fitter/pkg/processing"
	"github.com/menta2k/image-fitter/pkg/types"
)

// Bus topics
const (
	TopicProcessed      = "photo:processed"
	TopicFailed         = "photo:failed"
	TopicSettingChanged = "settings:changed"
)

// Photo is an encoded still image handed over by the host capture framework
type Photo struct {
	ID         uuid.UUID
	Data       []byte
	CapturedAt time.Time
}

// NewPhoto wraps captured bytes with a fresh ID
func NewPhoto(data []byte) Photo {
	return Photo{
		ID:         uuid.New(),
		Data:       data,
		CapturedAt: time.Now(),
	}
}

// Result is delivered to subscribers for every decoded photo
type Result struct {
	PhotoID  uuid.UUID
	Image    image.Image
	Settings Snapshot
	// Fit is nil when no resolution was configured or fitting failed
	Fit *types.FitResult
	// Fallback is set when Image is the original photo because fitting failed
	Fallback bool
	FitErr   error
}

// Pipeline turns captured photos into display-ready images
type Pipeline struct {
	fitter    *fitter.Fitter
	processor *processing.Processor
	analyzer  *analyzer.ImageAnalyzer
	settings  *Settings
	bus       messagebus.MessageBus
	log       logrus.FieldLogger
	useExif   bool
}

// NewPipeline creates a pipeline whose subscribers each buffer up to
// queueSize results. Setting changes are published on the pipeline's bus
// from then on.
func NewPipeline(f *fitter.Fitter, p *processing.Processor, settings *Settings, queueSize int) *Pipeline {
	if queueSize < 1 {
		queueSize = 1
	}
	bus := messagebus.New(queueSize)
	settings.attach(bus)
	return &Pipeline{
		fitter:    f,
		processor: p,
		analyzer:  analyzer.New(),
		settings:  settings,
		bus:       bus,
		log:       logrus.StandardLogger(),
	}
}

// SetLogger replaces the logger
func (p *Pipeline) SetLogger(log logrus.FieldLogger) {
	p.log = log
}

// SetAnalyzer replaces the analyzer used to read EXIF orientation
func (p *Pipeline) SetAnalyzer(a *analyzer.ImageAnalyzer) {
	p.analyzer = a
}

// UseExifOrientation makes photos carrying an EXIF orientation tag use it
// instead of the configured sensor orientation and camera mirroring.
func (p *Pipeline) UseExifOrientation(enabled bool) {
	p.useExif = enabled
}

// Settings returns the settings the pipeline reads from
func (p *Pipeline) Settings() *Settings {
	return p.settings
}

// Subscribe registers fn for every processed result
func (p *Pipeline) Subscribe(fn func(Result)) error {
	return p.bus.Subscribe(TopicProcessed, fn)
}

// SubscribeFailures registers fn for photos that could not be decoded
func (p *Pipeline) SubscribeFailures(fn func(uuid.UUID, error)) error {
	return p.bus.Subscribe(TopicFailed, fn)
}

// SubscribeChanges registers fn for every successful settings change
func (p *Pipeline) SubscribeChanges(fn func(Change)) error {
	return p.bus.Subscribe(TopicSettingChanged, fn)
}

// Close stops delivering to all subscribers
func (p *Pipeline) Close() {
	p.bus.Close(TopicProcessed)
	p.bus.Close(TopicFailed)
	p.bus.Close(TopicSettingChanged)
}

// Process decodes a photo and fits it to the configured resolution. When
// fitting fails the original image is delivered with Fallback set; only a
// photo that cannot be decoded returns an error.
func (p *Pipeline) Process(photo Photo) (Result, error) {
	log := p.log.WithField("photo", photo.ID)

	img, format, err := p.processor.DecodeImage(photo.Data)
	if err != nil {
		err = fmt.Errorf("cannot decode photo %s: %w", photo.ID, err)
		log.WithError(err).Error("photo dropped")
		p.bus.Publish(TopicFailed, photo.ID, err)
		return Result{}, err
	}

	snap := p.settings.Snapshot()
	result := Result{
		PhotoID:  photo.ID,
		Image:    img,
		Settings: snap,
	}

	if snap.Resolution == (types.Dimensions{}) {
		log.WithField("format", format).Debug("no resolution configured, delivering original")
		p.bus.Publish(TopicProcessed, result)
		return result, nil
	}

	req := types.FitRequest{
		Source:      types.DimensionsOf(img.Bounds()),
		Target:      snap.Resolution,
		Orientation: snap.Orientation,
		Mirrored:    snap.Mirrored(),
	}
	if p.useExif {
		info, err := p.analyzer.Inspect(photo.Data)
		switch {
		case err != nil:
			log.WithError(err).Debug("cannot read EXIF orientation, using sensor orientation")
		case info.ExifOrientation != 0:
			req.Orientation, req.Mirrored = info.Orientation, info.Mirrored
		}
	}

	log = log.WithFields(logrus.Fields{
		"target":      req.Target.String(),
		"orientation": req.Orientation.String(),
		"mirrored":    req.Mirrored,
	})

	fit, err := p.fitter.Fit(img, req)
	if err != nil {
		log.WithError(err).Warn("fit failed, delivering original")
		result.Fallback = true
		result.FitErr = err
	} else {
		log.WithField("crop", fit.Crop.String()).Debug("photo fitted")
		result.Image = fit.Image
		result.Fit = fit
	}

	p.bus.Publish(TopicProcessed, result)
	return result, nil
}
