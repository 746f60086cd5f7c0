package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-fitter/pkg/fitter"
	"github.com/menta2k/image-fitter/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Fitter   FitterConfig   `json:"fitter"`
	Analyzer AnalyzerConfig `json:"analyzer"`
	Capture  CaptureConfig  `json:"capture"`
	Output   OutputConfig   `json:"output"`
	Log      LogConfig      `json:"log"`
}

// FitterConfig holds configuration for crop and scale
type FitterConfig struct {
	// SensorOrientation is the clockwise rotation in degrees from the raw
	// buffer to display orientation
	SensorOrientation int    `json:"sensor_orientation"`
	Resampler         string `json:"resampler"`
	AllowUpscaling    bool   `json:"allow_upscaling"`
}

// AnalyzerConfig holds configuration for input inspection
type AnalyzerConfig struct {
	SupportedFormats []string `json:"supported_formats"`
	MinImageSize     int      `json:"min_image_size"`
	// UseExif takes orientation and mirroring from the EXIF block when present
	UseExif bool `json:"use_exif"`
}

// CaptureConfig holds configuration for the photo pipeline
type CaptureConfig struct {
	QueueSize int     `json:"queue_size"`
	MaxZoom   float64 `json:"max_zoom"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	DefaultFormat string `json:"default_format"`
	Quality       int    `json:"quality"`
	Lossless      bool   `json:"lossless"`
	OutputDir     string `json:"output_dir"`
	Prefix        string `json:"prefix"`
	Suffix        string `json:"suffix"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `json:"level"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Fitter: FitterConfig{
			SensorOrientation: 90,
			Resampler:         fitter.CatmullRom,
			AllowUpscaling:    true,
		},
		Analyzer: AnalyzerConfig{
			SupportedFormats: []string{"jpeg", "png", "webp"},
			MinImageSize:     1,
			UseExif:          false,
		},
		Capture: CaptureConfig{
			QueueSize: 16,
			MaxZoom:   10,
		},
		Output: OutputConfig{
			DefaultFormat: "jpg",
			Quality:       90,
			OutputDir:     "./output",
			Prefix:        "",
			Suffix:        "_fitted",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := types.OrientationFromDegrees(c.Fitter.SensorOrientation); err != nil {
		return fmt.Errorf("fitter.sensor_orientation: %w", err)
	}

	if _, err := fitter.ResamplerByName(c.Fitter.Resampler); err != nil {
		return fmt.Errorf("fitter.resampler: %w", err)
	}

	if c.Analyzer.MinImageSize < 1 {
		return fmt.Errorf("analyzer.min_image_size must be positive")
	}

	if len(c.Analyzer.SupportedFormats) == 0 {
		return fmt.Errorf("analyzer.supported_formats cannot be empty")
	}

	if c.Capture.QueueSize < 1 {
		return fmt.Errorf("capture.queue_size must be positive")
	}

	if c.Capture.MaxZoom < 1 {
		return fmt.Errorf("capture.max_zoom must be at least 1")
	}

	switch strings.ToLower(c.Output.DefaultFormat) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.default_format must be jpg, png or webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// Orientation returns the configured sensor orientation
func (c *Config) Orientation() types.Orientation {
	o, _ := types.OrientationFromDegrees(c.Fitter.SensorOrientation)
	return o
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-fitter", "config.json")
}
