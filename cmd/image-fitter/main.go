package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-fitter/internal/config"
	"github.com/menta2k/image-fitter/internal/utils"
	"github.com/menta2k/image-fitter/pkg/analyzer"
	"github.com/menta2k/image-fitter/pkg/capture"
	"github.com/menta2k/image-fitter/pkg/fitter"
	"github.com/menta2k/image-fitter/pkg/processing"
	"github.com/menta2k/image-fitter/pkg/types"
)

const exifOrientation = "exif"

type options struct {
	in          string
	configPath  string
	width       int
	height      int
	orientation string
	mirror      bool
	debug       bool
	dbgext      string
}

func main() {
	var opts options
	defaults := config.Default()

	flag.StringVar(&opts.in, "in", "", "input image file or directory (jpg/png/webp/gif/bmp/tiff)")
	flag.StringVar(&opts.configPath, "config", "", "JSON config file (default "+config.GetConfigPath()+" when present)")
	flag.IntVar(&opts.width, "width", 0, "output width in pixels")
	flag.IntVar(&opts.height, "height", 0, "output height in pixels")
	flag.StringVar(&opts.orientation, "orientation", strconv.Itoa(defaults.Fitter.SensorOrientation), "clockwise sensor rotation: 0|90|180|270|exif")
	flag.BoolVar(&opts.mirror, "mirror", false, "mirror output horizontally (front camera)")
	flag.BoolVar(&opts.debug, "debug", false, "write a crop overlay next to each output")
	flag.StringVar(&opts.dbgext, "dbgext", "png", "debug overlay format: png|jpg|webp")

	outDir := flag.String("out", defaults.Output.OutputDir, "output directory")
	ext := flag.String("ext", defaults.Output.DefaultFormat, "output format: jpg|png|webp")
	quality := flag.Int("quality", defaults.Output.Quality, "JPEG/WebP output quality (1-100)")
	lossless := flag.Bool("lossless", defaults.Output.Lossless, "WebP lossless mode")
	resampler := flag.String("resampler", defaults.Fitter.Resampler, "scaling kernel: catmullrom|lanczos|nfnt")
	logLevel := flag.String("log-level", defaults.Log.Level, "log level: debug|info|warn|error")

	flag.Parse()
	if opts.in == "" || opts.width <= 0 || opts.height <= 0 {
		fmt.Fprintf(os.Stderr, "usage: %s -in input.jpg|dir -width W -height H [-orientation 0|90|180|270|exif] [-mirror] [-out dir] [-ext jpg|png|webp] [-debug]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(2)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		log.WithError(err).Fatal("cannot load config")
	}

	// explicitly set flags win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Output.OutputDir = *outDir
		case "ext":
			cfg.Output.DefaultFormat = *ext
		case "quality":
			cfg.Output.Quality = *quality
		case "lossless":
			cfg.Output.Lossless = *lossless
		case "resampler":
			cfg.Fitter.Resampler = *resampler
		case "log-level":
			cfg.Log.Level = *logLevel
		case "orientation":
			if opts.orientation == exifOrientation {
				cfg.Analyzer.UseExif = true
			} else if deg, err := strconv.Atoi(opts.orientation); err == nil {
				cfg.Fitter.SensorOrientation = deg
			} else {
				log.Fatalf("invalid -orientation %q", opts.orientation)
			}
		}
	})

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	level, _ := logrus.ParseLevel(cfg.Log.Level)
	log.SetLevel(level)

	if err := run(log, cfg, opts); err != nil {
		log.WithError(err).Fatal("image-fitter failed")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default(), nil
		}
	}
	return config.LoadFromFile(path)
}

func run(log *logrus.Logger, cfg *config.Config, opts options) error {
	inputs, err := utils.ResolveInputs(opts.in)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	kernel, err := fitter.ResamplerByName(cfg.Fitter.Resampler)
	if err != nil {
		return err
	}
	f := fitter.NewWithConfig(fitter.Config{
		Orientation:    cfg.Orientation(),
		AllowUpscaling: cfg.Fitter.AllowUpscaling,
	})
	f.SetResampler(kernel)

	inspector := analyzer.NewWithConfig(analyzer.Config{
		SupportedFormats: cfg.Analyzer.SupportedFormats,
		MinImageSize:     cfg.Analyzer.MinImageSize,
	})
	processor := processing.NewProcessor()

	settings, err := newSettings(cfg, opts)
	if err != nil {
		return err
	}

	pipeline := capture.NewPipeline(f, processor, settings, cfg.Capture.QueueSize)
	defer pipeline.Close()
	pipeline.SetLogger(log)
	pipeline.SetAnalyzer(inspector)
	pipeline.UseExifOrientation(cfg.Analyzer.UseExif)

	enc := types.EncodeConfig{
		Extension: strings.ToLower(cfg.Output.DefaultFormat),
		Quality:   cfg.Output.Quality,
		Lossless:  cfg.Output.Lossless,
	}

	log.WithFields(logrus.Fields{
		"inputs":      len(inputs),
		"target":      settings.Snapshot().Resolution.String(),
		"orientation": settings.Snapshot().Orientation.String(),
		"exif":        cfg.Analyzer.UseExif,
		"resampler":   kernel.Name(),
	}).Info("fitting images")

	failed := 0
	for _, path := range inputs {
		if err := fitOne(log, cfg, opts, pipeline, inspector, processor, enc, path); err != nil {
			log.WithError(err).WithField("file", path).Error("fit failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(inputs))
	}
	return nil
}

func newSettings(cfg *config.Config, opts options) (*capture.Settings, error) {
	settings := capture.NewSettings(nil)
	if err := settings.SetMaxZoom(cfg.Capture.MaxZoom); err != nil {
		return nil, err
	}
	if err := settings.SetResolution(types.Dimensions{Width: opts.width, Height: opts.height}); err != nil {
		return nil, err
	}

	orientation := cfg.Orientation()
	if cfg.Analyzer.UseExif {
		// photos without an orientation tag are taken as stored
		orientation = types.Rotate0
	}
	if err := settings.SetSensorOrientation(orientation); err != nil {
		return nil, err
	}

	if opts.mirror {
		if err := settings.SetCameraPosition(capture.Front); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

func fitOne(log *logrus.Logger, cfg *config.Config, opts options, pipeline *capture.Pipeline,
	inspector *analyzer.ImageAnalyzer, processor *processing.Processor, enc types.EncodeConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	info, err := inspector.Inspect(data)
	if err != nil {
		return err
	}
	if err := inspector.ValidateInfo(info); err != nil {
		return err
	}

	result, err := pipeline.Process(capture.NewPhoto(data))
	if err != nil {
		return err
	}

	size := types.DimensionsOf(result.Image.Bounds())
	outPath := utils.GenerateOutputFilename(path, cfg.Output.OutputDir, cfg.Output.Prefix, cfg.Output.Suffix, enc.Extension, size)
	if err := processor.SaveImage(result.Image, outPath, enc.Extension, enc.Quality, enc.Lossless); err != nil {
		return fmt.Errorf("save %s: %w", outPath, err)
	}

	entry := log.WithFields(logrus.Fields{"file": path, "output": outPath})
	if stat, err := os.Stat(outPath); err == nil {
		entry = entry.WithField("size", utils.FormatFileSize(stat.Size()))
	}
	if result.Fallback {
		entry.WithError(result.FitErr).Warn("wrote original image")
	} else {
		entry.Info("wrote fitted image")
	}

	if opts.debug && result.Fit != nil {
		orientation := result.Settings.Orientation
		if cfg.Analyzer.UseExif && info.ExifOrientation != 0 {
			orientation = info.Orientation
		}
		src, _, err := processor.DecodeImage(data)
		if err != nil {
			return err
		}
		dbg := processor.CreateDebugOverlay(src, orientation, result.Fit.Crop)
		dbgPath := utils.DebugFilename(outPath, opts.dbgext)
		if err := processor.SaveImage(dbg, dbgPath, opts.dbgext, 92, false); err != nil {
			log.WithError(err).WithField("file", dbgPath).Warn("debug overlay save failed")
		} else {
			log.WithField("file", dbgPath).Debug("wrote debug overlay")
		}
	}
	return nil
}
