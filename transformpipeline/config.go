package transformpipeline

import (
	"fmt"
	"image"
	"slices"

	"go.uber.org/multierr"

	"github.com/drivescene/scapes/rimage"
	"github.com/drivescene/scapes/utils"
)

const (
	// DefaultOutputWidth and DefaultOutputHeight are the base output size at scale 1.
	DefaultOutputWidth  = 1024
	DefaultOutputHeight = 512
	// DefaultBaselineM and DefaultFocalPx are the stereo rig constants used to turn disparity into
	// metric depth.
	DefaultBaselineM = 0.209313
	DefaultFocalPx   = 2262.52

	// sizeMultiple is the granularity of every output and crop dimension.
	sizeMultiple = 32
)

// Config lists the augmentations and conversions applied to every sample. Optional
// augmentations are disabled when absent.
type Config struct {
	// OutputSize is the base (width, height) scaled per call.
	OutputSize   [2]int            `json:"output_size"`
	RandomFlip   bool              `json:"rand_flip"`
	Brightness   *float64          `json:"rand_brightness,omitempty"`
	Rotation     *float64          `json:"rand_rotation,omitempty"`
	CropFraction *float64          `json:"crop_fraction,omitempty"`
	RandomScale  []float64         `json:"rand_scale,omitempty"`
	DisparityOut bool              `json:"disparity_out"`
	Normalize    *NormalizeConfig  `json:"img_normalize,omitempty"`
	Calibration  *DepthCalibration `json:"depth_calibration,omitempty"`
}

// NormalizeConfig holds per channel statistics for image tensors.
type NormalizeConfig struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// DepthCalibration holds the stereo rig constants.
type DepthCalibration struct {
	BaselineM float64 `json:"baseline_m"`
	FocalPx   float64 `json:"focal_px"`
}

// NewConfigFromAttributes decodes and validates a config from an attribute map.
func NewConfigFromAttributes(am utils.AttributeMap) (*Config, error) {
	conf, err := utils.TransformAttributeMap[*Config](am)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	if err := conf.Validate("augmentations"); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate ensures all parts of the config are valid. Every problem is reported.
func (cfg *Config) Validate(path string) error {
	var errs error
	field := func(name, format string, args ...interface{}) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(
			fmt.Sprintf("%s.%s", path, name), NewConfigurationError(format, args...)))
	}

	if cfg.OutputSize[0] < 0 || cfg.OutputSize[1] < 0 {
		field("output_size", "negative output size %v", cfg.OutputSize)
	}
	if cfg.Brightness != nil && (*cfg.Brightness < 0 || *cfg.Brightness > 100) {
		field("rand_brightness", "brightness jitter %v%% outside [0, 100]", *cfg.Brightness)
	}
	if cfg.Rotation != nil && *cfg.Rotation < 0 {
		field("rand_rotation", "negative rotation bound %v", *cfg.Rotation)
	}
	if cfg.CropFraction != nil && *cfg.CropFraction < 1 {
		field("crop_fraction", "crop fraction %v would crop beyond the canvas", *cfg.CropFraction)
	}
	if cfg.RandomScale != nil {
		if len(cfg.RandomScale) != 2 || cfg.RandomScale[0] <= 0 || cfg.RandomScale[0] > cfg.RandomScale[1] {
			field("rand_scale", "scale range %v must be [lo, hi] with 0 < lo <= hi", cfg.RandomScale)
		}
	}
	if cfg.Normalize != nil {
		if len(cfg.Normalize.Mean) != 3 || len(cfg.Normalize.Std) != 3 {
			field("img_normalize", "mean and std need 3 channels, got %d and %d",
				len(cfg.Normalize.Mean), len(cfg.Normalize.Std))
		} else {
			for c, s := range cfg.Normalize.Std {
				if s == 0 {
					field("img_normalize.std", "zero standard deviation for channel %d", c)
				}
			}
		}
	}
	if cfg.Calibration != nil && (cfg.Calibration.BaselineM <= 0 || cfg.Calibration.FocalPx <= 0) {
		field("depth_calibration", "baseline and focal length must be positive, got %v and %v",
			cfg.Calibration.BaselineM, cfg.Calibration.FocalPx)
	}
	return errs
}

// BaseSize returns the configured output size with defaults filled in.
func (cfg *Config) BaseSize() image.Point {
	w, h := cfg.OutputSize[0], cfg.OutputSize[1]
	if w == 0 {
		w = DefaultOutputWidth
	}
	if h == 0 {
		h = DefaultOutputHeight
	}
	return image.Pt(w, h)
}

// OutputShape returns the (width, height) every modality is resized to at the given scale.
// Each dimension is floored to a multiple of 32.
func (cfg *Config) OutputShape(scale float64) (image.Point, error) {
	if scale <= 0 {
		return image.Point{}, NewConfigurationError("scale factor %v must be positive", scale)
	}
	base := cfg.BaseSize()
	shape := image.Pt(
		utils.FloorToMultiple(scale*float64(base.X), sizeMultiple),
		utils.FloorToMultiple(scale*float64(base.Y), sizeMultiple),
	)
	if shape.X < sizeMultiple || shape.Y < sizeMultiple {
		return image.Point{}, NewConfigurationError("output size %v at scale %v is smaller than %d pixels",
			base, scale, sizeMultiple)
	}
	return shape, nil
}

// CropSize returns the (width, height) of the random crop for a canvas of the given shape.
// The second return is false when cropping is disabled.
func (cfg *Config) CropSize(shape image.Point) (image.Point, bool, error) {
	if cfg.CropFraction == nil {
		return image.Point{}, false, nil
	}
	frac := *cfg.CropFraction
	size := image.Pt(
		utils.FloorToMultiple(float64(shape.X)/frac, sizeMultiple),
		utils.FloorToMultiple(float64(shape.Y)/frac, sizeMultiple),
	)
	if size.X <= 0 || size.Y <= 0 {
		return image.Point{}, false, NewConfigurationError("crop fraction %v leaves an empty crop of %v", frac, shape)
	}
	if size.X > shape.X || size.Y > shape.Y {
		return image.Point{}, false, NewConfigurationError("crop %v larger than canvas %v", size, shape)
	}
	return size, true, nil
}

// calibration returns the configured stereo constants or the defaults.
func (cfg *Config) calibration() DepthCalibration {
	if cfg.Calibration == nil {
		return DepthCalibration{BaselineM: DefaultBaselineM, FocalPx: DefaultFocalPx}
	}
	return *cfg.Calibration
}

func (cfg *Config) normalization() *rimage.Normalization {
	if cfg.Normalize == nil {
		return nil
	}
	var norm rimage.Normalization
	copy(norm.Mean[:], cfg.Normalize.Mean)
	copy(norm.Std[:], cfg.Normalize.Std)
	return &norm
}

// Clone returns a deep copy of the config. The copy shares no pointers or slices with cfg.
func (cfg *Config) Clone() *Config {
	out := *cfg
	out.Brightness = clonePtr(cfg.Brightness)
	out.Rotation = clonePtr(cfg.Rotation)
	out.CropFraction = clonePtr(cfg.CropFraction)
	out.RandomScale = slices.Clone(cfg.RandomScale)
	out.Calibration = clonePtr(cfg.Calibration)
	if cfg.Normalize != nil {
		out.Normalize = &NormalizeConfig{
			Mean: slices.Clone(cfg.Normalize.Mean),
			Std:  slices.Clone(cfg.Normalize.Std),
		}
	}
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Evaluation returns a copy keeping only the deterministic options: output size, normalization,
// disparity mode and calibration.
func (cfg *Config) Evaluation() *Config {
	c := cfg.Clone()
	return &Config{
		OutputSize:   c.OutputSize,
		DisparityOut: c.DisparityOut,
		Normalize:    c.Normalize,
		Calibration:  c.Calibration,
	}
}
