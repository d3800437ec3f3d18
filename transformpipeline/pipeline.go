// Package transformpipeline applies one set of random augmentations consistently across every
// modality of a sample, then converts each modality into its numeric form.
//
// The processing order is fixed: horizontal flip, brightness jitter (color modalities only),
// rotation, resize to the output shape, numeric conversion, random crop. A Pipeline holds only
// immutable configuration; randomness comes from the caller on every call, so one Pipeline may
// be shared by any number of goroutines.
package transformpipeline

import (
	"image"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/drivescene/scapes/classes"
	"github.com/drivescene/scapes/logging"
	"github.com/drivescene/scapes/rimage"
	"github.com/drivescene/scapes/rimage/transform"
)

// Pipeline is a configured, synchronized transform over a sample's modalities.
type Pipeline struct {
	cfg    Config
	norm   *rimage.Normalization
	calib  DepthCalibration
	logger logging.Logger
}

// New validates the config and returns a pipeline holding a deep copy of it.
func New(cfg *Config, logger logging.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate("augmentations"); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    *cfg.Clone(),
		norm:   cfg.normalization(),
		calib:  cfg.calibration(),
		logger: logger,
	}
	logger.Debugw("transform pipeline configured",
		"output_size", p.cfg.BaseSize(),
		"rand_flip", cfg.RandomFlip,
		"rand_brightness", cfg.Brightness,
		"rand_rotation", cfg.Rotation,
		"crop_fraction", cfg.CropFraction,
		"disparity_out", cfg.DisparityOut,
	)
	return p, nil
}

// Config returns a deep copy of the pipeline's configuration.
func (p *Pipeline) Config() Config {
	return *p.cfg.Clone()
}

// Normalization returns the per channel statistics applied to color tensors, nil when disabled.
func (p *Pipeline) Normalization() *rimage.Normalization {
	return p.norm
}

// Transform draws a fresh augmentation from rng and applies it.
func (p *Pipeline) Transform(s *Sample, scale float64, rng *rand.Rand) (*Output, error) {
	aug, err := p.Draw(rng, scale)
	if err != nil {
		return nil, err
	}
	return p.Apply(s, scale, aug)
}

// Apply runs the pipeline with the given augmentation. The sample is not modified, and no
// output is returned on error.
func (p *Pipeline) Apply(s *Sample, scale float64, aug Augmentation) (*Output, error) {
	if _, err := s.Size(); err != nil {
		return nil, err
	}
	shape, err := p.cfg.OutputShape(scale)
	if err != nil {
		return nil, err
	}
	if !aug.Crop.Empty() && !aug.Crop.In(image.Rectangle{Max: shape}) {
		return nil, NewConfigurationError("crop %v outside of output shape %v", aug.Crop, shape)
	}

	// Inputs that can be rejected are checked before any pixel work.
	out := &Output{Augmentation: aug, Shape: shape}
	if raw := s.Camera(); raw != nil {
		if out.Camera, err = transform.NewCameraIntrinsicsFromJSON(raw); err != nil {
			return nil, err
		}
	}
	if seg, ok := s.Plane(Segmentation); ok {
		if err := validateLabels(seg); err != nil {
			return nil, err
		}
	}

	for _, m := range s.Modalities() {
		switch m.Kind() {
		case ColorKind:
			img, _ := s.Image(m)
			t := rimage.ToTensor(geometricColor(img, aug, shape), p.norm)
			if t, err = cropTensor(t, aug.Crop); err != nil {
				return nil, errors.Wrapf(err, "cannot crop %s", m)
			}
			if out.Images == nil {
				out.Images = make(map[Modality]*tensor.Dense)
			}
			out.Images[m] = t
		case LabelKind:
			seg, _ := s.Plane(m)
			remapped, err := classes.Remap(geometricPlane(seg, aug, shape))
			if err != nil {
				return nil, err
			}
			t, err := cropTensor(rimage.PlaneToTensor(remapped), aug.Crop)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot crop %s", m)
			}
			out.Segmentation = t
		case DepthKind:
			disp, _ := s.Plane(m)
			dm := ConvertDisparity(geometricPlane(disp, aug, shape), scale, p.cfg.DisparityOut, p.calib)
			if out.Disparity, err = cropDepth(dm, aug.Crop); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("unsupported modality %s", m)
		}
	}

	if !aug.Crop.Empty() {
		out.Shape = aug.Crop.Size()
	}
	return out, nil
}
