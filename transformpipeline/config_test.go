package transformpipeline

import (
	"errors"
	"image"
	"testing"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"github.com/drivescene/scapes/utils"
)

func TestNewConfigFromAttributes(t *testing.T) {
	cfg, err := NewConfigFromAttributes(utils.AttributeMap{
		"output_size":     []interface{}{512.0, 256.0},
		"rand_flip":       true,
		"rand_brightness": 20.0,
		"rand_rotation":   5.0,
		"crop_fraction":   2.0,
		"rand_scale":      []interface{}{0.5, 1.5},
		"disparity_out":   true,
		"img_normalize": map[string]interface{}{
			"mean": []interface{}{0.485, 0.456, 0.406},
			"std":  []interface{}{0.229, 0.224, 0.225},
		},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.OutputSize, test.ShouldResemble, [2]int{512, 256})
	test.That(t, cfg.RandomFlip, test.ShouldBeTrue)
	test.That(t, *cfg.Brightness, test.ShouldEqual, 20.0)
	test.That(t, *cfg.Rotation, test.ShouldEqual, 5.0)
	test.That(t, *cfg.CropFraction, test.ShouldEqual, 2.0)
	test.That(t, cfg.RandomScale, test.ShouldResemble, []float64{0.5, 1.5})
	test.That(t, cfg.DisparityOut, test.ShouldBeTrue)
	test.That(t, cfg.Normalize.Std, test.ShouldResemble, []float64{0.229, 0.224, 0.225})
	test.That(t, cfg.Calibration, test.ShouldBeNil)

	_, err = NewConfigFromAttributes(utils.AttributeMap{"rand_flop": true})
	var confErr *ConfigurationError
	test.That(t, errors.As(err, &confErr), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "rand_flop")

	_, err = NewConfigFromAttributes(utils.AttributeMap{"crop_fraction": 0.5})
	test.That(t, errors.As(err, &confErr), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "augmentations.crop_fraction")
}

func TestConfigValidate(t *testing.T) {
	test.That(t, (&Config{}).Validate("augmentations"), test.ShouldBeNil)

	bad := &Config{
		OutputSize:   [2]int{-1, 10},
		Brightness:   floatPtr(150),
		Rotation:     floatPtr(-3),
		CropFraction: floatPtr(0.9),
		RandomScale:  []float64{2, 1},
		Normalize:    &NormalizeConfig{Mean: []float64{0, 0, 0}, Std: []float64{1, 0, 1}},
		Calibration:  &DepthCalibration{BaselineM: 0, FocalPx: 10},
	}
	err := bad.Validate("augmentations")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 7)
	for _, e := range multierr.Errors(err) {
		var confErr *ConfigurationError
		test.That(t, errors.As(e, &confErr), test.ShouldBeTrue)
	}
	test.That(t, err.Error(), test.ShouldContainSubstring, "augmentations.img_normalize.std")

	_, err = New(bad, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCropSize(t *testing.T) {
	cfg := &Config{}
	_, cropping, err := cfg.CropSize(image.Pt(1024, 512))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cropping, test.ShouldBeFalse)

	cfg.CropFraction = floatPtr(2)
	size, cropping, err := cfg.CropSize(image.Pt(2048, 1024))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cropping, test.ShouldBeTrue)
	test.That(t, size, test.ShouldResemble, image.Pt(1024, 512))

	cfg.CropFraction = floatPtr(3)
	size, _, err = cfg.CropSize(image.Pt(1024, 512))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, size, test.ShouldResemble, image.Pt(320, 160))

	cfg.CropFraction = floatPtr(100)
	_, _, err = cfg.CropSize(image.Pt(1024, 512))
	var confErr *ConfigurationError
	test.That(t, errors.As(err, &confErr), test.ShouldBeTrue)
}

func TestEvaluationConfig(t *testing.T) {
	cfg := &Config{
		OutputSize:   [2]int{512, 256},
		RandomFlip:   true,
		Brightness:   floatPtr(10),
		Rotation:     floatPtr(10),
		CropFraction: floatPtr(2),
		RandomScale:  []float64{0.5, 2},
		DisparityOut: true,
	}
	eval := cfg.Evaluation()
	test.That(t, eval, test.ShouldResemble, &Config{OutputSize: [2]int{512, 256}, DisparityOut: true})
	test.That(t, cfg.RandomFlip, test.ShouldBeTrue)
}

func TestPipelineOwnsConfig(t *testing.T) {
	cfg := &Config{
		OutputSize:   [2]int{512, 256},
		Brightness:   floatPtr(10),
		Rotation:     floatPtr(5),
		CropFraction: floatPtr(2),
		RandomScale:  []float64{0.5, 2},
		Normalize:    &NormalizeConfig{Mean: []float64{0.5, 0.5, 0.5}, Std: []float64{0.2, 0.2, 0.2}},
		Calibration:  &DepthCalibration{BaselineM: 0.2, FocalPx: 2000},
	}
	p := newTestPipeline(t, cfg)

	*cfg.Brightness = 90
	*cfg.Rotation = 45
	*cfg.CropFraction = 1
	cfg.RandomScale[0] = 3
	cfg.Normalize.Mean[0] = 0
	cfg.Calibration.FocalPx = 1

	got := p.Config()
	test.That(t, *got.Brightness, test.ShouldEqual, 10.0)
	test.That(t, *got.Rotation, test.ShouldEqual, 5.0)
	test.That(t, *got.CropFraction, test.ShouldEqual, 2.0)
	test.That(t, got.RandomScale, test.ShouldResemble, []float64{0.5, 2})
	test.That(t, got.Normalize.Mean, test.ShouldResemble, []float64{0.5, 0.5, 0.5})
	test.That(t, got.Calibration.FocalPx, test.ShouldEqual, 2000.0)

	*got.Brightness = 50
	got.RandomScale[1] = 9
	again := p.Config()
	test.That(t, *again.Brightness, test.ShouldEqual, 10.0)
	test.That(t, again.RandomScale, test.ShouldResemble, []float64{0.5, 2})

	var empty Config
	test.That(t, empty.Clone(), test.ShouldResemble, &Config{})
}

func TestModalities(t *testing.T) {
	test.That(t, len(AllModalities()), test.ShouldEqual, 6)
	for _, m := range AllModalities() {
		parsed, err := ParseModality(m.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, m)
	}
	_, err := ParseModality("depth")
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, Segmentation.Kind(), test.ShouldEqual, LabelKind)
	test.That(t, LeftDisparity.Kind(), test.ShouldEqual, DepthKind)
	test.That(t, RightSequence.Kind(), test.ShouldEqual, ColorKind)
	test.That(t, LeftSequence.Photometric(), test.ShouldBeTrue)
	test.That(t, Segmentation.Photometric(), test.ShouldBeFalse)
	test.That(t, Modality(42).String(), test.ShouldEqual, "unknown")
}
