package transformpipeline

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/drivescene/scapes/classes"
	"github.com/drivescene/scapes/rimage"
)

// Fill value for label and disparity pixels uncovered by rotation.
const rotationFill = -1

// geometricColor runs flip, brightness, rotation and resize on a color modality.
func geometricColor(img image.Image, aug Augmentation, shape image.Point) image.Image {
	if aug.Flip {
		img = rimage.FlipColor(img)
	}
	if aug.Brightness != 1 {
		img = rimage.ScaleBrightness(img, aug.Brightness)
	}
	if aug.Angle != 0 {
		img = rimage.RotateColor(img, aug.Angle)
	}
	return rimage.ResizeBilinear(img, shape.X, shape.Y)
}

// geometricPlane runs flip, rotation and resize on a label or disparity modality.
func geometricPlane(p *rimage.Plane, aug Augmentation, shape image.Point) *rimage.Plane {
	if aug.Flip {
		p = p.FlipH()
	}
	if aug.Angle != 0 {
		p = p.Rotate(aug.Angle, rotationFill)
	}
	return p.ResizeNearest(shape.X, shape.Y)
}

// validateLabels rejects raw label maps holding values outside the raw ID domain.
func validateLabels(p *rimage.Plane) error {
	for _, v := range p.Unique() {
		if v < classes.MinRawID || v > classes.MaxRawID {
			return &classes.UnmappedLabelError{Value: v}
		}
	}
	return nil
}

// cropTensor crops t when crop is set.
func cropTensor(t *tensor.Dense, crop image.Rectangle) (*tensor.Dense, error) {
	if crop.Empty() {
		return t, nil
	}
	return rimage.CropTensor(t, crop)
}

// cropDepth crops dm when crop is set.
func cropDepth(dm *rimage.DepthMap, crop image.Rectangle) (*rimage.DepthMap, error) {
	if crop.Empty() {
		return dm, nil
	}
	cropped, err := dm.Crop(crop)
	if err != nil {
		return nil, errors.Wrap(err, "cannot crop disparity")
	}
	return cropped, nil
}
