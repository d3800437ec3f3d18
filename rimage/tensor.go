package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/drivescene/scapes/utils"
)

// Normalization holds per channel statistics applied as (x - mean) / std.
type Normalization struct {
	Mean [3]float64
	Std  [3]float64
}

// ToTensor converts an image into a (3, H, W) float32 tensor with values scaled to [0, 1]
// and then normalized when norm is non-nil.
func ToTensor(img image.Image, norm *Normalization) *tensor.Dense {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	plane := w * h
	backing := make([]float32, 3*plane)

	var scale, offset [3]float32
	for c := 0; c < 3; c++ {
		scale[c] = 1.0 / 255
		if norm != nil {
			scale[c] = float32(1.0 / (255 * norm.Std[c]))
			offset[c] = float32(norm.Mean[c] / norm.Std[c])
		}
	}

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+4*w]
		for x := 0; x < w; x++ {
			i := y*w + x
			for c := 0; c < 3; c++ {
				backing[c*plane+i] = float32(row[4*x+c])*scale[c] - offset[c]
			}
		}
	}
	return tensor.New(tensor.WithShape(3, h, w), tensor.WithBacking(backing))
}

// PlaneToTensor converts a plane into an (H, W) int64 tensor.
func PlaneToTensor(p *Plane) *tensor.Dense {
	backing := make([]int64, len(p.data))
	for i, v := range p.data {
		backing[i] = int64(v)
	}
	return tensor.New(tensor.WithShape(p.height, p.width), tensor.WithBacking(backing))
}

// FromTensor converts a (3, H, W) float32 tensor produced by ToTensor with the same norm back
// into an image. Values are clamped to the displayable range.
func FromTensor(t *tensor.Dense, norm *Normalization) (*image.NRGBA, error) {
	shape := t.Shape()
	if len(shape) != 3 || shape[0] != 3 {
		return nil, errors.Errorf("expected tensor of shape (3, H, W), got %v", shape)
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("expected float32 tensor, got %v", t.Dtype())
	}
	h, w := shape[1], shape[2]
	plane := w * h
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for c := 0; c < 3; c++ {
		mean, std := 0.0, 1.0
		if norm != nil {
			mean, std = norm.Mean[c], norm.Std[c]
		}
		for i := 0; i < plane; i++ {
			v := (float64(data[c*plane+i])*std + mean) * 255
			img.Pix[4*i+c] = utils.ClampUint8(v)
		}
	}
	for i := 0; i < plane; i++ {
		img.Pix[4*i+3] = 255
	}
	return img, nil
}

// PlaneFromTensor converts an (H, W) int64 tensor back into a plane.
func PlaneFromTensor(t *tensor.Dense) (*Plane, error) {
	shape := t.Shape()
	if len(shape) != 2 {
		return nil, errors.Errorf("expected tensor of shape (H, W), got %v", shape)
	}
	data, ok := t.Data().([]int64)
	if !ok {
		return nil, errors.Errorf("expected int64 tensor, got %v", t.Dtype())
	}
	values := make([]int32, len(data))
	for i, v := range data {
		values[i] = int32(v)
	}
	return NewPlaneFromData(shape[1], shape[0], values)
}

// CropTensor copies the spatial region rect out of a (C, H, W) or (H, W) tensor.
func CropTensor(t *tensor.Dense, rect image.Rectangle) (*tensor.Dense, error) {
	shape := t.Shape()
	if len(shape) < 2 {
		return nil, errors.Errorf("cannot crop tensor of shape %v", shape)
	}
	h, w := shape[len(shape)-2], shape[len(shape)-1]
	if rect.Empty() || !rect.In(image.Rect(0, 0, w, h)) {
		return nil, errors.Errorf("crop %v outside of tensor bounds %dx%d", rect, w, h)
	}
	if rect.Dx() == w && rect.Dy() == h {
		return t.Clone().(*tensor.Dense), nil
	}

	slices := make([]tensor.Slice, len(shape))
	slices[len(shape)-2] = tensor.S(rect.Min.Y, rect.Max.Y)
	slices[len(shape)-1] = tensor.S(rect.Min.X, rect.Max.X)
	view, err := t.Slice(slices...)
	if err != nil {
		return nil, errors.Wrap(err, "error slicing tensor")
	}
	cropped, ok := view.Materialize().(*tensor.Dense)
	if !ok {
		return nil, errors.Errorf("unexpected materialized tensor type %T", view)
	}
	return cropped, nil
}
