package transformpipeline

import (
	"image"
	"math/rand"
)

// Augmentation is the set of random decisions applied to one sample. The zero crop rectangle
// means no crop. Start from Identity: a zero Brightness turns every color pixel black.
type Augmentation struct {
	Flip       bool
	Brightness float64
	Angle      float64
	Crop       image.Rectangle
}

// Identity returns the augmentation that changes nothing.
func Identity() Augmentation {
	return Augmentation{Brightness: 1}
}

// Draw makes the random decisions for one sample at the given scale, in the fixed order flip,
// brightness, angle, crop x, crop y. Disabled augmentations consume no randomness, so rng may be
// nil when none is enabled.
func (p *Pipeline) Draw(rng *rand.Rand, scale float64) (Augmentation, error) {
	shape, err := p.cfg.OutputShape(scale)
	if err != nil {
		return Augmentation{}, err
	}
	crop, cropping, err := p.cfg.CropSize(shape)
	if err != nil {
		return Augmentation{}, err
	}
	random := p.cfg.RandomFlip || p.cfg.Brightness != nil || p.cfg.Rotation != nil || cropping
	if random && rng == nil {
		return Augmentation{}, NewConfigurationError("no random source supplied")
	}

	aug := Identity()
	if p.cfg.RandomFlip {
		aug.Flip = rng.Float64() < 0.5
	}
	if p.cfg.Brightness != nil {
		b := *p.cfg.Brightness / 100
		aug.Brightness = (1 - b) + 2*b*rng.Float64()
	}
	if p.cfg.Rotation != nil {
		aug.Angle = *p.cfg.Rotation * rng.Float64()
	}
	if cropping {
		x := rng.Intn(shape.X - crop.X + 1)
		y := rng.Intn(shape.Y - crop.Y + 1)
		aug.Crop = image.Rect(x, y, x+crop.X, y+crop.Y)
	}
	return aug, nil
}
