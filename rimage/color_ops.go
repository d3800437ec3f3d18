package rimage

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/drivescene/scapes/utils"
)

// FlipColor mirrors an image left to right.
func FlipColor(img image.Image) *image.NRGBA {
	return imaging.FlipH(img)
}

// ScaleBrightness multiplies every color channel by factor, clamping to the 8 bit range.
// Alpha is left untouched.
func ScaleBrightness(img image.Image, factor float64) *image.NRGBA {
	if factor == 1 {
		return imaging.Clone(img)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: utils.ClampUint8(float64(c.R) * factor),
			G: utils.ClampUint8(float64(c.G) * factor),
			B: utils.ClampUint8(float64(c.B) * factor),
			A: c.A,
		}
	})
}

// RotateColor rotates an image counter-clockwise by angle degrees about its center with
// bilinear sampling. The canvas keeps its size and uncovered pixels are black.
func RotateColor(img image.Image, angle float64) *image.NRGBA {
	b := img.Bounds()
	rotated := imaging.Rotate(img, angle, color.Black)
	return imaging.PasteCenter(imaging.New(b.Dx(), b.Dy(), color.Black), rotated)
}

// ResizeBilinear resamples an image to width x height.
func ResizeBilinear(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}
