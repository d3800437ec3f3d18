package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func rampPlane(w, h int) *Plane {
	p := NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Set(x, y, int32(y*w+x))
		}
	}
	return p
}

func TestPlaneFromImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 2))
	gray.SetGray(2, 1, color.Gray{Y: 26})
	p := PlaneFromImage(gray)
	test.That(t, p.Width(), test.ShouldEqual, 3)
	test.That(t, p.Height(), test.ShouldEqual, 2)
	test.That(t, p.At(2, 1), test.ShouldEqual, int32(26))
	test.That(t, p.At(0, 0), test.ShouldEqual, int32(0))

	gray16 := image.NewGray16(image.Rect(0, 0, 4, 4))
	gray16.SetGray16(1, 3, color.Gray16{Y: 25857})
	p = PlaneFromImage(gray16)
	test.That(t, p.At(1, 3), test.ShouldEqual, int32(25857))

	rgba := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	rgba.SetNRGBA(1, 1, color.NRGBA{R: 7, G: 7, B: 7, A: 255})
	p = PlaneFromImage(rgba)
	test.That(t, p.At(1, 1), test.ShouldEqual, int32(7))
}

func TestNewPlaneFromData(t *testing.T) {
	_, err := NewPlaneFromData(2, 2, []int32{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
	p, err := NewPlaneFromData(2, 2, []int32{1, 2, 3, 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.At(1, 1), test.ShouldEqual, int32(4))
}

func TestPlaneFlipH(t *testing.T) {
	p := rampPlane(5, 3)
	flipped := p.FlipH()
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			test.That(t, flipped.At(x, y), test.ShouldEqual, p.At(4-x, y))
		}
	}
	test.That(t, flipped.FlipH().Data(), test.ShouldResemble, p.Data())
}

func TestPlaneRotate(t *testing.T) {
	p := rampPlane(6, 4)

	same := p.Rotate(0, -1)
	test.That(t, same.Data(), test.ShouldResemble, p.Data())
	same = p.Rotate(360, -1)
	test.That(t, same.Data(), test.ShouldResemble, p.Data())

	half := p.Rotate(180, -1)
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			test.That(t, half.At(x, y), test.ShouldEqual, p.At(5-x, 3-y))
		}
	}

	// A quarter turn of a wide plane leaves the left and right edges uncovered.
	quarter := p.Rotate(90, -1)
	test.That(t, quarter.At(0, 0), test.ShouldEqual, int32(-1))
	test.That(t, quarter.At(5, 3), test.ShouldEqual, int32(-1))
	test.That(t, quarter.Width(), test.ShouldEqual, 6)
	test.That(t, quarter.Height(), test.ShouldEqual, 4)

	// Small angles keep the center pixel.
	small := rampPlane(9, 9).Rotate(10, -1)
	test.That(t, small.At(4, 4), test.ShouldEqual, int32(4*9+4))
}

func TestPlaneResizeNearest(t *testing.T) {
	p := rampPlane(4, 2)
	up := p.ResizeNearest(8, 4)
	test.That(t, up.Width(), test.ShouldEqual, 8)
	test.That(t, up.Height(), test.ShouldEqual, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			test.That(t, up.At(x, y), test.ShouldEqual, p.At(x/2, y/2))
		}
	}

	down := up.ResizeNearest(4, 2)
	test.That(t, down.Data(), test.ShouldResemble, p.Data())

	// Nearest never invents values.
	odd := rampPlane(7, 5).ResizeNearest(3, 2)
	allowed := map[int32]bool{}
	for _, v := range rampPlane(7, 5).Data() {
		allowed[v] = true
	}
	for _, v := range odd.Data() {
		test.That(t, allowed[v], test.ShouldBeTrue)
	}
}

func TestPlaneCrop(t *testing.T) {
	p := rampPlane(6, 4)
	c, err := p.Crop(image.Rect(2, 1, 5, 3))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Width(), test.ShouldEqual, 3)
	test.That(t, c.Height(), test.ShouldEqual, 2)
	test.That(t, c.At(0, 0), test.ShouldEqual, p.At(2, 1))
	test.That(t, c.At(2, 1), test.ShouldEqual, p.At(4, 2))

	_, err = p.Crop(image.Rect(4, 0, 7, 2))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlaneUnique(t *testing.T) {
	p, err := NewPlaneFromData(3, 2, []int32{7, -1, 7, 33, 0, -1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Unique(), test.ShouldResemble, []int32{-1, 0, 7, 33})

	clone := p.Clone()
	clone.Fill(5)
	test.That(t, p.At(0, 0), test.ShouldEqual, int32(7))
	test.That(t, clone.Unique(), test.ShouldResemble, []int32{5})
}
