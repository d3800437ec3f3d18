package rimage

import (
	"image"
	"testing"

	"go.viam.com/test"
)

func TestDepthMapBasics(t *testing.T) {
	dm := NewDepthMap(4, 3)
	test.That(t, dm.Width(), test.ShouldEqual, 4)
	test.That(t, dm.Height(), test.ShouldEqual, 3)
	dm.Set(3, 2, 12.5)
	dm.Set(1, 0, 2)
	test.That(t, dm.At(3, 2), test.ShouldEqual, 12.5)
	test.That(t, dm.Matrix().At(2, 3), test.ShouldEqual, 12.5)

	lo, hi := dm.MinMax()
	test.That(t, lo, test.ShouldEqual, 2.0)
	test.That(t, hi, test.ShouldEqual, 12.5)

	vals := dm.Values()
	test.That(t, vals, test.ShouldHaveLength, 12)
	test.That(t, vals[11], test.ShouldEqual, 12.5)

	lo, hi = NewDepthMap(2, 2).MinMax()
	test.That(t, lo, test.ShouldEqual, 0.0)
	test.That(t, hi, test.ShouldEqual, 0.0)
}

func TestDepthMapCropAndZero(t *testing.T) {
	dm := NewDepthMap(8, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			dm.Set(x, y, float64(10*y+x))
		}
	}
	c, err := dm.Crop(image.Rect(2, 1, 6, 5))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Width(), test.ShouldEqual, 4)
	test.That(t, c.Height(), test.ShouldEqual, 4)
	test.That(t, c.At(0, 0), test.ShouldEqual, 12.0)
	test.That(t, c.At(3, 3), test.ShouldEqual, 45.0)

	c.Set(0, 0, -3)
	test.That(t, dm.At(2, 1), test.ShouldEqual, 12.0)

	_, err = dm.Crop(image.Rect(5, 0, 9, 2))
	test.That(t, err, test.ShouldNotBeNil)

	dm.ZeroRegion(image.Rect(6, 0, 20, 6))
	test.That(t, dm.At(5, 3), test.ShouldEqual, 35.0)
	test.That(t, dm.At(6, 3), test.ShouldEqual, 0.0)
	test.That(t, dm.At(7, 5), test.ShouldEqual, 0.0)
}

func TestDepthMapPrettyPicture(t *testing.T) {
	dm := NewDepthMap(3, 1)
	dm.Set(1, 0, 5)
	dm.Set(2, 0, 10)
	img := dm.ToPrettyPicture(0, 100)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 3, 1))
	_, _, _, a := img.At(0, 0).RGBA()
	test.That(t, a, test.ShouldEqual, uint32(0))
	_, _, _, a = img.At(1, 0).RGBA()
	test.That(t, a, test.ShouldEqual, uint32(0xffff))
	test.That(t, img.At(1, 0), test.ShouldNotResemble, img.At(2, 0))
}
