package classes

import (
	"errors"
	"image/color"
	"testing"

	"go.viam.com/test"

	"github.com/drivescene/scapes/rimage"
)

func TestRemapLabel(t *testing.T) {
	for raw, want := range map[int32]uint8{7: 0, 0: 255, -1: 255, 8: 1, 26: 13, 33: 18, 30: 255} {
		got, err := RemapLabel(raw)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, want)
	}

	_, err := RemapLabel(200)
	var unmapped *UnmappedLabelError
	test.That(t, errors.As(err, &unmapped), test.ShouldBeTrue)
	test.That(t, unmapped.Value, test.ShouldEqual, int32(200))

	_, err = RemapLabel(-2)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRemapTableMatchesTrainClasses(t *testing.T) {
	valid := 0
	for raw := int32(MinRawID); raw <= MaxRawID; raw++ {
		idx, err := RemapLabel(raw)
		test.That(t, err, test.ShouldBeNil)
		if idx == IgnoreIndex {
			continue
		}
		valid++
		test.That(t, TrainClasses[idx].RawID, test.ShouldEqual, raw)
	}
	test.That(t, valid, test.ShouldEqual, NumClasses)
}

func TestRemap(t *testing.T) {
	p, err := rimage.NewPlaneFromData(4, 1, []int32{7, 0, -1, 24})
	test.That(t, err, test.ShouldBeNil)
	out, err := Remap(p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Data(), test.ShouldResemble, []int32{0, 255, 255, 11})
	test.That(t, p.Data(), test.ShouldResemble, []int32{7, 0, -1, 24})

	bad, err := rimage.NewPlaneFromData(3, 1, []int32{7, 200, 34})
	test.That(t, err, test.ShouldBeNil)
	_, err = Remap(bad)
	var unmapped *UnmappedLabelError
	test.That(t, errors.As(err, &unmapped), test.ShouldBeTrue)
	test.That(t, unmapped.Value, test.ShouldEqual, int32(34))
	test.That(t, err.Error(), test.ShouldContainSubstring, "34")
}

func TestNamesAndColors(t *testing.T) {
	test.That(t, Name(0), test.ShouldEqual, "road")
	test.That(t, Name(18), test.ShouldEqual, "bicycle")
	test.That(t, Name(IgnoreIndex), test.ShouldEqual, "ignore")
	test.That(t, Color(13), test.ShouldResemble, color.NRGBA{R: 0, G: 0, B: 142, A: 255})
	test.That(t, Color(IgnoreIndex), test.ShouldResemble, color.NRGBA{A: 255})

	p, err := rimage.NewPlaneFromData(2, 1, []int32{10, 255})
	test.That(t, err, test.ShouldBeNil)
	img := Colorize(p)
	test.That(t, img.NRGBAAt(0, 0), test.ShouldResemble, TrainClasses[10].Color)
	test.That(t, img.NRGBAAt(1, 0), test.ShouldResemble, color.NRGBA{A: 255})
}
