// Package classes maps raw Cityscapes label IDs onto the 19 train classes and names and
// colors them.
package classes

import (
	"fmt"
	"image"
	"image/color"

	"github.com/drivescene/scapes/rimage"
)

const (
	// NumClasses is the number of train classes.
	NumClasses = 19
	// IgnoreIndex marks pixels that take no part in training or evaluation.
	IgnoreIndex = 255
	// MinRawID and MaxRawID bound the raw label domain.
	MinRawID = -1
	MaxRawID = 33
)

// RemapTable maps raw ID r to RemapTable[r+1].
var RemapTable = [MaxRawID - MinRawID + 1]uint8{
	255, 255, 255, 255, 255, 255, 255, 255, 0, 1,
	255, 255, 2, 3, 4, 255, 255, 255, 5, 255,
	6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
	255, 255, 16, 17, 18,
}

// UnmappedLabelError is returned when a label map holds a value outside the raw ID domain.
type UnmappedLabelError struct {
	Value int32
}

func (e *UnmappedLabelError) Error() string {
	return fmt.Sprintf("label value %d outside of the raw id range [%d, %d]", e.Value, MinRawID, MaxRawID)
}

// RemapLabel maps a single raw ID to its train class or IgnoreIndex.
func RemapLabel(v int32) (uint8, error) {
	if v < MinRawID || v > MaxRawID {
		return 0, &UnmappedLabelError{Value: v}
	}
	return RemapTable[v-MinRawID], nil
}

// Remap validates every value of a raw label map before mapping any of them, then returns the
// train class map. The input is not modified.
func Remap(p *rimage.Plane) (*rimage.Plane, error) {
	for _, v := range p.Unique() {
		if v < MinRawID || v > MaxRawID {
			return nil, &UnmappedLabelError{Value: v}
		}
	}
	out := rimage.NewPlane(p.Width(), p.Height())
	dst := out.Data()
	for i, v := range p.Data() {
		dst[i] = int32(RemapTable[v-MinRawID])
	}
	return out, nil
}

// Class describes one train class.
type Class struct {
	Name  string
	RawID int32
	Color color.NRGBA
}

// TrainClasses lists the train classes in index order.
var TrainClasses = [NumClasses]Class{
	{Name: "road", RawID: 7, Color: color.NRGBA{R: 128, G: 64, B: 128, A: 255}},
	{Name: "sidewalk", RawID: 8, Color: color.NRGBA{R: 244, G: 35, B: 232, A: 255}},
	{Name: "building", RawID: 11, Color: color.NRGBA{R: 70, G: 70, B: 70, A: 255}},
	{Name: "wall", RawID: 12, Color: color.NRGBA{R: 102, G: 102, B: 156, A: 255}},
	{Name: "fence", RawID: 13, Color: color.NRGBA{R: 190, G: 153, B: 153, A: 255}},
	{Name: "pole", RawID: 17, Color: color.NRGBA{R: 153, G: 153, B: 153, A: 255}},
	{Name: "traffic light", RawID: 19, Color: color.NRGBA{R: 250, G: 170, B: 30, A: 255}},
	{Name: "traffic sign", RawID: 20, Color: color.NRGBA{R: 220, G: 220, B: 0, A: 255}},
	{Name: "vegetation", RawID: 21, Color: color.NRGBA{R: 107, G: 142, B: 35, A: 255}},
	{Name: "terrain", RawID: 22, Color: color.NRGBA{R: 152, G: 251, B: 152, A: 255}},
	{Name: "sky", RawID: 23, Color: color.NRGBA{R: 70, G: 130, B: 180, A: 255}},
	{Name: "person", RawID: 24, Color: color.NRGBA{R: 220, G: 20, B: 60, A: 255}},
	{Name: "rider", RawID: 25, Color: color.NRGBA{R: 255, G: 0, B: 0, A: 255}},
	{Name: "car", RawID: 26, Color: color.NRGBA{R: 0, G: 0, B: 142, A: 255}},
	{Name: "truck", RawID: 27, Color: color.NRGBA{R: 0, G: 0, B: 70, A: 255}},
	{Name: "bus", RawID: 28, Color: color.NRGBA{R: 0, G: 60, B: 100, A: 255}},
	{Name: "train", RawID: 31, Color: color.NRGBA{R: 0, G: 80, B: 100, A: 255}},
	{Name: "motorcycle", RawID: 32, Color: color.NRGBA{R: 0, G: 0, B: 230, A: 255}},
	{Name: "bicycle", RawID: 33, Color: color.NRGBA{R: 119, G: 11, B: 32, A: 255}},
}

// Name returns the class name for a train index, "ignore" for IgnoreIndex.
func Name(idx int) string {
	if idx < 0 || idx >= NumClasses {
		return "ignore"
	}
	return TrainClasses[idx].Name
}

// Color returns the display color for a train index. Ignored pixels are black.
func Color(idx int) color.NRGBA {
	if idx < 0 || idx >= NumClasses {
		return color.NRGBA{A: 255}
	}
	return TrainClasses[idx].Color
}

// Colorize renders a train class map with the class palette.
func Colorize(p *rimage.Plane) *image.NRGBA {
	img := image.NewNRGBA(p.Bounds())
	for y := 0; y < p.Height(); y++ {
		for x := 0; x < p.Width(); x++ {
			img.SetNRGBA(x, y, Color(int(p.At(x, y))))
		}
	}
	return img
}
