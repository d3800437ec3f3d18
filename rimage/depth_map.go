package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DepthMap is a float grid of disparity or metric depth. Zero marks an invalid pixel.
// Rows of the backing matrix are image rows.
type DepthMap struct {
	m *mat.Dense
}

// NewDepthMap returns a zeroed depth map.
func NewDepthMap(width, height int) *DepthMap {
	return &DepthMap{m: mat.NewDense(height, width, nil)}
}

// NewDepthMapFromMatrix wraps m without copying.
func NewDepthMapFromMatrix(m *mat.Dense) *DepthMap {
	return &DepthMap{m: m}
}

// Width returns the number of columns.
func (dm *DepthMap) Width() int {
	_, c := dm.m.Dims()
	return c
}

// Height returns the number of rows.
func (dm *DepthMap) Height() int {
	r, _ := dm.m.Dims()
	return r
}

// Bounds returns the map's extent anchored at the origin.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.Width(), dm.Height())
}

// At returns the value at column x, row y.
func (dm *DepthMap) At(x, y int) float64 {
	return dm.m.At(y, x)
}

// Set sets the value at column x, row y.
func (dm *DepthMap) Set(x, y int, v float64) {
	dm.m.Set(y, x, v)
}

// Matrix exposes the backing matrix.
func (dm *DepthMap) Matrix() *mat.Dense {
	return dm.m
}

// Values returns the row major values as a new slice.
func (dm *DepthMap) Values() []float64 {
	r, c := dm.m.Dims()
	out := make([]float64, 0, r*c)
	for y := 0; y < r; y++ {
		out = append(out, dm.m.RawRowView(y)...)
	}
	return out
}

// ZeroRegion sets every value inside rect, clipped to the map, to zero.
func (dm *DepthMap) ZeroRegion(rect image.Rectangle) {
	rect = rect.Intersect(dm.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := dm.m.RawRowView(y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			row[x] = 0
		}
	}
}

// Crop returns a copy of the given region, which must lie within the map.
func (dm *DepthMap) Crop(rect image.Rectangle) (*DepthMap, error) {
	if rect.Empty() || !rect.In(dm.Bounds()) {
		return nil, errors.Errorf("crop %v outside of depth map bounds %v", rect, dm.Bounds())
	}
	view := dm.m.Slice(rect.Min.Y, rect.Max.Y, rect.Min.X, rect.Max.X)
	return &DepthMap{m: mat.DenseCopyOf(view)}, nil
}

// MinMax returns the smallest and largest valid (positive) values. Both are zero when no value
// is valid.
func (dm *DepthMap) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	r, _ := dm.m.Dims()
	for y := 0; y < r; y++ {
		for _, z := range dm.m.RawRowView(y) {
			if z <= 0 || math.IsInf(z, 0) || math.IsNaN(z) {
				continue
			}
			lo = math.Min(lo, z)
			hi = math.Max(hi, z)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// ToPrettyPicture renders the map with a hue ramp between the clamped min and max. Invalid
// pixels stay transparent.
func (dm *DepthMap) ToPrettyPicture(hardMin, hardMax float64) image.Image {
	lo, hi := dm.MinMax()
	lo = math.Max(lo, hardMin)
	hi = math.Min(hi, hardMax)

	img := image.NewNRGBA(dm.Bounds())
	span := hi - lo
	for y := 0; y < dm.Height(); y++ {
		for x := 0; x < dm.Width(); x++ {
			z := dm.At(x, y)
			if z <= 0 || math.IsInf(z, 0) || math.IsNaN(z) {
				continue
			}
			ratio := 0.0
			if span > 0 {
				ratio = (math.Min(math.Max(z, lo), hi) - lo) / span
			}
			r, g, b := colorful.Hsv(30+200*ratio, 1.0, 1.0).RGB255()
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}
