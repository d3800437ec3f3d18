// Package rimage holds the grid types a dataset sample is made of and the resampling
// operations applied to them.
package rimage

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/drivescene/scapes/utils"
)

// Plane is a single channel integer grid, used for label maps and raw 16 bit disparity.
// Values are stored row major.
type Plane struct {
	width  int
	height int
	data   []int32
}

// NewPlane returns a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{width: width, height: height, data: make([]int32, width*height)}
}

// NewPlaneFromData wraps row major data without copying.
func NewPlaneFromData(width, height int, data []int32) (*Plane, error) {
	if len(data) != width*height {
		return nil, errors.Errorf("plane data has %d values, want %d for %dx%d", len(data), width*height, width, height)
	}
	return &Plane{width: width, height: height, data: data}, nil
}

// PlaneFromImage reads the gray level of every pixel. 16 bit images keep their full range.
func PlaneFromImage(img image.Image) *Plane {
	b := img.Bounds()
	p := NewPlane(b.Dx(), b.Dy())
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < p.height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+p.width]
			for x, v := range row {
				p.data[y*p.width+x] = int32(v)
			}
		}
	case *image.Gray16:
		for y := 0; y < p.height; y++ {
			for x := 0; x < p.width; x++ {
				i := y*src.Stride + 2*x
				p.data[y*p.width+x] = int32(uint16(src.Pix[i])<<8 | uint16(src.Pix[i+1]))
			}
		}
	default:
		sixteen := img.ColorModel() == color.Gray16Model || img.ColorModel() == color.RGBA64Model ||
			img.ColorModel() == color.NRGBA64Model
		for y := 0; y < p.height; y++ {
			for x := 0; x < p.width; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16).Y
				if !sixteen {
					g >>= 8
				}
				p.data[y*p.width+x] = int32(g)
			}
		}
	}
	return p
}

// Width returns the number of columns.
func (p *Plane) Width() int {
	return p.width
}

// Height returns the number of rows.
func (p *Plane) Height() int {
	return p.height
}

// Bounds returns the plane's extent anchored at the origin.
func (p *Plane) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// At returns the value at column x, row y.
func (p *Plane) At(x, y int) int32 {
	return p.data[y*p.width+x]
}

// Set sets the value at column x, row y.
func (p *Plane) Set(x, y int, v int32) {
	p.data[y*p.width+x] = v
}

// Fill sets every value to v.
func (p *Plane) Fill(v int32) {
	for i := range p.data {
		p.data[i] = v
	}
}

// Data exposes the row major backing slice.
func (p *Plane) Data() []int32 {
	return p.data
}

// Clone returns a deep copy.
func (p *Plane) Clone() *Plane {
	data := make([]int32, len(p.data))
	copy(data, p.data)
	return &Plane{width: p.width, height: p.height, data: data}
}

// FlipH mirrors the plane left to right.
func (p *Plane) FlipH() *Plane {
	out := NewPlane(p.width, p.height)
	for y := 0; y < p.height; y++ {
		row := y * p.width
		for x := 0; x < p.width; x++ {
			out.data[row+x] = p.data[row+p.width-1-x]
		}
	}
	return out
}

// Rotate rotates the plane counter-clockwise by angle degrees about its center, keeping the
// canvas size. Each output pixel takes its nearest source pixel; pixels that map outside the
// source get fill. The geometry matches imaging.Rotate followed by a center crop.
func (p *Plane) Rotate(angle float64, fill int32) *Plane {
	angle -= math.Floor(angle/360) * 360
	if angle == 0 {
		return p.Clone()
	}

	out := NewPlane(p.width, p.height)
	xOff := float64(p.width)/2 - 0.5
	yOff := float64(p.height)/2 - 0.5
	sin, cos := math.Sincos(utils.DegToRad(angle))
	for y := 0; y < p.height; y++ {
		dy := float64(y) - yOff
		for x := 0; x < p.width; x++ {
			dx := float64(x) - xOff
			sx := int(math.Floor(dx*cos - dy*sin + xOff + 0.5))
			sy := int(math.Floor(dx*sin + dy*cos + yOff + 0.5))
			if sx < 0 || sy < 0 || sx >= p.width || sy >= p.height {
				out.data[y*p.width+x] = fill
				continue
			}
			out.data[y*p.width+x] = p.data[sy*p.width+sx]
		}
	}
	return out
}

// ResizeNearest resamples the plane to width x height, each output pixel taking the source
// pixel its center falls in.
func (p *Plane) ResizeNearest(width, height int) *Plane {
	if width == p.width && height == p.height {
		return p.Clone()
	}
	out := NewPlane(width, height)
	xs := make([]int, width)
	for x := range xs {
		xs[x] = nearestIndex(x, p.width, width)
	}
	for y := 0; y < height; y++ {
		sy := nearestIndex(y, p.height, height)
		src := p.data[sy*p.width : (sy+1)*p.width]
		dst := out.data[y*width : (y+1)*width]
		for x, sx := range xs {
			dst[x] = src[sx]
		}
	}
	return out
}

func nearestIndex(dst, srcSize, dstSize int) int {
	idx := int(math.Floor((float64(dst) + 0.5) * float64(srcSize) / float64(dstSize)))
	if idx >= srcSize {
		idx = srcSize - 1
	}
	return idx
}

// Crop returns a copy of the given region, which must lie within the plane.
func (p *Plane) Crop(rect image.Rectangle) (*Plane, error) {
	if rect.Empty() || !rect.In(p.Bounds()) {
		return nil, errors.Errorf("crop %v outside of plane bounds %v", rect, p.Bounds())
	}
	out := NewPlane(rect.Dx(), rect.Dy())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		copy(out.data[(y-rect.Min.Y)*out.width:(y-rect.Min.Y+1)*out.width], p.data[y*p.width+rect.Min.X:y*p.width+rect.Max.X])
	}
	return out, nil
}

// Unique returns the distinct values in ascending order.
func (p *Plane) Unique() []int32 {
	seen := make(map[int32]struct{})
	for _, v := range p.data {
		seen[v] = struct{}{}
	}
	out := make([]int32, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
