package transformpipeline

import (
	"image"
	"sort"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/drivescene/scapes/rimage"
	"github.com/drivescene/scapes/rimage/transform"
)

// Sample holds the raw decoded modalities of one frame. Color modalities are images, label and
// disparity modalities are integer planes, and the camera is the undecoded JSON document.
type Sample struct {
	images map[Modality]image.Image
	planes map[Modality]*rimage.Plane
	camera []byte
}

// NewSample returns an empty sample.
func NewSample() *Sample {
	return &Sample{
		images: make(map[Modality]image.Image),
		planes: make(map[Modality]*rimage.Plane),
	}
}

// SetImage stores a color modality.
func (s *Sample) SetImage(m Modality, img image.Image) error {
	if m.Kind() != ColorKind {
		return errors.Errorf("modality %s is not a color image", m)
	}
	s.images[m] = img
	return nil
}

// SetPlane stores a label or disparity modality.
func (s *Sample) SetPlane(m Modality, p *rimage.Plane) error {
	if m.Kind() == ColorKind {
		return errors.Errorf("modality %s is not a single channel plane", m)
	}
	s.planes[m] = p
	return nil
}

// SetCamera stores the raw camera document.
func (s *Sample) SetCamera(raw []byte) {
	s.camera = raw
}

// Image returns a color modality.
func (s *Sample) Image(m Modality) (image.Image, bool) {
	img, ok := s.images[m]
	return img, ok
}

// Plane returns a label or disparity modality.
func (s *Sample) Plane(m Modality) (*rimage.Plane, bool) {
	p, ok := s.planes[m]
	return p, ok
}

// Camera returns the raw camera document, nil when absent.
func (s *Sample) Camera() []byte {
	return s.camera
}

// Has reports whether the modality is present.
func (s *Sample) Has(m Modality) bool {
	if _, ok := s.images[m]; ok {
		return true
	}
	_, ok := s.planes[m]
	return ok
}

// Modalities lists the present modalities in output order.
func (s *Sample) Modalities() []Modality {
	out := make([]Modality, 0, len(s.images)+len(s.planes))
	for m := range s.images {
		out = append(out, m)
	}
	for m := range s.planes {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Size returns the shared (width, height) of every modality. The left image is required.
func (s *Sample) Size() (image.Point, error) {
	left, ok := s.images[LeftImage]
	if !ok {
		return image.Point{}, NewConfigurationError("sample has no %s", LeftImage)
	}
	size := left.Bounds().Size()
	for _, m := range s.Modalities() {
		var got image.Point
		if img, ok := s.images[m]; ok {
			got = img.Bounds().Size()
		} else {
			got = s.planes[m].Bounds().Size()
		}
		if got != size {
			return image.Point{}, NewConfigurationError("%s is %v but %s is %v", m, got, LeftImage, size)
		}
	}
	return size, nil
}

// Output is a transformed sample in numeric form.
type Output struct {
	// Images holds (3, H, W) float32 tensors for every color modality.
	Images map[Modality]*tensor.Dense
	// Segmentation is an (H, W) int64 tensor of train class indices, nil when absent.
	Segmentation *tensor.Dense
	// Disparity is scaled disparity or metric depth, nil when absent.
	Disparity *rimage.DepthMap
	// Camera is derived from the camera document, nil when absent.
	Camera *transform.CameraIntrinsics
	// Shape is the final (width, height) after cropping.
	Shape        image.Point
	Augmentation Augmentation
}
