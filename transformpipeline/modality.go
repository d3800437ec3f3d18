package transformpipeline

import (
	"github.com/pkg/errors"
)

// Modality names one co-registered input of a sample.
type Modality int

// The modalities a sample may carry, in output order.
const (
	LeftImage Modality = iota
	RightImage
	LeftSequence
	RightSequence
	Segmentation
	LeftDisparity
	numModalities
)

// Kind groups modalities by how they are resampled and converted.
type Kind int

const (
	// ColorKind modalities are RGB images: bilinear resampling, photometric jitter, float tensors.
	ColorKind Kind = iota
	// LabelKind modalities are class maps: nearest resampling, remapped to train classes.
	LabelKind
	// DepthKind modalities are raw disparity: nearest resampling, converted to disparity or depth.
	DepthKind
)

var modalityNames = [numModalities]string{"l_img", "r_img", "l_seq", "r_seq", "seg", "l_disp"}

// AllModalities lists every modality in output order.
func AllModalities() []Modality {
	out := make([]Modality, 0, numModalities)
	for m := LeftImage; m < numModalities; m++ {
		out = append(out, m)
	}
	return out
}

func (m Modality) String() string {
	if m < 0 || m >= numModalities {
		return "unknown"
	}
	return modalityNames[m]
}

// ParseModality returns the modality with the given short name, e.g. "l_disp".
func ParseModality(name string) (Modality, error) {
	for m, n := range modalityNames {
		if n == name {
			return Modality(m), nil
		}
	}
	return 0, errors.Errorf("unknown modality %q", name)
}

// Kind returns how the modality is resampled and converted.
func (m Modality) Kind() Kind {
	switch m {
	case Segmentation:
		return LabelKind
	case LeftDisparity:
		return DepthKind
	default:
		return ColorKind
	}
}

// Photometric reports whether brightness jitter applies to the modality.
func (m Modality) Photometric() bool {
	return m.Kind() == ColorKind
}
