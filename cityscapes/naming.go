// Package cityscapes finds, loads and copies samples laid out with the Cityscapes directory and
// file naming conventions.
package cityscapes

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImageExt is the extension of every image file in the dataset.
const ImageExt = ".png"

const (
	leftTag    = "leftImg8bit"
	rightTag   = "rightImg8bit"
	labelTag   = "gtFine_labelIds"
	dispTag    = "disparity"
	cameraTag  = "camera"
	vehicleTag = "vehicle"
	jsonExt    = ".json"

	frameDigits = 6
)

// Subset names one directory tree of the dataset.
type Subset string

// The subsets a dataset may be assembled from.
const (
	LeftImages    Subset = "left_images"
	Images        Subset = "images"
	RightImages   Subset = "right_images"
	Segmentation  Subset = "seg"
	Disparity     Subset = "disparity"
	LeftSequence  Subset = "left_seq"
	RightSequence Subset = "right_seq"
	Camera        Subset = "cam"
	Pose          Subset = "pose"
)

var subsetOrder = []Subset{
	LeftImages, Images, RightImages, Segmentation, Disparity, LeftSequence, RightSequence, Camera, Pose,
}

// Short names used by the copy tool.
var subsetAliases = map[string]Subset{
	"l_img": LeftImages,
	"r_img": RightImages,
	"disp":  Disparity,
	"l_seq": LeftSequence,
	"r_seq": RightSequence,
}

// ParseSubset returns the subset for a directory key. Copy tool aliases such as "l_img" are
// accepted too.
func ParseSubset(key string) (Subset, error) {
	if s, ok := subsetAliases[key]; ok {
		return s, nil
	}
	for _, s := range subsetOrder {
		if string(s) == key {
			return s, nil
		}
	}
	return "", errors.Errorf("unknown subset %q", key)
}

// IsLeft reports whether the subset holds the left images every sample is keyed on.
func (s Subset) IsLeft() bool {
	return s == LeftImages || s == Images
}

func (s Subset) rank() int {
	for i, name := range subsetOrder {
		if name == s {
			return i
		}
	}
	return -1
}

func sortSubsets(subsets []Subset) {
	sort.Slice(subsets, func(i, j int) bool { return subsets[i].rank() < subsets[j].rank() })
}

// FrameName is a parsed left image file name of the form city_sequence_frame_leftImg8bit.png.
type FrameName struct {
	City     string
	Sequence string
	Frame    int
}

// ParseFrameName parses a left image file name.
func ParseFrameName(filename string) (FrameName, error) {
	stem, ok := strings.CutSuffix(filename, "_"+leftTag+ImageExt)
	if !ok {
		return FrameName{}, errors.Errorf("%q is not a %s%s file", filename, leftTag, ImageExt)
	}
	parts := strings.Split(stem, "_")
	if len(parts) != 3 {
		return FrameName{}, errors.Errorf("%q does not follow city_sequence_frame naming", filename)
	}
	frame, err := strconv.Atoi(parts[2])
	if err != nil || frame < 0 {
		return FrameName{}, errors.Errorf("%q has an invalid frame number %q", filename, parts[2])
	}
	return FrameName{City: parts[0], Sequence: parts[1], Frame: frame}, nil
}

func (n FrameName) stem(frame int) string {
	return fmt.Sprintf("%s_%s_%0*d", n.City, n.Sequence, frameDigits, frame)
}

// Counterpart returns the file name holding the given subset's data for this frame. Sequence
// subsets refer to the following frame.
func (n FrameName) Counterpart(s Subset) (string, error) {
	switch s {
	case LeftImages, Images:
		return n.stem(n.Frame) + "_" + leftTag + ImageExt, nil
	case RightImages:
		return n.stem(n.Frame) + "_" + rightTag + ImageExt, nil
	case Segmentation:
		return n.stem(n.Frame) + "_" + labelTag + ImageExt, nil
	case Disparity:
		return n.stem(n.Frame) + "_" + dispTag + ImageExt, nil
	case LeftSequence:
		return n.stem(n.Frame+1) + "_" + leftTag + ImageExt, nil
	case RightSequence:
		return n.stem(n.Frame+1) + "_" + rightTag + ImageExt, nil
	case Camera:
		return n.stem(n.Frame) + "_" + cameraTag + jsonExt, nil
	case Pose:
		return n.stem(n.Frame) + "_" + vehicleTag + jsonExt, nil
	default:
		return "", errors.Errorf("unknown subset %q", s)
	}
}

// String returns the left image file name.
func (n FrameName) String() string {
	name, _ := n.Counterpart(LeftImages)
	return name
}
