package cityscapes

import (
	"encoding/json"
	"math/rand"
	"os"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/drivescene/scapes/logging"
	"github.com/drivescene/scapes/rimage"
	"github.com/drivescene/scapes/transformpipeline"
)

// modalities maps image subsets onto the pipeline modality they feed.
var modalities = map[Subset]transformpipeline.Modality{
	LeftImages:    transformpipeline.LeftImage,
	Images:        transformpipeline.LeftImage,
	RightImages:   transformpipeline.RightImage,
	LeftSequence:  transformpipeline.LeftSequence,
	RightSequence: transformpipeline.RightSequence,
	Segmentation:  transformpipeline.Segmentation,
	Disparity:     transformpipeline.LeftDisparity,
}

// VehicleState is the ego vehicle record stored alongside every frame.
type VehicleState struct {
	GPSHeading         float64 `json:"gpsHeading"`
	GPSLatitude        float64 `json:"gpsLatitude"`
	GPSLongitude       float64 `json:"gpsLongitude"`
	OutsideTemperature float64 `json:"outsideTemperature"`
	Speed              float64 `json:"speed"`
	YawRate            float64 `json:"yawRate"`
}

// ReadVehicleState reads a vehicle.json file.
func ReadVehicleState(path string) (*VehicleState, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state VehicleState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrapf(err, "cannot parse vehicle state %q", path)
	}
	return &state, nil
}

// Item is one transformed sample.
type Item struct {
	Index  int
	Output *transformpipeline.Output
	Pose   *VehicleState
}

// Dataset loads and transforms the samples of an index.
type Dataset struct {
	index    *Index
	pipeline *transformpipeline.Pipeline
	logger   logging.Logger
}

// NewDataset returns a dataset over index. It is safe for concurrent use.
func NewDataset(index *Index, pipeline *transformpipeline.Pipeline, logger logging.Logger) *Dataset {
	return &Dataset{index: index, pipeline: pipeline, logger: logger}
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return d.index.Len()
}

// Index returns the dataset's index.
func (d *Dataset) Index() *Index {
	return d.index
}

// Pipeline returns the transform applied by Get.
func (d *Dataset) Pipeline() *transformpipeline.Pipeline {
	return d.pipeline
}

// Load decodes the raw files of sample idx without transforming them.
func (d *Dataset) Load(idx int) (*transformpipeline.Sample, *VehicleState, error) {
	if idx < 0 || idx >= d.index.Len() {
		return nil, nil, errors.Errorf("sample index %d out of range [0, %d)", idx, d.index.Len())
	}
	entry := d.index.Entries[idx]

	s := transformpipeline.NewSample()
	var pose *VehicleState
	for _, subset := range d.index.Subsets {
		path := entry.Paths[subset]
		switch subset {
		case Camera:
			//nolint:gosec
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "cannot read camera %q", path)
			}
			s.SetCamera(raw)
		case Pose:
			state, err := ReadVehicleState(path)
			if err != nil {
				return nil, nil, err
			}
			pose = state
		default:
			if err := loadImage(s, modalities[subset], path); err != nil {
				return nil, nil, err
			}
		}
	}
	return s, pose, nil
}

func loadImage(s *transformpipeline.Sample, m transformpipeline.Modality, path string) error {
	img, err := imaging.Open(path)
	if err != nil {
		return errors.Wrapf(err, "cannot decode %s %q", m, path)
	}
	if m.Kind() == transformpipeline.ColorKind {
		return s.SetImage(m, img)
	}
	return s.SetPlane(m, rimage.PlaneFromImage(img))
}

// Get loads sample idx and transforms it at the given scale with randomness from rng.
func (d *Dataset) Get(idx int, scale float64, rng *rand.Rand) (*Item, error) {
	s, pose, err := d.Load(idx)
	if err != nil {
		return nil, err
	}
	out, err := d.pipeline.Transform(s, scale, rng)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot transform %q", d.index.Entries[idx].Left())
	}
	return &Item{Index: idx, Output: out, Pose: pose}, nil
}
