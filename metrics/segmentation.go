package metrics

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/drivescene/scapes/classes"
	"github.com/drivescene/scapes/logging"
)

// SegmentationScores returns the pixel accuracy and mean intersection over union of a predicted
// class map against its target. Target pixels outside [0, numClasses), such as the ignore
// index, are not scored. The mean runs over classes present in either map.
func SegmentationScores(pred, target []int64, numClasses int) (pixelAcc, meanIoU float64, err error) {
	if len(pred) != len(target) {
		return 0, 0, errors.Errorf("prediction has %d pixels but target has %d", len(pred), len(target))
	}
	if numClasses <= 0 {
		return 0, 0, errors.Errorf("class count must be positive, got %d", numClasses)
	}

	intersection := make([]float64, numClasses)
	predArea := make([]float64, numClasses)
	targetArea := make([]float64, numClasses)
	for i, t := range target {
		if t < 0 || t >= int64(numClasses) {
			continue
		}
		targetArea[t]++
		p := pred[i]
		if p < 0 || p >= int64(numClasses) {
			continue
		}
		predArea[p]++
		if p == t {
			intersection[t]++
		}
	}

	scored := floats.Sum(targetArea)
	if scored == 0 {
		return 0, 0, nil
	}
	correct := floats.Sum(intersection)

	var iouSum float64
	var present int
	for c := 0; c < numClasses; c++ {
		union := predArea[c] + targetArea[c] - intersection[c]
		if union == 0 {
			continue
		}
		iouSum += intersection[c] / union
		present++
	}
	return correct / scored, iouSum / float64(present), nil
}

// SegmentationMetric tracks loss, pixel accuracy and mIoU per batch.
type SegmentationMetric struct {
	*Tracker
	numClasses int
}

// NewSegmentationMetric returns a tracker of segmentation scores. The store may be nil.
func NewSegmentationMetric(numClasses int, mode Mode, store *Store, logger logging.Logger) (*SegmentationMetric, error) {
	if numClasses <= 0 {
		numClasses = classes.NumClasses
	}
	tracker, err := NewTracker([]string{BatchLoss, BatchPixelAccuracy, BatchMeanIoU}, mode, store, logger)
	if err != nil {
		return nil, err
	}
	return &SegmentationMetric{Tracker: tracker, numClasses: numClasses}, nil
}

// Add scores one batch and records the results.
func (m *SegmentationMetric) Add(pred, target []int64) (pixelAcc, meanIoU float64, err error) {
	pixelAcc, meanIoU, err = SegmentationScores(pred, target, m.numClasses)
	if err != nil {
		return 0, 0, err
	}
	if err := m.Record(BatchPixelAccuracy, pixelAcc); err != nil {
		return 0, 0, err
	}
	if err := m.Record(BatchMeanIoU, meanIoU); err != nil {
		return 0, 0, err
	}
	return pixelAcc, meanIoU, nil
}

// AddLoss records one batch loss.
func (m *SegmentationMetric) AddLoss(loss float64) error {
	return m.Record(BatchLoss, loss)
}
