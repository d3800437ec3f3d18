package metrics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/drivescene/scapes/logging"
	"github.com/drivescene/scapes/utils"
)

// DepthErrors are the standard monocular depth error measures.
type DepthErrors struct {
	AbsRelative    float64
	SqRelative     float64
	RMSELinear     float64
	RMSELog        float64
	ScaleInvariant float64
	Pixels         int
}

// ComputeDepthErrors compares predicted and target depth over pixels where both are positive.
// All measures are zero when no pixel qualifies.
func ComputeDepthErrors(pred, target []float64) (DepthErrors, error) {
	if len(pred) != len(target) {
		return DepthErrors{}, errors.Errorf("prediction has %d pixels but target has %d", len(pred), len(target))
	}
	var diff, absRel, sqRel, logDiff []float64
	for i, t := range target {
		p := pred[i]
		if t <= 0 || p <= 0 || math.IsInf(t, 0) || math.IsInf(p, 0) {
			continue
		}
		d := p - t
		diff = append(diff, d)
		absRel = append(absRel, math.Abs(d)/t)
		sqRel = append(sqRel, utils.Square(d)/t)
		logDiff = append(logDiff, math.Log(p)-math.Log(t))
	}
	n := float64(len(diff))
	if n == 0 {
		return DepthErrors{}, nil
	}

	logSum := floats.Sum(logDiff)
	logNorm := floats.Norm(logDiff, 2)
	return DepthErrors{
		AbsRelative:    floats.Sum(absRel) / n,
		SqRelative:     floats.Sum(sqRel) / n,
		RMSELinear:     floats.Norm(diff, 2) / math.Sqrt(n),
		RMSELog:        logNorm / math.Sqrt(n),
		ScaleInvariant: logNorm*logNorm/n - logSum*logSum/(n*n),
		Pixels:         len(diff),
	}, nil
}

// DepthMetric tracks loss and depth errors per batch.
type DepthMetric struct {
	*Tracker
}

// NewDepthMetric returns a tracker of depth errors. The store may be nil.
func NewDepthMetric(mode Mode, store *Store, logger logging.Logger) (*DepthMetric, error) {
	tracker, err := NewTracker([]string{
		BatchLoss, BatchScaleInvariant, BatchAbsRelative, BatchSqRelative, BatchRMSELinear, BatchRMSELog,
	}, mode, store, logger)
	if err != nil {
		return nil, err
	}
	return &DepthMetric{Tracker: tracker}, nil
}

// Add scores one batch and records the results.
func (m *DepthMetric) Add(pred, target []float64) (DepthErrors, error) {
	e, err := ComputeDepthErrors(pred, target)
	if err != nil {
		return DepthErrors{}, err
	}
	for name, v := range map[string]float64{
		BatchScaleInvariant: e.ScaleInvariant,
		BatchAbsRelative:    e.AbsRelative,
		BatchSqRelative:     e.SqRelative,
		BatchRMSELinear:     e.RMSELinear,
		BatchRMSELog:        e.RMSELog,
	} {
		if err := m.Record(name, v); err != nil {
			return DepthErrors{}, err
		}
	}
	return e, nil
}

// AddLoss records one batch loss.
func (m *DepthMetric) AddLoss(loss float64) error {
	return m.Record(BatchLoss, loss)
}
