// Package metrics computes per batch segmentation and depth scores, tracks them per epoch and
// persists them to a sqlite store.
package metrics

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Mode is the split a series was recorded on.
type Mode string

// The recorded splits.
const (
	Training   Mode = "training"
	Validation Mode = "validation"
)

// ParseMode returns the mode with the given name.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case Training, Validation:
		return Mode(name), nil
	default:
		return "", errors.Errorf("unknown mode %q, expected %q or %q", name, Training, Validation)
	}
}

// Batch series names.
const (
	BatchLoss           = "Batch_Loss"
	BatchPixelAccuracy  = "Batch_PixelAcc"
	BatchMeanIoU        = "Batch_mIoU"
	BatchAbsRelative    = "Batch_Absolute_Relative"
	BatchSqRelative     = "Batch_Squared_Relative"
	BatchRMSELinear     = "Batch_RMSE_Linear"
	BatchRMSELog        = "Batch_RMSE_Log"
	BatchScaleInvariant = "Batch_Invariant"
)

// Stat summarizes one batch series.
type Stat struct {
	Metric string
	Mean   float64
	Min    float64
	Max    float64
	Count  int
}

// Summary holds one Stat per metric in metric order.
type Summary []Stat

// Get returns the stat for a metric.
func (s Summary) Get(metric string) (Stat, bool) {
	for _, st := range s {
		if st.Metric == metric {
			return st, true
		}
	}
	return Stat{}, false
}

// Summarize reduces every named series. Empty series get a NaN mean.
func Summarize(names []string, series map[string][]float64) (Summary, error) {
	out := make(Summary, 0, len(names))
	for _, name := range names {
		data := stats.Float64Data(series[name])
		if data.Len() == 0 {
			out = append(out, Stat{Metric: name, Mean: math.NaN(), Min: math.NaN(), Max: math.NaN()})
			continue
		}
		mean, err := data.Mean()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot summarize %s", name)
		}
		lo, err := data.Min()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot summarize %s", name)
		}
		hi, err := data.Max()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot summarize %s", name)
		}
		out = append(out, Stat{Metric: name, Mean: mean, Min: lo, Max: hi, Count: data.Len()})
	}
	return out, nil
}
