package dataloader

import (
	"math/rand"

	"github.com/pkg/errors"
)

// BatchPlan is one batch of sample indices sharing one scale factor.
type BatchPlan struct {
	Indices []int
	Scale   float64
}

// BatchSampler splits Size samples into batches. When ScaleRange is set every batch draws its
// scale uniformly from [ScaleRange[0], ScaleRange[1]); otherwise the scale is 1.
type BatchSampler struct {
	Size       int
	BatchSize  int
	DropLast   bool
	Shuffle    bool
	ScaleRange []float64
}

// Validate ensures the sampler can produce batches.
func (s BatchSampler) Validate() error {
	if s.Size < 0 {
		return errors.Errorf("negative dataset size %d", s.Size)
	}
	if s.BatchSize <= 0 {
		return errors.Errorf("batch size must be positive, got %d", s.BatchSize)
	}
	if s.ScaleRange != nil {
		if len(s.ScaleRange) != 2 || s.ScaleRange[0] <= 0 || s.ScaleRange[0] > s.ScaleRange[1] {
			return errors.Errorf("scale range %v must be [lo, hi] with 0 < lo <= hi", s.ScaleRange)
		}
	}
	return nil
}

// Len returns the number of batches per epoch.
func (s BatchSampler) Len() int {
	if s.BatchSize <= 0 {
		return 0
	}
	if s.DropLast {
		return s.Size / s.BatchSize
	}
	return (s.Size + s.BatchSize - 1) / s.BatchSize
}

// Plan returns the batches of one epoch. The permutation is drawn first, then one scale per
// batch in batch order.
func (s BatchSampler) Plan(rng *rand.Rand) ([]BatchPlan, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if rng == nil && (s.Shuffle || s.ScaleRange != nil) {
		return nil, errors.New("shuffling and random scales need a random source")
	}

	order := make([]int, s.Size)
	for i := range order {
		order[i] = i
	}
	if s.Shuffle {
		order = rng.Perm(s.Size)
	}

	plans := make([]BatchPlan, 0, s.Len())
	for start := 0; start < s.Size; start += s.BatchSize {
		end := min(start+s.BatchSize, s.Size)
		if end-start < s.BatchSize && s.DropLast {
			break
		}
		plan := BatchPlan{Indices: order[start:end], Scale: 1}
		if s.ScaleRange != nil {
			lo, hi := s.ScaleRange[0], s.ScaleRange[1]
			plan.Scale = lo + (hi-lo)*rng.Float64()
		}
		plans = append(plans, plan)
	}
	return plans, nil
}
