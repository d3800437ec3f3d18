// Package dataloader loads batches of samples concurrently with reproducible randomness.
package dataloader

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/drivescene/scapes/logging"
	"github.com/drivescene/scapes/utils"
)

// Source is an indexable collection of samples. Get must be safe for concurrent use.
type Source[T any] interface {
	Len() int
	Get(idx int, scale float64, rng *rand.Rand) (T, error)
}

// Batch is one loaded batch. Items follow the order of Indices; skipped items are absent from
// both.
type Batch[T any] struct {
	Epoch   int
	Number  int
	Scale   float64
	Indices []int
	Items   []T
}

// ErrorHandler decides what happens when a sample fails to load. Returning nil skips the
// sample; returning an error aborts the epoch.
type ErrorHandler func(idx int, err error) error

// AbortOnError is the default ErrorHandler.
func AbortOnError(idx int, err error) error {
	return errors.Wrapf(err, "cannot load sample %d", idx)
}

type options struct {
	workers int
	seed    int64
	onError ErrorHandler
}

// Option configures a Loader.
type Option func(*options)

// WithWorkers sets the number of samples loaded at once.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithSeed sets the seed every random source is derived from.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithErrorHandler sets how failed samples are handled.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.onError = h
	}
}

// Loader iterates over a source in batches.
type Loader[T any] struct {
	source  Source[T]
	sampler BatchSampler
	opts    options
	logger  logging.Logger
}

// New returns a loader over source. The sampler's Size is taken from the source.
func New[T any](source Source[T], sampler BatchSampler, logger logging.Logger, opts ...Option) (*Loader[T], error) {
	o := options{workers: utils.ParallelFactor, onError: AbortOnError}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		return nil, errors.Errorf("worker count must be positive, got %d", o.workers)
	}
	if o.onError == nil {
		o.onError = AbortOnError
	}
	sampler.Size = source.Len()
	if err := sampler.Validate(); err != nil {
		return nil, err
	}
	return &Loader[T]{source: source, sampler: sampler, opts: o, logger: logger}, nil
}

// Len returns the number of batches per epoch.
func (l *Loader[T]) Len() int {
	return l.sampler.Len()
}

// Epoch loads every batch of the given epoch and passes it to fn in order. Each sample gets its
// own random source derived from the seed, the epoch and the sample index, so the output does
// not depend on the number of workers.
func (l *Loader[T]) Epoch(ctx context.Context, epoch int, fn func(Batch[T]) error) error {
	plans, err := l.sampler.Plan(rand.New(rand.NewSource(DeriveSeed(l.opts.seed, epoch, -1))))
	if err != nil {
		return err
	}
	l.logger.Debugw("starting epoch", "epoch", epoch, "batches", len(plans), "workers", l.opts.workers)

	for n, plan := range plans {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := l.load(ctx, epoch, n, plan)
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader[T]) load(ctx context.Context, epoch, number int, plan BatchPlan) (Batch[T], error) {
	items := make([]T, len(plan.Indices))
	loaded := make([]bool, len(plan.Indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.workers)
	for i, idx := range plan.Indices {
		i, idx := i, idx
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(DeriveSeed(l.opts.seed, epoch, idx)))
			item, err := l.source.Get(idx, plan.Scale, rng)
			if err != nil {
				if err := l.opts.onError(idx, err); err != nil {
					return err
				}
				l.logger.Warnw("skipping sample", "index", idx, "error", err)
				return nil
			}
			items[i] = item
			loaded[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch[T]{}, err
	}

	batch := Batch[T]{Epoch: epoch, Number: number, Scale: plan.Scale}
	for i, ok := range loaded {
		if ok {
			batch.Indices = append(batch.Indices, plan.Indices[i])
			batch.Items = append(batch.Items, items[i])
		}
	}
	return batch, nil
}

// DeriveSeed mixes a base seed, an epoch and a sample index into an independent seed. Index -1
// is used for the epoch's batch plan.
func DeriveSeed(seed int64, epoch, index int) int64 {
	h := splitmix(uint64(seed))
	h = splitmix(h ^ uint64(int64(epoch)))
	h = splitmix(h ^ uint64(int64(index)))
	return int64(h >> 1)
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
