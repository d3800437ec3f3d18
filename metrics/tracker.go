package metrics

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/drivescene/scapes/logging"
)

// Tracker collects named batch series for the current epoch. Epochs that are started over
// without being saved are cached in the store, and are kept only if a later epoch is saved.
type Tracker struct {
	mu     sync.Mutex
	names  []string
	mode   Mode
	series map[string][]float64
	store  *Store
	logger logging.Logger
}

// NewTracker returns a tracker of the named series. The store may be nil, in which case
// nothing is persisted.
func NewTracker(names []string, mode Mode, store *Store, logger logging.Logger) (*Tracker, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if len(lo.Uniq(names)) != len(names) {
		return nil, errors.Errorf("duplicate metric names in %v", names)
	}
	t := &Tracker{names: names, mode: mode, store: store, logger: logger}
	t.reset()
	return t, nil
}

func (t *Tracker) reset() {
	t.series = make(map[string][]float64, len(t.names))
	for _, name := range t.names {
		t.series[name] = nil
	}
}

// Names returns the tracked series names.
func (t *Tracker) Names() []string {
	return append([]string(nil), t.names...)
}

// Mode returns the split being recorded.
func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Record appends a value to a series.
func (t *Tracker) Record(name string, v float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.series[name]; !ok {
		return errors.Errorf("unknown metric %q", name)
	}
	t.series[name] = append(t.series[name], v)
	return nil
}

// Series returns a copy of a series of the current epoch.
func (t *Tracker) Series(name string) []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]float64(nil), t.series[name]...)
}

// Summary reduces the current epoch's series.
func (t *Tracker) Summary() (Summary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summarize(t.names, t.series)
}

func (t *Tracker) empty() bool {
	return !lo.SomeBy(lo.Values(t.series), func(s []float64) bool { return len(s) > 0 })
}

// NewEpoch starts recording a new epoch in the given mode. Unsaved data of the current epoch is
// cached first.
func (t *Tracker) NewEpoch(ctx context.Context, mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.empty() && t.store != nil {
		epoch, err := t.persist(ctx, true)
		if err != nil {
			return err
		}
		t.logger.Debugw("cached unsaved epoch", "mode", t.mode, "epoch", epoch)
	}
	t.mode = mode
	t.reset()
	return nil
}

// SaveEpoch moves any cached epochs into permanent storage, then stores the current series as
// the next epoch and clears them. It returns the epoch number.
func (t *Tracker) SaveEpoch(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.store == nil {
		return 0, errors.New("no metric store configured")
	}
	if err := t.store.FlushCache(ctx); err != nil {
		return 0, err
	}
	epoch, err := t.persist(ctx, false)
	if err != nil {
		return 0, err
	}
	t.logger.Infow("saved epoch", "mode", t.mode, "epoch", epoch)
	t.reset()
	return epoch, nil
}

func (t *Tracker) persist(ctx context.Context, cached bool) (int, error) {
	summary, err := Summarize(t.names, t.series)
	if err != nil {
		return 0, err
	}
	return t.store.SaveEpoch(ctx, t.mode, t.names, t.series, summary, cached)
}

// Close discards cached epochs that were never followed by a saved one.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.store == nil {
		return nil
	}
	return t.store.DiscardCache(ctx)
}
