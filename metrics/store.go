package metrics

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	// sqlite driver.
	_ "modernc.org/sqlite"

	"github.com/drivescene/scapes/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS epochs (
	mode   TEXT    NOT NULL,
	epoch  INTEGER NOT NULL,
	cached INTEGER NOT NULL,
	run_id TEXT    NOT NULL,
	PRIMARY KEY (mode, epoch)
);
CREATE TABLE IF NOT EXISTS series (
	mode      TEXT    NOT NULL,
	epoch     INTEGER NOT NULL,
	metric    TEXT    NOT NULL,
	iteration INTEGER NOT NULL,
	value     REAL,
	PRIMARY KEY (mode, epoch, metric, iteration)
);
CREATE TABLE IF NOT EXISTS summaries (
	mode   TEXT    NOT NULL,
	epoch  INTEGER NOT NULL,
	metric TEXT    NOT NULL,
	ord    INTEGER NOT NULL,
	mean   REAL,
	min    REAL,
	max    REAL,
	count  INTEGER NOT NULL,
	PRIMARY KEY (mode, epoch, metric)
);`

// EpochSummary is the summary of one stored epoch.
type EpochSummary struct {
	Epoch   int
	Summary Summary
}

// Store persists epochs of batch series in a sqlite database. Epochs are numbered from 1 per
// mode, cached ones included.
type Store struct {
	db     *sql.DB
	runID  string
	logger logging.Logger
}

// OpenStore opens or creates the database at path. ":memory:" gives a private in memory store.
func OpenStore(ctx context.Context, path string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open metric store %q", path)
	}
	// A single connection keeps in memory databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "cannot create metric schema"), db.Close())
	}
	s := &Store{db: db, runID: uuid.NewString(), logger: logger}
	if _, err := db.ExecContext(ctx, `INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		s.runID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "cannot register run"), db.Close())
	}
	logger.Debugw("opened metric store", "path", path, "run", s.runID)
	return s, nil
}

// RunID identifies this session's writes.
func (s *Store) RunID() string {
	return s.runID
}

// Close discards this run's cache and closes the database.
func (s *Store) Close(ctx context.Context) error {
	return multierr.Combine(s.DiscardCache(ctx), s.db.Close())
}

// Len returns the number of epochs recorded for mode, cached ones included.
func (s *Store) Len(ctx context.Context, mode Mode) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM epochs WHERE mode = ?`, string(mode)).Scan(&n)
	return n, err
}

// SaveEpoch stores the series of one epoch as the next epoch of mode and returns its number.
func (s *Store) SaveEpoch(
	ctx context.Context,
	mode Mode,
	names []string,
	series map[string][]float64,
	summary Summary,
	cached bool,
) (epoch int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, tx.Rollback())
		}
	}()

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(epoch), 0) + 1 FROM epochs WHERE mode = ?`, string(mode)).Scan(&epoch); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO epochs (mode, epoch, cached, run_id) VALUES (?, ?, ?, ?)`,
		string(mode), epoch, boolToInt(cached), s.runID); err != nil {
		return 0, err
	}
	for _, name := range names {
		for i, v := range series[name] {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO series (mode, epoch, metric, iteration, value) VALUES (?, ?, ?, ?, ?)`,
				string(mode), epoch, name, i, v); err != nil {
				return 0, err
			}
		}
	}
	for i, st := range summary {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO summaries (mode, epoch, metric, ord, mean, min, max, count) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(mode), epoch, st.Metric, i, nullable(st.Mean), nullable(st.Min), nullable(st.Max), st.Count); err != nil {
			return 0, err
		}
	}
	return epoch, tx.Commit()
}

// FlushCache makes every epoch cached by this run permanent.
func (s *Store) FlushCache(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `UPDATE epochs SET cached = 0 WHERE cached != 0 AND run_id = ?`, s.runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Debugw("flushed cached epochs", "count", n)
	}
	return nil
}

// DiscardCache deletes every epoch cached by this run.
func (s *Store) DiscardCache(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, tx.Rollback())
		}
	}()
	for _, table := range []string{"series", "summaries"} {
		//nolint:gosec
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE (mode, epoch) IN
			(SELECT mode, epoch FROM epochs WHERE cached != 0 AND run_id = ?)`, s.runID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM epochs WHERE cached != 0 AND run_id = ?`, s.runID); err != nil {
		return err
	}
	return tx.Commit()
}

// Metrics lists the series names stored for mode, in recording order.
func (s *Store) Metrics(ctx context.Context, mode Mode) (names []string, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metric FROM summaries WHERE mode = ? GROUP BY metric ORDER BY MIN(ord), metric`, string(mode))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, rows.Close())
	}()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// LoadEpoch returns the series of one epoch.
func (s *Store) LoadEpoch(ctx context.Context, mode Mode, epoch int) (out map[string][]float64, err error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM epochs WHERE mode = ? AND epoch = ?`,
		string(mode), epoch).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, errors.Errorf("no %s epoch %d", mode, epoch)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT metric, value FROM series WHERE mode = ? AND epoch = ? ORDER BY metric, iteration`, string(mode), epoch)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, rows.Close())
	}()
	out = make(map[string][]float64)
	for rows.Next() {
		var name string
		var v sql.NullFloat64
		if err := rows.Scan(&name, &v); err != nil {
			return nil, err
		}
		out[name] = append(out[name], fromNullable(v))
	}
	return out, rows.Err()
}

// Iterations concatenates the series of every permanent epoch of mode.
func (s *Store) Iterations(ctx context.Context, mode Mode) (out map[string][]float64, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.metric, s.value FROM series s
		JOIN epochs e ON e.mode = s.mode AND e.epoch = s.epoch
		WHERE s.mode = ? AND e.cached = 0
		ORDER BY s.metric, s.epoch, s.iteration`, string(mode))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, rows.Close())
	}()
	out = make(map[string][]float64)
	for rows.Next() {
		var name string
		var v sql.NullFloat64
		if err := rows.Scan(&name, &v); err != nil {
			return nil, err
		}
		out[name] = append(out[name], fromNullable(v))
	}
	return out, rows.Err()
}

// Summaries returns the summary of every permanent epoch of mode, in epoch order.
func (s *Store) Summaries(ctx context.Context, mode Mode) (out []EpochSummary, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.epoch, m.metric, m.mean, m.min, m.max, m.count FROM summaries m
		JOIN epochs e ON e.mode = m.mode AND e.epoch = m.epoch
		WHERE m.mode = ? AND e.cached = 0
		ORDER BY m.epoch, m.ord`, string(mode))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, rows.Close())
	}()
	for rows.Next() {
		var epoch, count int
		var metric string
		var mean, lo, hi sql.NullFloat64
		if err := rows.Scan(&epoch, &metric, &mean, &lo, &hi, &count); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].Epoch != epoch {
			out = append(out, EpochSummary{Epoch: epoch})
		}
		last := &out[len(out)-1]
		last.Summary = append(last.Summary, Stat{
			Metric: metric, Mean: fromNullable(mean), Min: fromNullable(lo), Max: fromNullable(hi), Count: count,
		})
	}
	return out, rows.Err()
}

// Best returns the permanent epoch of mode with the best mean of metric.
func (s *Store) Best(ctx context.Context, mode Mode, metric string, lowerIsBetter bool) (EpochSummary, Stat, error) {
	summaries, err := s.Summaries(ctx, mode)
	if err != nil {
		return EpochSummary{}, Stat{}, err
	}
	var best EpochSummary
	var bestStat Stat
	found := false
	for _, es := range summaries {
		st, ok := es.Summary.Get(metric)
		if !ok || math.IsNaN(st.Mean) {
			continue
		}
		better := st.Mean > bestStat.Mean
		if lowerIsBetter {
			better = st.Mean < bestStat.Mean
		}
		if !found || better {
			best, bestStat, found = es, st, true
		}
	}
	if !found {
		return EpochSummary{}, Stat{}, errors.Errorf("no %s epoch records %q", mode, metric)
	}
	return best, bestStat, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
