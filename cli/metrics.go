package cli

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/drivescene/scapes/metrics"
	"github.com/drivescene/scapes/utils"
)

// openStore opens an existing metric database. Opening never creates one.
func openStore(c *cli.Context) (*metrics.Store, error) {
	path := c.Path(metricsFlagDB)
	if !utils.FileExists(path) {
		return nil, errors.Errorf("no metric database at %q", path)
	}
	return metrics.OpenStore(c.Context, path, newLogger(c))
}

func selectModes(name string) ([]metrics.Mode, error) {
	if name == "" {
		return []metrics.Mode{metrics.Training, metrics.Validation}, nil
	}
	mode, err := metrics.ParseMode(name)
	if err != nil {
		return nil, err
	}
	return []metrics.Mode{mode}, nil
}

// MetricsShowAction is the corresponding Action for 'metrics show'.
func MetricsShowAction(c *cli.Context) (err error) {
	modes, err := selectModes(c.String(metricsFlagMode))
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, store.Close(c.Context))
	}()

	for _, mode := range modes {
		rendered, err := metrics.SummaryTable(c.Context, store, mode)
		if err != nil {
			return err
		}
		printf(c.App.Writer, "%s", rendered)

		metric := c.String(metricsFlagBest)
		if metric == "" {
			continue
		}
		best, st, err := store.Best(c.Context, mode, metric, c.Bool(metricsFlagLower))
		if err != nil {
			warningf(c.App.Writer, "%v", err)
			continue
		}
		printf(c.App.Writer, "best %s epoch by %s: %d (mean %.4f over %d batches)",
			mode, metric, best.Epoch, st.Mean, st.Count)
	}
	return nil
}

// MetricsPlotAction is the corresponding Action for 'metrics plot'.
func MetricsPlotAction(c *cli.Context) (err error) {
	out := c.Path(metricsFlagOut)
	//nolint:gosec
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, store.Close(c.Context))
	}()

	summaryPath := filepath.Join(out, "summary.png")
	if err := metrics.PlotSummary(c.Context, store, summaryPath); err != nil {
		return errors.Wrap(err, "cannot plot epoch summaries")
	}
	iterationsPath := filepath.Join(out, "iterations.png")
	if err := metrics.PlotIterations(c.Context, store, iterationsPath); err != nil {
		return errors.Wrap(err, "cannot plot batch series")
	}
	printf(c.App.Writer, "wrote %s and %s", summaryPath, iterationsPath)
	return nil
}
