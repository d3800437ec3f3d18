package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/drivescene/scapes/cityscapes"
)

const (
	trainingSplit   = "training"
	validationSplit = "validation"
)

type split struct {
	name    string
	subdirs map[string]string
}

// selectSplits returns the configured splits matching name, or both when name is empty.
func selectSplits(cfg *cityscapes.Config, name string) ([]split, error) {
	all := []split{{trainingSplit, cfg.TrainSubdirs}, {validationSplit, cfg.ValSubdirs}}
	switch name {
	case "":
		return all, nil
	case trainingSplit:
		return all[:1], nil
	case validationSplit:
		return all[1:], nil
	default:
		return nil, errors.Errorf("unknown split %q, expected %q or %q", name, trainingSplit, validationSplit)
	}
}

// DiscoverAction is the corresponding Action for 'discover'.
func DiscoverAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := cityscapes.ReadConfigFile(c.String(configFlag))
	if err != nil {
		return err
	}
	splits, err := selectSplits(cfg, c.String(splitFlag))
	if err != nil {
		return err
	}

	for _, sp := range splits {
		dirs, err := cityscapes.NewDirectories(cfg.RootDir, sp.subdirs)
		if err != nil {
			return errors.Wrap(err, sp.name)
		}
		index, err := cityscapes.Discover(dirs, logger.Sublogger(sp.name))
		if err != nil {
			return errors.Wrap(err, sp.name)
		}
		skipped := multierr.Errors(index.Skipped)

		tw := table.NewWriter()
		tw.SetTitle("%s: %d samples, %d skipped", sp.name, index.Len(), len(skipped))
		tw.Style().Format.Header = text.FormatDefault
		tw.AppendHeader(table.Row{"Subset", "Directory", "Files"})
		counts := index.Counts()
		for _, s := range index.Subsets {
			tw.AppendRow(table.Row{s, dirs[s], counts[s]})
		}
		printf(c.App.Writer, "%s", tw.Render())

		if c.Bool(verboseFlag) {
			for _, err := range skipped {
				warningf(c.App.Writer, "%v", err)
			}
		}
	}
	return nil
}
