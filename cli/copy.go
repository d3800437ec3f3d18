package cli

import (
	"strings"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/drivescene/scapes/cityscapes"
)

// parseSubsetFlags turns KEY=DIR pairs into subset directories relative to a dataset root.
func parseSubsetFlags(pairs []string) (cityscapes.Directories, error) {
	dirs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, dir, ok := strings.Cut(pair, "=")
		if !ok || key == "" || dir == "" {
			return nil, errors.Errorf("subset %q is not of the form KEY=DIR", pair)
		}
		if _, dup := dirs[key]; dup {
			return nil, errors.Errorf("subset %q given more than once", key)
		}
		dirs[key] = dir
	}
	return cityscapes.NewDirectories("", dirs)
}

// CopyAction is the corresponding Action for 'copy'.
func CopyAction(c *cli.Context) error {
	subsets, err := parseSubsetFlags(c.StringSlice(copyFlagSubset))
	if err != nil {
		return err
	}
	stats, err := cityscapes.CopySubsets(
		c.Context,
		c.Path(copyFlagSrc),
		subsets,
		c.Path(copyFlagDst),
		c.Int(copyFlagWorkers),
		newLogger(c),
	)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "copied %d files (%s), %d already present, %d missing",
		stats.Copied, units.HumanSize(float64(stats.Bytes)), stats.Existing, stats.Missing)
	if stats.Missing > 0 {
		warningf(c.App.Writer, "%d files had no source to copy from", stats.Missing)
	}
	return nil
}
