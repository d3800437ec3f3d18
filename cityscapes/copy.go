package cityscapes

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/drivescene/scapes/logging"
	"github.com/drivescene/scapes/utils"
)

// CopyStats counts the outcome of CopySubsets.
type CopyStats struct {
	Copied   int64
	Existing int64
	Missing  int64
	// Bytes is the total size of the copied files.
	Bytes int64
}

// CopySubsets copies the files of the given subsets, each a directory relative to src, into
// the same relative directories under dst. The left image subset is the reference every other
// subset is matched against and must be present. Missing source files are logged and skipped,
// existing destination files are left alone.
func CopySubsets(
	ctx context.Context,
	src string,
	subsets Directories,
	dst string,
	workers int,
	logger logging.Logger,
) (CopyStats, error) {
	left, err := subsets.Left()
	if err != nil {
		return CopyStats{}, err
	}
	if workers <= 0 {
		workers = utils.ParallelFactor
	}
	logger.Infow("copying subsets", "subsets", subsets.Subsets(), "src", src, "dst", dst)

	var copied, existing, missing, bytes atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	leftRoot := filepath.Join(src, subsets[left])
	walkErr := filepath.WalkDir(leftRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ImageExt) {
			return nil
		}
		name, err := ParseFrameName(d.Name())
		if err != nil {
			logger.Debugw("ignoring file", "path", path, "error", err)
			return nil
		}
		folder := filepath.Base(filepath.Dir(path))
		for _, s := range subsets.Subsets() {
			file, err := name.Counterpart(s)
			if err != nil {
				return err
			}
			rel := filepath.Join(subsets[s], folder, file)
			from, to := filepath.Join(src, rel), filepath.Join(dst, rel)
			g.Go(func() error {
				switch {
				case !utils.FileExists(from):
					logger.Warnw("no corresponding file", "left", path, "missing", from)
					missing.Add(1)
				case utils.FileExists(to):
					existing.Add(1)
				default:
					n, err := utils.CopyFile(from, to)
					if err != nil {
						return errors.Wrapf(err, "cannot copy %q", from)
					}
					copied.Add(1)
					bytes.Add(n)
				}
				return nil
			})
		}
		return nil
	})
	err = g.Wait()
	stats := CopyStats{
		Copied:   copied.Load(),
		Existing: existing.Load(),
		Missing:  missing.Load(),
		Bytes:    bytes.Load(),
	}
	if err != nil {
		return stats, err
	}
	if walkErr != nil {
		return stats, errors.Wrapf(walkErr, "cannot walk %q", leftRoot)
	}
	logger.Infow("copied subsets",
		"copied", stats.Copied, "existing", stats.Existing, "missing", stats.Missing, "bytes", stats.Bytes)
	return stats, nil
}
