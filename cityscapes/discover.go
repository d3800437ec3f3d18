package cityscapes

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/drivescene/scapes/logging"
	"github.com/drivescene/scapes/utils"
)

// Directories maps each subset to the root of its directory tree. Every tree holds one folder
// per city.
type Directories map[Subset]string

// NewDirectories parses string keys into a Directories, joining every directory onto root when
// root is not empty.
func NewDirectories(root string, dirs map[string]string) (Directories, error) {
	out := make(Directories, len(dirs))
	for key, dir := range dirs {
		s, err := ParseSubset(key)
		if err != nil {
			return nil, err
		}
		if _, ok := out[s]; ok {
			return nil, errors.Errorf("subset %q given twice", s)
		}
		if root != "" {
			dir = filepath.Join(root, dir)
		}
		out[s] = dir
	}
	return out, nil
}

// Left returns the subset holding left images.
func (d Directories) Left() (Subset, error) {
	_, hasLeft := d[LeftImages]
	_, hasImages := d[Images]
	switch {
	case hasLeft && hasImages:
		return "", errors.Errorf("only one of %q and %q may be given", LeftImages, Images)
	case hasLeft:
		return LeftImages, nil
	case hasImages:
		return Images, nil
	default:
		return "", errors.Errorf("no %q or %q directory given", LeftImages, Images)
	}
}

// Subsets lists the subsets present in a fixed order.
func (d Directories) Subsets() []Subset {
	keys := lo.Keys(d)
	sortSubsets(keys)
	return keys
}

// Entry holds the paths of one sample's files, keyed by subset.
type Entry struct {
	Name  FrameName
	Paths map[Subset]string
}

// Left returns the path of the sample's left image.
func (e Entry) Left() string {
	if p, ok := e.Paths[LeftImages]; ok {
		return p
	}
	return e.Paths[Images]
}

// Index is the list of complete samples found on disk.
type Index struct {
	Subsets []Subset
	Entries []Entry
	// Skipped holds one error per sample dropped for a missing counterpart.
	Skipped error
}

// Len returns the number of samples.
func (idx *Index) Len() int {
	return len(idx.Entries)
}

// Select returns an index holding only the given entries, in the given order.
func (idx *Index) Select(ids []int) (*Index, error) {
	out := &Index{Subsets: idx.Subsets, Skipped: idx.Skipped, Entries: make([]Entry, 0, len(ids))}
	for _, id := range ids {
		if id < 0 || id >= len(idx.Entries) {
			return nil, errors.Errorf("sample id %d out of range [0, %d)", id, len(idx.Entries))
		}
		out.Entries = append(out.Entries, idx.Entries[id])
	}
	return out, nil
}

// Counts returns the number of files per subset.
func (idx *Index) Counts() map[Subset]int {
	counts := make(map[Subset]int, len(idx.Subsets))
	for _, e := range idx.Entries {
		for s := range e.Paths {
			counts[s]++
		}
	}
	return counts
}

type discoverOptions struct {
	ids []int
}

// DiscoverOption configures Discover.
type DiscoverOption func(*discoverOptions)

// WithIDs keeps only the samples at the given positions of the full, lexically ordered index.
func WithIDs(ids []int) DiscoverOption {
	return func(o *discoverOptions) {
		o.ids = ids
	}
}

// Discover walks the left image tree in lexical order and keeps every sample whose counterpart
// files all exist.
func Discover(dirs Directories, logger logging.Logger, opts ...DiscoverOption) (*Index, error) {
	var o discoverOptions
	for _, opt := range opts {
		opt(&o)
	}

	left, err := dirs.Left()
	if err != nil {
		return nil, err
	}
	subsets := dirs.Subsets()
	if !lo.ContainsBy(subsets, func(s Subset) bool {
		return s == Segmentation || s == Disparity || s == LeftSequence || s == RightSequence
	}) {
		logger.Warnw("no segmentation, disparity or sequence directory given", "subsets", subsets)
	}

	idx := &Index{Subsets: subsets}
	err = filepath.WalkDir(dirs[left], func(path string, d fs.DirEntry, err error) error {
		if err != nil {
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
		entry, err := resolve(dirs, left, name, path)
		if err != nil {
			logger.Warnw("skipping sample", "path", path, "error", err)
			idx.Skipped = multierr.Append(idx.Skipped, err)
			return nil
		}
		idx.Entries = append(idx.Entries, entry)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot walk %q", dirs[left])
	}

	logger.Infow("discovered samples",
		"dir", dirs[left], "samples", len(idx.Entries), "skipped", len(multierr.Errors(idx.Skipped)))

	if o.ids != nil {
		return idx.Select(o.ids)
	}
	return idx, nil
}

// resolve finds every counterpart of the left image at leftPath.
func resolve(dirs Directories, left Subset, name FrameName, leftPath string) (Entry, error) {
	folder := filepath.Base(filepath.Dir(leftPath))
	entry := Entry{Name: name, Paths: map[Subset]string{left: leftPath}}
	for _, s := range dirs.Subsets() {
		if s == left {
			continue
		}
		dir := dirs[s]
		file, err := name.Counterpart(s)
		if err != nil {
			return Entry{}, err
		}
		path := filepath.Join(dir, folder, file)
		if !utils.FileExists(path) {
			return Entry{}, errors.Errorf("no %s counterpart %q for %q", s, path, leftPath)
		}
		entry.Paths[s] = path
	}
	return entry, nil
}
