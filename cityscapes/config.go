package cityscapes

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/drivescene/scapes/dataloader"
	"github.com/drivescene/scapes/logging"
	"github.com/drivescene/scapes/transformpipeline"
	"github.com/drivescene/scapes/utils"
)

// Config describes the training and validation datasets and how they are batched.
type Config struct {
	RootDir       string                   `json:"rootdir"`
	TrainSubdirs  map[string]string        `json:"train_subdirs"`
	ValSubdirs    map[string]string        `json:"val_subdirs"`
	Augmentations transformpipeline.Config `json:"augmentations"`
	BatchSize     int                      `json:"batch_size"`
	Shuffle       bool                     `json:"shuffle"`
	DropLast      bool                     `json:"drop_last"`
	Workers       int                      `json:"workers,omitempty"`
	Seed          int64                    `json:"seed,omitempty"`
}

// ReadConfigFile decodes and validates a dataset config file.
func ReadConfigFile(path string) (*Config, error) {
	am, err := utils.ReadAttributeMapFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := utils.TransformAttributeMap[*Config](am)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode dataset config %q", path)
	}
	if err := cfg.Validate("dataset"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	for _, split := range []struct {
		name string
		dirs map[string]string
	}{{"train_subdirs", cfg.TrainSubdirs}, {"val_subdirs", cfg.ValSubdirs}} {
		name, dirs := split.name, split.dirs
		if len(dirs) == 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, name))
			continue
		}
		parsed, err := NewDirectories(cfg.RootDir, dirs)
		if err == nil {
			_, err = parsed.Left()
		}
		if err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%s.%s", path, name), err))
		}
	}
	if cfg.BatchSize <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(
			fmt.Sprintf("%s.batch_size", path), errors.Errorf("must be positive, got %d", cfg.BatchSize)))
	}
	if cfg.Workers < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(
			fmt.Sprintf("%s.workers", path), errors.Errorf("must not be negative, got %d", cfg.Workers)))
	}
	return multierr.Append(errs, cfg.Augmentations.Validate(path+".augmentations"))
}

// Datasets are the training and validation splits.
type Datasets struct {
	Training   *Dataset
	Validation *Dataset
}

// NewDatasets discovers both splits. Training uses every configured augmentation, validation
// keeps only the deterministic options.
func NewDatasets(cfg *Config, logger logging.Logger) (*Datasets, error) {
	if err := cfg.Validate("dataset"); err != nil {
		return nil, err
	}
	training, err := newDataset(cfg.RootDir, cfg.TrainSubdirs, &cfg.Augmentations, logger.Sublogger("training"))
	if err != nil {
		return nil, errors.Wrap(err, "training")
	}
	validation, err := newDataset(cfg.RootDir, cfg.ValSubdirs, cfg.Augmentations.Evaluation(), logger.Sublogger("validation"))
	if err != nil {
		return nil, errors.Wrap(err, "validation")
	}
	return &Datasets{Training: training, Validation: validation}, nil
}

func newDataset(root string, subdirs map[string]string, aug *transformpipeline.Config, logger logging.Logger) (*Dataset, error) {
	dirs, err := NewDirectories(root, subdirs)
	if err != nil {
		return nil, err
	}
	index, err := Discover(dirs, logger)
	if err != nil {
		return nil, err
	}
	pipeline, err := transformpipeline.New(aug, logger)
	if err != nil {
		return nil, err
	}
	return NewDataset(index, pipeline, logger), nil
}

// Loaders returns batch loaders for both splits. Only training draws a random scale per batch.
func (ds *Datasets) Loaders(cfg *Config, logger logging.Logger) (training, validation *dataloader.Loader[*Item], err error) {
	opts := []dataloader.Option{dataloader.WithSeed(cfg.Seed)}
	if cfg.Workers > 0 {
		opts = append(opts, dataloader.WithWorkers(cfg.Workers))
	}
	training, err = dataloader.New[*Item](ds.Training, dataloader.BatchSampler{
		BatchSize:  cfg.BatchSize,
		DropLast:   cfg.DropLast,
		Shuffle:    cfg.Shuffle || cfg.Augmentations.RandomScale != nil,
		ScaleRange: cfg.Augmentations.RandomScale,
	}, logger.Sublogger("training"), opts...)
	if err != nil {
		return nil, nil, err
	}
	validation, err = dataloader.New[*Item](ds.Validation, dataloader.BatchSampler{
		BatchSize: cfg.BatchSize,
		DropLast:  cfg.DropLast,
		Shuffle:   cfg.Shuffle,
	}, logger.Sublogger("validation"), opts...)
	if err != nil {
		return nil, nil, err
	}
	return training, validation, nil
}
