// Package cli contains the scapes command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	debugFlag   = "debug"
	logFileFlag = "log-file"
	configFlag  = "config"
	splitFlag   = "split"
	verboseFlag = "verbose"

	previewFlagIndex     = "index"
	previewFlagSeed      = "seed"
	previewFlagScale     = "scale"
	previewFlagOut       = "out"
	previewFlagHistogram = "histogram"

	copyFlagSrc     = "src"
	copyFlagDst     = "dst"
	copyFlagSubset  = "subset"
	copyFlagWorkers = "workers"

	metricsFlagDB    = "db"
	metricsFlagMode  = "mode"
	metricsFlagBest  = "best"
	metricsFlagLower = "lower-is-better"
	metricsFlagOut   = "out"
)

var configFileFlag = &cli.StringFlag{
	Name:     configFlag,
	Aliases:  []string{"c"},
	Required: true,
	Usage:    "load the dataset configuration from `FILE`",
}

var app = &cli.App{
	Name:            "scapes",
	Usage:           "inspect and prepare Cityscapes style training data",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.PathFlag{
			Name:  logFileFlag,
			Usage: "also write logs to `FILE`, rotating it as it grows",
		},
	},
	Before: setupLogging,
	After:  closeLogging,
	Commands: []*cli.Command{
		{
			Name:  "discover",
			Usage: "list the samples found for each split of a dataset config",
			Flags: []cli.Flag{
				configFileFlag,
				&cli.StringFlag{
					Name:  splitFlag,
					Usage: "only discover one split (training or validation)",
				},
				&cli.BoolFlag{
					Name:  verboseFlag,
					Usage: "print why each skipped sample was skipped",
				},
			},
			Action: DiscoverAction,
		},
		{
			Name:  "preview",
			Usage: "transform one sample and save every modality side by side",
			Flags: []cli.Flag{
				configFileFlag,
				&cli.StringFlag{
					Name:  splitFlag,
					Value: "training",
					Usage: "split to take the sample from (training or validation)",
				},
				&cli.IntFlag{
					Name:  previewFlagIndex,
					Usage: "sample index within the split",
				},
				&cli.Int64Flag{
					Name:  previewFlagSeed,
					Usage: "seed for the random augmentations",
				},
				&cli.Float64Flag{
					Name:  previewFlagScale,
					Value: 1,
					Usage: "output scale factor",
				},
				&cli.PathFlag{
					Name:  previewFlagOut,
					Value: "preview.png",
					Usage: "write the preview to `FILE`",
				},
				&cli.BoolFlag{
					Name:  previewFlagHistogram,
					Usage: "print a histogram of the valid disparity or depth values",
				},
			},
			Action: PreviewAction,
		},
		{
			Name:      "copy",
			Usage:     "copy the files of several subsets that share their left image",
			UsageText: "scapes copy --src DIR --dst DIR --subset l_img=leftImg8bit --subset seg=gtFine [...]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     copyFlagSrc,
					Required: true,
					Usage:    "dataset root to copy from",
				},
				&cli.PathFlag{
					Name:     copyFlagDst,
					Required: true,
					Usage:    "dataset root to copy into",
				},
				&cli.StringSliceFlag{
					Name:     copyFlagSubset,
					Required: true,
					Usage:    "subset to copy as `KEY=DIR`, relative to the roots",
				},
				&cli.IntFlag{
					Name:  copyFlagWorkers,
					Usage: "number of concurrent copies (defaults to the number of CPUs)",
				},
			},
			Action: CopyAction,
		},
		{
			Name:            "metrics",
			Usage:           "work with stored training metrics",
			HideHelpCommand: true,
			Subcommands: []*cli.Command{
				{
					Name:  "show",
					Usage: "print per epoch summaries",
					Flags: []cli.Flag{
						&cli.PathFlag{
							Name:     metricsFlagDB,
							Required: true,
							Usage:    "metric database `FILE`",
						},
						&cli.StringFlag{
							Name:  metricsFlagMode,
							Usage: "only show one mode (training or validation)",
						},
						&cli.StringFlag{
							Name:  metricsFlagBest,
							Usage: "also report the epoch with the best mean of `METRIC`",
						},
						&cli.BoolFlag{
							Name:  metricsFlagLower,
							Usage: "treat lower values of the --best metric as better",
						},
					},
					Action: MetricsShowAction,
				},
				{
					Name:  "plot",
					Usage: "plot per epoch summaries and per batch series",
					Flags: []cli.Flag{
						&cli.PathFlag{
							Name:     metricsFlagDB,
							Required: true,
							Usage:    "metric database `FILE`",
						},
						&cli.PathFlag{
							Name:  metricsFlagOut,
							Value: ".",
							Usage: "directory to write summary.png and iterations.png into",
						},
					},
					Action: MetricsPlotAction,
				},
			},
		},
	},
}

// NewApp returns the app with the given writers for output and logs.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
