package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	fcolor "github.com/fatih/color"
	"go.viam.com/test"
	"gorgonia.org/tensor"

	"github.com/drivescene/scapes/classes"
	"github.com/drivescene/scapes/logging"
	"github.com/drivescene/scapes/metrics"
	"github.com/drivescene/scapes/rimage"
	"github.com/drivescene/scapes/transformpipeline"
	"github.com/drivescene/scapes/utils"
)

const (
	frameWidth  = 64
	frameHeight = 32
)

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	fcolor.NoColor = true
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"scapes"}, args...))
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path string, write func(string) error) {
	t.Helper()
	test.That(t, os.MkdirAll(filepath.Dir(path), 0o750), test.ShouldBeNil)
	test.That(t, write(path), test.ShouldBeNil)
}

func writeJSONFile(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	test.That(t, err, test.ShouldBeNil)
	writeFile(t, path, func(p string) error { return os.WriteFile(p, data, 0o600) })
}

// newDatasetTree writes two aachen frames with left image, labels, disparity and pose, except
// that the second frame has no disparity.
func newDatasetTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	left := imaging.New(frameWidth, frameHeight, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	seg := image.NewGray(image.Rect(0, 0, frameWidth, frameHeight))
	disp := image.NewGray16(image.Rect(0, 0, frameWidth, frameHeight))
	for y := 0; y < frameHeight; y++ {
		for x := 0; x < frameWidth; x++ {
			seg.SetGray(x, y, color.Gray{Y: 7})
			disp.SetGray16(x, y, color.Gray16{Y: uint16(257 + 256*x)})
		}
	}
	for i, stem := range []string{"aachen_000000_000019", "aachen_000001_000019"} {
		dir := func(sub string) string { return filepath.Join(root, sub, "train", "aachen") }
		save := func(img image.Image) func(string) error {
			return func(p string) error { return imaging.Save(img, p) }
		}
		writeFile(t, filepath.Join(dir("leftImg8bit"), stem+"_leftImg8bit.png"), save(left))
		writeFile(t, filepath.Join(dir("gtFine"), stem+"_gtFine_labelIds.png"), save(seg))
		if i == 0 {
			writeFile(t, filepath.Join(dir("disparity"), stem+"_disparity.png"), save(disp))
		}
		writeJSONFile(t, filepath.Join(dir("vehicle"), stem+"_vehicle.json"), map[string]float64{"speed": 3.5})
	}
	return root
}

func writeDatasetConfig(t *testing.T, root string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.json")
	writeJSONFile(t, path, map[string]interface{}{
		"rootdir": root,
		"train_subdirs": map[string]string{
			"left_images": "leftImg8bit/train",
			"seg":         "gtFine/train",
			"disparity":   "disparity/train",
			"pose":        "vehicle/train",
		},
		"val_subdirs": map[string]string{
			"images": "leftImg8bit/train",
			"seg":    "gtFine/train",
		},
		"batch_size": 1,
		"augmentations": map[string]interface{}{
			"output_size":   []int{frameWidth, frameHeight},
			"rand_flip":     true,
			"disparity_out": true,
		},
	})
	return path
}

func TestDiscoverCommand(t *testing.T) {
	cfg := writeDatasetConfig(t, newDatasetTree(t))

	out, logs, err := runApp(t, "discover", "--config", cfg, "--verbose")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "training: 1 samples, 1 skipped")
	test.That(t, out, test.ShouldContainSubstring, "validation: 2 samples, 0 skipped")
	test.That(t, out, test.ShouldContainSubstring, "disparity/train")
	test.That(t, out, test.ShouldContainSubstring, "| Subset")
	test.That(t, out, test.ShouldContainSubstring, "Warning: ")
	test.That(t, logs, test.ShouldContainSubstring, "skipping sample")

	out, _, err = runApp(t, "discover", "--config", cfg, "--split", "validation")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldNotContainSubstring, "training:")
	test.That(t, out, test.ShouldContainSubstring, "validation: 2 samples")

	_, _, err = runApp(t, "discover", "--config", cfg, "--split", "test")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown split")

	_, _, err = runApp(t, "discover")
	test.That(t, err, test.ShouldNotBeNil)

	logPath := filepath.Join(t.TempDir(), "scapes.log")
	_, _, err = runApp(t, "--log-file", logPath, "--debug", "discover", "--config", cfg)
	test.That(t, err, test.ShouldBeNil)
	data, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "discovered samples")
}

func TestPreviewCommand(t *testing.T) {
	cfg := writeDatasetConfig(t, newDatasetTree(t))
	dst := filepath.Join(t.TempDir(), "preview.png")

	out, _, err := runApp(t, "preview", "--config", cfg, "--seed", "3", "--out", dst, "--histogram")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "aachen_000000_000019")
	test.That(t, out, test.ShouldContainSubstring, "speed 3.50 m/s")
	test.That(t, out, test.ShouldContainSubstring, "| Brightness")
	test.That(t, out, test.ShouldContainSubstring, "pixels valid")

	img, err := imaging.Open(dst)
	test.That(t, err, test.ShouldBeNil)
	// Left image, labels and depth on a two column grid.
	test.That(t, img.Bounds().Size(), test.ShouldResemble, image.Pt(2*frameWidth, 2*frameHeight))

	_, _, err = runApp(t, "preview", "--config", cfg, "--index", "5", "--out", dst)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "out of range")
}

func TestRenderPreview(t *testing.T) {
	left := imaging.New(64, 32, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	labels := rimage.NewPlane(64, 32)
	labels.Fill(0)
	depth := rimage.NewDepthMap(64, 32)
	depth.Set(3, 3, 12)

	out := &transformpipeline.Output{
		Images:       map[transformpipeline.Modality]*tensor.Dense{transformpipeline.LeftImage: rimage.ToTensor(left, nil)},
		Segmentation: rimage.PlaneToTensor(labels),
		Disparity:    depth,
		Shape:        image.Pt(64, 32),
	}
	img, err := renderPreview(out, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Size(), test.ShouldResemble, image.Pt(128, 64))

	nrgba := imaging.Clone(img)
	test.That(t, nrgba.NRGBAAt(5, 5), test.ShouldResemble, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	test.That(t, nrgba.NRGBAAt(64+5, 5), test.ShouldResemble, classes.Color(0))
	// Pixels without depth stay black, as does the unused fourth cell.
	test.That(t, nrgba.NRGBAAt(5, 32+5), test.ShouldResemble, color.NRGBA{A: 255})
	test.That(t, nrgba.NRGBAAt(64+5, 32+5), test.ShouldResemble, color.NRGBA{A: 255})

	_, err = renderPreview(&transformpipeline.Output{Shape: image.Pt(64, 32)}, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCopyCommand(t *testing.T) {
	src := newDatasetTree(t)
	dst := t.TempDir()
	args := []string{
		"copy", "--src", src, "--dst", dst, "--workers", "2",
		"--subset", "l_img=leftImg8bit/train", "--subset", "disp=disparity/train",
	}

	out, _, err := runApp(t, args...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "0 already present, 1 missing")
	test.That(t, out, test.ShouldContainSubstring, "Warning: 1 files had no source")
	test.That(t, utils.FileExists(filepath.Join(dst, "disparity/train/aachen/aachen_000000_000019_disparity.png")),
		test.ShouldBeTrue)

	out, _, err = runApp(t, args...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "copied 0 files (0B), 3 already present, 1 missing")

	_, _, err = runApp(t, "copy", "--src", src, "--dst", dst, "--subset", "disp=disparity/train")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseSubsetFlags(t *testing.T) {
	dirs, err := parseSubsetFlags([]string{"l_img=leftImg8bit/train", "seg=gtFine/train"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(dirs), test.ShouldEqual, 2)
	left, err := dirs.Left()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dirs[left], test.ShouldEqual, "leftImg8bit/train")

	for _, bad := range [][]string{
		{"leftImg8bit/train"},
		{"l_img="},
		{"seg=a", "seg=b"},
		{"l_img=a", "left_images=b"},
		{"bogus=a"},
	} {
		_, err := parseSubsetFlags(bad)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func writeMetricStore(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "metrics.db")
	store, err := metrics.OpenStore(ctx, path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	names := []string{metrics.BatchLoss}
	for _, loss := range [][]float64{{0.9, 0.7}, {0.4, 0.2}} {
		for _, mode := range []metrics.Mode{metrics.Training, metrics.Validation} {
			series := map[string][]float64{metrics.BatchLoss: loss}
			summary, err := metrics.Summarize(names, series)
			test.That(t, err, test.ShouldBeNil)
			_, err = store.SaveEpoch(ctx, mode, names, series, summary, false)
			test.That(t, err, test.ShouldBeNil)
		}
	}
	test.That(t, store.Close(ctx), test.ShouldBeNil)
	return path
}

func TestMetricsCommands(t *testing.T) {
	db := writeMetricStore(t)

	out, _, err := runApp(t, "metrics", "show", "--db", db, "--mode", "training",
		"--best", metrics.BatchLoss, "--lower-is-better")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "training summary")
	test.That(t, out, test.ShouldContainSubstring, "| Epoch")
	test.That(t, out, test.ShouldNotContainSubstring, "validation summary")
	test.That(t, out, test.ShouldContainSubstring, "0.8000")
	test.That(t, out, test.ShouldContainSubstring, "0.3000")
	test.That(t, out, test.ShouldContainSubstring, "best training epoch by Batch_Loss: 2")

	out, _, err = runApp(t, "metrics", "show", "--db", db, "--best", "Batch_mIoU")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "validation summary")
	test.That(t, out, test.ShouldContainSubstring, "Warning: ")

	plots := filepath.Join(t.TempDir(), "plots")
	out, _, err = runApp(t, "metrics", "plot", "--db", db, "--out", plots)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "summary.png")
	for _, name := range []string{"summary.png", "iterations.png"} {
		img, err := imaging.Open(filepath.Join(plots, name))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds().Dx(), test.ShouldBeGreaterThan, 0)
	}

	_, _, err = runApp(t, "metrics", "show", "--db", filepath.Join(t.TempDir(), "missing.db"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no metric database")

	_, _, err = runApp(t, "metrics", "show", "--db", db, "--mode", "testing")
	test.That(t, err, test.ShouldNotBeNil)
}
