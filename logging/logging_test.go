package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

type bufferSyncer struct {
	bytes.Buffer
}

func (b *bufferSyncer) Sync() error { return nil }

func TestObservedLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("skipped sample", "modality", "seg", "path", "/tmp/x.png")
	logger.Debugf("loaded %d samples", 3)

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	entries := logs.All()
	test.That(t, entries[0].Message, test.ShouldEqual, "skipped sample")
	test.That(t, entries[0].ContextMap()["modality"], test.ShouldEqual, "seg")
	test.That(t, entries[1].Message, test.ShouldEqual, "loaded 3 samples")
	test.That(t, entries[1].Level, test.ShouldEqual, zapcore.DebugLevel)
}

func TestLevelFiltering(t *testing.T) {
	var buf bufferSyncer
	logger := NewBlankLogger("loader")
	logger.AddAppender(NewWriterAppender(&buf))
	logger.SetLevel(WARN)

	logger.Info("hidden")
	logger.Warn("shown")
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)

	out := buf.String()
	test.That(t, out, test.ShouldNotContainSubstring, "hidden")
	test.That(t, out, test.ShouldContainSubstring, "shown")
	test.That(t, out, test.ShouldContainSubstring, "WARN")
	test.That(t, out, test.ShouldContainSubstring, "loader")
	test.That(t, out, test.ShouldContainSubstring, "logging/logging_test.go")
}

func TestSublogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("cityscapes").Sublogger("discovery")
	sub.Warnw("missing counterpart", "index", 4)

	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "cityscapes.discovery")
}

func TestUnpairedKey(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Errorw("oops", "dangling")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	val, ok := logs.All()[0].ContextMap()["dangling"]
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, strings.Contains(val.(string), "unpaired"), test.ShouldBeTrue)
}

func TestLevelFromString(t *testing.T) {
	for name, want := range map[string]Level{"debug": DEBUG, "INFO": INFO, "warning": WARN, "Error": ERROR} {
		level, err := LevelFromString(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, want)
	}
	_, err := LevelFromString("verbose")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWriterLogger(t *testing.T) {
	var buf bufferSyncer
	logger := NewWriterLogger("scapes", &buf)
	logger.Debug("hidden")
	logger.Infow("copied subsets", "copied", 8)

	out := buf.String()
	test.That(t, out, test.ShouldNotContainSubstring, "hidden")
	test.That(t, out, test.ShouldContainSubstring, "copied subsets")
	test.That(t, strings.Count(out, "\n"), test.ShouldEqual, 1)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scapes.log")
	appender := NewFileAppender(path)
	logger := NewBlankLogger("copy")
	logger.AddAppender(appender)
	logger.Debugw("copied file", "path", "a.png")
	test.That(t, appender.Close(), test.ShouldBeNil)

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "copied file")
	test.That(t, string(data), test.ShouldContainSubstring, "a.png")
}
