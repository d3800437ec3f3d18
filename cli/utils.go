package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/drivescene/scapes/logging"
)

const (
	loggerMetadataKey       = "logger"
	fileAppenderMetadataKey = "log-file"
)

// printf prints a message with a trailing newline.
func printf(w io.Writer, format string, a ...interface{}) {
	if w == nil {
		return
	}
	//nolint:errcheck
	_, _ = fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a yellow "Warning: ". Color is dropped when stdout
// is not a terminal.
func warningf(w io.Writer, format string, a ...interface{}) {
	if w == nil {
		return
	}
	//nolint:errcheck
	_, _ = color.New(color.Bold, color.FgYellow).Fprint(w, "Warning: ")
	printf(w, format, a...)
}

// setupLogging builds the logger every command uses. Logs go to the app's error writer and,
// when --log-file is set, to a rotated file as well.
func setupLogging(c *cli.Context) error {
	logger := logging.NewWriterLogger("scapes", zapcore.AddSync(c.App.ErrWriter))
	if c.Bool(debugFlag) {
		logger.SetLevel(logging.DEBUG)
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]interface{})
	}
	delete(c.App.Metadata, fileAppenderMetadataKey)
	if path := c.Path(logFileFlag); path != "" {
		appender := logging.NewFileAppender(path)
		logger.AddAppender(appender)
		c.App.Metadata[fileAppenderMetadataKey] = appender
	}
	c.App.Metadata[loggerMetadataKey] = logger
	return nil
}

// closeLogging closes the log file opened by setupLogging, if any.
func closeLogging(c *cli.Context) error {
	if appender, ok := c.App.Metadata[fileAppenderMetadataKey].(*logging.FileAppender); ok {
		delete(c.App.Metadata, fileAppenderMetadataKey)
		return appender.Close()
	}
	return nil
}

// newLogger returns the logger set up for this run.
func newLogger(c *cli.Context) logging.Logger {
	if logger, ok := c.App.Metadata[loggerMetadataKey].(logging.Logger); ok {
		return logger
	}
	return logging.NewWriterLogger("scapes", zapcore.AddSync(c.App.ErrWriter))
}
