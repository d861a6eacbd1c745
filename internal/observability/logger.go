package observability

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/weatherlogger/apiserver/config"
)

// NewLogger builds a logrus logger writing to out (stderr when nil).
// Unknown levels fall back to info; any format other than "text" is JSON.
func NewLogger(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
