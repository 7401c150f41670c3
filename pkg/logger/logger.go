// Package logger configures the process-wide logrus instance every
// other package gets its named *logrus.Entry from.
package logger

import (
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var base = logrus.New()

func init() {
	base.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	base.SetLevel(logrus.InfoLevel)
	base.SetOutput(os.Stdout)
}

// Init configures the logger for a run: verbosity follows cobra's
// CountVarP convention (0 = info, 1 = debug, 2+ = trace), and logFile,
// if non-empty, additionally writes rotated logs there via lumberjack
// alongside stdout.
func Init(logFile string, verbosity int) {
	switch {
	case verbosity >= 2:
		base.SetLevel(logrus.TraceLevel)
	case verbosity == 1:
		base.SetLevel(logrus.DebugLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}

	if logFile == "" {
		base.SetOutput(os.Stdout)
		return
	}

	base.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}))
}

// GetLogger returns an entry tagged with name, rendered by
// logrus-prefixed-formatter as "[name]" ahead of every message it logs.
func GetLogger(name string) *logrus.Entry {
	return base.WithField("prefix", name)
}
