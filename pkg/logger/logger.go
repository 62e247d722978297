package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init configures the standard logrus logger. Production builds log JSON,
// everything else gets the text formatter with full timestamps.
func Init(level, env string) {
	logrus.SetOutput(os.Stdout)

	if strings.EqualFold(env, "production") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("unknown log level %q, falling back to info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
