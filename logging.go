package export

import (
	"io"

	"github.com/sirupsen/logrus"
)

// log is the package diagnostic channel. Hook failures, skipped detection and
// benign unregister races are reported here and nowhere else.
var log = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLogger replaces the package logger. Passing nil silences diagnostics.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.New()
		l.SetOutput(io.Discard)
	}
	log = l
}
