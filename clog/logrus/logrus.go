// Package logrus wires a *logrus.Logger as the clog backend.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/musearch/bridge/clog"
)

// Logger adapts a *logrus.Logger to the clog.Logger interface.
type Logger struct {
	L *logrus.Logger
}

// Install configures a logrus.Logger from level/format strings and
// registers it as the clog backend.
func Install(level, format string) *logrus.Logger {
	l := logrus.New()
	switch level {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
		clog.SetV(1)
	case "warn", "warning":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	clog.SetLogger(Logger{L: l})
	return l
}

func (l Logger) Infof(format string, args ...interface{})    { l.L.Infof(format, args...) }
func (l Logger) Warningf(format string, args ...interface{}) { l.L.Warnf(format, args...) }
func (l Logger) Errorf(format string, args ...interface{})   { l.L.Errorf(format, args...) }
func (l Logger) Fatalf(format string, args ...interface{})   { l.L.Fatalf(format, args...) }
