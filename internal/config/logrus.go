package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON logger writing to stdout. Unknown levels fall
// back to info.
func NewLogger(level string) *logrus.Logger {
	logg := logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logg.SetLevel(lvl)
	return logg
}

func LogError(logger logrus.FieldLogger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
