package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/sirupsen/logrus"
)

// logger routes watermill's internal logging through logrus.
type logger struct {
	entry logrus.FieldLogger
}

// NewLogger adapts a logrus logger for watermill.
func NewLogger(log logrus.FieldLogger) watermill.LoggerAdapter {
	return logger{entry: log.WithField("component", "watermill")}
}

func (l logger) Error(msg string, err error, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

func (l logger) Info(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l logger) Debug(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

// Trace is folded into Debug; FieldLogger has no trace level.
func (l logger) Trace(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (l logger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}
