package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/sirupsen/logrus"
)

type logAdapter struct {
	log logrus.FieldLogger
}

// Logger adapts a logrus logger for watermill components.
func Logger(log logrus.FieldLogger) watermill.LoggerAdapter {
	return &logAdapter{log: log}
}

func (l *logAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.log.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

func (l *logAdapter) Info(msg string, fields watermill.LogFields) {
	l.log.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l *logAdapter) Debug(msg string, fields watermill.LogFields) {
	l.log.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (l *logAdapter) Trace(msg string, fields watermill.LogFields) {
	l.log.WithFields(logrus.Fields(fields)).Trace(msg)
}

func (l *logAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &logAdapter{log: l.log.WithFields(logrus.Fields(fields))}
}
