// Package log wraps logrus with a Sentry hook so errors raised anywhere in the
// service are reported without access to a request context.
package log

import (
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/equitrack/partnership-api/domain"
)

var logger = logrus.New()

func init() {
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	if domain.Env.GoEnv == "development" {
		logger.SetFormatter(&logrus.TextFormatter{})
		logger.SetLevel(logrus.DebugLevel)
	}

	if domain.Env.SentryDSN != "" && domain.Env.GoEnv != "test" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         domain.Env.SentryDSN,
			Environment: domain.Env.GoEnv,
		}); err != nil {
			logger.Errorf("sentry init failed: %s", err)
		} else {
			logger.AddHook(&SentryHook{hub: sentry.CurrentHub()})
		}
	}
}

func WithFields(fields map[string]any) *logrus.Entry {
	return logger.WithFields(fields)
}

func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

func Info(args ...any) {
	logger.Info(args...)
}

func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

func Warningf(format string, args ...any) {
	logger.Warningf(format, args...)
}

func Error(args ...any) {
	logger.Error(args...)
}

func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	logger.Fatalf(format, args...)
}
