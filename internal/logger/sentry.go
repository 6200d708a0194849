package logger

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry enables error reporting. An empty DSN leaves it disabled.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

// FlushSentry waits briefly for buffered events to be sent.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports err to Sentry. It does nothing when Sentry is disabled.
func CaptureError(err error) {
	sentry.CaptureException(err)
}
