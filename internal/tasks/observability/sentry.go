// Package observability wires optional Sentry error reporting. Everything
// here is a no-op unless a DSN was configured at startup.
package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry initialises the Sentry client. An empty DSN disables reporting
// entirely.
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

// FlushSentry drains buffered events on shutdown.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports an unexpected server-side failure.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}
