// Package errtrack reports unexpected errors to Sentry. With an empty DSN
// every call is a no-op.
package errtrack

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

func Init(dsn, environment string) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		TracesSampleRate: 0.2,
		EnableTracing:    dsn != "",
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// client data stays out of error reports
			event.User = sentry.User{}
			return event
		},
	})
	if err != nil {
		log.Printf("Sentry init failed (continuing without it): %v", err)
		return
	}
	if dsn == "" {
		log.Println("SENTRY_DSN not set, error tracking disabled")
	} else {
		log.Println("Sentry initialized")
	}
}

func Flush() { sentry.Flush(2 * time.Second) }

func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
