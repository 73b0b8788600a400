package errtrack

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// Reporter sends export failures to Sentry when a DSN is configured
type Reporter struct {
	hub *sentry.Hub
}

// New creates a reporter. An empty dsn gives a log-only reporter.
func New(dsn, environment string) (*Reporter, error) {
	if dsn == "" {
		return &Reporter{}, nil
	}
	return NewWithOptions(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
}

// NewWithOptions creates a reporter from explicit Sentry client options
func NewWithOptions(opts sentry.ClientOptions) (*Reporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Report records err with the given tags. Callers log the failure themselves.
func (r *Reporter) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	if r.hub == nil {
		log.WithField("tags", tags).Debug("No error tracker configured, report dropped")
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
}

// Flush waits for queued events to be delivered
func (r *Reporter) Flush(timeout time.Duration) {
	if r.hub == nil {
		return
	}
	if !r.hub.Flush(timeout) {
		log.Warn("Timed out flushing error reports")
	}
}
