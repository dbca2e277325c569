package driver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/launchpad-hq/lpcore/errs"
)

// RetryConfig bounds the exponential-backoff retry loop.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig matches the teacher's own conservative apply-time
// defaults: a handful of attempts, starting small.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:      5,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

// IsTransient classifies a driver error as safe to retry: connection
// reset, deadlock, or serialization failure. An *errs.DriverTransient in
// the chain (such as the tracker's draining rejection) is transient.
// Otherwise each SQL connector's error text varies by driver, so this
// matches on substrings common to lib/pq, go-sql-driver/mysql, and
// modernc.org/sqlite error messages rather than driver-specific error types.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transient *errs.DriverTransient
	if errors.As(err, &transient) {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "could not serialize access"),
		strings.Contains(msg, "serialization failure"),
		strings.Contains(msg, "database is locked"):
		return true
	default:
		return false
	}
}

// Retry runs fn, retrying with exponential backoff while IsTransient(err)
// and the attempt count is under cfg.MaxRetries. A non-transient error
// returns immediately.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by MaxRetries instead of wall-clock

	bounded := backoff.WithMaxRetries(bo, uint64(cfg.MaxRetries))
	withCtx := backoff.WithContext(bounded, ctx)

	return backoff.Retry(func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, withCtx)
}
