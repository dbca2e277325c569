package driver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/driver"
)

func TestIsTransient(t *testing.T) {
	assert.True(t, driver.IsTransient(errors.New("pq: deadlock detected")))
	assert.True(t, driver.IsTransient(errors.New("dial tcp: connection reset by peer")))
	assert.True(t, driver.IsTransient(errors.New("database is locked")))
	assert.False(t, driver.IsTransient(errors.New("syntax error near SELECT")))
	assert.False(t, driver.IsTransient(nil))
}

func TestRetry_StopsOnNonTransientError(t *testing.T) {
	attempts := 0
	err := driver.Retry(context.Background(), driver.RetryConfig{MaxRetries: 5}, func(context.Context) error {
		attempts++
		return errors.New("permanent failure")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_RetriesTransientUntilSuccess(t *testing.T) {
	attempts := 0
	err := driver.Retry(context.Background(), driver.RetryConfig{MaxRetries: 5}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	err := driver.Retry(context.Background(), driver.RetryConfig{MaxRetries: 2}, func(context.Context) error {
		attempts++
		return errors.New("deadlock detected")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial attempt + 2 retries
}
