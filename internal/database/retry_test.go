package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWithRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), zerolog.Nop(), "test", func(context.Context) error {
			calls++
			if calls < 2 {
				return errors.New("not ready")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := withRetry(ctx, zerolog.Nop(), "test", func(context.Context) error {
			return errors.New("down")
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
