package delivery_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/courier/internal/delivery"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	lowest := func(int64) int64 { return 0 }
	highest := func(n int64) int64 { return n - 1 }

	tests := []struct {
		attempt  int
		min, max time.Duration
	}{
		{1, 5 * time.Second, 10 * time.Second},
		{2, 30 * time.Second, 40 * time.Second},
		{3, 60 * time.Second, 79 * time.Second},
		{4, 160 * time.Second, 400 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.min, delivery.Backoff(tt.attempt, lowest), "attempt %d", tt.attempt)
		assert.Equal(t, tt.max, delivery.Backoff(tt.attempt, highest), "attempt %d", tt.attempt)
	}

	assert.Equal(t, 5*time.Second, delivery.Backoff(0, lowest))
	assert.Equal(t, 400*time.Second, delivery.Backoff(9, highest))
}
