package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("format", func(t *testing.T) {
		t.Parallel()
		assert.Regexp(t, `^[0-9A-HJKMNP-TV-Z]{26}$`, New())
	})

	t.Run("unique", func(t *testing.T) {
		t.Parallel()
		seen := make(map[string]struct{}, 1000)
		for range 1000 {
			v := New()
			_, dup := seen[v]
			require.False(t, dup, "duplicate id %s", v)
			seen[v] = struct{}{}
		}
	})

	t.Run("sorts by time", func(t *testing.T) {
		t.Parallel()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		assert.Less(t, newAt(base), newAt(base.Add(time.Millisecond)))
	})
}

func TestTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 30, 45, 123_000_000, time.UTC)
	got, err := Time(newAt(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(got))

	_, err = Time("short")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Time("00000000U0AAAAAAAAAAAAAAAA")
	require.ErrorIs(t, err, ErrInvalid)
}
