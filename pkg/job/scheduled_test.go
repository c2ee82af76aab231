package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduledTaskExecutor_Execute(t *testing.T) {
	t.Parallel()

	calls := 0
	executor := &scheduledTaskExecutor{handler: func(context.Context) error {
		calls++
		return nil
	}}

	require.NoError(t, executor.Execute(context.Background(), []byte(`{"ignored":true}`)))
	assert.Equal(t, 1, calls)

	want := errors.New("redis unavailable")
	failing := &scheduledTaskExecutor{handler: func(context.Context) error { return want }}
	assert.ErrorIs(t, failing.Execute(context.Background(), nil), want)
}
