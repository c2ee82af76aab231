package postmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want int
	}{
		{"406 You tried to send to a recipient that has been marked as inactive.", 406},
		{"postmark: 300 Invalid email request", 300},
		{"connection refused", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorCode(tt.msg), tt.msg)
	}
}
