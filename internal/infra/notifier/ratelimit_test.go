package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_PerKey(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	ctx := context.Background()

	require.NoError(t, rl.Wait(ctx, "a"))
	require.NoError(t, rl.Wait(ctx, "b"), "other webhook has its own bucket")

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(short, "a"), "second message within a second must wait")
}
