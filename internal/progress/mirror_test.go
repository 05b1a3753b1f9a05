package progress

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathomlabs/orchestrator/internal/models"
)

func TestMirrorPublishAppendsToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	m := NewMirror(client, zap.NewNop())
	require.True(t, m.Enabled())

	m.Publish(context.Background(), Event{
		RunID:     "run-1",
		Phase:     models.PhaseSynthesis,
		Message:   "Synthesizing findings",
		Percent:   75,
		Timestamp: time.Now(),
	})

	entries, err := client.XRange(context.Background(), StreamKey("run-1"), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "synthesis", entries[0].Values["phase"])
	assert.Equal(t, "75", entries[0].Values["percent"])
	assert.Equal(t, "run-1", entries[0].Values["run_id"])
}

func TestMirrorDisabledIsNoop(t *testing.T) {
	m := NewMirror(nil, zap.NewNop())
	assert.False(t, m.Enabled())
	// must not panic
	m.Publish(context.Background(), Event{RunID: "run-1"})
}

func TestMirrorSwallowsRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	m := NewMirror(client, zap.NewNop())
	mr.Close()

	// publishing after the server is gone must not panic or block
	m.Publish(context.Background(), Event{RunID: "run-1", Phase: models.PhaseComplete, Percent: 100})
}
