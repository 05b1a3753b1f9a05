package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Mirror copies progress events into a per-run Redis Stream so external
// consumers can tail runs without holding an in-process subscription.
// Publishing is best-effort: a Redis failure is logged and never propagated
// to the pipeline.
type Mirror struct {
	client *redis.Client
	logger *zap.Logger
}

// NewMirror wraps a Redis client. A nil client produces a disabled mirror
// whose Publish is a no-op.
func NewMirror(client *redis.Client, logger *zap.Logger) *Mirror {
	return &Mirror{client: client, logger: logger}
}

// Enabled reports whether the mirror has a backing client.
func (m *Mirror) Enabled() bool { return m != nil && m.client != nil }

// StreamKey returns the Redis Stream key for a run.
func StreamKey(runID string) string {
	return fmt.Sprintf("fathom:research:events:%s", runID)
}

// Publish appends the event to the run's stream, trimming to roughly 256
// entries. Errors are logged and swallowed.
func (m *Mirror) Publish(ctx context.Context, evt Event) {
	if !m.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	detailsJSON := "{}"
	if evt.Details != nil {
		if b, err := json.Marshal(evt.Details); err == nil {
			detailsJSON = string(b)
		}
	}

	_, err := m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(evt.RunID),
		MaxLen: 256,
		Approx: true,
		Values: map[string]interface{}{
			"run_id":  evt.RunID,
			"phase":   string(evt.Phase),
			"message": evt.Message,
			"percent": strconv.Itoa(evt.Percent),
			"details": detailsJSON,
			"ts_nano": strconv.FormatInt(evt.Timestamp.UnixNano(), 10),
		},
	}).Result()
	if err != nil {
		m.logger.Warn("Failed to mirror progress event to stream",
			zap.String("run_id", evt.RunID),
			zap.String("phase", string(evt.Phase)),
			zap.Error(err),
		)
	}
}
