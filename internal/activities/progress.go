package activities

import (
	"context"
	"time"

	"github.com/fathomlabs/orchestrator/internal/progress"
	"go.temporal.io/sdk/activity"
)

// EmitProgress publishes a milestone to the in-process aggregator and, when
// configured, mirrors it to Redis. Emission is best-effort and never fails
// the run.
func (a *Activities) EmitProgress(ctx context.Context, in ProgressInput) error {
	logger := activity.GetLogger(ctx)

	evt := progress.Event{
		RunID:     in.RunID,
		Phase:     in.Update.Phase,
		Message:   in.Update.Message,
		Percent:   in.Update.Percent,
		Details:   in.Update.Details,
		Timestamp: time.Now(),
	}

	a.Progress.Publish(in.RunID, evt)
	if a.Mirror.Enabled() {
		a.Mirror.Publish(ctx, evt)
	}

	logger.Debug("Progress emitted",
		"run_id", in.RunID,
		"phase", string(in.Update.Phase),
		"percent", in.Update.Percent,
	)
	return nil
}
