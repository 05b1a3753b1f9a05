package activities

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fathomlabs/orchestrator/internal/db"
	"github.com/fathomlabs/orchestrator/internal/metrics"
	"go.temporal.io/sdk/activity"
)

// PersistResult writes the final run record. A missing database client makes
// this a no-op so the pipeline runs without persistence configured.
func (a *Activities) PersistResult(ctx context.Context, in PersistInput) error {
	logger := activity.GetLogger(ctx)

	metrics.RunsCompleted.WithLabelValues(in.Status).Inc()
	if !in.Result.CreatedAt.IsZero() {
		metrics.RunDuration.Observe(time.Since(in.Result.CreatedAt).Seconds())
	}

	if a.DB == nil {
		logger.Debug("Persistence disabled, skipping", "run_id", in.RunID)
		return nil
	}

	var bibliography db.JSONB
	if len(in.Result.Bibliography) > 0 {
		b, err := json.Marshal(in.Result.Bibliography)
		if err == nil {
			var entries []interface{}
			if json.Unmarshal(b, &entries) == nil {
				bibliography = db.JSONB{"entries": entries}
			}
		}
	}

	now := time.Now()
	run := &db.ResearchRun{
		WorkflowID:   in.RunID,
		Query:        in.Result.Query,
		Status:       in.Status,
		CitedReport:  in.Result.CitedReport,
		Bibliography: bibliography,
		Metadata:     db.JSONB(in.Result.Metadata),
		ErrorMessage: in.Error,
		StartedAt:    in.Result.CreatedAt,
		CompletedAt:  &now,
	}

	if err := a.DB.SaveResearchRun(ctx, run); err != nil {
		logger.Error("Failed to persist research run", "run_id", in.RunID, "error", err)
		return err
	}

	logger.Info("Research run persisted", "run_id", in.RunID, "status", in.Status)
	return nil
}
