package db

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JSONB represents a PostgreSQL jsonb column
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}

	return json.Unmarshal(bytes, j)
}

// ResearchRun is a completed pipeline execution record.
type ResearchRun struct {
	ID           uuid.UUID  `db:"id"`
	WorkflowID   string     `db:"workflow_id"`
	Query        string     `db:"query"`
	Status       string     `db:"status"`
	CitedReport  string     `db:"cited_report"`
	Bibliography JSONB      `db:"bibliography"`
	Metadata     JSONB      `db:"metadata"`
	ErrorMessage string     `db:"error"`
	StartedAt    time.Time  `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

// SaveResearchRun saves or updates a research run record (idempotent by workflow_id)
func (c *Client) SaveResearchRun(ctx context.Context, run *ResearchRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO research_runs (
			id, workflow_id, query, status, cited_report, bibliography,
			metadata, error, started_at, completed_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (workflow_id) DO UPDATE SET
			status = EXCLUDED.status,
			cited_report = EXCLUDED.cited_report,
			bibliography = EXCLUDED.bibliography,
			metadata = CASE
				WHEN EXCLUDED.metadata IS NULL OR EXCLUDED.metadata = '{}'::jsonb THEN research_runs.metadata
				ELSE EXCLUDED.metadata
			END,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
		RETURNING id`

	err := c.db.QueryRowContext(ctx, query,
		run.ID, run.WorkflowID, run.Query, run.Status,
		run.CitedReport, run.Bibliography, run.Metadata, run.ErrorMessage,
		run.StartedAt, run.CompletedAt, run.CreatedAt,
	).Scan(&run.ID)

	if err != nil {
		return fmt.Errorf("failed to save research run: %w", err)
	}

	c.logger.Debug("Saved research run",
		zap.String("workflow_id", run.WorkflowID),
		zap.String("status", run.Status),
	)
	return nil
}

// GetResearchRun loads a run by workflow id.
func (c *Client) GetResearchRun(ctx context.Context, workflowID string) (*ResearchRun, error) {
	var run ResearchRun
	err := c.db.GetContext(ctx, &run,
		`SELECT id, workflow_id, query, status, cited_report, bibliography,
		        metadata, error, started_at, completed_at, created_at
		 FROM research_runs WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load research run: %w", err)
	}
	return &run, nil
}
