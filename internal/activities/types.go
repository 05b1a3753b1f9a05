// Package activities implements the pipeline stages as Temporal activities.
// All collaborators are injected at construction; activities never read
// ambient globals for configuration.
package activities

import (
	"github.com/fathomlabs/orchestrator/internal/config"
	"github.com/fathomlabs/orchestrator/internal/db"
	"github.com/fathomlabs/orchestrator/internal/llm"
	"github.com/fathomlabs/orchestrator/internal/models"
	"github.com/fathomlabs/orchestrator/internal/progress"
	"github.com/fathomlabs/orchestrator/internal/search"
	"go.uber.org/zap"
)

// Activities bundles the stage implementations with their injected
// collaborators. Registered with the worker as a single struct.
type Activities struct {
	LLM      llm.Client
	Search   search.Client
	Config   *config.Config
	Logger   *zap.Logger
	Progress *progress.Manager
	Mirror   *progress.Mirror
	DB       *db.Client // nil disables persistence
}

// NewActivities wires the stage implementations together.
func NewActivities(
	llmClient llm.Client,
	searchClient search.Client,
	cfg *config.Config,
	logger *zap.Logger,
	mgr *progress.Manager,
	mirror *progress.Mirror,
	dbClient *db.Client,
) *Activities {
	return &Activities{
		LLM:      llmClient,
		Search:   searchClient,
		Config:   cfg,
		Logger:   logger,
		Progress: mgr,
		Mirror:   mirror,
		DB:       dbClient,
	}
}

// PlanInput is the planning stage request.
type PlanInput struct {
	Query string `json:"query"`
}

// PlanResult is the planning stage response.
type PlanResult struct {
	Plan      models.Plan `json:"plan"`
	Truncated bool        `json:"truncated"`
}

// SubagentInput dispatches one plan task to a worker.
type SubagentInput struct {
	AgentID string `json:"agent_id"`
	Task    string `json:"task"`
	Index   int    `json:"index"`
}

// SubagentOutput wraps the worker's structured result.
type SubagentOutput struct {
	Result models.SubagentResult `json:"result"`
}

// SynthesisInput carries the query and the positionally aligned worker
// results into the synthesis stage.
type SynthesisInput struct {
	Query   string                  `json:"query"`
	Results []models.SubagentResult `json:"results"`
}

// SynthesisOutput is the uncited report.
type SynthesisOutput struct {
	Report string `json:"report"`
}

// CitationInput carries the synthesized report plus the results whose
// sources feed the registry.
type CitationInput struct {
	Report  string                  `json:"report"`
	Results []models.SubagentResult `json:"results"`
}

// CitationOutput is the cited report with its bibliography. FallbackUsed
// records that the service's bibliography text could not be parsed and the
// deterministic registry-derived bibliography was substituted.
type CitationOutput struct {
	CitedReport  string            `json:"cited_report"`
	Bibliography []models.Citation `json:"bibliography"`
	SourceCount  int               `json:"source_count"`
	FallbackUsed bool              `json:"fallback_used"`
}

// ProgressInput is one milestone notification routed through the progress
// aggregator.
type ProgressInput struct {
	RunID  string                `json:"run_id"`
	Update models.ProgressUpdate `json:"update"`
}

// PersistInput stores the final result keyed by the run's workflow id.
type PersistInput struct {
	RunID  string                `json:"run_id"`
	Result models.ResearchResult `json:"result"`
	Status string                `json:"status"`
	Error  string                `json:"error,omitempty"`
}
