package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/fathomlabs/orchestrator/internal/llm"
	"github.com/fathomlabs/orchestrator/internal/metrics"
	"github.com/fathomlabs/orchestrator/internal/models"
	"github.com/fathomlabs/orchestrator/internal/parsers"
	"github.com/fathomlabs/orchestrator/internal/prompts"
	"go.temporal.io/sdk/activity"
)

// PlanResearch decomposes the query into parallelizable research tasks. A
// generation failure or an unparseable plan is fatal to the run.
func (a *Activities) PlanResearch(ctx context.Context, in PlanInput) (PlanResult, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("planning").Observe(time.Since(start).Seconds()) }()

	metrics.RunsStarted.Inc()
	logger.Info("Creating research plan", "query", truncateForLog(in.Query, 100))

	resp, err := a.LLM.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.PlanningSystem(a.Config.Research.MinSubagents, a.Config.Research.MaxSubagents)},
			{Role: llm.RoleUser, Content: prompts.PlanningUser(in.Query)},
		},
		Temperature: a.Config.Model.Temperature,
		MaxTokens:   a.Config.Model.MaxTokens,
		AgentID:     "lead-researcher",
	})
	if err != nil {
		return PlanResult{}, fmt.Errorf("planning completion failed: %w", err)
	}

	outline := parsers.ParsePlan(resp.Text())
	if len(outline.Tasks) == 0 {
		logger.Warn("Planner output had no parseable tasks, proceeding with an empty plan")
	}
	if !outline.RationaleFound {
		logger.Warn("Plan rationale missing from planner output")
	}

	plan := models.Plan{Tasks: outline.Tasks, Rationale: outline.Rationale}
	truncated := plan.Clamp(a.Config.Research.MaxSubagents)
	if truncated {
		logger.Warn("Plan truncated to task limit",
			"parsed", len(outline.Tasks),
			"limit", a.Config.Research.MaxSubagents,
		)
	}
	if len(plan.Tasks) > 0 && len(plan.Tasks) < a.Config.Research.MinSubagents {
		logger.Warn("Plan below preferred task minimum, proceeding anyway",
			"tasks", len(plan.Tasks),
			"minimum", a.Config.Research.MinSubagents,
		)
	}

	logger.Info("Created research plan", "tasks", len(plan.Tasks))
	return PlanResult{Plan: plan, Truncated: truncated}, nil
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
