package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/fathomlabs/orchestrator/internal/llm"
	"github.com/fathomlabs/orchestrator/internal/metrics"
	"github.com/fathomlabs/orchestrator/internal/prompts"
	"go.temporal.io/sdk/activity"
)

// SynthesizeFindings merges all worker results, degraded ones included, into
// a single uncited report. A generation failure here is fatal to the run.
func (a *Activities) SynthesizeFindings(ctx context.Context, in SynthesisInput) (SynthesisOutput, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("synthesis").Observe(time.Since(start).Seconds()) }()

	logger.Info("Synthesizing findings", "subagents", len(in.Results))

	findings := prompts.FormatFindings(in.Results)

	resp, err := a.LLM.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.SynthesisSystem()},
			{Role: llm.RoleUser, Content: prompts.SynthesisUser(in.Query, findings)},
		},
		Temperature: a.Config.Model.Temperature,
		MaxTokens:   a.Config.Model.MaxTokens,
		AgentID:     "lead-researcher",
	})
	if err != nil {
		return SynthesisOutput{}, fmt.Errorf("synthesis completion failed: %w", err)
	}

	logger.Info("Synthesis complete")
	return SynthesisOutput{Report: resp.Text()}, nil
}
