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

// ResolveCitations compiles the source registry from all worker results,
// asks the generation service to cite the report, and parses the resulting
// bibliography. An unparseable bibliography is not an error: the registry
// yields a deterministic fallback bibliography instead, so a run with any
// registered source always ends with a non-empty bibliography. Only a
// generation failure is fatal here.
func (a *Activities) ResolveCitations(ctx context.Context, in CitationInput) (CitationOutput, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("citation").Observe(time.Since(start).Seconds()) }()

	registry := models.BuildSourceRegistry(in.Results)
	accessedDate := time.Now().Format("2006-01-02")

	logger.Info("Adding citations to research report", "sources", registry.Len())

	resp, err := a.LLM.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompts.CitationSystem()},
			{Role: llm.RoleUser, Content: prompts.CitationUser(in.Report, prompts.FormatSources(registry, accessedDate))},
		},
		Temperature: a.Config.Model.Temperature,
		MaxTokens:   a.Config.Model.MaxTokens,
		AgentID:     "citation-agent",
	})
	if err != nil {
		return CitationOutput{}, fmt.Errorf("citation completion failed: %w", err)
	}

	citedReport := resp.Text()

	bibliography, parsed := parsers.ParseBibliography(citedReport)
	fallbackUsed := false
	if !parsed {
		bibliography = registry.Fallback(accessedDate)
		fallbackUsed = true
		metrics.CitationFallbacks.Inc()
		logger.Warn("Bibliography unparseable, substituting registry-derived entries",
			"entries", len(bibliography))
	}

	logger.Info("Citations added", "entries", len(bibliography), "fallback", fallbackUsed)
	metrics.BibliographySize.Observe(float64(len(bibliography)))

	return CitationOutput{
		CitedReport:  citedReport,
		Bibliography: bibliography,
		SourceCount:  registry.Len(),
		FallbackUsed: fallbackUsed,
	}, nil
}
