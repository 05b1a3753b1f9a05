package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fathomlabs/orchestrator/internal/llm"
	"github.com/fathomlabs/orchestrator/internal/metrics"
	"github.com/fathomlabs/orchestrator/internal/models"
	"github.com/fathomlabs/orchestrator/internal/parsers"
	"github.com/fathomlabs/orchestrator/internal/prompts"
	"github.com/fathomlabs/orchestrator/internal/search"
	"go.temporal.io/sdk/activity"
)

const summaryFallbackLen = 200

// webSearchTool is the single tool exposed to workers.
var webSearchTool = llm.ToolSpec{
	Name:        "web_search",
	Description: "Search the web for information on a research objective. Returns ranked URLs with content excerpts.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"objective": map[string]interface{}{
				"type":        "string",
				"description": "What to search for",
			},
		},
		"required": []string{"objective"},
	},
}

// ExecuteSubagent runs one worker's bounded research loop. Reasoning and
// provider failures never surface as activity errors: every failure path
// produces a degraded result so the coordinator keeps its positional
// alignment. Only the outer Temporal machinery can make this activity fail.
func (a *Activities) ExecuteSubagent(ctx context.Context, in SubagentInput) (out SubagentOutput, err error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Subagent panicked", "agent_id", in.AgentID, "panic", fmt.Sprintf("%v", r))
			metrics.SubagentExecutions.WithLabelValues("panic").Inc()
			out = SubagentOutput{Result: models.DegradedResult(in.AgentID, in.Task, fmt.Sprintf("panic: %v", r))}
			err = nil
		}
	}()

	logger.Info("Starting research", "agent_id", in.AgentID, "task", truncateForLog(in.Task, 80))

	finalText, toolSources, runErr := a.researchLoop(ctx, in)
	if runErr != nil {
		logger.Error("Research failed", "agent_id", in.AgentID, "error", runErr)
		metrics.SubagentExecutions.WithLabelValues("degraded").Inc()
		return SubagentOutput{Result: models.DegradedResult(in.AgentID, in.Task, runErr.Error())}, nil
	}

	// Sources are the tool-trace URLs in first-seen order, then any URLs in
	// the final text that the trace missed.
	sources := toolSources
	seen := make(map[string]struct{}, len(sources))
	for _, u := range sources {
		seen[u] = struct{}{}
	}
	for _, u := range parsers.ExtractURLs(finalText) {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			sources = append(sources, u)
		}
	}

	summary, found := parsers.ExtractSummary(finalText)
	if !found {
		summary = parsers.FirstParagraph(finalText, summaryFallbackLen)
	}
	confidence, found := parsers.ExtractConfidence(finalText)
	if !found {
		confidence = models.ConfidenceMedium
	}

	logger.Info("Research complete", "agent_id", in.AgentID, "sources", len(sources))
	metrics.SubagentExecutions.WithLabelValues("completed").Inc()
	metrics.SubagentSources.Observe(float64(len(sources)))

	return SubagentOutput{Result: models.SubagentResult{
		AgentID:    in.AgentID,
		Task:       in.Task,
		Summary:    summary,
		Findings:   finalText,
		Sources:    sources,
		Confidence: confidence,
		DurationMs: time.Since(start).Milliseconds(),
	}}, nil
}

// researchLoop drives the tool-use conversation until the model stops
// requesting searches or the iteration budget runs out. Returns the final
// response text and the URLs collected from tool results in first-seen order.
func (a *Activities) researchLoop(ctx context.Context, in SubagentInput) (string, []string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompts.SubagentSystem(in.Task)},
		{Role: llm.RoleUser, Content: prompts.SubagentUser(in.Task)},
	}

	var sources []string
	seen := make(map[string]struct{})
	lastText := ""
	iterations := 0

	for iterations < a.Config.Research.MaxIterations {
		iterations++

		resp, err := a.LLM.Complete(ctx, llm.CompletionRequest{
			Messages:    messages,
			Tools:       []llm.ToolSpec{webSearchTool},
			Temperature: a.Config.Model.Temperature,
			MaxTokens:   a.Config.Model.MaxTokens,
			AgentID:     in.AgentID,
		})
		if err != nil {
			return "", nil, fmt.Errorf("completion failed on iteration %d: %w", iterations, err)
		}

		if text := resp.Text(); text != "" {
			lastText = text
		}

		if len(resp.ToolCalls) == 0 {
			break
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: assistantTurn(resp)})

		for _, call := range resp.ToolCalls {
			objective, _ := call.Arguments["objective"].(string)
			if objective == "" {
				objective = in.Task
			}

			results, err := a.Search.Search(ctx, objective, search.Params{
				MaxResults:        a.Config.Search.MaxResults,
				MaxCharsPerResult: a.Config.Search.MaxCharsPerResult,
				Processor:         a.Config.Search.Processor,
			})
			if err != nil {
				metrics.SearchCalls.WithLabelValues("error").Inc()
				return "", nil, fmt.Errorf("web search failed: %w", err)
			}
			metrics.SearchCalls.WithLabelValues("ok").Inc()

			for _, u := range search.URLsFromResults(results) {
				if _, ok := seen[u]; !ok {
					seen[u] = struct{}{}
					sources = append(sources, u)
				}
			}

			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    search.FormatResults(results),
				ToolCallID: call.ID,
			})
		}
	}

	metrics.SubagentIterations.Observe(float64(iterations))
	return lastText, sources, nil
}

// assistantTurn renders the model's turn, including its tool requests, back
// into the transcript.
func assistantTurn(resp *llm.CompletionResponse) string {
	if len(resp.ToolCalls) == 0 {
		return resp.Text()
	}
	calls := make([]map[string]interface{}, 0, len(resp.ToolCalls))
	for _, c := range resp.ToolCalls {
		calls = append(calls, map[string]interface{}{
			"id":        c.ID,
			"name":      c.Name,
			"arguments": c.Arguments,
		})
	}
	b, _ := json.Marshal(calls)
	text := resp.Text()
	if text == "" {
		return "Requested tools: " + string(b)
	}
	return text + "\n\nRequested tools: " + string(b)
}
