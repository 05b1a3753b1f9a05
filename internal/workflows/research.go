// Package workflows contains the research pipeline coordinator.
package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fathomlabs/orchestrator/internal/activities"
	"github.com/fathomlabs/orchestrator/internal/models"
)

// Error types attached to fatal pipeline failures.
const (
	ErrTypePlanning  = "PlanningError"
	ErrTypeSynthesis = "SynthesisError"
	ErrTypeCitation  = "CitationError"
)

// ResearchInput starts one research run. The concurrency and timeout knobs
// are filled by the starter from configuration so the coordinator itself
// stays deterministic.
type ResearchInput struct {
	Query                string        `json:"query"`
	MaxConcurrentWorkers int           `json:"max_concurrent_workers"`
	WorkerTimeout        time.Duration `json:"worker_timeout"`
}

// ResearchOutput is the completed run.
type ResearchOutput struct {
	Result models.ResearchResult `json:"result"`
}

// workerOutcome carries one worker's result, tagged with its plan index so
// the coordinator can restore task order regardless of completion order.
type workerOutcome struct {
	Index  int                   `json:"index"`
	Result models.SubagentResult `json:"result"`
	Err    string                `json:"err,omitempty"`
}

// Milestone percents for a run. Worker completions interpolate between
// subagent dispatch and subagent completion.
const (
	pctPlanning         = 10
	pctPlanningComplete = 20
	pctSubagentStart    = 25
	pctSubagentComplete = 70
	pctSynthesis        = 75
	pctCitation         = 90
	pctComplete         = 100
)

// ResearchWorkflow coordinates the full pipeline: plan, parallel research,
// synthesis, citation, persistence. Worker failures degrade their slot only;
// planning, synthesis, and citation failures abort the run.
func ResearchWorkflow(ctx workflow.Context, input ResearchInput) (ResearchOutput, error) {
	logger := workflow.GetLogger(ctx)
	runID := workflow.GetInfo(ctx).WorkflowExecution.ID
	startedAt := workflow.Now(ctx)

	logger.Info("Starting research run", "run_id", runID, "query", input.Query)

	if input.MaxConcurrentWorkers <= 0 {
		input.MaxConcurrentWorkers = 5
	}
	if input.WorkerTimeout <= 0 {
		input.WorkerTimeout = 10 * time.Minute
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    60 * time.Second,
		},
	})
	workerCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: input.WorkerTimeout,
		HeartbeatTimeout:    60 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    2,
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    60 * time.Second,
		},
	})
	emitCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	// Percents are clamped to the high-water mark so late start events from
	// queued workers can never move the run backwards. The error phase is the
	// one allowed reset. Coroutines here are cooperatively scheduled, so the
	// shared counter needs no locking.
	lastPercent := 0
	emit := func(waitCtx workflow.Context, phase models.ProgressPhase, message string, percent int, details map[string]interface{}) {
		switch {
		case phase == models.PhaseError:
			lastPercent = 0
			percent = 0
		case percent < lastPercent:
			percent = lastPercent
		default:
			lastPercent = percent
		}
		_ = workflow.ExecuteActivity(emitCtx, "EmitProgress", activities.ProgressInput{
			RunID: runID,
			Update: models.ProgressUpdate{
				Phase:   phase,
				Message: message,
				Percent: percent,
				Details: details,
			},
		}).Get(waitCtx, nil)
	}
	fail := func(phase models.ProgressPhase, errType string, err error) (ResearchOutput, error) {
		emit(ctx, models.PhaseError, err.Error(), 0, map[string]interface{}{"failed_phase": string(phase)})
		if perr := workflow.ExecuteActivity(ctx, "PersistResult", activities.PersistInput{
			RunID:  runID,
			Result: models.ResearchResult{Query: input.Query, CreatedAt: startedAt},
			Status: "failed",
			Error:  err.Error(),
		}).Get(ctx, nil); perr != nil {
			logger.Warn("Result persistence failed", "run_id", runID, "error", perr)
		}
		return ResearchOutput{}, temporal.NewApplicationError(err.Error(), errType)
	}

	// Stage 1: planning
	emit(ctx, models.PhasePlanning, "Creating research plan", pctPlanning, nil)

	var planRes activities.PlanResult
	if err := workflow.ExecuteActivity(ctx, "PlanResearch", activities.PlanInput{Query: input.Query}).Get(ctx, &planRes); err != nil {
		return fail(models.PhasePlanning, ErrTypePlanning, fmt.Errorf("planning failed: %w", err))
	}
	plan := planRes.Plan
	numTasks := len(plan.Tasks)

	emit(ctx, models.PhasePlanningComplete, fmt.Sprintf("Plan created with %d tasks", numTasks), pctPlanningComplete,
		map[string]interface{}{"tasks": plan.Tasks, "rationale": plan.Rationale, "truncated": planRes.Truncated})

	// Stage 2: parallel research with bounded concurrency
	emit(ctx, models.PhaseSubagentResearch, fmt.Sprintf("Executing %d research tasks", numTasks), pctSubagentStart, nil)

	sem := workflow.NewSemaphore(ctx, int64(input.MaxConcurrentWorkers))
	resultChan := workflow.NewChannel(ctx)

	for i := 0; i < numTasks; i++ {
		index := i
		task := plan.Tasks[i]

		workflow.Go(ctx, func(gCtx workflow.Context) {
			agentID := fmt.Sprintf("subagent_%d", index)

			if err := sem.Acquire(gCtx, 1); err != nil {
				resultChan.Send(gCtx, workerOutcome{Index: index, Err: err.Error()})
				return
			}
			defer sem.Release(1)

			emit(gCtx, models.PhaseSubagentStarted, fmt.Sprintf("%s started", agentID), pctSubagentStart,
				map[string]interface{}{"agent_id": agentID, "task": task, "index": index})

			var out activities.SubagentOutput
			err := workflow.ExecuteActivity(workerCtx, "ExecuteSubagent", activities.SubagentInput{
				AgentID: agentID,
				Task:    task,
				Index:   index,
			}).Get(gCtx, &out)

			outcome := workerOutcome{Index: index, Result: out.Result}
			if err != nil {
				outcome.Err = err.Error()
			}
			resultChan.Send(gCtx, outcome)
		})
	}

	// Fan-in barrier: every slot must land before synthesis. Completion
	// percents are computed in receive order, which keeps them monotonic
	// regardless of worker scheduling.
	results := make([]models.SubagentResult, numTasks)
	for completed := 1; completed <= numTasks; completed++ {
		var outcome workerOutcome
		resultChan.Receive(ctx, &outcome)

		res := outcome.Result
		if outcome.Err != "" {
			logger.Warn("Worker failed, substituting degraded result",
				"index", outcome.Index, "error", outcome.Err)
			res = models.DegradedResult(
				fmt.Sprintf("subagent_%d", outcome.Index),
				plan.Tasks[outcome.Index],
				outcome.Err,
			)
		}
		results[outcome.Index] = res

		percent := pctSubagentStart + completed*(pctSubagentComplete-pctSubagentStart)/numTasks
		emit(ctx, models.PhaseSubagentFinished,
			fmt.Sprintf("Completed %d/%d research tasks", completed, numTasks),
			percent,
			map[string]interface{}{
				"completed": completed,
				"total":     numTasks,
				"index":     outcome.Index,
				"agent_id":  res.AgentID,
				"sources":   len(res.Sources),
			})
	}

	emit(ctx, models.PhaseSubagentComplete, "All research tasks finished", pctSubagentComplete, nil)

	// Stage 3: synthesis
	emit(ctx, models.PhaseSynthesis, "Synthesizing findings", pctSynthesis, nil)

	var synth activities.SynthesisOutput
	if err := workflow.ExecuteActivity(ctx, "SynthesizeFindings", activities.SynthesisInput{
		Query:   input.Query,
		Results: results,
	}).Get(ctx, &synth); err != nil {
		return fail(models.PhaseSynthesis, ErrTypeSynthesis, fmt.Errorf("synthesis failed: %w", err))
	}

	// Stage 4: citation resolution
	emit(ctx, models.PhaseCitation, "Resolving citations", pctCitation, nil)

	var cited activities.CitationOutput
	if err := workflow.ExecuteActivity(ctx, "ResolveCitations", activities.CitationInput{
		Report:  synth.Report,
		Results: results,
	}).Get(ctx, &cited); err != nil {
		return fail(models.PhaseCitation, ErrTypeCitation, fmt.Errorf("citation resolution failed: %w", err))
	}

	duration := workflow.Now(ctx).Sub(startedAt)
	result := models.ResearchResult{
		Query:           input.Query,
		Plan:            plan,
		SubagentResults: results,
		Synthesis:       synth.Report,
		CitedReport:     cited.CitedReport,
		Bibliography:    cited.Bibliography,
		Metadata: map[string]interface{}{
			"subagents_count":   numTasks,
			"sources_count":     cited.SourceCount,
			"duration_seconds":  duration.Seconds(),
			"citation_fallback": cited.FallbackUsed,
		},
		CreatedAt: startedAt,
	}

	// Persistence is best-effort; a storage failure never fails the run.
	if err := workflow.ExecuteActivity(ctx, "PersistResult", activities.PersistInput{
		RunID:  runID,
		Result: result,
		Status: "completed",
	}).Get(ctx, nil); err != nil {
		logger.Warn("Result persistence failed", "run_id", runID, "error", err)
	}

	emit(ctx, models.PhaseComplete, "Research complete", pctComplete,
		map[string]interface{}{"bibliography_entries": len(cited.Bibliography)})

	logger.Info("Research run complete",
		"run_id", runID,
		"tasks", numTasks,
		"sources", cited.SourceCount,
		"duration", duration.String(),
	)
	return ResearchOutput{Result: result}, nil
}
