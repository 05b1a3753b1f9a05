package workflows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/fathomlabs/orchestrator/internal/activities"
	"github.com/fathomlabs/orchestrator/internal/models"
)

// progressRecorder captures EmitProgress calls in emission order.
type progressRecorder struct {
	mu      sync.Mutex
	updates []models.ProgressUpdate
}

func (r *progressRecorder) record(_ context.Context, in activities.ProgressInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, in.Update)
	return nil
}

func (r *progressRecorder) all() []models.ProgressUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ProgressUpdate(nil), r.updates...)
}

func planStub(tasks ...string) func(context.Context, activities.PlanInput) (activities.PlanResult, error) {
	return func(_ context.Context, _ activities.PlanInput) (activities.PlanResult, error) {
		return activities.PlanResult{Plan: models.Plan{Tasks: tasks, Rationale: "test plan"}}, nil
	}
}

func subagentStub(failTasks map[string]string) func(context.Context, activities.SubagentInput) (activities.SubagentOutput, error) {
	return func(_ context.Context, in activities.SubagentInput) (activities.SubagentOutput, error) {
		if reason, ok := failTasks[in.Task]; ok {
			return activities.SubagentOutput{}, errors.New(reason)
		}
		return activities.SubagentOutput{Result: models.SubagentResult{
			AgentID:    in.AgentID,
			Task:       in.Task,
			Summary:    "summary for " + in.Task,
			Findings:   "findings for " + in.Task,
			Sources:    []string{fmt.Sprintf("https://x/%d", in.Index)},
			Confidence: models.ConfidenceHigh,
		}}, nil
	}
}

func synthesisStub(_ context.Context, in activities.SynthesisInput) (activities.SynthesisOutput, error) {
	return activities.SynthesisOutput{Report: fmt.Sprintf("report over %d results", len(in.Results))}, nil
}

func citationStub(_ context.Context, in activities.CitationInput) (activities.CitationOutput, error) {
	registry := models.BuildSourceRegistry(in.Results)
	return activities.CitationOutput{
		CitedReport:  in.Report + " [Source 1]",
		Bibliography: registry.Fallback("2026-08-26"),
		SourceCount:  registry.Len(),
		FallbackUsed: false,
	}, nil
}

func persistStub(_ context.Context, _ activities.PersistInput) error { return nil }

func newResearchEnv(t *testing.T, rec *progressRecorder, opts ...func(*testsuite.TestWorkflowEnvironment)) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ResearchWorkflow)

	env.RegisterActivityWithOptions(synthesisStub, activity.RegisterOptions{Name: "SynthesizeFindings"})
	env.RegisterActivityWithOptions(citationStub, activity.RegisterOptions{Name: "ResolveCitations"})
	env.RegisterActivityWithOptions(persistStub, activity.RegisterOptions{Name: "PersistResult"})
	env.RegisterActivityWithOptions(rec.record, activity.RegisterOptions{Name: "EmitProgress"})

	for _, opt := range opts {
		opt(env)
	}
	return env
}

func TestResearchWorkflowAlignsResultsWithPlan(t *testing.T) {
	rec := &progressRecorder{}
	env := newResearchEnv(t, rec)
	env.RegisterActivityWithOptions(planStub("task A", "task B", "task C"), activity.RegisterOptions{Name: "PlanResearch"})
	env.RegisterActivityWithOptions(subagentStub(nil), activity.RegisterOptions{Name: "ExecuteSubagent"})

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{Query: "q", MaxConcurrentWorkers: 2})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ResearchOutput
	require.NoError(t, env.GetWorkflowResult(&out))

	require.Len(t, out.Result.SubagentResults, 3)
	for i, task := range []string{"task A", "task B", "task C"} {
		assert.Equal(t, task, out.Result.SubagentResults[i].Task, "slot %d", i)
		assert.Equal(t, fmt.Sprintf("subagent_%d", i), out.Result.SubagentResults[i].AgentID, "slot %d", i)
	}
	assert.Equal(t, "report over 3 results [Source 1]", out.Result.CitedReport)
	assert.EqualValues(t, 3, out.Result.Metadata["subagents_count"])
	assert.NotEmpty(t, out.Result.Bibliography)
}

func TestResearchWorkflowDegradesFailedWorkerOnly(t *testing.T) {
	rec := &progressRecorder{}
	env := newResearchEnv(t, rec)
	env.RegisterActivityWithOptions(planStub("task A", "task B", "task C"), activity.RegisterOptions{Name: "PlanResearch"})
	env.RegisterActivityWithOptions(subagentStub(map[string]string{"task B": "worker exploded"}), activity.RegisterOptions{Name: "ExecuteSubagent"})

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{Query: "q"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ResearchOutput
	require.NoError(t, env.GetWorkflowResult(&out))

	require.Len(t, out.Result.SubagentResults, 3)
	degraded := out.Result.SubagentResults[1]
	assert.Equal(t, "task B", degraded.Task)
	assert.Equal(t, "subagent_1", degraded.AgentID)
	assert.Equal(t, models.ConfidenceLow, degraded.Confidence)
	assert.Contains(t, degraded.Summary, "Research failed:")
	assert.Empty(t, degraded.Sources)

	// neighbors untouched
	assert.Equal(t, models.ConfidenceHigh, out.Result.SubagentResults[0].Confidence)
	assert.Equal(t, models.ConfidenceHigh, out.Result.SubagentResults[2].Confidence)

	// the run still ends with a full report and bibliography
	assert.NotEmpty(t, out.Result.CitedReport)
	assert.NotEmpty(t, out.Result.Bibliography)
}

func TestResearchWorkflowProgressMonotonic(t *testing.T) {
	rec := &progressRecorder{}
	env := newResearchEnv(t, rec)
	env.RegisterActivityWithOptions(planStub("task A", "task B", "task C", "task D"), activity.RegisterOptions{Name: "PlanResearch"})
	env.RegisterActivityWithOptions(subagentStub(nil), activity.RegisterOptions{Name: "ExecuteSubagent"})

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{Query: "q", MaxConcurrentWorkers: 2})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	updates := rec.all()
	require.NotEmpty(t, updates)

	last := 0
	for _, u := range updates {
		assert.GreaterOrEqual(t, u.Percent, last, "phase %s went backwards", u.Phase)
		last = u.Percent
	}
	assert.Equal(t, models.PhaseComplete, updates[len(updates)-1].Phase)
	assert.Equal(t, 100, updates[len(updates)-1].Percent)
	assert.Equal(t, models.PhasePlanning, updates[0].Phase)
}

func TestResearchWorkflowPlanningFailureIsFatal(t *testing.T) {
	rec := &progressRecorder{}
	env := newResearchEnv(t, rec)
	env.RegisterActivityWithOptions(
		func(_ context.Context, _ activities.PlanInput) (activities.PlanResult, error) {
			return activities.PlanResult{}, errors.New("planner down")
		},
		activity.RegisterOptions{Name: "PlanResearch"},
	)
	env.RegisterActivityWithOptions(subagentStub(nil), activity.RegisterOptions{Name: "ExecuteSubagent"})

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{Query: "q"})

	require.True(t, env.IsWorkflowCompleted())
	wfErr := env.GetWorkflowError()
	require.Error(t, wfErr)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(wfErr, &appErr))
	assert.Equal(t, ErrTypePlanning, appErr.Type())

	updates := rec.all()
	require.NotEmpty(t, updates)
	final := updates[len(updates)-1]
	assert.Equal(t, models.PhaseError, final.Phase)
	assert.Equal(t, 0, final.Percent)
}

func TestResearchWorkflowSynthesisFailureIsFatal(t *testing.T) {
	rec := &progressRecorder{}
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ResearchWorkflow)
	env.RegisterActivityWithOptions(planStub("task A"), activity.RegisterOptions{Name: "PlanResearch"})
	env.RegisterActivityWithOptions(subagentStub(nil), activity.RegisterOptions{Name: "ExecuteSubagent"})
	env.RegisterActivityWithOptions(
		func(_ context.Context, _ activities.SynthesisInput) (activities.SynthesisOutput, error) {
			return activities.SynthesisOutput{}, errors.New("synthesis down")
		},
		activity.RegisterOptions{Name: "SynthesizeFindings"},
	)
	env.RegisterActivityWithOptions(citationStub, activity.RegisterOptions{Name: "ResolveCitations"})
	env.RegisterActivityWithOptions(persistStub, activity.RegisterOptions{Name: "PersistResult"})
	env.RegisterActivityWithOptions(rec.record, activity.RegisterOptions{Name: "EmitProgress"})

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{Query: "q"})

	require.True(t, env.IsWorkflowCompleted())
	wfErr := env.GetWorkflowError()
	require.Error(t, wfErr)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(wfErr, &appErr))
	assert.Equal(t, ErrTypeSynthesis, appErr.Type())
}

func TestResearchWorkflowEmptyPlanStillCompletes(t *testing.T) {
	rec := &progressRecorder{}
	env := newResearchEnv(t, rec)
	env.RegisterActivityWithOptions(planStub(), activity.RegisterOptions{Name: "PlanResearch"})
	env.RegisterActivityWithOptions(subagentStub(nil), activity.RegisterOptions{Name: "ExecuteSubagent"})

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{Query: "q"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ResearchOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Empty(t, out.Result.SubagentResults)
	assert.Equal(t, "report over 0 results [Source 1]", out.Result.CitedReport)

	updates := rec.all()
	require.NotEmpty(t, updates)
	assert.Equal(t, models.PhaseComplete, updates[len(updates)-1].Phase)
	assert.Equal(t, 100, updates[len(updates)-1].Percent)
}

func TestResearchWorkflowAllWorkersFailStillCompletes(t *testing.T) {
	rec := &progressRecorder{}
	env := newResearchEnv(t, rec)
	env.RegisterActivityWithOptions(planStub("task A", "task B"), activity.RegisterOptions{Name: "PlanResearch"})
	env.RegisterActivityWithOptions(
		subagentStub(map[string]string{"task A": "down", "task B": "down"}),
		activity.RegisterOptions{Name: "ExecuteSubagent"},
	)

	env.ExecuteWorkflow(ResearchWorkflow, ResearchInput{Query: "q"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ResearchOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	for _, res := range out.Result.SubagentResults {
		assert.Equal(t, models.ConfidenceLow, res.Confidence)
	}
	assert.NotEmpty(t, out.Result.CitedReport)
}
