package activities

import (
	"testing"

	"github.com/fathomlabs/orchestrator/internal/llm"
	"github.com/fathomlabs/orchestrator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

func TestSynthesizeFindingsIncludesDegradedResults(t *testing.T) {
	stub := &scriptedLLM{responses: []*llm.CompletionResponse{{Content: "# Executive Summary\nSynthesized."}}}
	acts := newTestActivities(stub, &stubSearch{})

	results := []models.SubagentResult{
		{AgentID: "subagent_1", Task: "task A", Summary: "ok", Findings: "details", Confidence: models.ConfidenceHigh},
		models.DegradedResult("subagent_2", "task B", "worker crashed"),
	}

	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(acts.SynthesizeFindings)

	val, err := env.ExecuteActivity(acts.SynthesizeFindings, SynthesisInput{Query: "q", Results: results})
	require.NoError(t, err)

	var out SynthesisOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, "# Executive Summary\nSynthesized.", out.Report)

	// the degraded slot flows into the prompt like any other
	require.Len(t, stub.requests, 1)
	userMsg := stub.requests[0].Messages[1].Content
	assert.Contains(t, userMsg, "SUBAGENT 2: task B")
	assert.Contains(t, userMsg, "Research failed: worker crashed")
}
