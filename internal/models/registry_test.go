package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSourceRegistryDedupFirstSeen(t *testing.T) {
	results := []SubagentResult{
		{AgentID: "subagent_1", Task: "task A", Sources: []string{"https://x/1", "https://x/2"}},
		{AgentID: "subagent_2", Task: "task B", Sources: []string{"https://x/2", "https://x/3"}},
	}

	r := BuildSourceRegistry(results)
	require.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"https://x/1", "https://x/2", "https://x/3"}, r.URLs())

	// first occurrence wins the metadata
	meta, ok := r.Meta("https://x/2")
	require.True(t, ok)
	assert.Equal(t, "task A", meta.Task)
	assert.Equal(t, "subagent_1", meta.AgentID)
}

func TestBuildSourceRegistrySkipsEmptyURLs(t *testing.T) {
	r := BuildSourceRegistry([]SubagentResult{{Task: "t", Sources: []string{"", "https://x/1"}}})
	assert.Equal(t, 1, r.Len())
}

func TestBuildSourceRegistryNoNormalization(t *testing.T) {
	// trailing slash and case differences are distinct entries
	r := BuildSourceRegistry([]SubagentResult{
		{Task: "t", Sources: []string{"https://x/page", "https://x/page/", "https://X/page"}},
	})
	assert.Equal(t, 3, r.Len())
}

func TestFallbackBibliographyTotal(t *testing.T) {
	r := BuildSourceRegistry([]SubagentResult{
		{Task: "t", Sources: []string{"https://x/1", "https://x/2"}},
	})

	citations := r.Fallback("2026-08-26")
	require.Len(t, citations, 2)
	for i, c := range citations {
		assert.Equal(t, i+1, c.Index)
		assert.Equal(t, c.URL, c.Title)
		assert.Equal(t, "2026-08-26", c.AccessedDate)
	}
}

func TestFallbackEmptyRegistry(t *testing.T) {
	r := BuildSourceRegistry(nil)
	assert.Empty(t, r.Fallback("2026-08-26"))
}

func TestPlanClamp(t *testing.T) {
	p := Plan{Tasks: []string{"a", "b", "c", "d"}}
	assert.True(t, p.Clamp(3))
	assert.Equal(t, []string{"a", "b", "c"}, p.Tasks)

	assert.False(t, p.Clamp(5))
	assert.Len(t, p.Tasks, 3)
}

func TestDegradedResultShape(t *testing.T) {
	res := DegradedResult("subagent_2", "task B", "boom")
	assert.Equal(t, "subagent_2", res.AgentID)
	assert.Equal(t, "task B", res.Task)
	assert.Equal(t, "Research failed: boom", res.Summary)
	assert.Equal(t, "Error occurred during research: boom", res.Findings)
	assert.Empty(t, res.Sources)
	assert.Equal(t, ConfidenceLow, res.Confidence)
}
