package models

import "time"

// Confidence is the coarse self-reported reliability tag a subagent attaches
// to its findings.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Plan is the ordered task decomposition produced from a research query.
type Plan struct {
	Tasks             []string `json:"tasks"`
	Rationale         string   `json:"rationale"`
	EstimatedDuration int      `json:"estimated_duration,omitempty"` // seconds, optional
}

// Clamp truncates the plan to at most max tasks, preserving order. Plans are
// never rejected for being too long. Returns true when truncation happened.
func (p *Plan) Clamp(max int) bool {
	if max <= 0 || len(p.Tasks) <= max {
		return false
	}
	p.Tasks = p.Tasks[:max]
	return true
}

// SubagentResult is the structured finding produced for one dispatched task,
// either by a completed worker or by the coordinator's failure-isolation path.
type SubagentResult struct {
	AgentID    string     `json:"agent_id"`
	Task       string     `json:"task"`
	Summary    string     `json:"summary"`
	Findings   string     `json:"findings"`
	Sources    []string   `json:"sources"`
	Confidence Confidence `json:"confidence"`
	DurationMs int64      `json:"duration_ms,omitempty"`
}

// DegradedResult builds the synthetic result substituted for a failed worker:
// low confidence, no sources, summary and findings describing the failure.
func DegradedResult(agentID, task, reason string) SubagentResult {
	return SubagentResult{
		AgentID:    agentID,
		Task:       task,
		Summary:    "Research failed: " + reason,
		Findings:   "Error occurred during research: " + reason,
		Sources:    []string{},
		Confidence: ConfidenceLow,
	}
}

// Citation is a single resolved bibliography entry.
type Citation struct {
	Index        int    `json:"index"` // 1-based
	Title        string `json:"title"`
	URL          string `json:"url"`
	AccessedDate string `json:"accessed_date"`
	Excerpt      string `json:"excerpt,omitempty"`
}

// ResearchResult is the final output handed, read-only, to writers.
type ResearchResult struct {
	Query           string                 `json:"query"`
	Plan            Plan                   `json:"plan"`
	SubagentResults []SubagentResult       `json:"subagent_results"`
	Synthesis       string                 `json:"synthesis"`
	CitedReport     string                 `json:"cited_report"`
	Bibliography    []Citation             `json:"bibliography"`
	Metadata        map[string]interface{} `json:"metadata"`
	CreatedAt       time.Time              `json:"created_at"`
}

// ProgressPhase names a pipeline milestone.
type ProgressPhase string

const (
	PhasePlanning         ProgressPhase = "planning"
	PhasePlanningComplete ProgressPhase = "planning_complete"
	PhaseSubagentResearch ProgressPhase = "subagent_research"
	PhaseSubagentStarted  ProgressPhase = "subagent_started"
	PhaseSubagentFinished ProgressPhase = "subagent_finished"
	PhaseSubagentComplete ProgressPhase = "subagent_complete"
	PhaseSynthesis        ProgressPhase = "synthesis"
	PhaseCitation         ProgressPhase = "citation"
	PhaseComplete         ProgressPhase = "complete"
	PhaseError            ProgressPhase = "error"
)

// ProgressUpdate is a single milestone pushed to the progress collaborator.
// Within a run, Percent is non-decreasing except for the terminal error phase,
// which resets it to 0. The aggregator does not enforce this; emitters must.
type ProgressUpdate struct {
	Phase   ProgressPhase          `json:"phase"`
	Message string                 `json:"message"`
	Percent int                    `json:"percent"` // 0-100
	Details map[string]interface{} `json:"details,omitempty"`
}
