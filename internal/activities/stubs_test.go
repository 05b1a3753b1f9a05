package activities

import (
	"context"
	"sync"

	"github.com/fathomlabs/orchestrator/internal/config"
	"github.com/fathomlabs/orchestrator/internal/llm"
	"github.com/fathomlabs/orchestrator/internal/progress"
	"github.com/fathomlabs/orchestrator/internal/search"
	"go.uber.org/zap"
)

// scriptedLLM replays canned responses in order, failing over to the last
// one. A nil response at a position yields the scripted error instead.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []*llm.CompletionResponse
	errs      []error
	calls     int
	requests  []llm.CompletionRequest
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	if s.errs != nil && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.responses[i], nil
}

type stubSearch struct {
	results []search.Result
	err     error
	calls   int
}

func (s *stubSearch) Search(_ context.Context, _ string, _ search.Params) ([]search.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func newTestActivities(llmClient llm.Client, searchClient search.Client) *Activities {
	return NewActivities(
		llmClient,
		searchClient,
		config.Default(),
		zap.NewNop(),
		progress.Get(),
		progress.NewMirror(nil, zap.NewNop()),
		nil,
	)
}
