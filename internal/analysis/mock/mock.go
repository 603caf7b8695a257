// Package mock provides a scriptable Analyzer for tests.
package mock

import (
	"context"
	"sync"

	"github.com/revisely/revisely/internal/analysis"
)

// Call records one Analyze invocation.
type Call struct {
	Content        string
	ProgramContext string
}

// Analyzer is a test double for analysis.Analyzer. Set AnalyzeFunc to
// script responses; every invocation is recorded.
type Analyzer struct {
	mu          sync.Mutex
	calls       []Call
	AnalyzeFunc func(ctx context.Context, content, programContext string) (*analysis.Result, error)
}

var _ analysis.Analyzer = (*Analyzer)(nil)

func (m *Analyzer) Analyze(ctx context.Context, content, programContext string) (*analysis.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Content: content, ProgramContext: programContext})
	m.mu.Unlock()

	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, content, programContext)
	}
	return &analysis.Result{}, nil
}

// Calls returns a copy of the recorded invocations.
func (m *Analyzer) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
