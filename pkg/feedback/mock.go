package feedback

import (
	"context"
	"sync"

	"github.com/mockmate/go-mockmate/pkg/session"
)

// MockGenerator is a mock implementation of Generator for testing.
type MockGenerator struct {
	mu sync.Mutex

	// GenerateFunc overrides the default canned assessment.
	GenerateFunc func(ctx context.Context, transcript []session.Message) (*Assessment, error)

	// Calls records every transcript passed to Generate.
	Calls [][]session.Message
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, transcript []session.Message) (*Assessment, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, transcript)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, transcript)
	}

	scores := make([]CategoryScore, len(Categories))
	for i, name := range Categories {
		scores[i] = CategoryScore{Name: name, Score: 70, Comment: "Solid showing."}
	}
	return &Assessment{
		TotalScore:          70,
		CategoryScores:      scores,
		Strengths:           []string{"Clear communication"},
		AreasForImprovement: []string{"Go deeper on fundamentals"},
		FinalAssessment:     "A solid performance with room to grow.",
	}, nil
}

// Reset clears recorded calls.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

var _ Generator = (*MockGenerator)(nil)
