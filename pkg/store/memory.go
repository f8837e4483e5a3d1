package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/interview"
)

// Memory is an in-memory Store. Values are copied on write and on read
// so callers never alias internal state.
type Memory struct {
	mu         sync.RWMutex
	interviews map[string]*interview.Interview
	feedback   map[string]*feedback.Feedback
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		interviews: make(map[string]*interview.Interview),
		feedback:   make(map[string]*feedback.Feedback),
	}
}

// SaveInterview creates or updates an interview.
func (m *Memory) SaveInterview(ctx context.Context, itv *interview.Interview) error {
	if itv == nil {
		return errors.New("store: nil interview")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ensureInterviewDefaults(itv)
	m.interviews[itv.ID] = copyInterview(itv)
	return nil
}

// GetInterview retrieves an interview by ID.
func (m *Memory) GetInterview(ctx context.Context, id string) (*interview.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	itv, ok := m.interviews[id]
	if !ok {
		return nil, fmt.Errorf("store: interview %s: %w", id, ErrNotFound)
	}
	return copyInterview(itv), nil
}

// ListInterviewsByUser returns one user's interviews, newest first.
func (m *Memory) ListInterviewsByUser(ctx context.Context, userID string) ([]*interview.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*interview.Interview
	for _, itv := range m.interviews {
		if itv.UserID == userID {
			out = append(out, copyInterview(itv))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListLatestInterviews returns finalized interviews from other users,
// newest first.
func (m *Memory) ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]*interview.Interview, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*interview.Interview
	for _, itv := range m.interviews {
		if itv.Finalized && itv.UserID != excludeUserID {
			out = append(out, copyInterview(itv))
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveFeedback creates or updates the feedback for one interview and
// user pair.
func (m *Memory) SaveFeedback(ctx context.Context, fb *feedback.Feedback) error {
	if fb == nil {
		return errors.New("store: nil feedback")
	}
	if fb.InterviewID == "" || fb.UserID == "" {
		return errors.New("store: feedback requires interview and user IDs")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ensureFeedbackDefaults(fb)
	m.feedback[feedbackKey(fb.InterviewID, fb.UserID)] = copyFeedback(fb)
	return nil
}

// GetFeedback retrieves the feedback for an interview and user pair.
func (m *Memory) GetFeedback(ctx context.Context, interviewID, userID string) (*feedback.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fb, ok := m.feedback[feedbackKey(interviewID, userID)]
	if !ok {
		return nil, fmt.Errorf("store: feedback for interview %s: %w", interviewID, ErrNotFound)
	}
	return copyFeedback(fb), nil
}

func copyInterview(itv *interview.Interview) *interview.Interview {
	out := *itv
	out.Techstack = append([]string(nil), itv.Techstack...)
	out.Questions = append([]string(nil), itv.Questions...)
	return &out
}

func copyFeedback(fb *feedback.Feedback) *feedback.Feedback {
	out := *fb
	out.CategoryScores = append([]feedback.CategoryScore(nil), fb.CategoryScores...)
	out.Strengths = append([]string(nil), fb.Strengths...)
	out.AreasForImprovement = append([]string(nil), fb.AreasForImprovement...)
	return &out
}
