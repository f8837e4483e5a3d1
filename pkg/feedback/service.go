package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mockmate/go-mockmate/internal/log"
	"github.com/mockmate/go-mockmate/pkg/session"
)

// Saver persists feedback documents. *store.Firestore and *store.Memory
// both satisfy it.
type Saver interface {
	SaveFeedback(ctx context.Context, fb *Feedback) error
}

// CreateParams describes one feedback creation request.
type CreateParams struct {
	InterviewID string
	UserID      string
	Transcript  []session.Message
	// FeedbackID, when set, overwrites an existing feedback document
	// instead of minting a new ID.
	FeedbackID string
}

// Service generates and persists feedback for finished interviews.
type Service struct {
	generator Generator
	saver     Saver
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService creates a feedback service.
func NewService(generator Generator, saver Saver) *Service {
	return &Service{
		generator: generator,
		saver:     saver,
		logger:    log.Component("feedback"),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// CreateFeedback scores the transcript and upserts the result. The
// returned feedback carries the ID the caller should route to.
func (s *Service) CreateFeedback(ctx context.Context, params CreateParams) (*Feedback, error) {
	if params.InterviewID == "" {
		return nil, errors.New("feedback: interview ID is required")
	}
	if params.UserID == "" {
		return nil, errors.New("feedback: user ID is required")
	}

	assessment, err := s.generator.Generate(ctx, params.Transcript)
	if err != nil {
		return nil, err
	}

	fb := &Feedback{
		ID:                  params.FeedbackID,
		InterviewID:         params.InterviewID,
		UserID:              params.UserID,
		TotalScore:          assessment.TotalScore,
		CategoryScores:      assessment.CategoryScores,
		Strengths:           assessment.Strengths,
		AreasForImprovement: assessment.AreasForImprovement,
		FinalAssessment:     assessment.FinalAssessment,
		CreatedAt:           s.now(),
	}
	if fb.ID == "" {
		fb.ID = s.newID()
	}

	if err := s.saver.SaveFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("feedback: save: %w", err)
	}

	s.logger.Info("feedback created",
		"interviewId", fb.InterviewID,
		"userId", fb.UserID,
		"totalScore", fb.TotalScore)
	return fb, nil
}
