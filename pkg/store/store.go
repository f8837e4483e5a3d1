// Package store persists interviews and feedback. Two implementations
// share one interface: Memory for development and tests, and Firestore
// for production, backed by the Firestore REST API.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/interview"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("store: not found")

// defaultLatestLimit caps the community feed when the caller does not
// ask for a specific page size.
const defaultLatestLimit = 20

// Store defines the persistence operations for interviews and feedback.
type Store interface {
	// SaveInterview creates or updates an interview. A missing ID and
	// creation time are assigned and written back to the value.
	SaveInterview(ctx context.Context, itv *interview.Interview) error

	// GetInterview retrieves an interview by ID.
	GetInterview(ctx context.Context, id string) (*interview.Interview, error)

	// ListInterviewsByUser returns one user's interviews, newest first.
	ListInterviewsByUser(ctx context.Context, userID string) ([]*interview.Interview, error)

	// ListLatestInterviews returns finalized interviews from other
	// users, newest first. A non-positive limit means 20.
	ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]*interview.Interview, error)

	// SaveFeedback creates or updates the feedback for one interview
	// and user pair. Saving again for the same pair overwrites.
	SaveFeedback(ctx context.Context, fb *feedback.Feedback) error

	// GetFeedback retrieves the feedback for an interview and user pair.
	GetFeedback(ctx context.Context, interviewID, userID string) (*feedback.Feedback, error)
}

// feedbackKey derives the document ID for an interview and user pair,
// so regenerated feedback overwrites instead of piling up.
func feedbackKey(interviewID, userID string) string {
	return interviewID + "_" + userID
}

// ensureInterviewDefaults assigns an ID and creation time when missing,
// writing them back so the caller sees the stored values.
func ensureInterviewDefaults(itv *interview.Interview) {
	if itv.ID == "" {
		itv.ID = uuid.New().String()
	}
	if itv.CreatedAt.IsZero() {
		itv.CreatedAt = time.Now()
	}
}

func ensureFeedbackDefaults(fb *feedback.Feedback) {
	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}
}

func sortNewestFirst(interviews []*interview.Interview) {
	sort.Slice(interviews, func(i, j int) bool {
		return interviews[i].CreatedAt.After(interviews[j].CreatedAt)
	})
}

// Both implementations back the feedback service directly.
var (
	_ Store          = (*Memory)(nil)
	_ Store          = (*Firestore)(nil)
	_ feedback.Saver = (*Memory)(nil)
	_ feedback.Saver = (*Firestore)(nil)
)
