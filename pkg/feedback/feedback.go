// Package feedback turns a finished interview transcript into a scored
// assessment and persists it for the candidate to review.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mockmate/go-mockmate/pkg/session"
)

// Categories are the fixed scoring areas for every assessment.
var Categories = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem Solving",
	"Cultural Fit",
	"Confidence & Clarity",
}

// CategoryScore is the score and commentary for one scoring area.
type CategoryScore struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// Assessment is the raw output of a Generator, before it is attached to
// an interview and persisted.
type Assessment struct {
	TotalScore          float64         `json:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"`
}

// Feedback is a persisted assessment for one candidate's run through
// one interview.
type Feedback struct {
	ID                  string          `json:"id"`
	InterviewID         string          `json:"interviewId"`
	UserID              string          `json:"userId"`
	TotalScore          float64         `json:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// Generator produces an assessment from a call transcript.
type Generator interface {
	Generate(ctx context.Context, transcript []session.Message) (*Assessment, error)
}

// FormatTranscript renders finalized utterances one per line,
// role-prefixed, the shape the assessment prompt expects.
func FormatTranscript(transcript []session.Message) string {
	var b strings.Builder
	for _, msg := range transcript {
		fmt.Fprintf(&b, "- %s: %s\n", msg.Role, msg.Content)
	}
	return b.String()
}
