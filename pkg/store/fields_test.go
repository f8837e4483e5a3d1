package store

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/firestore/v1"

	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/interview"
)

func TestInterviewFieldsRoundTrip(t *testing.T) {
	itv := &interview.Interview{
		ID:         "itv-1",
		UserID:     "u1",
		Role:       "Backend Engineer",
		Level:      "Senior",
		Type:       "Technical",
		Techstack:  []string{"go", "postgres"},
		Questions:  []string{"What is a goroutine?"},
		Finalized:  true,
		CoverImage: "/covers/adobe.png",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	doc := &firestore.Document{
		Name:   "projects/p/databases/(default)/documents/interviews/itv-1",
		Fields: interviewFields(itv),
	}

	got := interviewFromDoc(doc)
	if !reflect.DeepEqual(got, itv) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, itv)
	}
}

func TestInterviewFieldsZeroValues(t *testing.T) {
	itv := &interview.Interview{ID: "itv-2", CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	doc := &firestore.Document{
		Name:   "projects/p/databases/(default)/documents/interviews/itv-2",
		Fields: interviewFields(itv),
	}

	got := interviewFromDoc(doc)
	if got.Techstack != nil || got.Questions != nil {
		t.Errorf("empty slices should stay nil, got %v and %v", got.Techstack, got.Questions)
	}
	if got.Finalized {
		t.Error("Finalized should round trip as false")
	}
	if got.UserID != "" {
		t.Errorf("UserID = %q, want empty", got.UserID)
	}
}

func TestFeedbackFieldsRoundTrip(t *testing.T) {
	fb := &feedback.Feedback{
		ID:          "fb-1",
		InterviewID: "itv-1",
		UserID:      "u1",
		TotalScore:  72.5,
		CategoryScores: []feedback.CategoryScore{
			{Name: "Communication Skills", Score: 80, Comment: "Clear and structured."},
			{Name: "Technical Knowledge", Score: 65, Comment: "Gaps around concurrency."},
		},
		Strengths:           []string{"Calm under pressure"},
		AreasForImprovement: []string{"Deepen database knowledge"},
		FinalAssessment:     "A promising candidate.",
		CreatedAt:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	doc := &firestore.Document{
		Name:   "projects/p/databases/(default)/documents/feedback/itv-1_u1",
		Fields: feedbackFields(fb),
	}

	got := feedbackFromDoc(doc)
	if !reflect.DeepEqual(got, fb) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, fb)
	}
}

func TestZeroScalarValuesSurviveMarshal(t *testing.T) {
	tests := []struct {
		name  string
		value firestore.Value
		want  string
	}{
		{"empty string", stringValue(""), `"stringValue"`},
		{"false bool", boolValue(false), `"booleanValue"`},
		{"zero double", doubleValue(0), `"doubleValue"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(&tt.value)
			if err != nil {
				t.Fatalf("marshal error: %v", err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("marshal = %s, want it to contain %s", data, tt.want)
			}
		})
	}
}

func TestDoubleFieldReadsIntegers(t *testing.T) {
	fields := map[string]firestore.Value{"score": {IntegerValue: 85}}

	if got := doubleField(fields, "score"); got != 85 {
		t.Errorf("doubleField = %v, want 85", got)
	}
}

func TestFeedbackKey(t *testing.T) {
	if got := feedbackKey("itv-1", "u1"); got != "itv-1_u1" {
		t.Errorf("feedbackKey = %q, want %q", got, "itv-1_u1")
	}
}
