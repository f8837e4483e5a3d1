package feedback

import (
	"testing"

	"github.com/mockmate/go-mockmate/pkg/session"
	"github.com/mockmate/go-mockmate/pkg/vapi"
)

func TestFormatTranscript(t *testing.T) {
	transcript := []session.Message{
		{Role: vapi.RoleAssistant, Content: "Tell me about channels."},
		{Role: vapi.RoleUser, Content: "They move values between goroutines."},
	}

	got := FormatTranscript(transcript)
	want := "- assistant: Tell me about channels.\n- user: They move values between goroutines.\n"
	if got != want {
		t.Errorf("FormatTranscript = %q, want %q", got, want)
	}
}

func TestFormatTranscriptEmpty(t *testing.T) {
	if got := FormatTranscript(nil); got != "" {
		t.Errorf("FormatTranscript(nil) = %q, want empty", got)
	}
}

func TestCategories(t *testing.T) {
	if len(Categories) != 5 {
		t.Fatalf("Categories = %d, want 5", len(Categories))
	}
	want := map[string]bool{
		"Communication Skills": true,
		"Technical Knowledge":  true,
		"Problem Solving":      true,
		"Cultural Fit":         true,
		"Confidence & Clarity": true,
	}
	for _, name := range Categories {
		if !want[name] {
			t.Errorf("unexpected category %q", name)
		}
	}
}
