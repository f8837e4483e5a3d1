package store

import (
	"path"
	"time"

	"google.golang.org/api/firestore/v1"

	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/interview"
)

// Scalar field values marshal with omitempty, so zero strings, booleans
// and numbers must be forced onto the wire or the API receives an
// invalid empty value object.

func stringValue(s string) firestore.Value {
	return firestore.Value{StringValue: s, ForceSendFields: []string{"StringValue"}}
}

func boolValue(b bool) firestore.Value {
	return firestore.Value{BooleanValue: b, ForceSendFields: []string{"BooleanValue"}}
}

func doubleValue(f float64) firestore.Value {
	return firestore.Value{DoubleValue: f, ForceSendFields: []string{"DoubleValue"}}
}

func timeValue(t time.Time) firestore.Value {
	return firestore.Value{TimestampValue: t.UTC().Format(time.RFC3339Nano)}
}

func stringsValue(items []string) firestore.Value {
	values := make([]*firestore.Value, 0, len(items))
	for _, item := range items {
		v := stringValue(item)
		values = append(values, &v)
	}
	return firestore.Value{ArrayValue: &firestore.ArrayValue{Values: values}}
}

func stringField(fields map[string]firestore.Value, name string) string {
	return fields[name].StringValue
}

func boolField(fields map[string]firestore.Value, name string) bool {
	return fields[name].BooleanValue
}

// doubleField also accepts integer values, which other tooling writes
// for whole-number scores.
func doubleField(fields map[string]firestore.Value, name string) float64 {
	v := fields[name]
	if v.IntegerValue != 0 {
		return float64(v.IntegerValue)
	}
	return v.DoubleValue
}

func timeField(fields map[string]firestore.Value, name string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, fields[name].TimestampValue)
	if err != nil {
		return time.Time{}
	}
	return t
}

func stringsField(fields map[string]firestore.Value, name string) []string {
	arr := fields[name].ArrayValue
	if arr == nil || len(arr.Values) == 0 {
		return nil
	}
	out := make([]string, 0, len(arr.Values))
	for _, v := range arr.Values {
		if v != nil {
			out = append(out, v.StringValue)
		}
	}
	return out
}

func interviewFields(itv *interview.Interview) map[string]firestore.Value {
	return map[string]firestore.Value{
		"userId":     stringValue(itv.UserID),
		"role":       stringValue(itv.Role),
		"level":      stringValue(itv.Level),
		"type":       stringValue(itv.Type),
		"techstack":  stringsValue(itv.Techstack),
		"questions":  stringsValue(itv.Questions),
		"finalized":  boolValue(itv.Finalized),
		"coverImage": stringValue(itv.CoverImage),
		"createdAt":  timeValue(itv.CreatedAt),
	}
}

// interviewFromDoc maps a document back to the model. The interview ID
// is the document ID, not a stored field.
func interviewFromDoc(doc *firestore.Document) *interview.Interview {
	return &interview.Interview{
		ID:         path.Base(doc.Name),
		UserID:     stringField(doc.Fields, "userId"),
		Role:       stringField(doc.Fields, "role"),
		Level:      stringField(doc.Fields, "level"),
		Type:       stringField(doc.Fields, "type"),
		Techstack:  stringsField(doc.Fields, "techstack"),
		Questions:  stringsField(doc.Fields, "questions"),
		Finalized:  boolField(doc.Fields, "finalized"),
		CoverImage: stringField(doc.Fields, "coverImage"),
		CreatedAt:  timeField(doc.Fields, "createdAt"),
	}
}

func feedbackFields(fb *feedback.Feedback) map[string]firestore.Value {
	scores := make([]*firestore.Value, 0, len(fb.CategoryScores))
	for _, cs := range fb.CategoryScores {
		v := firestore.Value{MapValue: &firestore.MapValue{Fields: map[string]firestore.Value{
			"name":    stringValue(cs.Name),
			"score":   doubleValue(cs.Score),
			"comment": stringValue(cs.Comment),
		}}}
		scores = append(scores, &v)
	}

	return map[string]firestore.Value{
		"id":                  stringValue(fb.ID),
		"interviewId":         stringValue(fb.InterviewID),
		"userId":              stringValue(fb.UserID),
		"totalScore":          doubleValue(fb.TotalScore),
		"categoryScores":      {ArrayValue: &firestore.ArrayValue{Values: scores}},
		"strengths":           stringsValue(fb.Strengths),
		"areasForImprovement": stringsValue(fb.AreasForImprovement),
		"finalAssessment":     stringValue(fb.FinalAssessment),
		"createdAt":           timeValue(fb.CreatedAt),
	}
}

// feedbackFromDoc maps a document back to the model. The document ID is
// the interview and user pair; the feedback's own ID is a stored field.
func feedbackFromDoc(doc *firestore.Document) *feedback.Feedback {
	fb := &feedback.Feedback{
		ID:                  stringField(doc.Fields, "id"),
		InterviewID:         stringField(doc.Fields, "interviewId"),
		UserID:              stringField(doc.Fields, "userId"),
		TotalScore:          doubleField(doc.Fields, "totalScore"),
		Strengths:           stringsField(doc.Fields, "strengths"),
		AreasForImprovement: stringsField(doc.Fields, "areasForImprovement"),
		FinalAssessment:     stringField(doc.Fields, "finalAssessment"),
		CreatedAt:           timeField(doc.Fields, "createdAt"),
	}

	if arr := doc.Fields["categoryScores"].ArrayValue; arr != nil {
		for _, v := range arr.Values {
			if v == nil || v.MapValue == nil {
				continue
			}
			fields := v.MapValue.Fields
			fb.CategoryScores = append(fb.CategoryScores, feedback.CategoryScore{
				Name:    stringField(fields, "name"),
				Score:   doubleField(fields, "score"),
				Comment: stringField(fields, "comment"),
			})
		}
	}

	return fb
}
