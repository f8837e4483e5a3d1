package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mockmate/go-mockmate/internal/genai"
	"github.com/mockmate/go-mockmate/internal/log"
	"github.com/mockmate/go-mockmate/pkg/session"
)

// assessmentSchema forces the model to return the exact assessment
// shape, with category names drawn from the fixed list.
var assessmentSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"totalScore": map[string]any{"type": "NUMBER"},
		"categoryScores": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"name":    map[string]any{"type": "STRING", "enum": Categories},
					"score":   map[string]any{"type": "NUMBER"},
					"comment": map[string]any{"type": "STRING"},
				},
				"required": []string{"name", "score", "comment"},
			},
		},
		"strengths": map[string]any{
			"type":  "ARRAY",
			"items": map[string]any{"type": "STRING"},
		},
		"areasForImprovement": map[string]any{
			"type":  "ARRAY",
			"items": map[string]any{"type": "STRING"},
		},
		"finalAssessment": map[string]any{"type": "STRING"},
	},
	"required": []string{
		"totalScore", "categoryScores", "strengths",
		"areasForImprovement", "finalAssessment",
	},
}

const assessmentPrompt = `You are a professional interviewer analyzing a mock interview. Evaluate the candidate against the structured categories below. Be thorough and detailed in your analysis. Don't be lenient with the candidate: if there are mistakes or areas for improvement, point them out.

Transcript:
%s

Score the candidate from 0 to 100 in each of the following areas. Do not add categories other than the ones provided:
- Communication Skills: clarity, articulation, structured responses.
- Technical Knowledge: understanding of the key concepts for the role.
- Problem Solving: ability to analyze problems and propose solutions.
- Cultural Fit: alignment with company values and the job role.
- Confidence & Clarity: confidence in responses, engagement with the interviewer and clarity of thought.`

// GeminiGenerator produces assessments with the Gemini API, holding the
// model to a JSON response schema.
type GeminiGenerator struct {
	client *genai.Client
	logger *slog.Logger
}

// NewGeminiGenerator creates a generator on top of the given client.
func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{
		client: client,
		logger: log.Component("feedback"),
	}
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, transcript []session.Message) (*Assessment, error) {
	if len(transcript) == 0 {
		return nil, errors.New("feedback: transcript is empty")
	}

	prompt := fmt.Sprintf(assessmentPrompt, FormatTranscript(transcript))

	raw, err := g.client.GenerateJSON(ctx, prompt, assessmentSchema)
	if err != nil {
		return nil, fmt.Errorf("feedback: generate assessment: %w", err)
	}

	var assessment Assessment
	if err := json.Unmarshal(raw, &assessment); err != nil {
		return nil, fmt.Errorf("feedback: parse assessment: %w", err)
	}
	if len(assessment.CategoryScores) == 0 || assessment.FinalAssessment == "" {
		return nil, errors.New("feedback: incomplete assessment")
	}

	g.logger.Debug("assessment generated",
		"model", g.client.Model(),
		"totalScore", assessment.TotalScore,
		"categories", len(assessment.CategoryScores))
	return &assessment, nil
}

var _ Generator = (*GeminiGenerator)(nil)
