package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mockmate/go-mockmate/internal/genai"
	"github.com/mockmate/go-mockmate/internal/log"
)

// QuestionRequest describes the interview to prepare questions for.
type QuestionRequest struct {
	Role      string
	Level     string
	Type      string // behavioural, technical or mixed
	Techstack []string
	Amount    int
}

// QuestionGenerator prepares the question list for a new interview.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, req QuestionRequest) ([]string, error)
}

// QuestionGeneratorFunc adapts a function to the QuestionGenerator
// interface.
type QuestionGeneratorFunc func(ctx context.Context, req QuestionRequest) ([]string, error)

// GenerateQuestions implements QuestionGenerator.
func (f QuestionGeneratorFunc) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]string, error) {
	return f(ctx, req)
}

// questionsSchema holds the model to a plain JSON array of questions.
var questionsSchema = map[string]any{
	"type":  "ARRAY",
	"items": map[string]any{"type": "STRING"},
}

const questionsPrompt = `Prepare questions for a job interview.
The job role is %s.
The job experience level is %s.
The tech stack used in the job is: %s.
The focus between behavioural and technical questions should lean towards: %s.
The amount of questions required is: %d.
Return only the questions. The questions will be read aloud by a voice agent, so do not use "/", "*" or other special characters that could break the voice.`

// GeminiQuestionGenerator generates questions with the Gemini API.
type GeminiQuestionGenerator struct {
	client *genai.Client
	logger *slog.Logger
}

// NewGeminiQuestionGenerator creates a generator on top of the given
// client.
func NewGeminiQuestionGenerator(client *genai.Client) *GeminiQuestionGenerator {
	return &GeminiQuestionGenerator{
		client: client,
		logger: log.Component("questions"),
	}
}

// GenerateQuestions implements QuestionGenerator.
func (g *GeminiQuestionGenerator) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]string, error) {
	if req.Role == "" {
		return nil, errors.New("interview: role is required")
	}
	amount := req.Amount
	if amount <= 0 {
		amount = 5
	}
	if amount > 20 {
		amount = 20
	}

	prompt := fmt.Sprintf(questionsPrompt,
		req.Role, req.Level, strings.Join(req.Techstack, ", "), req.Type, amount)

	raw, err := g.client.GenerateJSON(ctx, prompt, questionsSchema)
	if err != nil {
		return nil, fmt.Errorf("interview: generate questions: %w", err)
	}

	var questions []string
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("interview: parse questions: %w", err)
	}

	out := questions[:0]
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("interview: no questions generated")
	}

	g.logger.Debug("questions generated", "role", req.Role, "count", len(out))
	return out, nil
}

var _ QuestionGenerator = (*GeminiQuestionGenerator)(nil)
