// Package genai is a minimal client for the Gemini generateContent REST
// API, shared by the question and feedback generators.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mockmate/go-mockmate/internal/httpc"
	"github.com/mockmate/go-mockmate/internal/log"
)

// ErrMissingAPIKey indicates no Gemini API key was configured.
var ErrMissingAPIKey = errors.New("genai: API key is required")

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash-001"

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config configures a Client.
type Config struct {
	APIKey      string
	Model       string        // default DefaultModel
	BaseURL     string        // default the public Gemini endpoint
	Temperature float64       // default 0.4
	Timeout     time.Duration // default 30s
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	http        *http.Client
	logger      *slog.Logger
}

// New creates a Gemini client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.4
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		http:        httpc.NewClient(cfg.Timeout),
		logger:      log.Component("genai"),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// GenerateText sends the prompt and returns the first candidate's text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, nil)
}

// GenerateJSON sends the prompt with an enforced response schema and
// returns the raw JSON document the model produced.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema map[string]any) ([]byte, error) {
	if schema == nil {
		return nil, errors.New("genai: schema is required")
	}
	text, err := c.generate(ctx, prompt, schema)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// generateRequest is the generateContent request body.
type generateRequest struct {
	Contents         []content       `json:"contents"`
	GenerationConfig *generateConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateConfig struct {
	Temperature      float64        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

// generateResponse is the subset of the response we consume.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) generate(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	genCfg := &generateConfig{Temperature: c.temperature}
	if schema != nil {
		genCfg.ResponseMimeType = "application/json"
		genCfg.ResponseSchema = schema
	}

	payload := generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: genCfg,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("genai: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("genai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("genai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("genai: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("genai: API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("genai: parse response: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("genai: %s", result.Error.Message)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("genai: empty response")
	}

	c.logger.Debug("generated", "model", c.model, "bytes", len(respBody))
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
