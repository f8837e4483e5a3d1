package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mockmate/go-mockmate/internal/httpc"
)

// Call is a call resource returned by the REST API.
type Call struct {
	ID        string        `json:"id"`
	OrgID     string        `json:"orgId,omitempty"`
	Status    string        `json:"status,omitempty"`
	Transport CallTransport `json:"transport"`
	CreatedAt time.Time     `json:"createdAt,omitempty"`
}

// CallTransport describes how the call's media and events are carried.
// For websocket calls the platform returns a pre-authorized URL to dial.
type CallTransport struct {
	Provider         string `json:"provider"`
	WebsocketCallURL string `json:"websocketCallUrl,omitempty"`
}

type createCallRequest struct {
	WorkflowID         string         `json:"workflowId,omitempty"`
	AssistantID        string         `json:"assistantId,omitempty"`
	WorkflowOverrides  *callOverrides `json:"workflowOverrides,omitempty"`
	AssistantOverrides *callOverrides `json:"assistantOverrides,omitempty"`
	Transport          *transportSpec `json:"transport,omitempty"`
}

type callOverrides struct {
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

type transportSpec struct {
	Provider    string           `json:"provider"`
	AudioFormat *audioFormatSpec `json:"audioFormat,omitempty"`
}

type audioFormatSpec struct {
	Format     string `json:"format"`
	Container  string `json:"container"`
	SampleRate int    `json:"sampleRate"`
}

const websocketTransportProvider = "vapi.websocket"

// apiClient handles REST API calls to the platform.
type apiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// newAPIClient creates a new API client.
func newAPIClient(apiKey, baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpc.NewClient(timeout),
	}
}

// CreateCall creates a websocket-transport call for the given workflow
// or assistant, forwarding variable values to the conversation.
func (c *apiClient) CreateCall(ctx context.Context, cfg *Config, variables map[string]string) (*Call, error) {
	reqBody := createCallRequest{
		WorkflowID:  cfg.WorkflowID,
		AssistantID: cfg.AssistantID,
		Transport: &transportSpec{
			Provider: websocketTransportProvider,
		},
	}

	if cfg.AudioEnabled {
		reqBody.Transport.AudioFormat = &audioFormatSpec{
			Format:     "pcm_s16le",
			Container:  "raw",
			SampleRate: cfg.SampleRate,
		}
	}

	if len(variables) > 0 {
		overrides := &callOverrides{VariableValues: variables}
		if cfg.WorkflowID != "" {
			reqBody.WorkflowOverrides = overrides
		} else {
			reqBody.AssistantOverrides = overrides
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apiErrorFromResponse(resp)
	}

	var call Call
	if err := json.NewDecoder(resp.Body).Decode(&call); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &call, nil
}

// GetCall retrieves a call by ID.
func (c *apiClient) GetCall(ctx context.Context, callID string) (*Call, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/call/"+callID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiErrorFromResponse(resp)
	}

	var call Call
	if err := json.NewDecoder(resp.Body).Decode(&call); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &call, nil
}

// apiErrorFromResponse builds an APIError from a non-2xx response.
func apiErrorFromResponse(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var apiResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(bodyBytes, &apiResp)

	msg := apiResp.Message
	if msg == "" {
		msg = string(bodyBytes)
	}

	return NewAPIError(resp.StatusCode, apiResp.Error, msg)
}
