package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/interview"
	"github.com/mockmate/go-mockmate/pkg/session"
	"github.com/mockmate/go-mockmate/pkg/store"
	"github.com/mockmate/go-mockmate/pkg/vapi"
)

var _ TokenMinter = (*vapi.TokenIssuer)(nil)

// stubMinter issues "<token>-<userID>" and counts calls.
type stubMinter struct {
	mu    sync.Mutex
	token string
	err   error
	ttl   time.Duration
	calls int
}

func (m *stubMinter) Issue(userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.token + "-" + userID, nil
}

func (m *stubMinter) TTL() time.Duration {
	if m.ttl > 0 {
		return m.ttl
	}
	return time.Hour
}

func (m *stubMinter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestServer(t *testing.T, mutate ...func(*Config)) (*Server, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	cfg := Config{
		Store: mem,
		Questions: interview.QuestionGeneratorFunc(func(ctx context.Context, req interview.QuestionRequest) ([]string, error) {
			return []string{"What is a goroutine?", "Explain channels."}, nil
		}),
		Feedback:  feedback.NewService(&feedback.MockGenerator{}, mem),
		Minter:    &stubMinter{token: "jwt"},
		PublicKey: "public-key",
		AppName:   "mockmate-test",
		Version:   "test",
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	t.Cleanup(srv.hubCancel)
	return srv, mem
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// doJSON runs the request against the app and decodes the JSON
// response into out when it is non-nil.
func doJSON(t *testing.T, srv *Server, req *http.Request, out any) int {
	t.Helper()

	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestNewServerValidation(t *testing.T) {
	mem := store.NewMemory()
	gen := interview.QuestionGeneratorFunc(func(ctx context.Context, req interview.QuestionRequest) ([]string, error) {
		return []string{"q"}, nil
	})
	svc := feedback.NewService(&feedback.MockGenerator{}, mem)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing store", Config{Questions: gen, Feedback: svc}},
		{"missing questions", Config{Store: mem, Feedback: svc}},
		{"missing feedback", Config{Store: mem, Questions: gen}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServer(tt.cfg); err == nil {
				t.Error("NewServer() error = nil, want error")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]any
	status := doJSON(t, srv, httptest.NewRequest("GET", "/health", nil), &body)

	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", status, fiber.StatusOK)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["service"] != "mockmate-test" {
		t.Errorf("service = %v, want mockmate-test", body["service"])
	}
}

func TestTokenEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var body vapi.TokenResponse
	status := doJSON(t, srv, jsonRequest(t, "POST", "/api/vapi/token", vapi.TokenRequest{UserID: "u1"}), &body)

	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", status, fiber.StatusOK)
	}
	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.Token != "jwt-u1" {
		t.Errorf("token = %s, want jwt-u1", body.Token)
	}
}

func TestTokenEndpointCachesPerUser(t *testing.T) {
	minter := &stubMinter{token: "jwt"}
	srv, _ := newTestServer(t, func(cfg *Config) { cfg.Minter = minter })

	for i := 0; i < 2; i++ {
		var body vapi.TokenResponse
		doJSON(t, srv, jsonRequest(t, "POST", "/api/vapi/token", vapi.TokenRequest{UserID: "u1"}), &body)
		if body.Token != "jwt-u1" {
			t.Fatalf("token = %s, want jwt-u1", body.Token)
		}
	}
	if got := minter.callCount(); got != 1 {
		t.Errorf("mint calls after repeat request = %d, want 1", got)
	}

	var body vapi.TokenResponse
	doJSON(t, srv, jsonRequest(t, "POST", "/api/vapi/token", vapi.TokenRequest{UserID: "u2"}), &body)
	if body.Token != "jwt-u2" {
		t.Errorf("token = %s, want jwt-u2", body.Token)
	}
	if got := minter.callCount(); got != 2 {
		t.Errorf("mint calls after second user = %d, want 2", got)
	}
}

func TestTokenEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	var body vapi.TokenResponse
	status := doJSON(t, srv, jsonRequest(t, "POST", "/api/vapi/token", vapi.TokenRequest{}), &body)
	if status != fiber.StatusBadRequest {
		t.Errorf("empty userId status = %d, want %d", status, fiber.StatusBadRequest)
	}
	if body.Success {
		t.Error("success = true, want false")
	}

	req := httptest.NewRequest("POST", "/api/vapi/token", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	if status := doJSON(t, srv, req, nil); status != fiber.StatusBadRequest {
		t.Errorf("malformed body status = %d, want %d", status, fiber.StatusBadRequest)
	}
}

func TestTokenEndpointFallsBackToPublicKey(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *Config) {
		cfg.Minter = &stubMinter{err: errors.New("no signing key")}
	})

	var body vapi.TokenResponse
	status := doJSON(t, srv, jsonRequest(t, "POST", "/api/vapi/token", vapi.TokenRequest{UserID: "u1"}), &body)

	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", status, fiber.StatusOK)
	}
	if body.Token != "public-key" {
		t.Errorf("token = %s, want public-key", body.Token)
	}
}

func TestTokenEndpointMintFailure(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *Config) {
		cfg.Minter = &stubMinter{err: errors.New("no signing key")}
		cfg.PublicKey = ""
	})

	var body vapi.TokenResponse
	status := doJSON(t, srv, jsonRequest(t, "POST", "/api/vapi/token", vapi.TokenRequest{UserID: "u1"}), &body)

	if status != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", status, fiber.StatusInternalServerError)
	}
	if body.Success {
		t.Error("success = true, want false")
	}
}

func TestGenerateInterview(t *testing.T) {
	srv, mem := newTestServer(t)

	var body struct {
		Success     bool   `json:"success"`
		InterviewID string `json:"interviewId"`
	}
	status := doJSON(t, srv, jsonRequest(t, "POST", "/api/vapi/generate", map[string]any{
		"role":      "Frontend Developer",
		"level":     "Junior",
		"type":      "technical",
		"techstack": "React, TypeScript",
		"amount":    2,
		"userid":    "u1",
	}), &body)

	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, want %d", status, fiber.StatusCreated)
	}
	if !body.Success || body.InterviewID == "" {
		t.Fatalf("body = %+v, want success with interview ID", body)
	}

	itv, err := mem.GetInterview(context.Background(), body.InterviewID)
	if err != nil {
		t.Fatalf("GetInterview() error: %v", err)
	}
	if !itv.Finalized {
		t.Error("interview not finalized")
	}
	if want := []string{"React", "TypeScript"}; !reflect.DeepEqual(itv.Techstack, want) {
		t.Errorf("techstack = %v, want %v", itv.Techstack, want)
	}
	if len(itv.Questions) != 2 {
		t.Errorf("questions = %d, want 2", len(itv.Questions))
	}
	if !strings.HasPrefix(itv.CoverImage, "/covers/") {
		t.Errorf("cover image = %s, want /covers/ prefix", itv.CoverImage)
	}
}

func TestGenerateInterviewValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing role", map[string]any{"userid": "u1"}},
		{"missing userid", map[string]any{"role": "Backend Engineer"}},
		{"amount too large", map[string]any{"role": "Backend Engineer", "userid": "u1", "amount": 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := doJSON(t, srv, jsonRequest(t, "POST", "/api/vapi/generate", tt.body), nil)
			if status != fiber.StatusBadRequest {
				t.Errorf("status = %d, want %d", status, fiber.StatusBadRequest)
			}
		})
	}
}

func TestGenerateInterviewGeneratorFailure(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *Config) {
		cfg.Questions = interview.QuestionGeneratorFunc(func(ctx context.Context, req interview.QuestionRequest) ([]string, error) {
			return nil, errors.New("model unavailable")
		})
	})

	status := doJSON(t, srv, jsonRequest(t, "POST", "/api/vapi/generate", map[string]any{
		"role":   "Backend Engineer",
		"userid": "u1",
	}), nil)
	if status != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want %d", status, fiber.StatusInternalServerError)
	}
}

func TestGetInterview(t *testing.T) {
	srv, mem := newTestServer(t)

	itv := &interview.Interview{UserID: "u1", Role: "Backend Engineer"}
	if err := mem.SaveInterview(context.Background(), itv); err != nil {
		t.Fatalf("SaveInterview() error: %v", err)
	}

	var body struct {
		Success   bool                 `json:"success"`
		Interview *interview.Interview `json:"interview"`
	}
	status := doJSON(t, srv, httptest.NewRequest("GET", "/api/interviews/"+itv.ID, nil), &body)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", status, fiber.StatusOK)
	}
	if body.Interview == nil || body.Interview.Role != "Backend Engineer" {
		t.Errorf("interview = %+v, want role Backend Engineer", body.Interview)
	}

	status = doJSON(t, srv, httptest.NewRequest("GET", "/api/interviews/missing", nil), nil)
	if status != fiber.StatusNotFound {
		t.Errorf("missing interview status = %d, want %d", status, fiber.StatusNotFound)
	}
}

func TestListInterviews(t *testing.T) {
	srv, mem := newTestServer(t)

	for _, uid := range []string{"u1", "u1", "u2"} {
		if err := mem.SaveInterview(context.Background(), &interview.Interview{UserID: uid, Role: "Backend Engineer"}); err != nil {
			t.Fatalf("SaveInterview() error: %v", err)
		}
	}

	var body struct {
		Success    bool                   `json:"success"`
		Interviews []*interview.Interview `json:"interviews"`
	}
	status := doJSON(t, srv, httptest.NewRequest("GET", "/api/interviews?userId=u1", nil), &body)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", status, fiber.StatusOK)
	}
	if len(body.Interviews) != 2 {
		t.Errorf("interviews = %d, want 2", len(body.Interviews))
	}

	status = doJSON(t, srv, httptest.NewRequest("GET", "/api/interviews", nil), nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("missing userId status = %d, want %d", status, fiber.StatusBadRequest)
	}
}

func TestLatestInterviews(t *testing.T) {
	srv, mem := newTestServer(t)

	seed := []*interview.Interview{
		{UserID: "me", Role: "A", Finalized: true},
		{UserID: "other", Role: "B", Finalized: true},
		{UserID: "other", Role: "C", Finalized: false},
	}
	for _, itv := range seed {
		if err := mem.SaveInterview(context.Background(), itv); err != nil {
			t.Fatalf("SaveInterview() error: %v", err)
		}
	}

	var body struct {
		Success    bool                   `json:"success"`
		Interviews []*interview.Interview `json:"interviews"`
	}
	status := doJSON(t, srv, httptest.NewRequest("GET", "/api/interviews/latest?userId=me", nil), &body)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", status, fiber.StatusOK)
	}
	if len(body.Interviews) != 1 || body.Interviews[0].Role != "B" {
		t.Errorf("interviews = %+v, want only role B", body.Interviews)
	}
}

func TestCreateFeedbackEndpoint(t *testing.T) {
	srv, mem := newTestServer(t)

	var body struct {
		Success    bool   `json:"success"`
		FeedbackID string `json:"feedbackId"`
	}
	status := doJSON(t, srv, jsonRequest(t, "POST", "/api/feedback", map[string]any{
		"interviewId": "itv-1",
		"userId":      "u1",
		"transcript": []map[string]string{
			{"role": "assistant", "content": "Tell me about yourself."},
			{"role": "user", "content": "I build Go services."},
		},
	}), &body)

	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, want %d", status, fiber.StatusCreated)
	}
	if !body.Success || body.FeedbackID == "" {
		t.Fatalf("body = %+v, want success with feedback ID", body)
	}

	fb, err := mem.GetFeedback(context.Background(), "itv-1", "u1")
	if err != nil {
		t.Fatalf("GetFeedback() error: %v", err)
	}
	if fb.ID != body.FeedbackID {
		t.Errorf("stored feedback ID = %s, want %s", fb.ID, body.FeedbackID)
	}
}

func TestCreateFeedbackValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	status := doJSON(t, srv, jsonRequest(t, "POST", "/api/feedback", map[string]any{
		"interviewId": "itv-1",
		"userId":      "u1",
		"transcript":  []map[string]string{},
	}), nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("empty transcript status = %d, want %d", status, fiber.StatusBadRequest)
	}
}

func TestCreateFeedbackGeneratorFailure(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *Config) {
		cfg.Feedback = feedback.NewService(&feedback.MockGenerator{
			GenerateFunc: func(ctx context.Context, transcript []session.Message) (*feedback.Assessment, error) {
				return nil, errors.New("model unavailable")
			},
		}, store.NewMemory())
	})

	status := doJSON(t, srv, jsonRequest(t, "POST", "/api/feedback", map[string]any{
		"interviewId": "itv-1",
		"userId":      "u1",
		"transcript":  []map[string]string{{"role": "user", "content": "hi"}},
	}), nil)
	if status != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want %d", status, fiber.StatusInternalServerError)
	}
}

func TestGetFeedback(t *testing.T) {
	srv, mem := newTestServer(t)

	fb := &feedback.Feedback{InterviewID: "itv-1", UserID: "u1", TotalScore: 70}
	if err := mem.SaveFeedback(context.Background(), fb); err != nil {
		t.Fatalf("SaveFeedback() error: %v", err)
	}

	var body struct {
		Success  bool               `json:"success"`
		Feedback *feedback.Feedback `json:"feedback"`
	}
	status := doJSON(t, srv, httptest.NewRequest("GET", "/api/feedback?interviewId=itv-1&userId=u1", nil), &body)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", status, fiber.StatusOK)
	}
	if body.Feedback == nil || body.Feedback.TotalScore != 70 {
		t.Errorf("feedback = %+v, want total score 70", body.Feedback)
	}

	status = doJSON(t, srv, httptest.NewRequest("GET", "/api/feedback?interviewId=missing&userId=u1", nil), nil)
	if status != fiber.StatusNotFound {
		t.Errorf("missing feedback status = %d, want %d", status, fiber.StatusNotFound)
	}

	status = doJSON(t, srv, httptest.NewRequest("GET", "/api/feedback?interviewId=itv-1", nil), nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("missing userId status = %d, want %d", status, fiber.StatusBadRequest)
	}
}
