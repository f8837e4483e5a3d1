package interview

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/session"
	"github.com/mockmate/go-mockmate/pkg/vapi"
)

// The feedback service must remain a valid creator.
var _ FeedbackCreator = (*feedback.Service)(nil)

type recordingNav struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNav) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *recordingNav) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

type fakeCreator struct {
	mu     sync.Mutex
	params []feedback.CreateParams
	err    error
}

func (f *fakeCreator) CreateFeedback(ctx context.Context, params feedback.CreateParams) (*feedback.Feedback, error) {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &feedback.Feedback{
		ID:          "fb-1",
		InterviewID: params.InterviewID,
		UserID:      params.UserID,
	}, nil
}

var testInterview = &Interview{
	ID:        "itv-1",
	UserID:    "user-1",
	Role:      "Backend Engineer",
	Questions: []string{"What is a goroutine?", "Explain channels."},
}

func newGenerateController(t *testing.T) (*Controller, *vapi.Mock, *recordingNav) {
	t.Helper()
	engine := vapi.NewMock()
	nav := &recordingNav{}
	ctrl, err := NewController(session.New(engine), ControllerConfig{
		Purpose:   PurposeGenerate,
		Profile:   Profile{Name: "Jane", ID: "user-1"},
		Navigator: nav,
	})
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}
	return ctrl, engine, nav
}

func newInterviewController(t *testing.T, creator FeedbackCreator) (*Controller, *vapi.Mock, *recordingNav) {
	t.Helper()
	engine := vapi.NewMock()
	nav := &recordingNav{}
	ctrl, err := NewController(session.New(engine), ControllerConfig{
		Purpose:   PurposeInterview,
		Profile:   Profile{Name: "Jane", ID: "user-1"},
		Interview: testInterview,
		Feedback:  creator,
		Navigator: nav,
	})
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}
	return ctrl, engine, nav
}

func TestNewControllerValidation(t *testing.T) {
	engine := vapi.NewMock()

	tests := []struct {
		name string
		sess *session.Session
		cfg  ControllerConfig
	}{
		{"nil session", nil, ControllerConfig{}},
		{"unknown purpose", session.New(engine), ControllerConfig{Purpose: Purpose("review")}},
		{"interview without interview", session.New(engine), ControllerConfig{Purpose: PurposeInterview}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewController(tt.sess, tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStartCallVariables(t *testing.T) {
	ctrl, engine, _ := newInterviewController(t, &fakeCreator{})

	if err := ctrl.StartCall(context.Background()); err != nil {
		t.Fatalf("StartCall error: %v", err)
	}

	if len(engine.StartCalls) != 1 {
		t.Fatalf("engine StartCalls = %d, want 1", len(engine.StartCalls))
	}
	vars := engine.StartCalls[0]
	if vars["username"] != "Jane" || vars["userid"] != "user-1" {
		t.Errorf("vars = %v", vars)
	}
	want := "1. What is a goroutine?\n2. Explain channels."
	if vars["questions"] != want {
		t.Errorf("questions = %q, want %q", vars["questions"], want)
	}
}

func TestStartCallGenerateHasNoQuestions(t *testing.T) {
	ctrl, engine, _ := newGenerateController(t)

	if err := ctrl.StartCall(context.Background()); err != nil {
		t.Fatalf("StartCall error: %v", err)
	}
	if _, ok := engine.StartCalls[0]["questions"]; ok {
		t.Error("generate calls must not carry questions")
	}
}

func TestStartCallWhileActiveIgnored(t *testing.T) {
	ctrl, engine, _ := newGenerateController(t)

	_ = ctrl.StartCall(context.Background())
	engine.SimulateCallStart()

	if err := ctrl.StartCall(context.Background()); err != nil {
		t.Errorf("second StartCall error = %v, want nil", err)
	}
	if len(engine.StartCalls) != 1 {
		t.Errorf("engine StartCalls = %d, want 1", len(engine.StartCalls))
	}
}

func TestStartCallEngineFailure(t *testing.T) {
	engine := vapi.NewMock()
	wantErr := errors.New("workflow missing")
	engine.StartFunc = func(ctx context.Context, variables map[string]string) error {
		return wantErr
	}
	nav := &recordingNav{}
	ctrl, err := NewController(session.New(engine), ControllerConfig{Navigator: nav})
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}

	if err := ctrl.StartCall(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("StartCall error = %v, want %v", err, wantErr)
	}
	if got := ctrl.State().CallStatus; got != session.StatusInactive {
		t.Errorf("CallStatus = %v, want inactive", got)
	}
	if len(nav.list()) != 0 {
		t.Error("a rejected start must not navigate")
	}
}

func TestGenerateFinishNavigatesHome(t *testing.T) {
	ctrl, engine, nav := newGenerateController(t)

	_ = ctrl.StartCall(context.Background())
	engine.SimulateCallStart()
	engine.SimulateCallEnd()

	routes := nav.list()
	if len(routes) != 1 || routes[0] != RouteHome {
		t.Errorf("routes = %v, want [%s]", routes, RouteHome)
	}
	if got := ctrl.State().CallStatus; got != session.StatusFinished {
		t.Errorf("CallStatus = %v, want finished", got)
	}
}

func TestInterviewFinishCreatesFeedback(t *testing.T) {
	creator := &fakeCreator{}
	ctrl, engine, nav := newInterviewController(t, creator)

	_ = ctrl.StartCall(context.Background())
	engine.SimulateCallStart()
	engine.SimulateTranscript(vapi.RoleAssistant, vapi.TranscriptFinal, "What is a goroutine?")
	engine.SimulateTranscript(vapi.RoleUser, vapi.TranscriptFinal, "A lightweight thread.")
	engine.SimulateCallEnd()

	if len(creator.params) != 1 {
		t.Fatalf("creator calls = %d, want 1", len(creator.params))
	}
	params := creator.params[0]
	if params.InterviewID != "itv-1" || params.UserID != "user-1" {
		t.Errorf("params = %+v", params)
	}
	if len(params.Transcript) != 2 {
		t.Errorf("transcript = %d messages, want 2", len(params.Transcript))
	}

	routes := nav.list()
	if len(routes) != 1 || routes[0] != FeedbackRoute("itv-1") {
		t.Errorf("routes = %v, want [%s]", routes, FeedbackRoute("itv-1"))
	}
}

func TestInterviewFeedbackFailureNavigatesHome(t *testing.T) {
	creator := &fakeCreator{err: errors.New("model down")}
	ctrl, engine, nav := newInterviewController(t, creator)

	_ = ctrl.StartCall(context.Background())
	engine.SimulateCallStart()
	engine.SimulateTranscript(vapi.RoleUser, vapi.TranscriptFinal, "hello")
	engine.SimulateCallEnd()

	routes := nav.list()
	if len(routes) != 1 || routes[0] != RouteHome {
		t.Errorf("routes = %v, want [%s]", routes, RouteHome)
	}
}

func TestEndCallSettlesOnce(t *testing.T) {
	ctrl, engine, nav := newGenerateController(t)

	_ = ctrl.StartCall(context.Background())
	engine.SimulateCallStart()

	if err := ctrl.EndCall(); err != nil {
		t.Fatalf("EndCall error: %v", err)
	}
	if err := ctrl.EndCall(); err != nil {
		t.Fatalf("second EndCall error: %v", err)
	}
	// A late call-end event from the platform must not settle again.
	engine.SimulateCallEnd()

	if routes := nav.list(); len(routes) != 1 {
		t.Errorf("routes = %v, want exactly one navigation", routes)
	}
	if engine.StopCalls != 1 {
		t.Errorf("engine StopCalls = %d, want 1", engine.StopCalls)
	}
}

func TestEndCallBeforeStartIsNoop(t *testing.T) {
	ctrl, engine, nav := newGenerateController(t)

	if err := ctrl.EndCall(); err != nil {
		t.Fatalf("EndCall error: %v", err)
	}
	if len(nav.list()) != 0 {
		t.Error("EndCall before any start must not navigate")
	}
	if engine.StopCalls != 0 {
		t.Errorf("engine StopCalls = %d, want 0", engine.StopCalls)
	}
}

func TestErrorWhileActiveSettles(t *testing.T) {
	creator := &fakeCreator{}
	ctrl, engine, nav := newInterviewController(t, creator)

	_ = ctrl.StartCall(context.Background())
	engine.SimulateCallStart()
	engine.SimulateTranscript(vapi.RoleUser, vapi.TranscriptFinal, "partial answer")
	engine.SimulateError(vapi.ErrConnectionClosed)

	if len(creator.params) != 1 {
		t.Fatalf("creator calls = %d, want 1", len(creator.params))
	}
	if routes := nav.list(); len(routes) != 1 || routes[0] != FeedbackRoute("itv-1") {
		t.Errorf("routes = %v", routes)
	}
}

func TestErrorWhileConnectingDoesNotSettle(t *testing.T) {
	ctrl, engine, nav := newGenerateController(t)

	_ = ctrl.StartCall(context.Background())
	engine.SimulateError(errors.New("dial failed"))

	if len(nav.list()) != 0 {
		t.Error("an error before the call went live must not navigate")
	}
	if got := ctrl.State().CallStatus; got != session.StatusInactive {
		t.Errorf("CallStatus = %v, want inactive", got)
	}
}

func TestCloseDoesNotNavigate(t *testing.T) {
	ctrl, engine, nav := newGenerateController(t)

	_ = ctrl.StartCall(context.Background())
	engine.SimulateCallStart()

	if err := ctrl.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := ctrl.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	if len(nav.list()) != 0 {
		t.Error("Close must tear down without navigating")
	}
	if err := ctrl.StartCall(context.Background()); !errors.Is(err, session.ErrDestroyed) {
		t.Errorf("StartCall after Close error = %v, want ErrDestroyed", err)
	}
}

func TestControllerState(t *testing.T) {
	ctrl, engine, _ := newGenerateController(t)

	var states []State
	ctrl.OnState(func(s State) { states = append(states, s) })

	_ = ctrl.StartCall(context.Background())
	engine.SimulateCallStart()
	engine.SimulateSpeechStart()
	engine.SimulateTranscript(vapi.RoleAssistant, vapi.TranscriptFinal, "Tell me about yourself.")
	engine.SimulateTranscript(vapi.RoleAssistant, vapi.TranscriptPartial, "And wha")
	engine.SimulateSpeechEnd()

	state := ctrl.State()
	if state.CallStatus != session.StatusActive {
		t.Errorf("CallStatus = %v, want active", state.CallStatus)
	}
	if state.Speaking {
		t.Error("Speaking should be false after speech end")
	}
	if state.LastMessage != "Tell me about yourself." {
		t.Errorf("LastMessage = %q", state.LastMessage)
	}
	if len(state.Messages) != 1 {
		t.Errorf("Messages = %d, want 1", len(state.Messages))
	}

	if len(states) == 0 {
		t.Fatal("no state notifications received")
	}
	sawSpeaking := false
	for _, s := range states {
		if s.Speaking {
			sawSpeaking = true
		}
	}
	if !sawSpeaking {
		t.Error("no notification carried Speaking = true")
	}
}
