package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mockmate/go-mockmate/internal/log"
	"github.com/mockmate/go-mockmate/pkg/feedback"
	"github.com/mockmate/go-mockmate/pkg/session"
	"github.com/mockmate/go-mockmate/pkg/vapi"
)

// Purpose selects what a call is for: generating a new interview with
// the agent, or taking an existing one.
type Purpose string

const (
	PurposeGenerate  Purpose = "generate"
	PurposeInterview Purpose = "interview"
)

// RouteHome is where finished generate calls, and failed feedback
// creation, land.
const RouteHome = "/"

// FeedbackRoute returns the feedback page for an interview.
func FeedbackRoute(interviewID string) string {
	return "/interview/" + interviewID + "/feedback"
}

// Navigator receives the route to show when a call reaches a terminal
// state.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(route string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(route string) { f(route) }

// FeedbackCreator scores a finished call. *feedback.Service satisfies
// it.
type FeedbackCreator interface {
	CreateFeedback(ctx context.Context, params feedback.CreateParams) (*feedback.Feedback, error)
}

// State is a snapshot of the controller for rendering.
type State struct {
	CallStatus  session.Status    `json:"callStatus"`
	Speaking    bool              `json:"speaking"`
	LastMessage string            `json:"lastMessage"`
	Messages    []session.Message `json:"messages"`
}

// ControllerConfig configures a call controller.
type ControllerConfig struct {
	Purpose   Purpose
	Profile   Profile
	Interview *Interview      // required for PurposeInterview
	Feedback  FeedbackCreator // scored on finish for PurposeInterview
	Navigator Navigator       // optional terminal route sink
	Logger    *slog.Logger
}

// Controller drives one call end to end: it starts and stops the
// session, tracks presentation state, and when the call finishes either
// returns home (generate) or creates feedback and routes to it
// (interview).
type Controller struct {
	session *session.Session
	purpose Purpose
	profile Profile
	itv     *Interview
	creator FeedbackCreator
	nav     Navigator
	logger  *slog.Logger

	mu       sync.RWMutex
	speaking bool
	last     string
	settled  bool
	onState  []func(State)
}

// NewController wires a controller to the session's event streams. One
// controller owns one session for one call flow.
func NewController(sess *session.Session, cfg ControllerConfig) (*Controller, error) {
	if sess == nil {
		return nil, errors.New("interview: session is required")
	}

	purpose := cfg.Purpose
	if purpose == "" {
		purpose = PurposeGenerate
	}
	switch purpose {
	case PurposeGenerate, PurposeInterview:
	default:
		return nil, fmt.Errorf("interview: unknown purpose %q", purpose)
	}
	if purpose == PurposeInterview && cfg.Interview == nil {
		return nil, errors.New("interview: interview purpose requires an interview")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Component("controller")
	}

	c := &Controller{
		session: sess,
		purpose: purpose,
		profile: cfg.Profile,
		itv:     cfg.Interview,
		creator: cfg.Feedback,
		nav:     cfg.Navigator,
		logger:  logger,
	}

	sess.OnCallStart(c.handleCallStart)
	sess.OnCallEnd(c.handleCallEnd)
	sess.OnMessage(c.handleMessage)
	sess.OnSpeechStart(func() { c.setSpeaking(true) })
	sess.OnSpeechEnd(func() { c.setSpeaking(false) })
	sess.OnError(c.handleError)

	return c, nil
}

// StartCall begins the call with variables built fresh for this
// attempt. A start the engine rejects leaves the controller inactive;
// the caller decides whether to try again.
func (c *Controller) StartCall(ctx context.Context) error {
	switch c.session.Status() {
	case session.StatusConnecting, session.StatusActive:
		c.logger.Warn("start ignored, call in progress")
		return nil
	}

	var questions []string
	if c.purpose == PurposeInterview {
		questions = c.itv.Questions
	}
	vars := CallVariables(c.profile, questions)

	c.mu.Lock()
	c.settled = false
	c.last = ""
	c.mu.Unlock()

	if err := c.session.Start(ctx, vars); err != nil {
		c.logger.Error("call start failed", "error", err)
		c.notify()
		return err
	}
	c.notify()
	return nil
}

// EndCall hangs up. The session flips to finished synchronously, so the
// terminal transition runs here rather than waiting for an event the
// closing transport may never deliver.
func (c *Controller) EndCall() error {
	if err := c.session.Stop(); err != nil {
		return err
	}
	if c.session.Status() == session.StatusFinished {
		c.settle()
	}
	return nil
}

// Close destroys the underlying session without running the terminal
// transition. Call it on every exit path; safe to call repeatedly.
func (c *Controller) Close() error {
	return c.session.Destroy()
}

// State returns a snapshot for rendering.
func (c *Controller) State() State {
	c.mu.RLock()
	speaking := c.speaking
	last := c.last
	c.mu.RUnlock()

	return State{
		CallStatus:  c.session.Status(),
		Speaking:    speaking,
		LastMessage: last,
		Messages:    c.session.Messages(),
	}
}

// OnState adds a state-change observer. Observers run in registration
// order on the engine's delivery goroutine.
func (c *Controller) OnState(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = append(c.onState, fn)
}

func (c *Controller) notify() {
	c.mu.RLock()
	fns := c.onState
	c.mu.RUnlock()

	if len(fns) == 0 {
		return
	}
	state := c.State()
	for _, fn := range fns {
		fn(state)
	}
}

func (c *Controller) handleCallStart() {
	c.notify()
}

func (c *Controller) handleCallEnd() {
	c.settle()
}

func (c *Controller) handleMessage(msg vapi.Message) {
	if msg.Type != vapi.MessageTypeTranscript {
		return
	}
	c.mu.Lock()
	c.last = msg.Transcript
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) handleError(err error) {
	c.logger.Error("call error", "error", err)
	if c.session.Status() == session.StatusFinished {
		// The call was live when it broke; treat it as ended.
		c.settle()
		return
	}
	c.notify()
}

func (c *Controller) setSpeaking(speaking bool) {
	c.mu.Lock()
	if c.speaking == speaking {
		c.mu.Unlock()
		return
	}
	c.speaking = speaking
	c.mu.Unlock()
	c.notify()
}

// settle runs the terminal transition for a finished call exactly once
// per start.
func (c *Controller) settle() {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = true
	c.mu.Unlock()

	c.notify()

	if c.purpose == PurposeInterview {
		c.settleInterview()
		return
	}
	c.navigate(RouteHome)
}

// settleInterview scores the finished call. Any failure falls back to
// home so the candidate is never stranded on a dead call screen.
func (c *Controller) settleInterview() {
	if c.creator == nil {
		c.logger.Warn("no feedback creator configured, skipping assessment")
		c.navigate(RouteHome)
		return
	}

	fb, err := c.creator.CreateFeedback(context.Background(), feedback.CreateParams{
		InterviewID: c.itv.ID,
		UserID:      c.profile.ID,
		Transcript:  c.session.Messages(),
	})
	if err != nil {
		c.logger.Error("feedback creation failed", "error", err)
		c.navigate(RouteHome)
		return
	}

	c.logger.Info("feedback ready", "feedbackId", fb.ID, "interviewId", c.itv.ID)
	c.navigate(FeedbackRoute(c.itv.ID))
}

func (c *Controller) navigate(route string) {
	if c.nav == nil {
		return
	}
	c.logger.Info("navigate", "route", route)
	c.nav.Navigate(route)
}
