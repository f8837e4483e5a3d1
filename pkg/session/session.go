// Package session wraps a voice engine with the conversation state for
// one interview call: a status lifecycle guarded against double starts,
// an append-only log of finalized utterances, and ordered event
// subscriptions fanned out from the engine's single callback slots.
//
// A Session owns exactly one engine. Construct one per call flow with
// New; there is no shared package-level instance.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mockmate/go-mockmate/pkg/vapi"
)

// ErrDestroyed indicates the session was destroyed and cannot start
// new calls.
var ErrDestroyed = errors.New("session: destroyed")

// Status is the call lifecycle state.
type Status int

const (
	// StatusInactive means no call has started, or the last start was
	// rejected by the engine.
	StatusInactive Status = iota

	// StatusConnecting is set synchronously by Start, before the engine
	// is touched, so concurrent starts are rejected without a race.
	StatusConnecting

	// StatusActive means the call-start event arrived.
	StatusActive

	// StatusFinished means the call ended, by the platform or by an
	// explicit Stop.
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusConnecting:
		return "connecting"
	case StatusActive:
		return "active"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status by name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Message is one finalized utterance.
type Message struct {
	Role    vapi.Role `json:"role"`
	Content string    `json:"content"`
}

// TranscriptEntry is a finalized utterance with its arrival time.
type TranscriptEntry struct {
	Role      vapi.Role `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session wraps a vapi.Engine for one interview call.
type Session struct {
	engine vapi.Engine
	logger *slog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	status     Status
	connected  bool
	destroyed  bool
	messages   []Message
	transcript []TranscriptEntry

	// Subscriber lists, invoked in registration order on the engine's
	// delivery goroutine.
	onCallStart    []func()
	onCallEnd      []func()
	onMessage      []func(vapi.Message)
	onWorkflowStep []func(vapi.WorkflowStep)
	onFunctionCall []func(vapi.FunctionCall)
	onSpeechStart  []func()
	onSpeechEnd    []func()
	onError        []func(error)
	onUnhandled    []func(vapi.Message)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger.With("component", "session")
	}
}

// New creates a session around the given engine and registers its
// handlers on the engine's callback slots exactly once.
func New(engine vapi.Engine, opts ...Option) *Session {
	s := &Session{
		engine: engine,
		logger: slog.Default().With("component", "session"),
		now:    time.Now,
		status: StatusInactive,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.engine.OnCallStart(s.handleCallStart)
	s.engine.OnCallEnd(s.handleCallEnd)
	s.engine.OnMessage(s.handleMessage)
	s.engine.OnSpeechStart(s.handleSpeechStart)
	s.engine.OnSpeechEnd(s.handleSpeechEnd)
	s.engine.OnError(s.handleError)

	return s
}

// Start begins a call, forwarding variables to the conversation flow.
// If a call is already connecting or active the request is ignored: the
// engine is not touched and no error is returned. An engine rejection
// reverts the session to inactive and is returned to the caller.
func (s *Session) Start(ctx context.Context, variables map[string]string) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	if s.status == StatusConnecting || s.status == StatusActive {
		status := s.status
		s.mu.Unlock()
		s.logger.Warn("start ignored, call in progress", "status", status.String())
		return nil
	}
	s.status = StatusConnecting
	s.messages = nil
	s.transcript = nil
	s.mu.Unlock()

	if err := s.engine.Start(ctx, variables); err != nil {
		s.mu.Lock()
		s.status = StatusInactive
		s.mu.Unlock()
		s.logger.Error("engine start failed", "error", err)
		return fmt.Errorf("session: start: %w", err)
	}

	return nil
}

// Stop requests call termination. It transitions to finished
// immediately rather than waiting for the call-end event, since the
// closing transport may swallow it. Idempotent.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.status != StatusConnecting && s.status != StatusActive {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusFinished
	s.connected = false
	s.mu.Unlock()

	if err := s.engine.Stop(); err != nil {
		s.logger.Error("engine stop failed", "error", err)
		return fmt.Errorf("session: stop: %w", err)
	}

	s.logger.Info("call stopped")
	return nil
}

// Destroy stops any in-flight call and retires the session. Safe to
// call any number of times; every exit path should go through here.
func (s *Session) Destroy() error {
	err := s.Stop()

	s.mu.Lock()
	s.destroyed = true
	s.mu.Unlock()

	return err
}

// Status returns the call lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsConnected reports whether a call is live. It flips true only on
// call-start and false only on call-end, stop or error.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Messages returns a snapshot of the finalized utterances so far.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Transcript returns a snapshot of the timestamped utterances so far.
func (s *Session) Transcript() []TranscriptEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// LastMessage returns the most recent finalized utterance, if any.
func (s *Session) LastMessage() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// ClearMessages empties both logs without touching the connection
// state.
func (s *Session) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.transcript = nil
}

// Subscriptions. Each call appends; handlers run in registration order.

// OnCallStart adds a handler for the call becoming live.
func (s *Session) OnCallStart(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCallStart = append(s.onCallStart, fn)
}

// OnCallEnd adds a handler for the call ending.
func (s *Session) OnCallEnd(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCallEnd = append(s.onCallEnd, fn)
}

// OnMessage adds a handler for routed message events: final
// transcripts, workflow steps and function calls.
func (s *Session) OnMessage(fn func(msg vapi.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = append(s.onMessage, fn)
}

// OnWorkflowStep adds a handler for workflow step messages.
func (s *Session) OnWorkflowStep(fn func(step vapi.WorkflowStep)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWorkflowStep = append(s.onWorkflowStep, fn)
}

// OnFunctionCall adds a handler for function call messages.
func (s *Session) OnFunctionCall(fn func(call vapi.FunctionCall)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFunctionCall = append(s.onFunctionCall, fn)
}

// OnSpeechStart adds a handler for the agent starting to speak.
func (s *Session) OnSpeechStart(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSpeechStart = append(s.onSpeechStart, fn)
}

// OnSpeechEnd adds a handler for the agent finishing speaking.
func (s *Session) OnSpeechEnd(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSpeechEnd = append(s.onSpeechEnd, fn)
}

// OnError adds a handler for engine errors.
func (s *Session) OnError(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = append(s.onError, fn)
}

// OnUnhandled adds a handler for message events whose type the router
// does not recognize. The router never guesses: such messages reach
// only these handlers.
func (s *Session) OnUnhandled(fn func(msg vapi.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUnhandled = append(s.onUnhandled, fn)
}

// Engine event handlers.

func (s *Session) handleCallStart() {
	s.mu.Lock()
	s.connected = true
	s.status = StatusActive
	fns := s.onCallStart
	s.mu.Unlock()

	s.logger.Info("call started")
	for _, fn := range fns {
		fn()
	}
}

func (s *Session) handleCallEnd() {
	s.mu.Lock()
	s.connected = false
	s.status = StatusFinished
	fns := s.onCallEnd
	s.mu.Unlock()

	s.logger.Info("call ended")
	for _, fn := range fns {
		fn()
	}
}

func (s *Session) handleSpeechStart() {
	s.mu.RLock()
	fns := s.onSpeechStart
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Session) handleSpeechEnd() {
	s.mu.RLock()
	fns := s.onSpeechEnd
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Session) handleError(err error) {
	s.mu.Lock()
	s.connected = false
	switch s.status {
	case StatusConnecting:
		// Mirrors a rejected start: the call never went live.
		s.status = StatusInactive
	case StatusActive:
		s.status = StatusFinished
	}
	fns := s.onError
	s.mu.Unlock()

	s.logger.Error("engine error", "error", err)
	for _, fn := range fns {
		fn(err)
	}
}

// handleMessage routes one message event by its type tag.
func (s *Session) handleMessage(msg vapi.Message) {
	switch msg.Type {
	case vapi.MessageTypeTranscript:
		if msg.TranscriptType != vapi.TranscriptFinal {
			// Interim recognizer output never reaches state or
			// subscribers.
			return
		}

		s.mu.Lock()
		s.messages = append(s.messages, Message{Role: msg.Role, Content: msg.Transcript})
		s.transcript = append(s.transcript, TranscriptEntry{
			Role:      msg.Role,
			Content:   msg.Transcript,
			Timestamp: s.now(),
		})
		fns := s.onMessage
		s.mu.Unlock()

		s.logger.Debug("transcript", "role", msg.Role, "content", msg.Transcript)
		for _, fn := range fns {
			fn(msg)
		}

	case vapi.MessageTypeWorkflowStep:
		s.mu.RLock()
		stepFns := s.onWorkflowStep
		msgFns := s.onMessage
		s.mu.RUnlock()

		var step vapi.WorkflowStep
		if msg.Step != nil {
			step = *msg.Step
		}
		s.logger.Debug("workflow step", "step", step.Name)
		for _, fn := range stepFns {
			fn(step)
		}
		for _, fn := range msgFns {
			fn(msg)
		}

	case vapi.MessageTypeFunctionCall:
		s.mu.RLock()
		callFns := s.onFunctionCall
		msgFns := s.onMessage
		s.mu.RUnlock()

		var call vapi.FunctionCall
		if msg.FunctionCall != nil {
			call = *msg.FunctionCall
		}
		s.logger.Debug("function call", "name", call.Name)
		for _, fn := range callFns {
			fn(call)
		}
		for _, fn := range msgFns {
			fn(msg)
		}

	default:
		s.mu.RLock()
		fns := s.onUnhandled
		s.mu.RUnlock()

		s.logger.Debug("unhandled message type", "type", msg.Type)
		for _, fn := range fns {
			fn(msg)
		}
	}
}
