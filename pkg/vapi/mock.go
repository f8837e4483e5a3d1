package vapi

import (
	"context"
	"sync"
)

// Mock is a mock implementation of Engine for testing.
type Mock struct {
	mu sync.RWMutex

	// State
	connected bool

	// Callbacks
	onCallStart   func()
	onCallEnd     func()
	onMessage     func(msg Message)
	onSpeechStart func()
	onSpeechEnd   func()
	onAudio       func(audio []byte)
	onError       func(err error)

	// Configurable behavior
	StartFunc     func(ctx context.Context, variables map[string]string) error
	StopFunc      func() error
	SendAudioFunc func(audio []byte) error

	// Captured calls for assertions
	StartCalls []map[string]string
	StopCalls  int
	AudioSent  [][]byte
}

// NewMock creates a new Mock engine.
func NewMock() *Mock {
	return &Mock{}
}

// Start implements Engine.
func (m *Mock) Start(ctx context.Context, variables map[string]string) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, variables)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return ErrAlreadyConnected
	}
	m.connected = true
	m.StartCalls = append(m.StartCalls, variables)
	return nil
}

// Stop implements Engine.
func (m *Mock) Stop() error {
	if m.StopFunc != nil {
		return m.StopFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.StopCalls++
	return nil
}

// IsConnected implements Engine.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SendAudio implements Engine.
func (m *Mock) SendAudio(audio []byte) error {
	if m.SendAudioFunc != nil {
		return m.SendAudioFunc(audio)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.AudioSent = append(m.AudioSent, audio)
	return nil
}

// OnCallStart implements Engine.
func (m *Mock) OnCallStart(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCallStart = fn
}

// OnCallEnd implements Engine.
func (m *Mock) OnCallEnd(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCallEnd = fn
}

// OnMessage implements Engine.
func (m *Mock) OnMessage(fn func(msg Message)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMessage = fn
}

// OnSpeechStart implements Engine.
func (m *Mock) OnSpeechStart(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSpeechStart = fn
}

// OnSpeechEnd implements Engine.
func (m *Mock) OnSpeechEnd(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSpeechEnd = fn
}

// OnAudio implements Engine.
func (m *Mock) OnAudio(fn func(audio []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAudio = fn
}

// OnError implements Engine.
func (m *Mock) OnError(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// Test helpers

// SimulateCallStart triggers the OnCallStart callback.
func (m *Mock) SimulateCallStart() {
	m.mu.RLock()
	fn := m.onCallStart
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SimulateCallEnd triggers the OnCallEnd callback and drops the
// transport, the way the platform closes the socket when a call ends.
func (m *Mock) SimulateCallEnd() {
	m.mu.Lock()
	m.connected = false
	fn := m.onCallEnd
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SimulateMessage triggers the OnMessage callback.
func (m *Mock) SimulateMessage(msg Message) {
	m.mu.RLock()
	fn := m.onMessage
	m.mu.RUnlock()
	if fn != nil {
		fn(msg)
	}
}

// SimulateTranscript triggers OnMessage with a transcript message.
func (m *Mock) SimulateTranscript(role Role, transcriptType TranscriptType, text string) {
	m.SimulateMessage(Message{
		Type:           MessageTypeTranscript,
		Role:           role,
		TranscriptType: transcriptType,
		Transcript:     text,
	})
}

// SimulateWorkflowStep triggers OnMessage with a workflow step message.
func (m *Mock) SimulateWorkflowStep(name string) {
	m.SimulateMessage(Message{
		Type: MessageTypeWorkflowStep,
		Step: &WorkflowStep{Name: name},
	})
}

// SimulateFunctionCall triggers OnMessage with a function call message.
func (m *Mock) SimulateFunctionCall(name string, params map[string]any) {
	m.SimulateMessage(Message{
		Type:         MessageTypeFunctionCall,
		FunctionCall: &FunctionCall{Name: name, Parameters: params},
	})
}

// SimulateSpeechStart triggers the OnSpeechStart callback.
func (m *Mock) SimulateSpeechStart() {
	m.mu.RLock()
	fn := m.onSpeechStart
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SimulateSpeechEnd triggers the OnSpeechEnd callback.
func (m *Mock) SimulateSpeechEnd() {
	m.mu.RLock()
	fn := m.onSpeechEnd
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SimulateAudio triggers the OnAudio callback.
func (m *Mock) SimulateAudio(audio []byte) {
	m.mu.RLock()
	fn := m.onAudio
	m.mu.RUnlock()
	if fn != nil {
		fn(audio)
	}
}

// SimulateError triggers the OnError callback.
func (m *Mock) SimulateError(err error) {
	m.mu.RLock()
	fn := m.onError
	m.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// Reset clears all captured data.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.StartCalls = nil
	m.StopCalls = 0
	m.AudioSent = nil
}

// Ensure Mock implements Engine.
var _ Engine = (*Mock)(nil)
