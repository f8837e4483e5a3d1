package vapi

import (
	"encoding/json"
	"fmt"
)

// MessageType classifies a message event.
type MessageType string

const (
	MessageTypeTranscript   MessageType = "transcript"
	MessageTypeWorkflowStep MessageType = "workflow-step"
	MessageTypeFunctionCall MessageType = "function-call"
)

// TranscriptType distinguishes interim recognizer output from finalized
// utterances.
type TranscriptType string

const (
	TranscriptPartial TranscriptType = "partial"
	TranscriptFinal   TranscriptType = "final"
)

// Role identifies who produced an utterance.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a message event from the platform. Only the fields matching
// Type are populated; Raw always carries the original payload so
// consumers can inspect types this package does not model.
type Message struct {
	Type           MessageType    `json:"type"`
	Role           Role           `json:"role,omitempty"`
	TranscriptType TranscriptType `json:"transcriptType,omitempty"`
	Transcript     string         `json:"transcript,omitempty"`
	Step           *WorkflowStep  `json:"step,omitempty"`
	FunctionCall   *FunctionCall  `json:"functionCall,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// WorkflowStep describes progress through the conversation flow graph.
type WorkflowStep struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// FunctionCall is a tool invocation requested by the agent.
type FunctionCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Known wire event types on the call transport. Everything else is
// forwarded to OnMessage untouched.
const (
	eventStatusUpdate = "status-update"
	eventSpeechUpdate = "speech-update"
	eventTranscript   = "transcript"
	eventWorkflowStep = "workflow-step"
	eventFunctionCall = "function-call"
	eventError        = "error"
	eventHangup       = "hangup"
	eventSay          = "say"
)

// Call status values carried by status-update events.
const (
	callStatusInProgress = "in-progress"
	callStatusEnded      = "ended"
)

// Speech status values carried by speech-update events.
const (
	speechStatusStarted = "started"
	speechStatusStopped = "stopped"
)

// serverEvent is the decoded form of a text frame from the call
// transport. The platform multiplexes every event kind over one typed
// JSON shape.
type serverEvent struct {
	Type           string         `json:"type"`
	Status         string         `json:"status,omitempty"`
	Role           Role           `json:"role,omitempty"`
	TranscriptType TranscriptType `json:"transcriptType,omitempty"`
	Transcript     string         `json:"transcript,omitempty"`
	Step           *WorkflowStep  `json:"step,omitempty"`
	FunctionCall   *FunctionCall  `json:"functionCall,omitempty"`
	ErrorMsg       string         `json:"error,omitempty"`
	Message        string         `json:"message,omitempty"`
}

// parseServerEvent decodes one text frame.
func parseServerEvent(data []byte) (*serverEvent, error) {
	var ev serverEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("vapi: parse event: %w", err)
	}
	if ev.Type == "" {
		return nil, ErrInvalidMessage
	}
	return &ev, nil
}

// message converts a non-control event into the Message delivered to
// OnMessage.
func (ev *serverEvent) message(raw []byte) Message {
	return Message{
		Type:           MessageType(ev.Type),
		Role:           ev.Role,
		TranscriptType: ev.TranscriptType,
		Transcript:     ev.Transcript,
		Step:           ev.Step,
		FunctionCall:   ev.FunctionCall,
		Raw:            append(json.RawMessage(nil), raw...),
	}
}

// clientMessage is a control frame sent to the call transport. Audio
// goes out as binary frames, everything else as typed JSON.
type clientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}
