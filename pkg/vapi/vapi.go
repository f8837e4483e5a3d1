// Package vapi provides a client for the Vapi voice workflow platform.
// It drives real-time interview calls over Vapi's websocket transport:
// call creation via the REST API, raw PCM audio streaming, and the
// platform's event vocabulary (transcripts, workflow steps, function
// calls, speech activity).
//
// The package abstracts call setup and wire decoding behind a small
// Engine interface so higher layers can run against the real platform
// or a mock interchangeably.
//
// Example usage:
//
//	engine, err := vapi.NewClient(
//	    vapi.WithAPIKey(os.Getenv("VAPI_PRIVATE_KEY")),
//	    vapi.WithWorkflow(os.Getenv("VAPI_WORKFLOW_ID")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
//	engine.OnMessage(func(msg vapi.Message) {
//	    if msg.Type == vapi.MessageTypeTranscript && msg.TranscriptType == vapi.TranscriptFinal {
//	        fmt.Printf("[%s] %s\n", msg.Role, msg.Transcript)
//	    }
//	})
//
//	if err := engine.Start(ctx, map[string]string{"username": "Jane"}); err != nil {
//	    log.Fatal(err)
//	}
package vapi

import (
	"context"
	"time"
)

// Engine is the control surface for a single voice call. It mirrors the
// platform's client SDK: one callback slot per event kind, where a later
// registration replaces the earlier one. Multi-subscriber fan-out is the
// session layer's job, not the engine's.
type Engine interface {
	// Start creates a call with the configured workflow or assistant and
	// connects its websocket transport. variables are forwarded to the
	// workflow as variable values; pass nil when the workflow needs none.
	Start(ctx context.Context, variables map[string]string) error

	// Stop hangs up and closes the transport. Safe to call when not
	// connected.
	Stop() error

	// IsConnected reports whether the call transport is open.
	IsConnected() bool

	// SendAudio streams caller audio into the call.
	// Audio is PCM16 mono at the configured sample rate.
	SendAudio(audio []byte) error

	// OnCallStart sets the callback for when the call becomes live.
	OnCallStart(fn func())

	// OnCallEnd sets the callback for when the call ends, whatever the
	// reason.
	OnCallEnd(fn func())

	// OnMessage sets the callback for message events: transcripts,
	// workflow steps, function calls and anything else the platform
	// forwards.
	OnMessage(fn func(msg Message))

	// OnSpeechStart sets the callback for when the agent starts speaking.
	OnSpeechStart(fn func())

	// OnSpeechEnd sets the callback for when the agent stops speaking.
	OnSpeechEnd(fn func())

	// OnAudio sets the callback for agent audio.
	// Audio is PCM16 mono at the configured sample rate.
	OnAudio(fn func(audio []byte))

	// OnError sets the callback for transport and platform errors.
	OnError(fn func(err error))
}

// ConnectionState represents the state of the engine transport.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Metrics tracks call statistics.
type Metrics struct {
	// ConnectionTime is when the transport was established.
	ConnectionTime time.Time

	// MessagesSent is the count of control messages sent.
	MessagesSent int64

	// MessagesReceived is the count of events received.
	MessagesReceived int64

	// AudioBytesSent is the total audio bytes sent.
	AudioBytesSent int64

	// AudioBytesReceived is the total audio bytes received.
	AudioBytesReceived int64

	// Errors is the count of errors encountered.
	Errors int64
}
