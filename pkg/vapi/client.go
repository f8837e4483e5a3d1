package vapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client implements Engine against the hosted platform. One Client
// drives at most one call at a time.
type Client struct {
	config    *Config
	logger    *slog.Logger
	apiClient *apiClient

	mu        sync.RWMutex
	conn      *websocket.Conn
	state     ConnectionState
	callID    string
	callEnded bool
	metrics   Metrics
	cancelCtx context.CancelFunc

	// writeMu serializes writes to the websocket.
	writeMu sync.Mutex

	// Callbacks
	onCallStart   func()
	onCallEnd     func()
	onMessage     func(msg Message)
	onSpeechStart func()
	onSpeechEnd   func()
	onAudio       func(audio []byte)
	onError       func(err error)

	// Atomic counters for metrics
	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
	audioBytesSent   atomic.Int64
	audioBytesRecv   atomic.Int64
	errorCount       atomic.Int64
}

// NewClient creates a new platform client.
//
//	engine, err := vapi.NewClient(
//	    vapi.WithAPIKey(apiKey),
//	    vapi.WithWorkflow(workflowID),
//	)
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		config:    cfg,
		logger:    cfg.Logger.With("component", "vapi.client"),
		apiClient: newAPIClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		state:     StateDisconnected,
	}, nil
}

// Start creates the call and connects its websocket transport.
func (c *Client) Start(ctx context.Context, variables map[string]string) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.callEnded = false
	c.mu.Unlock()

	call, err := c.apiClient.CreateCall(ctx, c.config, variables)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("vapi: create call failed: %w", err)
	}

	if call.Transport.WebsocketCallURL == "" {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return ErrNoTransportURL
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.Timeout,
	}

	c.logger.Info("connecting to call transport",
		"call_id", call.ID,
	)

	conn, resp, err := dialer.DialContext(ctx, call.Transport.WebsocketCallURL, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		if resp != nil {
			return NewConnectionError(
				fmt.Sprintf("dial failed with status %d", resp.StatusCode),
				err,
				resp.StatusCode >= 500,
			)
		}
		return NewConnectionError("dial failed", err, true)
	}

	// Create cancellation context for the event reader
	msgCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.callID = call.ID
	c.state = StateConnected
	c.cancelCtx = cancel
	c.metrics.ConnectionTime = time.Now()
	c.mu.Unlock()

	go c.handleMessages(msgCtx)

	c.logger.Info("call transport connected", "call_id", call.ID)

	return nil
}

// Stop hangs up and closes the transport.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return nil
	}

	// Cancel the event reader
	if c.cancelCtx != nil {
		c.cancelCtx()
	}

	if c.conn != nil {
		// Best-effort hangup so the platform finalizes the call
		if data, err := json.Marshal(clientMessage{Type: eventHangup}); err == nil {
			c.writeMu.Lock()
			_ = c.conn.WriteMessage(websocket.TextMessage, data)
			c.writeMu.Unlock()
		}

		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		c.conn.Close()
		c.conn = nil
	}

	c.state = StateDisconnected
	c.logger.Info("call transport closed", "call_id", c.callID)

	return nil
}

// IsConnected returns true if the call transport is open.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateConnected
}

// CallID returns the platform ID of the current call, empty before the
// first Start.
func (c *Client) CallID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callID
}

// State returns the transport connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Metrics returns a snapshot of call statistics.
func (c *Client) Metrics() Metrics {
	c.mu.RLock()
	m := c.metrics
	c.mu.RUnlock()

	m.MessagesSent = c.messagesSent.Load()
	m.MessagesReceived = c.messagesReceived.Load()
	m.AudioBytesSent = c.audioBytesSent.Load()
	m.AudioBytesReceived = c.audioBytesRecv.Load()
	m.Errors = c.errorCount.Load()
	return m
}

// SendAudio streams caller audio into the call as a binary frame.
func (c *Client) SendAudio(audio []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != StateConnected || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := conn.WriteMessage(websocket.BinaryMessage, audio)
	c.writeMu.Unlock()
	if err != nil {
		return NewConnectionError("send audio failed", err, true)
	}

	c.audioBytesSent.Add(int64(len(audio)))
	return nil
}

// Say asks the agent to speak the given content.
func (c *Client) Say(content string) error {
	return c.send(clientMessage{Type: eventSay, Content: content})
}

// send writes a control message to the call transport.
func (c *Client) send(msg clientMessage) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != StateConnected || conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("vapi: marshal failed: %w", err)
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return NewConnectionError("send failed", err, true)
	}

	c.messagesSent.Add(1)
	return nil
}

// OnCallStart sets the call start callback.
func (c *Client) OnCallStart(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCallStart = fn
}

// OnCallEnd sets the call end callback.
func (c *Client) OnCallEnd(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCallEnd = fn
}

// OnMessage sets the message callback.
func (c *Client) OnMessage(fn func(msg Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

// OnSpeechStart sets the speech start callback.
func (c *Client) OnSpeechStart(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSpeechStart = fn
}

// OnSpeechEnd sets the speech end callback.
func (c *Client) OnSpeechEnd(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSpeechEnd = fn
}

// OnAudio sets the agent audio callback.
func (c *Client) OnAudio(fn func(audio []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAudio = fn
}

// OnError sets the error callback.
func (c *Client) OnError(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// handleMessages processes incoming frames until the transport closes.
func (c *Client) handleMessages(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		if c.state == StateConnected {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return
		}

		// Set read deadline
		_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("call transport closed by server")
				if c.markEnded() {
					c.emitCallEnd()
				}
				return
			}
			select {
			case <-ctx.Done():
				// Stop closed the socket under us; not an error.
				return
			default:
			}
			c.logger.Error("read error", "error", err)
			c.errorCount.Add(1)
			c.emitError(NewConnectionError("read failed", err, true))
			return
		}

		c.messagesReceived.Add(1)

		if msgType == websocket.BinaryMessage {
			c.audioBytesRecv.Add(int64(len(data)))
			c.emitAudio(data)
			continue
		}

		ev, err := parseServerEvent(data)
		if err != nil {
			c.logger.Warn("failed to parse event", "error", err)
			continue
		}

		c.handleEvent(ev, data)
	}
}

// handleEvent dispatches a single decoded event.
func (c *Client) handleEvent(ev *serverEvent, raw []byte) {
	switch ev.Type {
	case eventStatusUpdate:
		switch ev.Status {
		case callStatusInProgress:
			c.emitCallStart()
		case callStatusEnded:
			if c.markEnded() {
				c.emitCallEnd()
			}
		default:
			c.logger.Debug("call status", "status", ev.Status)
		}

	case eventSpeechUpdate:
		switch ev.Status {
		case speechStatusStarted:
			c.emitSpeechStart()
		case speechStatusStopped:
			c.emitSpeechEnd()
		default:
			c.logger.Debug("speech status", "status", ev.Status)
		}

	case eventError:
		msg := ev.ErrorMsg
		if msg == "" {
			msg = ev.Message
		}
		c.errorCount.Add(1)
		c.emitError(NewAPIError(0, "", msg))

	default:
		// Transcripts, workflow steps, function calls and any event
		// kind this package does not model are forwarded as messages.
		c.emitMessage(ev.message(raw))
	}
}

// markEnded records the end of the call, returning true the first time.
func (c *Client) markEnded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callEnded {
		return false
	}
	c.callEnded = true
	return true
}

// Emit helpers

func (c *Client) emitCallStart() {
	c.mu.RLock()
	fn := c.onCallStart
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) emitCallEnd() {
	c.mu.RLock()
	fn := c.onCallEnd
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) emitMessage(msg Message) {
	c.mu.RLock()
	fn := c.onMessage
	c.mu.RUnlock()
	if fn != nil {
		fn(msg)
	}
}

func (c *Client) emitSpeechStart() {
	c.mu.RLock()
	fn := c.onSpeechStart
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) emitSpeechEnd() {
	c.mu.RLock()
	fn := c.onSpeechEnd
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) emitAudio(audio []byte) {
	c.mu.RLock()
	fn := c.onAudio
	c.mu.RUnlock()
	if fn != nil {
		fn(audio)
	}
}

func (c *Client) emitError(err error) {
	c.mu.RLock()
	fn := c.onError
	c.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// Ensure Client implements Engine.
var _ Engine = (*Client)(nil)
