package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/mockmate/go-mockmate/pkg/hub"
	"github.com/mockmate/go-mockmate/pkg/interview"
	"github.com/mockmate/go-mockmate/pkg/session"
	"github.com/mockmate/go-mockmate/pkg/vapi"
)

// wsCommand is a client request on the session socket.
type wsCommand struct {
	Type        string `json:"type"`
	Username    string `json:"username"`
	UserID      string `json:"userid"`
	InterviewID string `json:"interviewId"`
}

// wsEvent is a server push on the session socket. Agent audio travels
// separately as binary frames.
type wsEvent struct {
	Type  string           `json:"type"`
	State *interview.State `json:"state,omitempty"`
	Route string           `json:"route,omitempty"`
	Error string           `json:"error,omitempty"`
}

// handleSessionWS runs one practice call per socket. Text frames carry
// commands and events, binary frames carry audio in both directions.
func (s *Server) handleSessionWS(conn *websocket.Conn) {
	if s.engines == nil {
		conn.WriteJSON(wsEvent{Type: "error", Error: "calls are not enabled on this server"})
		conn.Close()
		return
	}

	id := uuid.New().String()[:8]
	b := &sessionBridge{
		server: s,
		conn:   conn,
		id:     id,
		logger: s.logger.With("session", id),
	}
	defer b.close()
	b.run()
}

// sessionBridge owns the call stack behind one websocket: the engine,
// the session and the controller, rebuilt on every start command.
type sessionBridge struct {
	server *Server
	conn   *websocket.Conn
	logger *slog.Logger
	id     string

	// writeMu serializes socket writes; events and audio arrive on
	// different goroutines.
	writeMu sync.Mutex

	mu     sync.Mutex
	engine vapi.Engine
	ctrl   *interview.Controller
}

func (b *sessionBridge) run() {
	for {
		msgType, data, err := b.conn.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.TextMessage:
			b.handleCommand(data)
		case websocket.BinaryMessage:
			b.handleAudio(data)
		}
	}
}

func (b *sessionBridge) handleCommand(data []byte) {
	var cmd wsCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		b.sendEvent(wsEvent{Type: "error", Error: "invalid command"})
		return
	}

	switch cmd.Type {
	case "start":
		b.start(cmd)
	case "stop":
		b.stop()
	default:
		b.sendEvent(wsEvent{Type: "error", Error: fmt.Sprintf("unknown command %q", cmd.Type)})
	}
}

// handleAudio forwards candidate microphone audio to the live engine.
func (b *sessionBridge) handleAudio(data []byte) {
	b.mu.Lock()
	engine := b.engine
	b.mu.Unlock()

	if engine == nil {
		return
	}
	if err := engine.SendAudio(data); err != nil {
		b.logger.Debug("audio forward failed", "error", err)
	}
}

func (b *sessionBridge) start(cmd wsCommand) {
	if cmd.UserID == "" {
		b.sendEvent(wsEvent{Type: "error", Error: "userid is required"})
		return
	}

	purpose := interview.PurposeGenerate
	var itv *interview.Interview
	if cmd.InterviewID != "" {
		var err error
		itv, err = b.server.store.GetInterview(context.Background(), cmd.InterviewID)
		if err != nil {
			b.logger.Error("interview lookup failed", "interviewId", cmd.InterviewID, "error", err)
			b.sendEvent(wsEvent{Type: "error", Error: "interview not found"})
			return
		}
		purpose = interview.PurposeInterview
	}

	engine, err := b.server.engines()
	if err != nil {
		b.logger.Error("engine construction failed", "error", err)
		b.sendEvent(wsEvent{Type: "error", Error: "could not prepare call"})
		return
	}

	// A second start on the same socket replaces the previous call.
	b.teardown()

	sess := session.New(engine, session.WithLogger(b.logger))
	ctrl, err := interview.NewController(sess, interview.ControllerConfig{
		Purpose:   purpose,
		Profile:   interview.Profile{Name: cmd.Username, ID: cmd.UserID},
		Interview: itv,
		Feedback:  b.server.feedback,
		Navigator: interview.NavigatorFunc(func(route string) {
			b.sendEvent(wsEvent{Type: "navigate", Route: route})
		}),
		Logger: b.logger,
	})
	if err != nil {
		b.sendEvent(wsEvent{Type: "error", Error: err.Error()})
		return
	}

	ctrl.OnState(func(st interview.State) {
		b.sendEvent(wsEvent{Type: "state", State: &st})
		b.server.monitor.BroadcastEvent(hub.Event{
			Type:      "status",
			SessionID: b.id,
			Status:    st.CallStatus.String(),
		})
	})
	sess.OnMessage(func(msg vapi.Message) {
		if msg.Type != vapi.MessageTypeTranscript {
			return
		}
		b.server.monitor.BroadcastEvent(hub.Event{
			Type:      "transcript",
			SessionID: b.id,
			Role:      string(msg.Role),
			Content:   msg.Transcript,
		})
	})
	sess.OnError(func(err error) {
		b.sendEvent(wsEvent{Type: "error", Error: err.Error()})
	})
	engine.OnAudio(b.writeBinary)

	b.mu.Lock()
	b.engine = engine
	b.ctrl = ctrl
	b.mu.Unlock()

	if err := ctrl.StartCall(context.Background()); err != nil {
		b.sendEvent(wsEvent{Type: "error", Error: "failed to start call"})
	}
}

// stop hangs up. A stop with no call in flight is a no-op; clients send
// it freely during page teardown.
func (b *sessionBridge) stop() {
	b.mu.Lock()
	ctrl := b.ctrl
	b.mu.Unlock()

	if ctrl == nil {
		return
	}
	if err := ctrl.EndCall(); err != nil {
		b.logger.Error("end call failed", "error", err)
		b.sendEvent(wsEvent{Type: "error", Error: "failed to end call"})
	}
}

// teardown destroys the current call stack without navigating, so a
// dropped socket never generates feedback.
func (b *sessionBridge) teardown() {
	b.mu.Lock()
	ctrl := b.ctrl
	b.engine = nil
	b.ctrl = nil
	b.mu.Unlock()

	if ctrl != nil {
		ctrl.Close()
	}
}

func (b *sessionBridge) close() {
	b.teardown()
	b.conn.Close()
}

func (b *sessionBridge) sendEvent(evt wsEvent) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteJSON(evt); err != nil {
		b.logger.Debug("event write failed", "error", err)
	}
}

// writeBinary ships one agent audio frame to the browser.
func (b *sessionBridge) writeBinary(data []byte) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		b.logger.Debug("audio write failed", "error", err)
	}
}

// handleMonitorWS attaches an observer to the live session stream.
func (s *Server) handleMonitorWS(conn *websocket.Conn) {
	hub.Serve(s.monitor, conn)
}
