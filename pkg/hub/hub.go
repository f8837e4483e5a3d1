package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mockmate/go-mockmate/internal/log"
)

// Hub tracks the set of connected observers and fans broadcasts out to
// them. One hub carries one stream, such as all live session events.
type Hub struct {
	name   string
	logger *slog.Logger

	// observers is owned exclusively by the Run goroutine.
	observers map[*observer]struct{}

	broadcast  chan Message
	register   chan *observer
	unregister chan *observer

	// done is closed when Run returns so observer pumps never block on
	// a hub that has stopped.
	done chan struct{}

	count atomic.Int64
}

// New creates a hub. Nothing is delivered until Run is called.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     log.Component("hub").With("hub", name),
		observers:  make(map[*observer]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *observer),
		unregister: make(chan *observer),
		done:       make(chan struct{}),
	}
}

// Run delivers broadcasts until the context is cancelled, then closes
// every observer. Call it in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for obs := range h.observers {
				close(obs.send)
				delete(h.observers, obs)
			}
			h.count.Store(0)
			return

		case obs := <-h.register:
			h.observers[obs] = struct{}{}
			h.count.Store(int64(len(h.observers)))
			h.logger.Info("observer connected", "total", len(h.observers))

		case obs := <-h.unregister:
			h.drop(obs)
			h.logger.Info("observer disconnected", "remaining", len(h.observers))

		case message := <-h.broadcast:
			for obs := range h.observers {
				select {
				case obs.send <- message:
				default:
					// The observer's queue is full; drop it rather
					// than stall the stream for everyone else.
					h.drop(obs)
					h.logger.Warn("dropped slow observer")
				}
			}
		}
	}
}

// drop removes one observer and closes its queue. Run goroutine only.
func (h *Hub) drop(obs *observer) {
	if _, ok := h.observers[obs]; ok {
		delete(h.observers, obs)
		close(obs.send)
	}
	h.count.Store(int64(len(h.observers)))
}

// Broadcast queues a message for every observer. It never blocks; when
// the hub itself is saturated the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a JSON message.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastEvent stamps and broadcasts one interview event.
func (h *Hub) BroadcastEvent(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	return h.BroadcastJSON(evt)
}

// BroadcastBinary broadcasts binary data, such as agent audio frames.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ObserverCount returns the number of connected observers.
func (h *Hub) ObserverCount() int {
	return int(h.count.Load())
}
