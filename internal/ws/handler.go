// Package ws streams target state transitions to WebSocket clients.
package ws

import (
	"context"
	"net/http"

	"github.com/HerbHall/uptimewatch/internal/event"
	"github.com/HerbHall/uptimewatch/internal/pulse"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Handler provides the WebSocket endpoint for live transition updates.
type Handler struct {
	hub    *Hub
	logger *zap.Logger

	unsubscribe []func()
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to transition
// events on bus. bus may be nil.
func NewHandler(bus *event.Bus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		logger: logger,
	}
	h.subscribeToEvents(bus)
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws", h.handleStream)
}

// Close removes the bus subscriptions.
func (h *Handler) Close() {
	for _, unsub := range h.unsubscribe {
		unsub()
	}
	h.unsubscribe = nil
}

// Hub returns the handler's client hub.
func (h *Handler) Hub() *Hub { return h.hub }

// handleStream upgrades the connection and streams transitions until the
// client goes away. Clients are not expected to send anything.
//
//	@Summary		Stream target transitions
//	@Description	Upgrades to a WebSocket and sends a JSON Message for every target.down and target.recovered transition.
//	@Tags			status
//	@Success		101 {object} Message
//	@Router			/api/v1/ws [get]
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	client := newClient(conn, r.RemoteAddr, h.logger)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	client.serve(conn.CloseRead(r.Context()))
	conn.Close(websocket.StatusNormalClosure, "")
}

// subscribeToEvents forwards target transitions to all connected clients.
func (h *Handler) subscribeToEvents(bus *event.Bus) {
	if bus == nil {
		return
	}

	forward := func(typ MessageType) event.Handler {
		return func(_ context.Context, e event.Event) {
			ev, ok := e.Payload.(pulse.TransitionEvent)
			if !ok {
				return
			}
			h.hub.Broadcast(Message{
				Type:      typ,
				Alias:     ev.Alias,
				Timestamp: e.Timestamp,
				Data:      ev,
			})
		}
	}

	h.unsubscribe = append(h.unsubscribe,
		bus.Subscribe(pulse.TopicTargetDown, forward(MessageTargetDown)),
		bus.Subscribe(pulse.TopicTargetRecovered, forward(MessageTargetRecovered)),
	)

	h.logger.Info("subscribed to target transitions for WebSocket broadcasting")
}
