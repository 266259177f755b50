// Package ws is the bidirectional chat transport: the browser submits turns
// over one socket and receives the same event frames the SSE endpoint emits.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/uedevkit/assistant/backend/internal/handler/stream"
	chatservice "github.com/uedevkit/assistant/backend/internal/service/chat"
)

// Handler upgrades chat connections and runs turns submitted over them.
type Handler struct {
	orchestrator stream.TurnRunner
	upgrader     websocket.Upgrader
}

// New creates the websocket chat handler.
func New(orchestrator stream.TurnRunner) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleSocket)
}

// inboundMessage is what the browser sends over the socket.
type inboundMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Grounding bool   `json:"grounding"`
}

func (h *Handler) handleSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	// Turn events arrive from the sink while this goroutine keeps reading;
	// gorilla allows one concurrent writer, so frames are serialized.
	var writeMu sync.Mutex
	send := func(frame stream.StreamResponse) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("[ws] write failed for session=%s: %v", sessionID, err)
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read failed for session=%s: %v", sessionID, err)
			}
			return
		}

		var inbound inboundMessage
		if err := json.Unmarshal(raw, &inbound); err != nil {
			send(stream.StreamResponse{Event: "error", SessionID: sessionID, Error: "invalid message"})
			continue
		}
		if inbound.Type != "message" {
			continue
		}

		h.runTurn(r.Context(), sessionID, inbound, send)
	}
}

// runTurn drives one submission and forwards its events as socket frames.
// Turns run sequentially per connection; the per-session single-flight guard
// in the orchestrator covers concurrent connections.
func (h *Handler) runTurn(ctx context.Context, sessionID string, inbound inboundMessage, send func(stream.StreamResponse)) {
	// The terminating end frame is written below once the turn settles.
	sink := func(event chatservice.Event) {
		if event.Type == chatservice.EventEnd {
			return
		}
		send(stream.Translate(sessionID, event))
	}

	accepted, err := h.orchestrator.SubmitTurn(ctx, sessionID, inbound.Text, inbound.Grounding, sink)
	if err != nil {
		send(stream.StreamResponse{Event: "error", SessionID: sessionID, Error: err.Error()})
		return
	}
	if !accepted {
		log.Printf("[ws] dropped submission for session=%s", sessionID)
	}

	send(stream.StreamResponse{Event: "end", SessionID: sessionID, Finished: true})
}
