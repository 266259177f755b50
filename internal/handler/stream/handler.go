// Package stream serves chat turns over Server-Sent Events: the browser
// submits a turn and watches the model response arrive fragment by fragment.
package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"

	chatmodel "github.com/uedevkit/assistant/backend/internal/model/chat"
	chatservice "github.com/uedevkit/assistant/backend/internal/service/chat"
	"github.com/uedevkit/assistant/backend/pkg/utils"
)

// TurnRunner runs one chat turn, emitting events to the sink.
type TurnRunner interface {
	SubmitTurn(ctx context.Context, sessionID, text string, grounding bool, sink chatservice.Sink) (bool, error)
}

// Handler streams turn events to the browser.
type Handler struct {
	orchestrator TurnRunner
}

// New creates a new stream handler.
func New(orchestrator TurnRunner) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// StreamResponse is one streamed event frame.
type StreamResponse struct {
	Event     string                      `json:"event"`
	SessionID string                      `json:"sessionId,omitempty"`
	MessageID string                      `json:"messageId,omitempty"`
	Content   string                      `json:"content,omitempty"`
	Sources   []chatmodel.GroundingSource `json:"sources,omitempty"`
	Finished  bool                        `json:"finished,omitempty"`
	Error     string                      `json:"error,omitempty"`
}

// HandleStreamRequest runs one turn for the session and forwards every turn
// event as an SSE frame. A dropped submission (empty input or a turn already
// in flight) closes the stream with an immediate end frame.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, message string, grounding bool) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	// The terminating end frame is written below once the turn settles, so
	// the orchestrator's own end event is not forwarded.
	sink := func(event chatservice.Event) {
		if event.Type == chatservice.EventEnd {
			return
		}
		h.sendSSE(w, flusher, Translate(sessionID, event))
	}

	accepted, err := h.orchestrator.SubmitTurn(ctx, sessionID, message, grounding, sink)
	if err != nil {
		h.sendSSE(w, flusher, StreamResponse{Event: "error", SessionID: sessionID, Error: err.Error()})
		return err
	}
	if !accepted {
		log.Printf("[stream] dropped submission for session=%s", sessionID)
	}

	h.sendSSE(w, flusher, StreamResponse{Event: "end", SessionID: sessionID, Finished: true})
	return nil
}

// Translate maps an orchestrator event onto the wire frame. Shared with the
// websocket transport so both emit identical payloads.
func Translate(sessionID string, event chatservice.Event) StreamResponse {
	frame := StreamResponse{
		Event:     string(event.Type),
		SessionID: sessionID,
		MessageID: event.MessageID,
		Sources:   event.Sources,
	}
	switch event.Type {
	case chatservice.EventDelta:
		frame.Content = event.Delta
	case chatservice.EventMessage:
		frame.Content = event.Text
	case chatservice.EventError:
		frame.Error = event.Text
	case chatservice.EventEnd:
		frame.Finished = true
	}
	return frame
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}
