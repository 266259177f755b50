// Package chat coordinates one user turn end to end: input submission,
// history construction, the streaming call to the provider, incremental
// reconciliation into the session store, and error recovery.
package chat

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/uedevkit/assistant/backend/internal/model/chat"
	"github.com/uedevkit/assistant/backend/internal/service/ai"
	"github.com/uedevkit/assistant/backend/internal/service/session"
)

// turnErrorText is the fixed explanation appended as a separate,
// error-flagged AI message whenever a turn fails.
const turnErrorText = "I encountered an error processing your request. Please check your network connection or API key."

// Streamer is the slice of the provider boundary a turn needs.
type Streamer interface {
	StreamConversation(ctx context.Context, history []ai.Turn, message string, grounding bool) (ai.Stream, error)
}

// EventType names the turn events observers can receive.
type EventType string

const (
	EventStart   EventType = "start"
	EventDelta   EventType = "delta"
	EventSources EventType = "sources"
	EventMessage EventType = "message"
	EventError   EventType = "error"
	EventEnd     EventType = "end"
)

// Event is one observable step of an in-flight turn. Delta carries the text
// appended by a single fragment; Text carries full accumulated text on the
// final message event and the fixed explanation on error events.
type Event struct {
	Type      EventType
	MessageID string
	Delta     string
	Text      string
	Sources   []chat.GroundingSource
}

// Sink receives turn events. Nil sinks are allowed.
type Sink func(Event)

// Orchestrator drives chat turns against the session store. At most one turn
// may be in flight per session; a second submission while busy is dropped.
type Orchestrator struct {
	store    *session.Store
	streamer Streamer

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewOrchestrator wires the store and the provider boundary together.
func NewOrchestrator(store *session.Store, streamer Streamer) *Orchestrator {
	return &Orchestrator{
		store:    store,
		streamer: streamer,
		inflight: make(map[string]struct{}),
	}
}

// SubmitTurn runs one complete user-submit / model-respond cycle. It reports
// whether the submission was accepted: empty input and a busy session are
// dropped without error. Provider failures are recovered into the transcript
// and never returned; the only errors surfaced are caller mistakes such as
// an unknown session id.
func (o *Orchestrator) SubmitTurn(ctx context.Context, sessionID, text string, grounding bool, sink Sink) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	if !o.acquire(sessionID) {
		return false, nil
	}
	defer o.release(sessionID)

	sess, err := o.store.Session(ctx, sessionID)
	if err != nil {
		return false, err
	}
	history := projectHistory(sess.Messages)

	if _, err := o.store.AppendMessage(ctx, sessionID, chat.Message{
		Sender: chat.SenderUser,
		Text:   text,
	}); err != nil {
		return false, err
	}

	emit(sink, Event{Type: EventStart})

	stream, err := o.streamer.StreamConversation(ctx, history, text, grounding)
	if err != nil {
		o.failTurn(ctx, sessionID, sink, err)
		return true, nil
	}
	defer stream.Close()

	// Exactly one placeholder per assistant turn, created before the first
	// fragment so the UI renders the pending message immediately.
	placeholder, err := o.store.AppendMessage(ctx, sessionID, chat.Message{
		Sender: chat.SenderAI,
	})
	if err != nil {
		o.failTurn(ctx, sessionID, sink, err)
		return true, nil
	}

	rec := newReconciler(o.store, sessionID, placeholder.ID, grounding)

	for {
		frag, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			// Partial text already folded into the placeholder stays as-is.
			o.failTurn(ctx, sessionID, sink, recvErr)
			return true, nil
		}
		if frag == nil {
			continue
		}

		if applyErr := rec.Apply(ctx, frag); applyErr != nil {
			o.failTurn(ctx, sessionID, sink, applyErr)
			return true, nil
		}

		if delta := strings.Join(frag.Parts, ""); delta != "" {
			emit(sink, Event{Type: EventDelta, MessageID: placeholder.ID, Delta: delta})
		}
		if grounding && len(frag.Sources) > 0 {
			emit(sink, Event{Type: EventSources, MessageID: placeholder.ID, Sources: rec.Sources()})
		}
	}

	emit(sink, Event{
		Type:      EventMessage,
		MessageID: placeholder.ID,
		Text:      rec.Text(),
		Sources:   rec.Sources(),
	})
	emit(sink, Event{Type: EventEnd})
	return true, nil
}

// failTurn appends the fixed error message as a new transcript entry. The
// partially streamed placeholder, if any, is left in place.
func (o *Orchestrator) failTurn(ctx context.Context, sessionID string, sink Sink, cause error) {
	log.Printf("[chat] turn failed for session=%s: %v", sessionID, cause)

	if _, err := o.store.AppendMessage(ctx, sessionID, chat.Message{
		Sender:  chat.SenderAI,
		Text:    turnErrorText,
		IsError: true,
	}); err != nil {
		log.Printf("[chat] failed to append error message: %v", err)
	}

	emit(sink, Event{Type: EventError, Text: turnErrorText})
}

func (o *Orchestrator) acquire(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[sessionID]; busy {
		return false
	}
	o.inflight[sessionID] = struct{}{}
	return true
}

func (o *Orchestrator) release(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, sessionID)
}

// projectHistory maps the transcript to role-tagged turns for the provider.
func projectHistory(messages []chat.Message) []ai.Turn {
	history := make([]ai.Turn, 0, len(messages))
	for _, msg := range messages {
		role := ai.RoleModel
		if msg.Sender == chat.SenderUser {
			role = ai.RoleUser
		}
		history = append(history, ai.Turn{Role: role, Text: msg.Text})
	}
	return history
}

func emit(sink Sink, event Event) {
	if sink != nil {
		sink(event)
	}
}
