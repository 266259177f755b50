package chat

import (
	"context"
	"strings"

	"github.com/uedevkit/assistant/backend/internal/model/chat"
	"github.com/uedevkit/assistant/backend/internal/service/ai"
	"github.com/uedevkit/assistant/backend/internal/service/session"
)

// reconciler folds a fragment sequence into one in-flight AI message. It
// holds a view scoped to exactly one session and one message and is
// discarded when the streaming turn ends.
type reconciler struct {
	store     *session.Store
	sessionID string
	messageID string
	grounding bool
	text      strings.Builder
	sources   []chat.GroundingSource
}

func newReconciler(store *session.Store, sessionID, messageID string, grounding bool) *reconciler {
	return &reconciler{
		store:     store,
		sessionID: sessionID,
		messageID: messageID,
		grounding: grounding,
	}
}

// Apply folds one fragment: citation entries with a non-empty address are
// appended to the running accumulator (append-only, no dedup), text parts
// are concatenated in order, and the target message is then replaced
// wholesale with the current accumulator state. Citations are only
// considered when grounding was enabled on the request.
func (r *reconciler) Apply(ctx context.Context, frag *ai.Fragment) error {
	if r.grounding {
		for _, src := range frag.Sources {
			if src.URI == "" {
				continue
			}
			r.sources = append(r.sources, chat.GroundingSource{Title: src.Title, URI: src.URI})
		}
	}

	for _, part := range frag.Parts {
		r.text.WriteString(part)
	}

	return r.store.UpdateMessage(ctx, r.sessionID, r.messageID, r.text.String(), r.Sources())
}

// Text returns the accumulated message text so far.
func (r *reconciler) Text() string {
	return r.text.String()
}

// Sources returns a snapshot of the accumulated citations, nil while none
// exist so "no sources" stays distinct from "not applicable".
func (r *reconciler) Sources() []chat.GroundingSource {
	if len(r.sources) == 0 {
		return nil
	}
	out := make([]chat.GroundingSource, len(r.sources))
	copy(out, r.sources)
	return out
}
