// Package ai is the boundary to the external generative-text service. It
// exposes exactly two capabilities: a streamed conversation turn and a
// single-shot text generation. Responses are normalized into Fragments at
// this boundary so nothing loosely typed propagates inward.
package ai

// Conversation roles as the provider expects them.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one prior conversation entry, projected to a provider role.
type Turn struct {
	Role string
	Text string
}

// Source is one citation entry extracted from a response fragment.
// Title may be empty; URI is expected to be resolvable.
type Source struct {
	Title string
	URI   string
}

// Fragment is one incremental unit of a streamed response: zero or more text
// parts to concatenate in order, and zero or more citation entries.
type Fragment struct {
	Parts   []string
	Sources []Source
}

// Stream is a lazy, finite, non-restartable sequence of fragments.
// Recv returns io.EOF once the sequence is exhausted. Close is idempotent
// and releases the underlying call.
type Stream interface {
	Recv() (*Fragment, error)
	Close() error
}
