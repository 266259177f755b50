package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// GroundingSource is a web reference the model attached to substantiate part
// of its answer. Title may be empty; URI is required.
type GroundingSource struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri"`
}

// Message is a single turn in a session transcript. User messages are
// immutable once appended; the in-flight AI message is the only one mutated
// after insertion, while the stream is applied.
type Message struct {
	ID        string            `json:"id"`
	Sender    Sender            `json:"sender"`
	Text      string            `json:"text"`
	CreatedAt time.Time         `json:"createdAt"`
	IsError   bool              `json:"isError,omitempty"`
	Sources   []GroundingSource `json:"groundingSources,omitempty"`
}
