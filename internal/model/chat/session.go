package chat

import "time"

// Mode tags a session with the usage context it was opened in.
type Mode string

const (
	ModeChat            Mode = "chat"
	ModeClassGenerator  Mode = "class-generator"
	ModeBlueprintHelper Mode = "blueprint-helper"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeChat, ModeClassGenerator, ModeBlueprintHelper:
		return true
	}
	return false
}

// Session is one persisted conversation thread with its own history and mode.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Mode      Mode      `json:"mode"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Message `json:"messages"`
}
