// Package session owns the set of conversation threads, their persistence,
// and the currently active thread pointer. All session and message data is
// owned exclusively by the Store; other components mutate it only through
// the update entry points here.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uedevkit/assistant/backend/internal/model/chat"
	"github.com/uedevkit/assistant/backend/internal/storage"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUnknownMode     = errors.New("unknown mode")
)

const (
	// storageKey is the single well-known key the whole session collection
	// is serialized under.
	storageKey = "ue-assistant/sessions"

	// schemaVersion tags the persisted envelope; an unknown version is
	// treated the same as unreadable data.
	schemaVersion = 1

	defaultTitle = "New Chat"

	// titleLimit caps derived session titles, in runes.
	titleLimit = 30

	welcomeGeneric = "Welcome, Developer. I am your Unreal Engine AI Assistant. " +
		"I can help you with C++ syntax, Blueprint logic, or searching the latest UE5 documentation. " +
		"How can I assist you today?"

	welcomeBlueprint = "Welcome to the Blueprint Guide. Describe the gameplay logic you want to build " +
		"and I will walk you through the events, nodes, and wiring to use. What are you working on?"
)

// envelope is the persisted representation of the session collection.
type envelope struct {
	Version  int             `json:"version"`
	Sessions []*chat.Session `json:"sessions"`
}

// Store encapsulates conversation state management and its persistence.
type Store struct {
	mu         sync.RWMutex
	kv         storage.KV
	sessions   []*chat.Session
	activeID   string
	activeMode chat.Mode
}

// NewStore wraps the given persistence substrate. Call Load before use.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Load reads persisted state at process start. Missing or unreadable data is
// a benign cold-start condition: the store bootstraps one fresh default
// session instead of surfacing an error.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(ctx, storageKey)
	if err != nil {
		log.Printf("[store] failed to read persisted sessions: %v", err)
	}

	if ok && err == nil {
		var env envelope
		switch {
		case json.Unmarshal(raw, &env) != nil || env.Version != schemaVersion:
			log.Printf("[store] persisted sessions unreadable, starting fresh")
		case len(env.Sessions) == 0:
			// Readable but empty; the blob is normally deleted before this
			// state can be written.
			log.Printf("[store] persisted state held no sessions, starting fresh")
		default:
			s.sessions = env.Sessions
			s.activeID = env.Sessions[0].ID
			s.activeMode = env.Sessions[0].Mode
			return
		}
	}

	s.createSessionLocked(ctx, chat.ModeChat)
}

// CreateSession allocates a new session seeded with a mode-dependent welcome
// message, inserts it at the head of the list, and makes it active.
func (s *Store) CreateSession(ctx context.Context, mode chat.Mode) (chat.Session, error) {
	if !mode.Valid() {
		return chat.Session{}, ErrUnknownMode
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.createSessionLocked(ctx, mode)), nil
}

func (s *Store) createSessionLocked(ctx context.Context, mode chat.Mode) *chat.Session {
	welcome := welcomeGeneric
	if mode == chat.ModeBlueprintHelper {
		welcome = welcomeBlueprint
	}

	now := time.Now().UTC()
	session := &chat.Session{
		ID:        uuid.NewString(),
		Title:     defaultTitle,
		Mode:      mode,
		UpdatedAt: now,
		Messages: []chat.Message{{
			ID:        uuid.NewString(),
			Sender:    chat.SenderAI,
			Text:      welcome,
			CreatedAt: now,
		}},
	}

	s.sessions = append([]*chat.Session{session}, s.sessions...)
	s.activeID = session.ID
	s.activeMode = mode
	s.persistLocked(ctx)
	return session
}

// DeleteSession removes the session. When the active session is deleted the
// next one by display order takes over; deleting the last session clears the
// persisted blob entirely before a fresh default session is bootstrapped.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrSessionNotFound
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)

	if len(s.sessions) == 0 {
		if err := s.kv.Delete(ctx, storageKey); err != nil {
			log.Printf("[store] failed to clear persisted sessions: %v", err)
		}
		s.createSessionLocked(ctx, chat.ModeChat)
		return nil
	}

	if s.activeID == id {
		next := s.sortedLocked()[0]
		s.activeID = next.ID
		s.activeMode = next.Mode
	}
	s.persistLocked(ctx)
	return nil
}

// SelectSession sets the active session and synchronizes the active mode to
// the session's stored mode. Unknown ids are ignored.
func (s *Store) SelectSession(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return
	}
	s.activeID = id
	s.activeMode = s.sessions[idx].Mode
}

// AppendMessage appends to the session's transcript and bumps last-modified.
// The first real user turn (second message overall, after the seeded AI
// welcome) overwrites the session title with a derivation of its text.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, message chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(sessionID)
	if idx < 0 {
		return chat.Message{}, ErrSessionNotFound
	}
	session := s.sessions[idx]

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	session.Messages = append(session.Messages, message)
	session.UpdatedAt = time.Now().UTC()

	if len(session.Messages) == 2 && session.Messages[0].Sender == chat.SenderAI {
		session.Title = deriveTitle(message.Text)
	}

	s.persistLocked(ctx)
	return message, nil
}

// UpdateMessage replaces the text and source list of one message in place.
// Used exclusively while a model response is being streamed into the
// session's in-flight AI message. A nil sources slice means "absent".
func (s *Store) UpdateMessage(ctx context.Context, sessionID, messageID, text string, sources []chat.GroundingSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(sessionID)
	if idx < 0 {
		return ErrSessionNotFound
	}
	session := s.sessions[idx]

	for i := range session.Messages {
		if session.Messages[i].ID != messageID {
			continue
		}
		session.Messages[i].Text = text
		session.Messages[i].Sources = sources
		s.persistLocked(ctx)
		return nil
	}
	return ErrMessageNotFound
}

// Sessions returns a copy of all sessions sorted by last-modified
// descending. The order is recomputed on every call, never persisted.
func (s *Store) Sessions(_ context.Context) []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.sortedLocked()
	out := make([]chat.Session, 0, len(sorted))
	for _, session := range sorted {
		out = append(out, copySession(session))
	}
	return out
}

// Session returns a copy of one session by id.
func (s *Store) Session(_ context.Context, id string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return chat.Session{}, ErrSessionNotFound
	}
	return copySession(s.sessions[idx]), nil
}

// Active returns the active session id and mode.
func (s *Store) Active() (string, chat.Mode) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID, s.activeMode
}

func (s *Store) indexLocked(id string) int {
	for i, session := range s.sessions {
		if session.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) sortedLocked() []*chat.Session {
	sorted := make([]*chat.Session, len(s.sessions))
	copy(sorted, s.sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	return sorted
}

// persistLocked re-serializes the full session list to the single storage
// key. An empty list removes the key instead of writing an empty collection.
// Write errors are logged and swallowed; the previous value stands.
func (s *Store) persistLocked(ctx context.Context) {
	if len(s.sessions) == 0 {
		if err := s.kv.Delete(ctx, storageKey); err != nil {
			log.Printf("[store] failed to clear persisted sessions: %v", err)
		}
		return
	}

	raw, err := json.Marshal(envelope{Version: schemaVersion, Sessions: s.sessions})
	if err != nil {
		log.Printf("[store] failed to serialize sessions: %v", err)
		return
	}
	if err := s.kv.Put(ctx, storageKey, raw); err != nil {
		log.Printf("[store] failed to persist sessions: %v", err)
	}
}

// deriveTitle caps the first user message at titleLimit runes, marking
// truncation with an ellipsis.
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return text
	}
	return string(runes[:titleLimit]) + "..."
}

func copySession(session *chat.Session) chat.Session {
	out := *session
	out.Messages = make([]chat.Message, len(session.Messages))
	copy(out.Messages, session.Messages)
	return out
}
