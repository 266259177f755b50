package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/uedevkit/assistant/backend/internal/handler/session"
	"github.com/uedevkit/assistant/backend/internal/model/chat"
	sessionService "github.com/uedevkit/assistant/backend/internal/service/session"
	"github.com/uedevkit/assistant/backend/internal/storage"
)

func newTestRouter(t *testing.T) (chi.Router, *sessionService.Store) {
	t.Helper()
	store := sessionService.NewStore(storage.NewMemory())
	store.Load(context.Background())

	r := chi.NewRouter()
	session.New(store).RegisterRoutes(r)
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListSessions(t *testing.T) {
	r, store := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Sessions   []chat.Session `json:"sessions"`
		ActiveID   string         `json:"activeId"`
		ActiveMode chat.Mode      `json:"activeMode"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode err: %v", err)
	}

	activeID, _ := store.Active()
	if len(payload.Sessions) != 1 {
		t.Fatalf("sessions = %+v", payload.Sessions)
	}
	if payload.ActiveID != activeID {
		t.Fatalf("activeId = %q, want %q", payload.ActiveID, activeID)
	}
	if payload.ActiveMode != chat.ModeChat {
		t.Fatalf("activeMode = %q", payload.ActiveMode)
	}
}

func TestCreateSession(t *testing.T) {
	r, store := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/sessions", `{"mode":"blueprint-helper"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created chat.Session
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if created.Mode != chat.ModeBlueprintHelper {
		t.Fatalf("mode = %q", created.Mode)
	}
	if len(created.Messages) != 1 || created.Messages[0].Sender != chat.SenderAI {
		t.Fatalf("messages = %+v", created.Messages)
	}

	// The new session becomes active.
	activeID, activeMode := store.Active()
	if activeID != created.ID || activeMode != chat.ModeBlueprintHelper {
		t.Fatalf("active = %q/%q", activeID, activeMode)
	}
}

func TestCreateSessionDefaultsToChatMode(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/sessions", `{}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created chat.Session
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if created.Mode != chat.ModeChat {
		t.Fatalf("mode = %q", created.Mode)
	}
}

func TestCreateSessionUnknownMode(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/sessions", `{"mode":"bogus"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestSelectSession(t *testing.T) {
	r, store := newTestRouter(t)
	firstID, _ := store.Active()
	second, _ := store.CreateSession(context.Background(), chat.ModeChat)

	rec := doJSON(t, r, http.MethodPost, "/sessions/"+firstID+"/select", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if activeID, _ := store.Active(); activeID != firstID {
		t.Fatalf("active = %q, want %q", activeID, firstID)
	}

	// Selecting an unknown session is a no-op, not an error.
	rec = doJSON(t, r, http.MethodPost, "/sessions/missing/select", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if activeID, _ := store.Active(); activeID != firstID {
		t.Fatalf("active = %q, want %q", activeID, firstID)
	}

	_ = second
}

func TestDeleteSession(t *testing.T) {
	r, store := newTestRouter(t)
	firstID, _ := store.Active()
	store.CreateSession(context.Background(), chat.ModeChat)

	rec := doJSON(t, r, http.MethodDelete, "/sessions/"+firstID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, err := store.Session(context.Background(), firstID); err == nil {
		t.Fatal("session must be gone after delete")
	}

	rec = doJSON(t, r, http.MethodDelete, "/sessions/"+firstID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTranscript(t *testing.T) {
	r, store := newTestRouter(t)
	sessionID, _ := store.Active()
	store.AppendMessage(context.Background(), sessionID, chat.Message{Sender: chat.SenderUser, Text: "hello"})

	rec := doJSON(t, r, http.MethodGet, "/sessions/"+sessionID+"/messages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var messages []chat.Message
	if err := json.NewDecoder(rec.Body).Decode(&messages); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(messages) != 2 || messages[1].Text != "hello" {
		t.Fatalf("messages = %+v", messages)
	}

	rec = doJSON(t, r, http.MethodGet, "/sessions/missing/messages", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
