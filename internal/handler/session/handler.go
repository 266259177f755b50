// Package session exposes the session store over REST for the browser UI's
// sidebar: list, create, select, delete, and transcript retrieval.
package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uedevkit/assistant/backend/internal/model/chat"
	sessionService "github.com/uedevkit/assistant/backend/internal/service/session"
	"github.com/uedevkit/assistant/backend/pkg/utils"
)

// Handler serves the session management routes.
type Handler struct {
	store *sessionService.Store
}

// New creates the session handler.
func New(store *sessionService.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleList)
	r.Post("/sessions", h.handleCreate)
	r.Post("/sessions/{sessionID}/select", h.handleSelect)
	r.Delete("/sessions/{sessionID}", h.handleDelete)
	r.Get("/sessions/{sessionID}/messages", h.handleTranscript)
}

// listResponse carries the display-ordered sessions plus the active pointer.
type listResponse struct {
	Sessions   []chat.Session `json:"sessions"`
	ActiveID   string         `json:"activeId"`
	ActiveMode chat.Mode      `json:"activeMode"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	activeID, activeMode := h.store.Active()
	utils.RespondJSON(w, http.StatusOK, listResponse{
		Sessions:   h.store.Sessions(r.Context()),
		ActiveID:   activeID,
		ActiveMode: activeMode,
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Mode chat.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Mode == "" {
		payload.Mode = chat.ModeChat
	}

	created, err := h.store.CreateSession(r.Context(), payload.Mode)
	if err != nil {
		if errors.Is(err, sessionService.ErrUnknownMode) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	// Selecting an unknown session is a no-op by contract.
	h.store.SelectSession(r.Context(), chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		if errors.Is(err, sessionService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess.Messages)
}
