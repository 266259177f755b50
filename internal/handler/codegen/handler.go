// Package codegen exposes the class generation form's single endpoint.
package codegen

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	codegenModel "github.com/uedevkit/assistant/backend/internal/model/codegen"
	codegenService "github.com/uedevkit/assistant/backend/internal/service/codegen"
	"github.com/uedevkit/assistant/backend/pkg/utils"
)

// Handler serves class generation requests.
type Handler struct {
	svc *codegenService.Service
}

// New creates the codegen handler.
func New(svc *codegenService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the codegen route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/codegen", h.handleGenerate)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var params codegenModel.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params.ClassName = strings.TrimSpace(params.ClassName)

	output, err := h.svc.Generate(r.Context(), params)
	if err != nil {
		if errors.Is(err, codegenService.ErrGenerationInFlight) {
			utils.RespondError(w, http.StatusConflict, err.Error())
			return
		}
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Provider failures surface as the fixed error text in the output, the
	// same way the UI panel presents them.
	utils.RespondJSON(w, http.StatusOK, map[string]string{"output": output})
}
