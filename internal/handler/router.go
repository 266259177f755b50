package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	codegenHandler "github.com/uedevkit/assistant/backend/internal/handler/codegen"
	sessionHandler "github.com/uedevkit/assistant/backend/internal/handler/session"
	"github.com/uedevkit/assistant/backend/internal/handler/stream"
	"github.com/uedevkit/assistant/backend/internal/handler/ws"
	middlewarePkg "github.com/uedevkit/assistant/backend/internal/middleware"
	chatService "github.com/uedevkit/assistant/backend/internal/service/chat"
	codegenService "github.com/uedevkit/assistant/backend/internal/service/codegen"
	sessionService "github.com/uedevkit/assistant/backend/internal/service/session"
	"github.com/uedevkit/assistant/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(store *sessionService.Store, orchestrator *chatService.Orchestrator, codegenSvc *codegenService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	streamHandler := stream.New(orchestrator)

	r.Route("/api", func(api chi.Router) {
		sessionHandler.New(store).RegisterRoutes(api)
		codegenHandler.New(codegenSvc).RegisterRoutes(api)
		ws.New(orchestrator).RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			message := r.URL.Query().Get("message")
			if message == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			grounding, _ := strconv.ParseBool(r.URL.Query().Get("grounding"))

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, message, grounding); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
