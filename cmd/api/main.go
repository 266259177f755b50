package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/uedevkit/assistant/backend/internal/config"
	"github.com/uedevkit/assistant/backend/internal/handler"
	aiService "github.com/uedevkit/assistant/backend/internal/service/ai"
	chatService "github.com/uedevkit/assistant/backend/internal/service/chat"
	codegenService "github.com/uedevkit/assistant/backend/internal/service/codegen"
	sessionService "github.com/uedevkit/assistant/backend/internal/service/session"
	"github.com/uedevkit/assistant/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Hard precondition: without the credential the service refuses to
	// operate rather than degrade.
	if !cfg.AI.Enabled() {
		log.Fatal("GEMINI_API_KEY is required; set it in the environment or .env and restart")
	}

	kv, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("failed to open session storage: %v", err)
	}
	defer kv.Close()

	store := sessionService.NewStore(kv)
	store.Load(ctx)

	aiSvc, err := aiService.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}

	orchestrator := chatService.NewOrchestrator(store, aiSvc)
	codegenSvc := codegenService.NewService(aiSvc)

	router := handler.NewRouter(store, orchestrator, codegenSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("UE Assistant backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
