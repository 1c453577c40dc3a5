package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bandwidth-samples/webrtc-webphone/internal/agent"
	"github.com/bandwidth-samples/webrtc-webphone/internal/bandwidth"
	"github.com/bandwidth-samples/webrtc-webphone/internal/config"
	"github.com/bandwidth-samples/webrtc-webphone/internal/httpapi"
	"github.com/bandwidth-samples/webrtc-webphone/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	media := bandwidth.NewMediaClient(cfg.AccountID, cfg.Username, cfg.Password, cfg.MediaAPIURL)
	voice := bandwidth.NewVoiceClient(cfg.AccountID, cfg.Username, cfg.Password, cfg.VoiceAPIURL)
	agents := agent.NewManager(cfg, media, voice, metrics)

	api := httpapi.New(cfg, agents, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	// Release platform resources before closing the listener so the tunnel
	// call and endpoint identities do not linger on the platform side.
	teardownCtx, teardownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	agents.Teardown(teardownCtx)
	teardownCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
