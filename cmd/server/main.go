package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/david/rfp-desk/internal/api"
	"github.com/david/rfp-desk/internal/app"
	"github.com/david/rfp-desk/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The first load failing is not fatal: the session keeps a banner and
	// the frontend can retry through /api/v1/refresh.
	go func() {
		if err := a.Session.Initialize(ctx); err != nil {
			log.Printf("Initial load failed: %v", err)
		}
	}()

	srv := api.NewServer(a.Session, a.Desk, a.Metrics, cfg.Server.CORSOrigins)
	go func() {
		log.Printf("Server starting on port %s (backend %s, feed %s)...", cfg.Server.Port, a.Client.BaseURL(), cfg.FeedName())
		if err := srv.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}
