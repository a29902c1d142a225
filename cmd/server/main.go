package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"officer-intel/backend/internal/api"
	"officer-intel/backend/internal/config"
	"officer-intel/backend/internal/logging"
)

func main() {
	cfg := config.FromEnv()
	logCloser := logging.Setup(cfg.Logging)
	defer logCloser.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	engine, closeEngine, err := cfg.Engine()
	if err != nil {
		logrus.Fatalf("build detection engine: %v", err)
	}
	defer closeEngine()

	extractor, err := cfg.Facilities()
	if err != nil {
		logrus.Fatalf("build facility extractor: %v", err)
	}

	searcher, err := cfg.Searcher()
	if err != nil {
		logrus.Fatalf("build search client: %v", err)
	}

	server, err := api.NewServer(api.Config{
		DBPath:         cfg.DBPath,
		AllowedOrigins: cfg.AllowedOrigins,
		Engine:         engine,
		Facilities:     extractor,
		Filings:        cfg.Filings(),
		Completer:      cfg.Completer(),
		Searcher:       searcher,
		FilingForm:     cfg.FilingForm,
		DetectTimeout:  cfg.DetectTimeout,
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.Infof("starting officer-intel backend on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("http shutdown")
	}
	if err := server.Close(); err != nil {
		logrus.WithError(err).Warn("close server")
	}
}
