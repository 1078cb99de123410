package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/regattaflow/trackcore/internal/api"
	"github.com/regattaflow/trackcore/internal/config"
	"github.com/regattaflow/trackcore/internal/logging"
	"github.com/regattaflow/trackcore/internal/metrics"
	"github.com/regattaflow/trackcore/internal/routes"
	"github.com/regattaflow/trackcore/internal/watcher"
)

// @title RegattaFlow TrackCore API
// @version 1.0
// @description Race track ingestion and live tracking backend.
// @host localhost:8080
// @BasePath /
func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	var rotation *logging.FileRotation
	if cfg.Logging.File != "" {
		rotation = &logging.FileRotation{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}
	}
	if err := logging.Init(cfg.AppEnv, rotation); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("TrackCore starting up",
		"environment", cfg.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	metricsReg := metrics.NewMetricsRegistry()

	deps, err := api.InitDependencies(cfg, metricsReg)
	if err != nil {
		logging.Error("Failed to initialize dependencies", "error", err.Error())
		log.Fatalf("❌ Failed to initialize dependencies: %v", err)
	}

	// Optional spool importer: decode track files dropped into a directory.
	if cfg.Watcher.Dir != "" {
		w, err := watcher.New(cfg.Watcher, watcher.Options{Metrics: metricsReg})
		if err != nil {
			logging.Error("Failed to start spool watcher", "error", err.Error())
			log.Fatalf("❌ Failed to start spool watcher: %v", err)
		}
		go func() {
			if err := w.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error("Spool watcher stopped", "error", err.Error())
			}
		}()
	}

	// Initialize router with Chi
	router := routes.RegisterRoutes(deps)

	// Setup metrics endpoint outside of Chi router
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router) // Mount Chi router at root
	logging.Info("Prometheus metrics endpoint registered at /metrics")

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logging.Info("Server starting",
		"port", cfg.Server.Port,
		"environment", cfg.AppEnv,
	)

	log.Printf("Starting server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
