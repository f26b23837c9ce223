// Walk-by analytics server. Ingests multi-sensor session uploads over
// HTTP, runs the hourly analysis pipeline on demand and serves the
// results as JSON, an HTML dashboard and Prometheus metrics.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/walkby.report/internal/api"
	"github.com/banshee-data/walkby.report/internal/config"
	"github.com/banshee-data/walkby.report/internal/db"
	"github.com/banshee-data/walkby.report/internal/ingest"
	"github.com/banshee-data/walkby.report/internal/timeutil"
	"github.com/banshee-data/walkby.report/internal/version"
	"github.com/banshee-data/walkby.report/internal/walkby"
)

var (
	listen       = flag.String("listen", ":8080", "Listen address")
	dbFile       = flag.String("db", "walkby_data.db", "SQLite database path")
	configPath   = flag.String("config", "", "tuning config JSON (defaults apply when empty)")
	footfallCSV  = flag.String("footfall", "", "areal pedestrian counter CSV used when no sensor sessions exist")
	volumeCSV    = flag.String("volume", "", "traffic volume CSV for the per-hour traffic proxy")
	tzName       = flag.String("tz", "Local", "IANA timezone the samples are captured in")
	seed         = flag.Int64("seed", 0, "cluster seed; 0 means non-deterministic")
	analyzeEvery = flag.Duration("analyze-every", 0, "re-run analysis on this interval (0 disables)")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	loc, err := timeutil.LoadCaptureLocation(*tzName)
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}

	var areal, traffic walkby.ArealLookup
	if *footfallCSV != "" {
		var err error
		areal, err = ingest.LoadArealFootfall(*footfallCSV)
		if err != nil {
			log.Fatalf("Failed to load areal footfall: %v", err)
		}
	}
	if *volumeCSV != "" {
		var err error
		traffic, err = ingest.LoadTrafficVolume(*volumeCSV, nil)
		if err != nil {
			log.Fatalf("Failed to load traffic volume: %v", err)
		}
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	var rng *rand.Rand
	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
	}

	srv := api.NewServer(api.ServerConfig{
		DB:       database,
		Tuning:   tuning,
		Areal:    areal,
		Traffic:  traffic,
		Location: loc,
		Rand:     rng,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *analyzeEvery > 0 {
		go srv.AutoAnalyze(ctx, *analyzeEvery)
		log.Printf("Scheduled analysis every %s", *analyzeEvery)
	}

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(srv.ServeMux()),
	}

	go func() {
		log.Printf("walkby.report %s listening on %s", version.String(), *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
