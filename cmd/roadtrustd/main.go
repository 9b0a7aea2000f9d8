// Command roadtrustd runs the trust pipeline daemon: it consumes a vehicle
// feed (replay file or synthetic scenario), validates and dispatches incident
// reports, persists everything to SQLite, and serves the HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/roadtrust/internal/analysis"
	"github.com/banshee-data/roadtrust/internal/api"
	"github.com/banshee-data/roadtrust/internal/config"
	"github.com/banshee-data/roadtrust/internal/feed"
	"github.com/banshee-data/roadtrust/internal/notify"
	"github.com/banshee-data/roadtrust/internal/security"
	"github.com/banshee-data/roadtrust/internal/storage"
	"github.com/banshee-data/roadtrust/internal/timeutil"
	"github.com/banshee-data/roadtrust/internal/trustnet"
	"github.com/banshee-data/roadtrust/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "roadtrust.db", "Path to SQLite database (empty disables persistence)")
	configPath = flag.String("config", "", "Path to tuning config JSON")
	feedPath   = flag.String("feed", "", "Path to a JSONL snapshot feed (empty runs the synthetic scenario)")
	artifacts  = flag.String("artifacts", "", "Directory to stream stats.csv and reports.jsonl into (empty disables)")
	webhookURL = flag.String("dispatch-webhook", "", "URL to POST dispatch events to")
	realtime   = flag.Bool("realtime", false, "Pace ticks at the configured tick interval instead of running flat out")

	// synthetic scenario knobs, ignored when -feed is set
	seed     = flag.Int64("seed", 1, "Synthetic scenario seed")
	vehicles = flag.Int("vehicles", 200, "Synthetic scenario vehicle count")
	duration = flag.Int("duration", 1000, "Synthetic scenario duration in seconds")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("roadtrustd %s", version.String())

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	engineCfg := trustnet.EngineConfigFromTuning(cfg)

	var store *storage.Store
	if *dbPath != "" {
		var err error
		store, err = storage.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		if err := store.MigrateUp(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		if err := store.BeginRun(storage.RunInfo{
			Feed:              feedLabel(),
			CoverageRadius:    engineCfg.CoverageRadius,
			WitnessRadius:     engineCfg.WitnessRadius,
			FakeThreshold:     engineCfg.FakeThreshold,
			DispatchThreshold: engineCfg.DispatchThreshold,
		}); err != nil {
			log.Fatalf("Failed to begin run: %v", err)
		}
		log.Printf("run %s -> %s", store.RunID(), *dbPath)
	}

	var recorder trustnet.Recorder
	if store != nil {
		recorder = store
	}
	if *artifacts != "" {
		if err := security.ValidateExportPath(*artifacts); err != nil {
			log.Fatalf("Invalid artifacts directory: %v", err)
		}
		art, err := analysis.NewArtifactRecorder(*artifacts, recorder)
		if err != nil {
			log.Fatalf("Failed to open artifact files: %v", err)
		}
		defer art.Close()
		recorder = art
	}
	if *webhookURL != "" {
		recorder = notify.NewRecorder(recorder, notify.NewWebhook(nil, *webhookURL))
	}

	f, closeFeed, err := openFeed()
	if err != nil {
		log.Fatalf("Failed to open feed: %v", err)
	}
	defer closeFeed()

	nodes := trustnet.NewHighwayNodes(engineCfg.CoverageRadius)
	engine := trustnet.NewEngine(engineCfg, nodes, recorder)

	var tickInterval time.Duration
	if *realtime {
		tickInterval = cfg.GetTickInterval()
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// pipeline goroutine: consume the feed until it ends or we are signalled
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx, f, timeutil.RealClock{}, tickInterval); err != nil && err != context.Canceled {
			log.Printf("pipeline terminated: %v", err)
		}

		totals := engine.Stats().Totals()
		log.Printf("run complete: reports=%d dropped=%d fakes=%d detected=%d dispatches=%d",
			totals.TotalReports, totals.DroppedReports, totals.FakeReports,
			totals.DetectedFakes, totals.Dispatches)

		if store != nil {
			if err := store.SaveReputation(engine.Reputation().Snapshot()); err != nil {
				log.Printf("failed to save reputation snapshot: %v", err)
			}
			if err := store.FinishRun(); err != nil {
				log.Printf("failed to finish run: %v", err)
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// admin debugging routes (SQL console, backup)
		if store != nil {
			if err := store.AttachAdminRoutes(mux); err != nil {
				log.Fatalf("Failed to attach admin routes: %v", err)
			}
		}

		apiMux := api.NewServer(engine, store, engineCfg.FakeThreshold).ServeMux()
		mux.Handle("/api/", apiMux)
		mux.Handle("/charts", apiMux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

func feedLabel() string {
	if *feedPath != "" {
		return *feedPath
	}
	return "synthetic"
}

// openFeed selects the snapshot source: a JSONL replay file when -feed is
// set, the seeded synthetic scenario otherwise.
func openFeed() (feed.Feed, func(), error) {
	if *feedPath == "" {
		synth := feed.NewSynthetic(feed.SyntheticConfig{
			Seed:            *seed,
			Vehicles:        *vehicles,
			DurationSeconds: float64(*duration),
		})
		return synth, func() {}, nil
	}

	file, err := os.Open(*feedPath)
	if err != nil {
		return nil, nil, err
	}
	return feed.NewReplayFeed(file), func() { file.Close() }, nil
}
