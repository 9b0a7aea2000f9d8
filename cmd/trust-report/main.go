// Command trust-report produces an offline evaluation of a recorded run:
// the stats CSV, report and metrics JSON, PNG plots, and the HTML dashboard.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/roadtrust/internal/analysis"
	"github.com/banshee-data/roadtrust/internal/security"
	"github.com/banshee-data/roadtrust/internal/storage"
)

var (
	dbPath    = flag.String("db", "roadtrust.db", "Path to SQLite database")
	runID     = flag.String("run", "", "Run UUID to report on (default: most recent)")
	outputDir = flag.String("out", "", "Output directory (default: report-<feed>)")
	listRuns  = flag.Bool("list", false, "List recorded runs and exit")
)

func main() {
	flag.Parse()

	store, err := storage.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		log.Fatal("No runs recorded in this database")
	}

	if *listRuns {
		for _, run := range runs {
			finished := "running"
			if run.FinishedAt != nil {
				finished = *run.FinishedAt
			}
			fmt.Printf("%s  feed=%s started=%s finished=%s\n", run.ID, run.Feed, run.StartedAt, finished)
		}
		return
	}

	run := runs[0]
	if *runID != "" {
		found := false
		for _, r := range runs {
			if r.ID == *runID {
				run = r
				found = true
				break
			}
		}
		if !found {
			log.Fatalf("Run %s not found (use -list to see recorded runs)", *runID)
		}
	}
	store.UseRun(run.ID)
	log.Printf("reporting on run %s (feed=%s)", run.ID, run.Feed)

	outDir := *outputDir
	if outDir == "" {
		outDir = "report-" + security.SanitizeFilename(run.Feed)
	}
	if err := security.ValidateExportPath(outDir); err != nil {
		log.Fatalf("Invalid output directory: %v", err)
	}

	statsRows, err := store.StatsRows()
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	reports, err := store.Reports(1000000)
	if err != nil {
		log.Fatalf("Failed to read reports: %v", err)
	}
	reputation, err := store.Reputation()
	if err != nil {
		log.Fatalf("Failed to read reputation: %v", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	if err := writeFile(filepath.Join(outDir, "stats.csv"), func(f *os.File) error {
		return analysis.WriteStatsCSV(f, statsRows)
	}); err != nil {
		log.Fatalf("Failed to write stats CSV: %v", err)
	}

	if err := writeFile(filepath.Join(outDir, "reports.json"), func(f *os.File) error {
		return analysis.WriteReportsJSON(f, reports)
	}); err != nil {
		log.Fatalf("Failed to write reports JSON: %v", err)
	}

	metrics := analysis.Compute(reports, run.FakeThreshold)
	if err := writeFile(filepath.Join(outDir, "metrics.json"), func(f *os.File) error {
		return analysis.WriteMetricsJSON(f, metrics)
	}); err != nil {
		log.Fatalf("Failed to write metrics JSON: %v", err)
	}

	if err := writeFile(filepath.Join(outDir, "dashboard.html"), func(f *os.File) error {
		return analysis.RenderDashboard(f, run.ID, statsRows, reports, reputation)
	}); err != nil {
		log.Fatalf("Failed to write dashboard: %v", err)
	}

	plots, err := analysis.SavePlots(outDir, statsRows)
	if err != nil {
		log.Fatalf("Failed to save plots: %v", err)
	}

	log.Printf("wrote stats.csv, reports.json, metrics.json, dashboard.html and %d plots to %s", plots, outDir)
	log.Printf("precision=%.3f recall=%.3f f1=%.3f accuracy=%.3f",
		metrics.Precision, metrics.Recall, metrics.F1, metrics.Accuracy)
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}
