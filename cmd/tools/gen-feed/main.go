// Command gen-feed writes a synthetic vehicle scenario as a JSONL snapshot
// feed suitable for roadtrustd's -feed flag.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"

	"github.com/banshee-data/roadtrust/internal/feed"
	"github.com/banshee-data/roadtrust/internal/security"
)

var (
	outPath   = flag.String("out", "feed.jsonl", "Output file (- for stdout)")
	seed      = flag.Int64("seed", 1, "Scenario seed")
	vehicles  = flag.Int("vehicles", 200, "Vehicle count")
	duration  = flag.Int("duration", 1000, "Duration in seconds")
	fakeRatio = flag.Float64("fake-ratio", 0.3, "Share of events that are fabricated reports")
)

func main() {
	flag.Parse()

	var w io.Writer = os.Stdout
	if *outPath != "-" {
		if err := security.ValidateExportPath(*outPath); err != nil {
			log.Fatalf("Invalid output path: %v", err)
		}
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		w = f
	}

	bw := bufio.NewWriter(w)
	defer bw.Flush()

	synth := feed.NewSynthetic(feed.SyntheticConfig{
		Seed:            *seed,
		Vehicles:        *vehicles,
		DurationSeconds: float64(*duration),
		FakeRatio:       *fakeRatio,
	})

	snapshots := 0
	for {
		snap, err := synth.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Failed to generate snapshot: %v", err)
		}
		if err := feed.WriteSnapshot(bw, snap); err != nil {
			log.Fatalf("Failed to write snapshot: %v", err)
		}
		snapshots++
	}

	log.Printf("wrote %d snapshots (%d vehicles, %ds, seed %d)", snapshots, *vehicles, *duration, *seed)
}
