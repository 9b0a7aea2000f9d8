package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/roadtrust/internal/trustnet"
)

// ArtifactRecorder streams pipeline output to append-only files as the run
// progresses: a stats CSV and a reports JSONL. It decorates an inner recorder
// so it can sit in front of the SQLite store (or stand alone when persistence
// is disabled).
type ArtifactRecorder struct {
	inner trustnet.Recorder

	statsFile   *os.File
	statsCSV    *csv.Writer
	reportsFile *os.File
	reports     *json.Encoder
}

// NewArtifactRecorder creates stats.csv and reports.jsonl under dir and
// returns a recorder that appends to them on every stats row and report.
// inner may be nil.
func NewArtifactRecorder(dir string, inner trustnet.Recorder) (*ArtifactRecorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}

	statsFile, err := os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		return nil, err
	}
	reportsFile, err := os.Create(filepath.Join(dir, "reports.jsonl"))
	if err != nil {
		statsFile.Close()
		return nil, err
	}

	a := &ArtifactRecorder{
		inner:       inner,
		statsFile:   statsFile,
		statsCSV:    csv.NewWriter(statsFile),
		reportsFile: reportsFile,
		reports:     json.NewEncoder(reportsFile),
	}
	if err := a.statsCSV.Write(statsCSVHeader); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	a.statsCSV.Flush()
	return a, a.statsCSV.Error()
}

// RecordReport appends the report as one JSONL line, then forwards it.
func (a *ArtifactRecorder) RecordReport(r *trustnet.IncidentReport) error {
	if err := a.reports.Encode(r); err != nil {
		return fmt.Errorf("failed to append report %s: %w", r.ID, err)
	}
	if a.inner != nil {
		return a.inner.RecordReport(r)
	}
	return nil
}

// RecordStats appends the row to the CSV, then forwards it. Rows are flushed
// immediately so the file is usable while the run is still going.
func (a *ArtifactRecorder) RecordStats(row trustnet.StatsRow) error {
	if err := a.statsCSV.Write(statsCSVRecord(row)); err != nil {
		return fmt.Errorf("failed to append stats row: %w", err)
	}
	a.statsCSV.Flush()
	if err := a.statsCSV.Error(); err != nil {
		return err
	}
	if a.inner != nil {
		return a.inner.RecordStats(row)
	}
	return nil
}

// RecordDispatch forwards the event; dispatches have no standalone artifact.
func (a *ArtifactRecorder) RecordDispatch(ev trustnet.DispatchEvent) error {
	if a.inner != nil {
		return a.inner.RecordDispatch(ev)
	}
	return nil
}

// Close flushes and closes both artifact files.
func (a *ArtifactRecorder) Close() error {
	a.statsCSV.Flush()
	err := a.statsCSV.Error()
	if cerr := a.statsFile.Close(); err == nil {
		err = cerr
	}
	if cerr := a.reportsFile.Close(); err == nil {
		err = cerr
	}
	return err
}
