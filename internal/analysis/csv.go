package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/roadtrust/internal/storage"
	"github.com/banshee-data/roadtrust/internal/trustnet"
)

// statsCSVHeader is the evaluation CSV column order consumed by downstream
// tooling; total_vehicles is the active count at the row's timestamp.
var statsCSVHeader = []string{
	"timestamp", "total_vehicles", "total_reports",
	"fake_reports", "detected_fakes", "detection_accuracy",
}

func statsCSVRecord(row trustnet.StatsRow) []string {
	return []string{
		strconv.FormatFloat(row.Timestamp, 'f', -1, 64),
		strconv.Itoa(row.ActiveVehicles),
		strconv.Itoa(row.TotalReports),
		strconv.Itoa(row.FakeReports),
		strconv.Itoa(row.DetectedFakes),
		strconv.FormatFloat(row.DetectionAccuracy, 'f', -1, 64),
	}
}

// WriteStatsCSV writes the run's periodic stats rows in the evaluation CSV
// format.
func WriteStatsCSV(w io.Writer, rows []trustnet.StatsRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(statsCSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(statsCSVRecord(row)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteReportsJSON writes the run's reports as one JSON array, indented for
// manual inspection.
func WriteReportsJSON(w io.Writer, reports []storage.ReportRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// WriteMetricsJSON writes the computed metrics summary.
func WriteMetricsJSON(w io.Writer, m Metrics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
