package analysis

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/roadtrust/internal/trustnet"
)

// SavePlots writes static PNG plots of the run into outputDir: detection
// accuracy over time and report volume over time. Returns the number of
// plots written.
func SavePlots(outputDir string, rows []trustnet.StatsRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	accuracyPts := make(plotter.XYs, 0, len(rows))
	totalPts := make(plotter.XYs, 0, len(rows))
	detectedPts := make(plotter.XYs, 0, len(rows))
	for _, row := range rows {
		accuracyPts = append(accuracyPts, plotter.XY{X: row.Timestamp, Y: row.DetectionAccuracy})
		totalPts = append(totalPts, plotter.XY{X: row.Timestamp, Y: float64(row.TotalReports)})
		detectedPts = append(detectedPts, plotter.XY{X: row.Timestamp, Y: float64(row.DetectedFakes)})
	}

	pAcc := plot.New()
	pAcc.Title.Text = "Detection Accuracy"
	pAcc.X.Label.Text = "Sim time (s)"
	pAcc.Y.Label.Text = "Accuracy"
	pAcc.Y.Min = 0
	pAcc.Y.Max = 1

	accLine, err := plotter.NewLine(accuracyPts)
	if err != nil {
		return 0, err
	}
	accLine.Width = vg.Points(1)
	pAcc.Add(accLine)

	accFile := filepath.Join(outputDir, "detection_accuracy.png")
	if err := pAcc.Save(14*vg.Inch, 6*vg.Inch, accFile); err != nil {
		return 0, fmt.Errorf("save accuracy plot: %w", err)
	}

	pVol := plot.New()
	pVol.Title.Text = "Report Volume"
	pVol.X.Label.Text = "Sim time (s)"
	pVol.Y.Label.Text = "Reports"

	totalLine, err := plotter.NewLine(totalPts)
	if err != nil {
		return 1, err
	}
	totalLine.Width = vg.Points(1)
	pVol.Add(totalLine)
	pVol.Legend.Add("total", totalLine)

	detectedLine, err := plotter.NewLine(detectedPts)
	if err != nil {
		return 1, err
	}
	detectedLine.Width = vg.Points(1)
	detectedLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	pVol.Add(detectedLine)
	pVol.Legend.Add("detected fakes", detectedLine)

	pVol.Legend.Top = true

	volFile := filepath.Join(outputDir, "report_volume.png")
	if err := pVol.Save(14*vg.Inch, 6*vg.Inch, volFile); err != nil {
		return 1, fmt.Errorf("save volume plot: %w", err)
	}

	return 2, nil
}
