package analysis

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/roadtrust/internal/storage"
	"github.com/banshee-data/roadtrust/internal/trustnet"
)

// RenderDashboard renders the run dashboard as a single HTML page: report
// volume and detection accuracy over time, the reputation distribution, and
// the report type breakdown.
func RenderDashboard(w io.Writer, runID string, rows []trustnet.StatsRow, reports []storage.ReportRow, reputation map[string]float64) error {
	page := components.NewPage()
	page.PageTitle = "Trust Pipeline Run"

	page.AddCharts(
		reportVolumeChart(runID, rows),
		accuracyChart(runID, rows),
		reputationChart(runID, reputation),
		reportTypeChart(runID, reports),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

func timeAxis(rows []trustnet.StatsRow) []string {
	x := make([]string, len(rows))
	for i, row := range rows {
		x[i] = fmt.Sprintf("%.0f", row.Timestamp)
	}
	return x
}

func reportVolumeChart(runID string, rows []trustnet.StatsRow) components.Charter {
	total := make([]opts.LineData, len(rows))
	fake := make([]opts.LineData, len(rows))
	detected := make([]opts.LineData, len(rows))
	for i, row := range rows {
		total[i] = opts.LineData{Value: row.TotalReports}
		fake[i] = opts.LineData{Value: row.FakeReports}
		detected[i] = opts.LineData{Value: row.DetectedFakes}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Report Volume", Subtitle: fmt.Sprintf("run=%s", runID)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sim time (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "reports"}),
	)
	line.SetXAxis(timeAxis(rows)).
		AddSeries("total", total).
		AddSeries("fake (ground truth)", fake).
		AddSeries("detected fakes", detected)
	return line
}

func accuracyChart(runID string, rows []trustnet.StatsRow) components.Charter {
	data := make([]opts.LineData, len(rows))
	for i, row := range rows {
		data[i] = opts.LineData{Value: row.DetectionAccuracy}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Detection Accuracy", Subtitle: fmt.Sprintf("run=%s", runID)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sim time (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "accuracy", Min: 0, Max: 1}),
	)
	line.SetXAxis(timeAxis(rows)).AddSeries("accuracy", data)
	return line
}

// reputationChart buckets final reputation scores into a 10-bin histogram.
func reputationChart(runID string, reputation map[string]float64) components.Charter {
	const bins = 10
	counts := make([]int, bins)
	for _, score := range reputation {
		bin := int(score * bins)
		if bin >= bins {
			bin = bins - 1
		}
		counts[bin]++
	}

	x := make([]string, bins)
	y := make([]opts.BarData, bins)
	for i := 0; i < bins; i++ {
		x[i] = fmt.Sprintf("%.1f-%.1f", float64(i)/bins, float64(i+1)/bins)
		y[i] = opts.BarData{Value: counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Reputation Distribution", Subtitle: fmt.Sprintf("run=%s vehicles=%d", runID, len(reputation))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "reputation"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "vehicles"}),
	)
	bar.SetXAxis(x).AddSeries("vehicles", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func reportTypeChart(runID string, reports []storage.ReportRow) components.Charter {
	byType := make(map[string]int)
	for _, r := range reports {
		byType[r.Type]++
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	data := make([]opts.PieData, 0, len(types))
	for _, t := range types {
		data = append(data, opts.PieData{Name: t, Value: byType[t]})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Report Types", Subtitle: fmt.Sprintf("run=%s reports=%d", runID, len(reports))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("reports", data)
	return pie
}
