// Package analysis turns a run's persisted output into evaluation metrics,
// CSV exports, and charts.
package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/roadtrust/internal/storage"
)

// Metrics summarizes detection quality for one run. The classifier under
// evaluation is the credibility score: a report counts as flagged when its
// score fell below the fake threshold.
type Metrics struct {
	TotalReports int `json:"total_reports"`
	FakeReports  int `json:"fake_reports"`
	Flagged      int `json:"flagged"`

	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`

	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`

	MeanScoreGenuine   float64 `json:"mean_score_genuine"`
	MeanScoreFake      float64 `json:"mean_score_fake"`
	StdDevScoreGenuine float64 `json:"stddev_score_genuine"`
	StdDevScoreFake    float64 `json:"stddev_score_fake"`
}

// Compute derives Metrics from the run's validated reports.
func Compute(reports []storage.ReportRow, fakeThreshold float64) Metrics {
	var m Metrics
	var genuineScores, fakeScores []float64

	for _, r := range reports {
		m.TotalReports++
		flagged := r.Score < fakeThreshold
		if flagged {
			m.Flagged++
		}
		if r.IsFake {
			m.FakeReports++
			fakeScores = append(fakeScores, r.Score)
			if flagged {
				m.TruePositives++
			} else {
				m.FalseNegatives++
			}
		} else {
			genuineScores = append(genuineScores, r.Score)
			if flagged {
				m.FalsePositives++
			} else {
				m.TrueNegatives++
			}
		}
	}

	if m.TruePositives+m.FalsePositives > 0 {
		m.Precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}
	if m.TruePositives+m.FalseNegatives > 0 {
		m.Recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	if m.TotalReports > 0 {
		m.Accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(m.TotalReports)
	}

	if len(genuineScores) > 0 {
		m.MeanScoreGenuine = stat.Mean(genuineScores, nil)
		if len(genuineScores) > 1 {
			m.StdDevScoreGenuine = stat.StdDev(genuineScores, nil)
		}
	}
	if len(fakeScores) > 0 {
		m.MeanScoreFake = stat.Mean(fakeScores, nil)
		if len(fakeScores) > 1 {
			m.StdDevScoreFake = stat.StdDev(fakeScores, nil)
		}
	}

	return m
}
