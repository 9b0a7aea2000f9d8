// Package trustnet implements the trust-based report validation and dispatch
// pipeline: coverage routing of incident reports to roadside nodes, witness
// corroboration, multi-factor credibility scoring, per-reporter reputation,
// and deduplicated emergency dispatch.
package trustnet

import (
	"github.com/banshee-data/roadtrust/internal/geo"
	"github.com/google/uuid"
)

// ValidationStatus is the report lifecycle state. The only transition is
// pending -> validated, written exactly once by the Validator.
type ValidationStatus string

const (
	StatusPending   ValidationStatus = "pending"
	StatusValidated ValidationStatus = "validated"
)

// IncidentReport is one report of an incident as received by the pipeline.
//
// IsFake is simulation ground truth, used only for evaluation counters and
// never read by the Validator: the scoring function must not know it.
type IncidentReport struct {
	ID        string           `json:"id"`
	Reporter  string           `json:"reporter_id"`
	Type      string           `json:"type"` // accident | breakdown | hazard
	Location  geo.Point        `json:"location"`
	Timestamp float64          `json:"timestamp"`
	IsFake    bool             `json:"is_fake"`
	Witnesses []string         `json:"witnesses"`
	NodeID    *int             `json:"node_id"` // nil until routed; stays nil if never in coverage
	Status    ValidationStatus `json:"validated"`
	Score     float64          `json:"trust_score"` // meaningful only once validated
}

// NewIncidentReport creates a pending report.
func NewIncidentReport(reporter, reportType string, loc geo.Point, ts float64, isFake bool) *IncidentReport {
	return &IncidentReport{
		ID:        uuid.NewString(),
		Reporter:  reporter,
		Type:      reportType,
		Location:  loc,
		Timestamp: ts,
		IsFake:    isFake,
		Status:    StatusPending,
	}
}

// Validated reports whether the report has been through the Validator.
func (r *IncidentReport) Validated() bool {
	return r.Status == StatusValidated
}

// AddWitness records a corroborating vehicle on the report. Witnesses may
// only be added before the report is routed; later additions are ignored.
func (r *IncidentReport) AddWitness(vehicleID string) {
	if r.NodeID != nil {
		return
	}
	r.Witnesses = append(r.Witnesses, vehicleID)
}
