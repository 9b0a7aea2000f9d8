package trustnet

import "github.com/banshee-data/roadtrust/internal/geo"

// Scoring weights. Reputation is a slow prior worth at most ±0.15 around the
// 0.5 base, witnesses are the strongest corroboration signal, and location
// plausibility is an asymmetric sanity check: a far-away reporter is worse
// evidence than an unverifiable one.
const (
	scoreBase        = 0.5
	reputationWeight = 0.3
	twoWitnessBonus  = 0.4
	oneWitnessBonus  = 0.2
	noWitnessPenalty = 0.2
	nearBonus        = 0.2
	farPenalty       = 0.3
)

// ValidatorConfig holds the validation thresholds and plausibility band.
type ValidatorConfig struct {
	FakeThreshold float64 // score below which a report is flagged fake
	NearDistance  float64 // reporter within this of the declared location: bonus
	FarDistance   float64 // reporter beyond this: penalty
}

// Outcome describes one validation pass.
type Outcome struct {
	// AlreadyValidated is true when the report had been validated before;
	// the pass was a no-op and no counters or reputation moved.
	AlreadyValidated bool
	Score            float64
	FlaggedFake      bool
	// Reputation is the reporter's score after the update.
	Reputation float64
}

// Validator scores pending reports and applies the reputation side effect.
// The ground-truth fake flag is deliberately never consulted.
type Validator struct {
	cfg        ValidatorConfig
	reputation *ReputationStore
}

// NewValidator creates a validator over the given reputation store.
func NewValidator(cfg ValidatorConfig, reputation *ReputationStore) *Validator {
	return &Validator{cfg: cfg, reputation: reputation}
}

// Score computes the report's credibility from the reporter's reputation,
// the witness count, and location plausibility. Pure function of the report
// and current reputation; reporterPos is the reporter's current position if
// known this tick (posKnown false skips the location term entirely).
func (v *Validator) Score(r *IncidentReport, reporterPos geo.Point, posKnown bool) float64 {
	score := scoreBase
	score += reputationWeight * (v.reputation.Get(r.Reporter) - 0.5)

	switch {
	case len(r.Witnesses) >= 2:
		score += twoWitnessBonus
	case len(r.Witnesses) == 1:
		score += oneWitnessBonus
	default:
		score -= noWitnessPenalty
	}

	if posKnown {
		dist := geo.Distance(reporterPos, r.Location)
		switch {
		case dist < v.cfg.NearDistance:
			score += nearBonus
		case dist > v.cfg.FarDistance:
			score -= farPenalty
		}
		// between the two: plausible but unverifiable, no adjustment
	}

	return geo.Clamp(score, 0, 1)
}

// Validate transitions the report pending -> validated exactly once, writing
// the score and classification and applying the reputation update. A second
// call on the same report is a no-op by construction.
func (v *Validator) Validate(r *IncidentReport, reporterPos geo.Point, posKnown bool) Outcome {
	if r.Validated() {
		return Outcome{AlreadyValidated: true, Score: r.Score, FlaggedFake: r.Score < v.cfg.FakeThreshold}
	}

	score := v.Score(r, reporterPos, posKnown)
	r.Score = score
	r.Status = StatusValidated

	out := Outcome{Score: score, FlaggedFake: score < v.cfg.FakeThreshold}
	if out.FlaggedFake {
		out.Reputation = v.reputation.Penalize(r.Reporter)
	} else {
		out.Reputation = v.reputation.Reward(r.Reporter)
	}
	return out
}
