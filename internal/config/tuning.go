package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DedupKeyMode selects the dispatch deduplication key. The default keys on
// (reporter, timestamp) so a reporter may trigger again for a later event;
// "reporter" keys on reporter id alone, allowing at most one dispatch per
// reporter for the whole run.
const (
	DedupReporterTimestamp = "reporter_timestamp"
	DedupReporterOnly      = "reporter"
)

// TuningConfig represents the root configuration for pipeline parameters.
// All fields are optional pointers so a partial JSON file overrides only the
// values it names; the Get* accessors carry the canonical defaults.
type TuningConfig struct {
	// Coverage and corroboration radii (scenario distance units)
	CoverageRadius *float64 `json:"coverage_radius,omitempty"`
	WitnessRadius  *float64 `json:"witness_radius,omitempty"`

	// Location plausibility band for validation
	NearPlausibleDistance  *float64 `json:"near_plausible_distance,omitempty"`
	FarImplausibleDistance *float64 `json:"far_implausible_distance,omitempty"`

	// Classification and dispatch thresholds
	FakeThreshold     *float64 `json:"fake_threshold,omitempty"`
	DispatchThreshold *float64 `json:"dispatch_threshold,omitempty"`

	// Reputation dynamics
	DefaultReputation *float64 `json:"default_reputation,omitempty"`
	ReputationReward  *float64 `json:"reputation_reward,omitempty"`
	ReputationPenalty *float64 `json:"reputation_penalty,omitempty"`

	// Dispatch dedup key variant
	DedupKeyMode *string `json:"dedup_key_mode,omitempty"`

	// Telemetry cadence (simulation ticks between stats rows)
	StatsIntervalTicks *int `json:"stats_interval_ticks,omitempty"`

	// Daemon pacing (wall-clock duration per tick), duration string like "1s"
	TickInterval *string `json:"tick_interval,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset, meaning
// every accessor serves its default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.CoverageRadius != nil && *c.CoverageRadius <= 0 {
		return fmt.Errorf("coverage_radius must be positive, got %f", *c.CoverageRadius)
	}
	if c.WitnessRadius != nil && *c.WitnessRadius <= 0 {
		return fmt.Errorf("witness_radius must be positive, got %f", *c.WitnessRadius)
	}
	for name, v := range map[string]*float64{
		"fake_threshold":     c.FakeThreshold,
		"dispatch_threshold": c.DispatchThreshold,
		"default_reputation": c.DefaultReputation,
		"reputation_reward":  c.ReputationReward,
		"reputation_penalty": c.ReputationPenalty,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}
	if c.DedupKeyMode != nil {
		switch *c.DedupKeyMode {
		case DedupReporterTimestamp, DedupReporterOnly:
		default:
			return fmt.Errorf("dedup_key_mode must be %q or %q, got %q",
				DedupReporterTimestamp, DedupReporterOnly, *c.DedupKeyMode)
		}
	}
	if c.StatsIntervalTicks != nil && *c.StatsIntervalTicks <= 0 {
		return fmt.Errorf("stats_interval_ticks must be positive, got %d", *c.StatsIntervalTicks)
	}
	if c.TickInterval != nil && *c.TickInterval != "" {
		if _, err := time.ParseDuration(*c.TickInterval); err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
	}
	return nil
}

// GetCoverageRadius returns the coverage_radius value or the default.
func (c *TuningConfig) GetCoverageRadius() float64 {
	if c.CoverageRadius == nil {
		return 500
	}
	return *c.CoverageRadius
}

// GetWitnessRadius returns the witness_radius value or the default.
func (c *TuningConfig) GetWitnessRadius() float64 {
	if c.WitnessRadius == nil {
		return 200
	}
	return *c.WitnessRadius
}

// GetNearPlausibleDistance returns the near_plausible_distance value or the default.
func (c *TuningConfig) GetNearPlausibleDistance() float64 {
	if c.NearPlausibleDistance == nil {
		return 100
	}
	return *c.NearPlausibleDistance
}

// GetFarImplausibleDistance returns the far_implausible_distance value or the default.
func (c *TuningConfig) GetFarImplausibleDistance() float64 {
	if c.FarImplausibleDistance == nil {
		return 500
	}
	return *c.FarImplausibleDistance
}

// GetFakeThreshold returns the fake_threshold value or the default.
func (c *TuningConfig) GetFakeThreshold() float64 {
	if c.FakeThreshold == nil {
		return 0.3
	}
	return *c.FakeThreshold
}

// GetDispatchThreshold returns the dispatch_threshold value or the default.
func (c *TuningConfig) GetDispatchThreshold() float64 {
	if c.DispatchThreshold == nil {
		return 0.7
	}
	return *c.DispatchThreshold
}

// GetDefaultReputation returns the default_reputation value or the default.
func (c *TuningConfig) GetDefaultReputation() float64 {
	if c.DefaultReputation == nil {
		return 0.5
	}
	return *c.DefaultReputation
}

// GetReputationReward returns the reputation_reward value or the default.
func (c *TuningConfig) GetReputationReward() float64 {
	if c.ReputationReward == nil {
		return 0.1
	}
	return *c.ReputationReward
}

// GetReputationPenalty returns the reputation_penalty value or the default.
func (c *TuningConfig) GetReputationPenalty() float64 {
	if c.ReputationPenalty == nil {
		return 0.3
	}
	return *c.ReputationPenalty
}

// GetDedupKeyMode returns the dedup_key_mode value or the default.
func (c *TuningConfig) GetDedupKeyMode() string {
	if c.DedupKeyMode == nil || *c.DedupKeyMode == "" {
		return DedupReporterTimestamp
	}
	return *c.DedupKeyMode
}

// GetStatsIntervalTicks returns the stats_interval_ticks value or the default.
func (c *TuningConfig) GetStatsIntervalTicks() int {
	if c.StatsIntervalTicks == nil {
		return 100
	}
	return *c.StatsIntervalTicks
}

// GetTickInterval parses and returns the TickInterval as a time.Duration.
func (c *TuningConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil {
		return time.Second
	}
	return d
}
