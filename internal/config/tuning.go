package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the walk-by
// analytics pipeline. All numeric policy constants of the estimation
// and segmentation stages live here so policy changes stay localised.
// Fields are pointers so partial JSON configs are safe; the Get*
// accessors supply defaults for anything unset.
type TuningConfig struct {
	// Audio normalisation params
	AudioFloorDB   *float64 `json:"audio_floor_db,omitempty"`
	AudioCeilingDB *float64 `json:"audio_ceiling_db,omitempty"`

	// Light normalisation params
	LightReferenceLux *float64 `json:"light_reference_lux,omitempty"`
	LightFactorBase   *float64 `json:"light_factor_base,omitempty"`
	LightFactorSpan   *float64 `json:"light_factor_span,omitempty"`

	// Footfall estimator params
	FootfallCeiling  *float64 `json:"footfall_ceiling,omitempty"`
	LowSampleCount   *int     `json:"low_sample_count,omitempty"`
	LowSampleFactor  *float64 `json:"low_sample_factor,omitempty"`
	ArealScaleFactor *float64 `json:"areal_scale_factor,omitempty"`

	// Score fusion params
	ScoreScale            *float64 `json:"score_scale,omitempty"`
	AudioWeight           *float64 `json:"audio_weight,omitempty"`
	FootfallWeight        *float64 `json:"footfall_weight,omitempty"`
	LightWeight           *float64 `json:"light_weight,omitempty"`
	DefaultLightComponent *float64 `json:"default_light_component,omitempty"`

	// Smoother/forecaster params
	FilterInitialCovariance *float64 `json:"filter_initial_covariance,omitempty"`
	FilterProcessNoise      *float64 `json:"filter_process_noise,omitempty"`
	FilterMeasurementNoise  *float64 `json:"filter_measurement_noise,omitempty"`
	ForecastFilterWeight    *float64 `json:"forecast_filter_weight,omitempty"`

	// Clusterer params
	ClusterCount         *int     `json:"cluster_count,omitempty"`
	ClusterMoveTolerance *float64 `json:"cluster_move_tolerance,omitempty"`
	ClusterMaxIterations *int     `json:"cluster_max_iterations,omitempty"`

	// Busy-period segmenter params
	BusyMinScoreThreshold    *float64 `json:"busy_min_score_threshold,omitempty"`
	BusyScoreFraction        *float64 `json:"busy_score_fraction,omitempty"`
	BusyMinFootfallThreshold *float64 `json:"busy_min_footfall_threshold,omitempty"`
	BusyFootfallFraction     *float64 `json:"busy_footfall_fraction,omitempty"`
	ActivityThresholdDB      *float64 `json:"activity_threshold_db,omitempty"`
	BusyMaxGapHours          *int     `json:"busy_max_gap_hours,omitempty"`
	BusyMinSpanHours         *int     `json:"busy_min_span_hours,omitempty"`
	BusyTopN                 *int     `json:"busy_top_n,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the JSON retain their compiled-in defaults, so partial configs
// are safe.
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

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and common parent
// directories. Panics if the file cannot be loaded; intended for test
// setup and binaries that have already validated config availability.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are coherent.
func (c *TuningConfig) Validate() error {
	if c.AudioFloorDB != nil && c.AudioCeilingDB != nil {
		if *c.AudioFloorDB >= *c.AudioCeilingDB {
			return fmt.Errorf("audio_floor_db (%f) must be below audio_ceiling_db (%f)", *c.AudioFloorDB, *c.AudioCeilingDB)
		}
	}
	if c.FootfallCeiling != nil && *c.FootfallCeiling <= 0 {
		return fmt.Errorf("footfall_ceiling must be positive, got %f", *c.FootfallCeiling)
	}
	if c.LowSampleFactor != nil {
		if *c.LowSampleFactor <= 0 || *c.LowSampleFactor > 1 {
			return fmt.Errorf("low_sample_factor must be in (0, 1], got %f", *c.LowSampleFactor)
		}
	}
	if c.ArealScaleFactor != nil {
		if *c.ArealScaleFactor <= 0 || *c.ArealScaleFactor > 1 {
			return fmt.Errorf("areal_scale_factor must be in (0, 1], got %f", *c.ArealScaleFactor)
		}
	}
	if c.AudioWeight != nil && c.FootfallWeight != nil && c.LightWeight != nil {
		sum := *c.AudioWeight + *c.FootfallWeight + *c.LightWeight
		if sum < 0.999 || sum > 1.001 {
			return fmt.Errorf("score weights must sum to 1, got %f", sum)
		}
	}
	if c.ForecastFilterWeight != nil {
		if *c.ForecastFilterWeight < 0 || *c.ForecastFilterWeight > 1 {
			return fmt.Errorf("forecast_filter_weight must be between 0 and 1, got %f", *c.ForecastFilterWeight)
		}
	}
	if c.ClusterCount != nil && *c.ClusterCount < 1 {
		return fmt.Errorf("cluster_count must be at least 1, got %d", *c.ClusterCount)
	}
	if c.ClusterMaxIterations != nil && *c.ClusterMaxIterations < 1 {
		return fmt.Errorf("cluster_max_iterations must be at least 1, got %d", *c.ClusterMaxIterations)
	}
	if c.BusyMaxGapHours != nil && *c.BusyMaxGapHours < 0 {
		return fmt.Errorf("busy_max_gap_hours must be non-negative, got %d", *c.BusyMaxGapHours)
	}
	if c.BusyMinSpanHours != nil && *c.BusyMinSpanHours < 1 {
		return fmt.Errorf("busy_min_span_hours must be at least 1, got %d", *c.BusyMinSpanHours)
	}
	return nil
}

// GetAudioFloorDB returns the audio_floor_db value or the default.
func (c *TuningConfig) GetAudioFloorDB() float64 {
	if c.AudioFloorDB == nil {
		return -70.0
	}
	return *c.AudioFloorDB
}

// GetAudioCeilingDB returns the audio_ceiling_db value or the default.
func (c *TuningConfig) GetAudioCeilingDB() float64 {
	if c.AudioCeilingDB == nil {
		return -20.0
	}
	return *c.AudioCeilingDB
}

// GetLightReferenceLux returns the light_reference_lux value or the default.
func (c *TuningConfig) GetLightReferenceLux() float64 {
	if c.LightReferenceLux == nil {
		return 500.0
	}
	return *c.LightReferenceLux
}

// GetLightFactorBase returns the light_factor_base value or the default.
func (c *TuningConfig) GetLightFactorBase() float64 {
	if c.LightFactorBase == nil {
		return 0.7
	}
	return *c.LightFactorBase
}

// GetLightFactorSpan returns the light_factor_span value or the default.
func (c *TuningConfig) GetLightFactorSpan() float64 {
	if c.LightFactorSpan == nil {
		return 0.3
	}
	return *c.LightFactorSpan
}

// GetFootfallCeiling returns the footfall_ceiling value or the default.
// The default suits a small storefront; larger frontages should raise it.
func (c *TuningConfig) GetFootfallCeiling() float64 {
	if c.FootfallCeiling == nil {
		return 100.0
	}
	return *c.FootfallCeiling
}

// GetLowSampleCount returns the low_sample_count value or the default.
func (c *TuningConfig) GetLowSampleCount() int {
	if c.LowSampleCount == nil {
		return 10
	}
	return *c.LowSampleCount
}

// GetLowSampleFactor returns the low_sample_factor value or the default.
func (c *TuningConfig) GetLowSampleFactor() float64 {
	if c.LowSampleFactor == nil {
		return 0.5
	}
	return *c.LowSampleFactor
}

// GetArealScaleFactor returns the areal_scale_factor value or the default.
func (c *TuningConfig) GetArealScaleFactor() float64 {
	if c.ArealScaleFactor == nil {
		return 0.3
	}
	return *c.ArealScaleFactor
}

// GetScoreScale returns the score_scale value or the default.
func (c *TuningConfig) GetScoreScale() float64 {
	if c.ScoreScale == nil {
		return 25.0
	}
	return *c.ScoreScale
}

// GetAudioWeight returns the audio_weight value or the default.
func (c *TuningConfig) GetAudioWeight() float64 {
	if c.AudioWeight == nil {
		return 0.4
	}
	return *c.AudioWeight
}

// GetFootfallWeight returns the footfall_weight value or the default.
func (c *TuningConfig) GetFootfallWeight() float64 {
	if c.FootfallWeight == nil {
		return 0.4
	}
	return *c.FootfallWeight
}

// GetLightWeight returns the light_weight value or the default.
func (c *TuningConfig) GetLightWeight() float64 {
	if c.LightWeight == nil {
		return 0.2
	}
	return *c.LightWeight
}

// GetDefaultLightComponent returns the default_light_component value or the default.
func (c *TuningConfig) GetDefaultLightComponent() float64 {
	if c.DefaultLightComponent == nil {
		return 0.5
	}
	return *c.DefaultLightComponent
}

// GetFilterInitialCovariance returns the filter_initial_covariance value or the default.
func (c *TuningConfig) GetFilterInitialCovariance() float64 {
	if c.FilterInitialCovariance == nil {
		return 1.0
	}
	return *c.FilterInitialCovariance
}

// GetFilterProcessNoise returns the filter_process_noise value or the default.
func (c *TuningConfig) GetFilterProcessNoise() float64 {
	if c.FilterProcessNoise == nil {
		return 0.01
	}
	return *c.FilterProcessNoise
}

// GetFilterMeasurementNoise returns the filter_measurement_noise value or the default.
func (c *TuningConfig) GetFilterMeasurementNoise() float64 {
	if c.FilterMeasurementNoise == nil {
		return 0.1
	}
	return *c.FilterMeasurementNoise
}

// GetForecastFilterWeight returns the forecast_filter_weight value or the default.
func (c *TuningConfig) GetForecastFilterWeight() float64 {
	if c.ForecastFilterWeight == nil {
		return 0.7
	}
	return *c.ForecastFilterWeight
}

// GetClusterCount returns the cluster_count value or the default.
func (c *TuningConfig) GetClusterCount() int {
	if c.ClusterCount == nil {
		return 3
	}
	return *c.ClusterCount
}

// GetClusterMoveTolerance returns the cluster_move_tolerance value or the default.
func (c *TuningConfig) GetClusterMoveTolerance() float64 {
	if c.ClusterMoveTolerance == nil {
		return 0.01
	}
	return *c.ClusterMoveTolerance
}

// GetClusterMaxIterations returns the cluster_max_iterations value or the default.
func (c *TuningConfig) GetClusterMaxIterations() int {
	if c.ClusterMaxIterations == nil {
		return 100
	}
	return *c.ClusterMaxIterations
}

// GetBusyMinScoreThreshold returns the busy_min_score_threshold value or the default.
func (c *TuningConfig) GetBusyMinScoreThreshold() float64 {
	if c.BusyMinScoreThreshold == nil {
		return 6.0
	}
	return *c.BusyMinScoreThreshold
}

// GetBusyScoreFraction returns the busy_score_fraction value or the default.
func (c *TuningConfig) GetBusyScoreFraction() float64 {
	if c.BusyScoreFraction == nil {
		return 0.4
	}
	return *c.BusyScoreFraction
}

// GetBusyMinFootfallThreshold returns the busy_min_footfall_threshold value or the default.
func (c *TuningConfig) GetBusyMinFootfallThreshold() float64 {
	if c.BusyMinFootfallThreshold == nil {
		return 30.0
	}
	return *c.BusyMinFootfallThreshold
}

// GetBusyFootfallFraction returns the busy_footfall_fraction value or the default.
func (c *TuningConfig) GetBusyFootfallFraction() float64 {
	if c.BusyFootfallFraction == nil {
		return 0.3
	}
	return *c.BusyFootfallFraction
}

// GetActivityThresholdDB returns the activity_threshold_db value or the default.
func (c *TuningConfig) GetActivityThresholdDB() float64 {
	if c.ActivityThresholdDB == nil {
		return -50.0
	}
	return *c.ActivityThresholdDB
}

// GetBusyMaxGapHours returns the busy_max_gap_hours value or the default.
func (c *TuningConfig) GetBusyMaxGapHours() int {
	if c.BusyMaxGapHours == nil {
		return 1
	}
	return *c.BusyMaxGapHours
}

// GetBusyMinSpanHours returns the busy_min_span_hours value or the default.
func (c *TuningConfig) GetBusyMinSpanHours() int {
	if c.BusyMinSpanHours == nil {
		return 2
	}
	return *c.BusyMinSpanHours
}

// GetBusyTopN returns the busy_top_n value or the default.
func (c *TuningConfig) GetBusyTopN() int {
	if c.BusyTopN == nil {
		return 3
	}
	return *c.BusyTopN
}
