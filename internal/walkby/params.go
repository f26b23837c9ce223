package walkby

import (
	"github.com/banshee-data/walkby.report/internal/config"
)

// Internal reason-tag thresholds — not user-tunable.
const (
	// HighFootfallTag is the per-hour pedestrian rate above which a
	// period is tagged as high footfall.
	HighFootfallTag = 200.0
	// HighAudioTagDB is the mean audio level above which a period is
	// tagged as high ambient activity.
	HighAudioTagDB = -45.0
	// HighScoreTag is the average walk-by score above which a period is
	// tagged as a strong-score window.
	HighScoreTag = 15.0
)

// AnalysisParams holds every numeric policy constant consumed by the
// aggregation, estimation, fusion, smoothing, clustering and
// segmentation stages. One value is built per run; stages never reach
// for process-wide state.
type AnalysisParams struct {
	// Audio normalisation window (dB). Levels are clamped to
	// [AudioFloorDB, AudioCeilingDB] before normalising to [0, 1].
	AudioFloorDB   float64
	AudioCeilingDB float64

	// Light normalisation. The light factor applied to footfall is
	// LightFactorBase + LightFactorSpan * min(1, lux/LightReferenceLux).
	LightReferenceLux float64
	LightFactorBase   float64
	LightFactorSpan   float64

	// Footfall estimation
	FootfallCeiling  float64 // pedestrians/hour a saturated signal maps to
	LowSampleCount   int     // below this count the estimate is discounted
	LowSampleFactor  float64 // discount applied to low-confidence hours
	ArealScaleFactor float64 // location-type share of the areal dataset count

	// Score fusion
	ScoreScale            float64
	AudioWeight           float64
	FootfallWeight        float64
	LightWeight           float64
	DefaultLightComponent float64 // light component when no light readings exist

	// Smoother/forecaster
	FilterInitialCovariance float64
	FilterProcessNoise      float64
	FilterMeasurementNoise  float64
	ForecastFilterWeight    float64 // filter share of the blended forecast

	// Clusterer
	ClusterCount         int
	ClusterMoveTolerance float64
	ClusterMaxIterations int

	// Busy-period segmentation
	BusyMinScoreThreshold    float64
	BusyScoreFraction        float64
	BusyMinFootfallThreshold float64
	BusyFootfallFraction     float64
	ActivityThresholdDB      float64
	BusyMaxGapHours          int
	BusyMinSpanHours         int
	BusyTopN                 int
}

// DefaultAnalysisParams returns the production defaults for a small
// storefront location.
func DefaultAnalysisParams() AnalysisParams {
	return ParamsFromTuning(config.EmptyTuningConfig())
}

// ParamsFromTuning builds AnalysisParams from a loaded TuningConfig.
// Use this in production code where the TuningConfig is already loaded.
func ParamsFromTuning(cfg *config.TuningConfig) AnalysisParams {
	return AnalysisParams{
		AudioFloorDB:             cfg.GetAudioFloorDB(),
		AudioCeilingDB:           cfg.GetAudioCeilingDB(),
		LightReferenceLux:        cfg.GetLightReferenceLux(),
		LightFactorBase:          cfg.GetLightFactorBase(),
		LightFactorSpan:          cfg.GetLightFactorSpan(),
		FootfallCeiling:          cfg.GetFootfallCeiling(),
		LowSampleCount:           cfg.GetLowSampleCount(),
		LowSampleFactor:          cfg.GetLowSampleFactor(),
		ArealScaleFactor:         cfg.GetArealScaleFactor(),
		ScoreScale:               cfg.GetScoreScale(),
		AudioWeight:              cfg.GetAudioWeight(),
		FootfallWeight:           cfg.GetFootfallWeight(),
		LightWeight:              cfg.GetLightWeight(),
		DefaultLightComponent:    cfg.GetDefaultLightComponent(),
		FilterInitialCovariance:  cfg.GetFilterInitialCovariance(),
		FilterProcessNoise:       cfg.GetFilterProcessNoise(),
		FilterMeasurementNoise:   cfg.GetFilterMeasurementNoise(),
		ForecastFilterWeight:     cfg.GetForecastFilterWeight(),
		ClusterCount:             cfg.GetClusterCount(),
		ClusterMoveTolerance:     cfg.GetClusterMoveTolerance(),
		ClusterMaxIterations:     cfg.GetClusterMaxIterations(),
		BusyMinScoreThreshold:    cfg.GetBusyMinScoreThreshold(),
		BusyScoreFraction:        cfg.GetBusyScoreFraction(),
		BusyMinFootfallThreshold: cfg.GetBusyMinFootfallThreshold(),
		BusyFootfallFraction:     cfg.GetBusyFootfallFraction(),
		ActivityThresholdDB:      cfg.GetActivityThresholdDB(),
		BusyMaxGapHours:          cfg.GetBusyMaxGapHours(),
		BusyMinSpanHours:         cfg.GetBusyMinSpanHours(),
		BusyTopN:                 cfg.GetBusyTopN(),
	}
}
