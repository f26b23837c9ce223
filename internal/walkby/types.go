// Package walkby implements the multi-sensor hourly analytics engine:
// aggregation of raw session samples into hour-of-day buckets, footfall
// estimation, walk-by score fusion, recursive smoothing/forecasting,
// behavioural clustering of hours and busy-period segmentation.
//
// Everything in this package is a pure in-memory transform over one
// location's 24-hour series. There is no I/O and no shared state: each
// analysis run owns its buckets, filter state and clusters outright.
package walkby

// Signal identifies which physical quantity a raw sample carries.
type Signal string

const (
	SignalAudioDB  Signal = "audio_db"
	SignalLightLux Signal = "light_lux"
)

// RawSample is a single timestamped sensor reading collected during a
// session. Samples are immutable inputs; the aggregator consumes them
// once and never mutates them.
type RawSample struct {
	UnixMillis int64   `json:"ts"`
	Signal     Signal  `json:"signal"`
	Value      float64 `json:"value"`
	SessionID  string  `json:"session_id"`
	DeviceID   string  `json:"device_id"`
}

// HourlyBucket pools every sample observed during one hour-of-day,
// across all sessions and calendar days. A full analysis always carries
// exactly 24 buckets, including hours that received no samples.
type HourlyBucket struct {
	Hour        int       `json:"hour"`
	AudioValues []float64 `json:"-"`
	LightValues []float64 `json:"-"`

	// SampleCount is the number of raw readings (audio plus light)
	// pooled into this bucket. Zero means no sensor coverage for the
	// hour; such buckets can only receive footfall from the areal
	// fallback path, never from sensor fusion.
	SampleCount int `json:"sample_count"`

	// Confidence is derived once from SampleCount and consumed by the
	// estimation stages. [0, 1].
	Confidence float64 `json:"confidence"`

	// AvgAudioDB is the mean ambient sound level for the hour. Buckets
	// without audio readings report the configured silence floor.
	AvgAudioDB  float64 `json:"avg_audio_db"`
	AvgLightLux float64 `json:"avg_light_lux"`

	Footfall     float64 `json:"footfall"`
	Score        float64 `json:"score"`
	TrafficProxy float64 `json:"traffic_proxy"`
}

// FilterState holds the scalar recursive filter state for one smoothing
// run. It is owned by a single call to Smooth and discarded afterwards.
type FilterState struct {
	X float64 // estimate
	P float64 // error covariance
	Q float64 // process noise
	R float64 // measurement noise
}

// ClusterLabel names a behavioural regime. Labels are assigned by rank
// of the cluster's score centroid, not by absolute threshold, so they
// stay meaningful on uniformly quiet or uniformly busy days.
type ClusterLabel string

const (
	ClusterQuiet    ClusterLabel = "quiet"
	ClusterModerate ClusterLabel = "moderate"
	ClusterBusy     ClusterLabel = "busy"
)

// Cluster is one behavioural grouping of hours discovered by k-means.
type Cluster struct {
	ID          int          `json:"id"`
	Label       ClusterLabel `json:"label"`
	MemberHours []int        `json:"member_hours"`
	// Centroid is the mean feature vector [audio dB, light lux,
	// footfall, score] of the member hours.
	Centroid [4]float64 `json:"centroid"`
}

// BusyPeriod is a contiguous or near-contiguous run of qualifying hours.
// EndHour is inclusive.
type BusyPeriod struct {
	StartHour   int     `json:"start_hour"`
	EndHour     int     `json:"end_hour"`
	AvgFootfall float64 `json:"avg_footfall"`
	AvgScore    float64 `json:"avg_score"`
	AvgAudioDB  float64 `json:"avg_audio_db"`
	Reason      string  `json:"reason"`
}

// Prediction is the one-step-ahead forecast for the hour following the
// last measured hour.
type Prediction struct {
	Footfall float64 `json:"footfall"`
	Score    float64 `json:"score"`
}

// AnalysisResult is the sole contract handed to presentation layers.
// It is read-only once produced.
type AnalysisResult struct {
	RunID   string           `json:"run_id"`
	Buckets [24]HourlyBucket `json:"buckets"`

	PeakHour     int     `json:"peak_hour"`
	PeakScore    float64 `json:"peak_score"`
	PeakFootfall float64 `json:"peak_footfall"`

	// ActivityRate is the percentage of sampled hours whose mean audio
	// level exceeds the activity threshold.
	ActivityRate float64 `json:"activity_rate"`

	BusyPeriods []BusyPeriod `json:"busy_periods"`
	Clusters    []Cluster    `json:"clusters"`

	NextHour         Prediction `json:"next_hour"`
	SmoothedFootfall []float64  `json:"smoothed_footfall"`
	SmoothedScore    []float64  `json:"smoothed_score"`

	// SensorBacked reports whether footfall came from sensor fusion
	// (true) or the areal fallback dataset (false). The two sources are
	// never blended within one run.
	SensorBacked bool `json:"sensor_backed"`
}

// ArealLookup returns an external per-hour value (pedestrian count or
// vehicle volume) for hours the caller has data for.
type ArealLookup func(hour int) (value float64, ok bool)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
