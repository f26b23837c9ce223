package walkby

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// AnalysisInput carries everything one analysis run consumes. Sample
// collection and dataset loading happen upstream; by the time Analyze
// runs, the inputs are immutable and no further I/O occurs.
type AnalysisInput struct {
	Samples []RawSample

	// Areal is the public footfall dataset lookup, consulted only when
	// the location has no sensor sessions at all. May be nil.
	Areal ArealLookup

	// TrafficVolume is an optional vehicle-volume lookup used to fill
	// the per-hour traffic proxy. May be nil.
	TrafficVolume ArealLookup

	// Location resolves sample timestamps to local hours. Nil means
	// time.Local.
	Location *time.Location
}

// Analyze runs the full pipeline for one location: aggregation,
// footfall estimation, score fusion, then smoothing/forecasting,
// clustering and busy-period segmentation over the fused series.
//
// Every run owns its buckets, filter state and clusters; nothing is
// shared across runs or locations. No condition is fatal: insufficient
// data degrades to zero buckets, an empty cluster list, an empty
// busy-period list or a passthrough forecast.
//
// rng seeds the clusterer's centroid initialisation and may be nil, in
// which case cluster membership can differ between runs over identical
// inputs (aggregation, scoring and filtering never do).
func Analyze(in AnalysisInput, p AnalysisParams, rng *rand.Rand) *AnalysisResult {
	buckets := Aggregate(in.Samples, in.Location, p)
	sensorBacked := EstimateFootfall(&buckets, in.Areal, p)

	for h := range buckets {
		if in.TrafficVolume != nil {
			if v, ok := in.TrafficVolume(h); ok && v > 0 {
				buckets[h].TrafficProxy = v
			}
		}
		buckets[h].Score = ScoreBucket(buckets[h], p)
	}

	res := &AnalysisResult{
		RunID:        uuid.NewString(),
		Buckets:      buckets,
		SensorBacked: sensorBacked,
	}

	sampledHours, activeHours := 0, 0
	for h := range buckets {
		b := &buckets[h]
		if b.Score > res.PeakScore {
			res.PeakScore = b.Score
			res.PeakHour = h
		}
		if b.Footfall > res.PeakFootfall {
			res.PeakFootfall = b.Footfall
		}
		if b.SampleCount > 0 {
			sampledHours++
			if b.AvgAudioDB > p.ActivityThresholdDB {
				activeHours++
			}
		}
	}
	if sampledHours > 0 {
		res.ActivityRate = 100 * float64(activeHours) / float64(sampledHours)
	}

	footfallSeries := make([]float64, 24)
	scoreSeries := make([]float64, 24)
	for h := range buckets {
		footfallSeries[h] = buckets[h].Footfall
		scoreSeries[h] = buckets[h].Score
	}
	var footfallNext, scoreNext float64
	res.SmoothedFootfall, footfallNext = Smooth(footfallSeries, p)
	res.SmoothedScore, scoreNext = Smooth(scoreSeries, p)
	res.NextHour = Prediction{
		// Footfall is count-like; round the forecast.
		Footfall: math.Round(footfallNext),
		Score:    scoreNext,
	}

	res.Clusters = NewKMeansClusterer(p, rng).Cluster(&buckets)
	res.BusyPeriods = BusyPeriods(&buckets, p)

	return res
}
