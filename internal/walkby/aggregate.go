package walkby

import (
	"math"
	"time"
)

// Aggregate pools raw samples into 24 hour-of-day buckets. Samples from
// the same hour across different sessions and calendar days share a
// bucket; the date is deliberately ignored. The result always contains
// all 24 buckets, hours without coverage simply keep SampleCount == 0.
//
// Garbage rejection happens here and is silent: non-finite values and
// unknown signals are dropped without being reported, so downstream
// stages only ever see clean inputs.
func Aggregate(samples []RawSample, loc *time.Location, p AnalysisParams) [24]HourlyBucket {
	if loc == nil {
		loc = time.Local
	}

	var buckets [24]HourlyBucket
	for h := range buckets {
		buckets[h].Hour = h
	}

	for _, s := range samples {
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			continue
		}
		hour := time.UnixMilli(s.UnixMillis).In(loc).Hour()
		b := &buckets[hour]
		switch s.Signal {
		case SignalAudioDB:
			b.AudioValues = append(b.AudioValues, s.Value)
		case SignalLightLux:
			if s.Value < 0 {
				continue
			}
			b.LightValues = append(b.LightValues, s.Value)
		default:
			continue
		}
	}

	for h := range buckets {
		b := &buckets[h]
		b.SampleCount = len(b.AudioValues) + len(b.LightValues)
		b.Confidence = deriveConfidence(b.SampleCount, p.LowSampleCount)
		b.AvgAudioDB = meanOr(b.AudioValues, p.AudioFloorDB)
		b.AvgLightLux = meanOr(b.LightValues, 0)
	}

	return buckets
}

// deriveConfidence maps a bucket's sample count to [0, 1]. It is the
// single place confidence is computed; every stage that scales by
// sample coverage consumes the stored value instead of re-deriving it.
func deriveConfidence(count, lowSampleCount int) float64 {
	if count <= 0 {
		return 0
	}
	if lowSampleCount <= 0 || count >= lowSampleCount {
		return 1
	}
	return float64(count) / float64(lowSampleCount)
}

func meanOr(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
