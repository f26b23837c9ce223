package walkby

import "math"

// EstimateFootfall fills the Footfall field of every bucket. It derives
// a pedestrian-count proxy without a dedicated counting sensor, using
// one of two mutually exclusive sources:
//
//   - Sensor fusion, for any hour with samples: the mean audio level is
//     clamped to the configured dB window, normalised to [0, 1] and
//     scaled to the footfall ceiling; hours with light readings are
//     modulated by the light factor; low-confidence hours are
//     discounted.
//   - The areal fallback dataset, only when the location has no sensor
//     coverage at all. The areal count is scaled down by the
//     location-type factor since a single frontage sees a fraction of
//     an area-wide counter.
//
// The two sources are never blended within one run: once any session
// data exists for the location, hours without samples keep footfall 0
// and are surfaced as genuine data gaps rather than interpolated. The
// returned bool reports whether footfall is sensor-backed.
func EstimateFootfall(buckets *[24]HourlyBucket, areal ArealLookup, p AnalysisParams) bool {
	hasSamples := false
	for h := range buckets {
		if buckets[h].SampleCount > 0 {
			hasSamples = true
			break
		}
	}

	for h := range buckets {
		b := &buckets[h]
		switch {
		case b.SampleCount > 0:
			b.Footfall = sensorFootfall(b, p)
		case !hasSamples && areal != nil:
			if count, ok := areal(h); ok && count > 0 {
				b.Footfall = count * p.ArealScaleFactor
			}
		}
	}
	return hasSamples
}

func sensorFootfall(b *HourlyBucket, p AnalysisParams) float64 {
	level := clamp(b.AvgAudioDB, p.AudioFloorDB, p.AudioCeilingDB)
	normalised := (level - p.AudioFloorDB) / (p.AudioCeilingDB - p.AudioFloorDB)
	footfall := normalised * p.FootfallCeiling

	if len(b.LightValues) > 0 {
		lightRatio := math.Min(1, b.AvgLightLux/p.LightReferenceLux)
		footfall *= p.LightFactorBase + p.LightFactorSpan*lightRatio
	}

	// Confidence is derived once at aggregation time; a partially
	// covered hour gets the flat low-sample discount.
	if b.Confidence < 1 {
		footfall *= p.LowSampleFactor
	}

	if footfall > p.FootfallCeiling {
		footfall = p.FootfallCeiling
	}
	return footfall
}
