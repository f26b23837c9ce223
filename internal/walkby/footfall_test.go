package walkby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bucketDay builds a 24-bucket day where the given hours carry the
// given audio level backed by `count` samples each.
func bucketDay(hours map[int]float64, count int, p AnalysisParams) [24]HourlyBucket {
	var buckets [24]HourlyBucket
	for h := range buckets {
		buckets[h].Hour = h
		buckets[h].AvgAudioDB = p.AudioFloorDB
	}
	for h, audio := range hours {
		b := &buckets[h]
		for i := 0; i < count; i++ {
			b.AudioValues = append(b.AudioValues, audio)
		}
		b.SampleCount = count
		b.Confidence = deriveConfidence(count, p.LowSampleCount)
		b.AvgAudioDB = audio
	}
	return buckets
}

func TestSensorFootfallFromAudio(t *testing.T) {
	t.Parallel()
	p := DefaultAnalysisParams()

	// -45 dB sits at the midpoint of [-70, -20], so the raw estimate is
	// half the ceiling; 20 samples is full confidence.
	buckets := bucketDay(map[int]float64{12: -45}, 20, p)
	sensorBacked := EstimateFootfall(&buckets, nil, p)

	assert.True(t, sensorBacked)
	assert.InDelta(t, 50.0, buckets[12].Footfall, 1e-9)
}

func TestSensorFootfallLightModulation(t *testing.T) {
	t.Parallel()
	p := DefaultAnalysisParams()

	buckets := bucketDay(map[int]float64{12: -45}, 20, p)
	buckets[12].LightValues = []float64{250}
	buckets[12].AvgLightLux = 250
	buckets[12].SampleCount++

	EstimateFootfall(&buckets, nil, p)

	// factor = 0.7 + 0.3*min(1, 250/500) = 0.85
	assert.InDelta(t, 50.0*0.85, buckets[12].Footfall, 1e-9)
}

func TestSensorFootfallLowSampleDiscount(t *testing.T) {
	t.Parallel()
	p := DefaultAnalysisParams()

	buckets := bucketDay(map[int]float64{12: -45}, 3, p)
	EstimateFootfall(&buckets, nil, p)

	// Under 10 samples the estimate is halved to express low confidence.
	assert.InDelta(t, 25.0, buckets[12].Footfall, 1e-9)
}

func TestSensorFootfallCappedAtCeiling(t *testing.T) {
	t.Parallel()
	p := DefaultAnalysisParams()

	// Saturated audio with bright light would exceed the ceiling
	// before capping.
	buckets := bucketDay(map[int]float64{12: -10}, 20, p)
	buckets[12].LightValues = []float64{900}
	buckets[12].AvgLightLux = 900

	EstimateFootfall(&buckets, nil, p)
	assert.LessOrEqual(t, buckets[12].Footfall, p.FootfallCeiling)
	assert.InDelta(t, p.FootfallCeiling, buckets[12].Footfall, 1e-9)
}

func TestFootfallNeverBlendsSourcesWithinARun(t *testing.T) {
	t.Parallel()
	p := DefaultAnalysisParams()

	areal := func(hour int) (float64, bool) { return 400, true }

	// A single sampled hour means the whole run is sensor-backed:
	// every unsampled hour stays at zero, surfaced as a data gap.
	buckets := bucketDay(map[int]float64{5: -40}, 20, p)
	sensorBacked := EstimateFootfall(&buckets, areal, p)

	assert.True(t, sensorBacked)
	assert.Greater(t, buckets[5].Footfall, 0.0)
	for h := range buckets {
		if h == 5 {
			continue
		}
		assert.Zerof(t, buckets[h].Footfall, "hour %d must stay a data gap", h)
	}
}

func TestFootfallArealFallbackWhenNoSessions(t *testing.T) {
	t.Parallel()
	p := DefaultAnalysisParams()

	areal := func(hour int) (float64, bool) {
		if hour == 8 {
			return 400, true
		}
		return 0, false
	}

	var buckets [24]HourlyBucket
	for h := range buckets {
		buckets[h].Hour = h
		buckets[h].AvgAudioDB = p.AudioFloorDB
	}
	sensorBacked := EstimateFootfall(&buckets, areal, p)

	require.False(t, sensorBacked)
	assert.InDelta(t, 400*p.ArealScaleFactor, buckets[8].Footfall, 1e-9)
	assert.Zero(t, buckets[9].Footfall)
}
