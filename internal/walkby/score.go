package walkby

import "math"

// ScoreBucket computes the composite walk-by score for one bucket:
//
//	score = scale * (wa*audioComponent + wf*footfallComponent + wl*lightComponent)
//
// With the default weights and scale the range is [0, 25]. The score is
// a pure function of the bucket; no cross-hour state is involved.
//
// A bucket with neither samples nor an estimated footfall has nothing
// to score and stays at zero, so empty hours never accrue score from
// the default light component alone.
func ScoreBucket(b HourlyBucket, p AnalysisParams) float64 {
	if b.SampleCount == 0 && b.Footfall == 0 {
		return 0
	}

	audioComponent := clamp(
		(b.AvgAudioDB-p.AudioFloorDB)/(p.AudioCeilingDB-p.AudioFloorDB), 0, 1)

	footfallComponent := math.Min(1, b.Footfall/p.FootfallCeiling)

	lightComponent := p.DefaultLightComponent
	if len(b.LightValues) > 0 {
		lightComponent = math.Min(1, b.AvgLightLux/p.LightReferenceLux)
	}

	return p.ScoreScale * (p.AudioWeight*audioComponent +
		p.FootfallWeight*footfallComponent +
		p.LightWeight*lightComponent)
}
