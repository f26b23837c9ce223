package walkby

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeRegimeDay builds a day with clearly separated quiet, moderate and
// busy hour groups.
func threeRegimeDay() [24]HourlyBucket {
	var buckets [24]HourlyBucket
	set := func(h int, audio, lux, footfall, score float64) {
		buckets[h] = HourlyBucket{
			Hour:        h,
			SampleCount: 10,
			Confidence:  1,
			AvgAudioDB:  audio,
			AvgLightLux: lux,
			Footfall:    footfall,
			Score:       score,
		}
	}
	for _, h := range []int{2, 3, 4} {
		set(h, -65, 5, 4, 2)
	}
	for _, h := range []int{10, 11, 14} {
		set(h, -50, 300, 40, 11)
	}
	for _, h := range []int{8, 13, 17} {
		set(h, -35, 500, 85, 21)
	}
	return buckets
}

func TestKMeansRequiresEnoughValidHours(t *testing.T) {
	t.Parallel()
	p := DefaultAnalysisParams()
	c := NewKMeansClusterer(p, rand.New(rand.NewSource(1)))

	var buckets [24]HourlyBucket
	for h := range buckets {
		buckets[h].Hour = h
		buckets[h].AvgAudioDB = p.AudioFloorDB // floor exactly, not above
	}
	assert.Nil(t, c.Cluster(&buckets))

	// Two valid hours is still one short of k=3.
	buckets[9].Score = 5
	buckets[15].Footfall = 12
	assert.Nil(t, c.Cluster(&buckets))
}

func TestKMeansThreeRegimes(t *testing.T) {
	t.Parallel()
	p := DefaultAnalysisParams()
	c := NewKMeansClusterer(p, rand.New(rand.NewSource(7)))

	buckets := threeRegimeDay()
	clusters := c.Cluster(&buckets)
	require.Len(t, clusters, 3)

	// Labels are ranked by score centroid.
	assert.Equal(t, ClusterQuiet, clusters[0].Label)
	assert.Equal(t, ClusterModerate, clusters[1].Label)
	assert.Equal(t, ClusterBusy, clusters[2].Label)
	assert.Less(t, clusters[0].Centroid[3], clusters[1].Centroid[3])
	assert.Less(t, clusters[1].Centroid[3], clusters[2].Centroid[3])

	// Membership is a disjoint cover of the valid hours.
	seen := map[int]bool{}
	total := 0
	for _, cl := range clusters {
		for _, h := range cl.MemberHours {
			assert.Falsef(t, seen[h], "hour %d assigned twice", h)
			seen[h] = true
		}
		total += len(cl.MemberHours)
	}
	assert.Equal(t, 9, total)

	// With this separation the groups should land cleanly.
	assert.Equal(t, []int{2, 3, 4}, clusters[0].MemberHours)
	assert.Equal(t, []int{10, 11, 14}, clusters[1].MemberHours)
	assert.Equal(t, []int{8, 13, 17}, clusters[2].MemberHours)
}

func TestKMeansSeededReproducibility(t *testing.T) {
	t.Parallel()
	p := DefaultAnalysisParams()
	buckets := threeRegimeDay()

	a := NewKMeansClusterer(p, rand.New(rand.NewSource(42))).Cluster(&buckets)
	b := NewKMeansClusterer(p, rand.New(rand.NewSource(42))).Cluster(&buckets)
	assert.Equal(t, a, b)
}

func TestKMeansMemberHoursSorted(t *testing.T) {
	t.Parallel()
	p := DefaultAnalysisParams()
	c := NewKMeansClusterer(p, rand.New(rand.NewSource(3)))

	buckets := threeRegimeDay()
	for _, cl := range c.Cluster(&buckets) {
		for i := 1; i < len(cl.MemberHours); i++ {
			assert.Less(t, cl.MemberHours[i-1], cl.MemberHours[i])
		}
	}
}
