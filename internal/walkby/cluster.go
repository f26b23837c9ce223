package walkby

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// HourClusterer partitions the hours of a day into behavioural regimes.
type HourClusterer interface {
	Cluster(buckets *[24]HourlyBucket) []Cluster
}

// KMeansClusterer implements HourClusterer using Lloyd's algorithm over
// the 4-dimensional feature vector [audio dB, light lux, footfall,
// score]. Exactly k clusters are produced per run, labelled by rank of
// their score centroid.
//
// Centroid initialisation picks k distinct valid hours at random, so
// two runs over identical data may legitimately assign hours to
// different (though identically ordered) clusters. Pass a seeded rand
// source to make runs reproducible; a nil source falls back to a
// time-seeded one.
type KMeansClusterer struct {
	k       int
	tol     float64
	maxIter int
	rng     *rand.Rand

	audioFloor float64
}

// NewKMeansClusterer creates a clusterer from analysis params. rng may
// be nil.
func NewKMeansClusterer(p AnalysisParams, rng *rand.Rand) *KMeansClusterer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &KMeansClusterer{
		k:          p.ClusterCount,
		tol:        p.ClusterMoveTolerance,
		maxIter:    p.ClusterMaxIterations,
		rng:        rng,
		audioFloor: p.AudioFloorDB,
	}
}

// Verify at compile time that *KMeansClusterer implements HourClusterer.
var _ HourClusterer = (*KMeansClusterer)(nil)

// Cluster partitions the hours with non-trivial data into k clusters.
// Fewer valid hours than k is a signalled insufficient-data outcome,
// not an error: the result is nil and callers surface the empty list.
func (c *KMeansClusterer) Cluster(buckets *[24]HourlyBucket) []Cluster {
	var hours []int
	var features [][4]float64
	for h := range buckets {
		b := &buckets[h]
		if b.Footfall > 0 || b.Score > 0 || b.AvgAudioDB > c.audioFloor {
			hours = append(hours, h)
			features = append(features, [4]float64{b.AvgAudioDB, b.AvgLightLux, b.Footfall, b.Score})
		}
	}
	if len(hours) < c.k {
		return nil
	}

	// Seed centroids from k distinct random valid hours.
	centroids := make([][4]float64, c.k)
	for i, pick := range c.rng.Perm(len(hours))[:c.k] {
		centroids[i] = features[pick]
	}

	assignment := make([]int, len(hours))
	for iter := 0; iter < c.maxIter; iter++ {
		// Assign each hour to its nearest centroid.
		for i, f := range features {
			best := 0
			bestDist := math.Inf(1)
			for j, cent := range centroids {
				if d := sqDist(f, cent); d < bestDist {
					bestDist = d
					best = j
				}
			}
			assignment[i] = best
		}

		// Recompute centroids. A cluster that lost all members keeps
		// its previous centroid rather than collapsing to NaN.
		moved := 0.0
		for j := range centroids {
			var sum [4]float64
			count := 0
			for i, a := range assignment {
				if a != j {
					continue
				}
				for d := 0; d < 4; d++ {
					sum[d] += features[i][d]
				}
				count++
			}
			if count == 0 {
				continue
			}
			var next [4]float64
			for d := 0; d < 4; d++ {
				next[d] = sum[d] / float64(count)
			}
			if move := math.Sqrt(sqDist(centroids[j], next)); move > moved {
				moved = move
			}
			centroids[j] = next
		}
		if moved <= c.tol {
			break
		}
	}

	clusters := make([]Cluster, c.k)
	for j := range clusters {
		clusters[j] = Cluster{ID: j, Centroid: centroids[j]}
	}
	for i, a := range assignment {
		clusters[a].MemberHours = append(clusters[a].MemberHours, hours[i])
	}

	// Rank by score centroid ascending and assign fixed labels, so the
	// labels stay meaningful even when the whole day is uniformly slow
	// or uniformly busy.
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Centroid[3] < clusters[j].Centroid[3]
	})
	labels := []ClusterLabel{ClusterQuiet, ClusterModerate, ClusterBusy}
	for j := range clusters {
		clusters[j].ID = j
		if j < len(labels) {
			clusters[j].Label = labels[j]
		} else {
			clusters[j].Label = ClusterBusy
		}
		sort.Ints(clusters[j].MemberHours)
	}
	return clusters
}

func sqDist(a, b [4]float64) float64 {
	var sum float64
	for d := 0; d < 4; d++ {
		diff := a[d] - b[d]
		sum += diff * diff
	}
	return sum
}
