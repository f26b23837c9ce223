package walkby

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// rushWindow is a time-of-day window checked first when tagging a busy
// period. Windows are evaluated in declaration order.
type rushWindow struct {
	start, end int // [start, end) in local hours
	tag        string
}

var rushWindows = []rushWindow{
	{7, 10, "morning commute rush"},
	{12, 14, "lunchtime rush"},
	{17, 19, "evening commute rush"},
}

// BusyPeriods identifies contiguous or near-contiguous runs of active
// hours and ranks them by average score. Thresholds adapt to the day's
// own data rather than fixed constants, so a uniformly slow day still
// produces sensible windows:
//
//	scoreThreshold      = max(minScore, scoreFraction * maxScore)
//	pedestrianThreshold = max(minFootfall, footfallFraction * maxFootfall)
//
// An hour qualifies as active when it has samples, clears the score
// threshold, and clears either the pedestrian threshold or the activity
// (audio) threshold. A qualifying hour extends the current run when the
// gap to the run's end does not exceed the configured maximum; closed
// runs must span at least the minimum number of hours. The top N runs
// by average score are returned.
func BusyPeriods(buckets *[24]HourlyBucket, p AnalysisParams) []BusyPeriod {
	var maxScore, maxFootfall float64
	for h := range buckets {
		if buckets[h].Score > maxScore {
			maxScore = buckets[h].Score
		}
		if buckets[h].Footfall > maxFootfall {
			maxFootfall = buckets[h].Footfall
		}
	}
	scoreThreshold := p.BusyMinScoreThreshold
	if adaptive := p.BusyScoreFraction * maxScore; adaptive > scoreThreshold {
		scoreThreshold = adaptive
	}
	pedestrianThreshold := p.BusyMinFootfallThreshold
	if adaptive := p.BusyFootfallFraction * maxFootfall; adaptive > pedestrianThreshold {
		pedestrianThreshold = adaptive
	}

	active := func(b *HourlyBucket) bool {
		return b.SampleCount > 0 &&
			b.Score >= scoreThreshold &&
			(b.Footfall >= pedestrianThreshold || b.AvgAudioDB >= p.ActivityThresholdDB)
	}

	var periods []BusyPeriod
	runStart, runEnd := -1, -1
	flush := func() {
		if runStart < 0 {
			return
		}
		if runEnd-runStart+1 >= p.BusyMinSpanHours {
			periods = append(periods, closePeriod(buckets, runStart, runEnd, p))
		}
		runStart, runEnd = -1, -1
	}

	for h := range buckets {
		if !active(&buckets[h]) {
			continue
		}
		switch {
		case runStart < 0:
			runStart, runEnd = h, h
		case h-runEnd <= p.BusyMaxGapHours+1:
			runEnd = h
		default:
			flush()
			runStart, runEnd = h, h
		}
	}
	flush()

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].AvgScore > periods[j].AvgScore
	})
	if len(periods) > p.BusyTopN {
		periods = periods[:p.BusyTopN]
	}
	return periods
}

func closePeriod(buckets *[24]HourlyBucket, start, end int, p AnalysisParams) BusyPeriod {
	var footfalls, scores, audios []float64
	for h := start; h <= end; h++ {
		footfalls = append(footfalls, buckets[h].Footfall)
		scores = append(scores, buckets[h].Score)
		audios = append(audios, buckets[h].AvgAudioDB)
	}
	period := BusyPeriod{
		StartHour:   start,
		EndHour:     end,
		AvgFootfall: stat.Mean(footfalls, nil),
		AvgScore:    stat.Mean(scores, nil),
		AvgAudioDB:  stat.Mean(audios, nil),
	}
	period.Reason = reasonTag(period)
	return period
}

// reasonTag picks a human-readable explanation for a period by fixed
// priority: rush window, then high footfall, high audio, high score,
// finally a generic duration/metric summary.
func reasonTag(period BusyPeriod) string {
	for _, w := range rushWindows {
		if period.StartHour < w.end && period.EndHour >= w.start {
			return w.tag
		}
	}
	if period.AvgFootfall > HighFootfallTag {
		return "sustained high footfall"
	}
	if period.AvgAudioDB > HighAudioTagDB {
		return "high ambient activity"
	}
	if period.AvgScore > HighScoreTag {
		return "strong walk-by score"
	}
	span := period.EndHour - period.StartHour + 1
	return fmt.Sprintf("%d-hour window averaging %.1f walk-by score", span, period.AvgScore)
}
