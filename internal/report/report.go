// Package report turns an analysis result into the human-facing
// artifacts: a plain-text business report and a PNG day profile.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/banshee-data/walkby.report/internal/walkby"
)

const separator = "================================================================================"

// Options names the location the report describes.
type Options struct {
	LocationName string
	// Now is the report timestamp; zero means time.Now().
	Now time.Time
}

type hourScore struct {
	hour  int
	score float64
}

func rankedHours(res *walkby.AnalysisResult) []hourScore {
	ranked := make([]hourScore, 0, 24)
	for h := range res.Buckets {
		ranked = append(ranked, hourScore{h, res.Buckets[h].Score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].hour < ranked[j].hour
	})
	return ranked
}

// BusinessReport renders the full text report for one analysis run:
// executive summary with the top and bottom walk-by windows, the data
// source summary and staffing recommendations.
func BusinessReport(res *walkby.AnalysisResult, opts Options) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	location := opts.LocationName
	if location == "" {
		location = "Unnamed location"
	}

	var b strings.Builder
	line := func(format string, v ...interface{}) {
		fmt.Fprintf(&b, format+"\n", v...)
	}

	line(separator)
	line("LOCAL COMMERCE WALK-BY ANALYSIS")
	line("%s", location)
	line(separator)
	line("")
	line("Report Generated: %s", now.Format("2006-01-02 15:04:05"))
	line("Run ID: %s", res.RunID)
	line("")
	line(separator)
	line("EXECUTIVE SUMMARY")
	line(separator)

	ranked := rankedHours(res)
	top := ranked[:3]
	bottom := ranked[len(ranked)-3:]

	line("")
	line("TOP 3 PEAK WALK-BY PERIODS:")
	for i, hs := range top {
		line("  #%d: %02d:00-%02d:00 - Walk-by Score: %.2f", i+1, hs.hour, hs.hour+1, hs.score)
	}

	line("")
	line("LOWEST TRAFFIC PERIODS:")
	for i := range bottom {
		hs := bottom[len(bottom)-1-i]
		line("  #%d: %02d:00-%02d:00 - Walk-by Score: %.2f", i+1, hs.hour, hs.hour+1, hs.score)
	}

	line("")
	line("Activity rate: %.1f%% of sampled hours above the busy threshold", res.ActivityRate)
	if res.SensorBacked {
		line("Footfall basis: on-site sensor sessions")
	} else {
		line("Footfall basis: areal counter fallback (no sensor sessions)")
	}
	line("Next hour forecast: %.0f pedestrians, walk-by score %.1f",
		res.NextHour.Footfall, res.NextHour.Score)

	if len(res.BusyPeriods) > 0 {
		line("")
		line(separator)
		line("BUSY PERIODS")
		line(separator)
		for _, period := range res.BusyPeriods {
			line("  %02d:00-%02d:00  avg footfall %.0f  avg score %.1f  (%s)",
				period.StartHour, period.EndHour+1, period.AvgFootfall, period.AvgScore, period.Reason)
		}
	}

	if len(res.Clusters) > 0 {
		line("")
		line(separator)
		line("HOURLY REGIMES")
		line(separator)
		for _, cluster := range res.Clusters {
			line("  %-8s hours %s  (centroid: %.0f ped/h, score %.1f)",
				cluster.Label, hourList(cluster.MemberHours), cluster.Centroid[2], cluster.Centroid[3])
		}
	}

	peak := top[0]
	line("")
	line(separator)
	line("BUSINESS RECOMMENDATIONS")
	line(separator)
	line("")
	line("MAXIMIZE PEAK OPPORTUNITY (%02d:00-%02d:00):", peak.hour, peak.hour+1)
	line("  * Increase staffing 30 minutes before peak")
	line("  * Deploy outdoor signage at %02d:00", wrapHour(peak.hour-1))
	line("  * Consider outdoor seating/display during this period")
	line("")
	line("OPTIMIZE LOW-TRAFFIC PERIODS:")
	for i := range bottom {
		hs := bottom[len(bottom)-1-i]
		line("  * %02d:00-%02d:00: Run targeted promotions", hs.hour, hs.hour+1)
	}
	line("  * Focus on dwell time and repeat customers")
	line("")
	line("CONVERSION STRATEGY:")
	line("  * Current peak walk-by score: %.2f", peak.score)
	line("  * Target: Convert 5-10%% of walk-by traffic")
	line("  * Methods: Signage, window display, visibility")

	return b.String()
}

func hourList(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = fmt.Sprintf("%02d", h)
	}
	return strings.Join(parts, ",")
}

func wrapHour(h int) int {
	return ((h % 24) + 24) % 24
}
