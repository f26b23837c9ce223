// Command analysis runs the walk-by pipeline once over on-disk
// datasets and writes the presentation artifacts: a console summary,
// the plain-text business report, a day-profile PNG and the HTML
// dashboard. It is the batch counterpart to the HTTP server.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/banshee-data/walkby.report/internal/config"
	"github.com/banshee-data/walkby.report/internal/db"
	"github.com/banshee-data/walkby.report/internal/ingest"
	"github.com/banshee-data/walkby.report/internal/monitoring"
	"github.com/banshee-data/walkby.report/internal/report"
	"github.com/banshee-data/walkby.report/internal/security"
	"github.com/banshee-data/walkby.report/internal/timeutil"
	"github.com/banshee-data/walkby.report/internal/walkby"
)

var (
	sessionsDir  = flag.String("sessions", "", "directory of sensor session JSON files")
	footfallCSV  = flag.String("footfall", "", "areal pedestrian counter CSV (fallback footfall)")
	sitesCSV     = flag.String("sites", "", "traffic counter sites CSV")
	volumeCSV    = flag.String("volume", "", "traffic volume CSV (per-hour vehicle counts)")
	configPath   = flag.String("config", "", "tuning config JSON (defaults apply when empty)")
	outDir       = flag.String("out", "analysis-out", "output directory for report artifacts")
	dbPath       = flag.String("db", "", "optional sqlite database to record the run in")
	locationName = flag.String("name", "Location", "location name used in the report header")
	tzName       = flag.String("tz", "Local", "IANA timezone the samples were captured in")
	lat          = flag.Float64("lat", 0, "location latitude for traffic site proximity")
	lon          = flag.Float64("lon", 0, "location longitude for traffic site proximity")
	radiusKm     = flag.Float64("radius", 1.0, "traffic site search radius in km")
	seed         = flag.Int64("seed", 0, "cluster seed; 0 means non-deterministic")
)

func main() {
	flag.Parse()

	if *sessionsDir == "" && *footfallCSV == "" {
		fmt.Fprintln(os.Stderr, "need at least one of -sessions or -footfall")
		flag.Usage()
		os.Exit(2)
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			fatalf("loading tuning config: %v", err)
		}
	}
	params := walkby.ParamsFromTuning(tuning)

	loc, err := timeutil.LoadCaptureLocation(*tzName)
	if err != nil {
		fatalf("loading timezone: %v", err)
	}

	in := walkby.AnalysisInput{Location: loc}

	if *sessionsDir != "" {
		samples, sessions, err := ingest.LoadSessionDir(*sessionsDir)
		if err != nil {
			fatalf("loading sessions: %v", err)
		}
		monitoring.Logf("loaded %d samples from %d sessions", len(samples), sessions)
		in.Samples = samples
	}
	if *footfallCSV != "" {
		areal, err := ingest.LoadArealFootfall(*footfallCSV)
		if err != nil {
			fatalf("loading areal footfall: %v", err)
		}
		in.Areal = areal
	}
	if *volumeCSV != "" {
		in.TrafficVolume = loadTraffic()
	}

	var rng *rand.Rand
	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
	}

	res := walkby.Analyze(in, params, rng)

	if *dbPath != "" {
		store, err := db.NewDB(*dbPath)
		if err != nil {
			fatalf("opening database: %v", err)
		}
		defer store.Close()
		if len(in.Samples) > 0 {
			if err := store.RecordSamples(in.Samples); err != nil {
				fatalf("recording samples: %v", err)
			}
		}
		if err := store.RecordAnalysisRun(res); err != nil {
			fatalf("recording analysis run: %v", err)
		}
		monitoring.Logf("run %s recorded to %s", res.RunID, *dbPath)
	}

	printSummary(res)

	if err := writeArtifacts(res); err != nil {
		fatalf("%v", err)
	}
}

// loadTraffic resolves the counter sites near the location and builds
// the vehicle-volume lookup restricted to them. Without coordinates or
// a sites file, every site in the volume CSV contributes.
func loadTraffic() walkby.ArealLookup {
	var siteIDs []string
	if *sitesCSV != "" && (*lat != 0 || *lon != 0) {
		sites, err := ingest.LoadCounterSites(*sitesCSV)
		if err != nil {
			fatalf("loading counter sites: %v", err)
		}
		nearby := ingest.NearbySites(sites, *lat, *lon, *radiusKm)
		if len(nearby) == 0 {
			monitoring.Logf("no traffic counter sites within %.1f km, skipping traffic proxy", *radiusKm)
			return nil
		}
		for _, s := range nearby {
			siteIDs = append(siteIDs, s.ID)
		}
		monitoring.Logf("using %d traffic counter sites within %.1f km", len(nearby), *radiusKm)
	}
	volume, err := ingest.LoadTrafficVolume(*volumeCSV, siteIDs)
	if err != nil {
		fatalf("loading traffic volume: %v", err)
	}
	return volume
}

var (
	peakColor   = color.New(color.FgGreen, color.Bold)
	busyColor   = color.New(color.FgYellow)
	quietColor  = color.New(color.FgHiBlack)
	headerColor = color.New(color.FgCyan, color.Bold)
)

// printSummary renders the per-hour table and the headline numbers to
// stdout. Hours inside a busy period are highlighted, the peak hour in
// green.
func printSummary(res *walkby.AnalysisResult) {
	busyHours := map[int]bool{}
	for _, p := range res.BusyPeriods {
		for h := p.StartHour; h <= p.EndHour; h++ {
			busyHours[h] = true
		}
	}

	headerColor.Printf("\nWalk-by analysis %s\n", res.RunID)
	basis := "sensor sessions"
	if !res.SensorBacked {
		basis = "areal counter fallback"
	}
	fmt.Printf("Footfall basis: %s\n\n", basis)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Hour", "Samples", "Audio dB", "Lux", "Footfall", "Smoothed", "Score", ""})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for h := range res.Buckets {
		b := res.Buckets[h]
		smoothed := 0.0
		if h < len(res.SmoothedFootfall) {
			smoothed = res.SmoothedFootfall[h]
		}
		label := ""
		switch {
		case h == res.PeakHour && res.PeakScore > 0:
			label = peakColor.Sprint("peak")
		case busyHours[h]:
			label = busyColor.Sprint("busy")
		case b.SampleCount == 0:
			label = quietColor.Sprint("-")
		}
		data = append(data, []string{
			fmt.Sprintf("%02d:00", h),
			fmt.Sprintf("%d", b.SampleCount),
			fmt.Sprintf("%.1f", b.AvgAudioDB),
			fmt.Sprintf("%.0f", b.AvgLightLux),
			fmt.Sprintf("%.0f", b.Footfall),
			fmt.Sprintf("%.0f", smoothed),
			fmt.Sprintf("%.2f", b.Score),
			label,
		})
	}
	if err := table.Bulk(data); err != nil {
		fatalf("rendering summary table: %v", err)
	}
	if err := table.Render(); err != nil {
		fatalf("rendering summary table: %v", err)
	}

	fmt.Println()
	peakColor.Printf("Peak hour %02d:00", res.PeakHour)
	fmt.Printf(" score %.2f, footfall %.0f/h, activity rate %.0f%%\n",
		res.PeakScore, res.PeakFootfall, res.ActivityRate)
	fmt.Printf("Next hour forecast: %.0f pedestrians, score %.1f\n",
		res.NextHour.Footfall, res.NextHour.Score)
	for _, p := range res.BusyPeriods {
		busyColor.Printf("Busy %02d:00-%02d:00", p.StartHour, p.EndHour+1)
		fmt.Printf("  avg score %.1f  %s\n", p.AvgScore, p.Reason)
	}
}

// writeArtifacts writes the text report, PNG profile and HTML dashboard
// into the output directory, named after the location.
func writeArtifacts(res *walkby.AnalysisResult) error {
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	slug := security.SanitizeFilename(*locationName)

	reportPath := filepath.Join(*outDir, slug+"_business_report.txt")
	text := report.BusinessReport(res, report.Options{LocationName: *locationName})
	if err := os.WriteFile(reportPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing business report: %w", err)
	}

	plotPath := filepath.Join(*outDir, slug+"_day_profile.png")
	if err := report.SaveDayProfile(res, plotPath); err != nil {
		return fmt.Errorf("writing day profile: %w", err)
	}

	htmlPath := filepath.Join(*outDir, slug+"_dashboard.html")
	if err := report.SaveDashboard(res, htmlPath); err != nil {
		return fmt.Errorf("writing dashboard: %w", err)
	}

	monitoring.Logf("wrote %s, %s, %s", reportPath, plotPath, htmlPath)
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
