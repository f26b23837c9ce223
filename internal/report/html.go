package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/walkby.report/internal/walkby"
)

// DashboardPage builds the two-chart HTML dashboard for one run: a
// walk-by score bar chart and a footfall line chart with the smoothed
// series overlaid. The HTTP dashboard and the CLI render the same page.
func DashboardPage(res *walkby.AnalysisResult) *components.Page {
	hours := make([]string, 24)
	scoreData := make([]opts.BarData, 24)
	footfallData := make([]opts.LineData, 24)
	smoothedData := make([]opts.LineData, 24)
	for h := range res.Buckets {
		hours[h] = fmt.Sprintf("%02d:00", h)
		scoreData[h] = opts.BarData{Value: res.Buckets[h].Score}
		footfallData[h] = opts.LineData{Value: res.Buckets[h].Footfall}
		if h < len(res.SmoothedFootfall) {
			smoothedData[h] = opts.LineData{Value: res.SmoothedFootfall[h]}
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Walk-by Analytics", Theme: "dark", Width: "1200px", Height: "450px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Walk-by Potential Score by Hour",
			Subtitle: fmt.Sprintf("run=%s peak=%02d:00 score=%.1f activity=%.0f%%", res.RunID, res.PeakHour, res.PeakScore, res.ActivityRate),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hour"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Score"}),
	)
	bar.SetXAxis(hours).AddSeries("score", scoreData)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "1200px", Height: "450px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Estimated Footfall by Hour",
			Subtitle: fmt.Sprintf("next hour forecast: %.0f pedestrians", res.NextHour.Footfall),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hour"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Pedestrians/hour"}),
	)
	line.SetXAxis(hours).
		AddSeries("estimated", footfallData).
		AddSeries("smoothed", smoothedData,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	page := components.NewPage()
	page.SetPageTitle("Walk-by Analytics Dashboard")
	page.AddCharts(bar, line)
	return page
}

// RenderDashboard writes the dashboard page HTML to w.
func RenderDashboard(res *walkby.AnalysisResult, w io.Writer) error {
	return DashboardPage(res).Render(w)
}

// SaveDashboard renders the dashboard page to an HTML file.
func SaveDashboard(res *walkby.AnalysisResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderDashboard(res, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
