package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/walkby.report/internal/walkby"
)

// SaveDayProfile writes a PNG of the day's walk-by profile: estimated
// footfall, the smoothed series and the fused score, one point per
// hour.
func SaveDayProfile(res *walkby.AnalysisResult, path string) error {
	p := plot.New()
	p.Title.Text = "Walk-by Day Profile"
	p.X.Label.Text = "Hour of day"
	p.Y.Label.Text = "Pedestrians/hour"

	footfallPts := make(plotter.XYs, 0, 24)
	smoothedPts := make(plotter.XYs, 0, 24)
	scorePts := make(plotter.XYs, 0, 24)
	for h := range res.Buckets {
		footfallPts = append(footfallPts, plotter.XY{X: float64(h), Y: res.Buckets[h].Footfall})
		if h < len(res.SmoothedFootfall) {
			smoothedPts = append(smoothedPts, plotter.XY{X: float64(h), Y: res.SmoothedFootfall[h]})
		}
		scorePts = append(scorePts, plotter.XY{X: float64(h), Y: res.Buckets[h].Score})
	}

	footfallLine, err := plotter.NewLine(footfallPts)
	if err != nil {
		return fmt.Errorf("building footfall line: %w", err)
	}
	footfallLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	footfallLine.Width = vg.Points(1.5)

	smoothedLine, err := plotter.NewLine(smoothedPts)
	if err != nil {
		return fmt.Errorf("building smoothed line: %w", err)
	}
	smoothedLine.Color = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	smoothedLine.Width = vg.Points(1)
	smoothedLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	scoreLine, err := plotter.NewLine(scorePts)
	if err != nil {
		return fmt.Errorf("building score line: %w", err)
	}
	scoreLine.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	scoreLine.Width = vg.Points(1)

	p.Add(footfallLine, smoothedLine, scoreLine)
	p.Legend.Add("footfall", footfallLine)
	p.Legend.Add("smoothed", smoothedLine)
	p.Legend.Add("score", scoreLine)
	p.Legend.Top = true
	p.X.Min, p.X.Max = 0, 23

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("saving day profile: %w", err)
	}
	return nil
}
