package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	barRGBA  = color.RGBA{R: 65, G: 105, B: 225, A: 255} // royal blue
	lineRGBA = color.RGBA{R: 255, G: 165, B: 0, A: 255}  // orange
)

// ZonePerformancePNG renders the zone performance chart as PNG bytes,
// entirely in memory. Used by the PDF renderer.
func ZonePerformancePNG(points []ChartPoint, title string, width, height vg.Length) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no chart points")
	}
	if title == "" {
		title = DefaultChartConfig().Title
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = "Votes"
	p.Y.Min = 0

	votes := make(plotter.Values, len(points))
	means := make(plotter.XYs, len(points))
	names := make([]string, len(points))
	for i, pt := range points {
		votes[i] = float64(pt.Votes)
		means[i].X = float64(i)
		means[i].Y = pt.Mean
		names[i] = pt.Label
	}

	bars, err := plotter.NewBarChart(votes, vg.Points(22))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = barRGBA
	bars.LineStyle.Width = vg.Length(0)

	line, markers, err := plotter.NewLinePoints(means)
	if err != nil {
		return nil, fmt.Errorf("mean line: %w", err)
	}
	line.Color = lineRGBA
	line.Width = vg.Points(2)
	markers.Color = lineRGBA
	markers.Shape = draw.CircleGlyph{}
	markers.Radius = vg.Points(3)

	p.Add(plotter.NewGrid(), bars, line, markers)
	p.NominalX(names...)
	p.Legend.Add("Candidate votes", bars)
	p.Legend.Add("Zone mean", line, markers)
	p.Legend.Top = true

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("png canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}
