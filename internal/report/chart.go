package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/votereport/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Generator (pure Go)
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 400)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 30)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 70)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	BarColor     string // candidate votes (default: royal blue)
	LineColor    string // zone mean (default: orange)
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  30,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		BarColor:     "#4169e1",
		LineColor:    "#ffa500",
		FontSize:     11,
		Title:        "Performance by electoral zone",
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// ════════════════════════════════════════════════════════════════════
// Zone Performance Chart (bars + mean line)
// ════════════════════════════════════════════════════════════════════

// ZonePerformanceSVG draws the candidate's votes per zone as bars with the
// zone mean overlaid as a line with point markers. Points are drawn in the
// given order, which callers keep ascending by zone.
func ZonePerformanceSVG(points []ChartPoint, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if len(points) == 0 {
		return emptySVG(cfg, "No data")
	}

	px, py, pw, ph := cfg.plotArea()

	maxVal := 0.0
	for _, p := range points {
		maxVal = math.Max(maxVal, float64(p.Votes))
		maxVal = math.Max(maxVal, p.Mean)
	}
	if maxVal < 1 {
		maxVal = 1
	}
	maxVal *= 1.1

	n := len(points)
	slot := float64(pw) / float64(n)
	barW := slot * 0.6
	valToY := func(v float64) float64 {
		return float64(py+ph) - v/maxVal*float64(ph)
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Y-axis grid
	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		val := maxVal * float64(i) / float64(gridLines)
		y := valToY(val)
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, utils.FormatVotes(int(math.Round(val)))))
	}

	// Bars
	for i, p := range points {
		cx := float64(px) + slot*float64(i) + slot/2
		top := valToY(float64(p.Votes))
		sb.WriteString(fmt.Sprintf(`<rect class="bar" data-zone="%d" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
			p.Zone, cx-barW/2, top, barW, float64(py+ph)-top, cfg.BarColor))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			cx, py+ph+18, cfg.FontSize, cfg.TextColor, escapeXML(p.Label)))
	}

	// Mean line
	var pathParts []string
	for i, p := range points {
		cx := float64(px) + slot*float64(i) + slot/2
		cy := valToY(p.Mean)
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		pathParts = append(pathParts, fmt.Sprintf("%s%.1f,%.1f", cmd, cx, cy))
	}
	sb.WriteString(fmt.Sprintf(`<path class="mean" d="%s" fill="none" stroke="%s" stroke-width="2"/>`,
		strings.Join(pathParts, " "), cfg.LineColor))
	for i, p := range points {
		cx := float64(px) + slot*float64(i) + slot/2
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3.5" fill="%s"/>`,
			cx, valToY(p.Mean), cfg.LineColor))
	}

	// Legend
	lx, ly := px+10, py+4
	sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="14" height="10" fill="%s"/>`, lx, ly, cfg.BarColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">Candidate votes</text>`, lx+20, ly+9, cfg.TextColor))
	sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`,
		lx, ly+21, lx+14, ly+21, cfg.LineColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">Zone mean</text>`, lx+20, ly+25, cfg.TextColor))

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
