package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/seenimoa/votereport/pkg/utils"
)

// ReportTemplate is the HTML template for the territorial report.
// It is embedded as a Go constant with no external file dependencies.
const ReportTemplate = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #d1d5db;
    --accent: #284678;
    --zone-bg: #e6e6e6;
    --block-bg: #c8dcff;
    --selected: #ffffb4;
    --current: #ffd2d2;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.5;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  header.report { text-align: center; border-bottom: 3px solid var(--accent); padding-bottom: 8px; margin-bottom: 16px; }
  header.report h1 { font-size: 1.3rem; }
  .muted { color: var(--muted); font-size: 0.85rem; }
  section { page-break-after: always; margin-bottom: 32px; }
  h2.zone-header { background: var(--zone-bg); text-align: center; font-size: 1.05rem; padding: 6px; }
  p.zone-stats { text-align: center; font-weight: 600; margin: 6px 0 10px; }
  table { width: 100%; border-collapse: collapse; font-size: 0.85rem; }
  th, td { border: 1px solid var(--border); padding: 4px 8px; }
  th { background: #f5f5f5; }
  td.num, th.num { text-align: center; width: 20%; }
  td.rank { text-align: center; width: 8%; }
  h2.section-title { text-align: center; font-size: 1.3rem; margin-bottom: 12px; }
  .block { margin-bottom: 16px; }
  .block h3 { background: var(--block-bg); font-size: 0.95rem; padding: 4px 8px; }
  tr.selected td { background: var(--selected); font-weight: 600; }
  tr.current td { background: var(--current); font-weight: 600; }
  .chart { text-align: center; }
  .chart svg { max-width: 100%; height: auto; }
  .total {
    margin-top: 24px;
    background: var(--accent);
    color: #fff;
    font-size: 1.6rem;
    font-weight: 700;
    text-align: center;
    padding: 18px;
  }
  footer { text-align: center; color: var(--muted); font-size: 0.75rem; margin-top: 24px; }
  @media print { body { max-width: none; } }
</style>
</head>
<body>
<header class="report">
  <h1>{{.Title}}</h1>
  <p class="muted">{{if .Race}}{{.Race}} · {{end}}Generated {{.GeneratedAt}}</p>
</header>

{{range .Zones}}
<section class="zone-page" data-zone="{{.Zone}}">
  <h2 class="zone-header">{{.Header}}</h2>
  <p class="zone-stats">Votes: {{votes .Votes}} | Rank: {{rank .Rank}} place</p>
  <table class="locations">
    <thead><tr><th>Polling location</th><th class="num">Votes</th></tr></thead>
    <tbody>
    {{range .Locations}}<tr class="location"><td>{{.Name}}</td><td class="num">{{votes .Votes}}</td></tr>
    {{end}}
    </tbody>
  </table>
</section>
{{end}}

<section class="competitive">
  <h2 class="section-title">COMPETITIVE SUMMARY BY TERRITORY</h2>
  {{range .Competitive}}
  <div class="block" data-zone="{{.Zone}}">
    <h3>{{.Heading}}</h3>
    <table>
      <tbody>
      {{range .Rows}}<tr class="competitor{{if .Selected}} selected{{end}}"><td class="rank">{{rank .Rank}}</td><td>{{.Candidate}}</td><td class="num">{{votes .Votes}}</td></tr>
      {{end}}
      {{with .Current}}<tr class="competitor current"><td class="rank">{{rank .Rank}}</td><td>[CURRENT POSITION] {{.Candidate}}</td><td class="num">{{votes .Votes}}</td></tr>{{end}}
      </tbody>
    </table>
  </div>
  {{end}}
</section>

<section class="chart-page">
  <div class="chart">{{.ChartSVG}}</div>
  <div class="total">{{.TotalLabel}}</div>
</section>

<footer>{{if .Author}}© {{.Author}} · {{end}}{{.Candidate}}</footer>
</body>
</html>
`

var templateFuncs = template.FuncMap{
	"votes": utils.FormatVotes,
	"rank":  utils.FormatRank,
}

// renderHTML executes ReportTemplate with the inline SVG chart.
func renderHTML(d ReportData, cfg ReportConfig) ([]byte, error) {
	tmpl, err := template.New("report").Funcs(templateFuncs).Parse(ReportTemplate)
	if err != nil {
		return nil, renderFailure(FormatHTML, "template", fmt.Errorf("parsing template: %w", err))
	}

	d.ChartSVG = template.HTML(ZonePerformanceSVG(d.Chart, cfg.ChartCfg))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return nil, renderFailure(FormatHTML, "template", fmt.Errorf("executing template: %w", err))
	}
	return buf.Bytes(), nil
}
