// Package report composes the per-candidate territorial report: one detail
// page per zone, a competitive ranking summary and a chart + total page,
// rendered as PDF, HTML, plain text or an XLSX workbook.
package report

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/seenimoa/votereport/internal/config"
	"github.com/seenimoa/votereport/internal/tally"
	"github.com/seenimoa/votereport/internal/territory"
	"github.com/seenimoa/votereport/pkg/models"
	"github.com/seenimoa/votereport/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Report Generator: layout + format rendering
// ════════════════════════════════════════════════════════════════════

// ReportFormat specifies the output format.
type ReportFormat string

const (
	FormatPDF  ReportFormat = "pdf"
	FormatHTML ReportFormat = "html"
	FormatText ReportFormat = "text"
	FormatXLSX ReportFormat = "xlsx"
)

// AllFormats returns the supported formats, default first.
func AllFormats() []ReportFormat {
	return []ReportFormat{FormatPDF, FormatHTML, FormatText, FormatXLSX}
}

func formatList() string {
	names := make([]string, 0, 4)
	for _, f := range AllFormats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// ParseFormat resolves a user-supplied format name. Empty means PDF.
func ParseFormat(s string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "html", "htm":
		return FormatHTML, nil
	case "text", "txt":
		return FormatText, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown report format %q (want one of %s)", s, formatList())
}

// Ext is the file extension used for the format.
func (f ReportFormat) Ext() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatText:
		return "txt"
	case FormatXLSX:
		return "xlsx"
	default:
		return "pdf"
	}
}

// ContentType is the MIME type served for the format.
func (f ReportFormat) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/pdf"
	}
}

// TiePolicy decides what happens when candidates tie across the top-N
// boundary of the competitive summary.
type TiePolicy string

const (
	// TieInclude lists every candidate whose rank is within the top N, so
	// a block may hold more than N rows.
	TieInclude TiePolicy = "include"
	// TieTruncate keeps exactly the first N rows by rank, then name.
	TieTruncate TiePolicy = "truncate"
)

// ReportConfig controls report generation behaviour.
type ReportConfig struct {
	Format         ReportFormat     // output format (default: PDF)
	TopN           int              // candidates per competitive block (default: 5)
	LocationWidth  int              // location name display width in runes (default: 75)
	TiePolicy      TiePolicy        // rank boundary handling (default: include)
	Title          string           // custom report title (optional)
	Author         string           // footer credit line (optional)
	RegionName     string           // used in the total banner, e.g. "DF"
	FilenamePrefix string           // default: "Relatorio_"
	Territories    *territory.Table // zone labels (default: Federal District)
	ChartCfg       ChartConfig      // chart rendering config
	PDF            PDFConfig        // page settings for the PDF format
}

// DefaultReportConfig returns sensible defaults.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Format:         FormatPDF,
		TopN:           5,
		LocationWidth:  75,
		TiePolicy:      TieInclude,
		RegionName:     "DF",
		FilenamePrefix: "Relatorio_",
		Territories:    territory.FederalDistrict(),
		ChartCfg:       DefaultChartConfig(),
		PDF:            DefaultPDFConfig(),
	}
}

// ConfigFromSettings maps the report section of the application config.
func ConfigFromSettings(s config.ReportConfig, territories *territory.Table) ReportConfig {
	rc := DefaultReportConfig()
	if f, err := ParseFormat(s.Format); err == nil {
		rc.Format = f
	}
	if s.TopN > 0 {
		rc.TopN = s.TopN
	}
	if s.LocationWidth > 0 {
		rc.LocationWidth = s.LocationWidth
	}
	if s.TiePolicy != "" {
		rc.TiePolicy = TiePolicy(s.TiePolicy)
	}
	if s.FilenamePrefix != "" {
		rc.FilenamePrefix = s.FilenamePrefix
	}
	rc.RegionName = s.RegionName
	rc.Author = s.Author
	if territories != nil {
		rc.Territories = territories
	}
	return rc
}

// withDefaults fills zero values so a partially built config still renders.
func (rc ReportConfig) withDefaults() ReportConfig {
	d := DefaultReportConfig()
	if rc.Format == "" {
		rc.Format = d.Format
	}
	if rc.TopN <= 0 {
		rc.TopN = d.TopN
	}
	if rc.LocationWidth <= 0 {
		rc.LocationWidth = d.LocationWidth
	}
	if rc.TiePolicy == "" {
		rc.TiePolicy = d.TiePolicy
	}
	if rc.FilenamePrefix == "" {
		rc.FilenamePrefix = d.FilenamePrefix
	}
	if rc.Territories == nil {
		rc.Territories = d.Territories
	}
	if rc.ChartCfg.Width == 0 {
		rc.ChartCfg = d.ChartCfg
	}
	if rc.PDF.PageSize == "" {
		rc.PDF = d.PDF
	}
	return rc
}

// ════════════════════════════════════════════════════════════════════
// Errors
// ════════════════════════════════════════════════════════════════════

var (
	// ErrNoVotes is matched by *LookupMiss.
	ErrNoVotes = errors.New("candidate has no recorded votes for this race")
	// ErrRender is matched by *RenderFailure.
	ErrRender = errors.New("report generation failed")
)

// LookupMiss means the candidate has no summary rows in the race. No
// document is produced.
type LookupMiss struct {
	Race      string
	Candidate string
}

func (e *LookupMiss) Error() string {
	if e.Race == "" {
		return fmt.Sprintf("%s: %s", e.Candidate, ErrNoVotes)
	}
	return fmt.Sprintf("%s (%s): %s", e.Candidate, e.Race, ErrNoVotes)
}

func (e *LookupMiss) Is(target error) bool { return target == ErrNoVotes }

// RenderFailure wraps any chart or document engine error.
type RenderFailure struct {
	Format ReportFormat
	Stage  string // e.g. "chart", "document", "encode"
	Err    error
}

func (e *RenderFailure) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrRender, e.Format, e.Stage, e.Err)
}

func (e *RenderFailure) Unwrap() error { return e.Err }

func (e *RenderFailure) Is(target error) bool { return target == ErrRender }

func renderFailure(format ReportFormat, stage string, err error) error {
	return &RenderFailure{Format: format, Stage: stage, Err: err}
}

// ════════════════════════════════════════════════════════════════════
// Report Data: layout model shared by every renderer
// ════════════════════════════════════════════════════════════════════

// ReportData is the layout model passed to renderers and templates.
type ReportData struct {
	Title       string
	Race        string
	Candidate   string
	Author      string
	RegionName  string
	GeneratedAt string // Brasília time

	Zones       []ZonePage
	Competitive []CompetitiveBlock
	Chart       []ChartPoint
	TotalVotes  int
	TotalLabel  string

	ChartSVG template.HTML // filled by the HTML renderer only
}

// ZonePage is one per-zone detail page.
type ZonePage struct {
	Zone      int
	Label     string // territory label or fallback
	Header    string // "ZONE 3 - TAGUATINGA"
	Votes     int
	Rank      int
	Locations []LocationRow
}

// LocationRow is one polling location of the selected candidate.
type LocationRow struct {
	Name  string // truncated to the configured width
	Votes int
}

// CompetitiveBlock is the ranking excerpt of one zone.
type CompetitiveBlock struct {
	Zone    int             `json:"zone"`
	Label   string          `json:"label"`
	Heading string          `json:"heading"` // "ZONE 3 (Taguatinga)"
	Rows    []CompetitorRow `json:"rows"`
	Current *CompetitorRow  `json:"current,omitempty"` // set when the candidate is outside Rows
}

// RowCount is the number of table rows the block renders.
func (b CompetitiveBlock) RowCount() int {
	if b.Current != nil {
		return len(b.Rows) + 1
	}
	return len(b.Rows)
}

// CompetitorRow is one ranked candidate in a competitive block.
type CompetitorRow struct {
	Rank      int    `json:"rank"`
	Candidate string `json:"candidate"`
	Votes     int    `json:"votes"`
	Selected  bool   `json:"selected"`
}

// ChartPoint is one zone on the performance chart.
type ChartPoint struct {
	Zone  int
	Label string // "Z3"
	Votes int
	Mean  float64
}

// BuildReportData computes the full layout for a candidate. It returns a
// *LookupMiss when the candidate has no rows in summary.
func BuildReportData(race models.Race, summary []models.ZoneCandidateSummary, candidate string, cfg ReportConfig) (ReportData, error) {
	cfg = cfg.withDefaults()

	own := tally.ForCandidate(summary, candidate)
	if len(own) == 0 {
		return ReportData{}, &LookupMiss{Race: race.Key, Candidate: candidate}
	}

	data := ReportData{
		Title:       cfg.Title,
		Race:        race.Key,
		Candidate:   candidate,
		Author:      cfg.Author,
		RegionName:  cfg.RegionName,
		GeneratedAt: utils.FormatDateTimeBRT(time.Now()),
		TotalVotes:  tally.Total(own),
	}
	if data.Title == "" {
		data.Title = "Territorial report: " + candidate
	}
	data.TotalLabel = totalLabel(cfg.RegionName, data.TotalVotes)

	for _, s := range own {
		label := cfg.Territories.Label(s.Zone)

		page := ZonePage{
			Zone:   s.Zone,
			Label:  label,
			Header: fmt.Sprintf("ZONE %d - %s", s.Zone, utils.UpperPT(label)),
			Votes:  s.Votes,
			Rank:   s.Rank,
		}
		for _, r := range tally.Locations(race.Records, candidate, s.Zone) {
			page.Locations = append(page.Locations, LocationRow{
				Name:  utils.Truncate(r.Location, cfg.LocationWidth),
				Votes: r.Votes,
			})
		}
		data.Zones = append(data.Zones, page)

		data.Competitive = append(data.Competitive,
			competitiveBlock(tally.Zone(summary, s.Zone), s, label, cfg))

		data.Chart = append(data.Chart, ChartPoint{
			Zone:  s.Zone,
			Label: fmt.Sprintf("Z%d", s.Zone),
			Votes: s.Votes,
			Mean:  s.ZoneMean,
		})
	}
	return data, nil
}

// competitiveBlock selects the top rows of a zone (ordered by rank, then
// name) and appends the candidate's own row when it did not make the cut.
func competitiveBlock(zoneRows []models.ZoneCandidateSummary, own models.ZoneCandidateSummary, label string, cfg ReportConfig) CompetitiveBlock {
	block := CompetitiveBlock{
		Zone:    own.Zone,
		Label:   label,
		Heading: fmt.Sprintf("ZONE %d (%s)", own.Zone, label),
	}

	inBlock := false
	for i, r := range zoneRows {
		if cfg.TiePolicy == TieTruncate && i >= cfg.TopN {
			break
		}
		if cfg.TiePolicy != TieTruncate && r.Rank > cfg.TopN {
			break
		}
		sel := r.Candidate == own.Candidate
		inBlock = inBlock || sel
		block.Rows = append(block.Rows, CompetitorRow{
			Rank:      r.Rank,
			Candidate: r.Candidate,
			Votes:     r.Votes,
			Selected:  sel,
		})
	}

	if !inBlock {
		block.Current = &CompetitorRow{
			Rank:      own.Rank,
			Candidate: own.Candidate,
			Votes:     own.Votes,
			Selected:  true,
		}
	}
	return block
}

func totalLabel(region string, total int) string {
	if region == "" {
		return fmt.Sprintf("TOTAL VOTES: %s", utils.FormatVotes(total))
	}
	return fmt.Sprintf("TOTAL VOTES %s: %s", utils.UpperPT(region), utils.FormatVotes(total))
}

// ════════════════════════════════════════════════════════════════════
// Compose
// ════════════════════════════════════════════════════════════════════

// Document is a finished report, fully in memory.
type Document struct {
	Filename    string       `json:"filename"`
	ContentType string       `json:"content_type"`
	Format      ReportFormat `json:"format"`
	Body        []byte       `json:"-"`
	Pages       int          `json:"pages"` // physical pages for PDF, logical sections otherwise
}

// Size returns the body length in bytes.
func (d *Document) Size() int { return len(d.Body) }

// Compose renders the report of candidate in race. Sections come in order:
// zone detail pages by ascending zone, the competitive summary, then the
// chart and total page.
//
// A candidate with no summary rows yields a *LookupMiss (errors.Is
// ErrNoVotes); any engine failure yields a *RenderFailure (errors.Is
// ErrRender). In both cases the document is nil.
func Compose(race models.Race, summary []models.ZoneCandidateSummary, candidate string, cfg ReportConfig) (*Document, error) {
	cfg = cfg.withDefaults()

	data, err := BuildReportData(race, summary, candidate, cfg)
	if err != nil {
		return nil, err
	}

	var (
		body  []byte
		pages = len(data.Zones) + 2
	)
	switch cfg.Format {
	case FormatPDF:
		body, pages, err = renderPDF(data, cfg)
	case FormatHTML:
		body, err = renderHTML(data, cfg)
	case FormatText:
		body, err = renderText(data)
	case FormatXLSX:
		body, err = renderXLSX(data)
	default:
		err = renderFailure(cfg.Format, "format", fmt.Errorf("unsupported format %q", cfg.Format))
	}
	if err != nil {
		return nil, err
	}

	return &Document{
		Filename:    utils.ReportFilename(cfg.FilenamePrefix, candidate, cfg.Format.Ext()),
		ContentType: cfg.Format.ContentType(),
		Format:      cfg.Format,
		Body:        body,
		Pages:       pages,
	}, nil
}

// Generate aggregates the race and composes the report in one call.
func Generate(race models.Race, candidate string, cfg ReportConfig) (*Document, error) {
	return Compose(race, tally.Summarize(race.Records), candidate, cfg)
}

// ════════════════════════════════════════════════════════════════════
// Utility
// ════════════════════════════════════════════════════════════════════

// FormatDuration formats a render duration for logs and status lines.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}
