package report

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/plot/vg"

	"github.com/seenimoa/votereport/internal/config"
	"github.com/seenimoa/votereport/internal/tally"
	"github.com/seenimoa/votereport/internal/territory"
	"github.com/seenimoa/votereport/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

const selected = "MARIA DA SILVA"

func rec(name string, zone int, loc string, votes int) models.VoteRecord {
	return models.VoteRecord{Candidate: name, Zone: zone, Location: loc, Votes: votes}
}

// sampleRace has two zones: in zone 3 (Taguatinga) the selected candidate
// is 7th, in zone 7 (not in the Federal District table) 2nd.
func sampleRace() models.Race {
	return models.Race{
		Key:    "Governador",
		Source: "localvotacao_governador.csv",
		Records: []models.VoteRecord{
			rec("ANA", 3, "EC 01 TAGUATINGA", 500),
			rec("BRUNO", 3, "EC 01 TAGUATINGA", 400),
			rec("CARLA", 3, "EC 01 TAGUATINGA", 300),
			rec("DIEGO", 3, "EC 01 TAGUATINGA", 200),
			rec("ELIS", 3, "EC 01 TAGUATINGA", 150),
			rec("FABIO", 3, "EC 01 TAGUATINGA", 120),
			rec(selected, 3, "EC 01 TAGUATINGA", 40),
			rec(selected, 3, "CEM 03 TAGUATINGA", 60),

			rec("ANA", 7, "ESCOLA CLASSE 01", 90),
			rec(selected, 7, "ESCOLA CLASSE 01", 50),
			rec(selected, 7, "CENTRO DE ENSINO 02", 30),
			rec("BRUNO", 7, "ESCOLA CLASSE 01", 70),
			rec("CARLA", 7, "ESCOLA CLASSE 01", 60),
			rec("DIEGO", 7, "ESCOLA CLASSE 01", 50),
			rec("ELIS", 7, "ESCOLA CLASSE 01", 40),
			rec("FABIO", 7, "ESCOLA CLASSE 01", 30),
		},
	}
}

// tiedRace has the selected candidate sharing rank 5 with ELIS.
func tiedRace() models.Race {
	return models.Race{
		Key: "Governador",
		Records: []models.VoteRecord{
			rec("ANA", 1, "EC 01", 100),
			rec("BRUNO", 1, "EC 01", 90),
			rec("CARLA", 1, "EC 01", 80),
			rec("DIEGO", 1, "EC 01", 70),
			rec("ELIS", 1, "EC 01", 60),
			rec(selected, 1, "EC 01", 60),
		},
	}
}

func buildSample(t *testing.T, cfg ReportConfig) ReportData {
	t.Helper()
	race := sampleRace()
	data, err := BuildReportData(race, tally.Summarize(race.Records), selected, cfg)
	if err != nil {
		t.Fatalf("BuildReportData failed: %v", err)
	}
	return data
}

func formatConfig(f ReportFormat) ReportConfig {
	cfg := DefaultReportConfig()
	cfg.Format = f
	cfg.Author = "Equipe Eleitoral"
	return cfg
}

// ════════════════════════════════════════════════════════════════════
// Layout Tests
// ════════════════════════════════════════════════════════════════════

func TestBuildReportData_Zones(t *testing.T) {
	data := buildSample(t, DefaultReportConfig())

	if len(data.Zones) != 2 {
		t.Fatalf("expected 2 zone pages, got %d", len(data.Zones))
	}
	z3, z7 := data.Zones[0], data.Zones[1]
	if z3.Zone != 3 || z7.Zone != 7 {
		t.Fatalf("zones out of order: %d, %d", z3.Zone, z7.Zone)
	}
	if z3.Header != "ZONE 3 - TAGUATINGA" {
		t.Errorf("zone 3 header = %q", z3.Header)
	}
	if z3.Votes != 100 || z3.Rank != 7 {
		t.Errorf("zone 3 = %d votes rank %d, want 100 rank 7", z3.Votes, z3.Rank)
	}
	if z7.Votes != 80 || z7.Rank != 2 {
		t.Errorf("zone 7 = %d votes rank %d, want 80 rank 2", z7.Votes, z7.Rank)
	}

	// Locations by votes, descending
	if len(z3.Locations) != 2 {
		t.Fatalf("expected 2 locations in zone 3, got %d", len(z3.Locations))
	}
	if z3.Locations[0].Name != "CEM 03 TAGUATINGA" || z3.Locations[0].Votes != 60 {
		t.Errorf("first location = %+v", z3.Locations[0])
	}
}

func TestBuildReportData_UnmappedZone(t *testing.T) {
	data := buildSample(t, DefaultReportConfig())
	z7 := data.Zones[1]

	if z7.Label != territory.Fallback {
		t.Errorf("label = %q, want %q", z7.Label, territory.Fallback)
	}
	if z7.Header != "ZONE 7 - UNMAPPED REGION" {
		t.Errorf("header = %q", z7.Header)
	}
	if h := data.Competitive[1].Heading; h != "ZONE 7 (Unmapped region)" {
		t.Errorf("competitive heading = %q", h)
	}
}

func TestBuildReportData_TotalAndChart(t *testing.T) {
	data := buildSample(t, DefaultReportConfig())

	if data.TotalVotes != 180 {
		t.Errorf("total = %d, want 180", data.TotalVotes)
	}
	if data.TotalLabel != "TOTAL VOTES DF: 180" {
		t.Errorf("total label = %q", data.TotalLabel)
	}
	if data.Title != "Territorial report: "+selected {
		t.Errorf("title = %q", data.Title)
	}

	if len(data.Chart) != 2 {
		t.Fatalf("expected 2 chart points, got %d", len(data.Chart))
	}
	if data.Chart[0].Label != "Z3" || data.Chart[1].Label != "Z7" {
		t.Errorf("chart labels = %q, %q", data.Chart[0].Label, data.Chart[1].Label)
	}
	if math.Abs(data.Chart[0].Mean-1770.0/7) > 1e-9 {
		t.Errorf("zone 3 mean = %f", data.Chart[0].Mean)
	}
	if math.Abs(data.Chart[1].Mean-60) > 1e-9 {
		t.Errorf("zone 7 mean = %f", data.Chart[1].Mean)
	}
}

func TestBuildReportData_NoRegion(t *testing.T) {
	cfg := DefaultReportConfig()
	cfg.RegionName = ""
	data := buildSample(t, cfg)
	if data.TotalLabel != "TOTAL VOTES: 180" {
		t.Errorf("total label = %q", data.TotalLabel)
	}
}

func TestBuildReportData_TruncatesLocations(t *testing.T) {
	long := strings.Repeat("CENTRO EDUCACIONAL ", 6)
	race := models.Race{Key: "Governador", Records: []models.VoteRecord{rec(selected, 1, long, 10)}}

	data, err := BuildReportData(race, tally.Summarize(race.Records), selected, DefaultReportConfig())
	if err != nil {
		t.Fatalf("BuildReportData failed: %v", err)
	}
	got := data.Zones[0].Locations[0].Name
	if n := len([]rune(got)); n != 75 {
		t.Errorf("location width = %d, want 75", n)
	}
}

// ════════════════════════════════════════════════════════════════════
// Competitive Summary Tests
// ════════════════════════════════════════════════════════════════════

func TestCompetitive_OutsideTopFive(t *testing.T) {
	data := buildSample(t, DefaultReportConfig())
	b := data.Competitive[0]

	if len(b.Rows) != 5 {
		t.Fatalf("expected 5 ranked rows, got %d", len(b.Rows))
	}
	if b.RowCount() != 6 {
		t.Errorf("row count = %d, want 6", b.RowCount())
	}
	for _, r := range b.Rows {
		if r.Selected {
			t.Errorf("unexpected selected row %+v", r)
		}
	}
	if b.Current == nil {
		t.Fatal("expected current-position row")
	}
	if b.Current.Candidate != selected || b.Current.Rank != 7 || b.Current.Votes != 100 {
		t.Errorf("current row = %+v", *b.Current)
	}
}

func TestCompetitive_InsideTopFive(t *testing.T) {
	data := buildSample(t, DefaultReportConfig())
	b := data.Competitive[1]

	if b.RowCount() != 5 {
		t.Errorf("row count = %d, want 5", b.RowCount())
	}
	if b.Current != nil {
		t.Error("did not expect a current-position row")
	}
	if !b.Rows[1].Selected || b.Rows[1].Candidate != selected {
		t.Errorf("second row = %+v, want selected candidate", b.Rows[1])
	}
	for i, r := range b.Rows {
		if i > 0 && r.Rank < b.Rows[i-1].Rank {
			t.Errorf("rows not ordered by rank at %d", i)
		}
	}
}

func TestCompetitive_TieInclude(t *testing.T) {
	race := tiedRace()
	data, err := BuildReportData(race, tally.Summarize(race.Records), selected, DefaultReportConfig())
	if err != nil {
		t.Fatalf("BuildReportData failed: %v", err)
	}
	b := data.Competitive[0]

	if len(b.Rows) != 6 {
		t.Fatalf("expected 6 rows with a tie at rank 5, got %d", len(b.Rows))
	}
	last := b.Rows[5]
	if last.Candidate != selected || last.Rank != 5 || !last.Selected {
		t.Errorf("last row = %+v", last)
	}
	if b.Current != nil {
		t.Error("did not expect a current-position row")
	}
}

func TestCompetitive_TieTruncate(t *testing.T) {
	race := tiedRace()
	cfg := DefaultReportConfig()
	cfg.TiePolicy = TieTruncate

	data, err := BuildReportData(race, tally.Summarize(race.Records), selected, cfg)
	if err != nil {
		t.Fatalf("BuildReportData failed: %v", err)
	}
	b := data.Competitive[0]

	if len(b.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(b.Rows))
	}
	if b.Rows[4].Candidate != "ELIS" {
		t.Errorf("5th row = %q, want ELIS (name order on equal votes)", b.Rows[4].Candidate)
	}
	if b.Current == nil || b.Current.Rank != 5 {
		t.Errorf("expected current-position row at rank 5, got %+v", b.Current)
	}
}

// ════════════════════════════════════════════════════════════════════
// Compose Tests
// ════════════════════════════════════════════════════════════════════

func TestCompose_LookupMiss(t *testing.T) {
	race := sampleRace()
	doc, err := Compose(race, tally.Summarize(race.Records), "NOBODY", DefaultReportConfig())
	if doc != nil {
		t.Error("expected no document")
	}
	if !errors.Is(err, ErrNoVotes) {
		t.Fatalf("expected ErrNoVotes, got %v", err)
	}
	var miss *LookupMiss
	if !errors.As(err, &miss) {
		t.Fatalf("expected *LookupMiss, got %T", err)
	}
	if miss.Race != "Governador" || miss.Candidate != "NOBODY" {
		t.Errorf("miss = %+v", miss)
	}
}

func TestCompose_EmptyRace(t *testing.T) {
	doc, err := Generate(models.Race{Key: "Senador"}, selected, DefaultReportConfig())
	if doc != nil || !errors.Is(err, ErrNoVotes) {
		t.Errorf("expected lookup miss on empty race, got doc=%v err=%v", doc, err)
	}
}

func TestCompose_UnsupportedFormat(t *testing.T) {
	cfg := DefaultReportConfig()
	cfg.Format = "docx"

	doc, err := Generate(sampleRace(), selected, cfg)
	if doc != nil {
		t.Error("expected no document")
	}
	if !errors.Is(err, ErrRender) {
		t.Fatalf("expected ErrRender, got %v", err)
	}
	var rf *RenderFailure
	if !errors.As(err, &rf) || rf.Stage != "format" {
		t.Errorf("expected format stage failure, got %v", err)
	}
}

func TestCompose_PDF(t *testing.T) {
	doc, err := Generate(sampleRace(), selected, formatConfig(FormatPDF))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !bytes.HasPrefix(doc.Body, []byte("%PDF")) {
		t.Errorf("body does not look like a PDF: %q", doc.Body[:min(8, len(doc.Body))])
	}
	if doc.Pages != 4 {
		t.Errorf("pages = %d, want 4 (2 zones + summary + chart)", doc.Pages)
	}
	if doc.Filename != "Relatorio_MARIA_DA_SILVA.pdf" {
		t.Errorf("filename = %q", doc.Filename)
	}
	if doc.ContentType != "application/pdf" {
		t.Errorf("content type = %q", doc.ContentType)
	}
	if doc.Size() != len(doc.Body) {
		t.Error("Size mismatch")
	}
}

// utf16be encodes s the way UTF-8 fonts write text in content streams.
func utf16be(s string) []byte {
	var out []byte
	for _, u := range utf16.Encode([]rune(s)) {
		out = append(out, byte(u>>8), byte(u))
	}
	return out
}

func TestCompose_PDFKeepsNonLatin1Names(t *testing.T) {
	const name = "ŁUKASZ ĐORĐE"
	race := models.Race{Key: "Governador", Records: []models.VoteRecord{
		rec(name, 1, "Escola Łódź", 10),
		rec("B", 1, "Escola Łódź", 5),
	}}
	cfg := formatConfig(FormatPDF)
	cfg.PDF.Uncompressed = true

	doc, err := Generate(race, name, cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, want := range []string{name, "Escola Łódź"} {
		if !bytes.Contains(doc.Body, utf16be(want)) {
			t.Errorf("PDF text lost %q", want)
		}
	}
	if !bytes.Contains(doc.Body, []byte("/BaseFont /utf8liberationsans")) {
		t.Error("expected embedded LiberationSans font")
	}
	if bytes.Contains(doc.Body, []byte("/Helvetica")) {
		t.Error("unexpected core Helvetica font")
	}
}

func TestCompose_PDFSingleZone(t *testing.T) {
	race := tiedRace()
	doc, err := Generate(race, selected, DefaultReportConfig())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if doc.Pages != 3 {
		t.Errorf("pages = %d, want 3", doc.Pages)
	}
}

func TestCompose_HTML(t *testing.T) {
	doc, err := Generate(sampleRace(), selected, formatConfig(FormatHTML))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if doc.Filename != "Relatorio_MARIA_DA_SILVA.html" {
		t.Errorf("filename = %q", doc.Filename)
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		t.Fatalf("parsing HTML: %v", err)
	}

	zones := page.Find("section.zone-page")
	if zones.Length() != 2 {
		t.Fatalf("expected 2 zone sections, got %d", zones.Length())
	}
	if h := strings.TrimSpace(zones.First().Find("h2.zone-header").Text()); h != "ZONE 3 - TAGUATINGA" {
		t.Errorf("first header = %q", h)
	}
	if n := zones.First().Find("tr.location").Length(); n != 2 {
		t.Errorf("zone 3 locations = %d, want 2", n)
	}

	blocks := page.Find("section.competitive .block")
	if blocks.Length() != 2 {
		t.Fatalf("expected 2 competitive blocks, got %d", blocks.Length())
	}
	first := blocks.Eq(0)
	if n := first.Find("tr.competitor").Length(); n != 6 {
		t.Errorf("zone 3 block rows = %d, want 6", n)
	}
	current := first.Find("tr.current")
	if current.Length() != 1 || !strings.Contains(current.Text(), "[CURRENT POSITION] "+selected) {
		t.Errorf("current row = %q", current.Text())
	}
	second := blocks.Eq(1)
	if n := second.Find("tr.competitor").Length(); n != 5 {
		t.Errorf("zone 7 block rows = %d, want 5", n)
	}
	if !strings.Contains(second.Find("tr.selected").Text(), selected) {
		t.Error("expected selected row in zone 7 block")
	}

	if page.Find(".chart svg rect.bar").Length() != 2 {
		t.Error("expected 2 chart bars")
	}
	if total := strings.TrimSpace(page.Find(".total").Text()); total != "TOTAL VOTES DF: 180" {
		t.Errorf("total banner = %q", total)
	}
	if !strings.Contains(page.Find("footer").Text(), "Equipe Eleitoral") {
		t.Error("expected author in footer")
	}
}

func TestCompose_Text(t *testing.T) {
	doc, err := Generate(sampleRace(), selected, formatConfig(FormatText))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	out := string(doc.Body)

	checks := []struct {
		name   string
		substr string
	}{
		{"zone 3 header", "ZONE 3 - TAGUATINGA"},
		{"zone 7 header", "ZONE 7 - UNMAPPED REGION"},
		{"rank", "7º"},
		{"summary title", "COMPETITIVE SUMMARY BY TERRITORY"},
		{"current row", "[CURRENT POSITION] " + selected},
		{"chart label", "Z7"},
		{"total", "TOTAL VOTES DF: 180"},
		{"author", "Equipe Eleitoral"},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if !strings.Contains(out, c.substr) {
				t.Errorf("expected '%s' in text output", c.substr)
			}
		})
	}
	if doc.Filename != "Relatorio_MARIA_DA_SILVA.txt" {
		t.Errorf("filename = %q", doc.Filename)
	}
}

func TestCompose_XLSX(t *testing.T) {
	doc, err := Generate(sampleRace(), selected, formatConfig(FormatXLSX))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(doc.Body))
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	zones, err := f.GetRows(SheetZones)
	if err != nil {
		t.Fatalf("reading %s: %v", SheetZones, err)
	}
	if len(zones) < 3 {
		t.Fatalf("zones sheet has %d rows", len(zones))
	}
	if zones[1][0] != "3" || zones[2][1] != territory.Fallback {
		t.Errorf("zone rows = %v / %v", zones[1], zones[2])
	}

	locations, _ := f.GetRows(SheetLocations)
	if len(locations) != 5 {
		t.Errorf("locations rows = %d, want header + 4", len(locations))
	}

	ranking, _ := f.GetRows(SheetRanking)
	if len(ranking) != 12 {
		t.Fatalf("ranking rows = %d, want header + 6 + 5", len(ranking))
	}
	if ranking[6][3] != selected || ranking[6][5] != "CURRENT POSITION" {
		t.Errorf("current row = %v", ranking[6])
	}
}

// ════════════════════════════════════════════════════════════════════
// Chart Tests
// ════════════════════════════════════════════════════════════════════

func TestZonePerformanceSVG_Basic(t *testing.T) {
	data := buildSample(t, DefaultReportConfig())
	svg := ZonePerformanceSVG(data.Chart, DefaultChartConfig())

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Error("expected a complete svg element")
	}
	if n := strings.Count(svg, `class="bar"`); n != 2 {
		t.Errorf("bars = %d, want 2", n)
	}
	for _, want := range []string{`class="mean"`, ">Z3<", ">Z7<", "Candidate votes", "Zone mean"} {
		if !strings.Contains(svg, want) {
			t.Errorf("expected %q in svg", want)
		}
	}
}

func TestZonePerformanceSVG_Empty(t *testing.T) {
	svg := ZonePerformanceSVG(nil, DefaultChartConfig())
	if !strings.Contains(svg, "No data") {
		t.Error("expected empty-state message")
	}
}

func TestZonePerformanceSVG_ZeroConfig(t *testing.T) {
	svg := ZonePerformanceSVG([]ChartPoint{{Zone: 1, Label: "Z1", Votes: 10, Mean: 5}}, ChartConfig{})
	if !strings.Contains(svg, `width="800"`) {
		t.Error("expected default width")
	}
}

func TestZonePerformancePNG(t *testing.T) {
	points := []ChartPoint{{Zone: 1, Label: "Z1", Votes: 10, Mean: 5}, {Zone: 2, Label: "Z2", Votes: 3, Mean: 8}}
	png, err := ZonePerformancePNG(points, "", 6*vg.Inch, 3*vg.Inch)
	if err != nil {
		t.Fatalf("ZonePerformancePNG failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG signature")
	}

	if _, err := ZonePerformancePNG(nil, "", 6*vg.Inch, 3*vg.Inch); err == nil {
		t.Error("expected error for empty chart")
	}
}

// ════════════════════════════════════════════════════════════════════
// Report Config Tests
// ════════════════════════════════════════════════════════════════════

func TestDefaultReportConfig(t *testing.T) {
	cfg := DefaultReportConfig()
	if cfg.Format != FormatPDF {
		t.Errorf("expected PDF default, got %s", cfg.Format)
	}
	if cfg.TopN != 5 || cfg.LocationWidth != 75 {
		t.Errorf("top n = %d, width = %d", cfg.TopN, cfg.LocationWidth)
	}
	if cfg.TiePolicy != TieInclude {
		t.Errorf("tie policy = %s", cfg.TiePolicy)
	}
	if cfg.Territories.Label(3) != "Taguatinga" {
		t.Error("expected Federal District table by default")
	}
}

func TestConfigFromSettings(t *testing.T) {
	table := territory.New([]territory.Entry{{Zone: 1, Label: "Centro"}})
	cfg := ConfigFromSettings(config.ReportConfig{
		Format:         "html",
		TopN:           3,
		TiePolicy:      "truncate",
		Author:         "Equipe",
		RegionName:     "GO",
		FilenamePrefix: "Report_",
	}, table)

	if cfg.Format != FormatHTML || cfg.TopN != 3 || cfg.TiePolicy != TieTruncate {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.LocationWidth != 75 {
		t.Errorf("location width = %d, want default", cfg.LocationWidth)
	}
	if cfg.Territories.Label(1) != "Centro" || cfg.Author != "Equipe" || cfg.RegionName != "GO" {
		t.Error("settings not applied")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want ReportFormat
		ok   bool
	}{
		{"", FormatPDF, true},
		{"PDF", FormatPDF, true},
		{"html", FormatHTML, true},
		{"txt", FormatText, true},
		{" excel ", FormatXLSX, true},
		{"docx", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if FormatText.Ext() != "txt" || FormatXLSX.Ext() != "xlsx" {
		t.Error("unexpected extensions")
	}
	_, err := ParseFormat("docx")
	if err == nil {
		t.Fatal("expected error for docx")
	}
	for _, f := range AllFormats() {
		if !strings.Contains(err.Error(), string(f)) {
			t.Errorf("error %q does not list format %q", err, f)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1.5m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Artifact Tests
// ════════════════════════════════════════════════════════════════════

func TestTempArtifact_Release(t *testing.T) {
	dir := t.TempDir()
	a, err := NewTempArtifact(dir, "chart-*.png")
	if err != nil {
		t.Fatalf("NewTempArtifact failed: %v", err)
	}
	if _, err := os.Stat(a.Path()); err != nil {
		t.Fatalf("expected temp file: %v", err)
	}
	if err := a.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(a.Path()); !os.IsNotExist(err) {
		t.Error("expected temp file removed")
	}
	if err := a.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}
}

func TestDocumentWriteTo(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	doc := &Document{Filename: "Relatorio_ANA.txt", Body: []byte("hello")}

	path, err := doc.WriteTo(dir)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if path != filepath.Join(dir, "Relatorio_ANA.txt") {
		t.Errorf("path = %q", path)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "hello" {
		t.Errorf("content = %q, %v", got, err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the report in %s, found %d entries", dir, len(entries))
	}
}

func TestDocumentWriteTo_ReadablePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	dir := t.TempDir()
	doc := &Document{Filename: "Relatorio_ANA.txt", Body: []byte("hello")}

	path, err := doc.WriteTo(dir)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0o644 {
		t.Errorf("mode = %o, want 644", mode)
	}
}

func TestDocumentWriteTo_RejectsPathFilename(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"", "..", "../escape.txt", "sub/Relatorio.txt"} {
		doc := &Document{Filename: name, Body: []byte("x")}
		if _, err := doc.WriteTo(dir); err == nil {
			t.Errorf("WriteTo(%q) succeeded, want error", name)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files written, found %d", len(entries))
	}
}

func TestGenerate_SlashInNameStaysInOutputDir(t *testing.T) {
	race := models.Race{Key: "Governador", Records: []models.VoteRecord{
		rec("A/B", 1, "locX", 10),
		rec("C", 1, "locX", 5),
	}}
	cfg := DefaultReportConfig()
	cfg.Format = FormatText

	doc, err := Generate(race, "A/B", cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if doc.Filename != "Relatorio_A_B.txt" {
		t.Errorf("filename = %q", doc.Filename)
	}

	dir := t.TempDir()
	path, err := doc.WriteTo(dir)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("report written outside %s: %s", dir, path)
	}
}
