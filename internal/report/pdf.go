package report

import (
	"bytes"
	"fmt"

	"codeberg.org/go-fonts/liberation/liberationsansbold"
	"codeberg.org/go-fonts/liberation/liberationsansitalic"
	"codeberg.org/go-fonts/liberation/liberationsansregular"
	"github.com/go-pdf/fpdf"
	"gonum.org/v1/plot/vg"

	"github.com/seenimoa/votereport/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// PDF Generator (fpdf, in memory)
// ════════════════════════════════════════════════════════════════════

// PDFConfig holds page settings for PDF generation.
type PDFConfig struct {
	PageSize     string  // default: "A4"
	Orientation  string  // "P" (default) or "L"
	Margin       float64 // left/top/right margin in mm (default: 10)
	BottomBreak  float64 // auto page break margin in mm (default: 20)
	Uncompressed bool    // write plain content streams, for inspection
}

// DefaultPDFConfig returns sensible defaults for PDF generation.
func DefaultPDFConfig() PDFConfig {
	return PDFConfig{
		PageSize:    "A4",
		Orientation: "P",
		Margin:      10,
		BottomBreak: 20,
	}
}

type rgb struct{ r, g, b int }

var (
	fillZoneHeader  = rgb{230, 230, 230}
	fillTableHeader = rgb{245, 245, 245}
	fillBlockHeader = rgb{200, 220, 255}
	fillSelected    = rgb{255, 255, 180}
	fillCurrent     = rgb{255, 210, 210}
	fillPlain       = rgb{255, 255, 255}
	fillTotal       = rgb{40, 70, 120}
)

const chartImage = "zone-performance"

// fontFamily is an embedded UTF-8 TrueType family, so names outside cp1252
// (Ł, Đ, Cyrillic) keep their glyphs.
const fontFamily = "LiberationSans"

func registerFonts(pdf *fpdf.Fpdf) {
	pdf.AddUTF8FontFromBytes(fontFamily, "", liberationsansregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", liberationsansbold.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "I", liberationsansitalic.TTF)
}

// renderPDF lays out the report and returns the PDF bytes with the number of
// physical pages. The chart PNG is registered from memory; nothing touches
// the filesystem.
func renderPDF(d ReportData, cfg ReportConfig) ([]byte, int, error) {
	pc := cfg.PDF
	if pc.PageSize == "" {
		pc = DefaultPDFConfig()
	}

	png, err := ZonePerformancePNG(d.Chart, cfg.ChartCfg.Title, 10*vg.Inch, 5*vg.Inch)
	if err != nil {
		return nil, 0, renderFailure(FormatPDF, "chart", err)
	}

	pdf := fpdf.New(pc.Orientation, "mm", pc.PageSize, "")
	pdf.SetMargins(pc.Margin, pc.Margin, pc.Margin)
	pdf.SetAutoPageBreak(true, pc.BottomBreak)
	pdf.SetTitle(d.Title, true)
	pdf.SetAuthor(d.Author, true)
	pdf.SetCreationDate(utils.NowBRT())
	pdf.SetCompression(!pc.Uncompressed)
	registerFonts(pdf)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont(fontFamily, "B", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 10, d.Title, "", 1, "C", false, 0, "")
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		text := fmt.Sprintf("Page %d", pdf.PageNo())
		if d.Author != "" {
			text = fmt.Sprintf("© %s | %s", d.Author, text)
		}
		pdf.CellFormat(0, 10, text, "", 0, "C", false, 0, "")
	})

	fill := func(c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }

	// Zone detail pages
	for _, z := range d.Zones {
		pdf.AddPage()

		pdf.SetFont(fontFamily, "B", 11)
		fill(fillZoneHeader)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 8, z.Header, "", 1, "C", true, 0, "")
		pdf.SetFont(fontFamily, "B", 10)
		pdf.CellFormat(0, 8, fmt.Sprintf("Votes: %s | Rank: %s place",
			utils.FormatVotes(z.Votes), utils.FormatRank(z.Rank)), "", 1, "C", false, 0, "")
		pdf.Ln(2)

		pdf.SetFont(fontFamily, "B", 9)
		fill(fillTableHeader)
		pdf.CellFormat(150, 7, "Polling location", "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, 7, "Votes", "1", 1, "C", true, 0, "")

		pdf.SetFont(fontFamily, "", 8)
		for _, loc := range z.Locations {
			pdf.CellFormat(150, 6, loc.Name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, utils.FormatVotes(loc.Votes), "1", 1, "C", false, 0, "")
		}
	}

	// Competitive summary
	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 15, "COMPETITIVE SUMMARY BY TERRITORY", "", 1, "C", false, 0, "")

	row := func(r CompetitorRow, c rgb, prefix string) {
		fill(c)
		pdf.CellFormat(15, 6, utils.FormatRank(r.Rank), "1", 0, "C", true, 0, "")
		pdf.CellFormat(135, 6, " "+prefix+r.Candidate, "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, 6, utils.FormatVotes(r.Votes), "1", 1, "C", true, 0, "")
	}
	for _, b := range d.Competitive {
		pdf.SetFont(fontFamily, "B", 10)
		fill(fillBlockHeader)
		pdf.CellFormat(0, 8, b.Heading, "", 1, "L", true, 0, "")

		pdf.SetFont(fontFamily, "", 9)
		for _, r := range b.Rows {
			c := fillPlain
			if r.Selected {
				c = fillSelected
			}
			row(r, c, "")
		}
		if b.Current != nil {
			row(*b.Current, fillCurrent, "[CURRENT POSITION] ")
		}
		pdf.Ln(4)
	}

	// Chart + total
	pdf.AddPage()
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(chartImage, opts, bytes.NewReader(png))
	pdf.ImageOptions(chartImage, pc.Margin, 20, 190, 0, false, opts, 0, "")
	pdf.SetY(160)
	pdf.SetFont(fontFamily, "B", 22)
	fill(fillTotal)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 25, d.TotalLabel, "", 1, "C", true, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, 0, renderFailure(FormatPDF, "document", err)
	}
	pages := pdf.PageNo()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, 0, renderFailure(FormatPDF, "encode", err)
	}
	return buf.Bytes(), pages, nil
}
