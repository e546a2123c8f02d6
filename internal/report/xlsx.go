package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX workbook.
const (
	SheetZones     = "Zones"
	SheetLocations = "Locations"
	SheetRanking   = "Ranking"
)

// renderXLSX writes the report as a workbook: a zone overview with the
// performance chart, every polling location, and the competitive ranking
// with the candidate's rows highlighted.
func renderXLSX(d ReportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	fail := func(stage string, err error) error {
		return renderFailure(FormatXLSX, stage, err)
	}

	if err := f.SetSheetName("Sheet1", SheetZones); err != nil {
		return nil, fail("sheet", err)
	}
	for _, name := range []string{SheetLocations, SheetRanking} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fail("sheet", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C8DCFF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fail("style", err)
	}
	selectedStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFFFB4"}, Pattern: 1},
	})
	if err != nil {
		return nil, fail("style", err)
	}
	currentStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFD2D2"}, Pattern: 1},
	})
	if err != nil {
		return nil, fail("style", err)
	}

	// Zones
	if err := writeRow(f, SheetZones, 1, "Zone", "Territory", "Votes", "Rank", "Zone mean"); err != nil {
		return nil, fail("zones", err)
	}
	_ = f.SetCellStyle(SheetZones, "A1", "E1", headerStyle)
	for i, z := range d.Zones {
		mean := 0.0
		if i < len(d.Chart) {
			mean = d.Chart[i].Mean
		}
		if err := writeRow(f, SheetZones, i+2, z.Zone, z.Label, z.Votes, z.Rank, mean); err != nil {
			return nil, fail("zones", err)
		}
	}
	totalRow := len(d.Zones) + 3
	if err := writeRow(f, SheetZones, totalRow, d.TotalLabel, "", d.TotalVotes); err != nil {
		return nil, fail("zones", err)
	}
	_ = f.SetCellStyle(SheetZones, cell(1, totalRow), cell(3, totalRow), headerStyle)
	_ = f.SetColWidth(SheetZones, "A", "A", 28)
	_ = f.SetColWidth(SheetZones, "B", "B", 32)

	if n := len(d.Zones); n > 0 {
		if err := addZoneChart(f, n); err != nil {
			return nil, fail("chart", err)
		}
	}

	// Locations
	if err := writeRow(f, SheetLocations, 1, "Zone", "Polling location", "Votes"); err != nil {
		return nil, fail("locations", err)
	}
	_ = f.SetCellStyle(SheetLocations, "A1", "C1", headerStyle)
	row := 2
	for _, z := range d.Zones {
		for _, loc := range z.Locations {
			if err := writeRow(f, SheetLocations, row, z.Zone, loc.Name, loc.Votes); err != nil {
				return nil, fail("locations", err)
			}
			row++
		}
	}
	_ = f.SetColWidth(SheetLocations, "B", "B", 80)

	// Ranking
	if err := writeRow(f, SheetRanking, 1, "Zone", "Territory", "Rank", "Candidate", "Votes", "Note"); err != nil {
		return nil, fail("ranking", err)
	}
	_ = f.SetCellStyle(SheetRanking, "A1", "F1", headerStyle)
	row = 2
	for _, b := range d.Competitive {
		for _, r := range b.Rows {
			if err := writeRow(f, SheetRanking, row, b.Zone, b.Label, r.Rank, r.Candidate, r.Votes, ""); err != nil {
				return nil, fail("ranking", err)
			}
			if r.Selected {
				_ = f.SetCellStyle(SheetRanking, cell(1, row), cell(6, row), selectedStyle)
			}
			row++
		}
		if c := b.Current; c != nil {
			if err := writeRow(f, SheetRanking, row, b.Zone, b.Label, c.Rank, c.Candidate, c.Votes, "CURRENT POSITION"); err != nil {
				return nil, fail("ranking", err)
			}
			_ = f.SetCellStyle(SheetRanking, cell(1, row), cell(6, row), currentStyle)
			row++
		}
	}
	_ = f.SetColWidth(SheetRanking, "B", "B", 32)
	_ = f.SetColWidth(SheetRanking, "D", "D", 40)

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fail("encode", err)
	}
	return buf.Bytes(), nil
}

// addZoneChart places a column chart of votes per zone with the zone mean
// as a line series, next to the zone table.
func addZoneChart(f *excelize.File, zones int) error {
	last := zones + 1
	categories := fmt.Sprintf("%s!$A$2:$A$%d", SheetZones, last)

	bars := &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$C$1", SheetZones),
			Categories: categories,
			Values:     fmt.Sprintf("%s!$C$2:$C$%d", SheetZones, last),
		}},
		Title:  []excelize.RichTextRun{{Text: DefaultChartConfig().Title}},
		Legend: excelize.ChartLegend{Position: "top"},
	}
	mean := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$E$1", SheetZones),
			Categories: categories,
			Values:     fmt.Sprintf("%s!$E$2:$E$%d", SheetZones, last),
		}},
	}
	return f.AddChart(SheetZones, "G2", bars, mean)
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	return f.SetSheetRow(sheet, cell(1, row), &values)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
