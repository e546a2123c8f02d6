package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/seenimoa/votereport/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

func renderText(d ReportData) ([]byte, error) {
	var buf bytes.Buffer
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	buf.WriteString("\n" + line + "\n")
	buf.WriteString(fmt.Sprintf("  %s\n", d.Title))
	buf.WriteString(fmt.Sprintf("  Race: %s | Generated: %s\n", d.Race, d.GeneratedAt))
	buf.WriteString(line + "\n")

	for _, z := range d.Zones {
		buf.WriteString(fmt.Sprintf("\n  ■ %s\n", z.Header))
		buf.WriteString(fmt.Sprintf("  Votes: %s | Rank: %s place\n\n",
			utils.FormatVotes(z.Votes), utils.FormatRank(z.Rank)))

		rows := make([][]string, len(z.Locations))
		for i, loc := range z.Locations {
			rows[i] = []string{loc.Name, utils.FormatVotes(loc.Votes)}
		}
		writeTable(&buf, []string{"Polling location", "Votes"}, rows)
		buf.WriteString(thinLine + "\n")
	}

	buf.WriteString("\n  ■ COMPETITIVE SUMMARY BY TERRITORY\n")
	for _, b := range d.Competitive {
		buf.WriteString(fmt.Sprintf("\n  %s\n", b.Heading))
		rows := make([][]string, 0, b.RowCount())
		for _, r := range b.Rows {
			name := r.Candidate
			if r.Selected {
				name = "► " + name
			}
			rows = append(rows, []string{utils.FormatRank(r.Rank), name, utils.FormatVotes(r.Votes)})
		}
		if c := b.Current; c != nil {
			rows = append(rows, []string{utils.FormatRank(c.Rank), "[CURRENT POSITION] " + c.Candidate, utils.FormatVotes(c.Votes)})
		}
		writeTable(&buf, []string{"Rank", "Candidate", "Votes"}, rows)
	}
	buf.WriteString(thinLine + "\n")

	buf.WriteString("\n  ■ PERFORMANCE BY ZONE\n\n")
	rows := make([][]string, len(d.Chart))
	for i, p := range d.Chart {
		rows[i] = []string{p.Label, utils.FormatVotes(p.Votes), utils.FormatMean(p.Mean)}
	}
	writeTable(&buf, []string{"Zone", "Votes", "Zone mean"}, rows)

	buf.WriteString("\n" + line + "\n")
	buf.WriteString(fmt.Sprintf("  %s\n", d.TotalLabel))
	if d.Author != "" {
		buf.WriteString(fmt.Sprintf("  © %s\n", d.Author))
	}
	buf.WriteString(line + "\n")

	return buf.Bytes(), nil
}

func writeTable(buf *bytes.Buffer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(rows)
	table.Render()
}
