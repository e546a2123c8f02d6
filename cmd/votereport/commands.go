package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/votereport/api"
	"github.com/seenimoa/votereport/internal/config"
	"github.com/seenimoa/votereport/internal/dataset"
	"github.com/seenimoa/votereport/internal/report"
	"github.com/seenimoa/votereport/internal/tally"
	"github.com/seenimoa/votereport/internal/territory"
	"github.com/seenimoa/votereport/internal/tui"
	"github.com/seenimoa/votereport/pkg/models"
	"github.com/seenimoa/votereport/pkg/utils"
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

// --- Races Command ---

var racesCmd = &cobra.Command{
	Use:   "races",
	Short: "List loaded races and files that failed to load",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := cache.Snapshot()

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Race", "Records", "Candidates", "Source"})
		table.SetAutoFormatHeaders(false)
		for _, r := range snap.Races {
			table.Append([]string{
				r.Key,
				utils.FormatVotes(len(r.Records)),
				strconv.Itoa(len(tally.Candidates(r.Records))),
				r.Source,
			})
		}
		table.Render()

		printLoadErrors(snap.Errors)
		if len(snap.Races) == 0 {
			return fmt.Errorf("no race could be loaded")
		}
		return nil
	},
}

func printLoadErrors(errs []*models.LoadError) {
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "%s %s\n", failMark("✗"), e.Message())
	}
}

// --- Candidates Command ---

var candidatesCmd = &cobra.Command{
	Use:   "candidates <race>",
	Short: "List the candidates of a race",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		race, err := cache.Race(args[0])
		if err != nil {
			printLoadErrors(cache.Errors())
			return err
		}
		for _, name := range tally.Candidates(race.Records) {
			fmt.Println(name)
		}
		return nil
	},
}

// --- Summary Command ---

var summaryCmd = &cobra.Command{
	Use:   "summary <race> <candidate>",
	Short: "Print a candidate's votes and rank per zone",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		race, err := cache.Race(args[0])
		if err != nil {
			return err
		}
		rc, err := reportConfig(cmd)
		if err != nil {
			return err
		}

		candidate := utils.NormalizeName(args[1])
		data, err := report.BuildReportData(race, tally.Summarize(race.Records), candidate, rc)
		if err != nil {
			return err
		}

		fmt.Printf("%s · %s\n\n", data.Candidate, data.Race)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Zone", "Territory", "Votes", "Rank", "Zone mean", "Locations"})
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)
		for i, z := range data.Zones {
			table.Append([]string{
				strconv.Itoa(z.Zone),
				z.Label,
				utils.FormatVotes(z.Votes),
				utils.FormatRank(z.Rank),
				utils.FormatMean(data.Chart[i].Mean),
				strconv.Itoa(len(z.Locations)),
			})
		}
		table.SetFooter([]string{"", "", utils.FormatVotes(data.TotalVotes), "", "", ""})
		table.Render()

		fmt.Println()
		fmt.Println(data.TotalLabel)
		return nil
	},
}

// --- Generate Command ---

var generateCmd = &cobra.Command{
	Use:   "generate <race> <candidate>",
	Short: "Compose a candidate's report and write it to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		race, err := cache.Race(args[0])
		if err != nil {
			printLoadErrors(cache.Errors())
			return err
		}
		rc, err := reportConfig(cmd)
		if err != nil {
			return err
		}
		outDir, _ := cmd.Flags().GetString("out")
		if outDir == "" {
			outDir = cfg.Report.OutputDir
		}

		candidate := utils.NormalizeName(args[1])
		start := time.Now()
		doc, err := report.Generate(race, candidate, rc)
		if err != nil {
			return err
		}
		path, err := doc.WriteTo(outDir)
		if err != nil {
			return err
		}

		logger.Info("report written",
			zap.String("race", race.Key),
			zap.String("candidate", candidate),
			zap.String("path", path),
			zap.Int("pages", doc.Pages),
		)
		fmt.Printf("%s %s (%d pages, %s, %s)\n",
			okMark("✓"), path, doc.Pages, utils.FormatBytes(doc.Size()),
			report.FormatDuration(time.Since(start)))
		return nil
	},
}

func init() {
	generateCmd.Flags().String("format", "", formatUsage())
	generateCmd.Flags().String("out", "", "output directory (default: report.output_dir)")
	pickCmd.Flags().String("format", "", formatUsage())
	pickCmd.Flags().String("out", "", "output directory (default: report.output_dir)")
	serveCmd.Flags().String("host", "", "bind address (default: api.host)")
	serveCmd.Flags().Int("port", 0, "port (default: api.port)")
	serveCmd.Flags().Bool("no-ui", false, "do not serve the embedded web form")
	reloadCmd.Flags().String("addr", "", "address of a running server (default: api.host:api.port)")
}

func formatUsage() string {
	names := make([]string, 0, 4)
	for _, f := range report.AllFormats() {
		names = append(names, string(f))
	}
	return "output format: " + strings.Join(names, ", ") + " (default: report.format)"
}

// --- Territories Command ---

var territoriesCmd = &cobra.Command{
	Use:   "territories",
	Short: "List the zone to region labels used in reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Zone", "Territory"})
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)
		for _, e := range cfg.TerritoryTable().Entries() {
			table.Append([]string{strconv.Itoa(e.Zone), e.Label})
		}
		table.Render()
		fmt.Println(dim("Zones not listed are shown as \"" + territory.Fallback + "\"."))
		return nil
	},
}

// --- Pick Command (interactive) ---

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose a race and candidate interactively and generate the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := reportConfig(cmd)
		if err != nil {
			return err
		}
		outDir, _ := cmd.Flags().GetString("out")
		if outDir == "" {
			outDir = cfg.Report.OutputDir
		}
		return tui.Run(cache, rc, outDir, logger)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and web form",
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		if host == "" {
			host = cfg.API.Host
		}
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.API.Port
		}
		noUI, _ := cmd.Flags().GetBool("no-ui")

		api.Version = version
		srv := api.NewServer(cfg, cache, logger)
		if noUI {
			srv.SetServeUI(false)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if cfg.Dataset.Watch {
			w, err := dataset.NewWatcher(cache, time.Duration(cfg.Dataset.DebounceMs)*time.Millisecond, logger)
			if err != nil {
				return fmt.Errorf("dataset watcher: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("dataset watcher: %w", err)
			}
			defer w.Stop()
		}

		// Load up front so file problems show at startup.
		snap := cache.Snapshot()
		printLoadErrors(snap.Errors)

		addr := net.JoinHostPort(host, strconv.Itoa(port))
		fmt.Printf("🌐 votereport %s serving %d race(s) on http://%s\n", version, len(snap.Races), addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

// --- Reload Command ---

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask a running server to re-read the race files",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
		}

		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Post("http://"+addr+"/api/v1/reload", "application/json", nil)
		if err != nil {
			return fmt.Errorf("reload: %w", err)
		}
		defer resp.Body.Close()

		var body struct {
			Success bool             `json:"success"`
			Data    api.ReloadResult `json:"data"`
			Error   string           `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("reload: decoding response: %w", err)
		}
		if !body.Success {
			return fmt.Errorf("reload: %s", body.Error)
		}

		fmt.Printf("%s generation %d: %d race(s) loaded\n", okMark("✓"), body.Data.Generation, len(body.Data.Races))
		for _, e := range body.Data.Errors {
			fmt.Fprintf(os.Stderr, "%s %s\n", failMark("✗"), e.Message)
		}
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and race file status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  votereport: System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:      %s (%s)\n", version, commit)
		fmt.Printf("  Time (BRT):   %s\n", utils.FormatDateTimeBRT(utils.NowBRT()))
		configFile := cfg.File
		if configFile == "" {
			configFile = dim("(defaults)")
		}
		fmt.Printf("  Config file:  %s\n", configFile)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Data dir:     %s %s\n", cfg.Dataset.Dir, dim("("+string(config.DataDirOrigin(cfg))+")"))
		fmt.Printf("    Format:       %s\n", cfg.Report.Format)
		fmt.Printf("    Output dir:   %s\n", cfg.Report.OutputDir)
		fmt.Printf("    Top N:        %d (ties: %s)\n", cfg.Report.TopN, cfg.Report.TiePolicy)
		fmt.Printf("    API Server:   %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  Race files:")
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"", "Race", "File", "Size", "Modified"})
		table.SetAutoFormatHeaders(false)
		table.SetBorder(false)
		for _, s := range config.CheckSources(cfg) {
			mark, size, modified := failMark("✗ missing"), "", ""
			if s.Exists {
				mark = okMark("✓")
				size = utils.FormatBytes(int(s.Size))
				modified = utils.FormatDateTimeBRT(s.Modified)
			}
			table.Append([]string{mark, s.Race, s.Display, size, modified})
		}
		table.Render()
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
