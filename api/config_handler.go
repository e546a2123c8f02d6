package api

import (
	"encoding/json"
	"net/http"

	"github.com/seenimoa/votereport/internal/config"
	"github.com/seenimoa/votereport/internal/report"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config        `json:"config"`
	ConfigFile string                `json:"config_file"` // empty when running on defaults
	Sources    []config.SourceStatus `json:"sources"`
}

// ReportSettings is the body for PUT /api/v1/config. Only the report
// section can change at runtime, and changes are not written back to disk.
type ReportSettings struct {
	Format         string `json:"format,omitempty"`
	FilenamePrefix string `json:"filename_prefix,omitempty"`
	TopN           int    `json:"top_n,omitempty"`
	LocationWidth  int    `json:"location_width,omitempty"`
	TiePolicy      string `json:"tie_policy,omitempty"`
	Author         string `json:"author,omitempty"`
	RegionName     string `json:"region_name,omitempty"`
}

// handleGetConfig returns the running configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: s.cfg.File,
			Sources:    config.CheckSources(s.cfg),
		},
	})
}

// handleUpdateConfig merges report settings into the running config and
// rebuilds the report defaults.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var incoming ReportSettings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	next := *s.cfg
	mergeReportSettings(&next.Report, incoming)
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if next.Report.Format != "" {
		if _, err := report.ParseFormat(next.Report.Format); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	*s.cfg = next
	s.reportCfg = report.ConfigFromSettings(s.cfg.Report, s.cfg.TerritoryTable())

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: s.cfg.File,
			Sources:    config.CheckSources(s.cfg),
		},
	})
}

// handleGetSources returns the on-disk status of every configured race file.
func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckSources(s.cfg),
	})
}

// handleGetTerritories lists the zone labels reports resolve against.
func (s *Server) handleGetTerritories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.currentReportConfig().Territories.Entries(),
	})
}

// mergeReportSettings copies non-zero values from src into dst.
func mergeReportSettings(dst *config.ReportConfig, src ReportSettings) {
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.FilenamePrefix != "" {
		dst.FilenamePrefix = src.FilenamePrefix
	}
	if src.TopN != 0 {
		dst.TopN = src.TopN
	}
	if src.LocationWidth != 0 {
		dst.LocationWidth = src.LocationWidth
	}
	if src.TiePolicy != "" {
		dst.TiePolicy = src.TiePolicy
	}
	if src.Author != "" {
		dst.Author = src.Author
	}
	if src.RegionName != "" {
		dst.RegionName = src.RegionName
	}
}
