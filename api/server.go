// Package api provides the HTTP REST API server for votereport.
//
// It exposes endpoints to list races and candidates, preview a candidate's
// zone summary, render reports for download, reload the dataset, and a
// WebSocket stream of dataset and report events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/seenimoa/votereport/internal/config"
	"github.com/seenimoa/votereport/internal/dataset"
	"github.com/seenimoa/votereport/internal/report"
	"github.com/seenimoa/votereport/internal/tally"
	"github.com/seenimoa/votereport/pkg/models"
	"github.com/seenimoa/votereport/pkg/utils"
	"github.com/seenimoa/votereport/web"
)

// Version is reported by /health; the CLI overrides it at startup.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	cache  *dataset.Cache
	logger *zap.Logger
	wsHub  *WSHub

	cfgMu     sync.RWMutex
	reportCfg report.ReportConfig

	// renderMu allows one render at a time.
	renderMu  sync.Mutex
	docs   *gocache.Cache // report id → *report.Document
	docTTL time.Duration

	serveUI bool // when true, serve the embedded web form at /
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, cache *dataset.Cache, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := time.Duration(cfg.API.ReportTTLSec) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	srv := &Server{
		cfg:       cfg,
		cache:     cache,
		logger:    logger.Named("api"),
		wsHub:     NewWSHub(),
		reportCfg: report.ConfigFromSettings(cfg.Report, cfg.TerritoryTable()),
		docs:      gocache.New(ttl, ttl),
		docTTL:    ttl,
		serveUI:   true,
	}

	cache.OnReload(func(s *dataset.Snapshot) {
		srv.wsHub.Broadcast(WSMessage{Type: EventDatasetReloaded, Data: newReloadResult(s)})
	})

	srv.router = srv.buildRouter()
	return srv
}

// SetServeUI controls whether the embedded web form is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully on
// SIGINT/SIGTERM or when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Races and candidates
		r.Get("/races", s.handleRaces)
		r.Get("/races/{race}/candidates", s.handleCandidates)
		r.Get("/races/{race}/candidates/{candidate}/summary", s.handleSummary)
		r.Get("/races/{race}/candidates/{candidate}/chart.svg", s.handleChartSVG)

		// Reports
		r.Post("/reports", s.handleCreateReport)
		r.Get("/reports/{id}", s.handleGetReport)

		// Dataset
		r.Post("/reload", s.handleReload)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)
		r.Get("/config/sources", s.handleGetSources)
		r.Get("/config/territories", s.handleGetTerritories)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	// Serve embedded web form
	if s.serveUI {
		s.mountUI(r, web.StaticFS())
	}

	return r
}

// mountUI serves the embedded static form. Unknown paths fall back to
// index.html.
func (s *Server) mountUI(r chi.Router, staticFS fs.FS) {
	fileServer := http.FileServerFS(staticFS)

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rPath := strings.TrimPrefix(r.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}

		f, err := staticFS.Open(rPath)
		if err != nil {
			serveIndexHTML(w, staticFS)
			return
		}
		f.Close()

		if strings.HasSuffix(rPath, ".html") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}
		fileServer.ServeHTTP(w, r)
	})
}

// serveIndexHTML reads and serves the embedded index.html.
func serveIndexHTML(w http.ResponseWriter, staticFS fs.FS) {
	data, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		http.Error(w, "web UI not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RaceInfo describes one loaded race.
type RaceInfo struct {
	Key        string    `json:"key"`
	Source     string    `json:"source"`
	Records    int       `json:"records"`
	Candidates int       `json:"candidates"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// LoadErrorInfo is the JSON form of a *models.LoadError.
type LoadErrorInfo struct {
	Race    string               `json:"race"`
	Source  string               `json:"source"`
	Kind    models.LoadErrorKind `json:"kind"`
	Message string               `json:"message"`
}

// RacesResponse is returned by GET /api/v1/races.
type RacesResponse struct {
	Races      []RaceInfo      `json:"races"`
	Errors     []LoadErrorInfo `json:"errors"`
	Generation int             `json:"generation"`
}

// SummaryResponse previews a candidate's report.
type SummaryResponse struct {
	Race        string                    `json:"race"`
	Candidate   string                    `json:"candidate"`
	TotalVotes  int                       `json:"total_votes"`
	TotalLabel  string                    `json:"total_label"`
	Zones       []ZoneSummary             `json:"zones"`
	Competitive []report.CompetitiveBlock `json:"competitive"`
}

// ZoneSummary is one zone of the preview.
type ZoneSummary struct {
	Zone      int     `json:"zone"`
	Label     string  `json:"label"`
	Votes     int     `json:"votes"`
	Rank      int     `json:"rank"`
	ZoneMean  float64 `json:"zone_mean"`
	Locations int     `json:"locations"`
}

// ReportRequest is the body for POST /api/v1/reports.
type ReportRequest struct {
	Race      string `json:"race"`
	Candidate string `json:"candidate"`
	Format    string `json:"format,omitempty"` // default: configured format
}

// ReportTicket is returned once a report has been rendered.
type ReportTicket struct {
	ID          string              `json:"id"`
	Filename    string              `json:"filename"`
	Format      report.ReportFormat `json:"format"`
	Pages       int                 `json:"pages"`
	Size        int                 `json:"size"`
	DownloadURL string              `json:"download_url"`
	ExpiresAt   time.Time           `json:"expires_at"`
	Elapsed     string              `json:"elapsed"`
}

// ReloadResult is returned by POST /api/v1/reload and broadcast as a
// dataset_reloaded event.
type ReloadResult struct {
	Races      []string        `json:"races"`
	Errors     []LoadErrorInfo `json:"errors"`
	Generation int             `json:"generation"`
	LoadedAt   time.Time       `json:"loaded_at"`
}

func newReloadResult(s *dataset.Snapshot) ReloadResult {
	return ReloadResult{
		Races:      s.Keys(),
		Errors:     loadErrorInfos(s.Errors),
		Generation: s.Generation,
		LoadedAt:   s.LoadedAt,
	}
}

func loadErrorInfos(errs []*models.LoadError) []LoadErrorInfo {
	out := make([]LoadErrorInfo, 0, len(errs))
	for _, e := range errs {
		out = append(out, LoadErrorInfo{Race: e.Race, Source: e.Source, Kind: e.Kind, Message: e.Message()})
	}
	return out
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Snapshot()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":      "ok",
			"version":     Version,
			"races":       len(snap.Races),
			"load_errors": len(snap.Errors),
			"time_brt":    utils.FormatDateTimeBRT(utils.NowBRT()),
		},
	})
}

func (s *Server) handleRaces(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Snapshot()
	resp := RacesResponse{
		Races:      make([]RaceInfo, 0, len(snap.Races)),
		Errors:     loadErrorInfos(snap.Errors),
		Generation: snap.Generation,
	}
	for _, race := range snap.Races {
		resp.Races = append(resp.Races, RaceInfo{
			Key:        race.Key,
			Source:     race.Source,
			Records:    len(race.Records),
			Candidates: len(tally.Candidates(race.Records)),
			LoadedAt:   race.LoadedAt,
		})
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	race, ok := s.lookupRace(w, pathParam(r, "race"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: tally.Candidates(race.Records)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	data, ok := s.reportData(w, r)
	if !ok {
		return
	}

	resp := SummaryResponse{
		Race:        data.Race,
		Candidate:   data.Candidate,
		TotalVotes:  data.TotalVotes,
		TotalLabel:  data.TotalLabel,
		Zones:       make([]ZoneSummary, 0, len(data.Zones)),
		Competitive: data.Competitive,
	}
	for i, z := range data.Zones {
		resp.Zones = append(resp.Zones, ZoneSummary{
			Zone:      z.Zone,
			Label:     z.Label,
			Votes:     z.Votes,
			Rank:      z.Rank,
			ZoneMean:  data.Chart[i].Mean,
			Locations: len(z.Locations),
		})
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	data, ok := s.reportData(w, r)
	if !ok {
		return
	}
	cfg := s.currentReportConfig()

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report.ZonePerformanceSVG(data.Chart, cfg.ChartCfg))) //nolint:errcheck
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	req.Candidate = utils.NormalizeName(req.Candidate)
	if req.Race == "" || req.Candidate == "" {
		writeError(w, http.StatusBadRequest, "race and candidate are required")
		return
	}

	cfg := s.currentReportConfig()
	if req.Format != "" {
		f, err := report.ParseFormat(req.Format)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cfg.Format = f
	}

	race, ok := s.lookupRace(w, req.Race)
	if !ok {
		return
	}

	s.renderMu.Lock()
	start := time.Now()
	doc, err := report.Generate(race, req.Candidate, cfg)
	elapsed := time.Since(start)
	s.renderMu.Unlock()

	if err != nil {
		s.writeReportError(w, err, race.Key, req.Candidate)
		return
	}

	id := uuid.NewString()
	s.docs.Set(id, doc, gocache.DefaultExpiration)

	ticket := ReportTicket{
		ID:          id,
		Filename:    doc.Filename,
		Format:      doc.Format,
		Pages:       doc.Pages,
		Size:        doc.Size(),
		DownloadURL: "/api/v1/reports/" + id,
		ExpiresAt:   time.Now().Add(s.docTTL),
		Elapsed:     report.FormatDuration(elapsed),
	}
	s.logger.Info("report rendered",
		zap.String("id", id),
		zap.String("race", race.Key),
		zap.String("candidate", req.Candidate),
		zap.String("format", string(doc.Format)),
		zap.Int("pages", doc.Pages),
		zap.Duration("elapsed", elapsed),
	)
	s.wsHub.Broadcast(WSMessage{Type: EventReportReady, Data: ticket})

	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: ticket})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, ok := s.docs.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "report not found or expired")
		return
	}
	doc := v.(*report.Document)

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(doc.Filename))
	w.Header().Set("Content-Length", fmt.Sprint(doc.Size()))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Body) //nolint:errcheck
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Reload(r.Context())
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: newReloadResult(snap)})
}

// ============================================================
// Helpers
// ============================================================

// pathParam returns a URL parameter with percent-escapes decoded.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func (s *Server) lookupRace(w http.ResponseWriter, key string) (models.Race, bool) {
	race, err := s.cache.Race(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return models.Race{}, false
	}
	return race, true
}

func (s *Server) reportData(w http.ResponseWriter, r *http.Request) (report.ReportData, bool) {
	race, ok := s.lookupRace(w, pathParam(r, "race"))
	if !ok {
		return report.ReportData{}, false
	}
	candidate := utils.NormalizeName(pathParam(r, "candidate"))

	data, err := report.BuildReportData(race, tally.Summarize(race.Records), candidate, s.currentReportConfig())
	if err != nil {
		s.writeReportError(w, err, race.Key, candidate)
		return report.ReportData{}, false
	}
	return data, true
}

func (s *Server) writeReportError(w http.ResponseWriter, err error, race, candidate string) {
	switch {
	case errors.Is(err, report.ErrNoVotes):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("report failed",
			zap.String("race", race),
			zap.String("candidate", candidate),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, report.ErrRender.Error())
	}
}

func (s *Server) currentReportConfig() report.ReportConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.reportCfg
}

// contentDisposition builds an attachment header. Non-ASCII names are
// emitted as RFC 2231 filename*.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
