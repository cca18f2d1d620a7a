package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"statguard/internal/alerts"
	"statguard/internal/config"
	"statguard/internal/engine"
	"statguard/internal/metrics"
	"statguard/internal/model"
)

type Processor interface {
	Process(ctx context.Context, text string) (engine.Result, error)
	Reset()
}

type Server struct {
	cfg     *config.Manager
	proc    Processor
	metrics *metrics.Store
	alerts  *alerts.Store
	logger  *slog.Logger
	version string
}

type statusResponse struct {
	Status     string          `json:"status"`
	Time       string          `json:"time"`
	Version    string          `json:"version"`
	ConfigPath string          `json:"config_path"`
	Surfaces   surfaceStatus   `json:"surfaces"`
	Window     windowStatus    `json:"window"`
	Detection  detectionStatus `json:"detection"`
}

type surfaceStatus struct {
	API      bool `json:"api"`
	Telegram bool `json:"telegram"`
	Kafka    bool `json:"kafka"`
	Redis    bool `json:"redis"`
	Storage  bool `json:"storage"`
}

type windowStatus struct {
	DefaultGames int    `json:"default_games"`
	VersusGames  int    `json:"versus_games"`
	Timezone     string `json:"timezone"`
}

type detectionStatus struct {
	MinGames     int                   `json:"min_games"`
	FullGame     []model.ThresholdRule `json:"full_game"`
	FirstQuarter []model.ThresholdRule `json:"first_quarter"`
}

type queryRequest struct {
	Text string `json:"text"`
}

type queryResponse struct {
	Query  model.Query     `json:"query"`
	Title  string          `json:"title"`
	Rows   []model.GameRow `json:"rows"`
	Alerts []model.Alert   `json:"alerts"`
	Lines  []string        `json:"lines"`
	PNG    []byte          `json:"png"`
}

func NewServer(cfg *config.Manager, proc Processor, metricsStore *metrics.Store, alertsStore *alerts.Store, logger *slog.Logger, version string) *Server {
	return &Server{
		cfg:     cfg,
		proc:    proc,
		metrics: metricsStore,
		alerts:  alertsStore,
		logger:  logger,
		version: version,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Statguard-Alerts"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/query", s.handleQuery)
	r.Get("/image", s.handleImage)
	r.Get("/alerts", s.handleAlerts)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/metrics/{player}", s.handlePlayerMetrics)
	r.Post("/admin/clear", s.handleClear)
	r.Post("/admin/reload", s.handleReload)
	return r
}

func Start(ctx context.Context, cfg *config.Manager, proc Processor, metricsStore *metrics.Store, alertsStore *alerts.Store, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := NewServer(cfg, proc, metricsStore, alertsStore, logger, version)
	httpServer := &http.Server{
		Addr:              current.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg.Get()
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Surfaces: surfaceStatus{
			API:      cfg.API.Enabled,
			Telegram: cfg.Telegram.Enabled,
			Kafka:    cfg.Kafka.Enabled,
			Redis:    cfg.Redis.Enabled,
			Storage:  cfg.Storage.Enabled,
		},
		Window: windowStatus{
			DefaultGames: cfg.Window.DefaultGames,
			VersusGames:  cfg.Window.VersusGames,
			Timezone:     cfg.Window.Timezone,
		},
		Detection: detectionStatus{
			MinGames:     cfg.Detection.MinGames,
			FullGame:     cfg.RulesFor(model.ModeFullGame),
			FirstQuarter: cfg.RulesFor(model.ModeFirstQuarter),
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body too large")
		return
	}
	var req queryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, ok := s.process(w, r, req.Text)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Query:  res.Query,
		Title:  res.Title,
		Rows:   nonNilRows(res.Rows),
		Alerts: nonNilAlerts(res.Alerts),
		Lines:  nonNilLines(res.Lines),
		PNG:    res.Image,
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	res, ok := s.process(w, r, r.URL.Query().Get("q"))
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Statguard-Alerts", strings.Join(res.Lines, "; "))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Image)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request, text string) (engine.Result, bool) {
	res, err := s.proc.Process(r.Context(), text)
	switch {
	case err == nil:
		return res, true
	case errors.Is(err, model.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case engine.IsAbort(err):
		writeError(w, http.StatusNotFound, model.ErrNoData.Error())
	default:
		if s.logger != nil {
			s.logger.Error("query failed", "text", text, "err", err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	return engine.Result{}, false
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	var list []model.Alert
	switch {
	case r.URL.Query().Get("since") != "":
		ts, err := time.Parse(time.RFC3339, r.URL.Query().Get("since"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		list = s.alerts.Since(ts)
	case r.URL.Query().Get("player") != "":
		list = s.alerts.ForPlayer(r.URL.Query().Get("player"))
	default:
		list = s.alerts.List(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": nonNilAlerts(list),
		"count":  len(list),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	all := s.metrics.GetAll()
	writeJSON(w, http.StatusOK, map[string]any{
		"totals":  s.metrics.Totals(),
		"players": all,
		"count":   len(all),
	})
}

func (s *Server) handlePlayerMetrics(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	summary, ok := s.metrics.Get(strings.ReplaceAll(player, "-", " "))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown player")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	var req struct {
		Target string `json:"target"`
	}
	_ = json.Unmarshal(body, &req)
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if target == "" {
		target = "all"
	}
	switch target {
	case "all":
		s.proc.Reset()
	case "alerts":
		s.alerts.Clear()
	case "metrics":
		s.metrics.Clear()
	default:
		writeError(w, http.StatusBadRequest, "unknown target")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if _, err := s.cfg.Reload(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.logger != nil {
		s.logger.Info("config reloaded", "path", s.cfg.Path())
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func nonNilRows(v []model.GameRow) []model.GameRow {
	if v == nil {
		return []model.GameRow{}
	}
	return v
}

func nonNilAlerts(v []model.Alert) []model.Alert {
	if v == nil {
		return []model.Alert{}
	}
	return v
}

func nonNilLines(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
