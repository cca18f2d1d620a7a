package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"statguard/internal/alerts"
	"statguard/internal/config"
	"statguard/internal/ingest"
	"statguard/internal/metrics"
	"statguard/internal/model"
	"statguard/internal/parser"
	"statguard/internal/render"
	"statguard/internal/storage"
)

type Fetcher interface {
	Fetch(ctx context.Context, cfg config.SourceConfig, q model.Query) (model.Table, error)
}

type Renderer interface {
	Render(spec render.Spec) ([]byte, error)
}

type Publisher interface {
	PublishAlerts(ctx context.Context, alerts []model.Alert) error
}

// Result is everything one query produced.
type Result struct {
	Query  model.Query     `json:"query"`
	Title  string          `json:"title"`
	Rows   []model.GameRow `json:"rows"`
	Alerts []model.Alert   `json:"alerts"`
	Lines  []string        `json:"lines"`
	Image  []byte          `json:"-"`
}

// Empty reports whether no game survived the window.
func (r Result) Empty() bool {
	return len(r.Rows) == 0
}

// Message is the chat alert text, or "" when nothing was cleared.
func (r Result) Message() string {
	if len(r.Lines) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 **%s HAS CLEARED IN THE %s:**", strings.ToUpper(r.Query.Player), r.Query.Mode.Label())
	for _, line := range r.Lines {
		b.WriteString("\n**")
		b.WriteString(line)
		b.WriteString("**")
	}
	return b.String()
}

type Engine struct {
	cfg       *config.Manager
	fetcher   Fetcher
	renderer  Renderer
	logger    *slog.Logger
	metrics   *metrics.Store
	alerts    *alerts.Store
	store     storage.Store
	publisher Publisher
	now       func() time.Time
}

func NewEngine(cfg *config.Manager, fetcher Fetcher, renderer Renderer, logger *slog.Logger, metricsStore *metrics.Store, alertsStore *alerts.Store, store storage.Store) *Engine {
	return &Engine{
		cfg:      cfg,
		fetcher:  fetcher,
		renderer: renderer,
		logger:   logger,
		metrics:  metricsStore,
		alerts:   alertsStore,
		store:    store,
		now:      time.Now,
	}
}

func (e *Engine) SetPublisher(p Publisher) {
	e.publisher = p
}

func (e *Engine) Config() *config.Config {
	return e.cfg.Get()
}

// Process parses free text and runs it through the pipeline.
func (e *Engine) Process(ctx context.Context, text string) (Result, error) {
	q, err := ingest.ParseRequest(text, e.cfg.Get().Window)
	if err != nil {
		return Result{}, err
	}
	return e.ProcessQuery(ctx, q)
}

// ProcessQuery fetches, parses, windows, evaluates and renders one query.
// Only fetch failures and missing data abort; an empty window still renders.
func (e *Engine) ProcessQuery(ctx context.Context, q model.Query) (Result, error) {
	cfg := e.cfg.Get()
	loc := cfg.Location()
	now := e.now().In(loc)
	res := Result{Query: q, Title: ingest.Title(q)}

	table, err := e.fetcher.Fetch(ctx, cfg.Source, q)
	if err != nil {
		e.record(ctx, q, now, res, outcomeFor(err))
		return res, err
	}
	rows, err := parser.NewParser(loc).Parse(table)
	if err != nil {
		e.record(ctx, q, now, res, outcomeFor(err))
		return res, err
	}

	ruleTable := cfg.RulesFor(q.Mode)
	res.Rows = Window(rows, q.Window, now)
	res.Alerts = Evaluate(res.Rows, ruleTable, cfg.Detection.MinGames)
	for i := range res.Alerts {
		a := &res.Alerts[i]
		a.ID = uuid.NewString()
		a.Timestamp = now.UTC()
		a.Player = q.Player
		a.Mode = q.Mode
		a.Opponent = q.Opponent
		res.Lines = append(res.Lines, a.Line())
	}

	img, err := e.renderer.Render(render.Spec{
		Title:  res.Title,
		Mode:   q.Mode,
		Rows:   res.Rows,
		Rules:  ruleTable,
		Footer: cfg.Render.Footer,
	})
	if err != nil {
		// Alerts were never delivered, so only the query itself is recorded.
		failed := res
		failed.Alerts, failed.Lines = nil, nil
		e.record(ctx, q, now, failed, model.OutcomeRenderFailed)
		return res, fmt.Errorf("render: %w", err)
	}
	res.Image = img

	outcome := model.OutcomeOK
	if res.Empty() {
		outcome = model.OutcomeEmpty
	}
	e.record(ctx, q, now, res, outcome)
	if e.logger != nil {
		e.logger.Info("query processed",
			"player", q.Player,
			"mode", q.Mode,
			"opponent", q.Opponent,
			"parsed_rows", len(rows),
			"rows", len(res.Rows),
			"alerts", len(res.Alerts),
		)
	}
	return res, nil
}

// record feeds the operational side channels. Their failures never fail the query.
func (e *Engine) record(ctx context.Context, q model.Query, now time.Time, res Result, outcome string) {
	summary := model.QuerySummary{
		Timestamp: now.UTC(),
		Player:    q.Player,
		Mode:      q.Mode,
		Opponent:  q.Opponent,
		Rows:      len(res.Rows),
		Alerts:    len(res.Alerts),
		Outcome:   outcome,
	}
	if e.metrics != nil {
		e.metrics.Record(summary)
	}
	if e.alerts != nil {
		e.alerts.Add(res.Alerts...)
	}
	if len(res.Alerts) > 0 && e.logger != nil {
		for _, a := range res.Alerts {
			e.logger.Warn("threshold cleared",
				"player", a.Player,
				"mode", a.Mode,
				"stat", a.Stat,
				"threshold", a.Threshold,
				"count", a.Count,
				"window", a.Window,
			)
		}
	}
	if e.store != nil {
		if err := e.store.SaveAlerts(ctx, res.Alerts); err != nil && e.logger != nil {
			e.logger.Warn("audit alerts failed", "err", err)
		}
		if err := e.store.SaveQuery(ctx, summary); err != nil && e.logger != nil {
			e.logger.Warn("audit query failed", "err", err)
		}
	}
	if e.publisher != nil && len(res.Alerts) > 0 {
		if err := e.publisher.PublishAlerts(ctx, res.Alerts); err != nil && e.logger != nil {
			e.logger.Warn("alert publish failed", "err", err)
		}
	}
}

func outcomeFor(err error) string {
	if errors.Is(err, model.ErrNoData) {
		return model.OutcomeNoData
	}
	return model.OutcomeFetchFailed
}

// Reset clears in-memory alerts and query metrics.
func (e *Engine) Reset() {
	if e.alerts != nil {
		e.alerts.Clear()
	}
	if e.metrics != nil {
		e.metrics.Clear()
	}
}

// IsAbort reports whether err means the query produced no data to show.
func IsAbort(err error) bool {
	return errors.Is(err, model.ErrFetchFailed) || errors.Is(err, model.ErrNoData)
}
