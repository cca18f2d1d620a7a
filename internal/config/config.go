package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"statguard/internal/model"
)

type Config struct {
	LogLevel  string          `json:"log_level" yaml:"log_level"`
	LogFormat string          `json:"log_format" yaml:"log_format"`
	Source    SourceConfig    `json:"source" yaml:"source"`
	Window    WindowConfig    `json:"window" yaml:"window"`
	Detection DetectionConfig `json:"detection" yaml:"detection"`
	Render    RenderConfig    `json:"render" yaml:"render"`
	Telegram  TelegramConfig  `json:"telegram" yaml:"telegram"`
	API       APIConfig       `json:"api" yaml:"api"`
	Kafka     KafkaConfig     `json:"kafka" yaml:"kafka"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Alerts    AlertsConfig    `json:"alerts" yaml:"alerts"`
}

type SourceConfig struct {
	BaseURL          string        `json:"base_url" yaml:"base_url"`
	UserAgent        string        `json:"user_agent" yaml:"user_agent"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	FullGamePath     string        `json:"full_game_path" yaml:"full_game_path"`
	FirstQuarterPath string        `json:"first_quarter_path" yaml:"first_quarter_path"`
	MaxBodyBytes     int64         `json:"max_body_bytes" yaml:"max_body_bytes"`
}

type WindowConfig struct {
	DefaultGames int    `json:"default_games" yaml:"default_games"`
	VersusGames  int    `json:"versus_games" yaml:"versus_games"`
	Timezone     string `json:"timezone" yaml:"timezone"`
}

type DetectionConfig struct {
	MinGames int         `json:"min_games" yaml:"min_games"`
	Rules    RulesConfig `json:"rules" yaml:"rules"`
}

type RulesConfig struct {
	FullGame     []model.ThresholdRule `json:"full_game" yaml:"full_game"`
	FirstQuarter []model.ThresholdRule `json:"first_quarter" yaml:"first_quarter"`
}

type RenderConfig struct {
	FontPath     string `json:"font_path" yaml:"font_path"`
	BoldFontPath string `json:"bold_font_path" yaml:"bold_font_path"`
	Footer       string `json:"footer" yaml:"footer"`
}

type TelegramConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	Token       string        `json:"token" yaml:"token"`
	PollTimeout int           `json:"poll_timeout" yaml:"poll_timeout"`
	Cooldown    time.Duration `json:"cooldown" yaml:"cooldown"`

	// AllowedChats, when set, restricts the bot to these chat ids.
	AllowedChats []int64 `json:"allowed_chats,omitempty" yaml:"allowed_chats,omitempty"`
	BlockedChats []int64 `json:"blocked_chats,omitempty" yaml:"blocked_chats,omitempty"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type KafkaConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	Brokers      []string      `json:"brokers" yaml:"brokers"`
	RequestTopic string        `json:"request_topic" yaml:"request_topic"`
	ReplyTopic   string        `json:"reply_topic" yaml:"reply_topic"`
	GroupID      string        `json:"group_id" yaml:"group_id"`
	DedupeWindow time.Duration `json:"dedupe_window" yaml:"dedupe_window"`
}

type RedisConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	URL     string `json:"url" yaml:"url"`
	Stream  string `json:"stream" yaml:"stream"`
	MaxLen  int64  `json:"max_len" yaml:"max_len"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type MetricsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type AlertsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

func DefaultFullGameRules() []model.ThresholdRule {
	return []model.ThresholdRule{
		{Stat: model.StatPoints, Min: 25},
		{Stat: model.StatRebounds, Min: 7},
		{Stat: model.StatAssists, Min: 7},
		{Stat: model.StatThrees, Min: 3},
	}
}

// DefaultFirstQuarterRules scales the full-game table down to roughly a quarter of a game.
func DefaultFirstQuarterRules() []model.ThresholdRule {
	return []model.ThresholdRule{
		{Stat: model.StatPoints, Min: 6},
		{Stat: model.StatRebounds, Min: 2},
		{Stat: model.StatAssists, Min: 2},
		{Stat: model.StatThrees, Min: 3},
	}
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Source: SourceConfig{
			BaseURL:          "https://www.statmuse.com/nba/ask",
			UserAgent:        "Mozilla/5.0",
			Timeout:          15 * time.Second,
			FullGamePath:     "%s-gamelog",
			FirstQuarterPath: "%s-stats-1q-gamelog",
			MaxBodyBytes:     5 << 20,
		},
		Window: WindowConfig{DefaultGames: 10, VersusGames: 5, Timezone: "UTC"},
		Detection: DetectionConfig{
			MinGames: 7,
			Rules: RulesConfig{
				FullGame:     DefaultFullGameRules(),
				FirstQuarter: DefaultFirstQuarterRules(),
			},
		},
		Render:   RenderConfig{Footer: "CREATED BY 24"},
		Telegram: TelegramConfig{Enabled: false, PollTimeout: 60, Cooldown: 3 * time.Second},
		API:      APIConfig{Enabled: true, Addr: ":8081"},
		Kafka: KafkaConfig{
			Enabled:      false,
			RequestTopic: "statguard.requests",
			ReplyTopic:   "statguard.replies",
			GroupID:      "statguard",
			DedupeWindow: 10 * time.Minute,
		},
		Redis:   RedisConfig{Enabled: false, URL: "redis://localhost:6379", Stream: "statguard.alerts", MaxLen: 10000},
		Storage: StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:statguard.db?_pragma=busy_timeout(5000)"},
		Metrics: MetricsConfig{StoreLimit: 5000},
		Alerts:  AlertsConfig{StoreLimit: 1000},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overlays process environment on top of file settings.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := firstEnv("TELEGRAM_TOKEN", "TOKEN"); v != "" {
		cfg.Telegram.Token = v
		cfg.Telegram.Enabled = true
	}
	if v := os.Getenv("STATGUARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = def.Source.BaseURL
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = def.Source.UserAgent
	}
	if cfg.Source.FullGamePath == "" {
		cfg.Source.FullGamePath = def.Source.FullGamePath
	}
	if cfg.Source.FirstQuarterPath == "" {
		cfg.Source.FirstQuarterPath = def.Source.FirstQuarterPath
	}
	if cfg.Source.MaxBodyBytes <= 0 {
		cfg.Source.MaxBodyBytes = def.Source.MaxBodyBytes
	}
	if cfg.Window.DefaultGames <= 0 {
		cfg.Window.DefaultGames = def.Window.DefaultGames
	}
	if cfg.Window.VersusGames <= 0 {
		cfg.Window.VersusGames = def.Window.VersusGames
	}
	if cfg.Window.Timezone == "" {
		cfg.Window.Timezone = "UTC"
	}
	if cfg.Detection.MinGames <= 0 {
		cfg.Detection.MinGames = def.Detection.MinGames
	}
	if len(cfg.Detection.Rules.FullGame) == 0 {
		cfg.Detection.Rules.FullGame = DefaultFullGameRules()
	}
	if len(cfg.Detection.Rules.FirstQuarter) == 0 {
		cfg.Detection.Rules.FirstQuarter = DefaultFirstQuarterRules()
	}
	if cfg.Telegram.PollTimeout <= 0 {
		cfg.Telegram.PollTimeout = 60
	}
	if cfg.Metrics.StoreLimit <= 0 {
		cfg.Metrics.StoreLimit = 5000
	}
	if cfg.Alerts.StoreLimit <= 0 {
		cfg.Alerts.StoreLimit = 1000
	}
}

var knownStats = map[string]struct{}{
	model.StatPoints:        {},
	model.StatRebounds:      {},
	model.StatAssists:       {},
	model.StatFieldGoals:    {},
	model.StatFieldAttempts: {},
	model.StatThrees:        {},
	model.StatThreeAttempts: {},
	model.StatFouls:         {},
}

func Validate(cfg *Config) error {
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		return errors.New("telegram.token required when telegram.enabled is true")
	}
	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.RequestTopic == "" || cfg.Kafka.ReplyTopic == "" || cfg.Kafka.GroupID == "" {
			return errors.New("kafka requires brokers, request_topic, reply_topic, group_id")
		}
	}
	if cfg.Redis.Enabled && (cfg.Redis.URL == "" || cfg.Redis.Stream == "") {
		return errors.New("redis requires url and stream when enabled")
	}
	if !strings.Contains(cfg.Source.FullGamePath, "%s") || !strings.Contains(cfg.Source.FirstQuarterPath, "%s") {
		return errors.New("source paths must contain %s for the player slug")
	}
	if _, err := time.LoadLocation(cfg.Window.Timezone); err != nil {
		return fmt.Errorf("window.timezone: %w", err)
	}
	if err := validateRules("detection.rules.full_game", cfg.Detection.Rules.FullGame); err != nil {
		return err
	}
	return validateRules("detection.rules.first_quarter", cfg.Detection.Rules.FirstQuarter)
}

func validateRules(name string, rules []model.ThresholdRule) error {
	for i, r := range rules {
		if _, ok := knownStats[strings.ToUpper(r.Stat)]; !ok {
			return fmt.Errorf("%s[%d]: unknown stat %q", name, i, r.Stat)
		}
		if r.Min <= 0 {
			return fmt.Errorf("%s[%d]: min must be > 0", name, i)
		}
		if r.MinGames < 0 {
			return fmt.Errorf("%s[%d]: min_games must be >= 0", name, i)
		}
	}
	return nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c.Window.Timezone != "" {
		if loc, err := time.LoadLocation(c.Window.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

func (c *Config) RulesFor(mode model.Mode) []model.ThresholdRule {
	src := c.Detection.Rules.FullGame
	if mode == model.ModeFirstQuarter {
		src = c.Detection.Rules.FirstQuarter
	}
	out := make([]model.ThresholdRule, len(src))
	for i, r := range src {
		r.Stat = strings.ToUpper(strings.TrimSpace(r.Stat))
		out[i] = r
	}
	return out
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

// NewManager loads path, or serves DefaultConfig when path is empty.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path}
	if path == "" {
		cfg := DefaultConfig()
		ApplyEnv(cfg)
		if err := Validate(cfg); err != nil {
			return nil, err
		}
		m.cfg.Store(cfg)
		return m, nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	info, err := os.Stat(path)
	if err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

func NewStaticManager(cfg *Config) *Manager {
	m := &Manager{}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	if m.path == "" {
		return m.Get(), nil
	}
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) NeedsReload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
