package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AngelCh415/mailmetrics/internal/guidance"
	"github.com/AngelCh415/mailmetrics/internal/opportunity"
	"github.com/AngelCh415/mailmetrics/internal/window"
)

type Config struct {
	CampaignsURL string
	FlowsURL     string
	SinkURL      string
	SinkSecret   string
	Port         string
	HTTPTimeout  time.Duration
	LogLevel     slog.Level
	RedisAddr    string
	CacheTTL     time.Duration
	CORSOrigins  []string
	EnginePath   string
}

func FromEnv() Config {
	// .env es opcional
	_ = godotenv.Load()

	return Config{
		CampaignsURL: os.Getenv("CAMPAIGNS_URL"),
		FlowsURL:     os.Getenv("FLOWS_URL"),
		SinkURL:      os.Getenv("SINK_URL"),
		SinkSecret:   os.Getenv("SINK_SECRET"),
		Port:         envOr("PORT", "8080"),
		HTTPTimeout:  seconds("HTTP_TIMEOUT_SECONDS", 15),
		LogLevel:     level(os.Getenv("LOG_LEVEL")),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		CacheTTL:     seconds("CACHE_TTL_SECONDS", 300),
		CORSOrigins:  csv(envOr("CORS_ORIGINS", "*")),
		EnginePath:   os.Getenv("ENGINE_CONFIG"),
	}
}

type WindowConfig struct {
	AllCapDays   int    `yaml:"all_cap_days"`
	DefaultRange string `yaml:"default_range"`
}

type OpportunityConfig struct {
	BaselineDays int `yaml:"baseline_days"`
}

// Engine holds the tunable heuristics of the analytics engine.
type Engine struct {
	Guidance    guidance.Thresholds `yaml:"guidance"`
	Window      WindowConfig        `yaml:"window"`
	Opportunity OpportunityConfig   `yaml:"opportunity"`
}

func DefaultEngine() Engine {
	return Engine{
		Guidance:    guidance.DefaultThresholds(),
		Window:      WindowConfig{AllCapDays: window.DefaultAllCap, DefaultRange: window.DefaultRange},
		Opportunity: OpportunityConfig{BaselineDays: opportunity.DefaultBaselineDays},
	}
}

// WindowOptions turns the window section into resolver options.
func (e Engine) WindowOptions() []window.Option {
	return []window.Option{window.WithAllCap(e.Window.AllCapDays), window.WithDefaultRange(e.Window.DefaultRange)}
}

// LoadEngine reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func LoadEngine(path string) (Engine, error) {
	e := DefaultEngine()
	if path == "" {
		return e, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return e, fmt.Errorf("read engine config: %w", err)
	}
	return ParseEngine(b)
}

func ParseEngine(b []byte) (Engine, error) {
	e := DefaultEngine()
	if err := yaml.Unmarshal(b, &e); err != nil {
		return DefaultEngine(), fmt.Errorf("parse engine config: %w", err)
	}
	if err := e.validate(); err != nil {
		return DefaultEngine(), err
	}
	return e, nil
}

func (e Engine) validate() error {
	g := e.Guidance
	switch {
	case g.MinCampaigns < 2:
		return fmt.Errorf("guidance.min_campaigns must be >= 2, got %d", g.MinCampaigns)
	case g.CorrelationThreshold < 0 || g.CorrelationThreshold > 1:
		return fmt.Errorf("guidance.correlation_threshold must be in [0,1], got %v", g.CorrelationThreshold)
	case g.VolumeIncrease < 0:
		return fmt.Errorf("guidance.volume_increase must be >= 0, got %v", g.VolumeIncrease)
	case e.Window.AllCapDays < 1:
		return fmt.Errorf("window.all_cap_days must be >= 1, got %d", e.Window.AllCapDays)
	case e.Opportunity.BaselineDays < 1:
		return fmt.Errorf("opportunity.baseline_days must be >= 1, got %d", e.Opportunity.BaselineDays)
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func seconds(k string, def int) time.Duration {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return time.Duration(def) * time.Second
}

func level(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func csv(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
