package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/mailmetrics/internal/guidance"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "HTTP_TIMEOUT_SECONDS", "LOG_LEVEL", "REDIS_ADDR", "CACHE_TTL_SECONDS", "CORS_ORIGINS", "ENGINE_CONFIG"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 300*time.Second, cfg.CacheTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("CACHE_TTL_SECONDS", "nope")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("CAMPAIGNS_URL", "http://upstream/campaigns")

	cfg := FromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 300*time.Second, cfg.CacheTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "http://upstream/campaigns", cfg.CampaignsURL)
}

func TestLoadEngineEmptyPath(t *testing.T) {
	e, err := LoadEngine("")
	require.NoError(t, err)
	assert.Equal(t, DefaultEngine(), e)
}

func TestParseEngineOverlaysDefaults(t *testing.T) {
	e, err := ParseEngine([]byte(`
guidance:
  min_campaigns: 20
  efficiency_tiers:
    - {min_r: 0.5, efficiency: 0.9}
window:
  all_cap_days: 365
`))
	require.NoError(t, err)
	assert.Equal(t, 20, e.Guidance.MinCampaigns)
	assert.Equal(t, []guidance.Tier{{MinR: 0.5, Efficiency: 0.9}}, e.Guidance.EfficiencyTiers)
	assert.Equal(t, 500, e.Guidance.MinRecipients)
	assert.Equal(t, 365, e.Window.AllCapDays)
	assert.Equal(t, "30d", e.Window.DefaultRange)
	assert.Equal(t, 365, e.Opportunity.BaselineDays)
	assert.Len(t, e.WindowOptions(), 2)
}

func TestParseEngineRejectsBadValues(t *testing.T) {
	for _, doc := range []string{
		"guidance: {correlation_threshold: 1.5}",
		"guidance: {min_campaigns: 1}",
		"window: {all_cap_days: 0}",
		"opportunity: {baseline_days: -3}",
		"guidance: [not, a, map]",
	} {
		e, err := ParseEngine([]byte(doc))
		assert.Error(t, err, doc)
		assert.Equal(t, DefaultEngine(), e, doc)
	}
}

func TestLoadEngineFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("opportunity:\n  baseline_days: 180\n"), 0o600))

	e, err := LoadEngine(path)
	require.NoError(t, err)
	assert.Equal(t, 180, e.Opportunity.BaselineDays)

	_, err = LoadEngine(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
