package ingest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AngelCh415/mailmetrics/internal/config"
	"github.com/AngelCh415/mailmetrics/internal/store"
	"github.com/AngelCh415/mailmetrics/internal/utils"
)

// Loader pulls an account's exports from upstream and swaps them into the
// store in one step.
type Loader struct {
	c   HTTPClient
	st  *store.MemoryStore
	log *slog.Logger
	cfg config.Config
	b   utils.Backoff
	m   *utils.Metrics
}

func NewLoader(c HTTPClient, st *store.MemoryStore, log *slog.Logger, cfg config.Config, m *utils.Metrics) *Loader {
	return &Loader{c: c, st: st, log: log, cfg: cfg, b: utils.NewBackoff(100*time.Millisecond, 2), m: m}
}

// WithBackoff replaces the retry policy.
func (l *Loader) WithBackoff(b utils.Backoff) *Loader {
	l.b = b
	return l
}

// Run fetches campaigns (required) and flows (optional when FLOWS_URL is
// empty). Bad upstream rows are dropped and logged; the dataset is only
// replaced when both fetches succeed.
func (l *Loader) Run(ctx context.Context, account string) (store.Dataset, error) {
	var p Payload
	if err := GetJSONWithRetry(ctx, l.c, l.b, accountURL(l.cfg.CampaignsURL, account), &p.Campaigns); err != nil {
		return store.Dataset{}, fmt.Errorf("fetch campaigns: %w", err)
	}
	if l.cfg.FlowsURL != "" {
		if err := GetJSONWithRetry(ctx, l.c, l.b, accountURL(l.cfg.FlowsURL, account), &p.Flows); err != nil {
			return store.Dataset{}, fmt.Errorf("fetch flows: %w", err)
		}
	}

	batch, _ := Convert(p, false)
	if batch.Skipped > 0 {
		l.log.Warn("ingest skipped records", slog.String("account", account), slog.Int("skipped", batch.Skipped))
	}
	ds := l.st.Replace(account, batch.Campaigns, batch.Flows)
	l.m.DatasetReplaced("pull")
	l.log.Info("ingest complete",
		slog.String("account", account),
		slog.Int("campaigns", len(ds.Campaigns)),
		slog.Int("flows", len(ds.Flows)),
		slog.Uint64("version", ds.Version))
	return ds, nil
}

// Apply loads a pushed payload. Any invalid record rejects the whole payload.
func (l *Loader) Apply(account string, p Payload) (store.Dataset, error) {
	batch, err := Convert(p, true)
	if err != nil {
		return store.Dataset{}, err
	}
	ds := l.st.Replace(account, batch.Campaigns, batch.Flows)
	l.m.DatasetReplaced("push")
	l.log.Info("dataset replaced", slog.String("account", account), slog.Uint64("version", ds.Version))
	return ds, nil
}

// accountURL fills an optional {account} placeholder.
func accountURL(raw, account string) string {
	return strings.ReplaceAll(raw, "{account}", url.PathEscape(account))
}

var ErrSinkNotConfigured = errors.New("sink not configured")

// Exporter posts JSON documents to the sink signed with HMAC-SHA256 of the
// body in X-Signature.
type Exporter struct {
	c   HTTPClient
	cfg config.Config
}

func NewExporter(c HTTPClient, cfg config.Config) *Exporter {
	return &Exporter{c: c, cfg: cfg}
}

// Export returns the number of bytes delivered.
func (e *Exporter) Export(ctx context.Context, payload any) (int, error) {
	if e.cfg.SinkURL == "" || e.cfg.SinkSecret == "" {
		return 0, ErrSinkNotConfigured
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.SinkURL, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", Sign(e.cfg.SinkSecret, b))
	resp, err := e.c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("export sink non-2xx: %d", resp.StatusCode)
	}
	return len(b), nil
}

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
