package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AngelCh415/mailmetrics/internal/utils"
)

// maxUpstreamBytes caps a single upstream JSON document.
const maxUpstreamBytes = 64 << 20

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

var errEmptyURL = errors.New("empty url")

// StatusError is an upstream answer outside 2xx, with the head of its body.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %d: %s", e.Code, e.Body)
}

// Temporary is true for answers worth retrying: 5xx and 429.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// fetchJSON does one GET and decodes the body into dst. The caller's request
// id travels upstream so both logs line up.
func fetchJSON(ctx context.Context, c HTTPClient, url string, dst any) error {
	if url == "" {
		return errEmptyURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if id := utils.RID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUpstreamBytes)).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// GetJSONWithRetry retries transport errors and temporary upstream answers
// with backoff. A missing URL or a 4xx fails on the first attempt.
func GetJSONWithRetry(ctx context.Context, c HTTPClient, b utils.Backoff, url string, dst any) error {
	if url == "" {
		return errEmptyURL
	}
	var final error
	err := b.Do(ctx, func(int) error {
		err := fetchJSON(ctx, c, url, dst)
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			final = err
			return nil
		}
		return err
	})
	if final != nil {
		return final
	}
	return err
}
