package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AngelCh415/mailmetrics/internal/utils"
)

func TestHTTPClientHandlesTimeout(t *testing.T) {
	// servidor fake que se tarda más del timeout
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	var v []CampaignRecord
	err := fetchJSON(context.Background(), NewHTTPClient(200*time.Millisecond), srv.URL, &v)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Fatalf("timeout reported as status %d", se.Code)
	}
}

func TestFetchJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var v []CampaignRecord
	err := fetchJSON(context.Background(), NewHTTPClient(2*time.Second), srv.URL, &v)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusInternalServerError || !se.Temporary() {
		t.Fatalf("unexpected status error: %+v", se)
	}
	if se.Body != "internal error\n" {
		t.Fatalf("unexpected body %q", se.Body)
	}
	if err := fetchJSON(context.Background(), NewHTTPClient(time.Second), "", &v); err != errEmptyURL {
		t.Fatalf("expected errEmptyURL, got %v", err)
	}
}

func TestRetryStopsOnClientError(t *testing.T) {
	for _, tt := range []struct {
		code  int
		calls int32
	}{
		{http.StatusNotFound, 1},
		{http.StatusTooManyRequests, 3},
		{http.StatusBadGateway, 3},
	} {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(tt.code)
		}))

		var v []CampaignRecord
		err := GetJSONWithRetry(context.Background(), NewHTTPClient(time.Second), utils.NewBackoff(time.Millisecond, 2), srv.URL, &v)
		srv.Close()

		var se *StatusError
		if !errors.As(err, &se) || se.Code != tt.code {
			t.Fatalf("code %d: expected StatusError, got %v", tt.code, err)
		}
		if got := atomic.LoadInt32(&calls); got != tt.calls {
			t.Fatalf("code %d: expected %d calls, got %d", tt.code, tt.calls, got)
		}
	}
}

func TestFetchJSONForwardsRequestID(t *testing.T) {
	var got string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		w.Write([]byte("[]"))
	}))
	defer upstream.Close()

	h := utils.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v []CampaignRecord
		if err := fetchJSON(r.Context(), NewHTTPClient(time.Second), upstream.URL, &v); err != nil {
			t.Errorf("fetch: %v", err)
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "rid-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "rid-123" {
		t.Fatalf("expected forwarded request id, got %q", got)
	}
}
