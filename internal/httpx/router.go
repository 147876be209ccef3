package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/AngelCh415/mailmetrics/internal/cache"
	"github.com/AngelCh415/mailmetrics/internal/ingest"
	"github.com/AngelCh415/mailmetrics/internal/opportunity"
	"github.com/AngelCh415/mailmetrics/internal/report"
	"github.com/AngelCh415/mailmetrics/internal/store"
	"github.com/AngelCh415/mailmetrics/internal/utils"
)

const maxBodyBytes = 32 << 20

type Deps struct {
	Log         *slog.Logger
	Reports     *report.Service
	Loader      *ingest.Loader
	Exporter    *ingest.Exporter
	Memo        *cache.Memo
	Metrics     *utils.Metrics
	CORSOrigins []string
	// Ready reports whether backing services answer; nil means always ready.
	Ready func(ctx context.Context) error
}

type api struct{ Deps }

func NewRouter(d Deps) http.Handler {
	if d.Memo == nil {
		d.Memo = cache.NewMemo(nil, d.Log, d.Metrics)
	}
	a := &api{d}

	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log, d.Metrics))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", a.ready)
	if d.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	mux.Route("/accounts/{account}", func(r chi.Router) {
		r.Put("/dataset", a.putDataset)
		r.Delete("/dataset", a.deleteDataset)
		r.Post("/ingest/run", a.runIngest)
		r.Post("/export", a.export)
		r.Post("/opportunities", a.opportunities)

		r.Get("/series", a.cached(func(account string, q report.Query, _ *http.Request) (any, error) {
			return a.Reports.Series(account, q)
		}))
		r.Get("/delta", a.cached(func(account string, q report.Query, _ *http.Request) (any, error) {
			return a.Reports.Delta(account, q)
		}))
		r.Get("/kpis", a.cached(func(account string, q report.Query, _ *http.Request) (any, error) {
			return a.Reports.Snapshot(account, q)
		}))
		r.Get("/flows", a.cached(func(account string, q report.Query, _ *http.Request) (any, error) {
			return a.Reports.FlowNames(account, q)
		}))
		r.Get("/flows/{name}/dropoff", a.cached(func(account string, q report.Query, r *http.Request) (any, error) {
			return a.Reports.DropOff(account, chi.URLParam(r, "name"), q)
		}))
		r.Get("/send-volume", a.cached(func(account string, q report.Query, _ *http.Request) (any, error) {
			return a.Reports.SendVolume(account, q)
		}))
	})

	return mux
}

func (a *api) ready(w http.ResponseWriter, r *http.Request) {
	if a.Ready != nil {
		if err := a.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
			return
		}
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}

type reportFunc func(account string, q report.Query, r *http.Request) (any, error)

// cached serves a GET report through the memo, keyed by the account's dataset
// version so a reload never serves stale answers.
func (a *api) cached(fn reportFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := chi.URLParam(r, "account")
		q, err := report.ParseQuery(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		version, err := a.Reports.DatasetVersion(account)
		if err != nil {
			writeError(w, err)
			return
		}
		key := cache.Key(account, version, r.URL.Path, r.URL.Query())
		body, err := a.Memo.Do(r.Context(), key, func() ([]byte, error) {
			v, err := fn(account, q, r)
			if err != nil {
				return nil, err
			}
			return json.MarshalIndent(v, "", " ")
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeRaw(w, http.StatusOK, body)
	}
}

func (a *api) putDataset(w http.ResponseWriter, r *http.Request) {
	var p ingest.Payload
	if err := decode(w, r, &p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad body: " + err.Error()})
		return
	}
	ds, err := a.Loader.Apply(chi.URLParam(r, "account"), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetInfo(ds))
}

func (a *api) deleteDataset(w http.ResponseWriter, r *http.Request) {
	if !a.Reports.Clear(chi.URLParam(r, "account")) {
		writeError(w, store.ErrNoDataset)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) runIngest(w http.ResponseWriter, r *http.Request) {
	ds, err := a.Loader.Run(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, datasetInfo(ds))
}

func (a *api) opportunities(w http.ResponseWriter, r *http.Request) {
	q, err := report.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Groups []opportunity.Group `json:"groups"`
	}
	if err := decode(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad body: " + err.Error()})
		return
	}
	sum, err := a.Reports.Opportunities(chi.URLParam(r, "account"), q, body.Groups)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *api) export(w http.ResponseWriter, r *http.Request) {
	q, err := report.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := a.Reports.Snapshot(chi.URLParam(r, "account"), q)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := a.Exporter.Export(r.Context(), snap)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exported_bytes": n, "version": snap.Version})
}

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, report.ErrBadQuery), errors.Is(err, ingest.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNoDataset):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func datasetInfo(ds store.Dataset) map[string]any {
	return map[string]any{
		"account":   ds.Account,
		"version":   ds.Version,
		"campaigns": len(ds.Campaigns),
		"flows":     len(ds.Flows),
		"earliest":  ds.Bounds.Earliest,
		"reference": ds.Bounds.Reference,
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

func writeRaw(w http.ResponseWriter, code int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}
