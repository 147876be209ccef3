package report

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/AngelCh415/mailmetrics/internal/metrics"
	"github.com/AngelCh415/mailmetrics/internal/series"
	"github.com/AngelCh415/mailmetrics/internal/window"
)

var ErrBadQuery = errors.New("bad query")

// Query is the parsed form of the report query string. Range is kept as the
// raw token: unknown tokens resolve to the default range, they are not errors.
type Query struct {
	Metric      metrics.Key
	Range       string
	Granularity series.Granularity
	Compare     window.CompareMode
	Flow        string
	Limit       int
	Offset      int
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ParseQuery(v url.Values) (Query, error) {
	q := Query{
		Metric: metrics.Revenue,
		Range:  strings.TrimSpace(v.Get("range")),
		Flow:   strings.TrimSpace(v.Get("flow")),
		Limit:  atoiDef(v.Get("limit"), 0),
		Offset: atoiDef(v.Get("offset"), 0),
	}
	if s := v.Get("metric"); s != "" {
		k, ok := metrics.ParseKey(s)
		if !ok {
			return q, fmt.Errorf("%w: unknown metric %q", ErrBadQuery, s)
		}
		q.Metric = k
	}
	g, ok := series.ParseGranularity(v.Get("granularity"))
	if !ok {
		return q, fmt.Errorf("%w: unknown granularity %q", ErrBadQuery, v.Get("granularity"))
	}
	q.Granularity = g
	mode, ok := window.ParseCompareMode(norm(v.Get("compare")))
	if !ok {
		return q, fmt.Errorf("%w: unknown compare mode %q", ErrBadQuery, v.Get("compare"))
	}
	q.Compare = mode
	return q, nil
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}
