package series

import (
	"sort"
	"strings"
	"time"

	"github.com/AngelCh415/mailmetrics/internal/metrics"
	"github.com/AngelCh415/mailmetrics/internal/models"
	"github.com/AngelCh415/mailmetrics/internal/window"
)

type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

func ParseGranularity(s string) (Granularity, bool) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Daily, Weekly, Monthly:
		return g, true
	case "":
		return Daily, true
	}
	return "", false
}

// Boundaries returns the start of every bucket spanning w, in order. Weekly
// buckets start on the Monday of w's first week, monthly ones on the 1st.
func Boundaries(w models.DateWindow, g Granularity) []time.Time {
	var out []time.Time
	for cur := truncate(w.Start, g); !cur.After(w.End); cur = advance(cur, g) {
		out = append(out, cur)
	}
	return out
}

func truncate(t time.Time, g Granularity) time.Time {
	d := window.StartOfDay(t)
	switch g {
	case Weekly:
		wd := int(d.Weekday())
		if wd == 0 {
			wd = 7
		}
		return d.AddDate(0, 0, -(wd - 1))
	case Monthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	}
	return d
}

func advance(t time.Time, g Granularity) time.Time {
	switch g {
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// Build buckets the campaign and flow sends inside w and evaluates key per
// bucket. Every boundary yields a bucket, empty ones with value 0.
func Build(campaigns []models.Campaign, flows []models.FlowEmail, key metrics.Key, w models.DateWindow, g Granularity) models.MetricSeries {
	return FromEvents(models.Events(campaigns, flows), key, w, g)
}

func FromEvents(events []models.EmailEvent, key metrics.Key, w models.DateWindow, g Granularity) models.MetricSeries {
	return bucketize(within(events, w), key, Boundaries(w, g))
}

// BuildWithCompare builds the primary series over w and, when mode is set and
// the comparison window is covered by data, a compare series whose bucket i
// lines up with primary bucket i.
func BuildWithCompare(r window.Resolver, campaigns []models.Campaign, flows []models.FlowEmail, key metrics.Key, w models.DateWindow, g Granularity, mode window.CompareMode) models.SeriesPair {
	events := models.Events(campaigns, flows)
	starts := Boundaries(w, g)
	pair := models.SeriesPair{Primary: bucketize(within(events, w), key, starts)}

	if mode == window.CompareNone || !r.WindowAvailable(w, mode) {
		return pair
	}
	cw, _ := window.Compare(w, mode)
	n := window.CompareOffsetDays(w, mode)
	shifted := make([]time.Time, len(starts))
	for i, s := range starts {
		shifted[i] = s.AddDate(0, 0, -n)
	}
	pair.Compare = bucketize(within(events, cw), key, shifted)
	return pair
}

func within(events []models.EmailEvent, w models.DateWindow) []models.EmailEvent {
	out := make([]models.EmailEvent, 0, len(events))
	for _, e := range events {
		if w.Contains(e.SentAt) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out
}

// bucketize expects events sorted and not earlier than starts[0]; the last
// bucket takes everything that remains.
func bucketize(events []models.EmailEvent, key metrics.Key, starts []time.Time) models.MetricSeries {
	out := make(models.MetricSeries, len(starts))
	j := 0
	for i, s := range starts {
		var tot metrics.Totals
		last := i == len(starts)-1
		for j < len(events) && (last || events[j].SentAt.Before(starts[i+1])) {
			tot.Add(events[j])
			j++
		}
		out[i] = models.MetricBucket{BucketStart: s, Value: metrics.Value(key, tot)}
	}
	return out
}
