package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/mailmetrics/internal/metrics"
	"github.com/AngelCh415/mailmetrics/internal/models"
	"github.com/AngelCh415/mailmetrics/internal/window"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func span(from, to time.Time) models.DateWindow {
	return models.DateWindow{Start: window.StartOfDay(from), End: window.EndOfDay(to)}
}

// dailyCampaigns genera una campaña por día con ingresos fijos.
func dailyCampaigns(from time.Time, days int, revenue float64) []models.Campaign {
	out := make([]models.Campaign, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, models.Campaign{
			EmailEvent: models.EmailEvent{
				SentAt:      from.AddDate(0, 0, i),
				EmailsSent:  1000,
				UniqueOpens: 300,
				Revenue:     revenue,
			},
			CampaignName: "daily",
		})
	}
	return out
}

func TestBoundaries(t *testing.T) {
	tests := []struct {
		name string
		w    models.DateWindow
		g    Granularity
		want []time.Time
	}{
		{
			name: "daily",
			w:    span(date(2025, 3, 1), date(2025, 3, 3)),
			g:    Daily,
			want: []time.Time{date(2025, 3, 1), date(2025, 3, 2), date(2025, 3, 3)},
		},
		{
			name: "weekly starts on monday",
			w:    span(date(2025, 3, 5), date(2025, 3, 18)),
			g:    Weekly,
			want: []time.Time{date(2025, 3, 3), date(2025, 3, 10), date(2025, 3, 17)},
		},
		{
			name: "weekly from a sunday",
			w:    span(date(2025, 3, 9), date(2025, 3, 10)),
			g:    Weekly,
			want: []time.Time{date(2025, 3, 3), date(2025, 3, 10)},
		},
		{
			name: "monthly calendar months",
			w:    span(date(2025, 1, 15), date(2025, 3, 10)),
			g:    Monthly,
			want: []time.Time{date(2025, 1, 1), date(2025, 2, 1), date(2025, 3, 1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Boundaries(tt.w, tt.g))
		})
	}
}

func TestBuildEmitsEveryBucket(t *testing.T) {
	w := span(date(2025, 1, 1), date(2025, 1, 30))

	s := Build(nil, nil, metrics.OpenRate, w, Daily)
	require.Len(t, s, 30)
	for _, b := range s {
		assert.Zero(t, b.Value)
		assert.False(t, math.IsNaN(b.Value))
	}

	sparse := []models.Campaign{{EmailEvent: models.EmailEvent{SentAt: date(2025, 1, 10), EmailsSent: 10, UniqueOpens: 5}}}
	s = Build(sparse, nil, metrics.OpenRate, w, Daily)
	require.Len(t, s, 30)
	assert.InDelta(t, 50.0, s[9].Value, 1e-9)
	assert.Zero(t, s[8].Value)
	assert.Zero(t, s[10].Value)
}

func TestBuildMergesCampaignsAndFlows(t *testing.T) {
	w := span(date(2025, 2, 1), date(2025, 2, 28))
	campaigns := []models.Campaign{
		{EmailEvent: models.EmailEvent{SentAt: date(2025, 2, 3).Add(9 * time.Hour), Revenue: 100}},
		{EmailEvent: models.EmailEvent{SentAt: date(2025, 1, 31), Revenue: 1000}},
	}
	flows := []models.FlowEmail{
		{EmailEvent: models.EmailEvent{SentAt: date(2025, 2, 4), Revenue: 25}, FlowName: "welcome", SequencePosition: 1, Status: models.FlowLive},
		{EmailEvent: models.EmailEvent{SentAt: date(2025, 2, 27).Add(23 * time.Hour), Revenue: 5}, FlowName: "welcome", SequencePosition: 2, Status: models.FlowLive},
	}

	s := Build(campaigns, flows, metrics.Revenue, w, Weekly)
	require.Len(t, s, 5)
	assert.Equal(t, date(2025, 1, 27), s[0].BucketStart)
	// la campaña del 31 de enero queda fuera de la ventana
	assert.Zero(t, s[0].Value)
	assert.InDelta(t, 125.0, s[1].Value, 1e-9)
	assert.InDelta(t, 5.0, s[4].Value, 1e-9)
}

func TestBuildWithCompareAlignsBuckets(t *testing.T) {
	start := date(2025, 1, 1)
	campaigns := dailyCampaigns(start, 60, 100)
	flows := []models.FlowEmail{}
	b := window.BoundsOf(campaigns, flows, time.Now())
	r := window.NewResolver(b)
	w := r.Resolve("30d")

	pair := BuildWithCompare(r, campaigns, flows, metrics.Revenue, w, Daily, window.ComparePrevPeriod)
	require.Len(t, pair.Primary, 30)
	require.Len(t, pair.Compare, 30)
	for i := range pair.Primary {
		assert.InDelta(t, 100.0, pair.Primary[i].Value, 1e-9)
		assert.InDelta(t, 100.0, pair.Compare[i].Value, 1e-9)
		assert.Equal(t, pair.Primary[i].BucketStart.AddDate(0, 0, -30), pair.Compare[i].BucketStart)
	}
}

func TestBuildWithCompareUnavailable(t *testing.T) {
	campaigns := dailyCampaigns(date(2025, 1, 1), 45, 100)
	r := window.NewResolver(window.BoundsOf(campaigns, nil, time.Now()))
	w := r.Resolve("30d")

	pair := BuildWithCompare(r, campaigns, nil, metrics.Revenue, w, Daily, window.ComparePrevPeriod)
	assert.Len(t, pair.Primary, 30)
	assert.Nil(t, pair.Compare)

	pair = BuildWithCompare(r, campaigns, nil, metrics.Revenue, w, Daily, window.ComparePrevYear)
	assert.Nil(t, pair.Compare)
}

func TestCompareNeverChangesPrimary(t *testing.T) {
	campaigns := dailyCampaigns(date(2024, 1, 1), 500, 42)
	r := window.NewResolver(window.BoundsOf(campaigns, nil, time.Now()))

	for _, g := range []Granularity{Daily, Weekly, Monthly} {
		w := r.Resolve("90d")
		plain := BuildWithCompare(r, campaigns, nil, metrics.Revenue, w, g, window.CompareNone)
		assert.Nil(t, plain.Compare)
		for _, mode := range []window.CompareMode{window.ComparePrevPeriod, window.ComparePrevYear} {
			withCmp := BuildWithCompare(r, campaigns, nil, metrics.Revenue, w, g, mode)
			assert.Equal(t, plain.Primary, withCmp.Primary, "granularity %s mode %s", g, mode)
			assert.Len(t, withCmp.Compare, len(plain.Primary))
		}
	}
}

func TestParseGranularity(t *testing.T) {
	g, ok := ParseGranularity("Weekly")
	assert.True(t, ok)
	assert.Equal(t, Weekly, g)

	g, ok = ParseGranularity("")
	assert.True(t, ok)
	assert.Equal(t, Daily, g)

	_, ok = ParseGranularity("hourly")
	assert.False(t, ok)
}
