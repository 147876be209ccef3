package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/mailmetrics/internal/metrics"
	"github.com/AngelCh415/mailmetrics/internal/models"
	"github.com/AngelCh415/mailmetrics/internal/window"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func flatCampaigns(days int, revenue float64) []models.Campaign {
	out := make([]models.Campaign, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, models.Campaign{EmailEvent: models.EmailEvent{
			SentAt:     day0.AddDate(0, 0, i),
			EmailsSent: 1000,
			Revenue:    revenue,
		}})
	}
	return out
}

func resolverFor(set EventSet) window.Resolver {
	return window.NewResolver(window.BoundsOf(set.Campaigns, set.Flows, time.Now()))
}

func TestFlatRevenueHasNoChange(t *testing.T) {
	set := EventSet{Campaigns: flatCampaigns(60, 100)}
	d := OverPeriod(resolverFor(set), metrics.Revenue, "30d", set, Options{CompareMode: window.ComparePrevPeriod})

	require.True(t, d.Comparable)
	assert.Zero(t, d.ChangePercent)
	assert.True(t, d.IsPositive)
	assert.InDelta(t, 3000.0, d.CurrentValue, 1e-9)
	assert.InDelta(t, 3000.0, d.PreviousValue, 1e-9)
	require.NotNil(t, d.PreviousWindow)
	assert.Equal(t, day0, d.PreviousWindow.Start)
}

func TestDaytimeSendsStillCompare(t *testing.T) {
	campaigns := flatCampaigns(60, 100)
	for i := range campaigns {
		campaigns[i].SentAt = campaigns[i].SentAt.Add(10 * time.Hour)
	}
	set := EventSet{Campaigns: campaigns}
	d := OverPeriod(resolverFor(set), metrics.Revenue, "30d", set, Options{CompareMode: window.ComparePrevPeriod})

	require.True(t, d.Comparable)
	assert.Zero(t, d.ChangePercent)
	assert.InDelta(t, 3000.0, d.CurrentValue, 1e-9)
	assert.InDelta(t, 3000.0, d.PreviousValue, 1e-9)
	require.NotNil(t, d.PreviousWindow)
	assert.Equal(t, day0, d.PreviousWindow.Start)
}

func TestAllRangeShortCircuits(t *testing.T) {
	set := EventSet{Campaigns: flatCampaigns(800, 10)}
	for _, mode := range []window.CompareMode{window.CompareNone, window.ComparePrevPeriod, window.ComparePrevYear} {
		d := OverPeriod(resolverFor(set), metrics.Revenue, "all", set, Options{CompareMode: mode})
		assert.Zero(t, d.ChangePercent)
		assert.True(t, d.IsPositive)
		assert.False(t, d.Comparable)
		assert.Nil(t, d.PreviousWindow)
	}
}

func TestUncoveredCompareWindowIsSkipped(t *testing.T) {
	set := EventSet{Campaigns: flatCampaigns(40, 100)}
	d := OverPeriod(resolverFor(set), metrics.Revenue, "30d", set, Options{CompareMode: window.ComparePrevPeriod})
	assert.False(t, d.Comparable)
	assert.Zero(t, d.ChangePercent)
	assert.Nil(t, d.PreviousWindow)
	assert.InDelta(t, 3000.0, d.CurrentValue, 1e-9)
}

func TestGrowthAndDirection(t *testing.T) {
	campaigns := flatCampaigns(60, 100)
	for i := 30; i < 60; i++ {
		campaigns[i].Revenue = 150
		campaigns[i].SpamComplaintsCount = 1
	}
	set := EventSet{Campaigns: campaigns}
	r := resolverFor(set)
	opts := Options{CompareMode: window.ComparePrevPeriod}

	rev := OverPeriod(r, metrics.Revenue, "30d", set, opts)
	assert.InDelta(t, 50.0, rev.ChangePercent, 1e-9)
	assert.True(t, rev.IsPositive)

	// spam sube desde cero: +100% y es negativo
	spam := OverPeriod(r, metrics.SpamRate, "30d", set, opts)
	assert.InDelta(t, 100.0, spam.ChangePercent, 1e-9)
	assert.False(t, spam.IsPositive)
}

func TestFlowNameRestriction(t *testing.T) {
	flows := []models.FlowEmail{}
	for i := 0; i < 60; i++ {
		rev := 10.0
		if i >= 30 {
			rev = 5
		}
		flows = append(flows,
			models.FlowEmail{EmailEvent: models.EmailEvent{SentAt: day0.AddDate(0, 0, i), Revenue: rev}, FlowName: "welcome", SequencePosition: 1, Status: models.FlowLive},
			models.FlowEmail{EmailEvent: models.EmailEvent{SentAt: day0.AddDate(0, 0, i), Revenue: 1}, FlowName: "winback", SequencePosition: 1, Status: models.FlowLive},
		)
	}
	set := EventSet{Campaigns: flatCampaigns(60, 1000), Flows: flows}
	d := OverPeriod(resolverFor(set), metrics.Revenue, "30d", set, Options{FlowName: "welcome", CompareMode: window.ComparePrevPeriod})

	assert.InDelta(t, 150.0, d.CurrentValue, 1e-9)
	assert.InDelta(t, 300.0, d.PreviousValue, 1e-9)
	assert.InDelta(t, -50.0, d.ChangePercent, 1e-9)
	assert.False(t, d.IsPositive)
}

func TestChangePercent(t *testing.T) {
	assert.Zero(t, ChangePercent(0, 0))
	assert.Equal(t, 100.0, ChangePercent(5, 0))
	assert.InDelta(t, -25.0, ChangePercent(75, 100), 1e-9)
	assert.InDelta(t, 200.0, ChangePercent(10, -10), 1e-9)
}

func TestIsPositive(t *testing.T) {
	assert.True(t, IsPositive(metrics.BounceRate, -3))
	assert.False(t, IsPositive(metrics.UnsubscribeRate, 3))
	assert.True(t, IsPositive(metrics.OpenRate, 3))
	assert.False(t, IsPositive(metrics.ClickRate, -3))
	assert.True(t, IsPositive(metrics.Revenue, 0))
}
