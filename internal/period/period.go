package period

import (
	"math"
	"strings"

	"github.com/AngelCh415/mailmetrics/internal/metrics"
	"github.com/AngelCh415/mailmetrics/internal/models"
	"github.com/AngelCh415/mailmetrics/internal/window"
)

// EventSet is the set a delta is computed over. When FlowName is set only
// flow sends of that flow are considered.
type EventSet struct {
	Campaigns []models.Campaign
	Flows     []models.FlowEmail
}

type Options struct {
	FlowName    string
	CompareMode window.CompareMode
}

// OverPeriod compares key over the window of rangeToken with its comparison
// window. "all", CompareNone and comparison windows not covered by data give
// a zero-change result with Comparable=false.
func OverPeriod(r window.Resolver, key metrics.Key, rangeToken string, set EventSet, opts Options) models.PeriodDelta {
	events := set.events(opts.FlowName)
	cur := r.Resolve(rangeToken)
	current := metrics.Value(key, metrics.AggregateIn(events, cur))

	if window.IsAll(rangeToken) || !r.WindowAvailable(cur, opts.CompareMode) {
		return models.PeriodDelta{IsPositive: true, CurrentValue: current}
	}

	prevWin, _ := window.Compare(cur, opts.CompareMode)
	previous := metrics.Value(key, metrics.AggregateIn(events, prevWin))
	change := ChangePercent(current, previous)
	return models.PeriodDelta{
		ChangePercent:  change,
		IsPositive:     IsPositive(key, change),
		CurrentValue:   current,
		PreviousValue:  previous,
		PreviousWindow: &prevWin,
		Comparable:     true,
	}
}

// ChangePercent is (current-previous)/|previous|*100; from a zero previous it
// is 0 when nothing changed and ±100 otherwise.
func ChangePercent(current, previous float64) float64 {
	if previous == 0 {
		switch {
		case current > 0:
			return 100
		case current < 0:
			return -100
		}
		return 0
	}
	return (current - previous) / math.Abs(previous) * 100
}

// IsPositive reads a change through the metric's direction: for unsubscribe,
// spam and bounce rates a decrease is the good outcome.
func IsPositive(key metrics.Key, change float64) bool {
	if key.LowerIsBetter() {
		return change <= 0
	}
	return change >= 0
}

func (s EventSet) events(flowName string) []models.EmailEvent {
	flowName = strings.TrimSpace(flowName)
	if flowName == "" {
		return models.Events(s.Campaigns, s.Flows)
	}
	out := make([]models.EmailEvent, 0, len(s.Flows))
	for _, f := range s.Flows {
		if f.FlowName == flowName {
			out = append(out, f.EmailEvent)
		}
	}
	return out
}
