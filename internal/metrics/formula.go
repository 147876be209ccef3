package metrics

import (
	"strings"

	"github.com/AngelCh415/mailmetrics/internal/models"
)

type Key string

const (
	Revenue         Key = "revenue"
	AvgOrderValue   Key = "avgOrderValue"
	RevenuePerEmail Key = "revenuePerEmail"
	OpenRate        Key = "openRate"
	ClickRate       Key = "clickRate"
	ClickToOpenRate Key = "clickToOpenRate"
	ConversionRate  Key = "conversionRate"
	UnsubscribeRate Key = "unsubscribeRate"
	SpamRate        Key = "spamRate"
	BounceRate      Key = "bounceRate"
	EmailsSent      Key = "emailsSent"
	TotalOrders     Key = "totalOrders"
)

var Keys = []Key{
	Revenue, AvgOrderValue, RevenuePerEmail, OpenRate, ClickRate, ClickToOpenRate,
	ConversionRate, UnsubscribeRate, SpamRate, BounceRate, EmailsSent, TotalOrders,
}

var keyIndex = func() map[string]Key {
	m := make(map[string]Key, len(Keys))
	for _, k := range Keys {
		m[strings.ToLower(string(k))] = k
	}
	return m
}()

// ParseKey is case-insensitive.
func ParseKey(s string) (Key, bool) {
	k, ok := keyIndex[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

// LowerIsBetter marks the rates where a decrease is good news.
func (k Key) LowerIsBetter() bool {
	switch k {
	case UnsubscribeRate, SpamRate, BounceRate:
		return true
	}
	return false
}

type Totals struct {
	Revenue      float64 `json:"revenue"`
	EmailsSent   int     `json:"emails_sent"`
	TotalOrders  int     `json:"total_orders"`
	UniqueOpens  int     `json:"unique_opens"`
	UniqueClicks int     `json:"unique_clicks"`
	Unsubscribes int     `json:"unsubscribes"`
	Spam         int     `json:"spam"`
	Bounces      int     `json:"bounces"`
	Count        int     `json:"count"`
}

func (t *Totals) Add(e models.EmailEvent) {
	t.Revenue += e.Revenue
	t.EmailsSent += e.EmailsSent
	t.TotalOrders += e.TotalOrders
	t.UniqueOpens += e.UniqueOpens
	t.UniqueClicks += e.UniqueClicks
	t.Unsubscribes += e.UnsubscribesCount
	t.Spam += e.SpamComplaintsCount
	t.Bounces += e.BouncesCount
	t.Count++
}

func Aggregate(events []models.EmailEvent) Totals {
	var t Totals
	for _, e := range events {
		t.Add(e)
	}
	return t
}

// AggregateIn sums only the events whose SentAt falls inside w.
func AggregateIn(events []models.EmailEvent, w models.DateWindow) Totals {
	var t Totals
	for _, e := range events {
		if w.Contains(e.SentAt) {
			t.Add(e)
		}
	}
	return t
}

// Value computes a metric from totals. Ratios with a zero denominator are 0;
// percentages are not clamped.
func Value(k Key, t Totals) float64 {
	sent := float64(t.EmailsSent)
	switch k {
	case Revenue:
		return t.Revenue
	case AvgOrderValue:
		return safeDiv(t.Revenue, float64(t.TotalOrders))
	case RevenuePerEmail:
		return safeDiv(t.Revenue, sent)
	case OpenRate:
		return pct(float64(t.UniqueOpens), sent)
	case ClickRate:
		return pct(float64(t.UniqueClicks), sent)
	case ClickToOpenRate:
		return pct(float64(t.UniqueClicks), float64(t.UniqueOpens))
	case ConversionRate:
		return pct(float64(t.TotalOrders), float64(t.UniqueClicks))
	case UnsubscribeRate:
		return pct(float64(t.Unsubscribes), sent)
	case SpamRate:
		return pct(float64(t.Spam), sent)
	case BounceRate:
		return pct(float64(t.Bounces), sent)
	case EmailsSent:
		return sent
	case TotalOrders:
		return float64(t.TotalOrders)
	}
	return 0
}

// All evaluates every metric over the same totals.
func All(t Totals) map[Key]float64 {
	out := make(map[Key]float64, len(Keys))
	for _, k := range Keys {
		out[k] = Value(k, t)
	}
	return out
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func pct(a, b float64) float64 { return safeDiv(a, b) * 100 }
