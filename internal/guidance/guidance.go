package guidance

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/AngelCh415/mailmetrics/internal/models"
	"github.com/AngelCh415/mailmetrics/internal/window"
)

// Tier maps a minimum |r| to the share of the modeled volume increase that is
// expected to turn into revenue.
type Tier struct {
	MinR       float64 `yaml:"min_r"`
	Efficiency float64 `yaml:"efficiency"`
}

type Thresholds struct {
	MinRecipients        int     `yaml:"min_recipients"`
	SettleHours          int     `yaml:"settle_hours"`
	MinCampaigns         int     `yaml:"min_campaigns"`
	MinSpanDays          int     `yaml:"min_span_days"`
	MinVariationPercent  float64 `yaml:"min_variation_percent"`
	CorrelationThreshold float64 `yaml:"correlation_threshold"`
	SpamRiskPercent      float64 `yaml:"spam_risk_percent"`
	BounceRiskPercent    float64 `yaml:"bounce_risk_percent"`
	VolumeIncrease       float64 `yaml:"volume_increase"`
	EfficiencyTiers      []Tier  `yaml:"efficiency_tiers"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinRecipients:        500,
		SettleHours:          72,
		MinCampaigns:         12,
		MinSpanDays:          90,
		MinVariationPercent:  10,
		CorrelationThreshold: 0.2,
		SpamRiskPercent:      0.2,
		BounceRiskPercent:    3,
		VolumeIncrease:       0.20,
		EfficiencyTiers: []Tier{
			{MinR: 0.4, Efficiency: 0.85},
			{MinR: 0.3, Efficiency: 0.80},
			{MinR: 0.2, Efficiency: 0.70},
		},
	}
}

const daysPerMonth = 30

// Qualifying keeps campaigns inside w with enough recipients and old enough
// for engagement to have settled relative to the reference date.
func Qualifying(campaigns []models.Campaign, w models.DateWindow, ref time.Time, th Thresholds) []models.Campaign {
	cutoff := ref.Add(-time.Duration(th.SettleHours) * time.Hour)
	out := make([]models.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if !w.Contains(c.SentAt) || c.EmailsSent < th.MinRecipients || c.SentAt.After(cutoff) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out
}

// Evaluate correlates send volume with revenue over the qualifying campaigns
// of rangeToken and turns it into a recommendation.
func Evaluate(r window.Resolver, campaigns []models.Campaign, rangeToken string, th Thresholds) models.SendVolumeGuidanceResult {
	w := r.Resolve(rangeToken)
	sample := Qualifying(campaigns, w, r.Reference(), th)

	res := models.SendVolumeGuidanceResult{
		SampleSize:  len(sample),
		DataContext: models.DataContext{LookbackDays: w.Days()},
	}
	res.AvgSpamRate, res.AvgBounceRate = avgRiskRates(sample)
	res.HighRisk = res.AvgSpamRate >= th.SpamRiskPercent || res.AvgBounceRate > th.BounceRiskPercent

	if len(sample) < th.MinCampaigns || coveredDays(r, w) < th.MinSpanDays {
		res.Status = models.StatusInsufficient
		res.Message = fmt.Sprintf("Need at least %d campaigns with %d+ recipients over %d days to read a volume trend (found %d).",
			th.MinCampaigns, th.MinRecipients, th.MinSpanDays, len(sample))
		return res
	}

	xs := make([]float64, len(sample))
	ys := make([]float64, len(sample))
	var revenue float64
	for i, c := range sample {
		xs[i] = float64(c.EmailsSent)
		ys[i] = c.Revenue
		revenue += c.Revenue
	}
	coef := Pearson(xs, ys)
	res.CorrelationCoefficient = &coef

	cv := CoefficientOfVariation(xs) * 100
	res.DataContext.VariancePercent = cv
	res.DataContext.HasVariance = cv >= th.MinVariationPercent

	res.Status = classify(coef, res.DataContext.HasVariance, th)
	if res.Status == models.StatusSendMore {
		if eff, ok := efficiency(coef, th.EfficiencyTiers); ok {
			runRate := revenue / float64(res.DataContext.LookbackDays) * daysPerMonth
			res.Projection = &models.RevenueProjection{
				MonthlyRunRate: runRate,
				VolumeIncrease: th.VolumeIncrease,
				Efficiency:     eff,
				MonthlyLift:    runRate * th.VolumeIncrease * eff,
			}
		}
	}
	res.Message = message(res)
	return res
}

func classify(r float64, hasVariance bool, th Thresholds) models.GuidanceStatus {
	switch {
	case !hasVariance:
		return models.StatusOptimize
	case r >= th.CorrelationThreshold:
		return models.StatusSendMore
	case r <= -th.CorrelationThreshold:
		return models.StatusSendLess
	}
	return models.StatusOptimize
}

func efficiency(r float64, tiers []Tier) (float64, bool) {
	sorted := append([]Tier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinR > sorted[j].MinR })
	abs := math.Abs(r)
	for _, t := range sorted {
		if abs >= t.MinR {
			return t.Efficiency, true
		}
	}
	return 0, false
}

func message(res models.SendVolumeGuidanceResult) string {
	var msg string
	switch res.Status {
	case models.StatusSendMore:
		msg = "Revenue rises with send volume. Sending more campaigns is likely to pay off."
		if res.Projection != nil {
			msg += fmt.Sprintf(" A %.0f%% volume increase projects about %.0f in extra monthly revenue.",
				res.Projection.VolumeIncrease*100, res.Projection.MonthlyLift)
		}
	case models.StatusSendLess:
		msg = "Larger sends are bringing in less revenue. Tighten targeting before adding volume."
	default:
		if !res.DataContext.HasVariance {
			msg = "Send volume barely varies between campaigns, so its effect on revenue cannot be measured. Focus on content and targeting."
		} else {
			msg = "Volume and revenue are not clearly related. Focus on content and targeting."
		}
	}
	if res.HighRisk {
		msg += fmt.Sprintf(" Deliverability risk: spam rate %.2f%%, bounce rate %.2f%%.", res.AvgSpamRate, res.AvgBounceRate)
	}
	return msg
}

// avgRiskRates is the mean of per-campaign spam and bounce rates, in percent.
func avgRiskRates(sample []models.Campaign) (spam, bounce float64) {
	if len(sample) == 0 {
		return 0, 0
	}
	for _, c := range sample {
		if c.EmailsSent == 0 {
			continue
		}
		spam += float64(c.SpamComplaintsCount) / float64(c.EmailsSent) * 100
		bounce += float64(c.BouncesCount) / float64(c.EmailsSent) * 100
	}
	n := float64(len(sample))
	return spam / n, bounce / n
}

// coveredDays counts the days of w that hold history: the window clipped to
// the dataset's first send and reference date.
func coveredDays(r window.Resolver, w models.DateWindow) int {
	b := r.Bounds()
	if b.Empty() {
		return 0
	}
	c := w
	if first := window.StartOfDay(b.Earliest); c.Start.Before(first) {
		c.Start = first
	}
	if last := window.EndOfDay(b.Reference); c.End.After(last) {
		c.End = last
	}
	return c.Days()
}

// Pearson returns 0 when either side has no variance.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var num, denX, denY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		num += dx * dy
		denX += dx * dx
		denY += dy * dy
	}
	if denX == 0 || denY == 0 {
		return 0
	}
	return num / math.Sqrt(denX*denY)
}

// CoefficientOfVariation is the population standard deviation over the mean.
func CoefficientOfVariation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if mean == 0 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss/float64(len(xs))) / mean
}
