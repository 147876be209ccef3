package opportunity

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/mailmetrics/internal/models"
	"github.com/AngelCh415/mailmetrics/internal/window"
)

const DefaultBaselineDays = 365

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
	weeksInYear  = decimal.NewFromInt(52)
	daysInYear   = decimal.NewFromInt(365)
)

var defaultLabels = map[models.OpportunityCategoryKind]string{
	models.KindCampaigns: "Campaigns",
	models.KindFlows:     "Flows",
	models.KindAudience:  "Audience",
}

// Item is a precomputed opportunity line item.
type Item struct {
	Module       string  `json:"module"`
	Scope        string  `json:"scope"`
	Label        string  `json:"label"`
	AmountAnnual float64 `json:"amount_annual"`
}

// Group is one category's items as produced upstream. Detail is only read for
// the audience kind (plan prices); lift kinds derive theirs from the baseline.
type Group struct {
	Kind   models.OpportunityCategoryKind `json:"kind"`
	Label  string                         `json:"label"`
	Items  []Item                         `json:"items"`
	Detail *models.SavingsDetail          `json:"detail,omitempty"`
}

// Baselines is trailing-year revenue, independent of the selected range.
type Baselines struct {
	Campaigns float64 `json:"campaigns"`
	Flows     float64 `json:"flows"`
	Total     float64 `json:"total"`
}

func (b Baselines) For(kind models.OpportunityCategoryKind) float64 {
	switch kind {
	case models.KindCampaigns:
		return b.Campaigns
	case models.KindFlows:
		return b.Flows
	}
	return b.Total
}

// BaselinesFrom sums revenue over the trailing days ending at the reference
// date. days <= 0 uses DefaultBaselineDays.
func BaselinesFrom(r window.Resolver, campaigns []models.Campaign, flows []models.FlowEmail, days int) Baselines {
	if days <= 0 {
		days = DefaultBaselineDays
	}
	w := window.Trailing(r.Reference(), days)
	var cs, fs decimal.Decimal
	for _, c := range campaigns {
		if w.Contains(c.SentAt) {
			cs = cs.Add(decimal.NewFromFloat(c.Revenue))
		}
	}
	for _, f := range flows {
		if w.Contains(f.SentAt) {
			fs = fs.Add(decimal.NewFromFloat(f.Revenue))
		}
	}
	return Baselines{
		Campaigns: cs.InexactFloat64(),
		Flows:     fs.InexactFloat64(),
		Total:     cs.Add(fs).InexactFloat64(),
	}
}

// Summarize builds the category read-model. Category totals are always the
// sum of their items; opportunity amounts stay annual while RangeDays and
// ForRange re-express the grand total for the selected range.
func Summarize(r window.Resolver, b Baselines, groups []Group, rangeToken string) models.OpportunitySummary {
	totals := make([]decimal.Decimal, len(groups))
	var grand decimal.Decimal
	for i, g := range groups {
		for _, it := range g.Items {
			totals[i] = totals[i].Add(decimal.NewFromFloat(it.AmountAnnual))
		}
		grand = grand.Add(totals[i])
	}

	cats := make([]models.OpportunityCategory, 0, len(groups))
	for i, g := range groups {
		baseline := decimal.NewFromFloat(b.For(g.Kind))
		cat := models.OpportunityCategory{
			Key:              g.Kind,
			Label:            labelFor(g),
			Items:            make([]models.OpportunityItem, 0, len(g.Items)),
			TotalAnnual:      totals[i].InexactFloat64(),
			BaselineAnnual:   baseline.InexactFloat64(),
			BaselineMonthly:  baseline.Div(monthsInYear).InexactFloat64(),
			BaselineWeekly:   baseline.Div(weeksInYear).InexactFloat64(),
			PercentOfOverall: percent(totals[i], grand),
			Detail:           detailFor(g, totals[i], baseline),
		}
		for _, it := range g.Items {
			amt := decimal.NewFromFloat(it.AmountAnnual)
			cat.Items = append(cat.Items, models.OpportunityItem{
				Module:            it.Module,
				Scope:             it.Scope,
				Label:             it.Label,
				AmountAnnual:      it.AmountAnnual,
				PercentOfCategory: percent(amt, totals[i]),
				PercentOfOverall:  percent(amt, grand),
			})
		}
		sort.SliceStable(cat.Items, func(a, c int) bool { return cat.Items[a].AmountAnnual > cat.Items[c].AmountAnnual })
		cats = append(cats, cat)
	}

	rangeDays := r.Resolve(rangeToken).Days()
	baselineTotal := decimal.NewFromFloat(b.Total)
	return models.OpportunitySummary{
		Categories: cats,
		Totals: models.OpportunityTotals{
			Annual:            grand.InexactFloat64(),
			Monthly:           grand.Div(monthsInYear).InexactFloat64(),
			Weekly:            grand.Div(weeksInYear).InexactFloat64(),
			ForRange:          grand.Mul(decimal.NewFromInt(int64(rangeDays))).Div(daysInYear).InexactFloat64(),
			RangeDays:         rangeDays,
			BaselineAnnual:    b.Total,
			PercentOfBaseline: percent(grand, baselineTotal),
		},
	}
}

// detailFor keeps each kind to its own variant: audience is cost avoidance
// with plan prices, the others carry a lift percent over their baseline.
func detailFor(g Group, total, baseline decimal.Decimal) models.CategoryDetail {
	if g.Kind == models.KindAudience {
		if g.Detail == nil {
			return models.SavingsDetail{}
		}
		return *g.Detail
	}
	return models.LiftDetail{LiftPercent: percent(total, baseline)}
}

func labelFor(g Group) string {
	if g.Label != "" {
		return g.Label
	}
	return defaultLabels[g.Kind]
}

func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}
