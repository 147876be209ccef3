package models

type OpportunityCategoryKind string

const (
	KindCampaigns OpportunityCategoryKind = "campaigns"
	KindFlows     OpportunityCategoryKind = "flows"
	KindAudience  OpportunityCategoryKind = "audience"
)

// CategoryDetail is the variant payload of a category: LiftDetail for the
// revenue-lift kinds, SavingsDetail for the audience kind.
type CategoryDetail interface {
	categoryDetail()
}

type LiftDetail struct {
	LiftPercent float64 `json:"lift_percent"`
}

type SavingsDetail struct {
	PlanPriceBefore float64 `json:"plan_price_before"`
	PlanPriceAfter  float64 `json:"plan_price_after"`
}

func (LiftDetail) categoryDetail()    {}
func (SavingsDetail) categoryDetail() {}

type OpportunityItem struct {
	Module            string  `json:"module"`
	Scope             string  `json:"scope"`
	Label             string  `json:"label"`
	AmountAnnual      float64 `json:"amount_annual"`
	PercentOfCategory float64 `json:"percent_of_category"`
	PercentOfOverall  float64 `json:"percent_of_overall"`
}

type OpportunityCategory struct {
	Key              OpportunityCategoryKind `json:"key"`
	Label            string                  `json:"label"`
	Items            []OpportunityItem       `json:"items"`
	TotalAnnual      float64                 `json:"total_annual"`
	BaselineAnnual   float64                 `json:"baseline_annual"`
	BaselineMonthly  float64                 `json:"baseline_monthly"`
	BaselineWeekly   float64                 `json:"baseline_weekly"`
	PercentOfOverall float64                 `json:"percent_of_overall"`
	Detail           CategoryDetail          `json:"detail,omitempty"`
}

type OpportunityTotals struct {
	Annual         float64 `json:"annual"`
	Monthly        float64 `json:"monthly"`
	Weekly         float64 `json:"weekly"`
	ForRange       float64 `json:"for_range"`
	RangeDays      int     `json:"range_days"`
	BaselineAnnual float64 `json:"baseline_annual"`
	// PercentOfBaseline compares annual opportunity with trailing-year revenue.
	PercentOfBaseline float64 `json:"percent_of_baseline"`
}

type OpportunitySummary struct {
	Categories []OpportunityCategory `json:"categories"`
	Totals     OpportunityTotals     `json:"totals"`
}
