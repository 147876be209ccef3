package models

type GuidanceStatus string

const (
	StatusSendMore     GuidanceStatus = "send-more"
	StatusSendLess     GuidanceStatus = "send-less"
	StatusOptimize     GuidanceStatus = "optimize"
	StatusInsufficient GuidanceStatus = "insufficient"
)

type DataContext struct {
	LookbackDays    int     `json:"lookback_days"`
	HasVariance     bool    `json:"has_variance"`
	VariancePercent float64 `json:"variance_percent"`
}

type RevenueProjection struct {
	MonthlyRunRate float64 `json:"monthly_run_rate"`
	VolumeIncrease float64 `json:"volume_increase"`
	Efficiency     float64 `json:"efficiency"`
	MonthlyLift    float64 `json:"monthly_lift"`
}

type SendVolumeGuidanceResult struct {
	Status                 GuidanceStatus     `json:"status"`
	CorrelationCoefficient *float64           `json:"correlation_coefficient"`
	SampleSize             int                `json:"sample_size"`
	AvgSpamRate            float64            `json:"avg_spam_rate"`
	AvgBounceRate          float64            `json:"avg_bounce_rate"`
	HighRisk               bool               `json:"high_risk"`
	Message                string             `json:"message"`
	DataContext            DataContext        `json:"data_context"`
	Projection             *RevenueProjection `json:"projection,omitempty"`
}
