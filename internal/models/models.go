package models

import "time"

// EmailEvent is the shape shared by campaign sends and flow-step sends.
type EmailEvent struct {
	SentAt              time.Time `json:"sent_at"`
	EmailsSent          int       `json:"emails_sent"`
	UniqueOpens         int       `json:"unique_opens"`
	UniqueClicks        int       `json:"unique_clicks"`
	Revenue             float64   `json:"revenue"`
	TotalOrders         int       `json:"total_orders"`
	UnsubscribesCount   int       `json:"unsubscribes_count"`
	SpamComplaintsCount int       `json:"spam_complaints_count"`
	BouncesCount        int       `json:"bounces_count"`
}

type Campaign struct {
	EmailEvent
	Subject      string `json:"subject"`
	CampaignName string `json:"campaign_name"`
}

type FlowStatus string

const (
	FlowLive  FlowStatus = "live"
	FlowDraft FlowStatus = "draft"
	FlowOther FlowStatus = "other"
)

// ParseFlowStatus maps anything that is not live or draft to FlowOther.
func ParseFlowStatus(s string) FlowStatus {
	switch FlowStatus(s) {
	case FlowLive, FlowDraft:
		return FlowStatus(s)
	}
	return FlowOther
}

type FlowEmail struct {
	EmailEvent
	FlowName         string     `json:"flow_name"`
	SequencePosition int        `json:"sequence_position"`
	Status           FlowStatus `json:"status"`
}

func (f FlowEmail) IsLive() bool { return f.Status == FlowLive }

// Events merges campaign and flow sends into one slice of shared events.
func Events(campaigns []Campaign, flows []FlowEmail) []EmailEvent {
	out := make([]EmailEvent, 0, len(campaigns)+len(flows))
	for _, c := range campaigns {
		out = append(out, c.EmailEvent)
	}
	for _, f := range flows {
		out = append(out, f.EmailEvent)
	}
	return out
}

// DateWindow is inclusive on both ends; End is the last instant of its day.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Days counts the calendar days the window touches.
func (w DateWindow) Days() int {
	s := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(w.End.Year(), w.End.Month(), w.End.Day(), 0, 0, 0, 0, time.UTC)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

type MetricBucket struct {
	BucketStart time.Time `json:"bucket_start"`
	Value       float64   `json:"value"`
}

type MetricSeries []MetricBucket

type SeriesPair struct {
	Primary MetricSeries `json:"primary"`
	Compare MetricSeries `json:"compare"`
}

type PeriodDelta struct {
	ChangePercent  float64     `json:"change_percent"`
	IsPositive     bool        `json:"is_positive"`
	CurrentValue   float64     `json:"current_value"`
	PreviousValue  float64     `json:"previous_value"`
	PreviousWindow *DateWindow `json:"previous_window,omitempty"`
	// Comparable is false when no previous value was computed ("all" range, compare
	// disabled, or the comparison window is not fully covered by data).
	Comparable bool `json:"comparable"`
}
