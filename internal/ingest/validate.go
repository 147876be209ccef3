package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AngelCh415/mailmetrics/internal/models"
)

var ErrInvalidRecord = errors.New("invalid record")

// CampaignRecord and FlowRecord are the wire shapes of the upstream exports.
type CampaignRecord struct {
	SentAt              string  `json:"sent_at"`
	CampaignName        string  `json:"campaign_name"`
	Subject             string  `json:"subject"`
	EmailsSent          int     `json:"emails_sent"`
	UniqueOpens         int     `json:"unique_opens"`
	UniqueClicks        int     `json:"unique_clicks"`
	Revenue             float64 `json:"revenue"`
	TotalOrders         int     `json:"total_orders"`
	UnsubscribesCount   int     `json:"unsubscribes_count"`
	SpamComplaintsCount int     `json:"spam_complaints_count"`
	BouncesCount        int     `json:"bounces_count"`
}

type FlowRecord struct {
	CampaignRecord
	FlowName         string `json:"flow_name"`
	SequencePosition int    `json:"sequence_position"`
	Status           string `json:"status"`
}

type Payload struct {
	Campaigns []CampaignRecord `json:"campaigns"`
	Flows     []FlowRecord     `json:"flows"`
}

// Batch is a converted payload. Skipped counts records dropped in lenient mode.
type Batch struct {
	Campaigns []models.Campaign
	Flows     []models.FlowEmail
	Skipped   int
}

// Convert parses and validates every record. In strict mode the first bad
// record fails the whole payload; otherwise bad records are dropped.
func Convert(p Payload, strict bool) (Batch, error) {
	b := Batch{
		Campaigns: make([]models.Campaign, 0, len(p.Campaigns)),
		Flows:     make([]models.FlowEmail, 0, len(p.Flows)),
	}
	for i, r := range p.Campaigns {
		c, err := r.campaign()
		if err == nil {
			err = Validate(c.EmailEvent)
		}
		if err != nil {
			if strict {
				return Batch{}, fmt.Errorf("campaigns[%d]: %w", i, err)
			}
			b.Skipped++
			continue
		}
		b.Campaigns = append(b.Campaigns, c)
	}
	for i, r := range p.Flows {
		f, err := r.flow()
		if err == nil {
			err = ValidateFlow(f)
		}
		if err != nil {
			if strict {
				return Batch{}, fmt.Errorf("flows[%d]: %w", i, err)
			}
			b.Skipped++
			continue
		}
		b.Flows = append(b.Flows, f)
	}
	return b, nil
}

// Validate rejects events that would corrupt the aggregates: no send time or
// negative counters.
func Validate(e models.EmailEvent) error {
	if e.SentAt.IsZero() {
		return fmt.Errorf("%w: missing sent_at", ErrInvalidRecord)
	}
	counts := []struct {
		name string
		v    int
	}{
		{"emails_sent", e.EmailsSent},
		{"unique_opens", e.UniqueOpens},
		{"unique_clicks", e.UniqueClicks},
		{"total_orders", e.TotalOrders},
		{"unsubscribes_count", e.UnsubscribesCount},
		{"spam_complaints_count", e.SpamComplaintsCount},
		{"bounces_count", e.BouncesCount},
	}
	for _, c := range counts {
		if c.v < 0 {
			return fmt.Errorf("%w: negative %s", ErrInvalidRecord, c.name)
		}
	}
	if e.Revenue < 0 {
		return fmt.Errorf("%w: negative revenue", ErrInvalidRecord)
	}
	return nil
}

func ValidateFlow(f models.FlowEmail) error {
	if err := Validate(f.EmailEvent); err != nil {
		return err
	}
	if f.FlowName == "" {
		return fmt.Errorf("%w: missing flow_name", ErrInvalidRecord)
	}
	if f.SequencePosition < 1 {
		return fmt.Errorf("%w: sequence_position must be >= 1", ErrInvalidRecord)
	}
	return nil
}

func (r CampaignRecord) event() (models.EmailEvent, error) {
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(r.SentAt))
	if err != nil {
		return models.EmailEvent{}, fmt.Errorf("%w: bad sent_at %q", ErrInvalidRecord, r.SentAt)
	}
	return models.EmailEvent{
		SentAt:              ts.UTC(),
		EmailsSent:          r.EmailsSent,
		UniqueOpens:         r.UniqueOpens,
		UniqueClicks:        r.UniqueClicks,
		Revenue:             r.Revenue,
		TotalOrders:         r.TotalOrders,
		UnsubscribesCount:   r.UnsubscribesCount,
		SpamComplaintsCount: r.SpamComplaintsCount,
		BouncesCount:        r.BouncesCount,
	}, nil
}

func (r CampaignRecord) campaign() (models.Campaign, error) {
	e, err := r.event()
	if err != nil {
		return models.Campaign{}, err
	}
	return models.Campaign{
		EmailEvent:   e,
		CampaignName: strings.TrimSpace(r.CampaignName),
		Subject:      strings.TrimSpace(r.Subject),
	}, nil
}

func (r FlowRecord) flow() (models.FlowEmail, error) {
	e, err := r.event()
	if err != nil {
		return models.FlowEmail{}, err
	}
	return models.FlowEmail{
		EmailEvent:       e,
		FlowName:         strings.TrimSpace(r.FlowName),
		SequencePosition: r.SequencePosition,
		Status:           models.ParseFlowStatus(strings.ToLower(strings.TrimSpace(r.Status))),
	}, nil
}
