package flows

import (
	"sort"

	"github.com/AngelCh415/mailmetrics/internal/metrics"
	"github.com/AngelCh415/mailmetrics/internal/models"
)

// Names lists the distinct names of live flows, sorted.
func Names(flows []models.FlowEmail) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, f := range flows {
		if !f.IsLive() || f.FlowName == "" {
			continue
		}
		if _, ok := seen[f.FlowName]; ok {
			continue
		}
		seen[f.FlowName] = struct{}{}
		out = append(out, f.FlowName)
	}
	sort.Strings(out)
	return out
}

type Step struct {
	SequencePosition int     `json:"sequence_position"`
	EmailsSent       int     `json:"emails_sent"`
	OpenRate         float64 `json:"open_rate"`
	ClickRate        float64 `json:"click_rate"`
	Revenue          float64 `json:"revenue"`
	RevenuePerEmail  float64 `json:"revenue_per_email"`
	// DropOffPercent is the share of the previous step's volume that did not
	// reach this step; 0 for the first step.
	DropOffPercent float64 `json:"drop_off_percent"`
}

type DropOffReport struct {
	FlowName string            `json:"flow_name"`
	Window   models.DateWindow `json:"window"`
	Steps    []Step            `json:"steps"`
	Totals   metrics.Totals    `json:"totals"`
}

// DropOff aggregates one live flow by sequence position inside w.
func DropOff(flows []models.FlowEmail, name string, w models.DateWindow) DropOffReport {
	byPos := map[int]*metrics.Totals{}
	rep := DropOffReport{FlowName: name, Window: w, Steps: []Step{}}
	for _, f := range flows {
		if !f.IsLive() || f.FlowName != name || !w.Contains(f.SentAt) {
			continue
		}
		t, ok := byPos[f.SequencePosition]
		if !ok {
			t = &metrics.Totals{}
			byPos[f.SequencePosition] = t
		}
		t.Add(f.EmailEvent)
		rep.Totals.Add(f.EmailEvent)
	}

	positions := make([]int, 0, len(byPos))
	for p := range byPos {
		positions = append(positions, p)
	}
	sort.Ints(positions)

	prevSent := 0
	for i, p := range positions {
		t := *byPos[p]
		s := Step{
			SequencePosition: p,
			EmailsSent:       t.EmailsSent,
			OpenRate:         metrics.Value(metrics.OpenRate, t),
			ClickRate:        metrics.Value(metrics.ClickRate, t),
			Revenue:          t.Revenue,
			RevenuePerEmail:  metrics.Value(metrics.RevenuePerEmail, t),
		}
		if i > 0 && prevSent > 0 {
			s.DropOffPercent = float64(prevSent-t.EmailsSent) / float64(prevSent) * 100
		}
		prevSent = t.EmailsSent
		rep.Steps = append(rep.Steps, s)
	}
	return rep
}
