package report

import (
	"github.com/AngelCh415/mailmetrics/internal/config"
	"github.com/AngelCh415/mailmetrics/internal/flows"
	"github.com/AngelCh415/mailmetrics/internal/guidance"
	"github.com/AngelCh415/mailmetrics/internal/metrics"
	"github.com/AngelCh415/mailmetrics/internal/models"
	"github.com/AngelCh415/mailmetrics/internal/opportunity"
	"github.com/AngelCh415/mailmetrics/internal/period"
	"github.com/AngelCh415/mailmetrics/internal/series"
	"github.com/AngelCh415/mailmetrics/internal/store"
	"github.com/AngelCh415/mailmetrics/internal/utils"
	"github.com/AngelCh415/mailmetrics/internal/window"
)

// Service answers report queries against the current dataset of an account.
// Every call reads one immutable snapshot, so a concurrent reload never mixes
// two datasets in one answer.
type Service struct {
	st  *store.MemoryStore
	eng config.Engine
	m   *utils.Metrics
}

func NewService(st *store.MemoryStore, eng config.Engine, m *utils.Metrics) *Service {
	return &Service{st: st, eng: eng, m: m}
}

func (s *Service) Engine() config.Engine { return s.eng }

// DatasetVersion is the version of the account's current dataset, used to
// scope cached answers so reloading one account leaves the others warm.
func (s *Service) DatasetVersion(account string) (uint64, error) {
	ds, err := s.st.Snapshot(account)
	if err != nil {
		return 0, err
	}
	return ds.Version, nil
}

// Clear drops the account dataset; false when there was none.
func (s *Service) Clear(account string) bool { return s.st.Clear(account) }

func (s *Service) snapshot(account string) (store.Dataset, window.Resolver, error) {
	ds, err := s.st.Snapshot(account)
	if err != nil {
		return ds, window.Resolver{}, err
	}
	return ds, ds.Resolver(s.eng.WindowOptions()...), nil
}

type SeriesResult struct {
	Metric        metrics.Key         `json:"metric"`
	Granularity   series.Granularity  `json:"granularity"`
	Compare       window.CompareMode  `json:"compare"`
	Window        models.DateWindow   `json:"window"`
	CompareWindow *models.DateWindow  `json:"compare_window,omitempty"`
	Primary       models.MetricSeries `json:"primary"`
	Secondary     models.MetricSeries `json:"compare_series,omitempty"`
}

func (s *Service) Series(account string, q Query) (SeriesResult, error) {
	defer s.m.Time("series")()
	ds, r, err := s.snapshot(account)
	if err != nil {
		return SeriesResult{}, err
	}
	w := r.Resolve(q.Range)
	pair := series.BuildWithCompare(r, ds.Campaigns, ds.Flows, q.Metric, w, q.Granularity, q.Compare)
	res := SeriesResult{
		Metric:      q.Metric,
		Granularity: q.Granularity,
		Compare:     q.Compare,
		Window:      w,
		Primary:     pair.Primary,
		Secondary:   pair.Compare,
	}
	if pair.Compare != nil {
		cw, _ := window.Compare(w, q.Compare)
		res.CompareWindow = &cw
	}
	return res, nil
}

func (s *Service) Delta(account string, q Query) (models.PeriodDelta, error) {
	defer s.m.Time("delta")()
	ds, r, err := s.snapshot(account)
	if err != nil {
		return models.PeriodDelta{}, err
	}
	set := period.EventSet{Campaigns: ds.Campaigns, Flows: ds.Flows}
	return period.OverPeriod(r, q.Metric, q.Range, set, period.Options{FlowName: q.Flow, CompareMode: q.Compare}), nil
}

type KPI struct {
	Metric        metrics.Key        `json:"metric"`
	LowerIsBetter bool               `json:"lower_is_better"`
	Delta         models.PeriodDelta `json:"delta"`
}

type KPISnapshot struct {
	Account string             `json:"account"`
	Version uint64             `json:"version"`
	Window  models.DateWindow  `json:"window"`
	Compare window.CompareMode `json:"compare"`
	KPIs    []KPI              `json:"kpis"`
}

// Snapshot evaluates every metric over the same window with its delta.
func (s *Service) Snapshot(account string, q Query) (KPISnapshot, error) {
	defer s.m.Time("kpis")()
	ds, r, err := s.snapshot(account)
	if err != nil {
		return KPISnapshot{}, err
	}
	set := period.EventSet{Campaigns: ds.Campaigns, Flows: ds.Flows}
	opts := period.Options{FlowName: q.Flow, CompareMode: q.Compare}
	out := KPISnapshot{
		Account: account,
		Version: ds.Version,
		Window:  r.Resolve(q.Range),
		Compare: q.Compare,
		KPIs:    make([]KPI, 0, len(metrics.Keys)),
	}
	for _, k := range metrics.Keys {
		out.KPIs = append(out.KPIs, KPI{
			Metric:        k,
			LowerIsBetter: k.LowerIsBetter(),
			Delta:         period.OverPeriod(r, k, q.Range, set, opts),
		})
	}
	return out, nil
}

// FlowNames pages through the live flow names; Limit 0 returns all.
func (s *Service) FlowNames(account string, q Query) ([]string, error) {
	ds, err := s.st.Snapshot(account)
	if err != nil {
		return nil, err
	}
	names := flows.Names(ds.Flows)
	limit, offset := clampLimitOffset(q.Limit, q.Offset, len(names))
	return paginate(names, limit, offset), nil
}

func (s *Service) DropOff(account, flowName string, q Query) (flows.DropOffReport, error) {
	defer s.m.Time("dropoff")()
	ds, r, err := s.snapshot(account)
	if err != nil {
		return flows.DropOffReport{}, err
	}
	return flows.DropOff(ds.Flows, flowName, r.Resolve(q.Range)), nil
}

func (s *Service) Opportunities(account string, q Query, groups []opportunity.Group) (models.OpportunitySummary, error) {
	defer s.m.Time("opportunities")()
	ds, r, err := s.snapshot(account)
	if err != nil {
		return models.OpportunitySummary{}, err
	}
	b := opportunity.BaselinesFrom(r, ds.Campaigns, ds.Flows, s.eng.Opportunity.BaselineDays)
	return opportunity.Summarize(r, b, groups, q.Range), nil
}

func (s *Service) SendVolume(account string, q Query) (models.SendVolumeGuidanceResult, error) {
	defer s.m.Time("send_volume")()
	ds, r, err := s.snapshot(account)
	if err != nil {
		return models.SendVolumeGuidanceResult{}, err
	}
	return guidance.Evaluate(r, ds.Campaigns, q.Range, s.eng.Guidance), nil
}
