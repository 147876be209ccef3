package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/AngelCh415/mailmetrics/internal/models"
	"github.com/AngelCh415/mailmetrics/internal/window"
)

var ErrNoDataset = errors.New("no dataset for account")

// Dataset is an immutable snapshot of one account's records. Callers must not
// mutate the slices.
type Dataset struct {
	Account   string
	Campaigns []models.Campaign
	Flows     []models.FlowEmail
	Version   uint64
	Bounds    window.Bounds
	LoadedAt  time.Time
}

// Resolver builds a date-window resolver over the dataset bounds.
func (d Dataset) Resolver(opts ...window.Option) window.Resolver {
	return window.NewResolver(d.Bounds, opts...)
}

type MemoryStore struct {
	mu      sync.RWMutex
	sets    map[string]Dataset
	version uint64 // global, solo crece
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]Dataset), now: time.Now}
}

// WithClock swaps the clock used for LoadedAt and for the reference date of
// empty datasets.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// Replace swaps the whole dataset of account in one step. Readers see either
// the old dataset or the new one, never a mix.
func (s *MemoryStore) Replace(account string, campaigns []models.Campaign, flows []models.FlowEmail) Dataset {
	c := append([]models.Campaign(nil), campaigns...)
	f := append([]models.FlowEmail(nil), flows...)
	sort.SliceStable(c, func(i, j int) bool { return c[i].SentAt.Before(c[j].SentAt) })
	sort.SliceStable(f, func(i, j int) bool { return f[i].SentAt.Before(f[j].SentAt) })

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.version++
	ds := Dataset{
		Account:   account,
		Campaigns: c,
		Flows:     f,
		Version:   s.version,
		Bounds:    window.BoundsOf(c, f, now),
		LoadedAt:  now,
	}
	s.sets[account] = ds
	return ds
}

// Clear drops the dataset; the version still moves forward so cached results
// keyed by the old version are never served again.
func (s *MemoryStore) Clear(account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sets[account]; !ok {
		return false
	}
	delete(s.sets, account)
	s.version++
	return true
}

func (s *MemoryStore) Snapshot(account string) (Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.sets[account]
	if !ok {
		return Dataset{}, ErrNoDataset
	}
	return ds, nil
}

func (s *MemoryStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Accounts lists loaded accounts in order.
func (s *MemoryStore) Accounts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sets))
	for k := range s.sets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
