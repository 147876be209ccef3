package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/mailmetrics/internal/models"
)

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newStore() *MemoryStore {
	return NewMemoryStore().WithClock(func() time.Time { return now })
}

func campaignAt(ts time.Time, sent int) models.Campaign {
	return models.Campaign{EmailEvent: models.EmailEvent{SentAt: ts, EmailsSent: sent}}
}

func TestSnapshotUnknownAccount(t *testing.T) {
	_, err := newStore().Snapshot("acme")
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestReplaceSortsAndComputesBounds(t *testing.T) {
	st := newStore()
	in := []models.Campaign{
		campaignAt(now.AddDate(0, 0, -1), 2),
		campaignAt(now.AddDate(0, 0, -10), 1),
	}
	ds := st.Replace("acme", in, nil)

	assert.Equal(t, uint64(1), ds.Version)
	assert.Equal(t, 1, ds.Campaigns[0].EmailsSent)
	assert.Equal(t, now.AddDate(0, 0, -10), ds.Bounds.Earliest)
	assert.Equal(t, now.AddDate(0, 0, -1), ds.Bounds.Reference)
	assert.Equal(t, now, ds.LoadedAt)

	// la entrada del llamador no se toca
	assert.Equal(t, 2, in[0].EmailsSent)

	got, err := st.Snapshot("acme")
	require.NoError(t, err)
	assert.Equal(t, ds.Version, got.Version)
}

func TestEmptyDatasetUsesClock(t *testing.T) {
	ds := newStore().Replace("acme", nil, nil)
	assert.True(t, ds.Bounds.Empty())
	assert.Equal(t, now, ds.Bounds.Reference)
}

func TestVersionIsGlobalAndMonotonic(t *testing.T) {
	st := newStore()
	a := st.Replace("a", nil, nil)
	b := st.Replace("b", nil, nil)
	a2 := st.Replace("a", nil, nil)
	assert.Less(t, a.Version, b.Version)
	assert.Less(t, b.Version, a2.Version)

	require.True(t, st.Clear("a"))
	assert.Equal(t, a2.Version+1, st.Version())
	assert.False(t, st.Clear("a"))
	assert.Equal(t, a2.Version+1, st.Version())

	_, err := st.Snapshot("a")
	assert.ErrorIs(t, err, ErrNoDataset)
	assert.Equal(t, []string{"b"}, st.Accounts())
}

func TestConcurrentReplaceAndRead(t *testing.T) {
	st := newStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			st.Replace("acme", []models.Campaign{campaignAt(now, n), campaignAt(now, n)}, nil)
		}(i)
		go func() {
			defer wg.Done()
			if ds, err := st.Snapshot("acme"); err == nil {
				// nunca una mezcla de dos cargas
				assert.Equal(t, ds.Campaigns[0].EmailsSent, ds.Campaigns[1].EmailsSent)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(20), st.Version())
}
