package clock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type domainA struct{}
type domainB struct{}

func TestNow_StrictlyIncreasingWithinDomain(t *testing.T) {
	var last Tick
	for i := 0; i < 100; i++ {
		ts := Now[domainA]()
		require.Greater(t, ts.Ticks, last)
		last = ts.Ticks
	}
}

func TestNow_DomainsAreIsolated(t *testing.T) {
	a1 := Now[domainA]()
	b1 := Now[domainB]()
	a2 := Now[domainA]()

	require.Greater(t, a2.Ticks, a1.Ticks)
	require.NotEqual(t, a1.Ticks, b1.Ticks)
}

func TestNow_ConcurrentCallsNeverCollideOrGoBackwards(t *testing.T) {
	type result struct{ ticks Tick }
	const n = 200
	results := make(chan result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- result{ticks: Now[domainA]().Ticks}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[Tick]bool, n)
	for r := range results {
		require.False(t, seen[r.ticks], "duplicate tick issued: %d", r.ticks)
		seen[r.ticks] = true
	}
	require.Len(t, seen, n)
}

func TestTickFromTimeRoundTrip(t *testing.T) {
	ts := NewTimestamp(123456789)
	require.Equal(t, ts.Ticks, TickFromTime(ts.Time()))
}

func TestTimestampOrdering(t *testing.T) {
	a := NewTimestamp(100)
	b := NewTimestamp(200)
	require.True(t, a.Before(b))
	require.True(t, b.After(a))
	require.False(t, a.Equal(b))
	require.True(t, a.Equal(NewTimestamp(100)))
}

func TestDomainKeyIsStablePerType(t *testing.T) {
	require.Equal(t, DomainKey[domainA](), DomainKey[domainA]())
	require.NotEqual(t, DomainKey[domainA](), DomainKey[domainB]())
}
