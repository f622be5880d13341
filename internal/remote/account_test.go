package remote

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceUnknownAccount(t *testing.T) {
	cache, err := NewAccountCache()
	require.NoError(t, err)

	_, err = cache.Sequence("rAlice", SequenceNone)
	assert.ErrorIs(t, err, ErrSequenceUnknown)
}

func TestSequenceAdvanceReturnsPreMutationValue(t *testing.T) {
	cache, err := NewAccountCache()
	require.NoError(t, err)
	cache.SetSequence("rAlice", 10)

	for _, want := range []uint32{10, 11, 12} {
		got, err := cache.Sequence("rAlice", SequenceAdvanceNext)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	stored, err := cache.Sequence("rAlice", SequenceNone)
	require.NoError(t, err)
	assert.Equal(t, uint32(13), stored)
}

func TestSequenceRewindReleasesReservation(t *testing.T) {
	cache, err := NewAccountCache()
	require.NoError(t, err)
	cache.SetSequence("rAlice", 10)

	_, err = cache.Sequence("rAlice", SequenceAdvanceNext)
	require.NoError(t, err)

	got, err := cache.Sequence("rAlice", SequenceRewind)
	require.NoError(t, err)
	assert.Equal(t, uint32(11), got)

	stored, err := cache.Sequence("rAlice", SequenceNone)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), stored)
}

func TestRefreshSequenceCoalescesConcurrentCallers(t *testing.T) {
	cache, err := NewAccountCache()
	require.NoError(t, err)

	var fetches atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	// The fetch blocks until released and refuses to run twice, so a second
	// caller that misses the flight fails the test instead of passing
	// silently.
	fetch := func() (uint32, error) {
		if fetches.Add(1) > 1 {
			return 0, errors.New("refresh ran twice")
		}
		close(started)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]uint32, 2)
	refresh := func(i int) {
		defer wg.Done()
		seq, err := cache.RefreshSequence("rAlice", fetch)
		assert.NoError(t, err)
		results[i] = seq
	}

	wg.Add(1)
	go refresh(0)
	<-started

	// The fetch is now in flight and blocked; the second caller must join
	// it. Give it time to enter before letting the fetch finish.
	wg.Add(1)
	go refresh(1)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fetches.Load())
	assert.Equal(t, uint32(42), results[0])
	assert.Equal(t, uint32(42), results[1])

	stored, err := cache.Sequence("rAlice", SequenceNone)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), stored)
}

func TestRefreshSequenceFailureDoesNotPoison(t *testing.T) {
	cache, err := NewAccountCache()
	require.NoError(t, err)

	boom := errors.New("node unavailable")
	_, err = cache.RefreshSequence("rAlice", func() (uint32, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = cache.Sequence("rAlice", SequenceNone)
	assert.ErrorIs(t, err, ErrSequenceUnknown)

	seq, err := cache.RefreshSequence("rAlice", func() (uint32, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(7), seq)
}

func TestAccountRootCacheRoundTrip(t *testing.T) {
	cache, err := NewAccountCache()
	require.NoError(t, err)

	_, ok := cache.AccountRoot("rAlice")
	assert.False(t, ok)

	node := map[string]any{"Account": "rAlice", "Balance": "1000"}
	cache.SetAccountRoot("rAlice", node)

	got, ok := cache.AccountRoot("rAlice")
	require.True(t, ok)
	assert.Equal(t, node, got)

	cache.DirtyAccountRoot("rAlice")
	_, ok = cache.AccountRoot("rAlice")
	assert.False(t, ok)
}
