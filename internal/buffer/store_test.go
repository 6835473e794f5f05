package buffer

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coinflex-exchange/api-connectors/internal/schema"
)

func event(ch schema.Channel, seq int) schema.Event {
	return schema.Event{Channel: ch, Payload: []byte(strconv.Itoa(seq))}
}

func seqOf(t *testing.T, ev schema.Event) int {
	t.Helper()
	n, err := strconv.Atoi(string(ev.Payload))
	require.NoError(t, err)
	return n
}

func TestEnsureIsIdempotent(t *testing.T) {
	store := NewStore(DefaultCapacity)
	require.True(t, store.Ensure(schema.ChannelTrade))
	store.Append(schema.ChannelTrade, event(schema.ChannelTrade, 1))
	require.False(t, store.Ensure(schema.ChannelTrade))
	require.Equal(t, 1, store.Len(schema.ChannelTrade))
}

func TestAppendWithoutBufferIsDropped(t *testing.T) {
	store := NewStore(DefaultCapacity)
	stored, evicted := store.Append(schema.ChannelTicker, event(schema.ChannelTicker, 1))
	require.False(t, stored)
	require.Zero(t, evicted)
	require.False(t, store.Has(schema.ChannelTicker))
}

func TestAppendCompactsToNewestHalf(t *testing.T) {
	store := NewStore(DefaultCapacity)
	store.Ensure(schema.ChannelDepth)

	totalEvicted := 0
	for i := 1; i <= 201; i++ {
		_, evicted := store.Append(schema.ChannelDepth, event(schema.ChannelDepth, i))
		totalEvicted += evicted
	}
	require.Equal(t, 100, store.Len(schema.ChannelDepth))
	require.Equal(t, 101, totalEvicted)

	for want := 102; want <= 201; want++ {
		ev, ok := store.PopOldest(schema.ChannelDepth)
		require.True(t, ok)
		require.Equal(t, want, seqOf(t, ev))
	}
	_, ok := store.PopOldest(schema.ChannelDepth)
	require.False(t, ok)
}

func TestAppendBetweenCompactionsGrows(t *testing.T) {
	store := NewStore(DefaultCapacity)
	store.Ensure(schema.ChannelTrade)
	for i := 1; i <= 250; i++ {
		store.Append(schema.ChannelTrade, event(schema.ChannelTrade, i))
	}
	require.Equal(t, 149, store.Len(schema.ChannelTrade))
	ev, ok := store.PopOldest(schema.ChannelTrade)
	require.True(t, ok)
	require.Equal(t, 102, seqOf(t, ev))
}

func TestLengthNeverExceedsCapacity(t *testing.T) {
	store := NewStore(10)
	store.Ensure(schema.ChannelMarket)
	for i := 0; i < 1000; i++ {
		store.Append(schema.ChannelMarket, event(schema.ChannelMarket, i))
		require.LessOrEqual(t, store.Len(schema.ChannelMarket), 10)
	}
}

func TestPopOldestEmptyAndMissing(t *testing.T) {
	store := NewStore(DefaultCapacity)

	ev, ok := store.PopOldest(schema.ChannelOrder)
	require.False(t, ok)
	require.True(t, ev.IsZero())

	store.Ensure(schema.ChannelOrder)
	ev, ok = store.PopOldest(schema.ChannelOrder)
	require.False(t, ok)
	require.True(t, ev.IsZero())
}

func TestPopOldestIsFIFO(t *testing.T) {
	store := NewStore(DefaultCapacity)
	store.Ensure(schema.ChannelTrade)
	for i := 1; i <= 5; i++ {
		store.Append(schema.ChannelTrade, event(schema.ChannelTrade, i))
	}
	for want := 1; want <= 5; want++ {
		ev, ok := store.PopOldest(schema.ChannelTrade)
		require.True(t, ok)
		require.Equal(t, want, seqOf(t, ev))
	}
}

func TestSmallCapacityFallsBackToDefault(t *testing.T) {
	require.Equal(t, DefaultCapacity, NewStore(1).Capacity())
	require.Equal(t, 4, NewStore(4).Capacity())
}

func TestDepths(t *testing.T) {
	store := NewStore(DefaultCapacity)
	store.Ensure(schema.ChannelTrade)
	store.Ensure(schema.ChannelTicker)
	store.Append(schema.ChannelTrade, event(schema.ChannelTrade, 1))

	depths := store.Depths()
	require.Equal(t, map[schema.Channel]int{schema.ChannelTrade: 1, schema.ChannelTicker: 0}, depths)
}

func TestConcurrentAppendAndPop(t *testing.T) {
	store := NewStore(DefaultCapacity)
	store.Ensure(schema.ChannelTrade)

	const total = 5000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= total; i++ {
			store.Append(schema.ChannelTrade, event(schema.ChannelTrade, i))
		}
	}()

	last := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		ev, ok := store.PopOldest(schema.ChannelTrade)
		if ok {
			seq := seqOf(t, ev)
			require.Greater(t, seq, last)
			last = seq
			continue
		}
		select {
		case <-done:
			for {
				ev, ok := store.PopOldest(schema.ChannelTrade)
				if !ok {
					return
				}
				seq := seqOf(t, ev)
				require.Greater(t, seq, last)
				last = seq
			}
		default:
		}
	}
}
