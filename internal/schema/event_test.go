package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventDecode(t *testing.T) {
	ev := Event{Channel: ChannelTicker, Payload: []byte(`{"table":"ticker","data":[{"last":"42"}]}`)}
	var frame struct {
		Table string              `json:"table"`
		Data  []map[string]string `json:"data"`
	}
	require.NoError(t, ev.Decode(&frame))
	require.Equal(t, "ticker", frame.Table)
	require.Equal(t, "42", frame.Data[0]["last"])

	require.Error(t, Event{Payload: []byte(`{`)}.Decode(&frame))
}

func TestIsOrderEvent(t *testing.T) {
	for _, name := range []string{EventPlaceOrder, EventModifyOrder, EventCancelOrder} {
		require.True(t, IsOrderEvent(name), name)
	}
	for _, name := range []string{EventWelcome, EventSubscribe, EventLogin, "PlaceOrder", ""} {
		require.False(t, IsOrderEvent(name), name)
	}
}

func TestSideValid(t *testing.T) {
	require.True(t, SideBuy.Valid())
	require.True(t, SideSell.Valid())
	require.False(t, Side("buy").Valid())
}
