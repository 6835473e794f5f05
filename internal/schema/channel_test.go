package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coinflex-exchange/api-connectors/errs"
)

func TestDepthChannel(t *testing.T) {
	cases := []struct {
		level DepthLevel
		want  Channel
	}{
		{DepthFull, ChannelDepth},
		{DepthL5, ChannelDepthL5},
		{DepthL10, ChannelDepthL10},
		{DepthL25, ChannelDepthL25},
	}
	for _, tc := range cases {
		got, err := DepthChannel(tc.level)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := DepthChannel(DepthLevel(20))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.CodeInvalid))
}

func TestCandleChannel(t *testing.T) {
	for _, iv := range Intervals() {
		ch, err := CandleChannel(iv)
		require.NoError(t, err)
		require.Equal(t, Channel("candles"+string(iv)), ch)
	}

	_, err := CandleChannel("45s")
	require.True(t, errs.Is(err, errs.CodeInvalid))
}

func TestParseChannel(t *testing.T) {
	ch, ok := ParseChannel("candles3600s")
	require.True(t, ok)
	require.Equal(t, Channel("candles3600s"), ch)

	ch, ok = ParseChannel(" liquidationRFQ ")
	require.True(t, ok)
	require.Equal(t, ChannelLiquidation, ch)

	_, ok = ParseChannel("candles45s")
	require.False(t, ok)
	_, ok = ParseChannel("depthL7")
	require.False(t, ok)
}

func TestChannelTopic(t *testing.T) {
	require.Equal(t, "depth:BTC-USD", ChannelDepth.Topic("BTC-USD"))
	require.Equal(t, "candles60s:ETH-USD", Channel("candles60s").Topic("ETH-USD"))
	require.Equal(t, "balance:all", ChannelBalance.Topic(DefaultBalanceCoin))
	require.Equal(t, "liquidationRFQ", ChannelLiquidation.Topic("BTC-USD"))
}

func TestChannelPrivate(t *testing.T) {
	require.True(t, ChannelOrder.Private())
	require.True(t, ChannelBalance.Private())
	require.True(t, ChannelPosition.Private())
	require.False(t, ChannelDepthL25.Private())
}

func TestCredentialsValidate(t *testing.T) {
	require.NoError(t, Credentials{}.Validate())
	require.NoError(t, Credentials{APIKey: "k", APISecret: "s"}.Validate())

	err := Credentials{APIKey: "k"}.Validate()
	require.True(t, errs.Is(err, errs.CodeConfig))
	err = Credentials{APISecret: "s"}.Validate()
	require.True(t, errs.Is(err, errs.CodeConfig))

	require.True(t, Credentials{APIKey: "k", APISecret: "s"}.Present())
	require.False(t, Credentials{}.Present())
}

func TestEventIsZero(t *testing.T) {
	require.True(t, Event{}.IsZero())
	require.False(t, Event{Channel: ChannelTrade, Payload: []byte(`{}`)}.IsZero())
}
