package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibetrader/internal/types"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser()
	require.NoError(t, err)
	return p
}

func TestParseValidBatch(t *testing.T) {
	p := newTestParser(t)
	raw := `[
	  {
	    "symbol": "BTCUSDT",
	    "action": "ENTER_LONG",
	    "size_fraction": 0.1,
	    "leverage": 10,
	    "confidence": 0.82,
	    "decision_price": 100000,
	    "rationale": "breakout continuation",
	    "exit_plan": {"take_profit": 105000, "stop_loss": 98000, "invalidation_condition": "close below 97500"}
	  },
	  {"symbol": "ETHUSDT", "action": "HOLD", "confidence": 0.5},
	  {"symbol": "SOLUSDT", "action": "CLOSE", "confidence": 0.9}
	]`

	intents, err := p.Parse(raw)
	require.NoError(t, err)
	require.Len(t, intents, 3)

	entry := intents[0]
	assert.Equal(t, "BTCUSDT", entry.Symbol)
	assert.Equal(t, types.ActionEnterLong, entry.Action)
	assert.InDelta(t, 0.1, entry.SizeFraction, 1e-9)
	assert.Equal(t, 10, entry.Leverage)
	assert.InDelta(t, 100000.0, entry.DecisionPrice, 1e-9)
	require.NotNil(t, entry.ExitPlan)
	assert.InDelta(t, 98000.0, entry.ExitPlan.StopLoss, 1e-9)
	assert.Equal(t, "close below 97500", entry.ExitPlan.Invalidation)

	assert.Equal(t, types.ActionHold, intents[1].Action)
	assert.Nil(t, intents[1].ExitPlan)
	assert.Equal(t, types.ActionClose, intents[2].Action)
}

func TestParseStopOnlyExitPlan(t *testing.T) {
	// Take profit is optional; a stop alone satisfies the schema.
	p := newTestParser(t)
	intents, err := p.Parse(`[{"symbol": "BTCUSDT", "action": "ENTER_LONG", "size_fraction": 0.1, "confidence": 0.8,
	  "exit_plan": {"stop_loss": 98000, "invalidation_condition": "close below 97500"}}]`)
	require.NoError(t, err)
	require.NotNil(t, intents[0].ExitPlan)
	assert.Zero(t, intents[0].ExitPlan.TakeProfit)
	assert.Equal(t, "close below 97500", intents[0].ExitPlan.Invalidation)
}

func TestParseNormalizesSymbols(t *testing.T) {
	p := newTestParser(t)
	intents, err := p.Parse(`[{"symbol": "btc/usdt:usdt", "action": "HOLD"}]`)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", intents[0].Symbol)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	p := newTestParser(t)

	cases := []struct {
		name string
		raw  string
	}{
		{"empty payload", ""},
		{"not json", "buy some bitcoin"},
		{"object not array", `{"symbol": "BTCUSDT", "action": "HOLD"}`},
		{"empty array", `[]`},
		{"unknown action", `[{"symbol": "BTCUSDT", "action": "YOLO"}]`},
		{"missing symbol", `[{"action": "HOLD"}]`},
		{"confidence out of range", `[{"symbol": "BTCUSDT", "action": "HOLD", "confidence": 1.5}]`},
		{"entry without exit plan", `[{"symbol": "BTCUSDT", "action": "ENTER_LONG", "size_fraction": 0.1, "confidence": 0.8}]`},
		{"entry without size", `[{"symbol": "BTCUSDT", "action": "ENTER_SHORT", "confidence": 0.8, "exit_plan": {"take_profit": 95000, "stop_loss": 102000}}]`},
		{"exit plan missing stop", `[{"symbol": "BTCUSDT", "action": "ENTER_LONG", "size_fraction": 0.1, "confidence": 0.8, "exit_plan": {"take_profit": 105000}}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Parse(tc.raw)
			assert.Error(t, err)
		})
	}
}
