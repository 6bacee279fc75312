package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestFromContextFallsBackToNop(t *testing.T) {
	l := FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, l.GetLevel())

	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctxLogger := FromContext(ctx)
	ctxLogger.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestLogTradeClosedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := WithAccount(zerolog.New(&buf), "acc-1")

	LogTradeClosed(logger, "t1", "ETHUSDT", "Take Profit", 2100, 42.5)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trade_closed", entry["event"])
	assert.Equal(t, "acc-1", entry["account_id"])
	assert.Equal(t, "Take Profit", entry["reason"])
	assert.Equal(t, 42.5, entry["pnl"])
}
