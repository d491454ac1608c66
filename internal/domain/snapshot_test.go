package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTradingDayWindowStartsMidnightEastern(t *testing.T) {
	// 2024-11-15 14:30 UTC is 09:30 Eastern.
	now := time.Date(2024, 11, 15, 14, 30, 0, 0, time.UTC)
	w := TradingDayWindow(now)

	assert.Equal(t, now, w.To)
	et := w.From.In(easternTZ)
	assert.Equal(t, 0, et.Hour())
	assert.Equal(t, 0, et.Minute())
	assert.Equal(t, 15, et.Day())
}

func TestRecencyWindowUsesLookback(t *testing.T) {
	now := time.Date(2024, 11, 15, 14, 30, 0, 0, time.UTC)

	w := RecencyWindow(now, 2*time.Hour)
	assert.Equal(t, now.Add(-2*time.Hour), w.From)
	assert.Equal(t, now, w.To)

	// Zero lookback keeps the trading-day default.
	assert.Equal(t, TradingDayWindow(now), RecencyWindow(now, 0))
}
