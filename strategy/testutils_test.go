package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/evdnx/gotsgrid/config"
	"github.com/evdnx/gotsgrid/testutils"
	"github.com/evdnx/gotsgrid/types"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// candle is the OHLCV shape the tests build series from.
type candle struct {
	open, high, low, close, volume float64
}

func (c candle) bar(i int) types.Bar {
	open := c.open
	if open == 0 {
		open = c.close
	}
	return types.Bar{
		OpenTime:  t0.Add(time.Duration(i) * time.Minute),
		Open:      open,
		High:      c.high,
		Low:       c.low,
		Close:     c.close,
		Volume:    c.volume,
		CloseTime: t0.Add(time.Duration(i+1) * time.Minute),
	}
}

// ramp returns n bars moving step per bar from start with a fixed 1.0 range.
func ramp(start, step float64, n int) []candle {
	out := make([]candle, 0, n)
	for i := 1; i <= n; i++ {
		price := start + step*float64(i)
		out = append(out, candle{
			high:   price + 0.5,
			low:    price - 0.5,
			close:  price,
			volume: 1000,
		})
	}
	return out
}

func buildConfig() config.StrategyConfig {
	cfg := config.Default()
	cfg.HMAPeriod = 9
	cfg.ATSEMAperiod = 5
	cfg.ATRPeriod = 5
	cfg.BaseVolume = 0.1
	cfg.StopDistance = 5
	cfg.TakeDistance = 3
	cfg.GridMode = config.GridNone
	return cfg
}

func buildGridMartingale(t *testing.T, cfg config.StrategyConfig) (*GridMartingale, *testutils.MockExecutor) {
	t.Helper()
	mockExec := testutils.NewMockExecutor(10_000)
	gm, err := NewGridMartingale("TEST", cfg, mockExec, testutils.NewMockLogger())
	if err != nil {
		t.Fatalf("NewGridMartingale failed: %v", err)
	}
	return gm, mockExec
}

// feed runs candles through gm starting at bar index from and returns the
// index of the next bar.
func feed(t *testing.T, gm *GridMartingale, from int, cs []candle) int {
	t.Helper()
	for _, c := range cs {
		gm.ProcessBar(context.Background(), c.bar(from))
		from++
	}
	return from
}
