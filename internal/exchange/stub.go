package exchange

import (
	"math"
	"time"

	"github.com/ssystems27/demo-crypto-trading/internal/market"
)

// stubCandles generates a deterministic synthetic series ending at the most
// recent complete bucket: a slow sine wave around 100 with cyclic volume, so
// the same bucket always reproduces the same candle.
func (f *Feed) stubCandles(limit int) []market.Candle {
	step := tfDuration(f.timeframe)
	end := time.Now().UTC().Truncate(step)

	out := make([]market.Candle, limit)
	for i := 0; i < limit; i++ {
		open := end.Add(time.Duration(i-limit) * step)
		bucket := open.Unix() / int64(step.Seconds())
		phase := float64(bucket%97) / 97 * 2 * math.Pi
		closePx := 100 + 5*math.Sin(phase)
		openPx := 100 + 5*math.Sin(phase-0.1)
		out[i] = market.Candle{
			OpenTime: open,
			Open:     openPx,
			High:     math.Max(openPx, closePx) + 0.2,
			Low:      math.Min(openPx, closePx) - 0.2,
			Close:    closePx,
			Volume:   10 + float64(bucket%5),
		}
	}
	return out
}
