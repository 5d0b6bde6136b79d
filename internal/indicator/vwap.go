// Package indicator computes the rolling VWAP z-score series that drives
// the mean-reversion detector.
package indicator

import (
	"errors"
	"math"
	"time"

	"github.com/ssystems27/demo-crypto-trading/internal/market"
)

// ErrInsufficientData is returned when fewer candles than the rolling period
// are supplied, so no sample could ever become defined.
var ErrInsufficientData = errors.New("indicator: insufficient candles for period")

// Sample pairs a candle's close with the rolling statistics computed over the
// trailing window ending at that candle. Valid is false while the window is
// still filling, when the window traded zero volume, or when the deviation
// collapses to zero.
type Sample struct {
	Time      time.Time
	Close     float64
	VWAP      float64
	Deviation float64
	ZScore    float64
	Valid     bool
}

// Compute derives one Sample per candle. The deviation is the RMS distance of
// closes from the window's own VWAP scalar, not a rolling standard deviation.
// Pure function: identical input always yields identical output.
func Compute(candles []market.Candle, period int) ([]Sample, error) {
	if period < 1 {
		return nil, errors.New("indicator: period must be >= 1")
	}
	if len(candles) < period {
		return nil, ErrInsufficientData
	}

	samples := make([]Sample, len(candles))
	for i, c := range candles {
		samples[i] = Sample{Time: c.OpenTime, Close: c.Close}
		if i < period-1 {
			continue
		}

		window := candles[i-period+1 : i+1]
		var volSum, pvSum float64
		for _, w := range window {
			volSum += w.Volume
			pvSum += w.Close * w.Volume
		}
		if volSum == 0 {
			continue
		}
		vwap := pvSum / volSum

		var sq float64
		for _, w := range window {
			d := w.Close - vwap
			sq += d * d
		}
		dev := math.Sqrt(sq / float64(period))

		samples[i].VWAP = vwap
		samples[i].Deviation = dev
		if dev == 0 {
			continue
		}
		samples[i].ZScore = (c.Close - vwap) / dev
		samples[i].Valid = true
	}
	return samples, nil
}

// Defined filters out samples whose z-score is undefined.
func Defined(samples []Sample) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.Valid {
			out = append(out, s)
		}
	}
	return out
}
