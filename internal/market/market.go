// Package market standardizes payloads shared between data ingestion and strategy layers.
package market

import "time"

// Candle models one fixed-interval OHLCV observation.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}
