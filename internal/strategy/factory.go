package strategy

import "strings"

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	BuyThreshold  float64
	SellThreshold float64
}

// Build returns a detector implementation matching the configured mode.
func Build(mode string, params Params) Detector {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "vwap_zscore", "mean_reversion":
		return NewMeanReversion(params.BuyThreshold, params.SellThreshold)
	default:
		return NewMeanReversion(params.BuyThreshold, params.SellThreshold)
	}
}
