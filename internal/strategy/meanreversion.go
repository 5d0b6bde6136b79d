// Package strategy contains trading signal generation logic wired into indicator samples.
package strategy

import (
	"errors"
	"fmt"

	"github.com/ssystems27/demo-crypto-trading/internal/indicator"
)

// Action is the decision produced for one poll cycle.
type Action int

const (
	// ActionNone means no threshold was crossed this cycle.
	ActionNone Action = iota
	// ActionBuy opens the single long position.
	ActionBuy
	// ActionSell closes the open position.
	ActionSell
)

// String returns the action name for logging.
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "NONE"
	}
}

// ErrInsufficientSamples signals that fewer than two defined indicator
// samples exist; the caller should skip the cycle and wait for the next poll.
var ErrInsufficientSamples = errors.New("strategy: need two defined samples")

// Detector classifies consecutive indicator samples into trade actions.
type Detector interface {
	Evaluate(prev, cur indicator.Sample, inPosition bool) Action
	Name() string
}

// Latest selects the two newest samples for threshold evaluation, failing
// with ErrInsufficientSamples when fewer than two exist.
func Latest(samples []indicator.Sample) (prev, cur indicator.Sample, err error) {
	if len(samples) < 2 {
		return indicator.Sample{}, indicator.Sample{}, ErrInsufficientSamples
	}
	return samples[len(samples)-2], samples[len(samples)-1], nil
}

// MeanReversion fires on strict threshold crossings of the VWAP z-score:
// a buy when the z-score falls through the oversold threshold while flat, a
// sell when it rises through the take-profit threshold while long. Level
// comparisons alone never trigger.
type MeanReversion struct {
	buyThreshold  float64
	sellThreshold float64
}

// NewMeanReversion builds the detector. Buy threshold is conventionally
// negative and sell threshold positive; both default to -1.1 / 0.7 when left
// unset together.
func NewMeanReversion(buyThreshold, sellThreshold float64) *MeanReversion {
	if buyThreshold == 0 && sellThreshold == 0 {
		buyThreshold = -1.1
		sellThreshold = 0.7
	}
	return &MeanReversion{buyThreshold: buyThreshold, sellThreshold: sellThreshold}
}

// Name returns the identifier for the strategy implementation.
func (m *MeanReversion) Name() string {
	return fmt.Sprintf("VWAPZScoreReversion(%.2f/%.2f)", m.buyThreshold, m.sellThreshold)
}

// Evaluate compares the two most recent defined samples against the
// configured thresholds. At most one of buy/sell is reachable per call since
// eligibility depends on mutually exclusive position states.
func (m *MeanReversion) Evaluate(prev, cur indicator.Sample, inPosition bool) Action {
	if inPosition {
		if prev.ZScore < m.sellThreshold && cur.ZScore >= m.sellThreshold {
			return ActionSell
		}
		return ActionNone
	}
	if prev.ZScore > m.buyThreshold && cur.ZScore <= m.buyThreshold {
		return ActionBuy
	}
	return ActionNone
}
