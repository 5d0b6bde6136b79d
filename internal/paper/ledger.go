// Package paper simulates fills against an in-memory account; no real orders
// are ever placed.
package paper

import (
	"errors"
	"sync"
	"time"
)

// Side enumerates trade directions recorded by the ledger.
type Side string

const (
	// Buy indicates a simulated long entry.
	Buy Side = "BUY"
	// Sell indicates a simulated long exit.
	Sell Side = "SELL"
)

var (
	// ErrPositionOpen is returned when a buy is attempted while already long.
	ErrPositionOpen = errors.New("paper: position already open")
	// ErrNoPosition is returned when a sell is attempted while flat.
	ErrNoPosition = errors.New("paper: no open position")
	// ErrInvalidPrice rejects non-positive fill prices.
	ErrInvalidPrice = errors.New("paper: price must be positive")
)

// Trade is one simulated fill, shaped for the notification message and the
// JSONL journal.
type Trade struct {
	Time         time.Time `json:"time"`
	Symbol       string    `json:"symbol"`
	Side         Side      `json:"side"`
	Price        float64   `json:"price"`
	Quantity     float64   `json:"quantity"`
	Gross        float64   `json:"gross"` // quote spent on buys, raw proceeds on sells
	Fee          float64   `json:"fee"`
	Profit       float64   `json:"profit,omitempty"` // sells only
	BalanceAfter float64   `json:"balance_after"`
}

// Snapshot is a read-only view of the trading state.
type Snapshot struct {
	Balance      float64
	PositionQty  float64
	PositionCost float64
}

// Ledger owns the simulated balance and the single long position. At most one
// position is open at a time; there is no shorting and no averaging in.
type Ledger struct {
	mu         sync.Mutex
	symbol     string
	allocation float64 // fraction of balance deployed per buy
	feeRate    float64

	balance      float64
	positionQty  float64
	positionCost float64
	trades       []Trade
}

// NewLedger constructs a flat ledger holding the starting quote balance.
func NewLedger(symbol string, initialBalance, allocationFraction, feeRate float64) *Ledger {
	return &Ledger{
		symbol:     symbol,
		allocation: allocationFraction,
		feeRate:    feeRate,
		balance:    initialBalance,
	}
}

// PlannedAllocation reports how much quote currency the next buy would
// deploy, for risk checks ahead of the fill.
func (l *Ledger) PlannedAllocation() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allocation * l.balance
}

// Buy opens the long position at the given price. The fee is taken out of the
// allocation before sizing the position, while the cost basis keeps the full
// cash outlay including the fee; the original accounting is preserved on
// purpose even though it counts the entry fee against the trader twice.
func (l *Ledger) Buy(price float64, ts time.Time) (Trade, error) {
	if price <= 0 {
		return Trade{}, ErrInvalidPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.positionQty > 0 {
		return Trade{}, ErrPositionOpen
	}

	allocation := l.allocation * l.balance
	fee := allocation * l.feeRate
	quantity := (allocation - fee) / price

	l.positionQty = quantity
	l.positionCost = allocation
	l.balance -= allocation

	trade := Trade{
		Time:         ts,
		Symbol:       l.symbol,
		Side:         Buy,
		Price:        price,
		Quantity:     quantity,
		Gross:        allocation,
		Fee:          fee,
		BalanceAfter: l.balance,
	}
	l.trades = append(l.trades, trade)
	return trade, nil
}

// Sell closes the open position at the given price, realizing profit net of
// the exit fee against the stored cost basis.
func (l *Ledger) Sell(price float64, ts time.Time) (Trade, error) {
	if price <= 0 {
		return Trade{}, ErrInvalidPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.positionQty == 0 {
		return Trade{}, ErrNoPosition
	}

	rawProceeds := l.positionQty * price
	fee := rawProceeds * l.feeRate
	netProceeds := rawProceeds - fee
	profit := netProceeds - l.positionCost

	trade := Trade{
		Time:         ts,
		Symbol:       l.symbol,
		Side:         Sell,
		Price:        price,
		Quantity:     l.positionQty,
		Gross:        rawProceeds,
		Fee:          fee,
		Profit:       profit,
		BalanceAfter: l.balance + netProceeds,
	}

	l.balance += netProceeds
	l.positionQty = 0
	l.positionCost = 0

	l.trades = append(l.trades, trade)
	return trade, nil
}

// InPosition reports whether the long position is currently open.
func (l *Ledger) InPosition() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positionQty > 0
}

// Snapshot returns a copy of the current trading state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Balance:      l.balance,
		PositionQty:  l.positionQty,
		PositionCost: l.positionCost,
	}
}

// History returns a copy of every trade recorded since startup.
func (l *Ledger) History() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}
