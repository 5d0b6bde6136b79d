// Package trader runs the polling loop: fetch candles, compute the rolling
// indicator, detect threshold crossings, and apply simulated fills.
package trader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssystems27/demo-crypto-trading/internal/exchange"
	"github.com/ssystems27/demo-crypto-trading/internal/indicator"
	"github.com/ssystems27/demo-crypto-trading/internal/market"
	"github.com/ssystems27/demo-crypto-trading/internal/metrics"
	"github.com/ssystems27/demo-crypto-trading/internal/notify"
	"github.com/ssystems27/demo-crypto-trading/internal/paper"
	"github.com/ssystems27/demo-crypto-trading/internal/risk"
	"github.com/ssystems27/demo-crypto-trading/internal/strategy"
)

// CandleSource provides ordered candle history for the traded instrument.
type CandleSource interface {
	Candles(ctx context.Context, limit int) ([]market.Candle, error)
}

const defaultHistoryMultiple = 4

// Params collects the trader's collaborators and tuning.
type Params struct {
	Symbol          string
	Period          int
	HistoryMultiple int // candles fetched per cycle = multiple * period
	PollInterval    time.Duration
	Feed            CandleSource
	Detector        strategy.Detector
	Ledger          *paper.Ledger
	Limits          risk.Limits
	Notifier        notify.Notifier
	Recorder        paper.TradeRecorder // optional
	Log             zerolog.Logger
}

// Trader owns one instrument's polling loop. The loop is strictly
// sequential: one cycle at a time, ledger touched only from Run's goroutine.
type Trader struct {
	symbol          string
	period          int
	historyMultiple int
	pollInterval    time.Duration
	feed            CandleSource
	detector        strategy.Detector
	ledger          *paper.Ledger
	limits          risk.Limits
	notifier        notify.Notifier
	recorder        paper.TradeRecorder
	log             zerolog.Logger
}

// New wires a trader from Params, applying defaults for optional knobs.
func New(p Params) *Trader {
	if p.HistoryMultiple <= 0 {
		p.HistoryMultiple = defaultHistoryMultiple
	}
	return &Trader{
		symbol:          p.Symbol,
		period:          p.Period,
		historyMultiple: p.HistoryMultiple,
		pollInterval:    p.PollInterval,
		feed:            p.Feed,
		detector:        p.Detector,
		ledger:          p.Ledger,
		limits:          p.Limits,
		notifier:        p.Notifier,
		recorder:        p.Recorder,
		log:             p.Log,
	}
}

// Run executes cycles until the context is canceled. Any cycle fault is
// notified and logged, never propagated; the next tick always comes.
func (t *Trader) Run(ctx context.Context) error {
	t.log.Info().Str("strategy", t.detector.Name()).Dur("interval", t.pollInterval).Msg("paper trading loop started")

	t.runCycle(ctx)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.log.Info().Msg("paper trading loop stopped")
			return ctx.Err()
		case <-ticker.C:
			t.runCycle(ctx)
		}
	}
}

// runCycle isolates one cycle's faults at the loop boundary.
func (t *Trader) runCycle(ctx context.Context) {
	metrics.CyclesTotal.Inc()
	if err := t.cycle(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		metrics.CycleErrors.WithLabelValues(stageOf(err)).Inc()
		t.log.Error().Err(err).Msg("cycle failed")
		t.deliver(ctx, fmt.Sprintf("[ERROR] %v", err))
	}
}

func (t *Trader) cycle(ctx context.Context) error {
	limit := t.historyMultiple * t.period
	candles, err := t.feed.Candles(ctx, limit)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}

	samples, err := indicator.Compute(candles, t.period)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			t.log.Info().Int("candles", len(candles)).Int("period", t.period).Msg("not enough history for a z-score, skipping cycle")
			return nil
		}
		return fmt.Errorf("compute indicator: %w", err)
	}

	defined := indicator.Defined(samples)
	prev, cur, err := strategy.Latest(defined)
	if err != nil {
		if errors.Is(err, strategy.ErrInsufficientSamples) {
			t.log.Info().Int("defined", len(defined)).Msg("not enough defined samples, skipping cycle")
			return nil
		}
		return fmt.Errorf("select samples: %w", err)
	}
	metrics.LastZScore.WithLabelValues(t.symbol).Set(cur.ZScore)
	t.log.Debug().
		Time("candle", cur.Time).
		Float64("close", cur.Close).
		Float64("zscore", cur.ZScore).
		Float64("prev_zscore", prev.ZScore).
		Msg("cycle evaluated")

	switch t.detector.Evaluate(prev, cur, t.ledger.InPosition()) {
	case strategy.ActionBuy:
		return t.executeBuy(ctx, cur)
	case strategy.ActionSell:
		return t.executeSell(ctx, cur)
	default:
		return nil
	}
}

func (t *Trader) executeBuy(ctx context.Context, cur indicator.Sample) error {
	allocation := t.ledger.PlannedAllocation()
	if !t.limits.Allow(allocation) {
		t.log.Warn().Float64("allocation", allocation).Msg("buy skipped: allocation above risk cap")
		return nil
	}
	trade, err := t.ledger.Buy(cur.Close, cur.Time)
	if err != nil {
		return fmt.Errorf("apply buy: %w", err)
	}
	t.recordTrade(ctx, trade, t.buyMessage(trade))
	return nil
}

func (t *Trader) executeSell(ctx context.Context, cur indicator.Sample) error {
	trade, err := t.ledger.Sell(cur.Close, cur.Time)
	if err != nil {
		return fmt.Errorf("apply sell: %w", err)
	}
	t.recordTrade(ctx, trade, t.sellMessage(trade))
	return nil
}

func (t *Trader) recordTrade(ctx context.Context, trade paper.Trade, message string) {
	metrics.TradesTotal.WithLabelValues(trade.Symbol, string(trade.Side)).Inc()
	metrics.Balance.WithLabelValues(trade.Symbol).Set(trade.BalanceAfter)
	if t.recorder != nil {
		t.recorder.Record(trade)
	}
	t.log.Info().
		Str("side", string(trade.Side)).
		Float64("price", trade.Price).
		Float64("qty", trade.Quantity).
		Float64("fee", trade.Fee).
		Float64("balance", trade.BalanceAfter).
		Msg("paper trade")
	t.deliver(ctx, message)
}

// deliver sends a notification; delivery failures are logged and swallowed.
func (t *Trader) deliver(ctx context.Context, text string) {
	if err := t.notifier.Send(ctx, text); err != nil {
		metrics.NotifyFailures.Inc()
		t.log.Warn().Err(err).Msg("notification failed")
	}
}

func (t *Trader) buyMessage(trade paper.Trade) string {
	return fmt.Sprintf(
		"*PAPER BUY*\nTime: %s\nSymbol: %s\nBuy Price: `%.4f`\nAmount: `%.4f`\nSpent: `%.2f`\nFee: `%.2f`\nBalance Now: `%.2f`",
		trade.Time.Format(time.RFC3339), trade.Symbol, trade.Price, trade.Quantity, trade.Gross, trade.Fee, trade.BalanceAfter,
	)
}

func (t *Trader) sellMessage(trade paper.Trade) string {
	return fmt.Sprintf(
		"*PAPER SELL*\nTime: %s\nSymbol: %s\nSell Price: `%.4f`\nAmount: `%.4f`\nGross Proceeds: `%.2f`\nFee: `%.2f`\nProfit: `%.2f`\nBalance Now: `%.2f`",
		trade.Time.Format(time.RFC3339), trade.Symbol, trade.Price, trade.Quantity, trade.Gross, trade.Fee, trade.Profit, trade.BalanceAfter,
	)
}

func stageOf(err error) string {
	switch {
	case errors.Is(err, paper.ErrPositionOpen), errors.Is(err, paper.ErrNoPosition), errors.Is(err, paper.ErrInvalidPrice):
		return "ledger"
	case errors.Is(err, exchange.ErrDataUnavailable):
		return "fetch"
	default:
		return "cycle"
	}
}
