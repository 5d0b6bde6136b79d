package trader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssystems27/demo-crypto-trading/internal/exchange"
	"github.com/ssystems27/demo-crypto-trading/internal/market"
	"github.com/ssystems27/demo-crypto-trading/internal/notify"
	"github.com/ssystems27/demo-crypto-trading/internal/paper"
	"github.com/ssystems27/demo-crypto-trading/internal/risk"
	"github.com/ssystems27/demo-crypto-trading/internal/strategy"
)

type fakeFeed struct {
	candles []market.Candle
	err     error
	calls   int
}

func (f *fakeFeed) Candles(ctx context.Context, limit int) ([]market.Candle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

type captureNotifier struct {
	messages []string
	err      error
}

func (n *captureNotifier) Send(ctx context.Context, text string) error {
	n.messages = append(n.messages, text)
	return n.err
}

type captureRecorder struct {
	trades []paper.Trade
}

func (r *captureRecorder) Record(trade paper.Trade) {
	r.trades = append(r.trades, trade)
}

func series(closes ...float64) []market.Candle {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{OpenTime: base.Add(time.Duration(i) * 5 * time.Minute), Close: c, Volume: 1}
	}
	return out
}

func newTestTrader(feed CandleSource, ledger *paper.Ledger, notifier notify.Notifier, rec paper.TradeRecorder, limits risk.Limits) *Trader {
	return New(Params{
		Symbol:       "IOUSDC",
		Period:       3,
		PollInterval: time.Second,
		Feed:         feed,
		Detector:     strategy.NewMeanReversion(-1.1, 0.7),
		Ledger:       ledger,
		Limits:       limits,
		Notifier:     notifier,
		Recorder:     rec,
		Log:          zerolog.Nop(),
	})
}

func TestCycleBuyFlow(t *testing.T) {
	// z-score path over the defined samples crosses down through -1.1 at the
	// final candle (close 7).
	feed := &fakeFeed{candles: series(10, 10.5, 9.5, 10.2, 7)}
	ledger := paper.NewLedger("IOUSDC", 10000, 0.4, 0.001)
	notifier := &captureNotifier{}
	rec := &captureRecorder{}

	tr := newTestTrader(feed, ledger, notifier, rec, risk.Limits{})
	tr.runCycle(context.Background())

	if !ledger.InPosition() {
		t.Fatalf("expected open position after buy cycle")
	}
	snap := ledger.Snapshot()
	if math.Abs(snap.Balance-6000) > 1e-9 {
		t.Fatalf("expected balance 6000 after buy, got %.4f", snap.Balance)
	}
	if math.Abs(snap.PositionQty-3996.0/7) > 1e-9 {
		t.Fatalf("unexpected position quantity %.6f", snap.PositionQty)
	}
	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "*PAPER BUY*") {
		t.Fatalf("expected one PAPER BUY notification, got %+v", notifier.messages)
	}
	if len(rec.trades) != 1 || rec.trades[0].Side != paper.Buy {
		t.Fatalf("expected one recorded buy, got %+v", rec.trades)
	}
}

func TestCycleSellFlow(t *testing.T) {
	// While long, z-score crosses up through 0.7 at the final candle.
	feed := &fakeFeed{candles: series(10, 10.5, 9.5, 11.5)}
	ledger := paper.NewLedger("IOUSDC", 10000, 0.4, 0.001)
	if _, err := ledger.Buy(10, time.Now()); err != nil {
		t.Fatalf("setup buy failed: %v", err)
	}
	notifier := &captureNotifier{}

	tr := newTestTrader(feed, ledger, notifier, nil, risk.Limits{})
	tr.runCycle(context.Background())

	if ledger.InPosition() {
		t.Fatalf("expected flat position after sell cycle")
	}
	snap := ledger.Snapshot()
	if snap.PositionQty != 0 || snap.PositionCost != 0 {
		t.Fatalf("position not reset: %+v", snap)
	}
	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "*PAPER SELL*") {
		t.Fatalf("expected one PAPER SELL notification, got %+v", notifier.messages)
	}
	if !strings.Contains(notifier.messages[0], "Profit:") {
		t.Fatalf("sell notification missing profit: %s", notifier.messages[0])
	}
}

func TestCycleNoCrossingNoTrade(t *testing.T) {
	feed := &fakeFeed{candles: series(10, 10.2, 9.9, 10.1, 10.0, 10.15)}
	ledger := paper.NewLedger("IOUSDC", 10000, 0.4, 0.001)
	notifier := &captureNotifier{}

	tr := newTestTrader(feed, ledger, notifier, nil, risk.Limits{})
	tr.runCycle(context.Background())

	if ledger.InPosition() {
		t.Fatalf("expected no position without a crossing")
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("expected no notifications, got %+v", notifier.messages)
	}
}

func TestCycleFeedFaultNotifiesAndPreservesState(t *testing.T) {
	feed := &fakeFeed{err: fmt.Errorf("%w: connection refused", exchange.ErrDataUnavailable)}
	ledger := paper.NewLedger("IOUSDC", 10000, 0.4, 0.001)
	notifier := &captureNotifier{}

	tr := newTestTrader(feed, ledger, notifier, nil, risk.Limits{})
	tr.runCycle(context.Background())

	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "[ERROR]") {
		t.Fatalf("expected one error notification, got %+v", notifier.messages)
	}
	snap := ledger.Snapshot()
	if snap.Balance != 10000 || snap.PositionQty != 0 {
		t.Fatalf("ledger mutated on feed fault: %+v", snap)
	}
}

func TestCycleInsufficientHistorySkipsQuietly(t *testing.T) {
	feed := &fakeFeed{candles: series(10, 10.5)}
	ledger := paper.NewLedger("IOUSDC", 10000, 0.4, 0.001)
	notifier := &captureNotifier{}

	tr := newTestTrader(feed, ledger, notifier, nil, risk.Limits{})
	tr.runCycle(context.Background())

	if len(notifier.messages) != 0 {
		t.Fatalf("insufficient history must not notify, got %+v", notifier.messages)
	}
	if ledger.InPosition() {
		t.Fatalf("insufficient history must not trade")
	}
}

func TestCycleNotificationFailureSwallowed(t *testing.T) {
	feed := &fakeFeed{candles: series(10, 10.5, 9.5, 10.2, 7)}
	ledger := paper.NewLedger("IOUSDC", 10000, 0.4, 0.001)
	notifier := &captureNotifier{err: errors.New("telegram down")}

	tr := newTestTrader(feed, ledger, notifier, nil, risk.Limits{})
	tr.runCycle(context.Background())

	// The trade still happened; losing the notification is non-fatal.
	if !ledger.InPosition() {
		t.Fatalf("expected trade despite notification failure")
	}
}

func TestCycleRiskCapSkipsBuy(t *testing.T) {
	feed := &fakeFeed{candles: series(10, 10.5, 9.5, 10.2, 7)}
	ledger := paper.NewLedger("IOUSDC", 10000, 0.4, 0.001)
	notifier := &captureNotifier{}

	tr := newTestTrader(feed, ledger, notifier, nil, risk.Limits{MaxAllocationPerTrade: 1000})
	tr.runCycle(context.Background())

	if ledger.InPosition() {
		t.Fatalf("expected buy skipped by risk cap")
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("risk skip should not notify, got %+v", notifier.messages)
	}
}

func TestRunStopsOnCancelAndKeepsPolling(t *testing.T) {
	feed := &fakeFeed{err: fmt.Errorf("%w: flaky", exchange.ErrDataUnavailable)}
	ledger := paper.NewLedger("IOUSDC", 10000, 0.4, 0.001)
	notifier := &captureNotifier{}

	tr := New(Params{
		Symbol:       "IOUSDC",
		Period:       3,
		PollInterval: 10 * time.Millisecond,
		Feed:         feed,
		Detector:     strategy.NewMeanReversion(-1.1, 0.7),
		Ledger:       ledger,
		Limits:       risk.Limits{},
		Notifier:     notifier,
		Log:          zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	// The loop kept retrying on schedule despite every cycle failing.
	if feed.calls < 3 {
		t.Fatalf("expected repeated polls, got %d", feed.calls)
	}
}
