// Package exchange hosts candle sources for the polling loop.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssystems27/demo-crypto-trading/internal/market"
)

const (
	// ProviderStub emits deterministic synthetic candles (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance fetches kline history over the Binance REST API on every call.
	ProviderBinance = "binance"
	// ProviderBinanceWS maintains a rolling candle window from the Binance kline stream.
	ProviderBinanceWS = "binance-ws"
)

// ErrDataUnavailable wraps transport and venue faults; the polling loop
// treats it as a cycle-level error and retries on the next tick.
var ErrDataUnavailable = errors.New("exchange: market data unavailable")

const (
	defaultRESTURL   = "https://api.binance.com"
	defaultWSURL     = "wss://stream.binance.com:9443"
	defaultWindowCap = 512
)

// Feed serves ordered candle history for one symbol and timeframe from the
// configured provider.
type Feed struct {
	provider  string
	symbol    string
	timeframe string
	restURL   string
	wsURL     string
	windowCap int
	client    *http.Client
	log       zerolog.Logger

	mu     sync.RWMutex
	window []market.Candle // rolling cache kept by the websocket provider
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithRESTURL overrides the REST endpoint, mainly for tests.
func WithRESTURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.restURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithWSURL overrides the websocket endpoint.
func WithWSURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.wsURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithHTTPClient swaps the HTTP client used for REST calls.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Feed) {
		if client != nil {
			f.client = client
		}
	}
}

// WithWindowCap bounds the websocket provider's rolling candle cache.
func WithWindowCap(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.windowCap = n
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, symbol, timeframe string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:  strings.ToLower(strings.TrimSpace(provider)),
		symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		timeframe: timeframe,
		restURL:   defaultRESTURL,
		wsURL:     defaultWSURL,
		windowCap: defaultWindowCap,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Candles returns up to limit candles in open-time order, newest last.
func (f *Feed) Candles(ctx context.Context, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 1
	}
	switch f.provider {
	case ProviderBinance:
		return f.fetchKlines(ctx, limit)
	case ProviderBinanceWS:
		return f.snapshotWindow(limit)
	default:
		return f.stubCandles(limit), nil
	}
}

// Start runs the background stream for the websocket provider. It is a no-op
// for providers that fetch on demand.
func (f *Feed) Start(ctx context.Context) error {
	if f.provider != ProviderBinanceWS {
		return nil
	}
	return f.runKlineStream(ctx)
}

func (f *Feed) snapshotWindow(limit int) ([]market.Candle, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.window) == 0 {
		return nil, fmt.Errorf("%w: candle window empty", ErrDataUnavailable)
	}
	start := 0
	if len(f.window) > limit {
		start = len(f.window) - limit
	}
	out := make([]market.Candle, len(f.window)-start)
	copy(out, f.window[start:])
	return out, nil
}

// appendClosed folds a closed candle into the rolling window, ignoring
// duplicates and out-of-order buckets so open times stay strictly increasing.
func (f *Feed) appendClosed(c market.Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.window); n > 0 {
		last := f.window[n-1]
		if !c.OpenTime.After(last.OpenTime) {
			if c.OpenTime.Equal(last.OpenTime) {
				f.window[n-1] = c
			}
			return
		}
	}
	f.window = append(f.window, c)
	if len(f.window) > f.windowCap {
		f.window = f.window[len(f.window)-f.windowCap:]
	}
}

func (f *Feed) seedWindow(candles []market.Candle) {
	f.mu.Lock()
	f.window = f.window[:0]
	f.mu.Unlock()
	for _, c := range candles {
		f.appendClosed(c)
	}
}

// tfDuration maps a Binance interval token to its bucket length.
func tfDuration(tf string) time.Duration {
	switch tf {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 5 * time.Minute
	}
}
