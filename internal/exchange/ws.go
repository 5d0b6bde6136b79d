package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ssystems27/demo-crypto-trading/internal/market"
)

type klineEvent struct {
	EventType string       `json:"e"`
	Kline     klinePayload `json:"k"`
}

type klinePayload struct {
	OpenTime int64  `json:"t"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

// runKlineStream seeds the rolling window over REST, then keeps it current
// from the kline stream, reconnecting with capped backoff.
func (f *Feed) runKlineStream(ctx context.Context) error {
	if seed, err := f.fetchKlines(ctx, f.windowCap); err != nil {
		f.log.Warn().Err(err).Msg("kline window seed failed, starting empty")
	} else {
		f.seedWindow(seed)
	}

	url := fmt.Sprintf("%s/ws/%s@kline_%s", f.wsURL, strings.ToLower(f.symbol), f.timeframe)
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeKlineStream(ctx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("kline stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeKlineStream(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinanceWS).Str("symbol", f.symbol).Msg("connected kline stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("kline stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event klineEvent
		if err := json.Unmarshal(message, &event); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode kline event")
			continue
		}
		if event.EventType != "kline" || !event.Kline.Closed {
			continue
		}
		candle, err := event.Kline.toCandle()
		if err != nil {
			f.log.Warn().Err(err).Msg("invalid kline payload")
			continue
		}
		f.appendClosed(candle)
	}
}

func (k klinePayload) toCandle() (market.Candle, error) {
	fields := [5]string{k.Open, k.High, k.Low, k.Close, k.Volume}
	var parsed [5]float64
	for i, raw := range fields {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("parse kline field %d: %w", i, err)
		}
		parsed[i] = v
	}
	return market.Candle{
		OpenTime: time.UnixMilli(k.OpenTime).UTC(),
		Open:     parsed[0],
		High:     parsed[1],
		Low:      parsed[2],
		Close:    parsed[3],
		Volume:   parsed[4],
	}, nil
}
