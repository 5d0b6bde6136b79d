package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ssystems27/demo-crypto-trading/internal/market"
)

// fetchKlines pulls the latest candle history over the Binance REST API.
// Kline rows arrive as mixed-type arrays: open time as a number, prices and
// volume as strings.
func (f *Feed) fetchKlines(ctx context.Context, limit int) ([]market.Candle, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d", f.restURL, f.symbol, f.timeframe, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "paperbot/1.0 (paper)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http do: %v", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrDataUnavailable, resp.StatusCode)
	}

	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrDataUnavailable, err)
	}
	return parseKlineRows(rows)
}

func parseKlineRows(rows [][]any) ([]market.Candle, error) {
	candles := make([]market.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d too short: %d fields", i, len(row))
		}
		openTime, err := asInt64(row[0])
		if err != nil {
			return nil, fmt.Errorf("kline row %d open time: %w", i, err)
		}
		fields := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			v, err := asFloat(row[j])
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j, err)
			}
			fields[j-1] = v
		}
		candle := market.Candle{
			OpenTime: time.UnixMilli(openTime).UTC(),
			Open:     fields[0],
			High:     fields[1],
			Low:      fields[2],
			Close:    fields[3],
			Volume:   fields[4],
		}
		if n := len(candles); n > 0 && !candle.OpenTime.After(candles[n-1].OpenTime) {
			return nil, fmt.Errorf("kline row %d out of order: %s", i, candle.OpenTime)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseFloat(t, 64)
	case float64:
		return t, nil
	case json.Number:
		return t.Float64()
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}

func asInt64(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported integer type %T", v)
	}
}
