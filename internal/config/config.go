// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Exchange describes where candle data comes from.
type Exchange struct {
	Name      string `yaml:"name"`
	Provider  string `yaml:"provider"` // binance | binance-ws | stub
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"` // e.g. 5m
	RESTURL   string `yaml:"rest_url"`
	WSURL     string `yaml:"ws_url"`
}

// Strategy groups the tunable knobs of the VWAP z-score detector.
type Strategy struct {
	Mode          string  `yaml:"mode"`
	VWAPPeriod    int     `yaml:"vwap_period"`
	BuyThreshold  float64 `yaml:"buy_threshold"`  // conventionally negative (oversold)
	SellThreshold float64 `yaml:"sell_threshold"` // conventionally positive
}

// Paper captures paper-trading account settings.
type Paper struct {
	InitialBalance  float64 `yaml:"initial_balance"`
	FeeRate         float64 `yaml:"fee_rate"`         // fraction, 0.001 = 0.1%
	TradeAllocation float64 `yaml:"trade_allocation"` // fraction of balance per buy
	TradesPath      string  `yaml:"trades_path"`      // optional JSONL journal
}

// Risk encodes guard-rails for how much size a simulated buy may take on.
type Risk struct {
	MaxAllocationPerTrade float64 `yaml:"max_allocation_per_trade"`
}

// Poll controls the cycle cadence and how much history each cycle fetches.
type Poll struct {
	IntervalSecs    int `yaml:"interval_secs"`
	HistoryMultiple int `yaml:"history_multiple"` // candles fetched = multiple * vwap_period
}

// Telegram holds notification delivery credentials. Token and chat id may be
// overridden by TELEGRAM_TOKEN / TELEGRAM_CHAT_ID (see ApplyEnv).
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Strategy Strategy `yaml:"strategy"`
	Paper    Paper    `yaml:"paper"`
	Risk     Risk     `yaml:"risk"`
	Poll     Poll     `yaml:"poll"`
	Telegram Telegram `yaml:"telegram"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides secrets from the environment so credentials can stay
// out of the YAML file.
func (c *Config) ApplyEnv() {
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		c.Telegram.Token = token
	}
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}

// Validate rejects configurations the trading core cannot run with.
func (c *Config) Validate() error {
	if c.Exchange.Symbol == "" {
		return fmt.Errorf("exchange.symbol is required")
	}
	if c.Strategy.VWAPPeriod < 1 {
		return fmt.Errorf("strategy.vwap_period must be >= 1, got %d", c.Strategy.VWAPPeriod)
	}
	if c.Poll.IntervalSecs <= 0 {
		return fmt.Errorf("poll.interval_secs must be > 0, got %d", c.Poll.IntervalSecs)
	}
	if c.Paper.InitialBalance <= 0 {
		return fmt.Errorf("paper.initial_balance must be > 0, got %.2f", c.Paper.InitialBalance)
	}
	if c.Paper.TradeAllocation <= 0 || c.Paper.TradeAllocation > 1 {
		return fmt.Errorf("paper.trade_allocation must be in (0, 1], got %.4f", c.Paper.TradeAllocation)
	}
	if c.Paper.FeeRate < 0 {
		return fmt.Errorf("paper.fee_rate must be >= 0, got %.4f", c.Paper.FeeRate)
	}
	return nil
}
