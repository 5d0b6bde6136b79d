package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ssystems27/demo-crypto-trading/internal/config"
	"github.com/ssystems27/demo-crypto-trading/internal/exchange"
	"github.com/ssystems27/demo-crypto-trading/internal/metrics"
	"github.com/ssystems27/demo-crypto-trading/internal/notify"
	"github.com/ssystems27/demo-crypto-trading/internal/paper"
	"github.com/ssystems27/demo-crypto-trading/internal/risk"
	"github.com/ssystems27/demo-crypto-trading/internal/strategy"
	"github.com/ssystems27/demo-crypto-trading/internal/trader"
	"github.com/ssystems27/demo-crypto-trading/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	flag.Parse()

	_ = godotenv.Load() // best-effort

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info", false)
		fallback.Fatal().Err(err).Msg("load config")
	}
	cfg.ApplyEnv()

	log := util.NewLogger(cfg.App.LogLevel, cfg.App.Env == "dev")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed := exchange.NewFeed(
		cfg.Exchange.Provider,
		cfg.Exchange.Symbol,
		cfg.Exchange.Timeframe,
		log,
		exchange.WithRESTURL(cfg.Exchange.RESTURL),
		exchange.WithWSURL(cfg.Exchange.WSURL),
	)
	go func() {
		if err := feed.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	var notifier notify.Notifier
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram setup")
		}
		notifier = tg
	} else {
		log.Warn().Msg("telegram token empty, notifications go to the log only")
		notifier = notify.NewLogNotifier(log)
	}

	var recorder paper.TradeRecorder
	if cfg.Paper.TradesPath != "" {
		jsonl, err := paper.NewJSONLRecorder(cfg.Paper.TradesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open trade journal")
		}
		defer jsonl.Close()
		recorder = jsonl
	}

	ledger := paper.NewLedger(cfg.Exchange.Symbol, cfg.Paper.InitialBalance, cfg.Paper.TradeAllocation, cfg.Paper.FeeRate)
	detector := strategy.Build(cfg.Strategy.Mode, strategy.Params{
		BuyThreshold:  cfg.Strategy.BuyThreshold,
		SellThreshold: cfg.Strategy.SellThreshold,
	})

	bot := trader.New(trader.Params{
		Symbol:          cfg.Exchange.Symbol,
		Period:          cfg.Strategy.VWAPPeriod,
		HistoryMultiple: cfg.Poll.HistoryMultiple,
		PollInterval:    time.Duration(cfg.Poll.IntervalSecs) * time.Second,
		Feed:            feed,
		Detector:        detector,
		Ledger:          ledger,
		Limits:          risk.Limits{MaxAllocationPerTrade: cfg.Risk.MaxAllocationPerTrade},
		Notifier:        notifier,
		Recorder:        recorder,
		Log:             log,
	})

	log.Info().Str("symbol", cfg.Exchange.Symbol).Str("timeframe", cfg.Exchange.Timeframe).Msg("paper engine started")
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("trader stopped")
	}
}
