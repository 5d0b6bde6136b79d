package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "poll_cycles_total", Help: "Count of completed poll cycles"},
	)
	CycleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "poll_cycle_errors_total", Help: "Cycle faults by stage"},
		[]string{"stage"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "paper_trades_total", Help: "Simulated fills recorded"},
		[]string{"symbol", "side"},
	)
	NotifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "notify_failures_total", Help: "Notifications that could not be delivered"},
	)
	LastZScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "last_zscore", Help: "Most recent indicator z-score"},
		[]string{"symbol"},
	)
	Balance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "paper_balance", Help: "Simulated quote balance"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, CycleErrors, TradesTotal, NotifyFailures, LastZScore, Balance)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
