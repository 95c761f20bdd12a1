package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	candlesStored *prometheus.CounterVec
	tradesTotal   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	streamState   *prometheus.GaugeVec
	usersPerTick  prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		candlesStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepull_candles_stored_total",
				Help: "Total confirmed candles written to the store",
			},
			[]string{"symbol", "interval", "source"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepull_trades_total",
				Help: "Trade attempts by outcome",
			},
			[]string{"result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepull_last_close_price",
				Help: "Close price of the last confirmed candle",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		streamState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepull_stream_state",
				Help: "Stream state (0 disconnected, 1 streaming, -1 failed)",
			},
			[]string{"symbol", "interval"},
		),
		usersPerTick: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradepull_scheduler_users_processed",
				Help: "Users processed in the last scheduler tick",
			},
		),
	}
}

// RecordCandleStored records a candle written to the store.
func (r *Recorder) RecordCandleStored(symbol, interval, source string) {
	r.candlesStored.WithLabelValues(symbol, interval, source).Inc()
}

// RecordTrade records one trade attempt outcome (success, failed, hold).
func (r *Recorder) RecordTrade(result string) {
	r.tradesTotal.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last confirmed close for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordStreamState records the ingestor state for a series.
func (r *Recorder) RecordStreamState(symbol, interval string, state float64) {
	r.streamState.WithLabelValues(symbol, interval).Set(state)
}

// RecordUsersProcessed records the user count of the last tick.
func (r *Recorder) RecordUsersProcessed(n int) {
	r.usersPerTick.Set(float64(n))
}
