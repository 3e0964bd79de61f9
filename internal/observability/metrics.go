package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	messagesChecked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_checks_total",
			Help: "Messages that went through subscription enforcement",
		},
		[]string{"result"},
	)

	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "violations_total",
			Help: "Disqualified actions by resulting severity level",
		},
		[]string{"level"},
	)

	sweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sweep_pass_duration_seconds",
			Help:    "Time spent in each expiry sweep pass",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pass"},
	)

	sweptItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swept_items_total",
			Help: "Entities expired by the sweeper",
		},
		[]string{"kind"},
	)
)

func Init(addr string) {
	prometheus.MustRegister(messagesChecked, violationsTotal, sweepDuration, sweptItems)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()
}

func RecordCheck(result string) {
	messagesChecked.WithLabelValues(result).Inc()
}

func RecordViolation(level string) {
	violationsTotal.WithLabelValues(level).Inc()
}

func RecordSwept(kind string, count int) {
	sweptItems.WithLabelValues(kind).Add(float64(count))
}

// TimeSweepPass returns a stop function recording the pass duration.
func TimeSweepPass(pass string) func() {
	start := time.Now()
	return func() {
		sweepDuration.WithLabelValues(pass).Observe(time.Since(start).Seconds())
	}
}
