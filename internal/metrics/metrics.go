package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_total", Help: "Webhook alerts received, by result"},
		[]string{"result"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders placed at the exchange"},
		[]string{"symbol", "side"},
	)
	OrderLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_latency_seconds",
			Help:    "Outbound exchange call latency",
			Buckets: prometheus.DefBuckets,
		},
	)
	AuditFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "audit_failures_total", Help: "Best-effort audit deliveries that failed"},
	)
)

func init() {
	prometheus.MustRegister(AlertsTotal, OrdersTotal, OrderLatency, AuditFailures)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
