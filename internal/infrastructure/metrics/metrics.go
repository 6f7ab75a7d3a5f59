package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_mutations_total",
		Help: "Committed and rejected conversation mutations",
	}, []string{"operation", "outcome"})

	Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsync_fanout_deliveries_total",
		Help: "Event deliveries handed to the broadcast layer",
	}, []string{"event", "outcome"})

	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Active websocket connections",
	})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(Mutations, Deliveries, Connections, RequestDuration)
	})
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveMutation counts one operation outcome ("ok" or an error kind).
func ObserveMutation(operation string, outcome string) {
	Mutations.WithLabelValues(operation, outcome).Inc()
}

func ObserveDelivery(event string, outcome string) {
	Deliveries.WithLabelValues(event, outcome).Inc()
}

// Middleware records request latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
