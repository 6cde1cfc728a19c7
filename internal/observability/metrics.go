package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexa_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vexa_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vexa_ws_active_connections",
			Help: "Number of open websocket sessions.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexa_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"event"},
	)
	messagesPersistedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexa_messages_persisted_total",
			Help: "Messages durably stored.",
		},
	)
	messagesDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexa_messages_delivered_total",
			Help: "Message frames handed to sessions.",
		},
		[]string{"source"},
	)
	messagesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexa_messages_dropped_total",
			Help: "Inbound frames dropped before persistence or delivery.",
		},
		[]string{"reason"},
	)
	persistDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vexa_message_persist_duration_seconds",
			Help:    "Time spent storing a message.",
			Buckets: prometheus.DefBuckets,
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexa_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	relayErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexa_relay_errors_total",
			Help: "Cross-instance relay failures.",
		},
		[]string{"op"},
	)
	presenceMirrorErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vexa_presence_mirror_errors_total",
			Help: "Failed writes to the shared presence store.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		messagesPersistedTotal,
		messagesDeliveredTotal,
		messagesDroppedTotal,
		persistDuration,
		amqpPublishErrorsTotal,
		relayErrorsTotal,
		presenceMirrorErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func ObservePersist(d time.Duration) {
	messagesPersistedTotal.Inc()
	persistDuration.Observe(d.Seconds())
}

// AddDelivered counts frames handed to sessions; source is "local" or "relay".
func AddDelivered(source string, n int) {
	messagesDeliveredTotal.WithLabelValues(source).Add(float64(n))
}

func IncDropped(reason string) {
	messagesDroppedTotal.WithLabelValues(reason).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncRelayError(op string) {
	relayErrorsTotal.WithLabelValues(op).Inc()
}

func IncPresenceMirrorError() {
	presenceMirrorErrorsTotal.Inc()
}
