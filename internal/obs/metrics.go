package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registerOnce sync.Once

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Domain metrics
var (
	DevicesRegistered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smarthome_devices_registered_total",
		Help: "Devices registered as pending.",
	})

	DevicesActivated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smarthome_devices_activated_total",
		Help: "Devices that completed the provisioning handshake.",
	})

	ValidationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smarthome_device_validation_failures_total",
		Help: "Rejected provisioning attempts by reason.",
	}, []string{"reason"})

	ApplianceChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smarthome_appliance_state_changes_total",
		Help: "Appliance state changes by origin and new state.",
	}, []string{"origin", "state"})

	SweptRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smarthome_swept_records_total",
		Help: "Records removed by the expiry sweeper.",
	}, []string{"kind"})

	PushSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smarthome_push_notifications_total",
		Help: "Web push deliveries by result.",
	}, []string{"result"})
)

// Init registers all metrics in the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			DevicesRegistered, DevicesActivated, ValidationFailures,
			ApplianceChanges, SweptRecords, PushSent,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count, latency and in-flight requests per route.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		httpRequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, route, status).Inc()
		httpInFlight.Dec()
	}
}
