package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "social_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "social_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "social_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	mintsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "social_layer",
			Subsystem: "ledger",
			Name:      "mints_total",
			Help:      "Total number of tokens minted.",
		},
	)

	postsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "social_layer",
			Subsystem: "ledger",
			Name:      "posts_total",
			Help:      "Total number of posts uploaded.",
		},
	)

	tipsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "social_layer",
			Subsystem: "ledger",
			Name:      "tips_total",
			Help:      "Total number of tips recorded.",
		},
	)

	tipVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "social_layer",
			Subsystem: "ledger",
			Name:      "tip_volume_total",
			Help:      "Accumulated tip value in smallest currency units.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		mintsTotal,
		postsTotal,
		tipsTotal,
		tipVolume,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordMint counts a successful mint.
func RecordMint() {
	mintsTotal.Inc()
}

// RecordPostUpload counts a successful upload.
func RecordPostUpload() {
	postsTotal.Inc()
}

// RecordTip counts a successful tip and its value.
func RecordTip(amount int64) {
	tipsTotal.Inc()
	if amount > 0 {
		tipVolume.Add(float64(amount))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack passes through so websocket upgrades keep working behind the
// recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hj.Hijack()
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")

	switch parts[0] {
	case "accounts":
		if len(parts) == 1 {
			return "/accounts"
		}
		if len(parts) == 2 {
			return "/accounts/:address"
		}
		return "/accounts/:address/" + parts[2]
	case "posts":
		if len(parts) == 1 {
			return "/posts"
		}
		return "/posts/:id"
	case "tokens":
		if len(parts) == 1 {
			return "/tokens"
		}
		if len(parts) == 2 {
			return "/tokens/:id"
		}
		return "/tokens/:id/" + parts[2]
	default:
		return "/" + parts[0]
	}
}
