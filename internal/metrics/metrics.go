package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "videorelay"

// Metrics agrupa os coletores expostos em /metrics. Métodos aceitam receiver nil.
type Metrics struct {
	uploadsTotal    *prometheus.CounterVec
	uploadBytes     *prometheus.CounterVec
	uploadDuration  *prometheus.HistogramVec
	progressStreams prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registra os coletores no registry informado.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploads relayed to the media host by outcome",
		}, []string{"provider", "outcome"}),

		uploadBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes successfully relayed to the media host",
		}, []string{"provider"}),

		uploadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Remote upload duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"provider", "outcome"}),

		progressStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "progress_streams",
			Help:      "Open progress event streams",
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveUpload registra o resultado de um envio remoto.
func (m *Metrics) ObserveUpload(provider string, ok bool, bytes int64, dur time.Duration) {
	if m == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "completed"
		m.uploadBytes.WithLabelValues(provider).Add(float64(bytes))
	}
	m.uploadsTotal.WithLabelValues(provider, outcome).Inc()
	m.uploadDuration.WithLabelValues(provider, outcome).Observe(dur.Seconds())
}

// StreamOpened incrementa o gauge de streams SSE e devolve a função de fechamento.
func (m *Metrics) StreamOpened() func() {
	if m == nil {
		return func() {}
	}
	m.progressStreams.Inc()
	return m.progressStreams.Dec
}

// ObserveHTTP registra uma requisição HTTP concluída.
func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}
