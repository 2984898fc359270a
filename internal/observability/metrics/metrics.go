package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for session and import flows.
type SchedulingMetrics struct {
	importTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		importTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicpos",
			Subsystem: "scheduling",
			Name:      "import_total",
			Help:      "Appointment carry-forward attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.importTotal)
	return m
}

func (m *SchedulingMetrics) ObserveImport(outcome string) {
	if m == nil {
		return
	}
	m.importTotal.WithLabelValues(outcome).Inc()
}

// POSMetrics exposes counters/histograms for prescription-to-POS loading.
type POSMetrics struct {
	loadTotal   *prometheus.CounterVec
	loadLatency *prometheus.HistogramVec
}

func NewPOSMetrics(reg prometheus.Registerer) *POSMetrics {
	m := &POSMetrics{
		loadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicpos",
			Subsystem: "posload",
			Name:      "load_total",
			Help:      "Prescription POS loads by status",
		}, []string{"status"}),
		loadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicpos",
			Subsystem: "posload",
			Name:      "load_latency_seconds",
			Help:      "Latency of prescription POS loading",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.loadTotal, m.loadLatency)
	return m
}

func (m *POSMetrics) ObserveLoad(status string, seconds float64) {
	if m == nil {
		return
	}
	m.loadTotal.WithLabelValues(status).Inc()
	m.loadLatency.WithLabelValues(status).Observe(seconds)
}

// LiveMetrics tracks WebSocket fan-out for today's appointment feeds.
type LiveMetrics struct {
	connections   prometheus.Gauge
	subscriptions prometheus.Gauge
	pushTotal     *prometheus.CounterVec
}

func NewLiveMetrics(reg prometheus.Registerer) *LiveMetrics {
	m := &LiveMetrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinicpos",
			Subsystem: "live",
			Name:      "connections",
			Help:      "Open live-feed WebSocket connections",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinicpos",
			Subsystem: "live",
			Name:      "prescription_subscriptions",
			Help:      "Active per-appointment prescription subscriptions",
		}),
		pushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicpos",
			Subsystem: "live",
			Name:      "push_total",
			Help:      "Snapshots pushed to live-feed clients",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.connections, m.subscriptions, m.pushTotal)
	return m
}

func (m *LiveMetrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *LiveMetrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *LiveMetrics) SubscriptionsSet(n int) {
	if m == nil {
		return
	}
	m.subscriptions.Set(float64(n))
}

func (m *LiveMetrics) ObservePush(kind string) {
	if m == nil {
		return
	}
	m.pushTotal.WithLabelValues(kind).Inc()
}

// OutboxMetrics tracks event delivery.
type OutboxMetrics struct {
	deliveredTotal *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	m := &OutboxMetrics{
		deliveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicpos",
			Subsystem: "events",
			Name:      "delivered_total",
			Help:      "Outbox entries delivered by sink and status",
		}, []string{"sink", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.deliveredTotal)
	return m
}

func (m *OutboxMetrics) ObserveDelivery(sink, status string) {
	if m == nil {
		return
	}
	m.deliveredTotal.WithLabelValues(sink, status).Inc()
}
