package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Release reasons recorded on the lock release counter.
const (
	ReleaseByUser    = "user"
	ReleaseExpired   = "expired"
	ReleaseReclaimed = "reclaimed"
)

// Metrics aggregates the engine's prometheus instruments on a private
// registry. A nil *Metrics is valid and records nothing, so tests can run
// the engine without wiring observability.
type Metrics struct {
	registry *prometheus.Registry

	locksAcquired         prometheus.Counter
	locksReleased         *prometheus.CounterVec
	lockExtensions        prometheus.Counter
	reservationsCreated   prometheus.Counter
	reservationsFulfilled prometheus.Counter
	reservationsClaimed   prometheus.Counter
	reservationsExpired   *prometheus.CounterVec
}

// New creates a metrics set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		locksAcquired: factory.NewCounter(prometheus.CounterOpts{
			Name: "rentabot_locks_acquired_total",
			Help: "Number of resource locks acquired.",
		}),
		locksReleased: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rentabot_locks_released_total",
			Help: "Number of resource locks released, by reason.",
		}, []string{"reason"}),
		lockExtensions: factory.NewCounter(prometheus.CounterOpts{
			Name: "rentabot_lock_extensions_total",
			Help: "Number of lock expiry refreshes.",
		}),
		reservationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "rentabot_reservations_created_total",
			Help: "Number of reservations accepted into the queue.",
		}),
		reservationsFulfilled: factory.NewCounter(prometheus.CounterOpts{
			Name: "rentabot_reservations_fulfilled_total",
			Help: "Number of reservations fulfilled by the scheduler.",
		}),
		reservationsClaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "rentabot_reservations_claimed_total",
			Help: "Number of fulfilled reservations claimed by clients.",
		}),
		reservationsExpired: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rentabot_reservations_expired_total",
			Help: "Number of reservations expired, by phase (pending or claim).",
		}, []string{"phase"}),
	}
}

// RegisterEngineGauges exposes point-in-time engine state: the number of
// currently locked resources and the reservation count per status. Called
// once at startup after the stores exist.
func (m *Metrics) RegisterEngineGauges(
	lockedResources func() float64,
	reservationsByStatus func(status string) float64,
) {
	if m == nil {
		return
	}
	factory := promauto.With(m.registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rentabot_resources_locked",
		Help: "Number of resources currently holding a lock.",
	}, lockedResources)
	for _, status := range []string{"pending", "fulfilled", "claimed"} {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "rentabot_reservations",
			Help:        "Number of reservations, by status.",
			ConstLabels: prometheus.Labels{"status": status},
		}, func() float64 { return reservationsByStatus(status) })
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) LockAcquired() {
	if m != nil {
		m.locksAcquired.Inc()
	}
}

func (m *Metrics) LockReleased(reason string) {
	if m != nil {
		m.locksReleased.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) LockExtended() {
	if m != nil {
		m.lockExtensions.Inc()
	}
}

func (m *Metrics) ReservationCreated() {
	if m != nil {
		m.reservationsCreated.Inc()
	}
}

func (m *Metrics) ReservationFulfilled() {
	if m != nil {
		m.reservationsFulfilled.Inc()
	}
}

func (m *Metrics) ReservationClaimed() {
	if m != nil {
		m.reservationsClaimed.Inc()
	}
}

func (m *Metrics) ReservationExpired(phase string) {
	if m != nil {
		m.reservationsExpired.WithLabelValues(phase).Inc()
	}
}
