package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "restobook"

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_created_total",
			Help:      "Count of reservations created by source.",
		},
		[]string{"source"},
	)

	reservationStateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_state_changes_total",
			Help:      "Count of reservation state transitions by target state.",
		},
		[]string{"state"},
	)

	reservationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_conflicts_total",
			Help:      "Count of reservation writes rejected because a spot was already taken.",
		},
	)

	availabilityQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_queries_total",
			Help:      "Count of availability lookups by resulting tier.",
		},
		[]string{"result"},
	)

	schemaUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_updates_total",
			Help:      "Count of floor plan changes by operation.",
		},
		[]string{"operation"},
	)

	lifecycleTransitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Count of reservations advanced by the lifecycle worker.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route, method and status code.",
		},
		[]string{"endpoint", "method", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationCreated,
			reservationStateChanges,
			reservationConflicts,
			availabilityQueries,
			schemaUpdates,
			lifecycleTransitions,
			httpRequests,
			httpDuration,
		)
	})
}

func IncReservationCreated(source string) {
	reservationCreated.WithLabelValues(source).Inc()
}

func IncStateChange(state string) {
	reservationStateChanges.WithLabelValues(state).Inc()
}

func IncConflict() {
	reservationConflicts.Inc()
}

func IncAvailabilityQuery(result string) {
	availabilityQueries.WithLabelValues(result).Inc()
}

func IncSchemaUpdate(operation string) {
	schemaUpdates.WithLabelValues(operation).Inc()
}

func AddLifecycleTransitions(n int) {
	lifecycleTransitions.Add(float64(n))
}

// ObserveHTTP records one served request. endpoint is the matched route pattern.
func ObserveHTTP(endpoint, method string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
