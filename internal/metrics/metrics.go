package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agenda",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	computations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agenda",
			Name:      "availability_computations_total",
			Help:      "Count of availability computations by result.",
		},
		[]string{"result"},
	)

	computeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "agenda",
			Name:      "availability_compute_duration_seconds",
			Help:      "Time to load schedules and compute slots.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1},
		},
	)

	slotsEmitted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "agenda",
			Name:      "availability_slots",
			Help:      "Number of slots returned per computation.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agenda",
			Name:      "availability_cache_total",
			Help:      "Availability cache lookups by result.",
		},
		[]string{"result"},
	)

	configReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agenda",
			Name:      "business_config_reloads_total",
			Help:      "Business config reloads by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, computations, computeDuration, slotsEmitted, cacheLookups, configReloads)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// ObserveComputation records one availability computation.
func ObserveComputation(d time.Duration, slots int, err error) {
	if err != nil {
		computations.WithLabelValues("error").Inc()
		return
	}
	computations.WithLabelValues("ok").Inc()
	computeDuration.Observe(d.Seconds())
	slotsEmitted.Observe(float64(slots))
}

func IncCacheHit() {
	cacheLookups.WithLabelValues("hit").Inc()
}

func IncCacheMiss() {
	cacheLookups.WithLabelValues("miss").Inc()
}

func IncConfigReload(ok bool) {
	if ok {
		configReloads.WithLabelValues("ok").Inc()
		return
	}
	configReloads.WithLabelValues("error").Inc()
}
