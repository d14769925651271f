package allocator

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/carealloc/model"
	"github.com/viant/carealloc/occupancy"
)

const namespace = "carealloc"

const (
	outcomeAllocated       = "allocated"
	outcomeIdle            = "idle"
	outcomeFailed          = "failed"
	outcomeReleased        = "released"
	outcomeNotFound        = "not_found"
	outcomeAlreadyReleased = "already_released"
)

// Metrics holds allocator instruments
type Metrics struct {
	Cycles        *prometheus.CounterVec
	Allocations   prometheus.Counter
	Releases      *prometheus.CounterVec
	Submissions   prometheus.Counter
	CycleDuration prometheus.Histogram
	Requests      *prometheus.GaugeVec
	Resources     *prometheus.GaugeVec
}

// NewMetrics creates allocator instruments and registers them with registerer
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	ret := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Allocation cycles by outcome.",
		}, []string{"outcome"}),
		Allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "Requests matched to a resource.",
		}),
		Releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_total",
			Help:      "Release calls by outcome.",
		}, []string{"outcome"}),
		Submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Requests submitted to the queue.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Allocation cycle duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		Requests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests",
			Help:      "Requests by status.",
		}, []string{"status"}),
		Resources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resources",
			Help:      "Resources by status.",
		}, []string{"status"}),
	}
	if registerer == nil {
		return ret, nil
	}
	for _, collector := range []prometheus.Collector{ret.Cycles, ret.Allocations, ret.Releases, ret.Submissions, ret.CycleDuration, ret.Requests, ret.Resources} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (m *Metrics) observeCycle(cycle *Cycle, err error) {
	if m == nil {
		return
	}
	m.CycleDuration.Observe(cycle.Duration.Seconds())
	switch {
	case err != nil:
		m.Cycles.WithLabelValues(outcomeFailed).Inc()
	case len(cycle.Matches) == 0:
		m.Cycles.WithLabelValues(outcomeIdle).Inc()
	default:
		m.Cycles.WithLabelValues(outcomeAllocated).Inc()
	}
	m.Allocations.Add(float64(len(cycle.Matches)))
}

func (m *Metrics) observeRelease(err error) {
	if m == nil {
		return
	}
	outcome := outcomeReleased
	switch {
	case errors.Is(err, ErrAllocationNotFound):
		outcome = outcomeNotFound
	case errors.Is(err, ErrAlreadyReleased):
		outcome = outcomeAlreadyReleased
	case err != nil:
		outcome = outcomeFailed
	}
	m.Releases.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeSubmission() {
	if m == nil {
		return
	}
	m.Submissions.Inc()
}

// ObserveOccupancy sets the occupancy gauges
func (m *Metrics) ObserveOccupancy(counts occupancy.Counts) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(model.RequestStatusQueued).Set(float64(counts.Queued))
	m.Requests.WithLabelValues(model.RequestStatusAllocated).Set(float64(counts.Allocated))
	m.Requests.WithLabelValues(model.RequestStatusCompleted).Set(float64(counts.Completed))
	m.Resources.WithLabelValues(model.ResourceStatusFree).Set(float64(counts.Free))
	m.Resources.WithLabelValues(model.ResourceStatusInUse).Set(float64(counts.InUse))
}
