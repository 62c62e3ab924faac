package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the conference core: roster load
// latency and the accept/reject counts of the two invariant-bearing
// registries.
type Metrics struct {
	RosterLoadDuration    prometheus.Histogram
	AuthoritiesRegistered prometheus.Counter
	DuplicateAuthorities  prometheus.Counter
	SchedulesRegistered   prometheus.Counter
	ScheduleConflicts     prometheus.Counter
}

// New creates a Metrics instance with all conference metrics registered.
func New() *Metrics {
	return &Metrics{
		RosterLoadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "summit_roster_load_duration_seconds",
			Help:    "Duration of roster load operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		AuthoritiesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "summit_authorities_registered_total",
			Help: "Total number of successfully registered authorities",
		}),
		DuplicateAuthorities: promauto.NewCounter(prometheus.CounterOpts{
			Name: "summit_duplicate_authority_rejections_total",
			Help: "Registrations rejected because the position was occupied",
		}),
		SchedulesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "summit_schedules_registered_total",
			Help: "Total number of successfully registered presentation slots",
		}),
		ScheduleConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "summit_schedule_conflict_rejections_total",
			Help: "Slot registrations rejected by the minimum-separation rule",
		}),
	}
}

// ObserveRosterLoad records the duration of a roster load. Call with
// time.Now() at the start of the operation.
func (m *Metrics) ObserveRosterLoad(start time.Time) {
	m.RosterLoadDuration.Observe(time.Since(start).Seconds())
}
