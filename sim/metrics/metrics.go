// Package metrics exposes kitchen occupancy and admission outcomes as prometheus collectors.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cookstage"

// Admission outcomes used as label values.
const (
	OutcomeUnit     = "unit"
	OutcomeBuffer   = "buffer"
	OutcomePromoted = "promoted"
	OutcomeRejected = "rejected"
	OutcomeTooLarge = "too_large"
)

// Collectors groups every kitchen metric. A nil *Collectors is valid and records nothing.
type Collectors struct {
	occupancy   *prometheus.GaugeVec
	items       *prometheus.GaugeVec
	admissions  *prometheus.CounterVec
	lineEvents  *prometheus.CounterVec
	completions prometheus.Counter
	lost        prometheus.Counter
	lines       prometheus.Gauge
}

// New creates the kitchen collectors and registers them on reg.
// Use a fresh prometheus.NewRegistry() per kitchen to keep tests independent.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		occupancy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "holder_occupied_size",
				Help:      "Summed size of the items currently held by a unit or buffer.",
			},
			[]string{"kind", "index"},
		),
		items: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "holder_items",
				Help:      "Number of items currently held by a unit or buffer.",
			},
			[]string{"kind", "index"},
		),
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admissions_total",
				Help:      "Admission decisions by outcome.",
			},
			[]string{"outcome"},
		),
		lineEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "line_events_total",
				Help:      "Line pauses, resumes, blocks and stops.",
			},
			[]string{"event"},
		),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Items that finished cooking and were returned to their line.",
		}),
		lost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lost_items_total",
			Help:      "Items whose completion was interrupted by a hard kill.",
		}),
		lines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lines",
			Help:      "Number of registered production lines.",
		}),
	}
	reg.MustRegister(c.occupancy, c.items, c.admissions, c.lineEvents, c.completions, c.lost, c.lines)
	return c
}

// ObserveHolder records the occupancy of one unit or buffer.
func (c *Collectors) ObserveHolder(kind string, index int, occupied float64, items int) {
	if c == nil {
		return
	}
	idx := strconv.Itoa(index)
	c.occupancy.WithLabelValues(kind, idx).Set(occupied)
	c.items.WithLabelValues(kind, idx).Set(float64(items))
}

// RecordAdmission counts one admission decision.
func (c *Collectors) RecordAdmission(outcome string) {
	if c == nil {
		return
	}
	c.admissions.WithLabelValues(outcome).Inc()
}

// RecordLineEvent counts one line state change.
func (c *Collectors) RecordLineEvent(event string) {
	if c == nil {
		return
	}
	c.lineEvents.WithLabelValues(event).Inc()
}

// RecordCompletion counts one finished item.
func (c *Collectors) RecordCompletion() {
	if c == nil {
		return
	}
	c.completions.Inc()
}

// RecordLost counts items lost to a hard kill.
func (c *Collectors) RecordLost(n int) {
	if c == nil {
		return
	}
	c.lost.Add(float64(n))
}

// SetLines records the number of registered lines.
func (c *Collectors) SetLines(n int) {
	if c == nil {
		return
	}
	c.lines.Set(float64(n))
}
