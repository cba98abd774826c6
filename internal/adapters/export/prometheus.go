package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/oxidizer/internal/core/domain"
)

const namespace = "oxidizer"

// registry exposes the session summaries as gauges labelled by target.
func registry(session *domain.Session) *prometheus.Registry {
	succeeded := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "target_succeeded",
		Help:      "Whether the target built and ran to completion.",
	}, []string{"target"})
	timeSeconds := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "time_seconds",
		Help:      "Wall-clock time statistics over measured runs.",
	}, []string{"target", "stat"})
	memory := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "memory_peak_bytes",
		Help:      "Mean peak resident set size over measured runs.",
	}, []string{"target"})
	ratio := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "relative_ratio",
		Help:      "Mean time relative to the baseline target.",
	}, []string{"target"})
	counters := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "counter_mean",
		Help:      "Mean performance counter value per measured run.",
	}, []string{"target", "event"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(succeeded, timeSeconds, memory, ratio, counters)

	for _, o := range session.Outcomes {
		ok := 0.0
		if o.Succeeded() {
			ok = 1
		}
		succeeded.WithLabelValues(o.Target).Set(ok)

		r := o.Report
		if r == nil {
			continue
		}
		if t := r.Time; t != nil {
			timeSeconds.WithLabelValues(o.Target, "mean").Set(t.Mean)
			timeSeconds.WithLabelValues(o.Target, "median").Set(t.Median)
			timeSeconds.WithLabelValues(o.Target, "stddev").Set(t.StdDev)
			timeSeconds.WithLabelValues(o.Target, "min").Set(t.Min)
			timeSeconds.WithLabelValues(o.Target, "max").Set(t.Max)
		}
		if m := r.Memory; m != nil {
			memory.WithLabelValues(o.Target).Set(m.Mean)
		}
		if c := r.Comparison; c != nil && c.Ratio != nil {
			ratio.WithLabelValues(o.Target).Set(*c.Ratio)
		}
		for event, v := range r.Counters {
			counters.WithLabelValues(o.Target, event).Set(v)
		}
	}

	return reg
}
