// Package stats reduces run samples into summary statistics and relative comparisons.
// Every function here is pure: reports are rebuilt from samples, never mutated.
package stats

import (
	"maps"
	"math"
	"slices"

	"go.trai.ch/oxidizer/internal/core/domain"
)

// Summarize computes descriptive statistics over values. It returns nil for no values.
func Summarize(values []float64) *domain.Summary {
	if len(values) == 0 {
		return nil
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean := Mean(sorted)
	return &domain.Summary{
		Count:  len(sorted),
		Mean:   mean,
		Median: median(sorted),
		StdDev: stdDev(sorted, mean),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

// Mean returns the arithmetic mean of values, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the midpoint of values, averaging the two middle values for even counts.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return median(sorted)
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stdDev returns the population standard deviation.
func stdDev(values []float64, mean float64) float64 {
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Durations returns the wall-clock durations of the measured samples, in seconds.
func Durations(run domain.RunResult) []float64 {
	measured := run.Measured()
	out := make([]float64, len(measured))
	for i, s := range measured {
		out[i] = s.Duration.Seconds()
	}
	return out
}

// MemoryPeaks returns the peak memory of the measured samples that recorded one, in bytes.
func MemoryPeaks(run domain.RunResult) []float64 {
	var out []float64
	for _, s := range run.Measured() {
		if s.MemoryPeak != nil {
			out = append(out, float64(*s.MemoryPeak))
		}
	}
	return out
}

// CounterMeans averages each counter over the measured samples that recorded it.
func CounterMeans(run domain.RunResult) map[string]float64 {
	values := make(map[string][]float64)
	for _, s := range run.Measured() {
		for name, v := range s.Counters {
			values[name] = append(values[name], float64(v))
		}
	}
	if len(values) == 0 {
		return nil
	}

	means := make(map[string]float64, len(values))
	for _, name := range slices.Sorted(maps.Keys(values)) {
		means[name] = Mean(values[name])
	}
	return means
}

// Report builds the report of one target from its raw run record.
func Report(index int, spec domain.TargetSpec, artifact *domain.BuildArtifact, run domain.RunResult) *domain.BenchmarkReport {
	return &domain.BenchmarkReport{
		Index:    index,
		Target:   spec.String(),
		Spec:     spec,
		Build:    artifact,
		Time:     Summarize(Durations(run)),
		Memory:   Summarize(MemoryPeaks(run)),
		Counters: CounterMeans(run),
		Run:      run,
	}
}

// Ratio expresses target's mean relative to baseline's mean, propagating
// both standard deviations. Both results are nil when the baseline mean is zero.
func Ratio(target, baseline domain.Summary) (ratio, ratioStdDev *float64) {
	if baseline.Mean == 0 {
		return nil, nil
	}
	r := target.Mean / baseline.Mean

	var rel float64
	if target.Mean != 0 {
		rel += (target.StdDev / target.Mean) * (target.StdDev / target.Mean)
	}
	rel += (baseline.StdDev / baseline.Mean) * (baseline.StdDev / baseline.Mean)
	sd := math.Abs(r) * math.Sqrt(rel)

	return &r, &sd
}

// Compare returns copies of reports with a comparison against reports[baseline].
// Reports without timing data get no comparison. The baseline's own ratio is exactly 1.
func Compare(reports []*domain.BenchmarkReport, baseline int) []*domain.BenchmarkReport {
	if baseline < 0 || baseline >= len(reports) || reports[baseline].Time == nil {
		return reports
	}
	base := reports[baseline]

	out := make([]*domain.BenchmarkReport, len(reports))
	for i, r := range reports {
		rebuilt := *r
		if r.Time != nil {
			cmp := &domain.Comparison{Baseline: base.Target}
			if i == baseline {
				one := 1.0
				cmp.IsBaseline = true
				cmp.Ratio = &one
			} else {
				cmp.Ratio, cmp.RatioStdDev = Ratio(*r.Time, *base.Time)
			}
			rebuilt.Comparison = cmp
		}
		out[i] = &rebuilt
	}
	return out
}
