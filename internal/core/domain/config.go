package domain

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.trai.ch/zerr"
)

// TimeUnit is the unit used to display durations.
type TimeUnit string

const (
	// UnitSecond displays seconds.
	UnitSecond TimeUnit = "s"
	// UnitMillisecond displays milliseconds.
	UnitMillisecond TimeUnit = "ms"
	// UnitMicrosecond displays microseconds.
	UnitMicrosecond TimeUnit = "us"
	// UnitNanosecond displays nanoseconds.
	UnitNanosecond TimeUnit = "ns"
)

// FromSeconds converts a value in seconds into the unit.
func (u TimeUnit) FromSeconds(v float64) float64 {
	switch u {
	case UnitSecond:
		return v
	case UnitMicrosecond:
		return v * 1e6
	case UnitNanosecond:
		return v * 1e9
	default:
		return v * 1e3
	}
}

// ExportFormat is a report file format.
type ExportFormat string

const (
	// ExportJSON writes every sample and the aggregated data.
	ExportJSON ExportFormat = "json"
	// ExportMarkdown writes a comparison table.
	ExportMarkdown ExportFormat = "markdown"
	// ExportCSV writes one summary row per target.
	ExportCSV ExportFormat = "csv"
	// ExportPrometheus writes summary gauges in the node exporter textfile format.
	ExportPrometheus ExportFormat = "prometheus"
)

// Export requests one report file.
type Export struct {
	Format ExportFormat `json:"format" validate:"required,oneof=json markdown csv prometheus"`
	Path   string       `json:"path" validate:"required"`
}

// ProfileOptions controls performance-counter collection and the profiling pass.
type ProfileOptions struct {
	Metrics           bool     `json:"metrics"`
	Events            []string `json:"events,omitempty" validate:"dive,required"`
	SamplingFrequency int      `json:"sampling_frequency" validate:"gt=0"`
	Flamegraph        bool     `json:"flamegraph"`
	CallGraph         bool     `json:"call_graph"`
	AnnotateSource    bool     `json:"annotate_source"`
	SystemWide        bool     `json:"system_wide"`
	AnalyzeLatency    bool     `json:"analyze_latency"`
	RecordOptions     []string `json:"record_options,omitempty"`
	ReportOptions     []string `json:"report_options,omitempty"`
}

// DefaultPerfEvents are sampled when counters are requested without explicit events.
var DefaultPerfEvents = []string{"cycles", "instructions", "cache-misses", "branch-misses"}

// CountersRequested reports whether per-run counters should be sampled.
func (p ProfileOptions) CountersRequested() bool {
	return p.Metrics || len(p.Events) > 0
}

// CounterEvents returns the events to sample.
func (p ProfileOptions) CounterEvents() []string {
	if len(p.Events) > 0 {
		return p.Events
	}
	return DefaultPerfEvents
}

// ProfilingRequested reports whether a profiling pass should follow measurement.
func (p ProfileOptions) ProfilingRequested() bool {
	return p.Flamegraph || p.CallGraph || p.AnnotateSource || p.AnalyzeLatency
}

// RunConfig holds the options of a benchmark session.
type RunConfig struct {
	Runs          int            `json:"runs" validate:"gte=1"`
	Warmup        int            `json:"warmup" validate:"gte=0"`
	Timeout       time.Duration  `json:"timeout_ns" validate:"gte=0"`
	IgnoreFailure bool           `json:"ignore_failure"`
	MeasureMemory bool           `json:"measure_memory"`
	Prepare       string         `json:"prepare,omitempty"`
	Cleanup       string         `json:"cleanup,omitempty"`
	Relative      bool           `json:"relative_comparison"`
	Baseline      string         `json:"baseline,omitempty"`
	Jobs          int            `json:"jobs" validate:"gte=1"`
	TimeUnit      TimeUnit       `json:"time_unit" validate:"oneof=s ms us ns"`
	Verbose       bool           `json:"verbose"`
	Profile       ProfileOptions `json:"profile"`
	Exports       []Export       `json:"exports,omitempty" validate:"dive"`
}

const (
	// DefaultRuns is the default number of measured invocations.
	DefaultRuns = 10
	// DefaultSamplingFrequency is the default perf sampling frequency in Hz.
	DefaultSamplingFrequency = 999
)

// DefaultRunConfig returns the configuration used when nothing is overridden.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Runs:     DefaultRuns,
		Jobs:     1,
		TimeUnit: UnitMillisecond,
		Profile: ProfileOptions{
			SamplingFrequency: DefaultSamplingFrequency,
		},
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks the configuration's invariants.
func (c *RunConfig) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return zerr.Wrap(ErrInvalidConfig, err.Error())
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace()+" ("+fe.Tag()+")")
	}
	return zerr.With(zerr.Wrap(ErrInvalidConfig, "validation failed"), "fields", strings.Join(fields, ", "))
}

// Project is the configuration discovered from an oxidizer.yaml file.
type Project struct {
	// Root is the directory containing the configuration file.
	Root string
	// ConfigPath is the path of the configuration file.
	ConfigPath string
	// Config is the file's run options merged over DefaultRunConfig.
	Config RunConfig
	// Targets are the descriptors listed in the file, in order.
	Targets []string
}
