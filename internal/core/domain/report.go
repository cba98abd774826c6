package domain

import "time"

// Summary holds descriptive statistics over a set of measurements.
// Time summaries are expressed in seconds; memory summaries in bytes.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Comparison relates a target's mean time to the baseline's.
// Ratio is nil when the baseline mean is zero.
type Comparison struct {
	Baseline    string   `json:"baseline"`
	IsBaseline  bool     `json:"is_baseline"`
	Ratio       *float64 `json:"ratio,omitempty"`
	RatioStdDev *float64 `json:"ratio_stddev,omitempty"`
}

// BenchmarkReport is the aggregated view of one target.
// It is derived from the raw samples and rebuilt, never mutated.
type BenchmarkReport struct {
	Index      int                `json:"index"`
	Target     string             `json:"target"`
	Spec       TargetSpec         `json:"spec"`
	Build      *BuildArtifact     `json:"build,omitempty"`
	Time       *Summary           `json:"time,omitempty"`
	Memory     *Summary           `json:"memory,omitempty"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Comparison *Comparison        `json:"comparison,omitempty"`
	Run        RunResult          `json:"run"`
}

// OutcomeStatus is the terminal status of a target.
type OutcomeStatus string

const (
	// OutcomeSucceeded marks a target that built and ran to completion.
	OutcomeSucceeded OutcomeStatus = "succeeded"
	// OutcomeFailed marks a target that failed at some stage.
	OutcomeFailed OutcomeStatus = "failed"
)

// Stage names where in the pipeline a target failed.
type Stage string

const (
	// StageResolve is descriptor parsing and adapter selection.
	StageResolve Stage = "resolve"
	// StageBuild is recipe execution.
	StageBuild Stage = "build"
	// StageRun is the execution harness.
	StageRun Stage = "run"
)

// Failure describes why a target failed.
type Failure struct {
	Class      FailureClass `json:"class"`
	Stage      Stage        `json:"stage"`
	Message    string       `json:"message"`
	Step       string       `json:"step,omitempty"`
	Command    string       `json:"command,omitempty"`
	ExitCode   *int         `json:"exit_code,omitempty"`
	Diagnostic string       `json:"diagnostic,omitempty"`
}

// NewFailure classifies err and lifts the details its producer attached:
// the failed step, the command, its exit code and the tool's own diagnostic.
func NewFailure(stage Stage, err error) *Failure {
	f := &Failure{
		Class:   Classify(err),
		Stage:   stage,
		Message: err.Error(),
	}
	if v, ok := Metadata(err, "step"); ok {
		f.Step, _ = v.(string)
	}
	if v, ok := Metadata(err, "command"); ok {
		f.Command, _ = v.(string)
	}
	if v, ok := Metadata(err, "exit_code"); ok {
		if code, ok := v.(int); ok {
			f.ExitCode = &code
		}
	}
	if v, ok := Metadata(err, "diagnostic"); ok {
		f.Diagnostic, _ = v.(string)
	}
	return f
}

// Outcome is the result of one target. A failed run still carries its partial report.
type Outcome struct {
	Index   int              `json:"index"`
	Target  string           `json:"target"`
	Status  OutcomeStatus    `json:"status"`
	Report  *BenchmarkReport `json:"report,omitempty"`
	Failure *Failure         `json:"failure,omitempty"`
}

// Succeeded reports whether the target completed.
func (o Outcome) Succeeded() bool {
	return o.Status == OutcomeSucceeded
}

// Session is one benchmark invocation across all targets.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Config    RunConfig `json:"config"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Failed returns the number of failed outcomes.
func (s *Session) Failed() int {
	n := 0
	for _, o := range s.Outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}

// Reports returns the reports of all outcomes that carry one, in input order.
func (s *Session) Reports() []*BenchmarkReport {
	reports := make([]*BenchmarkReport, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		if o.Report != nil {
			reports = append(reports, o.Report)
		}
	}
	return reports
}
