package config

// File represents the structure of the oxidizer.yaml configuration file.
// Pointer fields distinguish "unset" from zero values so that only
// the options present in the file override the defaults.
type File struct {
	Version string     `yaml:"version"`
	Targets []string   `yaml:"targets"`
	Run     RunDTO     `yaml:"run"`
	Profile ProfileDTO `yaml:"profile"`
	Export  ExportDTO  `yaml:"export"`
}

// RunDTO holds the run options of the configuration file.
type RunDTO struct {
	Runs          *int     `yaml:"runs"`
	Warmup        *int     `yaml:"warmup"`
	Timeout       *float64 `yaml:"timeout"`
	IgnoreFailure *bool    `yaml:"ignoreFailure"`
	MeasureMemory *bool    `yaml:"measureMemory"`
	Prepare       *string  `yaml:"prepare"`
	Cleanup       *string  `yaml:"cleanup"`
	Relative      *bool    `yaml:"relative"`
	Baseline      *string  `yaml:"baseline"`
	Jobs          *int     `yaml:"jobs"`
	TimeUnit      *string  `yaml:"timeUnit"`
	Verbose       *bool    `yaml:"verbose"`
}

// ProfileDTO holds the performance counter and profiling options.
type ProfileDTO struct {
	Metrics           *bool    `yaml:"metrics"`
	Events            []string `yaml:"events"`
	SamplingFrequency *int     `yaml:"samplingFrequency"`
	Flamegraph        *bool    `yaml:"flamegraph"`
	CallGraph         *bool    `yaml:"callGraph"`
	AnnotateSource    *bool    `yaml:"annotateSource"`
	SystemWide        *bool    `yaml:"systemWide"`
	AnalyzeLatency    *bool    `yaml:"analyzeLatency"`
	RecordOptions     []string `yaml:"recordOptions"`
	ReportOptions     []string `yaml:"reportOptions"`
}

// ExportDTO maps report formats to output paths.
type ExportDTO struct {
	JSON       string `yaml:"json"`
	Markdown   string `yaml:"markdown"`
	CSV        string `yaml:"csv"`
	Prometheus string `yaml:"prometheus"`
}
