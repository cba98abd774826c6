// Package config provides the oxidizer.yaml loader.
package config

import (
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const supportedVersion = "1"

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load discovers oxidizer.yaml from cwd upwards and merges it over the defaults.
func (l *Loader) Load(cwd string) (*domain.Project, error) {
	root, err := l.DiscoverRoot(cwd)
	if err != nil {
		return nil, err
	}
	configPath := filepath.Join(root, domain.ConfigFileName)

	var file File
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	if file.Version != "" && file.Version != supportedVersion {
		l.Logger.Warn("unknown config version " + file.Version + " in " + configPath + ", reading it as version " + supportedVersion)
	}

	cfg := domain.DefaultRunConfig()
	applyRun(&cfg, file.Run)
	applyProfile(&cfg.Profile, file.Profile)
	cfg.Exports = exports(root, file.Export)

	return &domain.Project{
		Root:       root,
		ConfigPath: configPath,
		Config:     cfg,
		Targets:    resolveTargets(root, file.Targets),
	}, nil
}

// DiscoverRoot walks up from cwd to find the directory containing oxidizer.yaml.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return "", zerr.Wrap(err, "failed to resolve working directory")
	}

	currentDir := abs
	for {
		if _, err := os.Stat(filepath.Join(currentDir, domain.ConfigFileName)); err == nil {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "no configuration above working directory"), "cwd", cwd)
}

func applyRun(cfg *domain.RunConfig, dto RunDTO) {
	set(&cfg.Runs, dto.Runs)
	set(&cfg.Warmup, dto.Warmup)
	set(&cfg.IgnoreFailure, dto.IgnoreFailure)
	set(&cfg.MeasureMemory, dto.MeasureMemory)
	set(&cfg.Prepare, dto.Prepare)
	set(&cfg.Cleanup, dto.Cleanup)
	set(&cfg.Relative, dto.Relative)
	set(&cfg.Baseline, dto.Baseline)
	set(&cfg.Jobs, dto.Jobs)
	set(&cfg.Verbose, dto.Verbose)
	if dto.Timeout != nil {
		cfg.Timeout = time.Duration(*dto.Timeout * float64(time.Second))
	}
	if dto.TimeUnit != nil {
		cfg.TimeUnit = domain.TimeUnit(*dto.TimeUnit)
	}
}

func applyProfile(p *domain.ProfileOptions, dto ProfileDTO) {
	set(&p.Metrics, dto.Metrics)
	set(&p.SamplingFrequency, dto.SamplingFrequency)
	set(&p.Flamegraph, dto.Flamegraph)
	set(&p.CallGraph, dto.CallGraph)
	set(&p.AnnotateSource, dto.AnnotateSource)
	set(&p.SystemWide, dto.SystemWide)
	set(&p.AnalyzeLatency, dto.AnalyzeLatency)
	if len(dto.Events) > 0 {
		p.Events = dto.Events
	}
	if len(dto.RecordOptions) > 0 {
		p.RecordOptions = dto.RecordOptions
	}
	if len(dto.ReportOptions) > 0 {
		p.ReportOptions = dto.ReportOptions
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// exports lists the configured report files in a fixed format order.
func exports(root string, dto ExportDTO) []domain.Export {
	var out []domain.Export
	for _, e := range []domain.Export{
		{Format: domain.ExportJSON, Path: dto.JSON},
		{Format: domain.ExportMarkdown, Path: dto.Markdown},
		{Format: domain.ExportCSV, Path: dto.CSV},
		{Format: domain.ExportPrometheus, Path: dto.Prometheus},
	} {
		if e.Path == "" {
			continue
		}
		e.Path = resolvePath(root, e.Path)
		out = append(out, e)
	}
	return out
}

// resolveTargets anchors relative target paths at the configuration root.
// Malformed descriptors are kept verbatim so they fail individually later.
func resolveTargets(root string, descriptors []string) []string {
	out := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		spec, err := domain.ParseTarget(d)
		if err != nil || filepath.IsAbs(spec.Path) {
			out = append(out, d)
			continue
		}
		out = append(out, filepath.Join(root, spec.Path)+d[len(spec.Path):])
	}
	return out
}

func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(root, p))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is discovered by the loader
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
