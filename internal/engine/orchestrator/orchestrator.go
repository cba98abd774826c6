// Package orchestrator drives every target through resolve, build, run and aggregate.
package orchestrator

import (
	"context"
	"strconv"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/oxidizer/internal/engine/harness"
	"go.trai.ch/oxidizer/internal/engine/pipeline"
	"go.trai.ch/oxidizer/internal/engine/stats"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the independent per-target pipelines of a session.
type Orchestrator struct {
	pipeline *pipeline.Pipeline
	harness  *harness.Harness
	tracer   ports.Tracer
	logger   ports.Logger
}

// New creates an Orchestrator.
func New(p *pipeline.Pipeline, h *harness.Harness, tracer ports.Tracer, logger ports.Logger) *Orchestrator {
	return &Orchestrator{
		pipeline: p,
		harness:  h,
		tracer:   tracer,
		logger:   logger,
	}
}

// Run processes every descriptor and returns one outcome per descriptor, in input order.
//
// A target's failure never removes other targets from the result. The returned
// error is reserved for problems that prevent the session from starting.
// Build directories are created under root.
func (o *Orchestrator) Run(ctx context.Context, root string, descriptors []string, cfg domain.RunConfig) ([]domain.Outcome, error) {
	if len(descriptors) == 0 {
		return nil, domain.ErrNoTargets
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	explicit, err := ResolveBaseline(descriptors, cfg.Baseline)
	if err != nil {
		return nil, err
	}

	o.tracer.EmitPlan(ctx, descriptors)

	outcomes := make([]domain.Outcome, len(descriptors))

	// Runs inside a target are always sequential; targets share slots only
	// when system-wide sampling would not observe the other targets.
	jobs := cfg.Jobs
	if jobs < 1 || cfg.Profile.SystemWide {
		jobs = 1
	}
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, desc := range descriptors {
		g.Go(func() error {
			outcomes[i] = o.runTarget(ctx, root, i, desc, cfg)
			return nil
		})
	}
	_ = g.Wait()

	if cfg.Relative || cfg.Baseline != "" {
		if explicit >= 0 && !outcomes[explicit].Succeeded() {
			o.logger.Warn("baseline " + descriptors[explicit] + " failed, comparison skipped")
		}
		Compare(outcomes, explicit)
	}

	return outcomes, nil
}

func (o *Orchestrator) runTarget(ctx context.Context, root string, index int, descriptor string, cfg domain.RunConfig) domain.Outcome {
	ctx, span := o.tracer.Start(ctx, descriptor, ports.WithAttribute("target.index", index))
	defer span.End()

	outcome := domain.Outcome{Index: index, Target: descriptor}
	fail := func(stage domain.Stage, err error) domain.Outcome {
		span.RecordError(err)
		outcome.Status = domain.OutcomeFailed
		outcome.Failure = domain.NewFailure(stage, err)
		return outcome
	}

	spec, err := domain.ParseTarget(descriptor)
	if err != nil {
		return fail(domain.StageResolve, err)
	}

	buildDir := domain.BuildDirFor(root, index, spec)
	span.SetAttribute("target.build_dir", buildDir)

	buildCtx, buildSpan := o.tracer.Start(ctx, "build "+spec.Slug())
	built := o.pipeline.Build(buildCtx, spec, buildDir, buildSpan)
	if built.Err != nil {
		buildSpan.RecordError(built.Err)
	}
	buildSpan.SetAttribute("build.state", built.State().String())
	buildSpan.End()
	if built.Err != nil {
		err := built.Err
		if built.FailedStep != nil {
			err = zerr.With(err, "step", built.FailedStep.String())
		}
		return fail(domain.StageBuild, err)
	}

	runCtx, runSpan := o.tracer.Start(ctx, "run "+spec.Slug(),
		ports.WithAttribute("run.count", cfg.Runs),
		ports.WithAttribute("run.warmup", cfg.Warmup),
	)
	run := o.harness.Run(runCtx, built.Artifact, cfg, runSpan)
	if cause := run.Cause(); cause != nil {
		runSpan.RecordError(cause)
	}
	runSpan.End()

	if cause := run.Cause(); cause == nil && len(run.Measured()) > 0 && cfg.Profile.ProfilingRequested() {
		profCtx, profSpan := o.tracer.Start(ctx, "profile "+spec.Slug())
		files, err := o.harness.Profile(profCtx, built.Artifact, cfg.Profile)
		if err != nil {
			profSpan.RecordError(err)
			run.Warnings = append(run.Warnings, "profiling skipped: "+err.Error())
		}
		for _, f := range files {
			_, _ = profSpan.Write([]byte("wrote " + f + "\n"))
		}
		profSpan.End()
	}

	for _, w := range run.Warnings {
		o.logger.Warn(descriptor + ": " + w)
	}

	outcome.Report = stats.Report(index, spec, built.Artifact, run)

	if cause := run.Cause(); cause != nil {
		return fail(domain.StageRun, cause)
	}
	if len(run.Measured()) == 0 {
		err := zerr.Wrap(domain.ErrRunFailure, "no successful invocations")
		if n := len(run.Failures); n > 0 {
			err = run.Failures[n-1].Err()
		}
		return fail(domain.StageRun, err)
	}

	outcome.Status = domain.OutcomeSucceeded
	return outcome
}

// ResolveBaseline maps a baseline reference onto a target position.
// An empty reference returns -1, meaning the first successful target.
// References are 1-based positions, exact descriptors, or target paths.
func ResolveBaseline(descriptors []string, ref string) (int, error) {
	if ref == "" {
		return -1, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(descriptors) {
			return n - 1, nil
		}
	} else {
		for i, d := range descriptors {
			if d == ref {
				return i, nil
			}
		}
		for i, d := range descriptors {
			if spec, err := domain.ParseTarget(d); err == nil && spec.Path == ref {
				return i, nil
			}
		}
	}
	return -1, zerr.With(zerr.Wrap(domain.ErrBaselineNotFound, "no target matches baseline"), "baseline", ref)
}

// Compare attaches comparisons to the successful outcomes' reports.
// explicit is a position from ResolveBaseline; when it failed, nothing is compared.
func Compare(outcomes []domain.Outcome, explicit int) {
	baseline := -1
	switch {
	case explicit >= 0:
		if outcomes[explicit].Succeeded() {
			baseline = explicit
		}
	default:
		for i, o := range outcomes {
			if o.Succeeded() {
				baseline = i
				break
			}
		}
	}
	if baseline < 0 {
		return
	}

	var reports []*domain.BenchmarkReport
	var positions []int
	basePos := -1
	for i, o := range outcomes {
		if !o.Succeeded() || o.Report == nil {
			continue
		}
		if i == baseline {
			basePos = len(reports)
		}
		reports = append(reports, o.Report)
		positions = append(positions, i)
	}

	for j, r := range stats.Compare(reports, basePos) {
		outcomes[positions[j]].Report = r
	}
}
