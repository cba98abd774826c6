// Package app implements the application layer for oxidizer.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/oxidizer/internal/adapters/detector"
	"go.trai.ch/oxidizer/internal/adapters/linear"
	"go.trai.ch/oxidizer/internal/adapters/telemetry"
	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/oxidizer/internal/core/ports"
	"go.trai.ch/oxidizer/internal/engine/harness"
	"go.trai.ch/oxidizer/internal/engine/orchestrator"
	"go.trai.ch/oxidizer/internal/engine/pipeline"
	"go.trai.ch/oxidizer/internal/engine/stats"
	"go.trai.ch/oxidizer/internal/ui/summary"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	store        ports.SessionStore
	reports      ports.ReportWriter
	logger       ports.Logger
	executor     ports.Executor
	launcher     ports.Launcher
	profiler     ports.Profiler
	factory      ports.ToolchainFactory
	quietTracer  ports.Tracer
	watcher      ports.Watcher

	stdout io.Writer
	stderr io.Writer
	env    detector.Environment
	now    func() time.Time
	newID  func() string
	getwd  func() (string, error)
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	store ports.SessionStore,
	reports ports.ReportWriter,
	log ports.Logger,
	executor ports.Executor,
	launcher ports.Launcher,
	profiler ports.Profiler,
	factory ports.ToolchainFactory,
	tracer ports.Tracer,
) *App {
	return &App{
		configLoader: loader,
		store:        store,
		reports:      reports,
		logger:       log,
		executor:     executor,
		launcher:     launcher,
		profiler:     profiler,
		factory:      factory,
		quietTracer:  tracer,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		env:          detector.System(),
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
		getwd:        os.Getwd,
	}
}

// WithWatcher enables watch mode.
func (a *App) WithWatcher(w ports.Watcher) *App {
	a.watcher = w
	return a
}

// WithOutput redirects the results table (stdout) and progress (stderr).
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithEnvironment replaces the detected process environment.
func (a *App) WithEnvironment(env detector.Environment) *App {
	a.env = env
	return a
}

// WithWorkDir pins the directory used for configuration discovery.
func (a *App) WithWorkDir(dir string) *App {
	a.getwd = func() (string, error) { return dir, nil }
	return a
}

// WithClock replaces the session clock and id generator.
func (a *App) WithClock(now func() time.Time, newID func() string) *App {
	a.now = now
	a.newID = newID
	return a
}

// SetLogFormat switches the logger between pretty and JSON output.
func (a *App) SetLogFormat(flag string) {
	format := detector.ResolveLogFormat(a.env.DetectLogFormat(), flag)
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(format == detector.FormatJSON)
	}
}

// BenchmarkOptions configuration for the Benchmark method.
type BenchmarkOptions struct {
	// Targets replace the descriptors listed in oxidizer.yaml when non-empty.
	Targets []string
	// Override applies command-line options on top of the file configuration.
	Override   func(*domain.RunConfig)
	OutputMode string
	Watch      bool
}

// Benchmark builds and measures every target, then prints and exports the results.
//
// It returns an error wrapping domain.ErrPartialFailure when some targets failed
// and domain.ErrAllTargetsFailed when none succeeded.
func (a *App) Benchmark(ctx context.Context, opts BenchmarkOptions) error {
	project, err := a.loadProject()
	if err != nil {
		return err
	}

	cfg := project.Config
	if opts.Override != nil {
		opts.Override(&cfg)
	}

	targets := opts.Targets
	if len(targets) == 0 {
		targets = project.Targets
	}
	if len(targets) == 0 {
		return domain.ErrNoTargets
	}

	if v, ok := a.executor.(interface{ SetVerbose(bool) }); ok {
		v.SetVerbose(cfg.Verbose)
	}

	mode := detector.ResolveMode(a.env.DetectMode(), opts.OutputMode)
	if opts.Watch {
		return a.watch(ctx, project.Root, targets, cfg, mode)
	}
	return a.benchmark(ctx, project.Root, targets, cfg, mode)
}

func (a *App) loadProject() (*domain.Project, error) {
	cwd, err := a.getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve working directory")
	}

	project, err := a.configLoader.Load(cwd)
	switch {
	case err == nil:
		return project, nil
	case errors.Is(err, domain.ErrConfigNotFound):
		return &domain.Project{Root: cwd, Config: domain.DefaultRunConfig()}, nil
	default:
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
}

func (a *App) benchmark(ctx context.Context, root string, targets []string, cfg domain.RunConfig, mode detector.OutputMode) error {
	outcomes, err := a.runSession(ctx, root, targets, cfg, mode)
	if err != nil {
		return err
	}

	session := &domain.Session{
		ID:        a.newID(),
		CreatedAt: a.now().UTC(),
		Config:    cfg,
		Outcomes:  outcomes,
	}
	if err := a.store.Put(root, session); err != nil {
		a.logger.Warn("session not recorded: " + err.Error())
	}

	if err := a.present(session); err != nil {
		return err
	}
	return verdict(session)
}

// runSession runs the orchestrator, rendering progress unless mode is quiet.
func (a *App) runSession(ctx context.Context, root string, targets []string, cfg domain.RunConfig, mode detector.OutputMode) ([]domain.Outcome, error) {
	h := harness.New(a.launcher, a.executor, a.profiler)
	p := pipeline.New(a.factory)

	if mode == detector.ModeQuiet {
		return orchestrator.New(p, h, a.quietTracer, a.logger).Run(ctx, root, targets, cfg)
	}

	renderer := linear.NewRenderer(a.stderr, a.stderr)
	tp := telemetry.NewProvider(telemetry.NewBridge(renderer))
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()
	tracer := telemetry.NewOTelTracerWithProvider(tp, "oxidizer").WithRenderer(renderer)
	orch := orchestrator.New(p, h, tracer, a.logger)

	var outcomes []domain.Outcome
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(gctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() error {
		defer func() {
			_ = renderer.Stop()
		}()

		var err error
		outcomes, err = orch.Run(ctx, root, targets, cfg)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// AnalyzeOptions configuration for the Analyze method.
type AnalyzeOptions struct {
	// Ref is a session id or a path to a session JSON file. Empty selects the latest session.
	Ref string
	// Override applies command-line options on top of the stored configuration.
	Override func(*domain.RunConfig)
}

// Analyze loads a stored session, rebuilds every report from its raw samples,
// then prints and exports the result.
func (a *App) Analyze(_ context.Context, opts AnalyzeOptions) error {
	cwd, err := a.getwd()
	if err != nil {
		return zerr.Wrap(err, "failed to resolve working directory")
	}
	root, err := a.configLoader.DiscoverRoot(cwd)
	if err != nil {
		root = cwd
	}

	var session *domain.Session
	if opts.Ref == "" {
		session, err = a.store.Latest(root)
	} else {
		session, err = a.store.Get(root, opts.Ref)
	}
	if err != nil {
		return zerr.Wrap(err, "failed to load session")
	}

	cfg := session.Config
	if opts.Override != nil {
		opts.Override(&cfg)
	}

	rebuilt, err := Reanalyze(session, cfg)
	if err != nil {
		return err
	}
	return a.present(rebuilt)
}

// Reanalyze returns a copy of session whose reports are recomputed from their
// raw run records under cfg.
func Reanalyze(session *domain.Session, cfg domain.RunConfig) (*domain.Session, error) {
	outcomes := make([]domain.Outcome, len(session.Outcomes))
	descriptors := make([]string, len(session.Outcomes))
	for i, o := range session.Outcomes {
		descriptors[i] = o.Target
		if r := o.Report; r != nil {
			o.Report = stats.Report(r.Index, r.Spec, r.Build, r.Run)
		}
		outcomes[i] = o
	}

	explicit, err := orchestrator.ResolveBaseline(descriptors, cfg.Baseline)
	if err != nil {
		return nil, err
	}
	if cfg.Relative || cfg.Baseline != "" {
		orchestrator.Compare(outcomes, explicit)
	}

	return &domain.Session{
		ID:        session.ID,
		CreatedAt: session.CreatedAt,
		Config:    cfg,
		Outcomes:  outcomes,
	}, nil
}

func (a *App) present(session *domain.Session) error {
	_, _ = fmt.Fprint(a.stdout, summary.Render(session))

	if len(session.Config.Exports) == 0 {
		return nil
	}
	if err := a.reports.Write(session, session.Config.Exports); err != nil {
		return zerr.Wrap(err, "failed to export reports")
	}
	for _, e := range session.Config.Exports {
		a.logger.Info(fmt.Sprintf("wrote %s report to %s", e.Format, e.Path))
	}
	return nil
}

func verdict(session *domain.Session) error {
	failed := session.Failed()
	switch {
	case failed == 0:
		return nil
	case failed == len(session.Outcomes):
		return zerr.With(zerr.Wrap(domain.ErrAllTargetsFailed, "no target succeeded"), "failed", failed)
	default:
		names := make([]string, 0, failed)
		for _, o := range session.Outcomes {
			if !o.Succeeded() {
				names = append(names, o.Target)
			}
		}
		err := zerr.Wrap(domain.ErrPartialFailure, fmt.Sprintf("%d of %d targets failed", failed, len(session.Outcomes)))
		return zerr.With(err, "targets", strings.Join(names, ", "))
	}
}
