package toolchain

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

const cmakeManifest = "CMakeLists.txt"

// CMake drives the two-phase configure-then-build generator.
type CMake struct {
	base
	defines    []string
	flags      []string
	buildTgt   string
	prefix     string
	configured bool
	built      bool
}

func newCMake(b base) *CMake {
	c := &CMake{base: b}
	c.honor(
		domain.StepConfigure,
		domain.StepBuild,
		domain.StepInstall,
		domain.StepTarget,
		domain.StepFlag,
	)
	return c
}

// ExecuteStep applies a step. Build configures and builds; Install installs under a prefix.
func (c *CMake) ExecuteStep(ctx context.Context, step domain.CompilationStep) error {
	if !c.Supports(step.Kind) {
		return c.unsupported(step)
	}

	switch step.Kind {
	case domain.StepConfigure:
		d := "-D" + step.Key + "=" + step.Value
		c.defines = append(c.defines, d)
		c.applied = append(c.applied, d)
	case domain.StepTarget:
		c.buildTgt = step.Name
	case domain.StepFlag:
		c.flags = append(c.flags, step.Arg)
		c.applied = append(c.applied, step.Arg)
	case domain.StepBuild:
		return c.build(ctx)
	case domain.StepInstall:
		return c.install(ctx, step.Path)
	}
	return nil
}

// Build configures and builds if the recipe did not already, then locates the executable.
func (c *CMake) Build(ctx context.Context) (*domain.BuildArtifact, error) {
	if !c.built {
		if err := c.build(ctx); err != nil {
			return nil, err
		}
	}

	root := c.buildDir
	if c.prefix != "" {
		root = filepath.Join(c.prefix, "bin")
	}
	exe, err := c.locate(root)
	if err != nil {
		return nil, err
	}
	return c.artifact(exe), nil
}

func (c *CMake) sourceDir() (string, error) {
	src, err := filepath.Abs(c.target.Path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to resolve source path"), "path", c.target.Path)
	}
	if filepath.Base(src) == cmakeManifest {
		src = filepath.Dir(src)
	}
	if _, err := os.Stat(filepath.Join(src, cmakeManifest)); err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrManifestNotFound, "CMakeLists.txt not found"), "path", src)
	}
	return src, nil
}

func (c *CMake) configure(ctx context.Context) error {
	src, err := c.sourceDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.buildDir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create build directory"), "path", c.buildDir)
	}

	args := []string{"-S", src, "-B", c.buildDir}
	args = append(args, c.defines...)
	args = append(args, c.flags...)
	if err := c.run(ctx, domain.Command{Name: "cmake", Args: args, Dir: src}, "configure"); err != nil {
		return err
	}
	c.configured = true
	return nil
}

func (c *CMake) build(ctx context.Context) error {
	// A failed configure is terminal: the build phase is never attempted.
	if !c.configured {
		if err := c.configure(ctx); err != nil {
			return err
		}
	}

	args := []string{"--build", c.buildDir, "--parallel"}
	if c.buildTgt != "" {
		args = append(args, "--target", c.buildTgt)
	}
	if err := c.run(ctx, domain.Command{Name: "cmake", Args: args, Dir: c.buildDir}, "build"); err != nil {
		return err
	}
	c.built = true
	return nil
}

func (c *CMake) install(ctx context.Context, prefix string) error {
	if !c.built {
		if err := c.build(ctx); err != nil {
			return err
		}
	}

	args := []string{"--install", c.buildDir, "--prefix", prefix}
	if err := c.run(ctx, domain.Command{Name: "cmake", Args: args, Dir: c.buildDir}, "install"); err != nil {
		return err
	}
	c.prefix = prefix
	return nil
}

// locate finds the produced executable under root: the named target if one
// was selected, otherwise the only executable outside CMake's own files.
func (c *CMake) locate(root string) (string, error) {
	var candidates []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "CMakeFiles" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isLibrary(d.Name()) {
			return nil
		}
		if c.buildTgt != "" && d.Name() != c.buildTgt {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&0o111 != 0 {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to scan build output"), "path", root)
	}

	switch len(candidates) {
	case 0:
		err := zerr.With(zerr.Wrap(domain.ErrExecutableNotFound, "cmake produced no executable"), "path", root)
		if c.buildTgt != "" {
			err = zerr.With(err, "target", c.buildTgt)
		}
		return "", err
	case 1:
		return candidates[0], nil
	default:
		rel := make([]string, len(candidates))
		for i, p := range candidates {
			rel[i], _ = filepath.Rel(root, p)
		}
		return "", zerr.With(
			zerr.Wrap(domain.ErrExecutableNotFound, "several executables, select one with target=<name>"),
			"candidates", strings.Join(rel, ", "),
		)
	}
}

func isLibrary(name string) bool {
	return strings.HasSuffix(name, ".dylib") || strings.HasSuffix(name, ".so") || strings.Contains(name, ".so.")
}
