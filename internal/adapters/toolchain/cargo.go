package toolchain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

const cargoManifest = "Cargo.toml"

// Cargo drives the Rust package manager. The manifest is the unit of build scope.
type Cargo struct {
	base
	manifest   string
	pkgName    string
	bins       []string
	test       bool
	emitIR     bool
	bin        string
	flags      []string
	built      bool
	executable string
}

func newCargo(b base) *Cargo {
	c := &Cargo{base: b}
	c.honor(
		domain.StepCompile,
		domain.StepBuild,
		domain.StepTest,
		domain.StepEmitIR,
		domain.StepTarget,
		domain.StepFlag,
	)
	return c
}

// ExecuteStep applies a step. Compile validates the manifest, Build runs cargo.
func (c *Cargo) ExecuteStep(ctx context.Context, step domain.CompilationStep) error {
	if !c.Supports(step.Kind) {
		return c.unsupported(step)
	}

	switch step.Kind {
	case domain.StepCompile:
		return c.resolveManifest(ctx, step.Path)
	case domain.StepTest:
		c.test = true
		c.applied = append(c.applied, "test")
	case domain.StepEmitIR:
		c.emitIR = true
		c.applied = append(c.applied, "--emit=llvm-ir")
	case domain.StepTarget:
		c.bin = step.Name
	case domain.StepFlag:
		c.flags = append(c.flags, step.Arg)
		c.applied = append(c.applied, step.Arg)
	case domain.StepBuild:
		return c.build(ctx)
	}
	return nil
}

// Build runs cargo if the recipe did not already, then locates the binary.
func (c *Cargo) Build(ctx context.Context) (*domain.BuildArtifact, error) {
	if !c.built {
		if err := c.build(ctx); err != nil {
			return nil, err
		}
	}
	return c.artifact(c.executable), nil
}

type cargoMetadata struct {
	Packages []struct {
		Name         string `json:"name"`
		ManifestPath string `json:"manifest_path"`
		Targets      []struct {
			Name string   `json:"name"`
			Kind []string `json:"kind"`
		} `json:"targets"`
	} `json:"packages"`
}

func (c *Cargo) resolveManifest(ctx context.Context, path string) error {
	manifest, err := filepath.Abs(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to resolve manifest path"), "path", path)
	}
	if filepath.Base(manifest) != cargoManifest {
		manifest = filepath.Join(manifest, cargoManifest)
	}
	if _, err := os.Stat(manifest); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrManifestNotFound, "Cargo.toml not found"), "path", manifest)
	}

	cmd := domain.Command{
		Name: "cargo",
		Args: []string{"metadata", "--no-deps", "--format-version", "1", "--manifest-path", manifest},
		Dir:  filepath.Dir(manifest),
	}
	out, err := c.capture(ctx, cmd, "metadata")
	if err != nil {
		return zerr.Wrap(err, "malformed manifest")
	}

	var meta cargoMetadata
	// Warnings may precede the document when stderr and stdout share a terminal.
	if i := bytes.IndexByte(out, '{'); i >= 0 {
		out = out[i:]
	}
	if err := json.NewDecoder(bytes.NewReader(out)).Decode(&meta); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrBuildFailure, "unreadable cargo metadata"), "path", manifest)
	}

	for _, pkg := range meta.Packages {
		if pkg.ManifestPath == manifest {
			c.pkgName = pkg.Name
		}
		for _, t := range pkg.Targets {
			if slices.Contains(t.Kind, "bin") {
				c.bins = append(c.bins, t.Name)
			}
		}
	}
	c.manifest = manifest
	return nil
}

func (c *Cargo) build(ctx context.Context) error {
	if c.manifest == "" {
		if err := c.resolveManifest(ctx, c.target.Path); err != nil {
			return err
		}
	}

	verb := "build"
	if c.test {
		verb = "test"
	}
	args := []string{verb, "--release", "--manifest-path", c.manifest, "--target-dir", c.buildDir}
	if c.target.Kind == domain.KindWorkspace {
		args = append(args, "--workspace")
	}
	if c.test {
		args = append(args, "--no-run", "--message-format=json-render-diagnostics")
	} else if c.bin != "" {
		args = append(args, "--bin", c.bin)
	}
	args = append(args, c.flags...)

	cmd := domain.Command{Name: "cargo", Args: args, Dir: filepath.Dir(c.manifest)}
	if c.emitIR {
		cmd.Env = map[string]string{"RUSTFLAGS": "--emit=llvm-ir,link"}
	}

	if c.test {
		out, err := c.capture(ctx, cmd, "test")
		if err != nil {
			return err
		}
		exe, err := c.testExecutable(out)
		if err != nil {
			return err
		}
		c.executable = exe
	} else {
		if err := c.run(ctx, cmd, "build"); err != nil {
			return err
		}
		exe, err := c.binaryPath()
		if err != nil {
			return err
		}
		c.executable = exe
	}

	c.built = true
	return nil
}

// binaryPath returns <build dir>/release/<bin>.
func (c *Cargo) binaryPath() (string, error) {
	name := c.bin
	if name == "" {
		switch {
		case len(c.bins) == 1:
			name = c.bins[0]
		case slices.Contains(c.bins, c.pkgName):
			name = c.pkgName
		default:
			return "", zerr.With(
				zerr.Wrap(domain.ErrExecutableNotFound, "cannot choose a binary, select one with bin=<name>"),
				"candidates", strings.Join(c.bins, ", "),
			)
		}
	}

	exe := filepath.Join(c.buildDir, "release", name)
	if _, err := os.Stat(exe); err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrExecutableNotFound, "cargo produced no binary"), "path", exe)
	}
	return exe, nil
}

type cargoMessage struct {
	Reason string `json:"reason"`
	Target struct {
		Name string `json:"name"`
	} `json:"target"`
	Profile struct {
		Test bool `json:"test"`
	} `json:"profile"`
	Executable *string `json:"executable"`
}

// testExecutable finds the test harness binary among cargo's JSON messages.
func (c *Cargo) testExecutable(out []byte) (string, error) {
	var found []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var msg cargoMessage
		if json.Unmarshal(line, &msg) != nil {
			continue
		}
		if msg.Reason != "compiler-artifact" || !msg.Profile.Test || msg.Executable == nil {
			continue
		}
		if c.bin != "" && msg.Target.Name != c.bin {
			continue
		}
		found = append(found, *msg.Executable)
	}

	switch len(found) {
	case 0:
		return "", zerr.Wrap(domain.ErrExecutableNotFound, "cargo produced no test binary")
	case 1:
		return found[0], nil
	default:
		return "", zerr.With(
			zerr.Wrap(domain.ErrExecutableNotFound, "several test binaries, select one with bin=<name>"),
			"candidates", strings.Join(found, ", "),
		)
	}
}
