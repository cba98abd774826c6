package pipeline

import (
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

// Flag tokens with a meaning beyond a raw tool argument.
const (
	flagEmitIR  = "emit-ir"
	flagShared  = "shared"
	flagTest    = "test"
	flagInstall = "install"
	prefixBin   = "bin="
	prefixTgt   = "target="
)

// InstallDirName is the install prefix under a CMake target's build directory.
const InstallDirName = "install"

// Translate maps a target onto the tool-specific recipe that builds it into buildDir.
func Translate(spec domain.TargetSpec, buildDir string) (domain.CompilationRecipe, error) {
	recipe := domain.CompilationRecipe{Target: spec}

	switch spec.Tool {
	case domain.ToolClang, domain.ToolGcc:
		recipe.Steps = compilerSteps(spec, buildDir)
	case domain.ToolCargo:
		recipe.Steps = cargoSteps(spec)
	case domain.ToolCMake:
		recipe.Steps = cmakeSteps(spec, buildDir)
	default:
		return recipe, zerr.With(zerr.Wrap(domain.ErrUnsupportedOperation, "no recipe for build tool"), "tool", spec.Tool.String())
	}
	return recipe, nil
}

func compilerSteps(spec domain.TargetSpec, buildDir string) []domain.CompilationStep {
	level := domain.MaxOptimizeLevel
	var rest []domain.CompilationStep
	for _, f := range spec.Flags {
		if l, ok := optimizeLevel(f); ok {
			level = l
			continue
		}
		switch f {
		case flagEmitIR:
			rest = append(rest, domain.EmitIRStep())
		case flagShared:
			rest = append(rest, domain.SharedStep())
		default:
			rest = append(rest, domain.FlagStep(f))
		}
	}

	steps := make([]domain.CompilationStep, 0, len(rest)+3)
	steps = append(steps, domain.CompileStep(spec.Path), domain.OptimizeStep(level))
	steps = append(steps, rest...)
	return append(steps, domain.OutputStep(filepath.Join(buildDir, spec.Slug())))
}

// optimizeLevel recognizes -O0 through -O3.
func optimizeLevel(flag string) (int, bool) {
	digits, ok := strings.CutPrefix(flag, "-O")
	if !ok || len(digits) != 1 {
		return 0, false
	}
	l, err := strconv.Atoi(digits)
	if err != nil || l < 0 || l > domain.MaxOptimizeLevel {
		return 0, false
	}
	return l, true
}

func cargoSteps(spec domain.TargetSpec) []domain.CompilationStep {
	steps := []domain.CompilationStep{domain.CompileStep(spec.Path)}
	for _, f := range spec.Flags {
		switch {
		case f == flagTest:
			steps = append(steps, domain.TestStep())
		case f == flagEmitIR:
			steps = append(steps, domain.EmitIRStep())
		case strings.HasPrefix(f, prefixBin):
			steps = append(steps, domain.TargetStep(strings.TrimPrefix(f, prefixBin)))
		default:
			steps = append(steps, domain.FlagStep(f))
		}
	}
	return append(steps, domain.BuildStep())
}

func cmakeSteps(spec domain.TargetSpec, buildDir string) []domain.CompilationStep {
	steps := []domain.CompilationStep{domain.ConfigureStep("CMAKE_BUILD_TYPE", "Release")}
	install := false
	for _, f := range spec.Flags {
		switch {
		case f == flagInstall:
			install = true
		case f == flagEmitIR:
			steps = append(steps, domain.EmitIRStep())
		case strings.HasPrefix(f, prefixTgt):
			steps = append(steps, domain.TargetStep(strings.TrimPrefix(f, prefixTgt)))
		case isDefine(f):
			k, v, _ := strings.Cut(f, "=")
			steps = append(steps, domain.ConfigureStep(k, v))
		default:
			steps = append(steps, domain.FlagStep(f))
		}
	}
	steps = append(steps, domain.BuildStep())
	if install {
		steps = append(steps, domain.InstallStep(filepath.Join(buildDir, InstallDirName)))
	}
	return steps
}

// isDefine recognizes KEY=VALUE cache entries, as opposed to raw -X=Y arguments.
func isDefine(flag string) bool {
	k, _, ok := strings.Cut(flag, "=")
	return ok && k != "" && !strings.HasPrefix(k, "-")
}
