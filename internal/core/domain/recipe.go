package domain

import (
	"fmt"
	"strconv"
)

// StepKind identifies a tool-agnostic compilation step.
type StepKind uint8

const (
	// StepCompile names the source file or manifest to compile.
	StepCompile StepKind = iota
	// StepOutput names the produced artifact.
	StepOutput
	// StepOptimize selects an optimization level between 0 and 3.
	StepOptimize
	// StepEmitIR requests intermediate representation output alongside the artifact.
	StepEmitIR
	// StepShared requests a shared library instead of an executable.
	StepShared
	// StepBuild triggers the build phase of a multi-phase tool.
	StepBuild
	// StepTest builds and runs the project's tests.
	StepTest
	// StepConfigure sets a configure-time option.
	StepConfigure
	// StepInstall installs the build output under a prefix.
	StepInstall
	// StepTarget selects a named build target.
	StepTarget
	// StepFlag passes a raw argument to the tool.
	StepFlag
)

var stepNames = [...]string{
	StepCompile:   "compile",
	StepOutput:    "output",
	StepOptimize:  "optimize",
	StepEmitIR:    "emit-ir",
	StepShared:    "shared",
	StepBuild:     "build",
	StepTest:      "test",
	StepConfigure: "configure",
	StepInstall:   "install",
	StepTarget:    "target",
	StepFlag:      "flag",
}

func (k StepKind) String() string {
	if int(k) < len(stepNames) {
		return stepNames[k]
	}
	return "step(" + strconv.Itoa(int(k)) + ")"
}

// MaxOptimizeLevel is the highest optimization level a recipe may request.
const MaxOptimizeLevel = 3

// CompilationStep is one entry of a CompilationRecipe. Only the fields relevant to Kind are set.
type CompilationStep struct {
	Kind  StepKind
	Path  string
	Level int
	Key   string
	Value string
	Name  string
	Arg   string
}

// CompileStep returns a step compiling the given source or manifest.
func CompileStep(source string) CompilationStep {
	return CompilationStep{Kind: StepCompile, Path: source}
}

// OutputStep returns a step naming the produced artifact.
func OutputStep(path string) CompilationStep {
	return CompilationStep{Kind: StepOutput, Path: path}
}

// OptimizeStep returns a step selecting an optimization level.
func OptimizeStep(level int) CompilationStep {
	return CompilationStep{Kind: StepOptimize, Level: level}
}

// EmitIRStep returns a step requesting intermediate representation output.
func EmitIRStep() CompilationStep {
	return CompilationStep{Kind: StepEmitIR}
}

// SharedStep returns a step requesting a shared library.
func SharedStep() CompilationStep {
	return CompilationStep{Kind: StepShared}
}

// BuildStep returns a step triggering the build phase.
func BuildStep() CompilationStep {
	return CompilationStep{Kind: StepBuild}
}

// TestStep returns a step running the project's tests.
func TestStep() CompilationStep {
	return CompilationStep{Kind: StepTest}
}

// ConfigureStep returns a step setting a configure-time option.
func ConfigureStep(key, value string) CompilationStep {
	return CompilationStep{Kind: StepConfigure, Key: key, Value: value}
}

// InstallStep returns a step installing the build output under prefix.
func InstallStep(prefix string) CompilationStep {
	return CompilationStep{Kind: StepInstall, Path: prefix}
}

// TargetStep returns a step selecting a named build target.
func TargetStep(name string) CompilationStep {
	return CompilationStep{Kind: StepTarget, Name: name}
}

// FlagStep returns a step forwarding a raw argument to the tool.
func FlagStep(arg string) CompilationStep {
	return CompilationStep{Kind: StepFlag, Arg: arg}
}

// String renders the step for diagnostics, e.g. "optimize(3)" or "configure(CMAKE_BUILD_TYPE=Release)".
func (s CompilationStep) String() string {
	switch s.Kind {
	case StepCompile, StepOutput, StepInstall:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Path)
	case StepOptimize:
		return fmt.Sprintf("%s(%d)", s.Kind, s.Level)
	case StepConfigure:
		return fmt.Sprintf("%s(%s=%s)", s.Kind, s.Key, s.Value)
	case StepTarget:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Name)
	case StepFlag:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Arg)
	default:
		return s.Kind.String()
	}
}

// CompilationRecipe is the ordered step sequence translated from a TargetSpec.
// It is built once per target and consumed once by a toolchain.
type CompilationRecipe struct {
	Target TargetSpec
	Steps  []CompilationStep
}

// Flags returns the raw arguments carried by the recipe's flag steps.
func (r CompilationRecipe) Flags() []string {
	var flags []string
	for _, s := range r.Steps {
		if s.Kind == StepFlag {
			flags = append(flags, s.Arg)
		}
	}
	return flags
}
