package domain

import "time"

// BuildState is a state of the per-target build state machine.
type BuildState uint8

const (
	// StateResolved means an adapter was selected for the target.
	StateResolved BuildState = iota
	// StateConfiguring means configure-time steps are being applied.
	StateConfiguring
	// StateCompiling means the toolchain is producing the artifact.
	StateCompiling
	// StateLinked means a runnable artifact exists.
	StateLinked
	// StateFailed means the build stopped at a failing step.
	StateFailed
)

func (s BuildState) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateConfiguring:
		return "configuring"
	case StateCompiling:
		return "compiling"
	case StateLinked:
		return "linked"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BuildArtifact is the runnable output of a successful build.
type BuildArtifact struct {
	Executable   string        `json:"executable"`
	BuildDir     string        `json:"build_dir"`
	Tool         BuildTool     `json:"tool"`
	Duration     time.Duration `json:"build_duration_ns"`
	AppliedFlags []string      `json:"applied_flags,omitempty"`
}

// BuildResult records how a target's build progressed.
// Transitions holds every state entered, in order; the last entry is either StateLinked or StateFailed.
type BuildResult struct {
	Recipe      CompilationRecipe
	Artifact    *BuildArtifact
	Transitions []BuildState
	FailedStep  *CompilationStep
	Err         error
}

// State returns the final state of the build.
func (r *BuildResult) State() BuildState {
	if len(r.Transitions) == 0 {
		return StateResolved
	}
	return r.Transitions[len(r.Transitions)-1]
}

// Enter records a transition.
func (r *BuildResult) Enter(s BuildState) {
	if len(r.Transitions) > 0 && r.Transitions[len(r.Transitions)-1] == s {
		return
	}
	r.Transitions = append(r.Transitions, s)
}
