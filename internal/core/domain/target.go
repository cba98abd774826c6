package domain

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

const (
	descriptorSeparator = ":"
	flagSeparator       = ","
	maxDescriptorParts  = 4
)

// ProjectKind describes the shape of a target on disk.
type ProjectKind uint8

const (
	// KindStandalone is a single source file or a self-contained project directory.
	KindStandalone ProjectKind = iota
	// KindWorkspace is a project directory driven by a manifest.
	KindWorkspace
)

// String returns the canonical descriptor token of the kind.
func (k ProjectKind) String() string {
	switch k {
	case KindStandalone:
		return "standalone"
	case KindWorkspace:
		return "workspace"
	default:
		return "unknown"
	}
}

// ParseProjectKind parses a kind token. Tokens are case-insensitive.
func ParseProjectKind(token string) (ProjectKind, error) {
	switch strings.ToLower(token) {
	case "s", "standalone":
		return KindStandalone, nil
	case "w", "workspace":
		return KindWorkspace, nil
	default:
		return 0, parseError("kind", token)
	}
}

// MarshalText encodes the kind by its descriptor token.
func (k ProjectKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts any token ParseProjectKind does.
func (k *ProjectKind) UnmarshalText(text []byte) error {
	parsed, err := ParseProjectKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// BuildTool names the toolchain used to build a target.
type BuildTool uint8

const (
	// ToolCargo is the Rust package manager.
	ToolCargo BuildTool = iota
	// ToolCMake is the CMake configure-then-build generator.
	ToolCMake
	// ToolClang is the clang compiler driver.
	ToolClang
	// ToolGcc is the gcc compiler driver.
	ToolGcc
)

// String returns the canonical descriptor token of the tool.
func (t BuildTool) String() string {
	switch t {
	case ToolCargo:
		return "cargo"
	case ToolCMake:
		return "cmake"
	case ToolClang:
		return "clang"
	case ToolGcc:
		return "gcc"
	default:
		return "unknown"
	}
}

// ParseBuildTool parses a tool token. Tokens are case-insensitive.
func ParseBuildTool(token string) (BuildTool, error) {
	switch strings.ToLower(token) {
	case "cargo":
		return ToolCargo, nil
	case "cmake":
		return ToolCMake, nil
	case "clang":
		return ToolClang, nil
	case "gcc":
		return ToolGcc, nil
	default:
		return 0, parseError("tool", token)
	}
}

// MarshalText encodes the tool by its descriptor token.
func (t BuildTool) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts any token ParseBuildTool does.
func (t *BuildTool) UnmarshalText(text []byte) error {
	parsed, err := ParseBuildTool(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SingleFile reports whether the tool compiles a single source file per invocation.
func (t BuildTool) SingleFile() bool {
	return t == ToolClang || t == ToolGcc
}

// Supports reports whether the tool can build targets of the given kind.
func (t BuildTool) Supports(k ProjectKind) bool {
	return k == KindStandalone || !t.SingleFile()
}

// TargetSpec is the typed form of a target descriptor. It is immutable once parsed.
type TargetSpec struct {
	Path  string      `json:"path"`
	Kind  ProjectKind `json:"kind"`
	Tool  BuildTool   `json:"tool"`
	Flags []string    `json:"flags,omitempty"`
}

// ParseTarget parses a descriptor of the form path:kind:tool[:flag1,flag2,...].
// Empty flag entries are dropped and an empty flag list normalizes to nil.
func ParseTarget(descriptor string) (TargetSpec, error) {
	parts := strings.Split(descriptor, descriptorSeparator)
	if len(parts) > maxDescriptorParts {
		return TargetSpec{}, zerr.With(
			zerr.With(zerr.Wrap(ErrParse, "too many parts"), "field", "descriptor"),
			"descriptor", descriptor,
		)
	}

	if parts[0] == "" {
		return TargetSpec{}, zerr.With(zerr.Wrap(ErrParse, "missing path"), "field", "path")
	}
	if len(parts) < 2 || parts[1] == "" {
		return TargetSpec{}, zerr.With(zerr.Wrap(ErrParse, "missing project kind"), "field", "kind")
	}
	if len(parts) < 3 || parts[2] == "" {
		return TargetSpec{}, zerr.With(zerr.Wrap(ErrParse, "missing build tool"), "field", "tool")
	}

	kind, err := ParseProjectKind(parts[1])
	if err != nil {
		return TargetSpec{}, err
	}

	tool, err := ParseBuildTool(parts[2])
	if err != nil {
		return TargetSpec{}, err
	}

	spec := TargetSpec{
		Path: parts[0],
		Kind: kind,
		Tool: tool,
	}
	if len(parts) == maxDescriptorParts {
		spec.Flags = splitFlags(parts[3])
	}

	return spec, nil
}

// String renders the canonical descriptor. ParseTarget(s.String()) yields s.
func (s TargetSpec) String() string {
	var b strings.Builder
	b.WriteString(s.Path)
	b.WriteString(descriptorSeparator)
	b.WriteString(s.Kind.String())
	b.WriteString(descriptorSeparator)
	b.WriteString(s.Tool.String())
	if len(s.Flags) > 0 {
		b.WriteString(descriptorSeparator)
		b.WriteString(strings.Join(s.Flags, flagSeparator))
	}
	return b.String()
}

// Slug returns a filesystem-friendly short name derived from the target path.
func (s TargetSpec) Slug() string {
	base := filepath.Base(filepath.Clean(s.Path))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "target"
	}
	return b.String()
}

// BuildDirFor returns the private build directory of the target at the given position.
// The hash covers the position and the full spec so that repeated descriptors never share a tree.
func BuildDirFor(root string, index int, s TargetSpec) string {
	abs, err := filepath.Abs(s.Path)
	if err != nil {
		abs = s.Path
	}

	h := xxhash.New()
	_, _ = h.WriteString(strconv.Itoa(index))
	_, _ = h.WriteString("\x00" + abs)
	_, _ = h.WriteString("\x00" + s.Kind.String())
	_, _ = h.WriteString("\x00" + s.Tool.String())
	for _, f := range s.Flags {
		_, _ = h.WriteString("\x00" + f)
	}

	name := s.Slug() + "-" + strconv.FormatUint(h.Sum64(), 16)
	return filepath.Join(root, DefaultBuildPath(), name)
}

func splitFlags(raw string) []string {
	var flags []string
	for f := range strings.SplitSeq(raw, flagSeparator) {
		if f = strings.TrimSpace(f); f != "" {
			flags = append(flags, f)
		}
	}
	return flags
}

func parseError(field, token string) error {
	return zerr.With(
		zerr.With(zerr.Wrap(ErrParse, "unknown "+field), "field", field),
		"token", token,
	)
}
