package domain

import "strings"

// Command is an external process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env overrides the inherited environment.
	Env map[string]string
}

// ShellCommand wraps a shell snippet such as a prepare or cleanup hook.
func ShellCommand(script string) Command {
	return Command{Name: "sh", Args: []string{"-c", script}}
}

// String renders the command line for diagnostics.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
