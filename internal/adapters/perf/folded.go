package perf

import (
	"bufio"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

// FoldStacks converts `perf script` output into folded stacks
// ("comm;root;...;leaf count"), the input format of flame graph renderers.
// Lines are sorted so the output is deterministic.
func FoldStacks(r io.Reader) []string {
	counts := make(map[string]int)

	var comm string
	var frames []string
	flush := func() {
		if comm == "" {
			return
		}
		stack := make([]string, 0, len(frames)+1)
		stack = append(stack, comm)
		for _, f := range slices.Backward(frames) {
			stack = append(stack, f)
		}
		counts[strings.Join(stack, ";")]++
		comm = ""
		frames = frames[:0]
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case line[0] == ' ' || line[0] == '\t':
			if comm != "" {
				frames = append(frames, frameSymbol(line))
			}
		case !strings.HasPrefix(line, "#"):
			flush()
			comm = sampleComm(line)
		}
	}
	flush()

	lines := make([]string, 0, len(counts))
	for stack, n := range counts {
		lines = append(lines, stack+" "+strconv.Itoa(n))
	}
	slices.Sort(lines)
	return lines
}

// sampleComm extracts the command name from a sample header such as
// "fib 1234 [002] 1.000: 250000 cycles:".
func sampleComm(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	// Command names may contain spaces; the pid is the first purely numeric field.
	for i := 1; i < len(fields); i++ {
		if isDigits(strings.SplitN(fields[i], "/", 2)[0]) {
			return strings.Join(fields[:i], "_")
		}
	}
	return fields[0]
}

// frameSymbol extracts the symbol from a stack line "\t  4005d6 fib+0x16 (/tmp/fib)".
func frameSymbol(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "[unknown]"
	}
	sym := strings.Join(fields[1:], " ")
	if i := strings.LastIndex(sym, " ("); i >= 0 {
		sym = sym[:i]
	}
	if i := strings.LastIndex(sym, "+0x"); i > 0 {
		sym = sym[:i]
	}
	if sym == "" {
		return "[unknown]"
	}
	return strings.ReplaceAll(sym, ";", ":")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func writeFolded(path string, lines []string) error {
	data := strings.Join(lines, "\n")
	if len(lines) > 0 {
		data += "\n"
	}
	if err := os.WriteFile(path, []byte(data), domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write folded stacks"), "path", path)
	}
	return nil
}
