package perf

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"go.trai.ch/oxidizer/internal/core/domain"
	"go.trai.ch/zerr"
)

// counterProbe is a command wrapped in `perf stat -x,`.
type counterProbe struct {
	cmd    domain.Command
	path   string
	events []string
}

func (c *counterProbe) Command() domain.Command {
	return c.cmd
}

func (c *counterProbe) Collect() (map[string]uint64, error) {
	defer func() { _ = os.Remove(c.path) }()

	f, err := os.Open(c.path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read counter file")
	}
	defer func() { _ = f.Close() }()

	return ParseStat(f, c.events)
}

// ParseStat reads the CSV output of `perf stat -x,` and sums the values per
// requested event. Events perf could not count are omitted. Hybrid PMU
// prefixes ("cpu_core/cycles/") and modifiers ("cycles:u") are folded into the
// requested name.
func ParseStat(r io.Reader, events []string) (map[string]uint64, error) {
	wanted := make(map[string]struct{}, len(events))
	for _, e := range events {
		wanted[e] = struct{}{}
	}

	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	counters := make(map[string]uint64)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, zerr.Wrap(err, "malformed perf stat output")
		}
		if len(record) < 3 {
			continue
		}

		raw := strings.TrimSpace(record[0])
		if strings.HasPrefix(raw, "<") {
			// <not counted> or <not supported>
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}

		name := normalizeEvent(strings.TrimSpace(record[2]))
		if _, ok := wanted[name]; !ok && len(wanted) > 0 {
			continue
		}
		counters[name] += uint64(math.Round(value))
	}
	return counters, nil
}

func normalizeEvent(name string) string {
	if pmu, rest, ok := strings.Cut(name, "/"); ok && pmu != "" {
		name = strings.TrimSuffix(rest, "/")
	}
	if base, _, ok := strings.Cut(name, ":"); ok {
		name = base
	}
	return name
}
