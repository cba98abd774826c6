package process

import (
	"os"
	"syscall"
)

// peakRSS returns the maximum resident set size in bytes. Linux reports kilobytes.
func peakRSS(state *os.ProcessState) *uint64 {
	ru, ok := state.SysUsage().(*syscall.Rusage)
	if !ok || ru.Maxrss <= 0 {
		return nil
	}
	peak := uint64(ru.Maxrss) * 1024
	return &peak
}
