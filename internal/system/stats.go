package system

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is the resource usage printed by the -stats report.
type Snapshot struct {
	RSS        uint64
	CPUPercent float64
	HostUsed   float64
	Goroutines int
	HeapAlloc  uint64
}

// TakeSnapshot samples this process and the host.
func TakeSnapshot() (Snapshot, error) {
	var s Snapshot
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return s, fmt.Errorf("open self: %w", err)
	}
	if info, err := proc.MemoryInfo(); err == nil {
		s.RSS = info.RSS
	}
	if pct, err := proc.CPUPercent(); err == nil {
		s.CPUPercent = pct
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.HostUsed = vm.UsedPercent
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAlloc = ms.HeapAlloc
	s.Goroutines = runtime.NumGoroutine()
	return s, nil
}

// Report is the summary of one render.
type Report struct {
	Effect   string
	Profile  string
	Seed     int64
	Frames   uint64
	Elapsed  time.Duration
	Playback time.Duration
	Snapshot Snapshot
}

// Write prints r in the CLI's stats format.
func (r Report) Write(w io.Writer) {
	fps := 0.0
	if r.Elapsed > 0 {
		fps = float64(r.Frames) / r.Elapsed.Seconds()
	}
	fmt.Fprintf(w, "\n--- stats ---\n")
	fmt.Fprintf(w, "effect:      %s/%s seed %d\n", r.Effect, r.Profile, r.Seed)
	fmt.Fprintf(w, "frames:      %d (%.2fs of playback)\n", r.Frames, r.Playback.Seconds())
	fmt.Fprintf(w, "wall time:   %v (%.1f frames/s)\n", r.Elapsed.Round(time.Millisecond), fps)
	fmt.Fprintf(w, "rss:         %.1f MiB (heap %.1f MiB)\n", mib(r.Snapshot.RSS), mib(r.Snapshot.HeapAlloc))
	fmt.Fprintf(w, "cpu:         %.1f%%\n", r.Snapshot.CPUPercent)
	fmt.Fprintf(w, "host memory: %.1f%% used\n", r.Snapshot.HostUsed)
	fmt.Fprintf(w, "goroutines:  %d\n", r.Snapshot.Goroutines)
}

func mib(b uint64) float64 {
	return float64(b) / (1 << 20)
}
