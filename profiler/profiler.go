// Package profiler captures Go runtime resource usage around benchmark runs.
package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Snapshot is a point-in-time reading of the Go runtime.
type Snapshot struct {
	Time        time.Time
	Alloc       uint64
	TotalAlloc  uint64
	Sys         uint64
	HeapAlloc   uint64
	HeapSys     uint64
	HeapObjects uint64
	Mallocs     uint64
	NumGC       uint32
	CgoCalls    int64
	Goroutines  int
}

// TakeSnapshot forces a collection and reads the runtime statistics, so that
// consecutive snapshots compare live heap rather than garbage.
func TakeSnapshot() Snapshot {
	var ms runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&ms)
	return Snapshot{
		Time:        time.Now(),
		Alloc:       ms.Alloc,
		TotalAlloc:  ms.TotalAlloc,
		Sys:         ms.Sys,
		HeapAlloc:   ms.HeapAlloc,
		HeapSys:     ms.HeapSys,
		HeapObjects: ms.HeapObjects,
		Mallocs:     ms.Mallocs,
		NumGC:       ms.NumGC,
		CgoCalls:    runtime.NumCgoCall(),
		Goroutines:  runtime.NumGoroutine(),
	}
}

// Usage is the difference between two snapshots.
type Usage struct {
	// AllocatedBytes is the cumulative heap allocation between the snapshots.
	AllocatedBytes uint64 `json:"allocated_bytes"`
	// Mallocs is the number of heap objects allocated between the snapshots.
	Mallocs uint64 `json:"mallocs"`
	// NumGC is the number of completed collections, excluding the forced ones.
	NumGC uint32 `json:"num_gc"`
	// CgoCalls is the number of cgo calls made between the snapshots.
	CgoCalls int64 `json:"cgo_calls"`
	// HeapAllocBytes is the live heap at the second snapshot.
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	// HeapSysBytes is the heap obtained from the OS at the second snapshot.
	HeapSysBytes uint64 `json:"heap_sys_bytes"`
	// SysBytes is the total memory obtained from the OS at the second snapshot.
	SysBytes uint64 `json:"sys_bytes"`
}

// Since returns the usage between start and s.
func (s Snapshot) Since(start Snapshot) Usage {
	gc := s.NumGC - start.NumGC
	if gc > 0 {
		// TakeSnapshot's own collection on s.
		gc--
	}
	return Usage{
		AllocatedBytes: s.TotalAlloc - start.TotalAlloc,
		Mallocs:        s.Mallocs - start.Mallocs,
		NumGC:          gc,
		CgoCalls:       s.CgoCalls - start.CgoCalls,
		HeapAllocBytes: s.HeapAlloc,
		HeapSysBytes:   s.HeapSys,
		SysBytes:       s.Sys,
	}
}

// String renders the usage for log lines.
func (u Usage) String() string {
	return fmt.Sprintf("allocated=%s mallocs=%d gc=%d cgo=%d heap=%s",
		FormatBytes(u.AllocatedBytes), u.Mallocs, u.NumGC, u.CgoCalls, FormatBytes(u.HeapAllocBytes))
}

// Measure runs fn between two snapshots and returns the usage with fn's error.
func Measure(fn func() error) (Usage, error) {
	start := TakeSnapshot()
	err := fn()
	return TakeSnapshot().Since(start), err
}

// RuntimeProfiler accumulates operation timings and memory usage across a session.
// It is safe for concurrent use.
type RuntimeProfiler struct {
	mu             sync.RWMutex
	startTime      time.Time
	start          Snapshot
	operationTimes map[string]*TimeTracker
}

// TimeTracker tracks timing statistics for one named operation.
type TimeTracker struct {
	name      string
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// OperationStats is an immutable view of a TimeTracker.
type OperationStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
}

// NewRuntimeProfiler creates a profiler and takes the session's starting snapshot.
//
// Returns:
// - A RuntimeProfiler with no recorded operations
func NewRuntimeProfiler() *RuntimeProfiler {
	return &RuntimeProfiler{
		startTime:      time.Now(),
		start:          TakeSnapshot(),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (rp *RuntimeProfiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		rp.RecordOperation(name, time.Since(start))
	}
}

// RecordOperation records the completion time of an operation.
func (rp *RuntimeProfiler) RecordOperation(name string, duration time.Duration) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	tracker, exists := rp.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			name:    name,
			minTime: duration,
			maxTime: duration,
		}
		rp.operationTimes[name] = tracker
	}

	tracker.totalTime += duration
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Operations returns the recorded operations sorted by name.
func (rp *RuntimeProfiler) Operations() []OperationStats {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	out := make([]OperationStats, 0, len(rp.operationTimes))
	for _, t := range rp.operationTimes {
		out = append(out, OperationStats{
			Name:  t.name,
			Count: t.count,
			Total: t.totalTime,
			Min:   t.minTime,
			Max:   t.maxTime,
			Mean:  t.totalTime / time.Duration(t.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Uptime returns the time since the profiler was created.
func (rp *RuntimeProfiler) Uptime() time.Duration {
	return time.Since(rp.startTime)
}

// SessionUsage returns the usage since the profiler was created.
func (rp *RuntimeProfiler) SessionUsage() Usage {
	return TakeSnapshot().Since(rp.start)
}

// FormatBytes formats byte counts in human-readable IEC units.
func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}
