// Package sys collects process resource metrics and host network metrics
// into samples shaped for the ftdc package: BSON documents of numeric
// fields (flat for a process, nested per interface and protocol for the
// network), suitable for handing directly to a Compressor.
package sys

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/procfs"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// On linux, getting the page size is a system call. Cache the page size for
// the entirety of the program lifetime, as opposed to calling it each time
// we wish to compute the resident memory a program is using.
var (
	osPageSize                    int
	machineBootTimeSecsSinceEpoch float64
)

func init() {
	osPageSize = os.Getpagesize()

	machine, err := procfs.NewDefaultFS()
	if err != nil {
		return
	}

	machineStats, err := machine.Stat()
	if err != nil {
		return
	}

	machineBootTimeSecsSinceEpoch = float64(machineStats.BootTime)
}

// UsageStatser samples process resource usage for a single process,
// producing one metric-bearing BSON document per call to Sample.
type UsageStatser struct {
	proc procfs.Proc
}

// NewSelfSysUsageStatser returns a UsageStatser for the current process.
func NewSelfSysUsageStatser() (*UsageStatser, error) {
	process, err := procfs.Self()
	if err != nil {
		return nil, fmt.Errorf("sys: opening /proc/self: %w", err)
	}
	return &UsageStatser{process}, nil
}

// NewPidSysUsageStatser returns a UsageStatser for the given process id.
func NewPidSysUsageStatser(pid int) (*UsageStatser, error) {
	process, err := procfs.NewProc(pid)
	if err != nil {
		return nil, fmt.Errorf("sys: opening /proc/%d: %w", pid, err)
	}
	return &UsageStatser{process}, nil
}

// Sample reads the process's current /proc/[pid]/stat and returns it as a
// flat BSON document: every field is a metric-bearing Double, so the whole
// document feeds straight into Compressor.AddSample.
func (sys *UsageStatser) Sample() (bsoncore.Document, error) {
	// Stats files refer to time in "clock ticks". The right way to learn of
	// the tick time (on linux) is via a system call to sysconf(_SC_CLK_TCK).
	// That system call requires cgo; 100hz is the value on essentially every
	// modern system, so we hardcode it rather than pull in cgo for this.
	const userHz = 100

	stat, err := sys.proc.Stat()
	if err != nil {
		return nil, fmt.Errorf("sys: reading process stat: %w", err)
	}

	relativeStartTimeSecs := float64(stat.Starttime) / float64(userHz)
	absoluteStartTimeSecs := machineBootTimeSecsSinceEpoch + relativeStartTimeSecs

	const nanosPerSecond = float64(1_000_000_000)

	idx, doc := bsoncore.AppendDocumentStart(nil)
	doc = bsoncore.AppendDoubleElement(doc, "userCpuSecs", float64(stat.UTime)/float64(userHz))
	doc = bsoncore.AppendDoubleElement(doc, "systemCpuSecs", float64(stat.STime)/float64(userHz))
	doc = bsoncore.AppendDoubleElement(doc, "elapsedTimeSecs",
		float64(time.Now().UnixNano())/nanosPerSecond-absoluteStartTimeSecs)
	doc = bsoncore.AppendDoubleElement(doc, "vssMB", float64(stat.VSize)/1_000_000.0)
	doc = bsoncore.AppendDoubleElement(doc, "rssMB", float64(stat.RSS*osPageSize)/1_000_000.0)
	doc, err = bsoncore.AppendDocumentEnd(doc, idx)
	if err != nil {
		return nil, fmt.Errorf("sys: building sample document: %w", err)
	}
	return bsoncore.Document(doc), nil
}
