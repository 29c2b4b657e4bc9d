package procname

import (
	"github.com/shirou/gopsutil/v4/process"
)

// Gopsutil asks gopsutil for the process name. It is the last resort on
// every platform since it may walk the whole process table.
type Gopsutil struct{}

func (Gopsutil) Name() string { return "gopsutil" }

func (Gopsutil) Lookup(pid uint32) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Name()
}

// GopsutilExe reads the executable path, which is not truncated the way
// the short process name is on Linux and macOS.
type GopsutilExe struct{}

func (GopsutilExe) Name() string { return "gopsutil-exe" }

func (GopsutilExe) Lookup(pid uint32) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Exe()
}
