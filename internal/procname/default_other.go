//go:build !windows

package procname

// Default is the non-Windows lookup order: the executable path first,
// then the (possibly truncated) process name.
func Default() Chain { return Chain{GopsutilExe{}, Gopsutil{}} }
