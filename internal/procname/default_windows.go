//go:build windows

package procname

import (
	"golang.org/x/sys/windows"
)

// Default is the Windows lookup order: limited query rights, then full
// query rights with VM read, then gopsutil.
func Default() Chain { return Chain{LimitedQuery{}, FullQuery{}, Gopsutil{}} }

// LimitedQuery opens the process with PROCESS_QUERY_LIMITED_INFORMATION,
// which works for most elevated processes too.
type LimitedQuery struct{}

func (LimitedQuery) Name() string { return "query-limited" }

func (LimitedQuery) Lookup(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", err
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:size]), nil
}

// FullQuery needs PROCESS_QUERY_INFORMATION|PROCESS_VM_READ and reads the
// main module file name.
type FullQuery struct{}

func (FullQuery) Name() string { return "query-full" }

func (FullQuery) Lookup(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ, false, pid)
	if err != nil {
		return "", err
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	if err := windows.GetModuleFileNameEx(h, 0, &buf[0], uint32(len(buf))); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf), nil
}
