package locator

import (
	"runtime"
	"strings"
)

// Filter decides which executable names are offered as capture targets.
type Filter struct {
	Deny     map[string]struct{}
	Prefixes []string
	// Suffix, when set, is required (".exe" on Windows).
	Suffix string
}

var systemProcesses = []string{
	"dwm.exe", "winlogon.exe", "csrss.exe", "explorer.exe",
	"svchost.exe", "lsass.exe", "smss.exe", "wininit.exe",
	"services.exe", "spoolsv.exe", "conhost.exe", "dllhost.exe",
	"rundll32.exe", "taskhostw.exe", "sihost.exe", "ctfmon.exe",
	"fontdrvhost.exe", "lsm.exe", "nvidia overlay.exe",
	"textinputhost.exe",
}

// DefaultFilter hides shell and OS service processes.
func DefaultFilter() Filter {
	f := Filter{
		Deny:     make(map[string]struct{}, len(systemProcesses)),
		Prefixes: []string{"windows", "microsoft"},
	}
	for _, name := range systemProcesses {
		f.Deny[name] = struct{}{}
	}
	if runtime.GOOS == "windows" {
		f.Suffix = ".exe"
	}
	return f
}

// Allow expects a lower-cased name.
func (f Filter) Allow(name string) bool {
	if name == "" {
		return false
	}
	if f.Suffix != "" && !strings.HasSuffix(name, f.Suffix) {
		return false
	}
	if _, denied := f.Deny[name]; denied {
		return false
	}
	for _, p := range f.Prefixes {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	return true
}
