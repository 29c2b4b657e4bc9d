// Package locator maps a target identifier (an executable name or the
// desktop marker) to a capturable surface.
package locator

import (
	"slices"
	"strings"

	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/surface"
)

// DefaultDesktopTarget selects the whole desktop instead of a process.
const DefaultDesktopTarget = "桌面.exe"

type Locator struct {
	platform surface.Platform
	desktop  string
	filter   Filter
	log      *logger.Logger
}

type Option func(*Locator)

func WithDesktopTarget(name string) Option {
	return func(l *Locator) {
		if name != "" {
			l.desktop = name
		}
	}
}

func WithFilter(f Filter) Option { return func(l *Locator) { l.filter = f } }

func WithLogger(log *logger.Logger) Option { return func(l *Locator) { l.log = log } }

func New(p surface.Platform, opts ...Option) *Locator {
	l := &Locator{
		platform: p,
		desktop:  DefaultDesktopTarget,
		filter:   DefaultFilter(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locator) DesktopTarget() string { return l.desktop }

func (l *Locator) IsDesktop(target string) bool { return target == l.desktop }

// IsDesktopHandle reports whether h is the platform's root surface.
func (l *Locator) IsDesktopHandle(h surface.Handle) bool {
	return h != surface.NoHandle && h == l.platform.DesktopHandle()
}

// Valid reports whether a previously resolved handle is still usable.
func (l *Locator) Valid(h surface.Handle) bool {
	if l.IsDesktopHandle(h) {
		return true
	}
	return l.platform.SurfaceExistsAndVisible(h)
}

// Resolve returns the first visible surface owned by target. A miss is not
// an error: the process may simply not be running yet.
func (l *Locator) Resolve(target string) (surface.Handle, bool) {
	if l.IsDesktop(target) {
		return l.platform.DesktopHandle(), true
	}

	want := strings.ToLower(target)
	var found surface.Handle
	l.each(func(h surface.Handle, name string) bool {
		if name == want {
			found = h
			return false
		}
		return true
	})

	if found == surface.NoHandle {
		l.log.Debug().Str("target", target).Msg("no window found")
		return surface.NoHandle, false
	}
	l.log.Debug().Str("target", target).Uint64("hwnd", uint64(found)).Msg("window found")
	return found, true
}

// Programs lists the distinct executable names that currently own a
// visible window, minus OS processes, sorted.
func (l *Locator) Programs() []string {
	seen := make(map[string]struct{})
	l.each(func(_ surface.Handle, name string) bool {
		if l.filter.Allow(name) {
			seen[name] = struct{}{}
		}
		return true
	})

	list := make([]string, 0, len(seen))
	for name := range seen {
		list = append(list, name)
	}
	slices.Sort(list)
	l.log.Debug().Int("count", len(list)).Strs("programs", list).Msg("programs scanned")
	return list
}

// each walks visible surfaces with their lower-cased process names,
// skipping surfaces whose owner cannot be identified, until fn returns
// false.
func (l *Locator) each(fn func(h surface.Handle, name string) bool) {
	handles, err := l.platform.VisibleSurfaces()
	if err != nil {
		l.log.Debug().Err(err).Msg("window enumeration failed")
		return
	}
	for _, h := range handles {
		name, err := l.platform.ProcessName(h)
		if err != nil || name == "" {
			l.log.Debug().Err(err).Uint64("hwnd", uint64(h)).Msg("process name unavailable")
			continue
		}
		if !fn(h, strings.ToLower(name)) {
			return
		}
	}
}
