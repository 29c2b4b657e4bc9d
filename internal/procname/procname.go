// Package procname resolves a process id to its executable name by trying
// a list of lookups in order, from the least privileged to the most
// invasive.
package procname

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrNoName = errors.New("process name unavailable")

// Strategy is one way of learning a process' executable name.
type Strategy interface {
	Name() string
	Lookup(pid uint32) (string, error)
}

// Chain tries each strategy in order; the first non-empty name wins.
type Chain []Strategy

func (c Chain) Lookup(pid uint32) (string, error) {
	var errs []error
	for _, s := range c {
		name, err := s.Lookup(pid)
		if err == nil && name != "" {
			return base(name), nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("pid %d: %w", pid, ErrNoName)
	}
	return "", fmt.Errorf("pid %d: %w: %w", pid, ErrNoName, errors.Join(errs...))
}

// base strips both kinds of path separators so that Windows image paths
// are handled the same on every host.
func base(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		path = path[i+1:]
	}
	return filepath.Clean(path)
}

// Func adapts a plain function to a Strategy.
type Func struct {
	Label string
	Fn    func(pid uint32) (string, error)
}

func (f Func) Name() string                      { return f.Label }
func (f Func) Lookup(pid uint32) (string, error) { return f.Fn(pid) }
