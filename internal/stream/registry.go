package stream

import (
	"slices"
	"strings"
	"sync"
)

// maxLatest bounds how many distinct targets keep a finished session around
// for status reporting.
const maxLatest = 256

// Registry tracks live sessions and remembers the latest one per target so
// its final state can still be reported after it ends.
type Registry struct {
	mu        sync.Mutex
	live      []*Session
	latest    map[string]*Session
	maxLatest int
}

func NewRegistry() *Registry {
	return &Registry{latest: make(map[string]*Session), maxLatest: maxLatest}
}

func key(target string) string { return strings.ToLower(target) }

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = append(r.live, s)
	k := key(s.Target())
	if _, ok := r.latest[k]; !ok && len(r.latest) >= r.maxLatest {
		r.pruneLocked()
	}
	r.latest[k] = s
}

// pruneLocked forgets targets whose latest session is no longer live.
func (r *Registry) pruneLocked() {
	for k, s := range r.latest {
		if !slices.Contains(r.live, s) {
			delete(r.latest, k)
		}
	}
}

func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = slices.DeleteFunc(r.live, func(x *Session) bool { return x == s })
}

// Latest returns the most recently added session for target, live or not.
func (r *Registry) Latest(target string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.latest[key(target)]
	return s, ok
}

// Live returns the running sessions, optionally only those for target.
func (r *Registry) Live(target string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if target == "" {
		return slices.Clone(r.live)
	}
	var list []*Session
	for _, s := range r.live {
		if key(s.Target()) == key(target) {
			list = append(list, s)
		}
	}
	return list
}

// Stop stops the live sessions for target, or all of them when target is
// empty, and returns how many were told to stop.
func (r *Registry) Stop(target string) int {
	list := r.Live(target)
	for _, s := range list {
		s.Stop()
	}
	return len(list)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
