// Package permissions checks the OS grants screen capture depends on. Only
// macOS gates it, behind the Screen Recording privacy setting.
package permissions

// Status is the outcome of a permission check.
type Status int

const (
	// NotRequired means the platform captures without any grant.
	NotRequired Status = iota
	Granted
	// Denied means capture will return blank or placeholder content. A
	// grant made now only takes effect after the process restarts.
	Denied
)

func (s Status) String() string {
	switch s {
	case NotRequired:
		return "not required"
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// OK reports whether capture can proceed.
func (s Status) OK() bool { return s != Denied }

// grant is the platform hook. preflight reads the current state without
// side effects; request may show a system dialog.
type grant struct {
	required  bool
	preflight func() bool
	request   func() bool
}

// ScreenRecording reports whether window and desktop capture is allowed.
// With prompt set and the grant missing, the OS is asked to show its
// consent dialog once.
func ScreenRecording(prompt bool) Status {
	return screenRecording.check(prompt)
}

func (g grant) check(prompt bool) Status {
	if !g.required {
		return NotRequired
	}
	if g.preflight() {
		return Granted
	}
	if prompt && g.request() {
		return Granted
	}
	return Denied
}
