package stream

import "github.com/Because66666/CanLiang/internal/surface"

// Info is the status record served by the info endpoint.
type Info struct {
	TargetApp   string `json:"target_app"`
	IsStreaming bool   `json:"is_streaming"`
	// WindowFound is only true for a live window, never for the desktop.
	WindowFound bool    `json:"window_found"`
	Hwnd        *uint64 `json:"hwnd"`
	State       string  `json:"state"`
	SessionID   string  `json:"session_id,omitempty"`
}

// IdleInfo describes a target nobody is streaming.
func IdleInfo(target string) Info {
	return Info{TargetApp: target, State: Idle.String()}
}

// Info snapshots the session. It has no side effects.
func (s *Session) Info() Info {
	h := s.Handle()
	info := Info{
		TargetApp:   s.target,
		IsStreaming: s.Running(),
		WindowFound: h != surface.NoHandle && !s.loc.IsDesktopHandle(h),
		State:       s.State().String(),
		SessionID:   s.id,
	}
	if h != surface.NoHandle {
		v := uint64(h)
		info.Hwnd = &v
	}
	return info
}
