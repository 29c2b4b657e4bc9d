package permissions

import (
	"runtime"
	"testing"
)

func TestGrantCheck(t *testing.T) {
	tests := []struct {
		name      string
		required  bool
		granted   bool
		allowed   bool
		prompt    bool
		want      Status
		wantAsked bool
	}{
		{name: "not required", want: NotRequired},
		{name: "already granted", required: true, granted: true, prompt: true, want: Granted},
		{name: "denied without prompt", required: true, want: Denied},
		{name: "prompt denied", required: true, prompt: true, want: Denied, wantAsked: true},
		{name: "prompt granted", required: true, prompt: true, allowed: true, want: Granted, wantAsked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asked := false
			g := grant{
				required:  tt.required,
				preflight: func() bool { return tt.granted },
				request:   func() bool { asked = true; return tt.allowed },
			}
			if got := g.check(tt.prompt); got != tt.want {
				t.Errorf("check = %v, want %v", got, tt.want)
			}
			if asked != tt.wantAsked {
				t.Errorf("asked = %v, want %v", asked, tt.wantAsked)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	if Denied.OK() || !Granted.OK() || !NotRequired.OK() {
		t.Error("OK mismatch")
	}
	if Denied.String() != "denied" || Status(9).String() != "unknown" {
		t.Errorf("String = %q, %q", Denied, Status(9))
	}
}

func TestScreenRecordingOffMac(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("depends on the host's privacy settings")
	}
	if got := ScreenRecording(true); got != NotRequired {
		t.Errorf("ScreenRecording = %v, want %v", got, NotRequired)
	}
}
