package main

import (
	"bytes"
	"image"
	"os"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Because66666/CanLiang/internal/encoder"
	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/surface/surfacetest"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{}, args...))
	err := root.Execute()
	return buf.String(), err
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "streamer" {
		t.Errorf("Use = %q", rootCmd.Use)
	}
	want := map[string]bool{"serve": false, "programs": false, "snapshot": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q missing", name)
		}
	}
}

func TestHelp(t *testing.T) {
	out, err := executeCommand(rootCmd, "snapshot", "--help")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(out), []byte("--output")) {
		t.Errorf("help output lacks --output:\n%s", out)
	}
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	isolate(t)
	t.Setenv("CANLIANG_STREAM_FPS", "15")

	if err := rootCmd.ParseFlags([]string{"-a", "notepad.exe", "--quality", "60"}); err != nil {
		t.Fatal(err)
	}
	conf, err := loadConfig(rootCmd)
	if err != nil {
		t.Fatal(err)
	}
	if conf.Stream.Target != "notepad.exe" || conf.Stream.Quality != 60 {
		t.Errorf("flags not applied: %+v", conf.Stream)
	}
	// fps came from the environment and no flag overrode it
	if conf.Stream.FPS != 15 {
		t.Errorf("fps = %d, want 15", conf.Stream.FPS)
	}
}

func TestPipeline(t *testing.T) {
	isolate(t)
	conf, err := loadConfig(&cobra.Command{})
	if err != nil {
		t.Fatal(err)
	}
	conf.Stream.MaxWidth = 32

	platform := surfacetest.New()
	platform.Add(7, "notepad.exe", image.Rect(0, 0, 64, 40))
	p := newPipeline(conf, platform, logger.Nop())

	if got := p.loc.Programs(); len(got) != 1 || got[0] != "notepad.exe" {
		t.Errorf("Programs() = %v", got)
	}
	data, frame, err := p.pub.Snapshot("notepad.exe")
	if err != nil {
		t.Fatal(err)
	}
	if frame.Placeholder || len(data) == 0 {
		t.Fatalf("snapshot placeholder=%v bytes=%d", frame.Placeholder, len(data))
	}
	if p.enc.Quality() != encoder.DefaultQuality {
		t.Errorf("quality = %d", p.enc.Quality())
	}
}
