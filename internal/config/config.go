// Package config loads streamer and viewer settings from a YAML file,
// CANLIANG_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	EnvPrefix = "CANLIANG"
	FileName  = "config.yaml"
)

// Config holds all runtime configuration of the streamer.
type Config struct {
	Debug      bool
	Log        Log
	Stream     Stream
	Server     Server
	Monitoring Monitoring
	Signaling  Signaling
}

type Log struct {
	// Console switches from JSON to human-readable output.
	Console bool
	NoColor bool
}

type Stream struct {
	Target        string `default:"yuanshen.exe"`
	DesktopTarget string `default:"桌面.exe"`
	// FPS and Quality treat 0 as unset and take the default.
	FPS     int `default:"30"`
	Quality int `default:"80"`
	// MaxWidth downsizes wider frames before encoding; 0 keeps them.
	MaxWidth int
}

type Server struct {
	Address         string        `default:":3001"`
	ShutdownTimeout time.Duration `default:"5s"`
	// AllowOrigin is sent as Access-Control-Allow-Origin when set and also
	// gates WebSocket handshakes from browser pages on other origins.
	AllowOrigin string `default:"*"`
}

type Monitoring struct {
	Port             int `default:"6601"`
	URLPrefix        string
	MetricEnabled    bool
	ProfilingEnabled bool
}

func (m Monitoring) IsEnabled() bool { return m.MetricEnabled || m.ProfilingEnabled }

// Signaling enables WebRTC viewing when URL is set.
type Signaling struct {
	URL string
	ID  string
}

func (s Signaling) IsEnabled() bool { return s.URL != "" }

// Load reads the config file from path, or when path is empty, from the
// first of ., configs and ~/.canliang that has one. A missing file is not
// an error: defaults and the environment still apply.
func Load(path string) (Config, error) {
	var c Config
	if err := load(&c, path); err != nil {
		return Config{}, err
	}
	c.fix()
	return c, c.Validate()
}

func load(c any, path string) error {
	opts := []fig.Option{fig.UseEnv(EnvPrefix)}
	if path != "" {
		opts = append(opts, fig.File(filepath.Base(path)), fig.Dirs(filepath.Dir(path)))
	} else {
		opts = append(opts, fig.File(FileName), fig.Dirs(Dirs()...))
	}
	err := fig.Load(c, opts...)
	if errors.Is(err, fig.ErrFileNotFound) {
		if path != "" {
			return fmt.Errorf("config %s: %w", path, err)
		}
		return fig.Load(c, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
	}
	return err
}

// Dirs lists where a config file is looked for.
func Dirs() []string {
	dirs := []string{".", "configs"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".canliang"))
	}
	return dirs
}

func (c *Config) fix() {
	c.Stream.Target = strings.TrimSpace(c.Stream.Target)
	if c.Signaling.ID == "" {
		c.Signaling.ID = "streamer-" + randomID()
	}
}

// Validate rejects settings the streamer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Stream.FPS < 1 || c.Stream.FPS > 120 {
		errs = append(errs, fmt.Errorf("stream.fps %d out of range 1..120", c.Stream.FPS))
	}
	if c.Stream.Quality < 1 || c.Stream.Quality > 100 {
		errs = append(errs, fmt.Errorf("stream.quality %d out of range 1..100", c.Stream.Quality))
	}
	if c.Stream.MaxWidth < 0 {
		errs = append(errs, fmt.Errorf("stream.maxwidth %d is negative", c.Stream.MaxWidth))
	}
	if c.Stream.DesktopTarget == "" {
		errs = append(errs, errors.New("stream.desktoptarget is empty"))
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is empty"))
	}
	return errors.Join(errs...)
}
