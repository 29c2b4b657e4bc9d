package config

import (
	"time"

	"github.com/spf13/pflag"
)

// AddFlags registers streamer flags. Their values only replace loaded
// settings when given explicitly, see ApplyFlags.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.Debug, "debug", "d", false, "Enable debug logging")
	fs.BoolVar(&c.Log.Console, "log.console", false, "Human-readable log output")
	fs.BoolVar(&c.Log.NoColor, "log.nocolor", false, "Disable colors in console logs")

	fs.StringVarP(&c.Stream.Target, "app", "a", "yuanshen.exe", "Default capture target (executable name)")
	fs.StringVar(&c.Stream.DesktopTarget, "desktop", "桌面.exe", "Target name that selects the whole desktop")
	fs.IntVar(&c.Stream.FPS, "fps", 30, "Target frames per second")
	fs.IntVarP(&c.Stream.Quality, "quality", "q", 80, "JPEG quality (1-100)")
	fs.IntVar(&c.Stream.MaxWidth, "max-width", 0, "Downscale frames wider than this (0 = off)")

	fs.StringVar(&c.Server.Address, "addr", ":3001", "HTTP listen address")
	fs.DurationVar(&c.Server.ShutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	fs.StringVar(&c.Server.AllowOrigin, "allow-origin", "*", "Access-Control-Allow-Origin value (empty = no CORS)")

	fs.BoolVarP(&c.Monitoring.MetricEnabled, "monitoring.metric", "m", false, "Enable prometheus metrics")
	fs.BoolVarP(&c.Monitoring.ProfilingEnabled, "monitoring.pprof", "p", false, "Enable golang pprof")
	fs.IntVar(&c.Monitoring.Port, "monitoring.port", 6601, "Monitoring server port")
	fs.StringVar(&c.Monitoring.URLPrefix, "monitoring.prefix", "", "Monitoring server url prefix")

	fs.StringVar(&c.Signaling.URL, "signaling", "", "Signaling server WebSocket URL (empty = no WebRTC)")
	fs.StringVar(&c.Signaling.ID, "id", "", "Signaling ID (auto-generated if empty)")
}

// ApplyFlags copies every flag set on the command line from flags into c.
// flags must be the Config AddFlags was called on.
func (c *Config) ApplyFlags(fs *pflag.FlagSet, flags *Config) {
	set := func(name string, apply func()) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	set("debug", func() { c.Debug = flags.Debug })
	set("log.console", func() { c.Log.Console = flags.Log.Console })
	set("log.nocolor", func() { c.Log.NoColor = flags.Log.NoColor })
	set("app", func() { c.Stream.Target = flags.Stream.Target })
	set("desktop", func() { c.Stream.DesktopTarget = flags.Stream.DesktopTarget })
	set("fps", func() { c.Stream.FPS = flags.Stream.FPS })
	set("quality", func() { c.Stream.Quality = flags.Stream.Quality })
	set("max-width", func() { c.Stream.MaxWidth = flags.Stream.MaxWidth })
	set("addr", func() { c.Server.Address = flags.Server.Address })
	set("shutdown-timeout", func() { c.Server.ShutdownTimeout = flags.Server.ShutdownTimeout })
	set("allow-origin", func() { c.Server.AllowOrigin = flags.Server.AllowOrigin })
	set("monitoring.metric", func() { c.Monitoring.MetricEnabled = flags.Monitoring.MetricEnabled })
	set("monitoring.pprof", func() { c.Monitoring.ProfilingEnabled = flags.Monitoring.ProfilingEnabled })
	set("monitoring.port", func() { c.Monitoring.Port = flags.Monitoring.Port })
	set("monitoring.prefix", func() { c.Monitoring.URLPrefix = flags.Monitoring.URLPrefix })
	set("signaling", func() { c.Signaling.URL = flags.Signaling.URL })
	set("id", func() { c.Signaling.ID = flags.Signaling.ID })
}

// AddFlags registers viewer flags.
func (v *ViewerConfig) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&v.Debug, "debug", "d", false, "Enable debug logging")
	fs.BoolVar(&v.Log.Console, "log.console", false, "Human-readable log output")
	fs.BoolVar(&v.Log.NoColor, "log.nocolor", false, "Disable colors in console logs")
	fs.StringVarP(&v.Source, "url", "u", "", "MJPEG stream URL, e.g. http://localhost:3001/api/video_feed")
	fs.StringVar(&v.Signaling.URL, "signaling", "", "Signaling server WebSocket URL")
	fs.StringVar(&v.Signaling.ID, "id", "", "Viewer ID (auto-generated if empty)")
	fs.StringVar(&v.Host, "host", "", "Streamer ID to connect to through signaling")
	fs.StringVarP(&v.App, "app", "a", "", "Capture target requested from the streamer")
	fs.StringVar(&v.Title, "title", "CanLiang", "Window title")
}

// ApplyFlags copies explicitly set viewer flags into v.
func (v *ViewerConfig) ApplyFlags(fs *pflag.FlagSet, flags *ViewerConfig) {
	set := func(name string, apply func()) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	set("debug", func() { v.Debug = flags.Debug })
	set("log.console", func() { v.Log.Console = flags.Log.Console })
	set("log.nocolor", func() { v.Log.NoColor = flags.Log.NoColor })
	set("url", func() { v.Source = flags.Source })
	set("signaling", func() { v.Signaling.URL = flags.Signaling.URL })
	set("id", func() { v.Signaling.ID = flags.Signaling.ID })
	set("host", func() { v.Host = flags.Host })
	set("app", func() { v.App = flags.App })
	set("title", func() { v.Title = flags.Title })
}
