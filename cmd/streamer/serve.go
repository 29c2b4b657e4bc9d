package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Because66666/CanLiang/internal/config"
	"github.com/Because66666/CanLiang/internal/httpx"
	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/monitoring"
	"github.com/Because66666/CanLiang/internal/permissions"
	"github.com/Because66666/CanLiang/internal/server"
	"github.com/Because66666/CanLiang/internal/service"
	"github.com/Because66666/CanLiang/internal/surface"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP streaming server (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(conf)
	log.Info().
		Str("target", conf.Stream.Target).
		Int("fps", conf.Stream.FPS).
		Int("quality", conf.Stream.Quality).
		Msg("Streamer starting")

	if st := permissions.ScreenRecording(true); !st.OK() {
		log.Warn().Stringer("screen_recording", st).Msg("Windows will show as placeholders until the permission is granted and the streamer is restarted")
	} else {
		log.Debug().Stringer("screen_recording", st).Msg("Capture permission")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPipeline(conf, surface.Native(), log)
	api := server.New(p.pub, p.loc, conf.Stream.Target,
		server.WithLogger(log.Component("http")),
		server.WithAllowOrigin(conf.Server.AllowOrigin),
	)
	srv, err := httpx.NewServer("api", conf.Server.Address,
		func(*httpx.Server) httpx.Handler { return api.Handler() },
		httpx.WithLogger(log),
		httpx.WithBaseContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	var services service.Group
	services.Add(srv)
	if conf.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Monitoring, log)
		if err != nil {
			return err
		}
		services.Add(mon)
	}
	if conf.Signaling.IsEnabled() {
		services.Add(newRemote(ctx, conf.Signaling, p.pub, api.DefaultTarget, log))
	}
	services.Start()

	if path, ok := config.Locate(cfgFile); ok {
		go watchConfig(ctx, cmd, path, api, p, log)
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	p.pub.Stop("")

	sctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	return services.Shutdown(sctx)
}

// watchConfig applies the settings that can change at runtime: the
// default target and the JPEG quality.
func watchConfig(ctx context.Context, cmd *cobra.Command, path string, api *server.Server, p *pipeline, log *logger.Logger) {
	log.Debug().Str("path", path).Msg("Watching config")
	err := config.Watch(ctx, path, func(c config.Config) {
		c.ApplyFlags(cmd.Flags(), &flags)
		if c.Stream.Target != api.DefaultTarget() {
			log.Info().Str("target", c.Stream.Target).Msg("Default target changed")
			api.SetDefaultTarget(c.Stream.Target)
		}
		if c.Stream.Quality != p.enc.Quality() {
			log.Info().Int("quality", c.Stream.Quality).Msg("JPEG quality changed")
			p.enc.SetQuality(c.Stream.Quality)
		}
	}, func(err error) {
		log.Warn().Err(err).Msg("Config reload failed")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Config watch stopped")
	}
}
