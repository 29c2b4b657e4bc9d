package main

import (
	"github.com/spf13/cobra"

	"github.com/Because66666/CanLiang/internal/capture"
	"github.com/Because66666/CanLiang/internal/config"
	"github.com/Because66666/CanLiang/internal/encoder"
	"github.com/Because66666/CanLiang/internal/locator"
	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/stream"
	"github.com/Because66666/CanLiang/internal/surface"
)

var (
	cfgFile string
	// flags receives command-line values; only those set explicitly
	// override the loaded config.
	flags config.Config
)

var rootCmd = &cobra.Command{
	Use:   "streamer",
	Short: "Stream an application window or the desktop as MJPEG",
	Long: `Streamer finds the top-level window of an executable, captures it at a
steady frame rate and serves it as multipart/x-mixed-replace JPEG over
HTTP. Without a subcommand it runs the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default is config.yaml in ., configs or ~/.canliang)")
	flags.AddFlags(rootCmd.PersistentFlags())
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	conf, err := config.Load(cfgFile)
	if err != nil {
		return conf, err
	}
	conf.ApplyFlags(cmd.Flags(), &flags)
	return conf, conf.Validate()
}

func newLogger(conf config.Config) *logger.Logger {
	if conf.Log.Console {
		return logger.NewConsole(conf.Debug, "streamer", conf.Log.NoColor)
	}
	return logger.New(conf.Debug)
}

// pipeline is the capture chain every command shares.
type pipeline struct {
	loc *locator.Locator
	enc *encoder.JPEGEncoder
	pub *stream.Publisher
}

func newPipeline(conf config.Config, platform surface.Platform, log *logger.Logger) *pipeline {
	loc := locator.New(platform,
		locator.WithDesktopTarget(conf.Stream.DesktopTarget),
		locator.WithLogger(log.Component("locator")),
	)
	capturer := capture.New(platform, capture.WithLogger(log.Component("capture")))
	enc := encoder.NewJPEGEncoder(conf.Stream.Quality, encoder.WithMaxWidth(conf.Stream.MaxWidth))
	pub := stream.NewPublisher(loc, capturer, enc,
		stream.WithPublisherFPS(conf.Stream.FPS),
		stream.WithLogger(log.Component("stream")),
	)
	return &pipeline{loc: loc, enc: enc, pub: pub}
}
