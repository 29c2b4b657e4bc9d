package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Because66666/CanLiang/internal/config"
	"github.com/Because66666/CanLiang/internal/decoder"
	"github.com/Because66666/CanLiang/internal/display"
	"github.com/Because66666/CanLiang/internal/logger"
)

var (
	cfgFile string
	flags   config.ViewerConfig
)

var rootCmd = &cobra.Command{
	Use:   "viewer",
	Short: "Watch a streamer in a local window",
	Long: `Viewer shows frames from a streamer, either by pulling its MJPEG feed
over HTTP (--url) or through a WebRTC DataChannel negotiated over a
signaling server (--signaling with --host).`,
	SilenceUsage: true,
	RunE:         runView,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default is config.yaml in ., configs or ~/.canliang)")
	flags.AddFlags(rootCmd.PersistentFlags())
}

func loadConfig(cmd *cobra.Command) (config.ViewerConfig, error) {
	conf, err := config.LoadViewer(cfgFile)
	if err != nil {
		return conf, err
	}
	conf.ApplyFlags(cmd.Flags(), &flags)
	return conf, nil
}

func newLogger(conf config.ViewerConfig) *logger.Logger {
	if conf.Log.Console {
		return logger.NewConsole(conf.Debug, "viewer", conf.Log.NoColor)
	}
	return logger.New(conf.Debug)
}

// frameSink decodes frames into the display.
type frameSink struct {
	dec  decoder.Decoder
	disp *display.EbitenDisplay
	log  *logger.Logger
}

func (s *frameSink) onFrame(data []byte) {
	img, err := s.dec.Decode(data)
	if err != nil {
		s.log.Debug().Err(err).Int("bytes", len(data)).Msg("bad frame")
		return
	}
	s.disp.SetFrame(img)
}

func runView(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	log := newLogger(conf)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	disp := display.NewEbitenDisplay(display.WithTitle(conf.Title), display.WithSize(conf.Width, conf.Height))
	dec := decoder.NewJPEGDecoder()
	sink := &frameSink{dec: dec, disp: disp, log: log}
	defer func() {
		frames, rejected := dec.Stats()
		log.Info().Uint64("frames", frames).Uint64("rejected", rejected).Msg("Viewer stopped")
	}()

	if conf.Source != "" {
		log.Info().Str("url", conf.Source).Msg("Pulling MJPEG feed")
		go pull(ctx, conf.Source, sink, log)
	} else {
		v, err := dial(ctx, conf, sink, log)
		if err != nil {
			return err
		}
		defer v.Close()
	}

	// Ebitengine RunGame must be on the main goroutine.
	return runDisplay(ctx, disp, stop)
}

// runDisplay blocks until the window closes; a signal closes it too.
func runDisplay(ctx context.Context, disp *display.EbitenDisplay, stop context.CancelFunc) error {
	go func() {
		<-ctx.Done()
		disp.Close()
	}()
	err := disp.Run()
	stop()
	return err
}
