package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Because66666/CanLiang/internal/config"
	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/peer"
	"github.com/Because66666/CanLiang/internal/signaling"
)

// dial connects to the streamer through signaling and feeds sink from
// the frames DataChannel.
func dial(ctx context.Context, conf config.ViewerConfig, sink *frameSink, log *logger.Logger) (*peer.Viewer, error) {
	var v *peer.Viewer
	client := signaling.NewClient(conf.Signaling.URL, conf.Signaling.ID, signaling.ClientTypeViewer, signaling.Handler{
		OnRegistered: func() {
			log.Info().Str("host", conf.Host).Str("app", conf.App).Msg("Registered, sending offer")
			if err := v.Connect(); err != nil {
				log.Error().Err(err).Msg("offer failed")
				sink.disp.SetStatus(err.Error())
			}
		},
		OnAnswer: func(_ string, payload json.RawMessage) {
			if err := v.HandleAnswer(payload); err != nil {
				log.Error().Err(err).Msg("handle answer")
			}
		},
		OnICECandidate: func(_ string, payload json.RawMessage) {
			if err := v.HandleICECandidate(payload); err != nil {
				log.Warn().Err(err).Msg("handle ICE candidate")
			}
		},
		OnHostDisconnected: func(id string) {
			if id == conf.Host {
				sink.disp.SetStatus("streamer " + id + " disconnected")
			}
		},
		OnError: func(msg string) {
			log.Warn().Msgf("signaling error: %s", msg)
			sink.disp.SetStatus(msg)
		},
	}, log)

	v, err := peer.NewViewer(peer.NewAPI(log), client, conf.Host, conf.App)
	if err != nil {
		return nil, fmt.Errorf("create peer: %w", err)
	}
	v.Transport().OnFrame(sink.onFrame)

	if err := client.Connect(ctx); err != nil {
		v.Close()
		return nil, err
	}
	go func() {
		select {
		case <-v.Done():
			sink.disp.SetStatus("connection closed")
		case <-ctx.Done():
		}
		client.Close()
	}()
	return v, nil
}
