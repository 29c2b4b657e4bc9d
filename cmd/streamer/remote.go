package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Because66666/CanLiang/internal/config"
	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/peer"
	"github.com/Because66666/CanLiang/internal/signaling"
)

const reconnectDelay = 3 * time.Second

// remote serves viewers that connect through the signaling server. It
// reconnects whenever the relay drops.
type remote struct {
	ctx      context.Context
	cancel   context.CancelFunc
	conf     config.Signaling
	api      *peer.API
	streamer peer.Streamer
	target   func() string
	log      *logger.Logger
	done     chan struct{}
}

func newRemote(ctx context.Context, conf config.Signaling, streamer peer.Streamer, target func() string, log *logger.Logger) *remote {
	ctx, cancel := context.WithCancel(ctx)
	return &remote{
		ctx:      ctx,
		cancel:   cancel,
		conf:     conf,
		api:      peer.NewAPI(log),
		streamer: streamer,
		target:   target,
		log:      log.Component("remote"),
		done:     make(chan struct{}),
	}
}

func (r *remote) Run() { go r.loop() }

func (r *remote) loop() {
	defer close(r.done)
	for {
		r.session()
		select {
		case <-r.ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// session lasts one signaling connection.
func (r *remote) session() {
	var hub *peer.Hub
	client := signaling.NewClient(r.conf.URL, r.conf.ID, signaling.ClientTypeHost, signaling.Handler{
		OnRegistered: func() {
			r.log.Info().Str("id", r.conf.ID).Msg("Registered with signaling server")
		},
		OnOffer: func(from, app string, payload json.RawMessage) {
			if err := hub.HandleOffer(from, app, payload); err != nil {
				r.log.Warn().Err(err).Str("viewer", from).Msg("Offer rejected")
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if err := hub.HandleICECandidate(from, payload); err != nil {
				r.log.Debug().Err(err).Str("viewer", from).Msg("ICE candidate dropped")
			}
		},
		OnError: func(msg string) {
			r.log.Warn().Msgf("signaling error: %s", msg)
		},
	}, r.log)
	hub = peer.NewHub(r.ctx, r.api, client, r.streamer, r.target)

	if err := client.Connect(r.ctx); err != nil {
		r.log.Warn().Err(err).Msg("Signaling unavailable")
		return
	}
	select {
	case <-r.ctx.Done():
	case <-client.Done():
		r.log.Warn().Msg("Signaling connection lost")
	}
	client.Close()
	hub.Close()
}

func (r *remote) Shutdown(ctx context.Context) error {
	r.cancel()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *remote) String() string { return "remote::" + r.conf.URL }
