package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Because66666/CanLiang/internal/logger"
)

// Hub keeps one Host per viewer on the streamer. A new offer from a
// viewer replaces its previous connection.
type Hub struct {
	ctx      context.Context
	api      *API
	sig      Signaler
	streamer Streamer
	// app picks the target when an offer names none.
	app func() string
	log *logger.Logger

	mu    sync.Mutex
	hosts map[string]*Host
	// early holds candidates that beat the offer through the relay.
	early map[string][]json.RawMessage
}

const maxEarlyCandidates = 32

func NewHub(ctx context.Context, api *API, sig Signaler, streamer Streamer, defaultApp func() string) *Hub {
	return &Hub{
		ctx:      ctx,
		api:      api,
		sig:      sig,
		streamer: streamer,
		app:      defaultApp,
		log:      api.log,
		hosts:    make(map[string]*Host),
		early:    make(map[string][]json.RawMessage),
	}
}

// HandleOffer starts a Host for viewerID.
func (hub *Hub) HandleOffer(viewerID, app string, payload json.RawMessage) error {
	if app == "" && hub.app != nil {
		app = hub.app()
	}
	if app == "" {
		return fmt.Errorf("offer from %s names no app", viewerID)
	}

	h, err := NewHost(hub.ctx, hub.api, viewerID, app, hub.sig, hub.streamer)
	if err != nil {
		return err
	}

	hub.mu.Lock()
	old := hub.hosts[viewerID]
	hub.hosts[viewerID] = h
	early := hub.early[viewerID]
	delete(hub.early, viewerID)
	hub.mu.Unlock()
	if old != nil {
		old.Close()
	}
	for _, c := range early {
		if err := h.HandleICECandidate(c); err != nil {
			hub.log.Debug().Err(err).Str("viewer", viewerID).Msg("early ICE candidate")
		}
	}

	go func() {
		<-h.Done()
		hub.mu.Lock()
		if hub.hosts[viewerID] == h {
			delete(hub.hosts, viewerID)
		}
		hub.mu.Unlock()
	}()

	hub.log.Info().Str("viewer", viewerID).Str("app", app).Msg("offer received")
	if err := h.HandleOffer(payload); err != nil {
		h.Close()
		return err
	}
	return nil
}

// HandleICECandidate routes a viewer's candidate to its Host, holding it
// back if the offer has not arrived yet.
func (hub *Hub) HandleICECandidate(viewerID string, payload json.RawMessage) error {
	hub.mu.Lock()
	h := hub.hosts[viewerID]
	if h == nil {
		if len(hub.early[viewerID]) >= maxEarlyCandidates {
			hub.mu.Unlock()
			return fmt.Errorf("no connection for %s", viewerID)
		}
		hub.early[viewerID] = append(hub.early[viewerID], payload)
		hub.mu.Unlock()
		return nil
	}
	hub.mu.Unlock()
	return h.HandleICECandidate(payload)
}

func (hub *Hub) Host(viewerID string) *Host {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return hub.hosts[viewerID]
}

func (hub *Hub) Len() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.hosts)
}

// Close drops every viewer.
func (hub *Hub) Close() {
	hub.mu.Lock()
	hosts := make([]*Host, 0, len(hub.hosts))
	for _, h := range hub.hosts {
		hosts = append(hosts, h)
	}
	clear(hub.early)
	hub.mu.Unlock()
	for _, h := range hosts {
		h.Close()
	}
}
