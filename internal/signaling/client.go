// Package signaling exchanges WebRTC session descriptions and ICE
// candidates through a WebSocket relay server.
package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Because66666/CanLiang/internal/logger"
)

const (
	writeWait = 10 * time.Second
	pingEvery = 25 * time.Second
)

var ErrNotConnected = errors.New("signaling: not connected")

// Handler callbacks for incoming signaling messages.
type Handler struct {
	OnRegistered       func()
	OnOffer            func(from, app string, payload json.RawMessage)
	OnAnswer           func(from string, payload json.RawMessage)
	OnICECandidate     func(from string, payload json.RawMessage)
	OnHostsUpdated     func(hosts []HostInfo)
	OnHostDisconnected func(hostID string)
	OnError            func(msg string)
}

// Client is a WebSocket signaling client.
type Client struct {
	url        string
	clientID   string
	clientType string
	handler    Handler
	log        *logger.Logger

	conn   *websocket.Conn
	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewClient creates a signaling client.
func NewClient(url, clientID, clientType string, handler Handler, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		url:        url,
		clientID:   clientID,
		clientType: clientType,
		handler:    handler,
		log:        log.Component("signaling"),
		done:       make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.clientID }

// Connect dials the signaling server and starts reading messages.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("signaling dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// Register with the server.
	err = c.send(Message{
		Type:       TypeRegister,
		ID:         c.clientID,
		ClientType: c.clientType,
	})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("signaling register: %w", err)
	}

	go c.readLoop()
	go c.pingLoop()
	return nil
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close shuts down the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// SendOffer sends an SDP offer for app to target.
func (c *Client) SendOffer(target, app string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeOffer, Target: target, App: app, Payload: payload})
}

// SendAnswer sends an SDP answer to target.
func (c *Client) SendAnswer(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeAnswer, Target: target, Payload: payload})
}

// SendICECandidate sends an ICE candidate to target.
func (c *Client) SendICECandidate(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeICECandidate, Target: target, Payload: payload})
}

// RequestHostList asks the server for available streamers.
func (c *Client) RequestHostList() error {
	return c.send(Message{Type: TypeListHosts})
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warn().Err(err).Msg("signaling read error")
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	c.log.Debug().Str("type", msg.Type).Str("from", msg.From).Msg("signal")
	switch msg.Type {
	case TypeRegistered:
		if c.handler.OnRegistered != nil {
			c.handler.OnRegistered()
		}
	case TypeOffer:
		if c.handler.OnOffer != nil {
			c.handler.OnOffer(msg.From, msg.App, msg.Payload)
		}
	case TypeAnswer:
		if c.handler.OnAnswer != nil {
			c.handler.OnAnswer(msg.From, msg.Payload)
		}
	case TypeICECandidate:
		if c.handler.OnICECandidate != nil {
			c.handler.OnICECandidate(msg.From, msg.Payload)
		}
	case TypeHosts, TypeHostsUpdated:
		if c.handler.OnHostsUpdated != nil {
			c.handler.OnHostsUpdated(msg.List)
		}
	case TypeHostDisconnected:
		if c.handler.OnHostDisconnected != nil {
			c.handler.OnHostDisconnected(msg.HostID)
		}
	case TypeError:
		if c.handler.OnError != nil {
			c.handler.OnError(msg.Msg)
		}
	case TypePong:
		// heartbeat response, nothing to do
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.send(Message{Type: TypePing, Timestamp: time.Now().UnixMilli()})
		}
	}
}
