package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingTime  = wsPongWait * 9 / 10
	// Viewers only send control frames.
	wsMaxMessageSize = 512
)

// WebSocketTransport sends each frame as one binary message. A background
// reader notices when the peer goes away.
type WebSocketTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
	done chan struct{}
	once sync.Once
}

func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	t := &WebSocketTransport{conn: conn, done: make(chan struct{})}
	go t.reader()
	go t.pinger()
	return t
}

func (t *WebSocketTransport) reader() {
	defer t.close()
	t.conn.SetReadLimit(wsMaxMessageSize)
	_ = t.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	t.conn.SetPongHandler(func(string) error { return t.conn.SetReadDeadline(time.Now().Add(wsPongWait)) })
	for {
		if _, _, err := t.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (t *WebSocketTransport) pinger() {
	ticker := time.NewTicker(wsPingTime)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if err := t.write(websocket.PingMessage, nil); err != nil {
				t.close()
				return
			}
		}
	}
}

func (t *WebSocketTransport) write(kind int, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return t.conn.WriteMessage(kind, data)
}

func (t *WebSocketTransport) SendFrame(data []byte) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	return t.write(websocket.BinaryMessage, data)
}

// Done is closed when the peer disconnects.
func (t *WebSocketTransport) Done() <-chan struct{} { return t.done }

// Close sends a close frame and releases the connection.
func (t *WebSocketTransport) Close() {
	_ = t.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.close()
}

func (t *WebSocketTransport) close() {
	t.once.Do(func() {
		close(t.done)
		_ = t.conn.Close()
	})
}
