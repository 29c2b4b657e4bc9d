package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketTransport(t *testing.T) {
	up := websocket.Upgrader{}
	ready := make(chan *WebSocketTransport, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		ready <- NewWebSocketTransport(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	tr := <-ready

	if err := tr.SendFrame([]byte{0xff, 0xd8, 0xff, 0xd9}); err != nil {
		t.Fatal(err)
	}
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if kind != websocket.BinaryMessage || string(data) != "\xff\xd8\xff\xd9" {
		t.Errorf("got message type %d %q", kind, data)
	}

	conn.Close()
	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect not detected")
	}
	if err := tr.SendFrame([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("SendFrame after disconnect = %v, want ErrClosed", err)
	}
}
