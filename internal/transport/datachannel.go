package transport

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// maxBufferedAmount is how much may queue in SCTP before frames are
// dropped instead of piling up latency.
const maxBufferedAmount = 1 << 20

// DataChannelTransport sends and receives chunked frames over a WebRTC
// DataChannel.
type DataChannelTransport struct {
	mu       sync.Mutex
	framesDC *webrtc.DataChannel
	seq      uint32
	asm      Assembler

	chunkSize int
	onFrame   func(data []byte)
}

// NewDataChannelTransport wraps the frames channel. dc may be nil when the
// channel is announced later by the remote peer.
func NewDataChannelTransport(dc *webrtc.DataChannel) *DataChannelTransport {
	t := &DataChannelTransport{chunkSize: DefaultChunkSize}
	if dc != nil {
		t.SetFramesChannel(dc)
	}
	return t
}

// SendFrame drops the frame while the channel is still connecting or
// congested and fails once it is closing.
func (t *DataChannelTransport) SendFrame(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.framesDC == nil {
		return nil
	}
	switch t.framesDC.ReadyState() {
	case webrtc.DataChannelStateOpen:
	case webrtc.DataChannelStateClosing, webrtc.DataChannelStateClosed:
		return ErrClosed
	default:
		return nil
	}
	if t.framesDC.BufferedAmount() > maxBufferedAmount {
		return nil
	}

	t.seq++
	chunks, err := Split(t.seq, data, t.chunkSize)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if err := t.framesDC.Send(c); err != nil {
			return err
		}
	}
	return nil
}

func (t *DataChannelTransport) OnFrame(cb func(data []byte)) {
	t.mu.Lock()
	t.onFrame = cb
	t.mu.Unlock()
}

// SetFramesChannel sets or replaces the frames DataChannel (used when receiving negotiated channels).
func (t *DataChannelTransport) SetFramesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.framesDC = dc
	t.asm = Assembler{}
	t.mu.Unlock()

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.mu.Lock()
		frame, ok := t.asm.Add(msg.Data)
		cb := t.onFrame
		t.mu.Unlock()
		if ok && cb != nil {
			cb(frame)
		}
	})
}
