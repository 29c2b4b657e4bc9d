package transport

import (
	"encoding/binary"
	"fmt"
)

// Data channel messages above ~16 KiB are not portable across WebRTC
// stacks, so frames travel in chunks prefixed with
// [seq uint32][index uint16][count uint16].
const (
	chunkHeaderSize  = 8
	DefaultChunkSize = 16 * 1024
)

// Split cuts data into chunks of at most size bytes including the header.
func Split(seq uint32, data []byte, size int) ([][]byte, error) {
	payload := size - chunkHeaderSize
	if payload <= 0 {
		return nil, fmt.Errorf("chunk size %d too small", size)
	}
	count := (len(data) + payload - 1) / payload
	if count == 0 {
		count = 1
	}
	if count > 0xffff {
		return nil, fmt.Errorf("frame of %d bytes needs %d chunks", len(data), count)
	}
	chunks := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		end := min((i+1)*payload, len(data))
		part := data[i*payload : end]
		c := make([]byte, chunkHeaderSize+len(part))
		binary.BigEndian.PutUint32(c[0:], seq)
		binary.BigEndian.PutUint16(c[4:], uint16(i))
		binary.BigEndian.PutUint16(c[6:], uint16(count))
		copy(c[chunkHeaderSize:], part)
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// Assembler rebuilds frames from chunks that may arrive out of order or
// not at all. Only the newest frame is tracked; a newer sequence number
// discards whatever is left of the previous one.
type Assembler struct {
	started bool
	seq     uint32
	parts   [][]byte
	have    int
}

// Add returns the whole frame once its last missing chunk arrives.
func (a *Assembler) Add(msg []byte) ([]byte, bool) {
	if len(msg) < chunkHeaderSize {
		return nil, false
	}
	seq := binary.BigEndian.Uint32(msg[0:])
	idx := int(binary.BigEndian.Uint16(msg[4:]))
	count := int(binary.BigEndian.Uint16(msg[6:]))
	if count == 0 || idx >= count {
		return nil, false
	}

	if a.started && seq != a.seq {
		// Wrap-safe "older than current".
		if int32(seq-a.seq) < 0 {
			return nil, false
		}
	}
	if !a.started || seq != a.seq || len(a.parts) != count {
		a.started = true
		a.seq = seq
		a.parts = make([][]byte, count)
		a.have = 0
	}
	if a.parts[idx] != nil {
		return nil, false
	}
	a.parts[idx] = append([]byte(nil), msg[chunkHeaderSize:]...)
	a.have++
	if a.have < count {
		return nil, false
	}

	size := 0
	for _, p := range a.parts {
		size += len(p)
	}
	frame := make([]byte, 0, size)
	for _, p := range a.parts {
		frame = append(frame, p...)
	}
	// Ignore stragglers of a delivered frame.
	a.parts = nil
	a.seq++
	a.started = true
	return frame, true
}
