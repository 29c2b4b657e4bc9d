// Package mjpeg reads and writes the multipart/x-mixed-replace framing
// browsers render as a live image.
package mjpeg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

const (
	Boundary    = "frame"
	ContentType = "multipart/x-mixed-replace; boundary=" + Boundary
)

var eoi = []byte{0xff, 0xd9}

var partHeader = []byte("--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")

// Part returns one complete part: header, JPEG bytes and trailing CRLF.
func Part(jpeg []byte) []byte {
	b := make([]byte, 0, len(partHeader)+len(jpeg)+2)
	b = append(b, partHeader...)
	b = append(b, jpeg...)
	return append(b, '\r', '\n')
}

// Writer emits parts to w, flushing after each one when w supports it.
// It satisfies transport.FrameSender.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

func NewWriter(w io.Writer) *Writer {
	mw := &Writer{w: w}
	if f, ok := w.(http.Flusher); ok {
		mw.flusher = f
	}
	return mw
}

// WriteHeaders prepares an HTTP response for streaming.
func WriteHeaders(h http.Header) {
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Connection", "close")
}

func (w *Writer) SendFrame(jpeg []byte) error {
	if _, err := w.w.Write(Part(jpeg)); err != nil {
		return fmt.Errorf("mjpeg write: %w", err)
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// Reader splits an MJPEG body back into JPEG frames.
type Reader struct {
	mr *multipart.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{mr: multipart.NewReader(r, Boundary)}
}

// NextFrame returns the next JPEG, or io.EOF once the stream ends.
func (r *Reader) NextFrame() ([]byte, error) {
	part, err := r.mr.NextPart()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	defer part.Close()
	data, err := io.ReadAll(part)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// Live streams never send a closing boundary, so the last part
		// ends at EOF. Keep it only if the JPEG is complete.
		if bytes.HasSuffix(data, eoi) {
			return data, nil
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
