package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/mjpeg"
)

const retryDelay = time.Second

// pull reads the MJPEG feed at url into sink, reconnecting until ctx ends.
func pull(ctx context.Context, url string, sink *frameSink, log *logger.Logger) {
	for {
		n, err := pullOnce(ctx, http.DefaultClient, url, sink.onFrame)
		if ctx.Err() != nil {
			return
		}
		msg := fmt.Sprintf("stream ended after %d frames, reconnecting", n)
		if err != nil {
			msg = fmt.Sprintf("%v, reconnecting", err)
		}
		log.Warn().Err(err).Int("frames", n).Msg("MJPEG feed interrupted")
		sink.disp.SetStatus(msg)
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

// pullOnce reads one HTTP response until it ends, returning the number of
// frames delivered.
func pullOnce(ctx context.Context, client *http.Client, url string, onFrame func([]byte)) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != "multipart/x-mixed-replace" {
		return 0, fmt.Errorf("GET %s: unexpected content type %q", url, resp.Header.Get("Content-Type"))
	}

	r := mjpeg.NewReader(resp.Body)
	n := 0
	for {
		frame, err := r.NextFrame()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
		onFrame(frame)
	}
}
