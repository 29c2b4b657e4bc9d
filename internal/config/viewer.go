package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// ViewerConfig holds configuration for the viewer binary.
type ViewerConfig struct {
	Debug bool
	Log   Log
	// Source is an MJPEG URL such as http://host:3001/api/video_feed.
	Source    string
	Signaling Signaling
	// Host is the streamer's signaling ID.
	Host   string
	App    string
	Title  string `default:"CanLiang"`
	Width  int    `default:"1280"`
	Height int    `default:"720"`
}

// LoadViewer reads the viewer section the same way Load does.
func LoadViewer(path string) (ViewerConfig, error) {
	var c struct{ Viewer ViewerConfig }
	if err := load(&c, path); err != nil {
		return ViewerConfig{}, err
	}
	v := c.Viewer
	if v.Signaling.ID == "" {
		v.Signaling.ID = "viewer-" + randomID()
	}
	return v, nil
}

// Validate requires exactly one way of reaching the streamer.
func (v *ViewerConfig) Validate() error {
	switch {
	case v.Source != "" && v.Signaling.IsEnabled():
		return errors.New("use either an MJPEG source or signaling, not both")
	case v.Source == "" && !v.Signaling.IsEnabled():
		return errors.New("an MJPEG source or a signaling URL is required")
	case v.Signaling.IsEnabled() && v.Host == "":
		return fmt.Errorf("host ID is required with signaling %s", v.Signaling.URL)
	}
	return nil
}

func randomID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
