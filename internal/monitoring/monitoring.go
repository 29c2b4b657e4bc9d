// Package monitoring serves Prometheus metrics and pprof on a side port.
package monitoring

import (
	"context"
	"fmt"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Because66666/CanLiang/internal/config"
	"github.com/Because66666/CanLiang/internal/httpx"
	"github.com/Because66666/CanLiang/internal/logger"
)

type Monitoring struct {
	conf   config.Monitoring
	server *httpx.Server
	log    *logger.Logger
}

// New binds the monitoring server.
func New(conf config.Monitoring, log *logger.Logger) (*Monitoring, error) {
	log = log.Component("monitoring")
	serv, err := httpx.NewServer("monitoring", fmt.Sprintf(":%d", conf.Port), func(serv *httpx.Server) httpx.Handler {
		return Handler(conf, log)
	}, httpx.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("monitoring server: %w", err)
	}
	return &Monitoring{conf: conf, server: serv, log: log}, nil
}

// Handler exposes whatever conf enables under conf.URLPrefix.
func Handler(conf config.Monitoring, log *logger.Logger) httpx.Handler {
	h := httpx.NewServeMux(conf.URLPrefix)

	if conf.ProfilingEnabled {
		log.Info().Msgf("Profiling is enabled at %s/debug/pprof", conf.URLPrefix)
		h.HandleFunc("/debug/pprof/", pprof.Index)
		h.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		h.HandleFunc("/debug/pprof/profile", pprof.Profile)
		h.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		h.HandleFunc("/debug/pprof/trace", pprof.Trace)
		// Named profiles are not routed by Index under a custom prefix.
		for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			h.Handle("/debug/pprof/"+name, pprof.Handler(name))
		}
	}

	if conf.MetricEnabled {
		log.Info().Msgf("Prometheus metric is enabled at %s/metrics", conf.URLPrefix)
		h.Handle("/metrics", promhttp.Handler())
	}

	return h
}

func (m *Monitoring) Run() { m.server.Run() }

func (m *Monitoring) Shutdown(ctx context.Context) error { return m.server.Shutdown(ctx) }

func (m *Monitoring) Addr() string { return m.server.Addr }

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
