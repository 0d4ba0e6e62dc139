// Package metrics counts session outcomes, stream traffic and API calls on a
// private Prometheus registry. A nil *Collector is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	sessionsStarted  *prometheus.CounterVec
	sessionsFinished *prometheus.CounterVec
	progressEvents   prometheus.Counter
	malformedEvents  prometheus.Counter
	apiCalls         *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portscan_console_sessions_started_total",
			Help: "Scan sessions accepted by the controller, by launch kind.",
		}, []string{"kind"}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portscan_console_sessions_finished_total",
			Help: "Scan sessions that returned to idle, by outcome.",
		}, []string{"outcome"}),
		progressEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portscan_console_progress_events_total",
			Help: "Decoded progress events received from the stream.",
		}),
		malformedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portscan_console_malformed_events_total",
			Help: "Stream messages dropped because they could not be decoded.",
		}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portscan_console_api_calls_total",
			Help: "Calls to the scanner API, by endpoint and result.",
		}, []string{"endpoint", "result"}),
	}

	c.registry.MustRegister(
		c.sessionsStarted,
		c.sessionsFinished,
		c.progressEvents,
		c.malformedEvents,
		c.apiCalls,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) SessionStarted(kind string) {
	if c == nil {
		return
	}
	c.sessionsStarted.WithLabelValues(kind).Inc()
}

func (c *Collector) SessionFinished(outcome string) {
	if c == nil {
		return
	}
	c.sessionsFinished.WithLabelValues(outcome).Inc()
}

func (c *Collector) ProgressEvent() {
	if c == nil {
		return
	}
	c.progressEvents.Inc()
}

func (c *Collector) MalformedEvent() {
	if c == nil {
		return
	}
	c.malformedEvents.Inc()
}

func (c *Collector) APICall(endpoint string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.apiCalls.WithLabelValues(endpoint, result).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
