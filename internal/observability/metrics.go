// Package observability exposes run progress in Prometheus text format.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Kind is the Prometheus metric type.
type Kind string

const (
	Counter Kind = "counter"
	Gauge   Kind = "gauge"
)

type metric struct {
	name  string
	help  string
	kind  Kind
	value func() int64
}

// Metrics is a registry of read-on-scrape values. Components register
// closures over their own counters, so nothing is copied on the hot path.
type Metrics struct {
	mu      sync.RWMutex
	metrics []metric
	names   map[string]bool

	server *http.Server
	logger *slog.Logger
}

// NewMetrics creates an empty registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		names:  make(map[string]bool),
		logger: logger.With("component", "metrics"),
	}
}

// Register adds a metric. Names are prefixed with "wikiscrape_"; a second
// registration of the same name is ignored.
func (m *Metrics) Register(name, help string, kind Kind, value func() int64) {
	name = "wikiscrape_" + name
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.names[name] {
		m.logger.Warn("duplicate metric ignored", "name", name)
		return
	}
	m.names[name] = true
	m.metrics = append(m.metrics, metric{name: name, help: help, kind: kind, value: value})
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, metric := range m.metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value())
	}
}

// Snapshot returns the current values keyed by full metric name.
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.metrics))
	for _, metric := range m.metrics {
		out[metric.name] = metric.value()
	}
	return out
}

const healthPath = "/health"

// Start binds addr and serves path plus /health in the background.
// Bind errors are returned; serve errors after that are logged.
func (m *Metrics) Start(addr, path string) error {
	if path == healthPath {
		return fmt.Errorf("metrics path %q collides with the health check", path)
	}
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}

	m.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	m.logger.Info("metrics server starting", "addr", ln.Addr().String(), "path", path)

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the server if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
