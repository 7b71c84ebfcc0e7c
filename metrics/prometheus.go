// Prometheus reporter: converts host metrics to Prometheus format and exposes
// them via an HTTP endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const _metricsChanSize = 65536

// metricType defines the type of Prometheus metric.
type metricType int

const (
	_metricTypeCounter metricType = iota
	_metricTypeGauge
)

// PrometheusReporterConfig contains configuration for the Prometheus reporter.
type PrometheusReporterConfig struct {
	ListenAddr string            `mapstructure:"listenAddr"` // HTTP server listen address, e.g. ":9120"
	MetricPath string            `mapstructure:"metricPath"` // Metrics HTTP path, default "/metrics"
	ExtLabels  map[string]string `mapstructure:"extLabels"`  // External labels applied to every metric
}

// PrometheusReporter implements a Prometheus metrics reporter. Records are
// queued on a channel and aggregated by a dedicated goroutine so reporting
// never blocks the instrumented path.
type PrometheusReporter struct {
	cfg         *PrometheusReporterConfig
	registry    *prometheus.Registry
	factory     promauto.Factory
	promSvr     *http.Server
	metricsChan chan Record
	metrics     map[string]*metricWrapper
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewPrometheusReporter creates and starts a Prometheus reporter with the
// given configuration. A nil configuration serves /metrics on :9120.
func NewPrometheusReporter(cfg *PrometheusReporterConfig) *PrometheusReporter {
	if cfg == nil {
		cfg = &PrometheusReporterConfig{}
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9120"
	}
	if cfg.MetricPath == "" {
		cfg.MetricPath = "/metrics"
	}

	ctx, cancel := context.WithCancel(context.Background())
	registry := prometheus.NewRegistry()
	p := &PrometheusReporter{
		cfg:         cfg,
		registry:    registry,
		factory:     promauto.With(registry),
		metricsChan: make(chan Record, _metricsChanSize),
		metrics:     map[string]*metricWrapper{},
		ctx:         ctx,
		cancel:      cancel,
	}

	p.start()
	return p
}

// Report queues a record for aggregation. Non-blocking: when the channel is
// full the record is dropped, since losing a sample must never stall the
// logging pipeline being measured.
func (x *PrometheusReporter) Report(r Record) {
	select {
	case x.metricsChan <- r:
	default:
	}
}

func (x *PrometheusReporter) start() {
	x.startAggregate()
	x.startHTTPSvr()
}

// Stop shuts down the aggregation goroutine and the HTTP server.
func (x *PrometheusReporter) Stop() {
	if x.cancel != nil {
		x.cancel()
		x.cancel = nil
	}
	if x.promSvr != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		_ = x.promSvr.Shutdown(shutdownCtx)
		x.promSvr = nil
	}
}

// startAggregate consumes queued records and merges them into Prometheus
// metrics, creating each metric lazily on first sight.
func (x *PrometheusReporter) startAggregate() {
	go func() {
		for {
			select {
			case <-x.ctx.Done():
				return
			case rc := <-x.metricsChan:
				x.merge(&rc)
			}
		}
	}()
}

func (x *PrometheusReporter) startHTTPSvr() {
	mux := http.NewServeMux()
	mux.Handle(x.cfg.MetricPath, promhttp.HandlerFor(x.registry, promhttp.HandlerOpts{}))
	x.promSvr = &http.Server{Addr: x.cfg.ListenAddr, Handler: mux}
	go func() {
		if err := x.promSvr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "metrics: prometheus http server: %v\n", err)
		}
	}()
}

func (x *PrometheusReporter) merge(rc *Record) {
	key := x.recordKey(rc)
	w, ok := x.metrics[key]
	if !ok {
		w = x.newWrapper(rc)
		if w == nil {
			return
		}
		x.metrics[key] = w
		return
	}
	w.merge(rc)
}

// recordKey builds a stable identity from name plus sorted dimensions so each
// unique label set gets its own Prometheus series.
func (x *PrometheusReporter) recordKey(rc *Record) string {
	dims := rc.Dimensions()
	if len(dims) == 0 {
		return rc.Metrics().Name()
	}
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(rc.Metrics().Name())
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(dims[k])
	}
	return b.String()
}

func (x *PrometheusReporter) constLabels(rc *Record) map[string]string {
	labels := make(map[string]string, len(rc.Dimensions())+len(x.cfg.ExtLabels))
	for k, v := range x.cfg.ExtLabels {
		labels[k] = strings.ReplaceAll(v, ".", "_")
	}
	for k, v := range rc.Dimensions() {
		labels[k] = strings.ReplaceAll(v, ".", "_")
	}
	return labels
}

func (x *PrometheusReporter) newWrapper(rc *Record) *metricWrapper {
	subsystem := strings.ReplaceAll(rc.Metrics().Group(), ".", "_")
	name := strings.ReplaceAll(rc.Metrics().Name(), ".", "_")
	labels := x.constLabels(rc)

	switch rc.Metrics().Policy() {
	case Policy_Sum:
		c := x.factory.NewCounter(prometheus.CounterOpts{
			Subsystem:   subsystem,
			Name:        name,
			ConstLabels: labels,
		})
		c.Add(float64(rc.Value()))
		return &metricWrapper{m: c, mt: _metricTypeCounter}
	case Policy_Set, Policy_Stopwatch:
		g := x.factory.NewGauge(prometheus.GaugeOpts{
			Subsystem:   subsystem,
			Name:        name,
			ConstLabels: labels,
		})
		g.Set(float64(rc.Value()))
		return &metricWrapper{m: g, mt: _metricTypeGauge}
	default:
		fmt.Fprintf(os.Stderr, "metrics: metric %s has unsupported policy\n", rc.Metrics().Name())
		return nil
	}
}

// metricWrapper wraps Prometheus metrics since the Counter and Gauge
// interfaces are similar; one wrapper structure stores metrics and their types.
type metricWrapper struct {
	m  prometheus.Metric
	mt metricType
}

// merge updates the wrapped metric with new record data.
func (m *metricWrapper) merge(rc *Record) {
	switch m.mt {
	case _metricTypeCounter:
		if c, ok := m.m.(prometheus.Counter); ok && c != nil {
			c.Add(float64(rc.Value()))
			return
		}
	case _metricTypeGauge:
		if g, ok := m.m.(prometheus.Gauge); ok && g != nil {
			g.Set(float64(rc.Value()))
			return
		}
	}
	fmt.Fprintf(os.Stderr, "metrics: prometheus merge failed for %T\n", m.m)
}
