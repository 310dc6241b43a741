// Package metrics provides a prometheus-backed metrics collector
// carried in the context, so components can count ingested telemetry
// and computed analyses without a package-level registry.
package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector registers and updates named counters and histograms.
type Collector interface {
	// RegisterCounter registers a counter with the given label names.
	RegisterCounter(ctx context.Context, name string, labels ...string) (prometheus.Collector, error)
	// AddCounter adds value to a registered counter for the given label values.
	AddCounter(ctx context.Context, name string, value float64, labelValues ...string) error
	// UnregisterCounter removes a registered counter.
	UnregisterCounter(ctx context.Context, name string, labels ...string) error
	// RegisterHistogram registers a histogram with the given label names.
	RegisterHistogram(ctx context.Context, name string, labels ...string) (prometheus.Collector, error)
	// ObserveHistogram records an observation on a registered histogram.
	ObserveHistogram(ctx context.Context, name string, value float64, labelValues ...string) error
	// UnregisterHistogram removes a registered histogram.
	UnregisterHistogram(ctx context.Context, name string, labels ...string) error
}

// contextKey is the key type used to store collectors in the context.
type contextKey string

// promCollector implements Collector on the default prometheus registerer.
type promCollector struct {
	namespace  string
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func newPromCollector(namespace string) *promCollector {
	return &promCollector{
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// WithMetrics returns a context carrying a collector for the namespace.
func WithMetrics(ctx context.Context, namespace string) context.Context {
	return context.WithValue(ctx, contextKey(namespace), newPromCollector(namespace))
}

// FromContext returns the collector stored for the namespace, creating
// a detached one if the context carries none.
func FromContext(ctx context.Context, namespace string) Collector {
	if collector, ok := ctx.Value(contextKey(namespace)).(Collector); ok {
		return collector
	}
	return newPromCollector(namespace)
}

// RegisterCounter registers a counter with the given label names.
func (c *promCollector) RegisterCounter(_ context.Context, name string, labels ...string) (prometheus.Collector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if counter, ok := c.counters[name]; ok {
		return counter, nil
	}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.namespace,
		Name:      name,
		Help:      fmt.Sprintf("Counter for %s_%s", c.namespace, name),
	}, labels)
	if err := prometheus.Register(counter); err != nil {
		return nil, fmt.Errorf("error registering counter %s: %w", name, err)
	}
	c.counters[name] = counter
	return counter, nil
}

// AddCounter adds value to a registered counter for the given label values.
func (c *promCollector) AddCounter(_ context.Context, name string, value float64, labelValues ...string) error {
	c.mu.Lock()
	counter, ok := c.counters[name]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("counter %s is not registered", name)
	}
	counter.WithLabelValues(labelValues...).Add(value)
	return nil
}

// UnregisterCounter removes a registered counter.
func (c *promCollector) UnregisterCounter(_ context.Context, name string, _ ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	counter, ok := c.counters[name]
	if !ok {
		return fmt.Errorf("counter %s is not registered", name)
	}
	prometheus.Unregister(counter)
	delete(c.counters, name)
	return nil
}

// RegisterHistogram registers a histogram with the given label names.
func (c *promCollector) RegisterHistogram(_ context.Context, name string, labels ...string) (prometheus.Collector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if histogram, ok := c.histograms[name]; ok {
		return histogram, nil
	}
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Subsystem: c.namespace,
		Name:      name,
		Help:      fmt.Sprintf("Histogram for %s_%s", c.namespace, name),
		Buckets:   prometheus.DefBuckets,
	}, labels)
	if err := prometheus.Register(histogram); err != nil {
		return nil, fmt.Errorf("error registering histogram %s: %w", name, err)
	}
	c.histograms[name] = histogram
	return histogram, nil
}

// ObserveHistogram records an observation on a registered histogram.
func (c *promCollector) ObserveHistogram(_ context.Context, name string, value float64, labelValues ...string) error {
	c.mu.Lock()
	histogram, ok := c.histograms[name]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("histogram %s is not registered", name)
	}
	histogram.WithLabelValues(labelValues...).Observe(value)
	return nil
}

// UnregisterHistogram removes a registered histogram.
func (c *promCollector) UnregisterHistogram(_ context.Context, name string, _ ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	histogram, ok := c.histograms[name]
	if !ok {
		return fmt.Errorf("histogram %s is not registered", name)
	}
	prometheus.Unregister(histogram)
	delete(c.histograms, name)
	return nil
}
