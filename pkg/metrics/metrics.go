// Package metrics is a small Prometheus-text metrics registry built on the
// standard library: counters, gauges, and histograms with optional labels,
// rendered in the text exposition format on an HTTP handler.
package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are the default histogram buckets, in seconds.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

// Counter is a monotonically increasing counter.
type Counter struct{ v atomic.Uint64 }

func (c *Counter) Inc()          { c.v.Add(1) }
func (c *Counter) Add(n uint64)  { c.v.Add(n) }
func (c *Counter) Value() uint64 { return c.v.Load() }

// Gauge holds an instantaneous value.
type Gauge struct {
	mu sync.Mutex
	v  float64
}

func (g *Gauge) Set(v float64) { g.mu.Lock(); g.v = v; g.mu.Unlock() }
func (g *Gauge) Inc()          { g.Add(1) }
func (g *Gauge) Dec()          { g.Add(-1) }
func (g *Gauge) Add(d float64) { g.mu.Lock(); g.v += d; g.mu.Unlock() }
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.v
}

// Histogram tracks a value distribution over fixed buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
			break
		}
	}
	h.mu.Unlock()
}

// Since observes the seconds elapsed since t.
func (h *Histogram) Since(t time.Time) { h.Observe(time.Since(t).Seconds()) }

type series struct {
	name   string
	labels string // rendered {k="v",...} or ""
	help   string
	kind   string // counter, gauge, histogram
	c      *Counter
	g      *Gauge
	h      *Histogram
}

// Registry holds named metric series.
type Registry struct {
	mu     sync.Mutex
	series map[string]*series
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{series: make(map[string]*series)}
}

// Label attaches a label pair to a metric name for lookup calls. Pairs must
// come in key, value order.
func Label(name string, pairs ...string) string {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return name
	}
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, fmt.Sprintf("%s=%q", pairs[i], pairs[i+1]))
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}

func splitLabeled(labeled string) (name, labels string) {
	if i := strings.IndexByte(labeled, '{'); i >= 0 {
		return labeled[:i], labeled[i:]
	}
	return labeled, ""
}

func (r *Registry) get(labeled, help, kind string) *series {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.series[labeled]; ok {
		return s
	}
	name, labels := splitLabeled(labeled)
	s := &series{name: name, labels: labels, help: help, kind: kind}
	r.series[labeled] = s
	return s
}

// Counter returns (registering if needed) the named counter.
func (r *Registry) Counter(labeled, help string) *Counter {
	s := r.get(labeled, help, "counter")
	if s.c == nil {
		s.c = &Counter{}
	}
	return s.c
}

// Gauge returns (registering if needed) the named gauge.
func (r *Registry) Gauge(labeled, help string) *Gauge {
	s := r.get(labeled, help, "gauge")
	if s.g == nil {
		s.g = &Gauge{}
	}
	return s.g
}

// Histogram returns (registering if needed) the named histogram. A nil
// buckets slice uses DefaultBuckets.
func (r *Registry) Histogram(labeled, help string, buckets []float64) *Histogram {
	s := r.get(labeled, help, "histogram")
	if s.h == nil {
		if buckets == nil {
			buckets = DefaultBuckets
		}
		b := make([]float64, len(buckets))
		copy(b, buckets)
		sort.Float64s(b)
		s.h = &Histogram{buckets: b, counts: make([]uint64, len(b))}
	}
	return s.h
}

// Render produces the Prometheus text exposition of all series.
func (r *Registry) Render() string {
	r.mu.Lock()
	keys := make([]string, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	all := make([]*series, len(keys))
	for i, k := range keys {
		all[i] = r.series[k]
	}
	r.mu.Unlock()

	var b strings.Builder
	typed := make(map[string]bool)
	for _, s := range all {
		if !typed[s.name] {
			typed[s.name] = true
			if s.help != "" {
				fmt.Fprintf(&b, "# HELP %s %s\n", s.name, s.help)
			}
			fmt.Fprintf(&b, "# TYPE %s %s\n", s.name, s.kind)
		}
		switch s.kind {
		case "counter":
			fmt.Fprintf(&b, "%s%s %d\n", s.name, s.labels, s.c.Value())
		case "gauge":
			fmt.Fprintf(&b, "%s%s %g\n", s.name, s.labels, s.g.Value())
		case "histogram":
			renderHistogram(&b, s)
		}
	}
	return b.String()
}

func renderHistogram(b *strings.Builder, s *series) {
	s.h.mu.Lock()
	buckets := s.h.buckets
	counts := make([]uint64, len(s.h.counts))
	copy(counts, s.h.counts)
	sum, count := s.h.sum, s.h.count
	s.h.mu.Unlock()

	inner := strings.TrimSuffix(strings.TrimPrefix(s.labels, "{"), "}")
	var cum uint64
	for i, bound := range buckets {
		cum += counts[i]
		fmt.Fprintf(b, "%s_bucket%s %d\n", s.name, bucketLabels(inner, fmt.Sprintf("%g", bound)), cum)
	}
	fmt.Fprintf(b, "%s_bucket%s %d\n", s.name, bucketLabels(inner, "+Inf"), count)
	fmt.Fprintf(b, "%s_sum%s %g\n", s.name, s.labels, sum)
	fmt.Fprintf(b, "%s_count%s %d\n", s.name, s.labels, count)
}

func bucketLabels(inner, le string) string {
	if inner == "" {
		return fmt.Sprintf(`{le=%q}`, le)
	}
	return fmt.Sprintf(`{%s,le=%q}`, inner, le)
}

// Handler serves the registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, r.Render())
	})
}

// ServeAsync exposes /metrics on the given port in a background goroutine.
// Meant for worker processes with no HTTP server of their own.
func (r *Registry) ServeAsync(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	go http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}

// CollectRuntime samples goroutine and memory gauges under the given prefix
// every interval until the process exits.
func (r *Registry) CollectRuntime(prefix string, interval time.Duration) {
	goroutines := r.Gauge(prefix+"_goroutines", "Number of goroutines")
	heap := r.Gauge(prefix+"_heap_bytes", "Heap in use")
	go func() {
		var ms runtime.MemStats
		for {
			runtime.ReadMemStats(&ms)
			goroutines.Set(float64(runtime.NumGoroutine()))
			heap.Set(float64(ms.HeapInuse))
			time.Sleep(interval)
		}
	}()
}
