// Package stats implements the simulator's stat-name surface (spec.md
// §6): stable names of the form <measure>_<scope>_<channel>, exposed both
// as Prometheus counters/gauges (github.com/prometheus/client_golang, the
// library the retrieval pack's Proxmox/GCP exporters wire for exactly
// this kind of name-stable metric surface) and as a flat key/value dump
// for text reports. Precision (0 for counts, 3-6 for derived averages) is
// tracked per-stat so the dump can format consistently.
package stats

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Kind distinguishes a monotonic count from a derived/averaged value,
// which only affects dump precision — both are backed by a
// prometheus.Gauge internally since stat values are occasionally
// decremented (e.g. pending_maint) or reassigned by bearing formulas
// (row_hit_rate) rather than only incremented.
type Kind int

const (
	// Count is a plain integer counter; dumped with 0 decimal places.
	Count Kind = iota
	// Derived is an averaged/ratio stat; dumped with Precision decimals.
	Derived
)

type entry struct {
	kind      Kind
	precision int
	desc      string
	gauge     prometheus.Gauge
}

// Registry is the stat-name surface for one simulation run. It is safe
// for concurrent use: the controller's tick loop and a /metrics HTTP
// handler (cmd/smdsim) may read and write concurrently.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	reg     *prometheus.Registry
}

// NewRegistry builds an empty registry backed by its own
// prometheus.Registry (never the global DefaultRegisterer, so multiple
// simulations in one process — e.g. in tests — never collide on name).
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		reg:     prometheus.NewRegistry(),
	}
}

// Prometheus exposes the underlying collector registry, e.g. for wiring
// promhttp.HandlerFor in cmd/smdsim.
func (r *Registry) Prometheus() *prometheus.Registry { return r.reg }

func (r *Registry) getOrCreate(name, desc string, kind Kind, precision int) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		return e
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: sanitize(name), Help: desc})
	r.reg.MustRegister(g)
	e := &entry{kind: kind, precision: precision, desc: desc, gauge: g}
	r.entries[name] = e
	return e
}

// Add increments the named counter stat by delta, registering it at
// first use with 0-decimal precision if it does not yet exist.
func (r *Registry) Add(name string, delta float64) {
	e := r.getOrCreate(name, name, Count, 0)
	e.gauge.Add(delta)
}

// Set assigns a derived stat's current value, registering it at first
// use with the given precision (3-6 per spec.md §6) if new.
func (r *Registry) Set(name string, value float64, precision int) {
	e := r.getOrCreate(name, name, Derived, precision)
	e.gauge.Set(value)
}

// Describe registers a human-readable description for a stat that will
// be created lazily by Add/Set. Calling Describe first means the first
// Add/Set call picks up the description instead of repeating the name.
func (r *Registry) Describe(name, desc string, kind Kind, precision int) {
	r.getOrCreate(name, desc, kind, precision)
}

// Value returns the current value of a stat and whether it exists.
func (r *Registry) Value(name string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return 0, false
	}
	var m dto.Metric
	if err := e.gauge.Write(&m); err != nil {
		return 0, false
	}
	return m.GetGauge().GetValue(), true
}

// Dump returns every stat as stable-sorted key/value text pairs, each
// formatted per its own precision, matching spec.md §6's "output format
// is key/value pairs; precision is per-stat" requirement.
func (r *Registry) Dump() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	r.mu.Unlock()
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, n := range names {
		v, _ := r.Value(n)
		r.mu.Lock()
		e := r.entries[n]
		r.mu.Unlock()
		out = append(out, fmt.Sprintf("%s: %.*f", n, e.precision, v))
	}
	return out
}

// sanitize maps a spec stat name (which may contain characters invalid
// in a Prometheus metric name, though spec.md's names are already
// snake_case) to a safe metric name by replacing any stray '.' or '-'.
func sanitize(name string) string {
	b := []byte(name)
	for i, c := range b {
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			b[i] = '_'
		}
	}
	return string(b)
}
