// Package simctx defines the explicit simulation context that every
// component in the simulator is constructed with, replacing the source's
// global mutable warmup_complete flag and file-scope statistics objects
// (spec.md §9 DESIGN NOTES).
package simctx

import (
	"github.com/smdsim/dramsim/simlog"
	"github.com/smdsim/dramsim/stats"
)

// Context is threaded through every component's constructor. It carries
// the logger, the stats registry, and the warmup gate that the source
// modeled as a global bool.
type Context struct {
	Log   *simlog.Logger
	Stats *stats.Registry

	// warmupComplete gates whether components should count statistics.
	// Before warmup, state transitions still happen (timing must stay
	// correct) but counters are not incremented, mirroring the source's
	// use of the global warmup_complete flag to discard cold-start stats.
	warmupComplete bool
}

// New builds a fresh simulation context. Pass a nil Registry to get a new
// one.
func New(log *simlog.Logger, reg *stats.Registry) *Context {
	if log == nil {
		log = simlog.Default()
	}
	if reg == nil {
		reg = stats.NewRegistry()
	}
	return &Context{Log: log, Stats: reg}
}

// WarmupComplete reports whether the simulation has left its warmup
// period.
func (c *Context) WarmupComplete() bool { return c.warmupComplete }

// SetWarmupComplete flips the warmup gate. Called exactly once by the
// driver loop (cmd/smdsim) when the configured warmup instruction/cycle
// count has elapsed.
func (c *Context) SetWarmupComplete(v bool) { c.warmupComplete = v }

// Count increments a named counter stat, but only after warmup — mirrors
// the source's convention of zeroing statistics at the warmup boundary.
func (c *Context) Count(name string, delta float64) {
	if !c.warmupComplete {
		return
	}
	c.Stats.Add(name, delta)
}

// CountAlways increments a named counter regardless of warmup state. Used
// for invariant/diagnostic counters (e.g. bloom filter false positives)
// that are useful even during warmup.
func (c *Context) CountAlways(name string, delta float64) {
	c.Stats.Add(name, delta)
}
