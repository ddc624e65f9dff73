// Package fatal implements the simulator's one class of unrecoverable
// error: invariant violations (spec.md §7) that indicate a bug in the
// simulator itself rather than a modeled runtime condition. These are
// never errors.Is-compared or retried — they abort the run.
package fatal

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Violation is raised when an invariant the simulator depends on for
// correctness (timing safety, single-open, lock exclusivity, ...) does
// not hold. It is always fatal: the caller is expected to recover it only
// at the top of cmd/smdsim, log it, and exit non-zero.
type Violation struct {
	Clk uint64
	Msg string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("invariant violation at clk=%d: %s", v.Clk, v.Msg)
}

// Raise logs the violation at error level through the given logger (if
// non-nil) and panics with a *Violation. Every call site names a §7
// fatal condition: update() without a prior ready check(), releasing an
// unheld SALock, pending_maint exceeding its configured limit, a
// request's first command resolving to an impossible command, duplicate
// MSHR allocation for the same line.
func Raise(log *zerolog.Logger, clk uint64, format string, args ...any) {
	v := &Violation{Clk: clk, Msg: fmt.Sprintf(format, args...)}
	if log != nil {
		log.Error().Uint64("clk", clk).Msg("fatal: " + v.Msg)
	}
	panic(v)
}

// Recover turns a panicking *Violation into a returned error. Call via
// `defer fatal.Recover(&err)` at the boundary (cmd/smdsim's run command)
// that must convert an aborted simulation into a clean process exit.
func Recover(errp *error) {
	if r := recover(); r != nil {
		if v, ok := r.(*Violation); ok {
			*errp = v
			return
		}
		panic(r)
	}
}
