// Package simlog wraps zerolog into the per-simulation logger bound by
// simctx.Context. There is no package-level logger: every component that
// wants to log takes a *Logger from the context it was built with, so two
// simulations (e.g. concurrent tests) never share log state.
package simlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a thin, leveled wrapper around zerolog.Logger with the
// clk-tagging helper every component needs (every log line in a
// cycle-accurate simulator is more useful with the cycle attached).
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing to w at the given level. Pass os.Stderr and
// zerolog.InfoLevel for a typical CLI run.
func New(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).With().Timestamp().Logger().Level(level)
	return &Logger{zl: zl}
}

// Default returns a human-readable console logger at info level, suitable
// for interactive use of cmd/smdsim.
func Default() *Logger {
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	zl := zerolog.New(cw).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	return &Logger{zl: zl}
}

// At returns a child logger tagged with the current simulation clock.
func (l *Logger) At(clk uint64) zerolog.Logger {
	return l.zl.With().Uint64("clk", clk).Logger()
}

// Raw exposes the underlying zerolog.Logger for components that want the
// full fluent API (e.g. attaching component="controller").
func (l *Logger) Raw() zerolog.Logger { return l.zl }

// RawPtr returns a pointer to the underlying zerolog.Logger, or nil if l
// itself is nil — lets callers pass a possibly-unset *Logger field
// straight to fatal.Raise without a guard at every call site.
func (l *Logger) RawPtr() *zerolog.Logger {
	if l == nil {
		return nil
	}
	zl := l.zl
	return &zl
}

// Named returns a child logger tagged with a component name, e.g.
// log.Named("controller").At(clk).Warn().Msg("...").
func (l *Logger) Named(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}
