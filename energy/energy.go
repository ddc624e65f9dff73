// Package energy defines the DRAMPower integration boundary (spec.md
// §6): this simulator core never computes energy itself, it only
// reports every committed command at the moment it issues, at the
// granularity DRAMPower's command-trace input expects. A real
// DRAMPower run consumes the trace this package emits; nothing here
// reimplements its power model.
package energy

import "github.com/smdsim/dramsim/device"

// Command is one entry of a DRAMPower-style command trace: a command,
// the rank and rank-relative global bank it targeted, and the clock it
// issued at.
type Command struct {
	Cmd        device.Command
	Rank       int
	GlobalBank int
	Clk        uint64
}

// Recorder accumulates a command trace in memory, for a later batch
// hand-off to an external DRAMPower invocation (spec.md §6
// dpower_memspec_path / dpower_include_io_and_termination options name
// the external tool's own config, not anything this package parses).
type Recorder struct {
	Commands []Command
}

// NewRecorder builds an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Observe is a controller.EnergyCallback: append one trace entry.
func (r *Recorder) Observe(cmd device.Command, rank, globalBank int, clk uint64) {
	r.Commands = append(r.Commands, Command{Cmd: cmd, Rank: rank, GlobalBank: globalBank, Clk: clk})
}

// WriteCSV hands every recorded command to w, one record per command, in
// issue order; the line layout is up to w. cmd/smdsim's writer puts all
// ranks into one file with a clk,command,rank,bank header and a bank
// column on every line, rank-scoped commands (PREA, REF) included.
func (r *Recorder) WriteCSV(w CSVWriter) error {
	for _, c := range r.Commands {
		if err := w.WriteRecord(c); err != nil {
			return err
		}
	}
	return nil
}

// CSVWriter is the narrow sink WriteCSV drives; cmd/smdsim supplies one
// backed by encoding/csv.
type CSVWriter interface {
	WriteRecord(c Command) error
}
