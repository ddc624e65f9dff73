// Command smdsim drives a trace-driven DRAM/SMD simulation run: parses a
// flat-config TOML file and a request trace, ticks the Controller until
// the trace is exhausted and every in-flight request has drained, then
// dumps stats (and, if configured, a DRAMPower command trace).
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smdsim/dramsim/config"
	"github.com/smdsim/dramsim/device"
	"github.com/smdsim/dramsim/energy"
	"github.com/smdsim/dramsim/fatal"
	"github.com/smdsim/dramsim/request"
	"github.com/smdsim/dramsim/simctx"
	"github.com/smdsim/dramsim/simlog"
)

type runOpts struct {
	configPath string
	tracePath  string
	setOpts    []string
	maxCycles  uint64
	warmup     uint64
	logLevel   string
	statsAddr  string
	traceOut   string
}

func main() {
	var o runOpts

	root := &cobra.Command{
		Use:   "smdsim --trace FILE [flags]",
		Short: "Cycle-accurate DRAM/SMD subsystem simulator",
		Long: `smdsim replays a memory request trace against a cycle-accurate DRAM
timing model extended with Self-Managing DRAM (SMD) protocols (RSQ,
Alert, ACT-NACK), plus retention-aware refresh, ECC scrubbing, and
RowHammer mitigation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(o)
		},
	}

	root.Flags().StringVar(&o.configPath, "config", "", "TOML config file (unset options fall back to built-in defaults)")
	root.Flags().StringVar(&o.tracePath, "trace", "", "request trace file (required)")
	root.Flags().StringArrayVar(&o.setOpts, "set", nil, "override a single config option as key=value (repeatable)")
	root.Flags().Uint64Var(&o.maxCycles, "cycles", 0, "stop after this many cycles (0 = run until the trace drains)")
	root.Flags().Uint64Var(&o.warmup, "warmup", 0, "cycles before stats start counting")
	root.Flags().StringVar(&o.logLevel, "log-level", "info", "trace|debug|info|warn|error")
	root.Flags().StringVar(&o.statsAddr, "stats-addr", "", "serve Prometheus metrics on this address (e.g. :9100); unset disables serving")
	root.Flags().StringVar(&o.traceOut, "trace-out", "", "write a DRAMPower-style command trace CSV to this path")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runSim executes one simulation run. A spec.md §7 invariant violation
// anywhere below (e.g. pending_maint exceeding its configured limit)
// unwinds as a panicked *fatal.Violation; the deferred Recover turns it
// into a plain returned error instead of an unhandled stack trace.
func runSim(o runOpts) (err error) {
	defer fatal.Recover(&err)

	if o.tracePath == "" {
		return fmt.Errorf("smdsim: --trace is required")
	}

	cfg := config.New(nil)
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	for _, kv := range o.setOpts {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("smdsim: --set %q is not key=value", kv)
		}
		cfg.Set(k, v)
	}

	level, err := zerolog.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("smdsim: --log-level: %w", err)
	}
	log := simlog.New(os.Stderr, level)
	ctx := simctx.New(log, nil)

	sim, err := build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("smdsim: %w", err)
	}

	trace, err := loadTrace(o.tracePath, sim.org)
	if err != nil {
		return err
	}

	var g errgroup.Group
	httpCtx, stopHTTP := context.WithCancel(context.Background())
	if o.statsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(ctx.Stats.Prometheus(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: o.statsAddr, Handler: mux}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-httpCtx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	completed := 0
	nextTrace := 0
	var clk uint64
	for {
		if o.warmup > 0 && clk == o.warmup {
			ctx.SetWarmupComplete(true)
		}

		for nextTrace < len(trace) && trace[nextTrace].arriveClk <= clk {
			e := trace[nextTrace]
			nextTrace++
			typ := request.Read
			if e.write {
				typ = request.Write
			}
			req := request.New(e.addr, e.addrVec, typ, 0, clk, func(*request.Request) { completed++ })
			if !sim.ctrl.Enqueue(req) {
				log.Raw().Warn().Uint64("clk", clk).Msg("trace request dropped: queue full")
			}
		}

		sim.ctrl.Tick(clk)

		drained := nextTrace >= len(trace) && sim.ctrl.Queues.ReadQ.Len() == 0 &&
			sim.ctrl.Queues.WriteQ.Len() == 0 && sim.ctrl.Queues.ActQ.Len() == 0 &&
			sim.ctrl.Queues.OtherQ.Len() == 0 && sim.ctrl.Pending.Len() == 0
		if drained {
			break
		}
		clk++
		if o.maxCycles > 0 && clk >= o.maxCycles {
			log.Raw().Warn().Uint64("cycles", clk).Msg("stopped at --cycles before the trace fully drained")
			break
		}
	}

	stopHTTP()
	if err := g.Wait(); err != nil {
		return fmt.Errorf("smdsim: stats server: %w", err)
	}

	if !ctx.WarmupComplete() {
		ctx.SetWarmupComplete(true)
	}
	for _, line := range ctx.Stats.Dump() {
		fmt.Println(line)
	}
	fmt.Printf("requests_completed %d\n", completed)

	if o.traceOut != "" {
		if err := writeEnergyCSV(sim.rec, o.traceOut); err != nil {
			return err
		}
	}

	return nil
}

type traceEntry struct {
	arriveClk uint64
	write     bool
	addr      uint64
	addrVec   device.AddrVec
}

// loadTrace reads whitespace-separated "<arrive_clk> <R|W> <addr>" lines
// (blank lines and lines starting with # are skipped), decoding addr into
// an AddrVec sized by org.
func loadTrace(path string, org device.Org) ([]traceEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("smdsim: opening trace: %w", err)
	}
	defer f.Close()

	var entries []traceEntry
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("smdsim: trace line %d: expected 3 fields, got %d", lineNo, len(fields))
		}
		clk, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("smdsim: trace line %d: bad arrive clock: %w", lineNo, err)
		}
		var write bool
		switch strings.ToUpper(fields[1]) {
		case "R":
			write = false
		case "W":
			write = true
		default:
			return nil, fmt.Errorf("smdsim: trace line %d: expected R or W, got %q", lineNo, fields[1])
		}
		addr, err := strconv.ParseUint(fields[2], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("smdsim: trace line %d: bad address: %w", lineNo, err)
		}
		entries = append(entries, traceEntry{arriveClk: clk, write: write, addr: addr, addrVec: decodeAddr(org, addr)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("smdsim: reading trace: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].arriveClk < entries[j].arriveClk })
	return entries, nil
}

// decodeAddr splits a flat byte address into the per-level AddrVec org
// describes, Column varying fastest and Channel slowest.
func decodeAddr(org device.Org, flat uint64) device.AddrVec {
	var vec device.AddrVec
	for lvl := int(device.NumLevels) - 1; lvl >= 0; lvl-- {
		count := uint64(org.Count[lvl])
		if count == 0 {
			count = 1
		}
		vec[lvl] = int(flat % count)
		flat /= count
	}
	return vec
}

// csvEnergyWriter adapts encoding/csv to energy.CSVWriter.
type csvEnergyWriter struct {
	w *csv.Writer
}

func (c csvEnergyWriter) WriteRecord(cmd energy.Command) error {
	return c.w.Write([]string{
		strconv.FormatUint(cmd.Clk, 10),
		cmd.Cmd.String(),
		strconv.Itoa(cmd.Rank),
		strconv.Itoa(cmd.GlobalBank),
	})
}

func writeEnergyCSV(rec *energy.Recorder, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("smdsim: creating trace-out: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"clk", "command", "rank", "bank"}); err != nil {
		return err
	}
	if err := rec.WriteCSV(csvEnergyWriter{w: w}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
