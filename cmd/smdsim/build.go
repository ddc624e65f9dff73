package main

import (
	"math/rand"

	"github.com/smdsim/dramsim/bloom"
	"github.com/smdsim/dramsim/config"
	"github.com/smdsim/dramsim/controller"
	"github.com/smdsim/dramsim/device"
	"github.com/smdsim/dramsim/energy"
	"github.com/smdsim/dramsim/maintenance"
	"github.com/smdsim/dramsim/raidr"
	"github.com/smdsim/dramsim/request"
	"github.com/smdsim/dramsim/rowtable"
	"github.com/smdsim/dramsim/scrub"
	"github.com/smdsim/dramsim/simctx"
	"github.com/smdsim/dramsim/smd"
)

// simulation bundles every component build wires together, so the run
// loop and the final stats dump can reach all of them.
type simulation struct {
	ctx   *simctx.Context
	ctrl  *controller.Controller
	rec   *energy.Recorder
	org   device.Org
	maint []tickable
	raidr *raidr.Policy
	scrub *scrub.Scrubber

	// neighborMachines holds one NeighborMachine per rank when SMD is
	// active, nil otherwise (spec.md §4.4's dedicated
	// NeighborRowRefreshMachine presupposes the chip locking discipline
	// SMD sets up; with SMD off there is no lock table to honor, so
	// enqueueNeighbor falls back to a plain direct enqueue).
	neighborMachines []*maintenance.NeighborMachine
}

// Neighbor-refresh trigger kinds, tagged onto a maintenance.RowAddr so
// enqueueNeighbor's fallback path (and the NeighborMachine Emit hook)
// know which request.Type to enqueue without the maintenance package
// needing to import request.
const (
	neighborKindPara uint8 = iota
	neighborKindRowHammer
)

// tickable is the minimal shape every per-cycle maintenance engine
// satisfies; build wraps each concrete engine in a closure rather than
// defining a shared interface type per engine package, since their Tick
// signatures differ (Env-taking vs plain clk).
type tickable func(clk uint64)

// build assembles a full Controller and its attached SMD/maintenance
// machinery from cfg (spec.md §6). One rank's worth of chips share a
// single smd.LockTable and smd.Tracker, per spec.md §9 DESIGN NOTES.
func build(ctx *simctx.Context, cfg *config.Config) (*simulation, error) {
	ranks := cfg.GetInt("ranks")
	if ranks <= 0 {
		ranks = 1
	}
	org := device.DefaultOrg(ranks)
	perBankRefresh := cfg.GetBool("per_bank_refresh")
	spec := device.NewDDR4Spec(org, device.DefaultDDR4_3200(), perBankRefresh)
	tree := device.NewTree(spec)
	rows := rowtable.New(org)
	queues := request.NewQueues(64, 64, 256, 256)

	ctrl := controller.New(ctx, tree, rows, queues)
	ctrl.PerBankRefresh = perBankRefresh
	ctrl.ReadLatency = uint64(spec.Speed.NCWL) + uint64(spec.Speed.NBL)/2
	ctrl.NACKResend = uint64(spec.Speed.NNACKResend)
	ctrl.ActToNack = uint64(spec.Speed.NACTtoNACK)
	ctrl.CombinedThresh = cfg.GetInt("smd_combined_policy_threshold")
	ctrl.MaxRowOpenIntervals = cfg.GetUint("smd_max_row_open_intervals")
	ctrl.TrackerTimeout = int64(float64(cfg.GetInt("smd_refresh_period")) * cfg.GetFloat("smd_timeout_to_ref_interval_ratio"))
	ctrl.TimeoutThreshold = cfg.GetUint("timeout_row_policy_threshold")

	switch cfg.GetString("row_policy") {
	case "closed":
		ctrl.RowPolicy = controller.RowPolicyClosed
	case "timeout":
		ctrl.RowPolicy = controller.RowPolicyTimeout
	default:
		ctrl.RowPolicy = controller.RowPolicyOpened
	}

	rec := energy.NewRecorder()
	ctrl.Energy = rec.Observe

	sim := &simulation{ctx: ctx, ctrl: ctrl, rec: rec, org: org}

	numChips := 8 // x8 device: one chip per byte lane, per spec.md §3 Org.
	banksPerRank := org.BanksPerRank()

	if cfg.GetBool("smd") || cfg.GetString("smd") == "on" {
		var mode controller.SMDMode
		switch cfg.GetString("smd_mode") {
		case "Alert":
			mode = controller.ModeAlert
		case "ACT_NACK":
			mode = controller.ModeActNack
		default:
			mode = controller.ModeRSQ
		}
		ctrl.SMDMode = mode
		ctrl.Locks = smd.NewLockTable(numChips, banksPerRank)
		ctrl.Locks.Log = ctx.Log
		if mode == controller.ModeRSQ || mode == controller.ModeAlert {
			ctrl.Tracker = smd.NewTracker(numChips, banksPerRank, ctrl.TrackerTimeout)
		}
		if mode == controller.ModeAlert {
			ctrl.Alerts = smd.NewAlertSet()
		}

		sim.neighborMachines = wireNeighborMachines(sim, cfg, org, numChips)

		if err := wireSMDMaintenance(sim, cfg, org, numChips); err != nil {
			return nil, err
		}
	}

	if cfg.GetBool("enable_para") || cfg.GetString("enable_para") == "on" {
		pct := uint32(cfg.GetInt("para_neighbor_refresh_pct"))
		ctrl.Para = maintenance.NewPARA(pct, 1)
		wireParaNeighborRefresh(sim, org.Count[device.Row])
	}

	if cfg.GetBool("raidr_enabled") {
		nREFIInternal := uint64(float64(cfg.GetInt("raidr_refresh_period")) / cfg.GetFloat("refresh_mult"))
		sim.raidr = raidr.New(
			org.Count[device.Rank], org.Count[device.Bank], org.Count[device.BankGroup],
			org.RowsPerBank(), org.Count[device.Subarray], org.Count[device.Row],
			uint32(cfg.GetInt("raidr_variable_refresh_bloom_filter_size")),
			cfg.GetInt("raidr_variable_refresh_bloom_filter_hashes"),
			cfg.GetFloat("raidr_variable_refresh_weak_row_percentage"),
			nREFIInternal, ctx.Stats,
		)
		sim.maint = append(sim.maint, sim.tickRaidr)
	}

	if cfg.GetBool("enable_scrubbing") || cfg.GetString("enable_scrubbing") == "on" {
		counter := scrub.NewCounter(org.Count[device.Rank], banksPerRank, org.Count[device.Subarray], org.Count[device.Row], org.Count[device.Column]/8)
		sim.scrub = scrub.NewScrubber(counter, cfg.GetUint("scrubbing_period"), 9)
		sim.scrub.Log = ctx.Log
		sim.maint = append(sim.maint, sim.tickScrub)
	}

	for _, fn := range sim.maint {
		ctrl.AddMaintenance(fn)
	}

	return sim, nil
}

// wireParaNeighborRefresh installs the hook onActivate uses to turn a
// PARA coin-flip "hit" into real traffic: one victim row per in-range
// neighbor of the just-activated row (spec.md §4.4), routed through
// enqueueNeighbor so it honors the same de-dup/locking discipline as
// the RowHammer-protection neighbor refreshes.
func wireParaNeighborRefresh(sim *simulation, rowsPerSubarray int) {
	sim.ctrl.NeighborRefresh = func(c *controller.Controller, addr device.AddrVec) {
		for _, row := range maintenance.Neighbors(uint32(addr[device.Row]), uint32(rowsPerSubarray)) {
			sim.enqueueNeighbor(addr, row, neighborKindPara)
		}
	}
}

// wireNeighborMachines builds one maintenance.NeighborMachine per rank,
// sharing that rank's chip lock table (spec.md §4.4's dedicated
// NeighborRowRefreshMachine: "the same locking discipline but a FIFO of
// pending victim rows, de-duplicated on enqueue"). It uses a single
// representative chip per rank for lock-gating purposes, the same
// chip-0-aggregation convention issueRankQuery uses for RSQ reporting.
func wireNeighborMachines(sim *simulation, cfg *config.Config, org device.Org, numChips int) []*maintenance.NeighborMachine {
	// row_maint_granularity = blast_radius*2: one victim refreshed on
	// each side of the aggressor row (original source's neighbor-refresh
	// machine sizing).
	rowGranularity := uint32(cfg.GetInt("smd_rh_blast_radius")) * 2
	if rowGranularity == 0 {
		rowGranularity = 2
	}
	maintLatency := cfg.GetUint("smd_single_ref_latency")
	lockEntireBank := cfg.GetString("smd_scrubbing_lock_region") == "bank"
	banksPerRank := org.BanksPerRank()

	machines := make([]*maintenance.NeighborMachine, org.Count[device.Rank])
	for rank := 0; rank < org.Count[device.Rank]; rank++ {
		rank := rank
		chipID := rank * numChips
		nm := maintenance.NewNeighborMachine(sim.ctrl.Locks, chipID, maintenance.NewNeighborFIFO(), rowGranularity, maintLatency, lockEntireBank)
		nm.RankID = rank
		nm.Alerts = sim.ctrl.Alerts
		nm.Emit = func(ra maintenance.RowAddr) {
			addr := neighborAddr(org, rank, ra)
			typ := request.ParaRefresh
			if ra.Kind == neighborKindRowHammer {
				typ = request.GrapheneRefresh
			}
			sim.ctrl.Enqueue(request.New(0, addr, typ, -1, sim.ctrl.Clk, nil))
		}
		machines[rank] = nm

		env := deviceEnv{rows: sim.ctrl.Rows, banksPerRank: banksPerRank, rank: rank}
		sim.maint = append(sim.maint, func(clk uint64) { nm.Tick(env, int64(clk)) })
	}
	return machines
}

// neighborAddr reconstructs a full device.AddrVec from a rank and the
// (bank, subarray, row) a NeighborMachine just serviced, inverting
// device.Org.GlobalBankID's bank-group/bank packing.
func neighborAddr(org device.Org, rank int, ra maintenance.RowAddr) device.AddrVec {
	var addr device.AddrVec
	addr[device.Rank] = rank
	addr[device.BankGroup] = ra.BankID / org.Count[device.Bank]
	addr[device.Bank] = ra.BankID % org.Count[device.Bank]
	addr[device.Subarray] = int(ra.SAID)
	addr[device.Row] = int(ra.RowID)
	return addr
}

// enqueueNeighbor routes one victim-row refresh triggered at addr (with
// its row replaced by victimRow) through the rank's NeighborMachine when
// SMD is active (de-duplicated, chip-locked), or straight onto the
// controller's request queue when it is not (no chip lock table exists
// to honor).
func (s *simulation) enqueueNeighbor(addr device.AddrVec, victimRow uint32, kind uint8) {
	rank := addr[device.Rank]
	if s.neighborMachines != nil {
		s.neighborMachines[rank].Queue.Enqueue(maintenance.RowAddr{
			BankID: s.ctrl.GlobalBank(addr),
			SAID:   uint32(addr[device.Subarray]),
			RowID:  victimRow,
			Kind:   kind,
		})
		return
	}
	victim := addr
	victim[device.Row] = int(victimRow)
	typ := request.ParaRefresh
	if kind == neighborKindRowHammer {
		typ = request.GrapheneRefresh
	}
	s.ctrl.Enqueue(request.New(0, victim, typ, -1, s.ctrl.Clk, nil))
}

// deviceEnv adapts rowtable.Table into the narrow maintenance.Env view:
// a subarray is active if any request traffic currently has its bank
// open on this rank (the subarray id itself is not consulted).
type deviceEnv struct {
	rows         *rowtable.Table
	banksPerRank int
	rank         int
}

func (e deviceEnv) IsSAActive(bankID int, saID uint32) bool {
	row, _, open := e.rows.IsOpen(e.rank*e.banksPerRank + bankID)
	_ = saID
	return open && row >= 0
}

// wireSMDMaintenance builds one FixedRateRefresh (wrapped in
// VariableRefresh when smd_ref_policy=Variable) per chip, partitioning
// each chip's banks across smd_num_ref_machines Machines (spec.md §4.4),
// and, when smd_rh_protection_enabled is set, one RowHammer detector per
// rank of the kind smd_rh_protection_mode selects (PARA, Graphene, or
// the counting-Bloom-filter detector by default).
func wireSMDMaintenance(sim *simulation, cfg *config.Config, org device.Org, numChips int) error {
	numMachines := cfg.GetInt("smd_num_ref_machines")
	if numMachines <= 0 {
		numMachines = 1
	}
	banksPerRank := org.BanksPerRank()
	rowGranularity := uint32(cfg.GetInt("smd_row_refresh_granularity"))
	maintLatency := cfg.GetUint("smd_single_ref_latency")
	pendingLimit := uint32(cfg.GetInt("smd_pending_ref_limit"))
	refreshPeriod := cfg.GetUint("smd_refresh_period")

	for rank := 0; rank < org.Count[device.Rank]; rank++ {
		env := deviceEnv{rows: sim.ctrl.Rows, banksPerRank: banksPerRank, rank: rank}

		var dual *bloom.DualFilter
		if cfg.GetString("smd_ref_policy") == "Variable" {
			dual = bloom.NewDual(
				uint32(cfg.GetInt("smd_variable_refresh_bloom_filter_size")),
				cfg.GetInt("smd_variable_refresh_bloom_filter_hashes"),
				1, true, rank, 0, sim.ctx.Stats,
			)
			seedWeakRows(dual, rank, banksPerRank, uint32(org.Count[device.Row]), cfg.GetFloat("smd_variable_refresh_weak_row_percentage")*100)
		}

		for chip := 0; chip < numChips; chip++ {
			chipID := rank*numChips + chip
			machines := make([]*maintenance.Machine, 0, numMachines)
			perMachine := split(banksPerRank, numMachines)
			bankOffset := 0
			for m := 0; m < numMachines; m++ {
				n := perMachine[m]
				counters := make([]*maintenance.Counter, 0, n)
				for b := bankOffset; b < bankOffset+n; b++ {
					counters = append(counters, maintenance.NewCounter(b, 0))
				}
				bankOffset += n
				mc := maintenance.NewMachine(
					sim.ctrl.Locks, chipID, counters,
					rowGranularity, uint32(org.Count[device.Row]), uint32(org.Count[device.Subarray]),
					maintLatency, cfg.GetString("smd_scrubbing_lock_region") == "bank", pendingLimit,
				)
				mc.RankID = rank
				mc.Alerts = sim.ctrl.Alerts
				mc.Log = sim.ctx.Log
				machines = append(machines, mc)
			}
			fixed := maintenance.NewFixedRateRefresh(machines, refreshPeriod)

			if dual != nil {
				vr := maintenance.NewVariableRefresh(fixed, dual, 4)
				sim.maint = append(sim.maint, func(clk uint64) { vr.Tick(env, int64(clk)) })
			} else {
				sim.maint = append(sim.maint, func(clk uint64) { fixed.Tick(env, int64(clk)) })
			}
		}
	}

	if cfg.GetBool("smd_rh_protection_enabled") {
		rowsPerSA := uint32(org.Count[device.Row])
		trigger := func(c *controller.Controller, addr device.AddrVec) {
			for _, row := range maintenance.Neighbors(uint32(addr[device.Row]), rowsPerSA) {
				sim.enqueueNeighbor(addr, row, neighborKindRowHammer)
			}
		}

		// smd_rh_protection_mode selects one of three mutually exclusive
		// per-chip RowHammer detectors (spec.md §4.4); unlike
		// enable_para's controller-wide coin flip on every ACT, all three
		// here observe per-(rank,bank) activation patterns.
		switch cfg.GetString("smd_rh_protection_mode") {
		case "PARA":
			paraByRank := make([]*maintenance.PARA, org.Count[device.Rank])
			pct := uint32(cfg.GetFloat("smd_rh_neighbor_refresh_pct"))
			for rank := range paraByRank {
				paraByRank[rank] = maintenance.NewPARA(pct, int64(1000+rank))
			}
			sim.ctrl.RowHammerObserve = func(c *controller.Controller, addr device.AddrVec) {
				if paraByRank[addr[device.Rank]].Observe() {
					trigger(c, addr)
				}
			}

		case "Graphene":
			grapheneByRank := make([]*maintenance.Graphene, org.Count[device.Rank])
			for rank := 0; rank < org.Count[device.Rank]; rank++ {
				g := maintenance.NewGraphene(
					16, // tracked-row table size: Graphene's CAT is small relative to MAC, per the original source's default
					cfg.GetInt("smd_rh_protection_mac"),
					cfg.GetUint("smd_rh_protection_bloom_filter_epoch"),
					banksPerRank,
				)
				grapheneByRank[rank] = g
				sim.maint = append(sim.maint, func(clk uint64) { g.Tick(clk) })
			}
			sim.ctrl.RowHammerObserve = func(c *controller.Controller, addr device.AddrVec) {
				g := grapheneByRank[addr[device.Rank]]
				if g.Observe(c.GlobalBank(addr), uint32(addr[device.Row])) {
					trigger(c, addr)
				}
			}

		default: // "CBF", the configured default (config/defaults.go)
			dualByRank := make([]*bloom.DualFilter, org.Count[device.Rank])
			detByRank := make([]*maintenance.CountingBloomDetector, org.Count[device.Rank])
			epoch := cfg.GetUint("smd_rh_protection_bloom_filter_epoch")
			pct := uint32(cfg.GetFloat("smd_rh_neighbor_refresh_pct"))
			spaceEfficient := cfg.GetString("smd_rh_protection_bloom_filter_type") == "space_efficient"
			for rank := 0; rank < org.Count[device.Rank]; rank++ {
				dual := bloom.NewDual(
					uint32(cfg.GetInt("smd_rh_protection_bloom_filter_size")),
					cfg.GetInt("smd_rh_protection_bloom_filter_hashes"),
					1, spaceEfficient, rank, 0, sim.ctx.Stats,
				)
				dualByRank[rank] = dual
				detByRank[rank] = maintenance.NewCountingBloomDetector(dual, pct, epoch, int64(2000+rank))
			}
			sim.maint = append(sim.maint, func(clk uint64) {
				if epoch == 0 {
					return
				}
				for _, dual := range dualByRank {
					if clk%epoch == 0 {
						dual.Swap()
					}
				}
			})
			sim.ctrl.RowHammerObserve = func(c *controller.Controller, addr device.AddrVec) {
				det := detByRank[addr[device.Rank]]
				if det.Observe(c.GlobalBank(addr), uint32(addr[device.Row])) {
					trigger(c, addr)
				}
			}
		}
	}
	return nil
}

// seedWeakRows samples weakPct percent of rank's rows as retention-weak
// at boot from a fixed seed of 1337+rank (raidr.New uses one stream
// seeded with 1337 for all ranks), so a given rank's weak-row set is
// stable across runs.
func seedWeakRows(dual *bloom.DualFilter, rank, banksPerRank int, numRows uint32, weakPct float64) {
	rng := rand.New(rand.NewSource(1337 + int64(rank)))
	for bank := 0; bank < banksPerRank; bank++ {
		for row := uint32(0); row < numRows; row++ {
			if rng.Float64()*100 < weakPct {
				dual.Insert(maintenance.WeakRowKey(uint32(bank), row))
			}
		}
	}
}

// split divides total as evenly as possible across n buckets.
func split(total, n int) []int {
	out := make([]int, n)
	base, rem := total/n, total%n
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

func (s *simulation) tickRaidr(clk uint64) {
	if addr, ok := s.raidr.Tick(clk); ok {
		req := request.New(0, addr, request.RaidrRefresh, -1, clk, nil)
		s.ctrl.Enqueue(req)
	}
}

func (s *simulation) tickScrub(clk uint64) {
	s.scrub.Tick(clk)
	if !s.scrub.Counter.InProgress() {
		return
	}
	addr := s.scrub.Counter.Addr(0, s.org.Count[device.BankGroup], 8)
	if s.ctrl.Enqueue(request.New(0, addr, request.Read, -1, clk, nil)) {
		s.scrub.AdvanceOnEnqueue(clk)
	}
}
