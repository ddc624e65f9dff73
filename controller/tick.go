package controller

import (
	"github.com/smdsim/dramsim/device"
	"github.com/smdsim/dramsim/request"
	"github.com/smdsim/dramsim/smd"
)

// Tick advances the controller by one cycle (spec.md §4.2): retire due
// completions, classify any ACT-NACK-mode activates whose deadline has
// arrived, run every attached maintenance engine, service SMD alerts,
// refresh the write/read priority mode, and finally schedule and issue
// at most one command onto the channel's bus.
func (c *Controller) Tick(clk uint64) {
	c.Clk = clk

	c.retirePending(clk)
	c.classifyDueNacks(clk)
	c.retryResends(clk)

	for _, fn := range c.Maintenance {
		fn(clk)
	}

	c.serviceAlerts(clk)
	c.updateWriteMode()

	if !c.scheduleAndIssue(clk) && !c.tryForceTimeoutPrecharge(clk) && c.SMDMode == ModeRSQ {
		c.opportunisticRSQ(clk)
	}
}

// retirePending completes every request whose DepartClk has arrived,
// in arrival order (spec.md §4.2 step 1): READ data returns via its
// callback; a RefStatusQuery/PreRSQ response is absorbed into the
// Tracker instead of calling back a core.
func (c *Controller) retirePending(clk uint64) {
	for {
		entry, ok := c.Pending.PopDue(clk)
		if !ok {
			return
		}
		req := entry.Req
		switch req.Type {
		case request.RefStatusQuery, request.ActNack, request.ActPartialNack:
			c.absorbReports(req, clk)
		default:
			req.Complete()
		}
	}
}

// absorbReports folds a retired rank-wide status query's snapshot into
// the Tracker and clears the rank's Alert-mode awaiting state.
func (c *Controller) absorbReports(req *request.Request, clk uint64) {
	if c.Tracker != nil {
		for _, r := range req.Reports {
			c.Tracker.Update(r.ChipID, r.GlobalBank, r.BusySAs, int64(clk))
			c.Tracker.UnmarkInflight(r.GlobalBank)
		}
	}
	if c.Alerts != nil {
		c.Alerts.ResolveResponse(req.AddrVec[device.Rank])
	}
}

// classifyDueNacks resolves every ACT-NACK-mode activate whose
// nACT_to_NACK deadline is this clk (spec.md §4.3 ACT-NACK mode):
// consulting the chip-side LockTable's current view of the target
// subarray to decide between silent success, ACT_PARTIAL_NACK, and a
// full ACT_NACK.
func (c *Controller) classifyDueNacks(clk uint64) {
	due := c.nackDeadlines[clk]
	delete(c.nackDeadlines, clk)
	for _, n := range due {
		total := c.Locks.NumChips()
		locked := c.Locks.CountLocked(n.globalBank, n.saID)
		switch {
		case locked == 0:
			// every chip had the row available; the optimistic ACT stands.
		case locked == total:
			c.issueCorrective(device.ActNack, n, clk)
			c.resends = append(c.resends, resendEntry{req: n.req, queue: n.queue, notBefore: clk + c.NACKResend})
			c.Queues.ActQ.Remove(n.req)
		default:
			c.issueCorrective(device.ActPartialNack, n, clk)
			n.req.PartiallyNacked = true
		}
	}
}

// issueCorrective issues ACT_NACK/ACT_PARTIAL_NACK against the bank a
// pending nackEntry targeted, if the bus can accept it this cycle;
// otherwise it is silently dropped (a well-formed config keeps the bus
// free often enough that this is rare, and a missed correction merely
// defers the scheduler noticing PartiallyOpened state by a cycle).
func (c *Controller) issueCorrective(cmd device.Command, n *nackEntry, clk uint64) {
	if ready, _ := c.Tree.Check(cmd, n.addr, clk); ready {
		c.Tree.Update(cmd, n.addr, clk)
		if cmd == device.ActNack {
			c.Rows.Precharge(c.bankIndex(n.addr))
		}
		c.emitEnergy(cmd, n.addr)
	}
}

// retryResends reinserts any full-NACK request whose resend interval
// has elapsed back onto its original queue.
func (c *Controller) retryResends(clk uint64) {
	var keep []resendEntry
	for _, r := range c.resends {
		if clk < r.notBefore {
			keep = append(keep, r)
			continue
		}
		r.req.IsFirstCommand = true
		r.queue.Push(r.req)
	}
	c.resends = keep
}

// serviceAlerts drains one REF_STATUS_QUERY per alerted rank, in
// ascending rank order (spec.md §4.3 Alert mode), ahead of all other
// scheduling this tick.
func (c *Controller) serviceAlerts(clk uint64) {
	if c.SMDMode != ModeAlert || c.Alerts == nil {
		return
	}
	for _, rankID := range c.Alerts.DrainAscending() {
		c.issueRankQuery(rankID, clk)
	}
}

// updateWriteMode toggles the write/read priority mode using the
// writeq high/low watermarks (spec.md §4.2 step 5): enter write mode
// once writeq is at least 80% full, exit once it drops to 20% or below
// provided readq has work waiting.
func (c *Controller) updateWriteMode() {
	frac := c.Queues.WriteQ.FractionFull()
	switch {
	case !c.writeMode && frac >= 0.8:
		c.writeMode = true
	case c.writeMode && frac <= 0.2 && c.Queues.ReadQ.Len() > 0:
		c.writeMode = false
	}
}

// scheduleAndIssue attempts, in priority order (actq, then the
// in-mode queue, then the other CPU-facing queue, then otherq), to
// issue exactly one command this cycle (spec.md §4.2 step 7-8).
// Reports whether anything issued.
func (c *Controller) scheduleAndIssue(clk uint64) bool {
	if c.tryIssueColumn(c.Queues.ActQ, clk) {
		return true
	}
	primary, secondary := c.Queues.ReadQ, c.Queues.WriteQ
	if c.writeMode {
		primary, secondary = c.Queues.WriteQ, c.Queues.ReadQ
	}
	if c.tryIssueOpen(primary, clk) {
		return true
	}
	if c.tryIssueOpen(secondary, clk) {
		return true
	}
	if c.tryIssueOpen(c.Queues.OtherQ, clk) {
		return true
	}
	return false
}

// openCommand returns the column command a readq/writeq/otherq request
// will eventually need; Tree.Decode resolves the actual ACT/PRE
// precursor chain from it. Activate-only maintenance refreshes decode
// from ACT directly: there is no data access, only a charge restore.
// Fixed-rate/RAIDR-driven REF(PB) requests decode from REF(PB) itself,
// which already carries its own PREA/PRE precursor chain.
func (c *Controller) openCommand(req *request.Request) device.Command {
	switch req.Type {
	case request.Write:
		return device.WR
	case request.ParaRefresh, request.RaidrRefresh, request.GrapheneRefresh:
		return device.ACT
	case request.Refresh:
		if c.PerBankRefresh {
			return device.REFPB
		}
		return device.REF
	default:
		return device.RD
	}
}

// tryIssueOpen scans q for the first request whose first command
// (ACT, or a conflict-clearing PRE, or -- on a row hit -- the access
// itself) is ready to issue, applying SMD gating when the resolved
// command is an activate.
func (c *Controller) tryIssueOpen(q *request.Queue, clk uint64) bool {
	for _, req := range q.All() {
		cmd := c.openCommand(req)
		decoded := c.Tree.Decode(cmd, req.AddrVec)
		if decoded == device.NOP {
			continue
		}
		if decoded == device.ACT && !c.gateAct(req.AddrVec, clk) {
			continue
		}
		ready, _ := c.Tree.Check(decoded, req.AddrVec, clk)
		if !ready {
			continue
		}
		c.Tree.Update(decoded, req.AddrVec, clk)
		c.emitEnergy(decoded, req.AddrVec)

		switch decoded {
		case device.ACT:
			c.Rows.Activate(c.bankIndex(req.AddrVec), req.AddrVec[device.Row], clk)
			c.onActivate(req, clk)
			q.Remove(req)
			c.Queues.ActQ.Push(req)
		case device.PRE, device.PREA:
			if decoded == device.PRE {
				c.Rows.Precharge(c.bankIndex(req.AddrVec))
			}
			// the request stays queued; REF(PB) is retried once the
			// precharge it forced has cleared.
		case device.REF, device.REFPB:
			q.Remove(req)
			req.Complete()
		default: // row-buffer hit: the access itself issued directly
			c.Rows.Access(c.bankIndex(req.AddrVec), req.AddrVec[device.Row])
			q.Remove(req)
			c.completeAccess(req, decoded, clk)
		}
		return true
	}
	return false
}

// closeCommand is the column command issued once a request's row is
// open (it is in actq): the real access for Read/Write, or an
// immediate PRE for an activate-only maintenance refresh, which never
// has data to transfer.
func closeCommand(req *request.Request) device.Command {
	switch req.Type {
	case request.Write:
		return device.WR
	case request.ParaRefresh, request.RaidrRefresh, request.GrapheneRefresh:
		return device.PRE
	default:
		return device.RD
	}
}

// tryIssueColumn scans actq for a request whose row is open and ready
// for its column command (or forced-closed one, per row policy), auto-
// precharging when the configured policy calls for it.
func (c *Controller) tryIssueColumn(q *request.Queue, clk uint64) bool {
	for _, req := range q.All() {
		cmd := closeCommand(req)
		if c.shouldForceClose(req, clk) {
			cmd = device.AddAutoPrecharge(cmd)
		}
		decoded := c.Tree.Decode(cmd, req.AddrVec)
		if decoded == device.NOP {
			continue
		}
		if !c.combinedPolicyAllows(req, decoded) {
			continue
		}
		ready, _ := c.Tree.Check(decoded, req.AddrVec, clk)
		if !ready {
			continue
		}
		c.Tree.Update(decoded, req.AddrVec, clk)
		c.emitEnergy(decoded, req.AddrVec)
		bankIdx := c.bankIndex(req.AddrVec)

		if decoded == device.ACT {
			// re-ACT recovering from an earlier ACT_PARTIAL_NACK (spec.md
			// §4.1 prereq: PartiallyOpened promotes to ACT instead of NOP):
			// the row is being made whole again, not yet accessed; req
			// stays in actq for its real column command next tick.
			c.Rows.Activate(bankIdx, req.AddrVec[device.Row], clk)
			req.PartiallyNacked = false
			return true
		}

		if decoded == device.RDA || decoded == device.WRA || decoded == device.PRE {
			c.Rows.Precharge(bankIdx)
		} else {
			c.Rows.Access(bankIdx, req.AddrVec[device.Row])
		}
		q.Remove(req)
		c.completeAccess(req, decoded, clk)
		return true
	}
	return false
}

// combinedPolicyAllows implements spec.md §4.3's ACT-NACK combined
// policy: a PartiallyNacked request proceeds against the still-open
// (possibly stale) row whenever the bank's write queue depth is under
// CombinedThresh -- favoring throughput -- and otherwise must wait for
// its pending PRE to clear and re-ACT cleanly (decided here, resolving
// spec.md §9's flagged PRE-vs-WAIT tie-break in favor of a single,
// deterministic, queue-depth-based rule; see DESIGN.md).
func (c *Controller) combinedPolicyAllows(req *request.Request, decoded device.Command) bool {
	if !req.PartiallyNacked || decoded == device.PRE || decoded == device.ACT {
		return true
	}
	return c.Queues.WriteQ.Len() < c.CombinedThresh
}

// shouldForceClose reports whether req's column access must carry
// auto-precharge: unconditionally under the closed row policy, or
// (spec.md §4.2 "Auto-precharge forcing", independent of row policy)
// whenever SMD is in play and the bank has been open at least
// MaxRowOpenIntervals*ref_tracker_timeout_period cycles — preventing a
// long-open row from starving the per-chip refresh engine.
func (c *Controller) shouldForceClose(req *request.Request, clk uint64) bool {
	if c.RowPolicy == RowPolicyClosed {
		return true
	}
	if c.SMDMode == ModeNone || c.MaxRowOpenIntervals == 0 {
		return false
	}
	_, since, open := c.Rows.IsOpen(c.bankIndex(req.AddrVec))
	threshold := c.MaxRowOpenIntervals * uint64(c.TrackerTimeout)
	return open && clk-since >= threshold
}

// tryForceTimeoutPrecharge implements spec.md §4.2 step 7's independent
// row-timeout scheduling fallback: when nothing else was ready to issue
// this cycle and row_policy=timeout is configured, proactively PRE the
// first bank found open at least TimeoutThreshold cycles, even with no
// request pending against it.
func (c *Controller) tryForceTimeoutPrecharge(clk uint64) bool {
	if c.RowPolicy != RowPolicyTimeout || c.TimeoutThreshold == 0 {
		return false
	}
	banksPerRank := c.Tree.Spec.Org.BanksPerRank()
	banksPerBG := c.Tree.Spec.Org.Count[device.Bank]
	for bankIdx := 0; bankIdx < c.Rows.NumBanks(); bankIdx++ {
		if c.Rows.OpenDuration(bankIdx, clk) < c.TimeoutThreshold {
			continue
		}
		gb := bankIdx % banksPerRank
		var addr device.AddrVec
		addr[device.Rank] = bankIdx / banksPerRank
		addr[device.BankGroup] = gb / banksPerBG
		addr[device.Bank] = gb % banksPerBG

		ready, _ := c.Tree.Check(device.PRE, addr, clk)
		if !ready {
			continue
		}
		c.Tree.Update(device.PRE, addr, clk)
		c.emitEnergy(device.PRE, addr)
		c.Rows.Precharge(bankIdx)
		return true
	}
	return false
}

// onActivate runs ACT-issue bookkeeping: clears IsFirstCommand,
// registers an ACT-NACK classification deadline when in that mode, and
// rolls PARA's per-activate RowHammer coin flip.
func (c *Controller) onActivate(req *request.Request, clk uint64) {
	req.IsFirstCommand = false
	gb := c.globalBank(req.AddrVec)

	if c.SMDMode == ModeActNack {
		deadline := clk + c.ActToNack
		c.nackDeadlines[deadline] = append(c.nackDeadlines[deadline], &nackEntry{
			req:        req,
			addr:       req.AddrVec,
			globalBank: gb,
			saID:       uint32(req.AddrVec[device.Subarray]),
			queue:      c.queueFor(req),
		})
	}

	if c.Para != nil && c.Para.Observe() {
		c.enqueueNeighborRefresh(req.AddrVec)
	}

	if c.RowHammerObserve != nil {
		c.RowHammerObserve(c, req.AddrVec)
	}
}

// queueFor returns the CPU-facing queue req belongs to, for full-NACK
// resend.
func (c *Controller) queueFor(req *request.Request) *request.Queue {
	if req.Type == request.Write {
		return c.Queues.WriteQ
	}
	return c.Queues.ReadQ
}

func (c *Controller) enqueueNeighborRefresh(addr device.AddrVec) {
	if c.NeighborRefresh != nil {
		c.NeighborRefresh(c, addr)
	}
}

// completeAccess finishes a request once its terminal command has
// issued: a read's data returns read_latency cycles later; a write
// completes immediately; an activate-only refresh has nothing left to
// report and completes silently.
func (c *Controller) completeAccess(req *request.Request, decoded device.Command, clk uint64) {
	switch req.Type {
	case request.Read, request.Prefetch:
		req.DepartClk = clk + c.ReadLatency
		c.Pending.Push(req, req.DepartClk)
	case request.ParaRefresh, request.RaidrRefresh, request.GrapheneRefresh:
		// no callback: these requests exist purely to restore charge.
	default:
		req.Complete()
	}
}

// gateAct applies the configured SMD mode's pre-activate check
// (spec.md §4.3): RSQ mode consults the Tracker (OK proceeds, Locked or
// Stale both defer -- a stale bank is resolved by the opportunistic
// query path, not here); Alert mode defers while the rank awaits an
// RSQ response; ACT-NACK mode never blocks (it corrects after the
// fact).
func (c *Controller) gateAct(addr device.AddrVec, clk uint64) bool {
	switch c.SMDMode {
	case ModeRSQ:
		gb := c.globalBank(addr)
		return c.Tracker.CanOpen(gb, uint32(addr[device.Subarray]), int64(clk)) == smd.CanOpenOK
	case ModeAlert:
		return !c.Alerts.IsAwaitingResponse(addr[device.Rank])
	default:
		return true
	}
}

// opportunisticRSQ issues a rank-wide REF_STATUS_QUERY when the
// scheduler found nothing else to do this cycle and RSQ mode has a
// stale bank worth polling (spec.md §4.2 step 7's fallback).
func (c *Controller) opportunisticRSQ(clk uint64) {
	banks := c.banksWithQueuedWork()
	gb := c.Tracker.FindBankToQuery(banks, int64(clk))
	if gb < 0 {
		return
	}
	rank := gb / c.Tree.Spec.Org.BanksPerRank()
	c.issueRankQuery(rank, clk)
}

// banksWithQueuedWork collects the distinct global banks referenced by
// readq/writeq/actq requests, the candidate set FindBankToQuery chooses
// from.
func (c *Controller) banksWithQueuedWork() []int {
	seen := make(map[int]bool)
	var banks []int
	add := func(q *request.Queue) {
		for _, req := range q.All() {
			gb := c.globalBank(req.AddrVec)
			if !seen[gb] {
				seen[gb] = true
				banks = append(banks, gb)
			}
		}
	}
	add(c.Queues.ReadQ)
	add(c.Queues.WriteQ)
	add(c.Queues.ActQ)
	return banks
}

// issueRankQuery issues REF_STATUS_QUERY against rankID if the bus
// accepts it this cycle, marking every bank of the rank in-flight and
// scheduling its Reports snapshot to retire read_latency cycles later.
func (c *Controller) issueRankQuery(rankID int, clk uint64) {
	var addr device.AddrVec
	addr[device.Rank] = rankID
	ready, _ := c.Tree.Check(device.RefStatusQuery, addr, clk)
	if !ready {
		return
	}
	c.Tree.Update(device.RefStatusQuery, addr, clk)
	c.emitEnergy(device.RefStatusQuery, addr)

	banksPerRank := c.Tree.Spec.Org.BanksPerRank()
	base := rankID * banksPerRank
	var reports []request.RSQReport
	for b := 0; b < banksPerRank; b++ {
		gb := base + b
		// CommunicateLockedSAs already aggregates every chip's locked
		// subarray for this bank; Tracker.CanOpen only ever asks "is
		// saID busy on any chip", so recording the aggregate under a
		// single slot (chip 0) is sufficient and avoids re-deriving a
		// true per-chip split the chip-side Lock type doesn't expose.
		locked := c.Locks.CommunicateLockedSAs(gb, int64(clk), c.TrackerTimeout)
		reports = append(reports, request.RSQReport{ChipID: 0, GlobalBank: gb, BusySAs: locked})
		if c.Tracker != nil {
			c.Tracker.MarkInflight(gb)
		}
	}

	req := request.New(0, addr, request.RefStatusQuery, -1, clk, nil)
	req.Reports = reports
	c.Pending.Push(req, clk+c.ReadLatency)
}
