package device

// DefaultDDR4_3200 returns the SpeedParams for the DDR4-3200 speed bin
// used throughout the original source's speed_table (spec.md §6
// `speed` option), expressed directly in cycles at tCK=0.625ns.
func DefaultDDR4_3200() SpeedParams {
	return SpeedParams{
		TCK:         0.625,
		NBL:         4,
		NCCDS:       4,
		NCCDL:       10,
		NRCD:        22,
		NRAS:        56,
		NRP:         22,
		NRC:         78,
		NCWL:        16,
		NRTP:        12,
		NWTRS:       4,
		NWTRL:       12,
		NWR:         24,
		NRRDS:       8,
		NRRDL:       10,
		NFAW:        40,
		NRFC:        560,
		NREFI:       9360,
		NRTRS:       2,
		NNACKResend: 100,
		NACTtoNACK:  4,
	}
}

// NewDDR4Spec builds a Spec for a DDR4-like standard at the given
// organization and speed, wiring the prereq/lambda/predicate tables and
// compiling the timing table from speed. REF stays rank-scoped either
// way (per-bank refresh is the separate, bank-scoped REFPB command);
// perBankRefresh halves NRFC and divides NREFI by banks-per-rank.
func NewDDR4Spec(org Org, speed SpeedParams, perBankRefresh bool) *Spec {
	s := &Spec{
		Name:           "DDR4",
		Org:            org,
		Speed:          speed,
		PerBankRefresh: perBankRefresh,
	}
	s.StartState[Channel] = NoState
	s.StartState[Rank] = PowerUp
	s.StartState[BankGroup] = NoState
	s.StartState[Bank] = Closed
	s.StartState[Subarray] = Closed

	for i := range s.Scope {
		s.Scope[i] = Bank
	}
	// ACT's visible effect reaches the Subarray (the row it opens), so
	// Update must cascade lambdas that far even though the command is
	// issued "at" the bank.
	s.Scope[ACT] = Subarray
	s.Scope[PRE] = Bank
	s.Scope[PREA] = Rank
	s.Scope[RD] = Subarray
	s.Scope[WR] = Subarray
	s.Scope[RDA] = Subarray
	s.Scope[WRA] = Subarray
	s.Scope[REF] = Rank
	s.Scope[REFPB] = Bank
	s.Scope[PreRSQ] = Bank
	s.Scope[RefStatusQuery] = Rank
	s.Scope[ActNack] = Bank
	s.Scope[ActPartialNack] = Bank

	installPrereq(s)
	installLambda(s)
	installPredicates(s)
	buildTiming(s)

	return s
}

// buildTiming compiles spec.md §4.1's timing table from SpeedParams,
// grounded on DDR4::init_timing in the original source but simplified to
// the constraints that matter for the invariants in spec.md §8: tRC
// (ACT-PRE-ACT spacing), tFAW (4-activate window), CAS-CAS/CAS-bus
// turnaround, and refresh spacing.
func buildTiming(s *Spec) {
	sp := s.Speed

	// Bank-level: same-bank sequencing.
	bt := &s.Timing[Bank]
	bt[ACT] = append(bt[ACT], TimingEntry{NextCmd: PRE, Val: sp.NRAS})
	bt[ACT] = append(bt[ACT], TimingEntry{NextCmd: RD, Val: sp.NRCD})
	bt[ACT] = append(bt[ACT], TimingEntry{NextCmd: WR, Val: sp.NRCD})
	bt[ACT] = append(bt[ACT], TimingEntry{NextCmd: ACT, Val: sp.NRC})
	bt[PRE] = append(bt[PRE], TimingEntry{NextCmd: ACT, Val: sp.NRP})
	bt[RD] = append(bt[RD], TimingEntry{NextCmd: PRE, Val: sp.NRTP})
	bt[WR] = append(bt[WR], TimingEntry{NextCmd: PRE, Val: sp.NCWL + sp.NBL/2 + sp.NWR})
	bt[RDA] = append(bt[RDA], TimingEntry{NextCmd: ACT, Val: sp.NRTP + sp.NRP})
	bt[WRA] = append(bt[WRA], TimingEntry{NextCmd: ACT, Val: sp.NCWL + sp.NBL/2 + sp.NWR + sp.NRP})
	bt[ActNack] = append(bt[ActNack], TimingEntry{NextCmd: ACT, Val: sp.NNACKResend})

	// Rank-level: cross-bank-group sequencing and bus turnaround.
	rt := &s.Timing[Rank]
	rt[RD] = append(rt[RD], TimingEntry{NextCmd: RD, Val: sp.NCCDS})
	rt[WR] = append(rt[WR], TimingEntry{NextCmd: WR, Val: sp.NCCDS})
	rt[WR] = append(rt[WR], TimingEntry{NextCmd: RD, Val: sp.NCWL + sp.NBL/2 + sp.NWTRS})
	rt[RD] = append(rt[RD], TimingEntry{NextCmd: WR, Val: sp.NBL/2 + sp.NRTRS})
	rt[ACT] = append(rt[ACT], TimingEntry{NextCmd: ACT, Dist: 4, Val: sp.NFAW})
	rt[PREA] = append(rt[PREA], TimingEntry{NextCmd: ACT, Val: sp.NRP})
	rt[PREA] = append(rt[PREA], TimingEntry{NextCmd: REF, Val: sp.NRP})
	rt[REF] = append(rt[REF], TimingEntry{NextCmd: ACT, Val: s.EffectiveNRFC()})
	rt[REF] = append(rt[REF], TimingEntry{NextCmd: PRE, Val: s.EffectiveNRFC()})

	// Bank-group-level: same-BG (stricter, nCCD_L/nRRD_L) vs. cross-BG
	// (relaxed, applied to siblings with nCCD_S/nRRD_S) sequencing.
	gt := &s.Timing[BankGroup]
	gt[RD] = append(gt[RD], TimingEntry{NextCmd: RD, Val: sp.NCCDL})
	gt[WR] = append(gt[WR], TimingEntry{NextCmd: WR, Val: sp.NCCDL})
	gt[WR] = append(gt[WR], TimingEntry{NextCmd: RD, Val: sp.NCWL + sp.NBL/2 + sp.NWTRL})
	gt[ACT] = append(gt[ACT], TimingEntry{NextCmd: ACT, Val: sp.NRRDL})
	gt[ACT] = append(gt[ACT], TimingEntry{NextCmd: ACT, Val: sp.NRRDS, Sibling: true})

	// Bank-level: per-bank refresh (mirrors REF but scoped narrower).
	bt[REFPB] = append(bt[REFPB], TimingEntry{NextCmd: ACT, Val: s.EffectiveNRFC()})
}
