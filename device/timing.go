package device

// childIDFor returns the child-index argument passed to prereq/lambda
// functions at lvl: the target subarray id at Bank level, the target row
// id at Subarray level, and 0 (unused) elsewhere.
func childIDFor(lvl Level, addr AddrVec) int {
	switch lvl {
	case Bank:
		return addr[Subarray]
	case Subarray:
		return addr[Row]
	default:
		return 0
	}
}

// Check implements spec.md §4.1's check(cmd, addr, clk) contract: walk
// from Channel down to Scope[cmd], computing at each level
// max(0, earliest_allowed[cmd]-clk); cmd is ready iff zero at every
// level. The returned wait is the largest remaining delay across the
// path (0 when ready).
func (t *Tree) Check(cmd Command, addr AddrVec, clk uint64) (ready bool, wait uint64) {
	scopeLevel := t.Spec.Scope[cmd]
	path := t.Walk(addr, scopeLevel)
	for lvl := Channel; lvl <= scopeLevel; lvl++ {
		node := path[lvl]
		earliest := node.EarliestAllowed(cmd)
		if earliest > clk {
			if d := earliest - clk; d > wait {
				wait = d
			}
		}
	}
	return wait == 0, wait
}

// Decode implements spec.md §4.1's decode(cmd, addr) contract:
// recursively substitute cmd <- prereq[level][cmd](node, cmd, childID)
// from Channel down until a fixed point is reached — returns the
// concrete command that will actually be issued.
func (t *Tree) Decode(cmd Command, addr AddrVec) Command {
	spec := t.Spec
	// Bounded by NumTreeLevels+1: every substitution either terminates
	// (no prereq registered for the new (level,cmd) pair) or moves to a
	// command with a shallower scope, so the loop cannot cycle forever
	// in a well-formed Spec.
	for iter := 0; iter <= NumTreeLevels+1; iter++ {
		scopeLevel := spec.Scope[cmd]
		path := t.Walk(addr, scopeLevel)
		changed := false
		for lvl := Channel; lvl <= scopeLevel; lvl++ {
			fn := spec.Prereq[lvl][cmd]
			if fn == nil {
				continue
			}
			next := fn(path[lvl], cmd, childIDFor(lvl, addr))
			if next == NOP {
				return NOP
			}
			if next != cmd {
				cmd = next
				changed = true
				break
			}
		}
		if !changed {
			return cmd
		}
	}
	return cmd
}

// Update implements spec.md §4.1's update(cmd, addr, clk) contract: push
// new history entries per Timing[level][cmd], then run Lambda[level][cmd]
// down to Scope[cmd]. Callers must only invoke Update after Check
// returned ready — violating this is a fatal bug (spec.md §4.1 Failure
// semantics), enforced by the controller, not by this method, so that
// Update stays a pure state-transition primitive.
func (t *Tree) Update(cmd Command, addr AddrVec, clk uint64) {
	scopeLevel := t.Spec.Scope[cmd]
	path := t.Walk(addr, scopeLevel)

	for lvl := Channel; lvl <= scopeLevel; lvl++ {
		node := path[lvl]
		for _, e := range t.Spec.Timing[lvl][cmd] {
			if e.Sibling {
				for _, sib := range siblingsOf(path[:lvl+1]) {
					sib.historyFor(e.NextCmd).apply(clk, e.Dist, e.Val)
				}
				continue
			}
			node.historyFor(e.NextCmd).apply(clk, e.Dist, e.Val)
		}
	}

	for lvl := Channel; lvl <= scopeLevel; lvl++ {
		if fn := t.Spec.Lambda[lvl][cmd]; fn != nil {
			fn(path[lvl], childIDFor(lvl, addr))
		}
	}
}

// IsRowHit reports whether cmd at addr would be a row-buffer hit,
// consulting Spec.RowHit at whichever level registers a predicate for
// cmd (stats only — never affects timing or state).
func (t *Tree) IsRowHit(cmd Command, addr AddrVec) bool {
	for lvl := Channel; lvl < Level(NumTreeLevels); lvl++ {
		if fn := t.Spec.RowHit[lvl][cmd]; fn != nil {
			node := t.NodeAt(addr, lvl)
			return fn(node, cmd, childIDFor(lvl, addr))
		}
	}
	return false
}

// IsRowOpen reports whether the bank addressed by addr currently has any
// row open, per Spec.RowOpen.
func (t *Tree) IsRowOpen(cmd Command, addr AddrVec) bool {
	for lvl := Channel; lvl < Level(NumTreeLevels); lvl++ {
		if fn := t.Spec.RowOpen[lvl][cmd]; fn != nil {
			node := t.NodeAt(addr, lvl)
			return fn(node, cmd, childIDFor(lvl, addr))
		}
	}
	return false
}
