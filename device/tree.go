package device

// Tree is one DeviceTree instance: the recursive Channel node and every
// descendant, built once from a Spec and mutated for the life of the
// simulation (spec.md §3 "Device nodes are created at boot ... and
// never destroyed").
type Tree struct {
	Spec *Spec
	Root *Node
}

// NewTree builds a complete tree for spec: one Channel node whose
// children are Rank nodes, whose children are BankGroup nodes, and so on
// down to Subarray. Row and Column are not materialized as nodes (see
// Node doc).
func NewTree(spec *Spec) *Tree {
	root := buildLevel(spec, Channel, 0)
	return &Tree{Spec: spec, Root: root}
}

func buildLevel(spec *Spec, level Level, childID int) *Node {
	n := newNode(level, childID)
	n.State = spec.StartState[level]
	if level == Subarray {
		return n
	}
	count := childCount(spec.Org, level+1)
	n.Children = make([]*Node, count)
	for i := 0; i < count; i++ {
		n.Children[i] = buildLevel(spec, level+1, i)
	}
	return n
}

// childCount returns how many nodes exist at level within one parent at
// level-1.
func childCount(org Org, level Level) int {
	return org.Count[level]
}

// Walk returns the path of nodes from Root down to (and including) the
// node addressed by addr at target level, inclusive of Root.
func (t *Tree) Walk(addr AddrVec, target Level) []*Node {
	path := make([]*Node, 0, int(target)+1)
	n := t.Root
	path = append(path, n)
	for lvl := Channel + 1; lvl <= target; lvl++ {
		n = n.Children[addr[lvl]]
		path = append(path, n)
	}
	return path
}

// NodeAt returns the single node addressed by addr at level.
func (t *Tree) NodeAt(addr AddrVec, level Level) *Node {
	path := t.Walk(addr, level)
	return path[len(path)-1]
}

// Siblings returns every other child of node's parent, given the path
// leading to node (path[len-2] is the parent, or nil if node is Root).
func siblingsOf(path []*Node) []*Node {
	if len(path) < 2 {
		return nil
	}
	parent := path[len(path)-2]
	me := path[len(path)-1]
	out := make([]*Node, 0, len(parent.Children)-1)
	for _, c := range parent.Children {
		if c != me {
			out = append(out, c)
		}
	}
	return out
}
