package cache

// TreeNode is one slot of the tree arena. Parent and Children are arena
// positions; Parent is -1 for the root.
type TreeNode struct {
	Pointer  RecordPointer
	RecordID int32
	Parent   int
	Children []int
}

// Tree mirrors the container hierarchy of the indexed records.
type Tree struct {
	nodes []TreeNode
	byID  map[int32]int

	// Orphans holds records whose parent id is not indexed, and records
	// other than the root that claim the root sentinel as parent.
	Orphans []int32
	// Unreachable holds indexed records the root never reaches, such as
	// members of a parent cycle or descendants of an orphan.
	Unreachable []int32
}

func buildTree(idx *Index) (*Tree, error) {
	t := &Tree{byID: make(map[int32]int, len(idx.entries))}

	rootPos := -1
	for i, e := range idx.entries {
		if e.ParentID != RootSentinel {
			continue
		}
		if rootPos < 0 {
			rootPos = i
			continue
		}
		t.Orphans = append(t.Orphans, e.RecordID)
	}
	if rootPos < 0 {
		return nil, ErrNoRoot
	}

	root := idx.entries[rootPos]
	t.nodes = append(t.nodes, TreeNode{Pointer: root.Pointer, RecordID: root.RecordID, Parent: -1})
	t.byID[root.RecordID] = 0

	for queue := []int{0}; len(queue) > 0; queue = queue[1:] {
		at := queue[0]
		for _, pos := range idx.children[t.nodes[at].RecordID] {
			e := idx.entries[pos]
			if _, seen := t.byID[e.RecordID]; seen {
				continue
			}
			child := len(t.nodes)
			t.nodes = append(t.nodes, TreeNode{Pointer: e.Pointer, RecordID: e.RecordID, Parent: at})
			t.nodes[at].Children = append(t.nodes[at].Children, child)
			t.byID[e.RecordID] = child
			queue = append(queue, child)
		}
	}

	for _, e := range idx.entries {
		if _, ok := t.byID[e.RecordID]; ok || e.ParentID == RootSentinel {
			continue
		}
		if _, ok := idx.byID[e.ParentID]; !ok {
			t.Orphans = append(t.Orphans, e.RecordID)
		} else {
			t.Unreachable = append(t.Unreachable, e.RecordID)
		}
	}
	return t, nil
}

func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) Root() TreeNode { return t.nodes[0] }

func (t *Tree) Node(pos int) TreeNode { return t.nodes[pos] }

// NodeOf returns the arena position of record id.
func (t *Tree) NodeOf(id int32) (int, bool) {
	pos, ok := t.byID[id]
	return pos, ok
}

// Walk visits nodes depth first from the root, down to maxDepth levels
// below it. A maxDepth of 0 visits the root only.
func (t *Tree) Walk(maxDepth int, fn func(node TreeNode, depth int) error) error {
	return t.walk(0, 0, maxDepth, fn)
}

func (t *Tree) walk(pos, depth, maxDepth int, fn func(TreeNode, int) error) error {
	node := t.nodes[pos]
	if err := fn(node, depth); err != nil {
		return err
	}
	if depth >= maxDepth {
		return nil
	}
	for _, c := range node.Children {
		if err := t.walk(c, depth+1, maxDepth, fn); err != nil {
			return err
		}
	}
	return nil
}

// Descendants returns the record ids below id, excluding id itself, in
// breadth first order.
func (t *Tree) Descendants(id int32) []int32 {
	start, ok := t.byID[id]
	if !ok {
		return nil
	}
	var out []int32
	queue := append([]int(nil), t.nodes[start].Children...)
	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]
		out = append(out, t.nodes[pos].RecordID)
		queue = append(queue, t.nodes[pos].Children...)
	}
	return out
}

// Path returns the record ids from the root down to id, inclusive.
func (t *Tree) Path(id int32) ([]int32, bool) {
	pos, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	var path []int32
	for ; pos >= 0; pos = t.nodes[pos].Parent {
		path = append(path, t.nodes[pos].RecordID)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}
