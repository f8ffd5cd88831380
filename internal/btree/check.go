package btree

import (
	"fmt"

	"go.boson/internal/storage"
)

type bounds struct {
	lo, hi       uint64
	hasLo, hasHi bool
}

func (b bounds) contains(key uint64) bool {
	return (!b.hasLo || key >= b.lo) && (!b.hasHi || key < b.hi)
}

type checkState struct {
	leafDepth int
	leaves    []*node
	entries   uint64
	visited   map[uint64]struct{}
}

// Check validates the whole tree: key order and separator bounds, node
// occupancy, parent links, uniform leaf depth, the leaf sibling chain,
// the stored entry count and every value record.
func (bt *BTree) Check() error {
	st := &checkState{
		leafDepth: -1,
		visited:   make(map[uint64]struct{}),
	}

	if err := bt.checkNode(bt.root, storage.NotFound, bounds{}, 0, st); err != nil {
		return err
	}

	prev := storage.NotFound
	for i, leaf := range st.leaves {
		if leaf.left != prev {
			return fmt.Errorf("%w: leaf %d links left to %d, expected %d", ErrCorruptTree, leaf.offset, leaf.left, prev)
		}

		next := storage.NotFound
		if i+1 < len(st.leaves) {
			next = st.leaves[i+1].offset
		}
		if leaf.right != next {
			return fmt.Errorf("%w: leaf %d links right to %d, expected %d", ErrCorruptTree, leaf.offset, leaf.right, next)
		}
		prev = leaf.offset
	}

	if st.entries != bt.count {
		return fmt.Errorf("%w: tree holds %d keys, meta says %d", ErrCorruptTree, st.entries, bt.count)
	}

	return nil
}

func (bt *BTree) checkNode(off, parent uint64, b bounds, depth int, st *checkState) error {
	if depth > maxHeight {
		return fmt.Errorf("%w: tree deeper than %d levels", ErrCorruptTree, maxHeight)
	}
	if _, seen := st.visited[off]; seen {
		return fmt.Errorf("%w: node %d reached twice", ErrCorruptTree, off)
	}
	st.visited[off] = struct{}{}

	n, err := bt.loadNode(off)
	if err != nil {
		return err
	}

	if n.parent != parent {
		return fmt.Errorf("%w: node %d has parent %d, expected %d", ErrCorruptTree, off, n.parent, parent)
	}

	if err := bt.checkOccupancy(n); err != nil {
		return err
	}

	for i, key := range n.keys {
		if i > 0 && key <= n.keys[i-1] {
			return fmt.Errorf("%w: node %d keys out of order at %d", ErrCorruptTree, off, i)
		}
		if !b.contains(key) {
			return fmt.Errorf("%w: key %d of node %d outside its separators", ErrCorruptTree, key, off)
		}
	}

	if n.isLeaf() {
		if st.leafDepth == -1 {
			st.leafDepth = depth
		} else if st.leafDepth != depth {
			return fmt.Errorf("%w: leaf %d at depth %d, expected %d", ErrCorruptTree, off, depth, st.leafDepth)
		}

		for _, val := range n.children {
			if _, err := bt.readValue(val); err != nil {
				return err
			}
		}

		st.leaves = append(st.leaves, n)
		st.entries += uint64(len(n.keys))
		return nil
	}

	for i, child := range n.children {
		cb := b
		if i > 0 {
			cb.lo, cb.hasLo = n.keys[i-1], true
		}
		if i < len(n.keys) {
			cb.hi, cb.hasHi = n.keys[i], true
		}

		if err := bt.checkNode(child, off, cb, depth+1, st); err != nil {
			return err
		}
	}

	return nil
}

func (bt *BTree) checkOccupancy(n *node) error {
	count := len(n.keys)

	if count > bt.maxDegree {
		return fmt.Errorf("%w: node %d overflows with %d keys", ErrCorruptTree, n.offset, count)
	}

	if n.offset == bt.root {
		if !n.isLeaf() && count == 0 {
			return fmt.Errorf("%w: inner root %d has no keys", ErrCorruptTree, n.offset)
		}
		return nil
	}

	if count < bt.minDegree {
		return fmt.Errorf("%w: node %d underflows with %d keys", ErrCorruptTree, n.offset, count)
	}
	return nil
}
