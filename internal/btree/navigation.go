package btree

import "fmt"

// Single function to traverse the tree and return the leaf owning key
func (bt *BTree) descend(sc *scope, key uint64) (*node, error) {
	return bt.descendBy(sc, func(n *node) int {
		return n.childIndex(key)
	})
}

// descendEdge follows the first or last child down to a leaf
func (bt *BTree) descendEdge(sc *scope, last bool) (*node, error) {
	return bt.descendBy(sc, func(n *node) int {
		if last {
			return len(n.children) - 1
		}
		return 0
	})
}

func (bt *BTree) descendBy(sc *scope, pick func(*node) int) (*node, error) {
	off := bt.root

	for depth := 0; ; depth++ {
		if depth > maxHeight {
			return nil, fmt.Errorf("%w: tree deeper than %d levels", ErrCorruptTree, maxHeight)
		}

		n, err := sc.load(off)
		if err != nil {
			return nil, err
		}

		if n.isLeaf() {
			return n, nil
		}

		if len(n.children) == 0 {
			return nil, fmt.Errorf("%w: inner node %d has no children", ErrCorruptTree, n.offset)
		}
		off = n.children[pick(n)]
	}
}

// parentOf loads the parent of n together with n's position in it
func (bt *BTree) parentOf(sc *scope, n *node) (*node, int, error) {
	parent, err := sc.load(n.parent)
	if err != nil {
		return nil, -1, err
	}
	if parent.isLeaf() {
		return nil, -1, fmt.Errorf("%w: parent %d of node %d is a leaf", ErrCorruptTree, parent.offset, n.offset)
	}

	idx, err := parent.childPosition(n.offset)
	if err != nil {
		return nil, -1, err
	}
	return parent, idx, nil
}
