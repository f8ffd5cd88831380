package btree

import "go.boson/internal/storage"

// split moves the upper half of n into a new right sibling and places the
// separator in the parent, growing a new root when n was the root. The
// parent is returned since it may now overflow.
func (bt *BTree) split(sc *scope, n *node) (*node, error) {
	right, err := sc.create(n.kind)
	if err != nil {
		return nil, err
	}

	var sepKey uint64
	if n.isLeaf() {
		sepKey, err = bt.splitLeaf(sc, n, right)
	} else {
		sepKey, err = bt.splitInner(sc, n, right)
	}
	if err != nil {
		return nil, err
	}

	bt.log.Debugf("split node %d at key %d into %d", n.offset, sepKey, right.offset)

	if n.parent == storage.NotFound {
		return bt.growRoot(sc, sepKey, n, right)
	}

	parent, idx, err := bt.parentOf(sc, n)
	if err != nil {
		return nil, err
	}

	parent.insertSeparator(idx, sepKey, right.offset)
	right.parent = parent.offset
	right.markDirty()

	return parent, nil
}

func (bt *BTree) splitLeaf(sc *scope, left, right *node) (uint64, error) {
	mid := len(left.keys) / 2

	right.keys = append(right.keys, left.keys[mid:]...)
	right.children = append(right.children, left.children[mid:]...)
	left.keys = left.keys[:mid]
	left.children = left.children[:mid]

	// Link the new leaf into the sibling chain
	right.left = left.offset
	right.right = left.right
	if left.right != storage.NotFound {
		next, err := sc.load(left.right)
		if err != nil {
			return 0, err
		}
		next.left = right.offset
		next.markDirty()
	}
	left.right = right.offset

	left.markDirty()
	right.markDirty()

	return right.keys[0], nil
}

func (bt *BTree) splitInner(sc *scope, left, right *node) (uint64, error) {
	mid := len(left.keys) / 2
	sepKey := left.keys[mid]

	right.keys = append(right.keys, left.keys[mid+1:]...)
	right.children = append(right.children, left.children[mid+1:]...)
	left.keys = left.keys[:mid]
	left.children = left.children[:mid+1]

	for _, off := range right.children {
		child, err := sc.load(off)
		if err != nil {
			return 0, err
		}
		child.parent = right.offset
		child.markDirty()
	}

	left.markDirty()
	right.markDirty()

	return sepKey, nil
}

func (bt *BTree) growRoot(sc *scope, sepKey uint64, left, right *node) (*node, error) {
	root, err := sc.create(kindInner)
	if err != nil {
		return nil, err
	}

	root.keys = append(root.keys, sepKey)
	root.children = append(root.children, left.offset, right.offset)
	root.markDirty()

	left.parent = root.offset
	right.parent = root.offset
	left.markDirty()
	right.markDirty()

	bt.root = root.offset
	bt.metaDirty = true

	bt.log.Debugf("new root %d", root.offset)
	return root, nil
}
