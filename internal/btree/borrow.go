package btree

// borrowFromLeft moves the last entry of left to the front of n, left is
// the child just before n at position idx of parent
func (bt *BTree) borrowFromLeft(sc *scope, parent *node, idx int, left, n *node) error {
	last := len(left.keys) - 1

	if n.isLeaf() {
		key, val := left.removeLeafEntry(last)
		n.insertLeafEntry(0, key, val)
		parent.keys[idx-1] = key
	} else {
		// Rotate through the parent separator
		child := left.children[last+1]

		n.keys = append([]uint64{parent.keys[idx-1]}, n.keys...)
		n.children = append([]uint64{child}, n.children...)
		parent.keys[idx-1] = left.keys[last]

		left.keys = left.keys[:last]
		left.children = left.children[:last+1]

		if err := bt.adopt(sc, n, child); err != nil {
			return err
		}
	}

	left.markDirty()
	n.markDirty()
	parent.markDirty()

	bt.log.Debugf("node %d borrowed from left sibling %d", n.offset, left.offset)
	return nil
}

// borrowFromRight moves the first entry of right to the end of n
func (bt *BTree) borrowFromRight(sc *scope, parent *node, idx int, n, right *node) error {
	if n.isLeaf() {
		key, val := right.removeLeafEntry(0)
		n.insertLeafEntry(len(n.keys), key, val)
		parent.keys[idx] = right.keys[0]
	} else {
		child := right.children[0]

		n.keys = append(n.keys, parent.keys[idx])
		n.children = append(n.children, child)
		parent.keys[idx] = right.keys[0]

		right.keys = right.keys[1:]
		right.children = right.children[1:]

		if err := bt.adopt(sc, n, child); err != nil {
			return err
		}
	}

	right.markDirty()
	n.markDirty()
	parent.markDirty()

	bt.log.Debugf("node %d borrowed from right sibling %d", n.offset, right.offset)
	return nil
}

// adopt points the parent link of child at n
func (bt *BTree) adopt(sc *scope, n *node, child uint64) error {
	c, err := sc.load(child)
	if err != nil {
		return err
	}
	c.parent = n.offset
	c.markDirty()
	return nil
}
