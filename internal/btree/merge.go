package btree

import "go.boson/internal/storage"

// merge folds right into left and drops separator sepIdx from parent.
// Inner nodes absorb the separator, leaves only relink the sibling chain.
func (bt *BTree) merge(sc *scope, parent *node, sepIdx int, left, right *node) error {
	if left.isLeaf() {
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)

		left.right = right.right
		if right.right != storage.NotFound {
			next, err := sc.load(right.right)
			if err != nil {
				return err
			}
			next.left = left.offset
			next.markDirty()
		}
	} else {
		left.keys = append(left.keys, parent.keys[sepIdx])
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)

		for _, child := range right.children {
			if err := bt.adopt(sc, left, child); err != nil {
				return err
			}
		}
	}

	left.markDirty()
	parent.removeSeparator(sepIdx)

	bt.log.Debugf("merged node %d into %d", right.offset, left.offset)
	return sc.free(right)
}
