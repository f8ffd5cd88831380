package btree

import "fmt"

// rebalance restores occupancy from n upwards. An underflowing node first
// borrows from its left sibling, then from its right one, and merges with
// a sibling when neither can lend. A merge removes a separator from the
// parent so the walk continues there.
func (bt *BTree) rebalance(sc *scope, n *node) error {
	for {
		if n.offset == bt.root {
			return bt.shrinkRoot(sc, n)
		}

		if len(n.keys) >= bt.minDegree {
			return nil
		}

		parent, idx, err := bt.parentOf(sc, n)
		if err != nil {
			return err
		}

		var left, right *node

		if idx > 0 {
			if left, err = sc.load(parent.children[idx-1]); err != nil {
				return err
			}
			if bt.canLend(left) {
				return bt.borrowFromLeft(sc, parent, idx, left, n)
			}
		}

		if idx < len(parent.children)-1 {
			if right, err = sc.load(parent.children[idx+1]); err != nil {
				return err
			}
			if bt.canLend(right) {
				return bt.borrowFromRight(sc, parent, idx, n, right)
			}
		}

		switch {
		case left != nil:
			err = bt.merge(sc, parent, idx-1, left, n)
		case right != nil:
			err = bt.merge(sc, parent, idx, n, right)
		default:
			err = fmt.Errorf("%w: node %d has no siblings", ErrCorruptTree, n.offset)
		}
		if err != nil {
			return err
		}

		n = parent
	}
}

func (bt *BTree) canLend(sib *node) bool {
	return len(sib.keys) > bt.minDegree
}
