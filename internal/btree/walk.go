package btree

// NodeInfo is a read only view of one node handed to Walk
type NodeInfo struct {
	Offset uint64
	Depth  int
	Leaf   bool

	Keys     []uint64
	Children []uint64

	Parent uint64
	Left   uint64
	Right  uint64
}

// Walk visits every node level by level, left to right
func (bt *BTree) Walk(fn func(NodeInfo) error) error {
	type item struct {
		off   uint64
		depth int
	}

	queue := []item{{off: bt.root}}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		n, err := bt.loadNode(it.off)
		if err != nil {
			return err
		}

		info := NodeInfo{
			Offset:   n.offset,
			Depth:    it.depth,
			Leaf:     n.isLeaf(),
			Keys:     n.keys,
			Children: n.children,
			Parent:   n.parent,
			Left:     n.left,
			Right:    n.right,
		}
		if err := fn(info); err != nil {
			return err
		}

		if it.depth >= maxHeight {
			continue
		}
		if !n.isLeaf() {
			for _, c := range n.children {
				queue = append(queue, item{off: c, depth: it.depth + 1})
			}
		}
	}

	return nil
}
