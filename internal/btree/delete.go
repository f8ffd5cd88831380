package btree

import (
	"fmt"

	"go.boson/internal/storage"
)

// Delete removes key and frees its value record
func (bt *BTree) Delete(key uint64) (err error) {
	if err := bt.ensureWritable(); err != nil {
		return err
	}

	sc := bt.newScope()
	defer func() { err = sc.close(err) }()

	leaf, err := bt.descend(sc, key)
	if err != nil {
		return err
	}

	i, found := leaf.search(key)
	if !found {
		return fmt.Errorf("delete %d: %w", key, ErrKeyNotFound)
	}

	if err := bt.seekValue(leaf.children[i]); err != nil {
		return err
	}

	leaf.removeLeafEntry(i)
	bt.count--
	bt.metaDirty = true

	if _, err := bt.store.RemoveRecord(); err != nil {
		return err
	}

	return bt.rebalance(sc, leaf)
}

// shrinkRoot replaces an inner root left without separators by its only child
func (bt *BTree) shrinkRoot(sc *scope, root *node) error {
	if root.isLeaf() || len(root.keys) > 0 {
		return nil
	}

	child, err := sc.load(root.children[0])
	if err != nil {
		return err
	}

	child.parent = storage.NotFound
	child.markDirty()

	bt.root = child.offset
	bt.metaDirty = true

	bt.log.Debugf("root %d collapsed into %d", root.offset, child.offset)
	return sc.free(root)
}
