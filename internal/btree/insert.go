package btree

import (
	"fmt"

	"go.boson/internal/storage"
)

// Insert adds a new key. An existing key is never overwritten, use Update.
func (bt *BTree) Insert(key uint64, value []byte) (err error) {
	if err := bt.ensureWritable(); err != nil {
		return err
	}
	if len(value) > storage.MaxRecordLength {
		return fmt.Errorf("insert %d: %w", key, storage.ErrRecordTooLarge)
	}

	sc := bt.newScope()
	defer func() { err = sc.close(err) }()

	leaf, err := bt.descend(sc, key)
	if err != nil {
		return err
	}

	i, found := leaf.search(key)
	if found {
		return fmt.Errorf("insert %d: %w", key, ErrKeyExists)
	}

	valueOff, err := bt.createValue(value)
	if err != nil {
		return err
	}

	leaf.insertLeafEntry(i, key, valueOff)
	bt.count++
	bt.metaDirty = true

	return bt.propagateSplit(sc, leaf)
}

func (bt *BTree) createValue(value []byte) (uint64, error) {
	off, err := bt.store.CreateRecord(value)
	if err != nil {
		return storage.NotFound, err
	}
	if err := bt.store.SetType(TypeValue); err != nil {
		return storage.NotFound, err
	}
	return off, nil
}

// propagateSplit splits overflowing nodes from n upwards until one fits
func (bt *BTree) propagateSplit(sc *scope, n *node) error {
	for len(n.keys) > bt.maxDegree {
		parent, err := bt.split(sc, n)
		if err != nil {
			return err
		}
		n = parent
	}
	return nil
}
