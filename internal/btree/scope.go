package btree

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// scope holds every node handle loaded by one tree operation. A node is
// loaded at most once per scope so all changes land on the same handle.
// close writes back whatever is dirty.
type scope struct {
	bt    *BTree
	nodes map[uint64]*node
}

func (bt *BTree) newScope() *scope {
	return &scope{
		bt:    bt,
		nodes: make(map[uint64]*node),
	}
}

func (sc *scope) load(off uint64) (*node, error) {
	if n, ok := sc.nodes[off]; ok {
		return n, nil
	}

	n, err := sc.bt.loadNode(off)
	if err != nil {
		return nil, err
	}

	sc.nodes[off] = n
	return n, nil
}

// create writes a new empty node record and returns its handle
func (sc *scope) create(kind nodeKind) (*node, error) {
	bt := sc.bt
	n := newNode(0, kind)

	buf, err := n.encode(bt.maxDegree)
	if err != nil {
		return nil, err
	}

	off, err := bt.store.CreateRecord(buf)
	if err != nil {
		return nil, err
	}
	if err := bt.store.SetType(kind.recordType()); err != nil {
		return nil, err
	}

	n.offset = off
	sc.nodes[off] = n
	return n, nil
}

// free releases the node record, the handle is never written back
func (sc *scope) free(n *node) error {
	delete(sc.nodes, n.offset)

	if err := sc.bt.store.SetCursor(n.offset); err != nil {
		return err
	}
	if _, err := sc.bt.store.RemoveRecord(); err != nil {
		return err
	}

	sc.bt.log.Debugf("freed node %d", n.offset)
	return nil
}

// close persists every dirty node and the meta record. Write errors are
// joined with opErr so a failing operation still saves what it changed.
func (sc *scope) close(opErr error) error {
	var errs []error

	for _, off := range slices.Sorted(maps.Keys(sc.nodes)) {
		n := sc.nodes[off]
		if !n.dirty {
			continue
		}
		if err := sc.bt.persist(n); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.bt.metaDirty {
		if err := sc.bt.saveMeta(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return opErr
	}
	return errors.Join(append([]error{opErr}, errs...)...)
}

func (bt *BTree) loadNode(off uint64) (*node, error) {
	if err := bt.store.SetCursor(off); err != nil {
		return nil, err
	}

	recordType := bt.store.Type()
	if recordType != TypeLeaf && recordType != TypeInner {
		return nil, fmt.Errorf("%w: record %d is not a node (type %d)", ErrCorruptTree, off, recordType)
	}

	data, err := bt.store.Data()
	if err != nil {
		return nil, err
	}

	n, err := decodeNode(off, data, bt.maxDegree)
	if err != nil {
		return nil, err
	}
	if n.kind.recordType() != recordType {
		return nil, fmt.Errorf("%w: node %d kind does not match its record type", ErrCorruptTree, off)
	}

	return n, nil
}

func (bt *BTree) persist(n *node) error {
	buf, err := n.encode(bt.maxDegree)
	if err != nil {
		return err
	}

	if err := bt.store.SetCursor(n.offset); err != nil {
		return err
	}

	off, err := bt.store.SetData(buf)
	if err != nil {
		return fmt.Errorf("persist node %d: %w", n.offset, err)
	}
	if off != n.offset {
		return fmt.Errorf("%w: node %d moved to %d", ErrCorruptTree, n.offset, off)
	}

	n.dirty = false
	return nil
}
