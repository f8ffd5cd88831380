package btree

import (
	"fmt"

	"go.boson/internal/logger"
	"go.boson/internal/storage"
)

const (
	DefaultMaxDegree = 64
	DefaultMinDegree = 32

	maxDegreeLimit = 1 << 16

	// Deepest tree a descent will follow before declaring a cycle
	maxHeight = 64
)

type Options struct {
	// Keys per node bounds, zero picks the defaults. An existing index
	// keeps the degrees it was created with.
	MaxDegree int
	MinDegree int
	Logger    *logger.Logger
}

// B+Tree - each node is a record, leaves reference value records

type BTree struct {
	store *storage.RecordStore

	metaOffset uint64
	root       uint64
	count      uint64
	metaDirty  bool

	maxDegree int
	minDegree int

	log *logger.Logger
}

func validateDegrees(maxDegree, minDegree int) error {
	if maxDegree < 2 || maxDegree > maxDegreeLimit {
		return fmt.Errorf("%w: max degree %d", ErrInvalidDegree, maxDegree)
	}
	if minDegree < 1 || minDegree > maxDegree/2 {
		return fmt.Errorf("%w: min degree %d with max degree %d", ErrInvalidDegree, minDegree, maxDegree)
	}
	return nil
}

// Open the index kept in store. An empty store gets a meta record and an
// empty root leaf.
func Open(store *storage.RecordStore, opts Options) (*BTree, error) {
	maxDegree, minDegree := opts.MaxDegree, opts.MinDegree
	if maxDegree == 0 {
		maxDegree = DefaultMaxDegree
	}
	if minDegree == 0 {
		minDegree = maxDegree / 2
	}

	bt := &BTree{
		store:      store,
		metaOffset: storage.NotFound,
		root:       storage.NotFound,
		log:        logger.OrDiscard(opts.Logger).With("btree"),
	}

	if store.TotalRecords() == 0 {
		if err := validateDegrees(maxDegree, minDegree); err != nil {
			return nil, err
		}
		bt.maxDegree, bt.minDegree = maxDegree, minDegree
		if err := bt.create(); err != nil {
			return nil, err
		}
		return bt, nil
	}

	if err := bt.loadMeta(); err != nil {
		return nil, err
	}

	if opts.MaxDegree != 0 && (opts.MaxDegree != bt.maxDegree || minDegree != bt.minDegree) {
		bt.log.Warnf("index was created with degrees %d/%d, ignoring %d/%d", bt.maxDegree, bt.minDegree, opts.MaxDegree, minDegree)
	}

	return bt, nil
}

func (bt *BTree) create() error {
	if bt.store.ReadOnly() {
		return storage.ErrReadOnly
	}

	m := meta{
		maxDegree: uint32(bt.maxDegree),
		minDegree: uint32(bt.minDegree),
		root:      storage.NotFound,
	}

	off, err := bt.store.CreateRecord(m.encode())
	if err != nil {
		return err
	}
	if err := bt.store.SetType(TypeMeta); err != nil {
		return err
	}
	bt.metaOffset = off

	sc := bt.newScope()
	root, err := sc.create(kindLeaf)
	if err != nil {
		return sc.close(err)
	}

	bt.root = root.offset
	bt.metaDirty = true

	bt.log.Infof("created index with degrees %d/%d", bt.maxDegree, bt.minDegree)
	return sc.close(nil)
}

func (bt *BTree) loadMeta() error {
	if _, err := bt.store.First(); err != nil {
		return err
	}
	if bt.store.Type() != TypeMeta {
		return fmt.Errorf("%w: first record has type %d", ErrCorruptTree, bt.store.Type())
	}

	data, err := bt.store.Data()
	if err != nil {
		return err
	}

	m, err := decodeMeta(data)
	if err != nil {
		return err
	}

	if err := validateDegrees(int(m.maxDegree), int(m.minDegree)); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptTree, err)
	}

	bt.metaOffset = bt.store.Cursor()
	bt.maxDegree = int(m.maxDegree)
	bt.minDegree = int(m.minDegree)
	bt.root = m.root
	bt.count = m.count

	if bt.root == storage.NotFound {
		return fmt.Errorf("%w: index has no root", ErrCorruptTree)
	}
	return nil
}

func (bt *BTree) saveMeta() error {
	m := meta{
		maxDegree: uint32(bt.maxDegree),
		minDegree: uint32(bt.minDegree),
		root:      bt.root,
		count:     bt.count,
	}

	if err := bt.store.SetCursor(bt.metaOffset); err != nil {
		return err
	}
	off, err := bt.store.SetData(m.encode())
	if err != nil {
		return err
	}
	if off != bt.metaOffset {
		return fmt.Errorf("%w: meta record moved to %d", ErrCorruptTree, off)
	}

	bt.metaDirty = false
	return nil
}

func (bt *BTree) ensureWritable() error {
	if bt.store.ReadOnly() {
		return storage.ErrReadOnly
	}
	return nil
}

// Len returns the number of stored keys
func (bt *BTree) Len() uint64 {
	return bt.count
}

func (bt *BTree) Root() uint64 {
	return bt.root
}

func (bt *BTree) Degrees() (maxDegree, minDegree int) {
	return bt.maxDegree, bt.minDegree
}

// Height counts the levels from the root down to the leaves
func (bt *BTree) Height() (int, error) {
	height := 0
	off := bt.root

	for {
		n, err := bt.loadNode(off)
		if err != nil {
			return 0, err
		}
		height++

		if n.isLeaf() {
			return height, nil
		}
		if height > maxHeight {
			return 0, fmt.Errorf("%w: tree deeper than %d levels", ErrCorruptTree, maxHeight)
		}
		off = n.children[0]
	}
}

func (bt *BTree) Get(key uint64) ([]byte, bool, error) {
	sc := bt.newScope()

	leaf, err := bt.descend(sc, key)
	if err != nil {
		return nil, false, err
	}

	i, found := leaf.search(key)
	if !found {
		return nil, false, nil
	}

	val, err := bt.readValue(leaf.children[i])
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Update overwrites the value stored for an existing key
func (bt *BTree) Update(key uint64, value []byte) (err error) {
	if err := bt.ensureWritable(); err != nil {
		return err
	}
	if len(value) > storage.MaxRecordLength {
		return fmt.Errorf("update %d: %w", key, storage.ErrRecordTooLarge)
	}

	sc := bt.newScope()
	defer func() { err = sc.close(err) }()

	leaf, err := bt.descend(sc, key)
	if err != nil {
		return err
	}

	i, found := leaf.search(key)
	if !found {
		return fmt.Errorf("update %d: %w", key, ErrKeyNotFound)
	}

	if err := bt.seekValue(leaf.children[i]); err != nil {
		return err
	}

	off, err := bt.store.SetData(value)
	if err != nil {
		return err
	}

	if off != leaf.children[i] {
		bt.log.Debugf("value of key %d moved from %d to %d", key, leaf.children[i], off)
		leaf.children[i] = off
		leaf.markDirty()
	}
	return nil
}

// seekValue positions the store cursor on a value record
func (bt *BTree) seekValue(off uint64) error {
	if err := bt.store.SetCursor(off); err != nil {
		return err
	}
	if bt.store.Type() != TypeValue {
		return fmt.Errorf("%w: record %d is not a value (type %d)", ErrCorruptTree, off, bt.store.Type())
	}
	return nil
}

func (bt *BTree) readValue(off uint64) ([]byte, error) {
	if err := bt.seekValue(off); err != nil {
		return nil, err
	}
	return bt.store.Data()
}
