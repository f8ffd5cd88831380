package btree

import (
	"encoding/binary"
	"fmt"
	"slices"

	"go.boson/internal/storage"
)

// Record type tags used by the index
const (
	TypeMeta uint32 = iota + 1
	TypeLeaf
	TypeInner
	TypeValue
)

type nodeKind uint32

const (
	kindLeaf nodeKind = iota + 1
	kindInner
)

func (k nodeKind) recordType() uint32 {
	if k == kindLeaf {
		return TypeLeaf
	}
	return TypeInner
}

// Node payload layout (little endian)
//
//	0  kind      u32
//	4  keyCount  u32
//	8  parent    u64
//	16 left      u64
//	24 right     u64
//	32 keys      [max+1]u64
//	.. children  [max+2]u64
//
// Both arrays carry one spare slot so an overflowing node can still be
// represented before it is split.
const nodeHeaderSize = 32

func nodeSize(maxDegree int) int {
	return nodeHeaderSize + 8*(maxDegree+1) + 8*(maxDegree+2)
}

// node is the in memory handle of one node record. Leaves keep one value
// record offset per key in children, inner nodes keep len(keys)+1 child
// node offsets. left and right link leaves into the sibling chain.
type node struct {
	offset uint64
	kind   nodeKind

	keys     []uint64
	children []uint64

	parent uint64
	left   uint64
	right  uint64

	dirty bool
}

func newNode(offset uint64, kind nodeKind) *node {
	return &node{
		offset: offset,
		kind:   kind,
		parent: storage.NotFound,
		left:   storage.NotFound,
		right:  storage.NotFound,
	}
}

func (n *node) isLeaf() bool {
	return n.kind == kindLeaf
}

func (n *node) markDirty() {
	n.dirty = true
}

// search finds key by binary search. When the key is absent the index is
// the position it would be inserted at.
func (n *node) search(key uint64) (int, bool) {
	return slices.BinarySearch(n.keys, key)
}

// childIndex is the number of separators <= key, child i holds keys in
// [keys[i-1], keys[i])
func (n *node) childIndex(key uint64) int {
	i, found := slices.BinarySearch(n.keys, key)
	if found {
		i++
	}
	return i
}

// childPosition locates a child offset inside an inner node
func (n *node) childPosition(child uint64) (int, error) {
	for i, c := range n.children {
		if c == child {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: node %d is not a child of %d", ErrCorruptTree, child, n.offset)
}

func (n *node) insertLeafEntry(i int, key, value uint64) {
	n.keys = slices.Insert(n.keys, i, key)
	n.children = slices.Insert(n.children, i, value)
	n.markDirty()
}

func (n *node) removeLeafEntry(i int) (uint64, uint64) {
	key, value := n.keys[i], n.children[i]
	n.keys = slices.Delete(n.keys, i, i+1)
	n.children = slices.Delete(n.children, i, i+1)
	n.markDirty()
	return key, value
}

// insertSeparator places key at i with right as the child following it
func (n *node) insertSeparator(i int, key, right uint64) {
	n.keys = slices.Insert(n.keys, i, key)
	n.children = slices.Insert(n.children, i+1, right)
	n.markDirty()
}

// removeSeparator drops key i together with the child to its right
func (n *node) removeSeparator(i int) {
	n.keys = slices.Delete(n.keys, i, i+1)
	n.children = slices.Delete(n.children, i+1, i+2)
	n.markDirty()
}

func (n *node) encode(maxDegree int) ([]byte, error) {
	if len(n.keys) > maxDegree+1 || len(n.children) > maxDegree+2 {
		return nil, fmt.Errorf("%w: node %d holds %d keys, capacity %d", ErrCorruptTree, n.offset, len(n.keys), maxDegree+1)
	}

	buf := make([]byte, nodeSize(maxDegree))
	binary.LittleEndian.PutUint32(buf[0:], uint32(n.kind))
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(n.keys)))
	binary.LittleEndian.PutUint64(buf[8:], n.parent)
	binary.LittleEndian.PutUint64(buf[16:], n.left)
	binary.LittleEndian.PutUint64(buf[24:], n.right)

	keys := buf[nodeHeaderSize:]
	for i, k := range n.keys {
		binary.LittleEndian.PutUint64(keys[i*8:], k)
	}

	children := buf[nodeHeaderSize+8*(maxDegree+1):]
	for i, c := range n.children {
		binary.LittleEndian.PutUint64(children[i*8:], c)
	}

	return buf, nil
}

func decodeNode(offset uint64, buf []byte, maxDegree int) (*node, error) {
	if len(buf) != nodeSize(maxDegree) {
		return nil, fmt.Errorf("%w: node %d has %d bytes, expected %d", ErrCorruptTree, offset, len(buf), nodeSize(maxDegree))
	}

	n := &node{
		offset: offset,
		kind:   nodeKind(binary.LittleEndian.Uint32(buf[0:])),
		parent: binary.LittleEndian.Uint64(buf[8:]),
		left:   binary.LittleEndian.Uint64(buf[16:]),
		right:  binary.LittleEndian.Uint64(buf[24:]),
	}

	if n.kind != kindLeaf && n.kind != kindInner {
		return nil, fmt.Errorf("%w: node %d has unknown kind %d", ErrCorruptTree, offset, n.kind)
	}

	count := int(binary.LittleEndian.Uint32(buf[4:]))
	if count > maxDegree+1 {
		return nil, fmt.Errorf("%w: node %d claims %d keys", ErrCorruptTree, offset, count)
	}

	childCount := count
	if n.kind == kindInner {
		childCount = count + 1
	}

	n.keys = make([]uint64, count, maxDegree+1)
	keys := buf[nodeHeaderSize:]
	for i := range n.keys {
		n.keys[i] = binary.LittleEndian.Uint64(keys[i*8:])
	}

	n.children = make([]uint64, childCount, maxDegree+2)
	children := buf[nodeHeaderSize+8*(maxDegree+1):]
	for i := range n.children {
		n.children[i] = binary.LittleEndian.Uint64(children[i*8:])
	}

	return n, nil
}
