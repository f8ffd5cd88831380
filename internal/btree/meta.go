package btree

import (
	"encoding/binary"
	"fmt"
)

// "TREE" read as a little endian uint32
const metaMagic uint32 = 0x45455254

const metaSize = 40

// meta is the payload of the first live record of an index file. It makes
// the root rediscoverable after reopen.
//
//	0  magic     u32
//	4  maxDegree u32
//	8  minDegree u32
//	12 reserved  u32
//	16 root      u64
//	24 count     u64
//	32 reserved  u64
type meta struct {
	maxDegree uint32
	minDegree uint32
	root      uint64
	count     uint64
}

func (m *meta) encode() []byte {
	buf := make([]byte, metaSize)
	binary.LittleEndian.PutUint32(buf[0:], metaMagic)
	binary.LittleEndian.PutUint32(buf[4:], m.maxDegree)
	binary.LittleEndian.PutUint32(buf[8:], m.minDegree)
	binary.LittleEndian.PutUint64(buf[16:], m.root)
	binary.LittleEndian.PutUint64(buf[24:], m.count)
	return buf
}

func decodeMeta(buf []byte) (meta, error) {
	if len(buf) != metaSize {
		return meta{}, fmt.Errorf("%w: meta record has %d bytes", ErrCorruptTree, len(buf))
	}
	if magic := binary.LittleEndian.Uint32(buf[0:]); magic != metaMagic {
		return meta{}, fmt.Errorf("%w: bad meta magic %#x", ErrCorruptTree, magic)
	}

	return meta{
		maxDegree: binary.LittleEndian.Uint32(buf[4:]),
		minDegree: binary.LittleEndian.Uint32(buf[8:]),
		root:      binary.LittleEndian.Uint64(buf[16:]),
		count:     binary.LittleEndian.Uint64(buf[24:]),
	}, nil
}
