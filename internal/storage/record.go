package storage

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
)

const (
	RecordHeaderSize = 40

	// Capacities are rounded up to this unit so values can grow in place
	AllocationUnit = 32

	MaxRecordLength = math.MaxUint32 - AllocationUnit

	// Reserved type tag for free list entries
	TypeFree uint32 = math.MaxUint32
)

// RecordHeader layout (40 bytes, little endian)
//
//	0  next      u64
//	8  previous  u64
//	16 recordID  u64
//	24 capacity  u32
//	28 length    u32
//	32 checksum  u32
//	36 type      u32
type RecordHeader struct {
	Next     uint64
	Previous uint64
	ID       uint64
	Capacity uint32
	Length   uint32
	Checksum uint32
	Type     uint32
}

func (rh *RecordHeader) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:], rh.Next)
	binary.LittleEndian.PutUint64(buf[8:], rh.Previous)
	binary.LittleEndian.PutUint64(buf[16:], rh.ID)
	binary.LittleEndian.PutUint32(buf[24:], rh.Capacity)
	binary.LittleEndian.PutUint32(buf[28:], rh.Length)
	binary.LittleEndian.PutUint32(buf[32:], rh.Checksum)
	binary.LittleEndian.PutUint32(buf[36:], rh.Type)
}

func decodeRecordHeader(buf []byte) RecordHeader {
	return RecordHeader{
		Next:     binary.LittleEndian.Uint64(buf[0:]),
		Previous: binary.LittleEndian.Uint64(buf[8:]),
		ID:       binary.LittleEndian.Uint64(buf[16:]),
		Capacity: binary.LittleEndian.Uint32(buf[24:]),
		Length:   binary.LittleEndian.Uint32(buf[28:]),
		Checksum: binary.LittleEndian.Uint32(buf[32:]),
		Type:     binary.LittleEndian.Uint32(buf[36:]),
	}
}

// Size of the record on disk, header included
func (rh *RecordHeader) span() uint64 {
	return RecordHeaderSize + uint64(rh.Capacity)
}

func (rh *RecordHeader) IsFree() bool {
	return rh.Type == TypeFree
}

func checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

func checkLength(length int) error {
	if length > MaxRecordLength {
		return fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, length)
	}
	return nil
}

func allocationSize(length int) uint32 {
	units := (length + AllocationUnit - 1) / AllocationUnit
	if units == 0 {
		units = 1
	}
	return uint32(units * AllocationUnit)
}
