package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// "BOSONDB\0" read as a little endian uint64
	Signature uint64 = 0x0042444E4F534F42
	Version   uint32 = 0x0001

	HeaderSize = 64

	// Offset sentinel for "no record"
	NotFound uint64 = math.MaxUint64
)

// Header layout (64 bytes, little endian)
//
//	0  signature        u64
//	8  version          u32
//	12 endOfFile        u32
//	16 totalRecords     u64
//	24 firstDataRecord  u64
//	32 lastDataRecord   u64
//	40 totalFreeRecords u64
//	48 firstFreeRecord  u64
//	56 lastFreeRecord   u64
const (
	sigOffset       = 0
	versionOffset   = 8
	eofOffset       = 12
	totalOffset     = 16
	firstDataOffset = 24
	lastDataOffset  = 32
	totalFreeOffset = 40
	firstFreeOffset = 48
	lastFreeOffset  = 56
)

type Header struct {
	Signature uint64
	Version   uint32
	EndOfFile uint32

	TotalRecords    uint64
	FirstDataRecord uint64
	LastDataRecord  uint64

	TotalFreeRecords uint64
	FirstFreeRecord  uint64
	LastFreeRecord   uint64
}

func newHeader() Header {
	return Header{
		Signature:       Signature,
		Version:         Version,
		EndOfFile:       HeaderSize,
		FirstDataRecord: NotFound,
		LastDataRecord:  NotFound,
		FirstFreeRecord: NotFound,
		LastFreeRecord:  NotFound,
	}
}

func (h *Header) encode() []byte {
	buf := make([]byte, HeaderSize)

	binary.LittleEndian.PutUint64(buf[sigOffset:], h.Signature)
	binary.LittleEndian.PutUint32(buf[versionOffset:], h.Version)
	binary.LittleEndian.PutUint32(buf[eofOffset:], h.EndOfFile)

	binary.LittleEndian.PutUint64(buf[totalOffset:], h.TotalRecords)
	binary.LittleEndian.PutUint64(buf[firstDataOffset:], h.FirstDataRecord)
	binary.LittleEndian.PutUint64(buf[lastDataOffset:], h.LastDataRecord)

	binary.LittleEndian.PutUint64(buf[totalFreeOffset:], h.TotalFreeRecords)
	binary.LittleEndian.PutUint64(buf[firstFreeOffset:], h.FirstFreeRecord)
	binary.LittleEndian.PutUint64(buf[lastFreeOffset:], h.LastFreeRecord)

	return buf
}

func decodeHeader(buf []byte) Header {
	return Header{
		Signature: binary.LittleEndian.Uint64(buf[sigOffset:]),
		Version:   binary.LittleEndian.Uint32(buf[versionOffset:]),
		EndOfFile: binary.LittleEndian.Uint32(buf[eofOffset:]),

		TotalRecords:    binary.LittleEndian.Uint64(buf[totalOffset:]),
		FirstDataRecord: binary.LittleEndian.Uint64(buf[firstDataOffset:]),
		LastDataRecord:  binary.LittleEndian.Uint64(buf[lastDataOffset:]),

		TotalFreeRecords: binary.LittleEndian.Uint64(buf[totalFreeOffset:]),
		FirstFreeRecord:  binary.LittleEndian.Uint64(buf[firstFreeOffset:]),
		LastFreeRecord:   binary.LittleEndian.Uint64(buf[lastFreeOffset:]),
	}
}

// validate rejects foreign files and headers pointing outside the file
func (h *Header) validate(fileSize int64) error {
	if h.Signature != Signature {
		return ErrInvalidSignature
	}

	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}

	if h.EndOfFile < HeaderSize || int64(h.EndOfFile) > fileSize {
		return fmt.Errorf("%w: end of file %d (size %d)", ErrCorruptFile, h.EndOfFile, fileSize)
	}

	for _, off := range []uint64{h.FirstDataRecord, h.LastDataRecord, h.FirstFreeRecord, h.LastFreeRecord} {
		if off == NotFound {
			continue
		}
		if off < HeaderSize || off+RecordHeaderSize > uint64(h.EndOfFile) {
			return fmt.Errorf("%w: chain offset %d out of bounds", ErrCorruptFile, off)
		}
	}

	if (h.FirstDataRecord == NotFound) != (h.TotalRecords == 0) {
		return fmt.Errorf("%w: live record count %d does not match chain", ErrCorruptFile, h.TotalRecords)
	}

	if (h.FirstFreeRecord == NotFound) != (h.TotalFreeRecords == 0) {
		return fmt.Errorf("%w: free record count %d does not match chain", ErrCorruptFile, h.TotalFreeRecords)
	}

	return nil
}
