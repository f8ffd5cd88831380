package storage

import (
	"fmt"
	"math"
)

// allocate finds space for a record of the given capacity. The returned
// header has its Capacity set, appended reports whether the space is new
// at the end of the file.
func (s *RecordStore) allocate(capacity uint32) (uint64, RecordHeader, bool, error) {
	offset, rh, ok, err := s.getFromFreeList(capacity)
	if err != nil {
		return NotFound, RecordHeader{}, false, err
	}
	if ok {
		return offset, rh, false, nil
	}

	offset, rh, err = s.appendNewRecord(capacity)
	return offset, rh, true, err
}

func (s *RecordStore) appendNewRecord(capacity uint32) (uint64, RecordHeader, error) {
	offset := uint64(s.header.EndOfFile)
	end := offset + RecordHeaderSize + uint64(capacity)

	if end > math.MaxUint32 {
		return NotFound, RecordHeader{}, fmt.Errorf("%w: need %d bytes", ErrFileTooLarge, end)
	}

	s.header.EndOfFile = uint32(end)
	return offset, RecordHeader{Capacity: capacity}, nil
}

// getFromFreeList takes the first free record large enough (first fit).
// A record with enough spare room for another record is split and the
// remainder goes back on the free list.
func (s *RecordStore) getFromFreeList(capacity uint32) (uint64, RecordHeader, bool, error) {
	offset := s.header.FirstFreeRecord

	for steps := uint64(0); offset != NotFound; steps++ {
		if steps >= s.header.TotalFreeRecords {
			return NotFound, RecordHeader{}, false, fmt.Errorf("%w: chain longer than %d entries", ErrCorruptFreeList, s.header.TotalFreeRecords)
		}

		rh, err := s.readRecordHeader(offset)
		if err != nil {
			return NotFound, RecordHeader{}, false, err
		}
		if !rh.IsFree() {
			return NotFound, RecordHeader{}, false, fmt.Errorf("%w: live record at %d", ErrCorruptFreeList, offset)
		}

		if rh.Capacity < capacity {
			offset = rh.Next
			continue
		}

		if err := s.removeFromFreeList(offset, rh); err != nil {
			return NotFound, RecordHeader{}, false, err
		}

		if rh.Capacity-capacity >= RecordHeaderSize+AllocationUnit {
			remOffset := offset + RecordHeaderSize + uint64(capacity)
			rem := RecordHeader{Capacity: rh.Capacity - capacity - RecordHeaderSize}

			if err := s.putToFreeList(remOffset, rem); err != nil {
				return NotFound, RecordHeader{}, false, err
			}

			s.log.Debugf("split free record at %d, remainder %d bytes at %d", offset, rem.Capacity, remOffset)
			rh.Capacity = capacity
		}

		s.log.Debugf("reusing free record at %d (capacity %d)", offset, rh.Capacity)
		return offset, RecordHeader{Capacity: rh.Capacity}, true, nil
	}

	return NotFound, RecordHeader{}, false, nil
}

// putToFreeList appends the space at offset to the tail of the free list
func (s *RecordStore) putToFreeList(offset uint64, rh RecordHeader) error {
	rh.Type = TypeFree
	rh.Length = 0
	rh.Checksum = checksum(nil)
	rh.Next = NotFound
	rh.Previous = s.header.LastFreeRecord

	if err := s.writeRecordHeader(offset, &rh); err != nil {
		return err
	}

	if rh.Previous != NotFound {
		if err := s.setNext(rh.Previous, offset); err != nil {
			return err
		}
	} else {
		s.header.FirstFreeRecord = offset
	}

	s.header.LastFreeRecord = offset
	s.header.TotalFreeRecords++
	return nil
}

func (s *RecordStore) removeFromFreeList(offset uint64, rh RecordHeader) error {
	if rh.Previous != NotFound {
		if err := s.setNext(rh.Previous, rh.Next); err != nil {
			return err
		}
	} else {
		s.header.FirstFreeRecord = rh.Next
	}

	if rh.Next != NotFound {
		if err := s.setPrevious(rh.Next, rh.Previous); err != nil {
			return err
		}
	} else {
		s.header.LastFreeRecord = rh.Previous
	}

	s.header.TotalFreeRecords--
	return nil
}
