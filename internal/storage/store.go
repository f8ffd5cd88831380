package storage

import (
	"fmt"
)

// readRecordHeader loads and sanity checks the header at offset
func (s *RecordStore) readRecordHeader(offset uint64) (RecordHeader, error) {
	eof := uint64(s.header.EndOfFile)

	if offset == NotFound || offset < HeaderSize || offset+RecordHeaderSize > eof {
		return RecordHeader{}, fmt.Errorf("%w: offset %d out of bounds", ErrCorruptRecord, offset)
	}

	var buf [RecordHeaderSize]byte
	n, err := s.cache.Read(int64(offset), buf[:])
	if err != nil {
		return RecordHeader{}, err
	}
	if n < RecordHeaderSize {
		return RecordHeader{}, fmt.Errorf("%w: short header read at %d", ErrCorruptRecord, offset)
	}

	rh := decodeRecordHeader(buf[:])

	if rh.Length > rh.Capacity {
		return rh, fmt.Errorf("%w: length %d exceeds capacity %d at %d", ErrCorruptRecord, rh.Length, rh.Capacity, offset)
	}
	if offset+rh.span() > eof {
		return rh, fmt.Errorf("%w: record at %d runs past end of file", ErrCorruptRecord, offset)
	}

	return rh, nil
}

func (s *RecordStore) writeRecordHeader(offset uint64, rh *RecordHeader) error {
	var buf [RecordHeaderSize]byte
	rh.encode(buf[:])

	if _, err := s.cache.Write(int64(offset), buf[:]); err != nil {
		return fmt.Errorf("write record header at %d: %w", offset, err)
	}
	return nil
}

// writeRecord writes header and payload, padding the payload up to
// capacity when the space is new at the end of the file
func (s *RecordStore) writeRecord(offset uint64, rh *RecordHeader, data []byte, pad bool) error {
	size := RecordHeaderSize + len(data)
	if pad {
		size = int(rh.span())
	}

	buf := make([]byte, size)
	rh.encode(buf[:RecordHeaderSize])
	copy(buf[RecordHeaderSize:], data)

	if _, err := s.cache.Write(int64(offset), buf); err != nil {
		return fmt.Errorf("write record at %d: %w", offset, err)
	}
	return nil
}

// loadRecord moves the cursor to a live record and verifies its checksum
func (s *RecordStore) loadRecord(offset uint64) error {
	rh, err := s.readRecordHeader(offset)
	if err != nil {
		return err
	}

	if rh.IsFree() {
		return fmt.Errorf("%w: record at %d is on the free list", ErrCorruptRecord, offset)
	}

	payload := make([]byte, rh.Length)
	n, err := s.cache.Read(int64(offset+RecordHeaderSize), payload)
	if err != nil {
		return err
	}
	if n < len(payload) {
		return fmt.Errorf("%w: short payload read at %d", ErrCorruptRecord, offset)
	}

	if checksum(payload) != rh.Checksum {
		s.log.Errorf("checksum mismatch on record %d at offset %d", rh.ID, offset)
		return fmt.Errorf("record at %d: %w", offset, ErrChecksumMismatch)
	}

	s.cursor = offset
	s.record = rh
	s.payload = payload
	return nil
}

func (s *RecordStore) invalidateCursor() {
	s.cursor = NotFound
	s.record = RecordHeader{}
	s.payload = nil
}

func (s *RecordStore) setNext(offset, next uint64) error {
	rh, err := s.readRecordHeader(offset)
	if err != nil {
		return err
	}
	rh.Next = next
	return s.writeRecordHeader(offset, &rh)
}

func (s *RecordStore) setPrevious(offset, prev uint64) error {
	rh, err := s.readRecordHeader(offset)
	if err != nil {
		return err
	}
	rh.Previous = prev
	return s.writeRecordHeader(offset, &rh)
}

// CURSOR

// SetCursor positions the cursor on the live record at offset
func (s *RecordStore) SetCursor(offset uint64) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.loadRecord(offset)
}

func (s *RecordStore) Cursor() uint64 {
	return s.cursor
}

func (s *RecordStore) First() (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}

	if s.header.FirstDataRecord == NotFound {
		s.invalidateCursor()
		return false, nil
	}

	if err := s.loadRecord(s.header.FirstDataRecord); err != nil {
		return false, err
	}

	if s.record.Previous != NotFound {
		return false, fmt.Errorf("%w: first record at %d has a previous link", ErrCorruptRecord, s.cursor)
	}
	return true, nil
}

func (s *RecordStore) Last() (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}

	if s.header.LastDataRecord == NotFound {
		s.invalidateCursor()
		return false, nil
	}

	if err := s.loadRecord(s.header.LastDataRecord); err != nil {
		return false, err
	}

	if s.record.Next != NotFound {
		return false, fmt.Errorf("%w: last record at %d has a next link", ErrCorruptRecord, s.cursor)
	}
	return true, nil
}

// Next advances the cursor, false means the cursor was on the last record
func (s *RecordStore) Next() (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}
	if s.cursor == NotFound {
		return false, ErrNoCursor
	}

	curr, next := s.cursor, s.record.Next
	if next == NotFound {
		return false, nil
	}

	if err := s.loadRecord(next); err != nil {
		return false, err
	}

	if s.record.Previous != curr {
		return false, fmt.Errorf("%w: record at %d does not link back to %d", ErrCorruptRecord, next, curr)
	}
	return true, nil
}

// Previous moves the cursor back, false means the cursor was on the first record
func (s *RecordStore) Previous() (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}
	if s.cursor == NotFound {
		return false, ErrNoCursor
	}

	curr, prev := s.cursor, s.record.Previous
	if prev == NotFound {
		return false, nil
	}

	if err := s.loadRecord(prev); err != nil {
		return false, err
	}

	if s.record.Next != curr {
		return false, fmt.Errorf("%w: record at %d does not link forward to %d", ErrCorruptRecord, prev, curr)
	}
	return true, nil
}

// GETTERS (record under the cursor)

func (s *RecordStore) ID() uint64 {
	return s.record.ID
}

func (s *RecordStore) Type() uint32 {
	return s.record.Type
}

func (s *RecordStore) Length() uint32 {
	return s.record.Length
}

func (s *RecordStore) Capacity() uint32 {
	return s.record.Capacity
}

func (s *RecordStore) NextOffset() uint64 {
	if s.cursor == NotFound {
		return NotFound
	}
	return s.record.Next
}

func (s *RecordStore) PreviousOffset() uint64 {
	if s.cursor == NotFound {
		return NotFound
	}
	return s.record.Previous
}

// Data returns a copy of the payload under the cursor
func (s *RecordStore) Data() ([]byte, error) {
	if s.cursor == NotFound {
		return nil, ErrNoCursor
	}
	return append([]byte(nil), s.payload...), nil
}

// SETTERS

func (s *RecordStore) SetType(recordType uint32) error {
	if err := s.ensureWritable(); err != nil {
		return err
	}
	if s.cursor == NotFound {
		return ErrNoCursor
	}
	if recordType == TypeFree {
		return fmt.Errorf("%w: type %#x is reserved", ErrCorruptRecord, recordType)
	}

	s.record.Type = recordType
	return s.writeRecordHeader(s.cursor, &s.record)
}

// CreateRecord appends a new record to the live chain and returns its offset.
// The cursor moves to the new record.
func (s *RecordStore) CreateRecord(data []byte) (uint64, error) {
	if err := s.ensureWritable(); err != nil {
		return NotFound, err
	}
	if err := checkLength(len(data)); err != nil {
		return NotFound, err
	}

	offset, rh, appended, err := s.allocate(allocationSize(len(data)))
	if err != nil {
		return NotFound, err
	}

	rh.ID = s.generateID()
	rh.Length = uint32(len(data))
	rh.Checksum = checksum(data)
	rh.Type = 0
	rh.Next = NotFound
	rh.Previous = s.header.LastDataRecord

	if err := s.writeRecord(offset, &rh, data, appended); err != nil {
		return NotFound, err
	}

	if rh.Previous != NotFound {
		if err := s.setNext(rh.Previous, offset); err != nil {
			return NotFound, err
		}
	} else {
		s.header.FirstDataRecord = offset
	}

	s.header.LastDataRecord = offset
	s.header.TotalRecords++

	if err := s.saveHeader(); err != nil {
		return NotFound, err
	}

	s.cursor = offset
	s.record = rh
	s.payload = append([]byte(nil), data...)
	return offset, nil
}

// SetData rewrites the payload under the cursor. A payload larger than the
// record capacity relocates the record, the returned offset is where it
// lives now.
func (s *RecordStore) SetData(data []byte) (uint64, error) {
	if err := s.ensureWritable(); err != nil {
		return NotFound, err
	}
	if s.cursor == NotFound {
		return NotFound, ErrNoCursor
	}
	if err := checkLength(len(data)); err != nil {
		return NotFound, err
	}

	if uint32(len(data)) <= s.record.Capacity {
		rh := s.record
		rh.Length = uint32(len(data))
		rh.Checksum = checksum(data)

		if err := s.writeRecord(s.cursor, &rh, data, false); err != nil {
			return NotFound, err
		}

		s.record = rh
		s.payload = append([]byte(nil), data...)
		return s.cursor, nil
	}

	return s.relocate(data)
}

func (s *RecordStore) relocate(data []byte) (uint64, error) {
	oldOffset, old := s.cursor, s.record

	offset, rh, appended, err := s.allocate(allocationSize(len(data)))
	if err != nil {
		return NotFound, err
	}

	rh.ID = old.ID
	rh.Type = old.Type
	rh.Next = old.Next
	rh.Previous = old.Previous
	rh.Length = uint32(len(data))
	rh.Checksum = checksum(data)

	if err := s.writeRecord(offset, &rh, data, appended); err != nil {
		return NotFound, err
	}

	// The new record takes the old one's place in the live chain
	if rh.Previous != NotFound {
		if err := s.setNext(rh.Previous, offset); err != nil {
			return NotFound, err
		}
	} else {
		s.header.FirstDataRecord = offset
	}

	if rh.Next != NotFound {
		if err := s.setPrevious(rh.Next, offset); err != nil {
			return NotFound, err
		}
	} else {
		s.header.LastDataRecord = offset
	}

	if err := s.putToFreeList(oldOffset, old); err != nil {
		return NotFound, err
	}

	if err := s.saveHeader(); err != nil {
		return NotFound, err
	}

	s.log.Debugf("relocated record %d from %d to %d (%d bytes)", rh.ID, oldOffset, offset, len(data))

	s.cursor = offset
	s.record = rh
	s.payload = append([]byte(nil), data...)
	return offset, nil
}

// RemoveRecord unlinks the record under the cursor and puts its space on
// the free list. It returns the offset of the following live record, the
// cursor is left unpositioned.
func (s *RecordStore) RemoveRecord() (uint64, error) {
	if err := s.ensureWritable(); err != nil {
		return NotFound, err
	}
	if s.cursor == NotFound {
		return NotFound, ErrNoCursor
	}

	offset, rh := s.cursor, s.record

	if rh.Previous != NotFound {
		if err := s.setNext(rh.Previous, rh.Next); err != nil {
			return NotFound, err
		}
	} else {
		s.header.FirstDataRecord = rh.Next
	}

	if rh.Next != NotFound {
		if err := s.setPrevious(rh.Next, rh.Previous); err != nil {
			return NotFound, err
		}
	} else {
		s.header.LastDataRecord = rh.Previous
	}

	s.header.TotalRecords--

	if err := s.putToFreeList(offset, rh); err != nil {
		return NotFound, err
	}

	if err := s.saveHeader(); err != nil {
		return NotFound, err
	}

	s.invalidateCursor()
	return rh.Next, nil
}
