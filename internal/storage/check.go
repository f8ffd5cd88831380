package storage

import "fmt"

// Report summarizes a full scan of the record file
type Report struct {
	EndOfFile   uint32
	Records     uint64
	FreeRecords uint64
	LiveBytes   uint64
	FreeBytes   uint64
	SlackBytes  uint64
}

// Check walks every record between the header and end of file and
// verifies that the live and free chains are consistent doubly linked
// lists which partition the allocated space exactly once.
func (s *RecordStore) Check() (*Report, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	all := make(map[uint64]RecordHeader)
	offset := uint64(HeaderSize)
	eof := uint64(s.header.EndOfFile)

	for offset < eof {
		rh, err := s.readRecordHeader(offset)
		if err != nil {
			return nil, err
		}
		all[offset] = rh
		offset += rh.span()
	}

	if offset != eof {
		return nil, fmt.Errorf("%w: records end at %d, header says %d", ErrCorruptFile, offset, eof)
	}

	live, err := s.walkChain(all, s.header.FirstDataRecord, s.header.LastDataRecord, s.header.TotalRecords, false)
	if err != nil {
		return nil, err
	}

	free, err := s.walkChain(all, s.header.FirstFreeRecord, s.header.LastFreeRecord, s.header.TotalFreeRecords, true)
	if err != nil {
		return nil, err
	}

	report := &Report{
		EndOfFile:   s.header.EndOfFile,
		Records:     uint64(len(live)),
		FreeRecords: uint64(len(free)),
	}

	for off := range live {
		if _, ok := free[off]; ok {
			return nil, fmt.Errorf("%w: record %d is on both chains", ErrCorruptFile, off)
		}

		rh := all[off]
		report.LiveBytes += uint64(rh.Length)
		report.SlackBytes += uint64(rh.Capacity - rh.Length)
	}

	for off := range free {
		report.FreeBytes += uint64(all[off].Capacity)
	}

	if len(live)+len(free) != len(all) {
		return nil, fmt.Errorf("%w: %d records are on no chain", ErrCorruptFile, len(all)-len(live)-len(free))
	}

	// Checksums of every live payload
	for off := range live {
		if err := s.loadRecord(off); err != nil {
			return nil, err
		}
	}
	s.invalidateCursor()

	return report, nil
}

func (s *RecordStore) walkChain(all map[uint64]RecordHeader, first, last, total uint64, wantFree bool) (map[uint64]struct{}, error) {
	seen := make(map[uint64]struct{})
	prev := NotFound

	for off := first; off != NotFound; {
		rh, ok := all[off]
		if !ok {
			return nil, fmt.Errorf("%w: chain points to %d which is not a record", ErrCorruptFile, off)
		}
		if _, dup := seen[off]; dup {
			return nil, fmt.Errorf("%w: cycle at %d", ErrCorruptFile, off)
		}
		if rh.IsFree() != wantFree {
			return nil, fmt.Errorf("%w: record %d has the wrong type for its chain", ErrCorruptFile, off)
		}
		if rh.Previous != prev {
			return nil, fmt.Errorf("%w: record %d links back to %d, expected %d", ErrCorruptFile, off, rh.Previous, prev)
		}

		seen[off] = struct{}{}
		prev = off
		off = rh.Next
	}

	if prev != last {
		return nil, fmt.Errorf("%w: chain ends at %d, header says %d", ErrCorruptFile, prev, last)
	}
	if uint64(len(seen)) != total {
		return nil, fmt.Errorf("%w: chain has %d records, header says %d", ErrCorruptFile, len(seen), total)
	}

	return seen, nil
}
