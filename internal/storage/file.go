package storage

import (
	"errors"
	"fmt"
	"time"

	"go.boson/internal/logger"
	"go.boson/internal/pagecache"
)

type Options struct {
	// Bytes of page cache, raised to pagecache.MinCacheSize
	CacheSize int
	ReadOnly  bool
	Logger    *logger.Logger
}

// RecordStore keeps variable length records in a single file. Live records
// form a doubly linked list, removed records are chained in a free list
// and reused by later allocations.
type RecordStore struct {
	cache    *pagecache.PageCache
	header   Header
	readOnly bool

	// Record currently addressed by the cursor
	cursor  uint64
	record  RecordHeader
	payload []byte

	lastID uint64
	log    *logger.Logger
}

// Open a record file, a new file gets a fresh header
func Open(path string, opts Options) (*RecordStore, error) {
	log := logger.OrDiscard(opts.Logger)

	cache, err := pagecache.Open(path, opts.CacheSize, opts.ReadOnly, log)
	if err != nil {
		return nil, err
	}

	s := &RecordStore{
		cache:    cache,
		readOnly: opts.ReadOnly,
		cursor:   NotFound,
		log:      log.With("storage"),
	}

	size, err := cache.Size()
	if err == nil {
		if size == 0 && !opts.ReadOnly {
			err = s.createDatabase()
		} else {
			err = s.loadHeader(size)
		}
	}

	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return s, nil
}

func (s *RecordStore) createDatabase() error {
	s.header = newHeader()
	s.log.Infof("initializing new storage file %s", s.cache.Path())

	offset, err := s.cache.Append(s.header.encode())
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if offset != 0 {
		return fmt.Errorf("%w: header appended at %d", ErrCorruptFile, offset)
	}
	return nil
}

func (s *RecordStore) loadHeader(size int64) error {
	buf := make([]byte, HeaderSize)

	n, err := s.cache.Read(0, buf)
	if err != nil {
		return err
	}
	if n < HeaderSize {
		return fmt.Errorf("%w: file too small for header (%d bytes)", ErrCorruptFile, size)
	}

	h := decodeHeader(buf)
	if err := h.validate(size); err != nil {
		s.log.Errorf("rejecting %s: %v", s.cache.Path(), err)
		return err
	}

	s.header = h
	return nil
}

func (s *RecordStore) saveHeader() error {
	if _, err := s.cache.Write(0, s.header.encode()); err != nil {
		return fmt.Errorf("save header: %w", err)
	}
	return nil
}

// Flush writes the header and every dirty cache page to disk
func (s *RecordStore) Flush() error {
	if err := s.ensureWritable(); err != nil {
		return err
	}
	if err := s.saveHeader(); err != nil {
		return err
	}
	return s.cache.Flush()
}

func (s *RecordStore) Close() error {
	if s.cache == nil {
		return nil
	}

	var saveErr error
	if !s.readOnly {
		saveErr = s.saveHeader()
	}

	closeErr := s.cache.Close()
	s.cache = nil
	s.invalidateCursor()

	return errors.Join(saveErr, closeErr)
}

func (s *RecordStore) ensureOpen() error {
	if s.cache == nil {
		return ErrClosed
	}
	return nil
}

func (s *RecordStore) ensureWritable() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if s.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Record IDs are time seeded and strictly increasing
func (s *RecordStore) generateID() uint64 {
	id := uint64(time.Now().UnixNano())
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *RecordStore) Path() string {
	if s.cache == nil {
		return ""
	}
	return s.cache.Path()
}

func (s *RecordStore) ReadOnly() bool {
	return s.readOnly
}

// Header returns a copy of the storage header
func (s *RecordStore) Header() Header {
	return s.header
}

func (s *RecordStore) TotalRecords() uint64 {
	return s.header.TotalRecords
}

func (s *RecordStore) TotalFreeRecords() uint64 {
	return s.header.TotalFreeRecords
}

func (s *RecordStore) EndOfFile() uint32 {
	return s.header.EndOfFile
}

func (s *RecordStore) CacheHitRate() float64 {
	if s.cache == nil {
		return 0
	}
	return s.cache.HitRate()
}

func (s *RecordStore) CacheStats() pagecache.Stats {
	if s.cache == nil {
		return pagecache.Stats{}
	}
	return s.cache.Stats()
}

func (s *RecordStore) CachePages() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Pages()
}
