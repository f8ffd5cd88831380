package pagecache

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.boson/internal/logger"
)

// PageCache hides file I/O behind a fixed pool of PageSize slots.
// Callers address the file by byte offset, the cache maps each touched
// page to a slot, loading it on a miss and writing dirty slots back on
// eviction, Flush and Close.
type PageCache struct {
	file     *os.File
	path     string
	readOnly bool

	info []pageInfo
	data [][]byte

	stats Stats
	log   *logger.Logger
}

// Open a cached file, creating it if it does not exist (unless readOnly)
func Open(path string, cacheBytes int, readOnly bool, log *logger.Logger) (*PageCache, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flag, 0o666)
	if errors.Is(err, os.ErrNotExist) && !readOnly {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrStorageFault, err)
	}

	if cacheBytes < MinCacheSize {
		cacheBytes = MinCacheSize
	}
	count := cacheBytes / PageSize

	// One slab for every slot keeps the pool in a single allocation
	slab := make([]byte, count*PageSize)

	c := &PageCache{
		file:     f,
		path:     path,
		readOnly: readOnly,
		info:     make([]pageInfo, count),
		data:     make([][]byte, count),
		log:      logger.OrDiscard(log).With("pagecache"),
	}

	for i := 0; i < count; i++ {
		c.info[i] = pageInfo{state: PageFree, filePage: notResident}
		c.data[i] = slab[i*PageSize : (i+1)*PageSize]
	}

	c.log.Infof("opened %s (%d cache pages, readOnly=%t)", path, count, readOnly)
	return c, nil
}

func (c *PageCache) Path() string {
	return c.path
}

func (c *PageCache) ReadOnly() bool {
	return c.readOnly
}

// Pages is the number of cache slots
func (c *PageCache) Pages() int {
	return len(c.info)
}

// Read copies file bytes starting at offset into buf. The returned count
// is short only when the range runs past the end of the valid data.
func (c *PageCache) Read(offset int64, buf []byte) (int, error) {
	if c.file == nil {
		return 0, ErrClosed
	}
	if offset < 0 {
		return 0, fmt.Errorf("read at %d: %w", offset, ErrInvalidOffset)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	end := offset + int64(len(buf))
	read := 0

	for p := offset / PageSize; p <= (end-1)/PageSize; p++ {
		idx, err := c.fetch(p)
		if err != nil {
			return read, err
		}

		from, to := pageRange(p, offset, end)
		avail := c.info[idx].available

		if from >= avail {
			return read, nil
		}

		read += copy(buf[read:], c.data[idx][from:min(to, avail)])

		if to > avail {
			return read, nil
		}
	}

	return read, nil
}

// Write copies buf into the file at offset. Every touched page is made
// resident first so bytes outside the written range keep their content.
func (c *PageCache) Write(offset int64, buf []byte) (int, error) {
	if c.file == nil {
		return 0, ErrClosed
	}
	if c.readOnly {
		return 0, ErrReadOnly
	}
	if offset < 0 {
		return 0, fmt.Errorf("write at %d: %w", offset, ErrInvalidOffset)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	end := offset + int64(len(buf))
	written := 0

	for p := offset / PageSize; p <= (end-1)/PageSize; p++ {
		idx, err := c.fetch(p)
		if err != nil {
			return written, err
		}

		from, to := pageRange(p, offset, end)
		written += copy(c.data[idx][from:to], buf[written:])

		info := &c.info[idx]
		info.state = PageDirty
		info.age = 0

		// Valid length follows the high-water mark inside this page
		if to > info.available {
			info.available = to
		}
	}

	return written, nil
}

// Append writes buf at the logical end of the file and returns the
// offset it was written at
func (c *PageCache) Append(buf []byte) (int64, error) {
	offset, err := c.Size()
	if err != nil {
		return 0, err
	}

	if _, err := c.Write(offset, buf); err != nil {
		return offset, err
	}
	return offset, nil
}

// Flush persists every dirty page and syncs the file
func (c *PageCache) Flush() error {
	if c.file == nil {
		return ErrClosed
	}
	if c.readOnly {
		return nil
	}

	var errs []error
	for i := range c.info {
		if c.info[i].state == PageDirty {
			if err := c.persist(i); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := c.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync %s: %w: %w", c.path, ErrStorageFault, err))
	}

	return errors.Join(errs...)
}

// Close flushes the cache and releases the file and slot memory
func (c *PageCache) Close() error {
	if c.file == nil {
		return nil
	}

	flushErr := c.Flush()

	var closeErr error
	if err := c.file.Close(); err != nil {
		closeErr = fmt.Errorf("close %s: %w: %w", c.path, ErrStorageFault, err)
	}

	c.log.Infof("closed %s (hit rate %.2f%%)", c.path, c.HitRate())

	c.file = nil
	c.info = nil
	c.data = nil
	return errors.Join(flushErr, closeErr)
}

// Size is the logical file size including data that only lives in the cache
func (c *PageCache) Size() (int64, error) {
	if c.file == nil {
		return 0, ErrClosed
	}

	fi, err := c.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w: %w", c.path, ErrStorageFault, err)
	}

	size := fi.Size()
	for i := range c.info {
		if c.info[i].state == PageFree {
			continue
		}
		if end := c.info[i].filePage*PageSize + int64(c.info[i].available); end > size {
			size = end
		}
	}
	return size, nil
}

func (c *PageCache) Stats() Stats {
	return c.stats
}

// HitRate is the cache hit percentage since Open
func (c *PageCache) HitRate() float64 {
	if c.stats.Requests == 0 {
		return 0
	}
	return float64(c.stats.Requests-c.stats.Misses) / float64(c.stats.Requests) * 100.0
}

// MissRate is the cache miss percentage since Open
func (c *PageCache) MissRate() float64 {
	if c.stats.Requests == 0 {
		return 0
	}
	return float64(c.stats.Misses) / float64(c.stats.Requests) * 100.0
}

// pageRange returns the [from, to) slice of page p covered by [offset, end)
func pageRange(p, offset, end int64) (int, int) {
	pageStart := p * PageSize
	from := max(offset, pageStart) - pageStart
	to := min(end, pageStart+PageSize) - pageStart
	return int(from), int(to)
}

// fetch returns the slot holding filePage, loading it on a miss
func (c *PageCache) fetch(filePage int64) (int, error) {
	if idx := c.search(filePage); idx >= 0 {
		c.info[idx].age = 0
		return idx, nil
	}
	return c.load(filePage)
}

func (c *PageCache) search(filePage int64) int {
	c.stats.Requests++

	for i := range c.info {
		if c.info[i].state != PageFree && c.info[i].filePage == filePage {
			return i
		}
	}

	c.stats.Misses++
	return -1
}

func (c *PageCache) load(filePage int64) (int, error) {
	c.ageCachePages()

	idx, err := c.freeSlot()
	if err != nil {
		return -1, err
	}

	page := c.data[idx]
	n, err := c.file.ReadAt(page, filePage*PageSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return -1, fmt.Errorf("load page %d: %w: %w", filePage, ErrStorageFault, err)
	}

	// Pages at the end of the file are partially filled
	clear(page[n:])

	c.info[idx] = pageInfo{
		state:     PageClean,
		filePage:  filePage,
		age:       0,
		available: n,
	}
	c.stats.Loads++
	return idx, nil
}

// freeSlot prefers an unused slot, otherwise evicts the most aged one
func (c *PageCache) freeSlot() (int, error) {
	var oldest uint64
	victim := 0

	for i := range c.info {
		if c.info[i].state == PageFree {
			return i, nil
		}
		if c.info[i].age > oldest {
			oldest = c.info[i].age
			victim = i
		}
	}

	if err := c.evict(victim); err != nil {
		return -1, err
	}
	return victim, nil
}

func (c *PageCache) evict(idx int) error {
	if c.info[idx].state == PageDirty {
		if err := c.persist(idx); err != nil {
			return err
		}
	}

	c.log.Debugf("evict page %d from slot %d (age %d)", c.info[idx].filePage, idx, c.info[idx].age)

	c.info[idx] = pageInfo{state: PageFree, filePage: notResident}
	c.stats.Evictions++
	return nil
}

func (c *PageCache) persist(idx int) error {
	info := &c.info[idx]

	if info.available > 0 {
		off := info.filePage * PageSize
		if _, err := c.file.WriteAt(c.data[idx][:info.available], off); err != nil {
			c.log.Errorf("persist page %d: %v", info.filePage, err)
			return fmt.Errorf("persist page %d: %w: %w", info.filePage, ErrStorageFault, err)
		}
	}

	info.state = PageClean
	c.stats.Persisted++
	return nil
}

// Increments all cache pages age
func (c *PageCache) ageCachePages() {
	for i := range c.info {
		c.info[i].age++
	}
}
