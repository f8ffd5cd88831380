package pagecache

const (
	PageSize     = 8192
	MinCacheSize = 4 * PageSize
)

const notResident int64 = -1

type PageState uint8

const (
	PageFree PageState = iota
	PageClean
	PageDirty
)

func (s PageState) String() string {
	switch s {
	case PageFree:
		return "FREE"
	case PageClean:
		return "CLEAN"
	case PageDirty:
		return "DIRTY"
	}
	return "UNKNOWN"
}

// Per slot bookkeeping, data lives in PageCache.data at the same index
type pageInfo struct {
	state     PageState
	filePage  int64
	age       uint64
	available int
}

// Stats are cumulative counters since Open
type Stats struct {
	Requests  uint64
	Misses    uint64
	Loads     uint64
	Evictions uint64
	Persisted uint64
}
