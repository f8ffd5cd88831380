package engine

import (
	"github.com/dgraph-io/ristretto/v2"
)

// valueCache keeps recently read values in memory, keyed by record key.
// The index stays the source of truth, a nil cache is disabled.
type valueCache struct {
	cache *ristretto.Cache[uint64, []byte]
}

func newValueCache(maxBytes int) (*valueCache, error) {
	if maxBytes <= 0 {
		return nil, nil
	}

	// Roughly ten counters per value expected to fit
	counters := int64(maxBytes/64) * 10
	if counters < 1000 {
		counters = 1000
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
		NumCounters:        counters,
		MaxCost:            int64(maxBytes),
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &valueCache{cache: cache}, nil
}

func (vc *valueCache) Set(key uint64, value []byte) {
	if vc == nil {
		return
	}
	vc.cache.Set(key, value, int64(len(value))+8)
}

func (vc *valueCache) Get(key uint64) ([]byte, bool) {
	if vc == nil {
		return nil, false
	}
	return vc.cache.Get(key)
}

func (vc *valueCache) Delete(key uint64) {
	if vc == nil {
		return
	}
	vc.cache.Del(key)
}

// Wait blocks until buffered writes are applied
func (vc *valueCache) Wait() {
	if vc == nil {
		return
	}
	vc.cache.Wait()
}

// HitRatio is the share of lookups served from memory
func (vc *valueCache) HitRatio() float64 {
	if vc == nil {
		return 0
	}
	return vc.cache.Metrics.Ratio()
}

func (vc *valueCache) Close() {
	if vc == nil {
		return
	}
	vc.cache.Close()
}
