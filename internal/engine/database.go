package engine

import (
	"errors"
	"fmt"
	"io"
	"math"

	"go.boson/internal/btree"
	"go.boson/internal/logger"
	"go.boson/internal/pagecache"
	"go.boson/internal/storage"
)

var (
	ErrKeyExists     = btree.ErrKeyExists
	ErrKeyNotFound   = btree.ErrKeyNotFound
	ErrKeysExhausted = errors.New("no key left after the largest stored key")
	ErrNotPositioned = errors.New("iteration has not been started")
)

type Database struct {
	store  *storage.RecordStore
	tree   *btree.BTree
	values *valueCache

	// Iteration state, cursor is dropped by every mutation and
	// re-established from lastKey once it is gone or exhausted
	cursor     *btree.Cursor
	lastKey    uint64
	positioned bool

	logFile io.Closer
	log     *logger.Logger
}

type Stats struct {
	Path string

	Keys      uint64
	Height    int
	MaxDegree int
	MinDegree int

	Records     uint64
	FreeRecords uint64
	EndOfFile   uint32

	CachePages    int
	Cache         pagecache.Stats
	CacheHitRate  float64
	ValueHitRatio float64
}

// Insert stores a new key, an existing key fails with ErrKeyExists
func (db *Database) Insert(key uint64, value string) error {
	db.cursor = nil

	if err := db.tree.Insert(key, []byte(value)); err != nil {
		return err
	}

	db.log.Debugf("inserted key %d (%d bytes)", key, len(value))
	return nil
}

// Append stores value under the key following the largest stored key
func (db *Database) Append(value string) (uint64, error) {
	c, err := db.tree.Last()
	if err != nil {
		return 0, err
	}

	var key uint64
	if c.Valid() {
		if c.Key() == math.MaxUint64 {
			return 0, ErrKeysExhausted
		}
		key = c.Key() + 1
	}

	return key, db.Insert(key, value)
}

func (db *Database) Update(key uint64, value string) error {
	db.cursor = nil
	db.values.Delete(key)

	return db.tree.Update(key, []byte(value))
}

func (db *Database) Get(key uint64) (string, error) {
	if v, ok := db.values.Get(key); ok {
		return string(v), nil
	}

	v, ok, err := db.tree.Get(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("get %d: %w", key, ErrKeyNotFound)
	}

	db.values.Set(key, v)
	return string(v), nil
}

func (db *Database) Erase(key uint64) error {
	db.cursor = nil
	db.values.Delete(key)

	return db.tree.Delete(key)
}

// First starts an ascending iteration, ok is false on an empty database
func (db *Database) First() (uint64, string, bool, error) {
	db.positioned = false
	c, err := db.tree.First()
	return db.position(c, err)
}

// Seek starts an ascending iteration at the first key >= key
func (db *Database) Seek(key uint64) (uint64, string, bool, error) {
	db.positioned = false
	c, err := db.tree.Seek(key)
	return db.position(c, err)
}

func (db *Database) Last() (uint64, string, bool, error) {
	db.positioned = false
	c, err := db.tree.Last()
	return db.position(c, err)
}

// Next moves past the last returned key. Keys inserted after the
// iteration ran out are still found.
func (db *Database) Next() (uint64, string, bool, error) {
	if db.cursor != nil && db.cursor.Valid() {
		return db.position(db.cursor, db.cursor.Next())
	}
	if !db.positioned {
		if db.cursor != nil {
			return 0, "", false, nil
		}
		return 0, "", false, ErrNotPositioned
	}

	// The tree changed or the cursor ran out, find our place again
	c, err := db.tree.Seek(db.lastKey)
	if err == nil && c.Valid() && c.Key() == db.lastKey {
		err = c.Next()
	}
	return db.position(c, err)
}

func (db *Database) Prev() (uint64, string, bool, error) {
	if db.cursor != nil && db.cursor.Valid() {
		return db.position(db.cursor, db.cursor.Prev())
	}
	if !db.positioned {
		if db.cursor != nil {
			return 0, "", false, nil
		}
		return 0, "", false, ErrNotPositioned
	}

	c, err := db.tree.Seek(db.lastKey)
	if err == nil {
		if c.Valid() {
			err = c.Prev()
		} else {
			c, err = db.tree.Last()
		}
	}
	return db.position(c, err)
}

// position reports the key under c. An exhausted cursor keeps lastKey so
// a later Next or Prev can seek back to it.
func (db *Database) position(c *btree.Cursor, err error) (uint64, string, bool, error) {
	if err != nil {
		db.cursor = nil
		db.positioned = false
		return 0, "", false, err
	}

	db.cursor = c
	if !c.Valid() {
		return 0, "", false, nil
	}

	key := c.Key()
	v, ok := db.values.Get(key)
	if !ok {
		if v, err = c.Value(); err != nil {
			return 0, "", false, err
		}
		db.values.Set(key, v)
	}

	db.lastKey = key
	db.positioned = true
	return key, string(v), true, nil
}

// Len reports the number of stored entries
func (db *Database) Len() uint64 {
	return db.tree.Len()
}

// CacheHitRate is the page cache hit percentage since open
func (db *Database) CacheHitRate() float64 {
	return db.store.CacheHitRate()
}

func (db *Database) Stats() (Stats, error) {
	height, err := db.tree.Height()
	if err != nil {
		return Stats{}, err
	}

	maxDegree, minDegree := db.tree.Degrees()

	return Stats{
		Path:          db.store.Path(),
		Keys:          db.tree.Len(),
		Height:        height,
		MaxDegree:     maxDegree,
		MinDegree:     minDegree,
		Records:       db.store.TotalRecords(),
		FreeRecords:   db.store.TotalFreeRecords(),
		EndOfFile:     db.store.EndOfFile(),
		CachePages:    db.store.CachePages(),
		Cache:         db.store.CacheStats(),
		CacheHitRate:  db.store.CacheHitRate(),
		ValueHitRatio: db.values.HitRatio(),
	}, nil
}

// Walk exposes the index nodes level by level
func (db *Database) Walk(fn func(btree.NodeInfo) error) error {
	return db.tree.Walk(fn)
}

// Check validates the record file and then the index built on it
func (db *Database) Check() (*storage.Report, error) {
	report, err := db.store.Check()
	if err != nil {
		return nil, err
	}
	if err := db.tree.Check(); err != nil {
		return nil, err
	}
	return report, nil
}

func (db *Database) Flush() error {
	return db.store.Flush()
}

func (db *Database) ReadOnly() bool {
	return db.store.ReadOnly()
}

func (db *Database) Close() error {
	db.cursor = nil
	db.values.Close()

	path := db.store.Path()
	err := db.store.Close()
	if err == nil && path != "" {
		db.log.Infof("closed %s", path)
	}

	if db.logFile != nil {
		err = errors.Join(err, db.logFile.Close())
		db.logFile = nil
	}
	return err
}
