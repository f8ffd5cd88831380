package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.boson/internal/btree"
	"go.boson/internal/config"
	"go.boson/internal/logger"
	"go.boson/internal/storage"
)

type Options struct {
	// Page cache bytes, zero uses the minimum
	CacheSize int
	// Value cache bytes, zero disables it
	ValueCacheSize int

	MaxDegree int
	MinDegree int
	ReadOnly  bool
	Logger    *logger.Logger
}

// Open a database file by path, a missing file is created unless read only
func Open(path string, opts Options) (*Database, error) {
	log := logger.OrDiscard(opts.Logger)

	store, err := storage.Open(path, storage.Options{
		CacheSize: opts.CacheSize,
		ReadOnly:  opts.ReadOnly,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	tree, err := btree.Open(store, btree.Options{
		MaxDegree: opts.MaxDegree,
		MinDegree: opts.MinDegree,
		Logger:    log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	values, err := newValueCache(opts.ValueCacheSize)
	if err != nil {
		store.Close()
		return nil, err
	}

	log.Infof("opened %s (%d keys)", path, tree.Len())

	return &Database{
		store:  store,
		tree:   tree,
		values: values,
		log:    log.With("engine"),
	}, nil
}

// OpenNamed opens the database dbname inside the configured data directory
// and logs to its own file in the log directory
func OpenNamed(dbname string, cfg *config.Config) (*Database, error) {
	dbPath := cfg.DatabasePath(dbname)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	return openWithConfig(dbPath, dbname, cfg)
}

// OpenPath opens a database file anywhere on disk using the configured
// cache and degree settings, the log file is named after the file
func OpenPath(path string, cfg *config.Config) (*Database, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return openWithConfig(path, name, cfg)
}

func openWithConfig(dbPath, logName string, cfg *config.Config) (*Database, error) {
	logFile, lErr := os.OpenFile(cfg.LogPath(logName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
	if lErr != nil {
		return nil, fmt.Errorf("failed to open log file: %w", lErr)
	}

	cacheSize, err := cfg.CacheBytes()
	if err != nil {
		logFile.Close()
		return nil, err
	}
	valueCacheSize, err := cfg.ValueCacheBytes()
	if err != nil {
		logFile.Close()
		return nil, err
	}

	db, err := Open(dbPath, Options{
		CacheSize:      cacheSize,
		ValueCacheSize: valueCacheSize,
		MaxDegree:      cfg.MaxDegree,
		MinDegree:      cfg.MinDegree,
		ReadOnly:       cfg.ReadOnly,
		Logger:         logger.New(logFile, cfg.Level()),
	})
	if err != nil {
		logFile.Close()
		return nil, err
	}

	db.logFile = logFile
	return db, nil
}
