package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/voxelgen/internal/logging"
	"github.com/dgraph-io/badger/v3"
)

// BadgerStore — хранилище блобов на BadgerDB. Пустой путь означает режим в памяти.
type BadgerStore struct {
	db     *badger.DB
	stats  counters
	closed atomic.Bool
	logger *logging.Logger
}

// NewBadgerStore открывает хранилище
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	logger := logging.GetCacheLogger()
	if path == "" {
		logger.Info("Badger хранилище блобов открыто в памяти")
	} else {
		logger.Info("Badger хранилище блобов открыто: %s", path)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// Get получает значение по ключу
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	atomic.AddInt64(&s.stats.requests, 1)

	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		atomic.AddInt64(&s.stats.misses, 1)
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	atomic.AddInt64(&s.stats.hits, 1)
	return val, nil
}

// Set сохраняет значение
func (s *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete удаляет ключ
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Load реализует ColdStorage
func (s *BadgerStore) Load(ctx context.Context, key string) ([]byte, error) {
	return s.Get(ctx, key)
}

// Store реализует ColdStorage
func (s *BadgerStore) Store(ctx context.Context, key string, value []byte) error {
	return s.Set(ctx, key, value, 0)
}

// Metrics возвращает метрики
func (s *BadgerStore) Metrics() CacheMetrics {
	return counters{
		requests: atomic.LoadInt64(&s.stats.requests),
		hits:     atomic.LoadInt64(&s.stats.hits),
		misses:   atomic.LoadInt64(&s.stats.misses),
	}.snapshot()
}

// Close закрывает БД
func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
