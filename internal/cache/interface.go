package cache

import (
	"context"
	"errors"
	"time"
)

// BlobStore хранит готовые блобы чанков по ключу.
//
// Использование:
//
//	store := NewBadgerStore("")
//	data, err := store.Get(ctx, "chunks:0:0:full")
//	err = store.Set(ctx, "chunks:0:0:full", data, time.Minute)
type BlobStore interface {
	// Get получает значение по ключу.
	// Возвращает ErrCacheMiss если ключ не найден.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с указанным TTL.
	// TTL = 0 означает отсутствие истечения.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ.
	Delete(ctx context.Context, key string) error

	// Close освобождает ресурсы.
	Close() error

	// Metrics возвращает метрики.
	Metrics() CacheMetrics
}

// ColdStorage — второй уровень хранения, используемый при промахе горячего кеша.
type ColdStorage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, value []byte) error
	Close() error
}

// CacheMetrics содержит метрики кеша.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`
}

// Ошибки кеша
var (
	ErrCacheMiss = errors.New("cache miss")
	ErrClosed    = errors.New("cache closed")
)

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// BlobKey формирует ключ блоба чанков патча
func BlobKey(patchKey, rng string) string {
	return "chunks:" + patchKey + ":" + rng
}

// counters — общие счётчики попаданий
type counters struct {
	requests, hits, misses int64
}

func (c counters) snapshot() CacheMetrics {
	m := CacheMetrics{TotalRequests: c.requests, CacheHits: c.hits, CacheMisses: c.misses}
	if m.TotalRequests > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(m.TotalRequests)
	}
	return m
}
