package cache

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// PatchCache — ограниченный по стоимости кеш запечённых патчей в памяти процесса
type PatchCache[V any] struct {
	c *ristretto.Cache
}

// NewPatchCache создаёт кеш с бюджетом maxCost (в единицах стоимости записей, обычно байтах)
func NewPatchCache[V any](maxCost int64) (*PatchCache[V], error) {
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create patch cache: %w", err)
	}
	return &PatchCache[V]{c: c}, nil
}

// Get возвращает значение по ключу
func (p *PatchCache[V]) Get(key string) (V, bool) {
	var zero V
	v, ok := p.c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(V)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Set кладёт значение. Запись может быть отклонена политикой вытеснения.
func (p *PatchCache[V]) Set(key string, v V, cost int64) bool {
	return p.c.Set(key, v, cost)
}

// Wait дожидается применения буферизованных записей
func (p *PatchCache[V]) Wait() { p.c.Wait() }

// Del удаляет ключ
func (p *PatchCache[V]) Del(key string) { p.c.Del(key) }

// Metrics возвращает метрики кеша
func (p *PatchCache[V]) Metrics() CacheMetrics {
	m := p.c.Metrics
	hits, misses := int64(m.Hits()), int64(m.Misses())
	return counters{requests: hits + misses, hits: hits, misses: misses}.snapshot()
}

// Close освобождает ресурсы
func (p *PatchCache[V]) Close() { p.c.Close() }
