package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/voxelgen/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig — параметры подключения к Redis
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// RedisCache — общий горячий кеш блобов в Redis с чтением из ColdStorage при промахе
type RedisCache struct {
	client      *redis.Client
	config      RedisConfig
	coldStorage ColdStorage
	stats       counters
	logger      *logging.Logger
}

// NewRedisCache подключается к Redis. coldStorage может быть nil.
func NewRedisCache(config RedisConfig, coldStorage ColdStorage) (*RedisCache, error) {
	// Настройки по умолчанию
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	if config.MaxTTL == 0 {
		config.MaxTTL = time.Hour
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger := logging.GetCacheLogger()
	logger.Info("Redis кеш блобов подключён: %s", config.Addr)
	return &RedisCache{client: rdb, config: config, coldStorage: coldStorage, logger: logger}, nil
}

// Get получает значение из Redis, при промахе пробует ColdStorage
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	atomic.AddInt64(&r.stats.requests, 1)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		atomic.AddInt64(&r.stats.hits, 1)
		return val, nil
	}
	if !errors.Is(err, redis.Nil) {
		atomic.AddInt64(&r.stats.misses, 1)
		r.logger.Error("Redis Get error for key %s: %v", key, err)
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	// Read-Through из холодного хранилища
	if r.coldStorage != nil {
		val, err := r.coldStorage.Load(ctx, key)
		if err == nil {
			atomic.AddInt64(&r.stats.hits, 1)
			if err := r.client.Set(ctx, key, val, r.config.DefaultTTL).Err(); err != nil {
				r.logger.Warn("Redis прогрев ключа %s не удался: %v", key, err)
			}
			return val, nil
		}
		r.logger.Debug("Cold storage miss for key %s: %v", key, err)
	}

	atomic.AddInt64(&r.stats.misses, 1)
	return nil, ErrCacheMiss
}

// Set сохраняет значение в Redis и в ColdStorage
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 || ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	if r.coldStorage != nil {
		if err := r.coldStorage.Store(ctx, key, value); err != nil {
			r.logger.Warn("cold storage write %s: %v", key, err)
		}
	}
	return nil
}

// Delete удаляет ключ из Redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Metrics возвращает метрики
func (r *RedisCache) Metrics() CacheMetrics {
	return counters{
		requests: atomic.LoadInt64(&r.stats.requests),
		hits:     atomic.LoadInt64(&r.stats.hits),
		misses:   atomic.LoadInt64(&r.stats.misses),
	}.snapshot()
}

// Close закрывает клиент Redis и холодное хранилище
func (r *RedisCache) Close() error {
	err := r.client.Close()
	if r.coldStorage != nil {
		err = errors.Join(err, r.coldStorage.Close())
	}
	return err
}
