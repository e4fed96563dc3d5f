package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/annel0/voxelgen/internal/cache"
	"github.com/annel0/voxelgen/internal/chunkgen"
	"github.com/annel0/voxelgen/internal/eventbus"
	"github.com/annel0/voxelgen/internal/logging"
	"github.com/annel0/voxelgen/internal/task"
)

// Предельное время одной генерации блоба
const generateTimeout = 2 * time.Minute

// ChunkService выдаёт сжатые блобы чанков патча: из кеша блобов
// либо через задачу в пуле. Одновременные запросы одного блоба объединяются.
type ChunkService struct {
	pool    task.Delegator
	store   cache.BlobStore
	bus     eventbus.EventBus
	ttl     time.Duration
	timeout time.Duration
	source  string
	group   singleflight.Group
	logger  *logging.Logger
}

// NewChunkService создаёт сервис. store и bus могут быть nil.
func NewChunkService(pool task.Delegator, store cache.BlobStore, bus eventbus.EventBus, ttl time.Duration) *ChunkService {
	return &ChunkService{
		pool:    pool,
		store:   store,
		bus:     bus,
		ttl:     ttl,
		timeout: generateTimeout,
		source:  "chunkgen",
		logger:  logging.GetChunkgenLogger(),
	}
}

// Blob возвращает блоб диапазона rng патча patchKey
func (s *ChunkService) Blob(ctx context.Context, patchKey string, rng chunkgen.Range) ([]byte, error) {
	key := cache.BlobKey(patchKey, string(rng))
	if s.store != nil {
		data, err := s.store.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		if !cache.IsCacheMiss(err) {
			s.logger.Warn("кеш блобов недоступен (%s): %v", key, err)
		}
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// Генерация общая для всех ожидающих и не зависит от отмены первого из них
		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		t := chunkgen.NewChunksTask(patchKey, rng, chunkgen.ChunksParams{Blob: true})
		t.Delegate(s.pool)
		out, err := t.Await(gctx)
		if err != nil {
			t.Cancel()
			return nil, fmt.Errorf("generate %s: %w", key, err)
		}
		if out.Blob == nil {
			return nil, fmt.Errorf("generate %s: empty result", key)
		}
		s.Publish(gctx, out)
		return out.Blob, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Publish кладёт готовый результат в кеш блобов и объявляет его в шине событий
func (s *ChunkService) Publish(ctx context.Context, out chunkgen.ChunksOutput) {
	if s.store != nil && out.Blob != nil {
		key := cache.BlobKey(out.PatchKey, string(out.Range))
		if err := s.store.Set(ctx, key, out.Blob, s.ttl); err != nil {
			s.logger.Warn("не удалось сохранить блоб %s: %v", key, err)
		}
	}
	if s.bus == nil {
		return
	}

	stubs, err := out.Stubs()
	if err != nil {
		s.logger.Warn("блоб %s/%s не читается: %v", out.PatchKey, out.Range, err)
		return
	}
	payload := eventbus.ChunksGenerated{
		PatchKey: out.PatchKey,
		Range:    string(out.Range),
		Chunks:   make([]string, 0, len(stubs)),
		BlobSize: len(out.Blob),
	}
	for _, st := range stubs {
		payload.Chunks = append(payload.Chunks, st.Key)
		if st.Empty {
			payload.Empty++
		}
	}

	ev, err := eventbus.NewEnvelope(s.source, eventbus.EventChunksGenerated, payload)
	if err != nil {
		s.logger.Error("%v", err)
		return
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.logger.Warn("публикация %s: %v", eventbus.EventChunksGenerated, err)
	}
}
