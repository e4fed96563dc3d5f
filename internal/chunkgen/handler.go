package chunkgen

import (
	"context"
	"fmt"

	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world"
	"github.com/annel0/voxelgen/internal/world/container"
)

// Range — выбор части столба чанков
type Range string

const (
	RangeLower Range = "lower" // Ниже поверхности
	RangeUpper Range = "upper" // Поверхность и выше
	RangeFull  Range = "full"  // Оба диапазона
)

// ParseRange разбирает имя диапазона
func ParseRange(s string) (Range, bool) {
	switch r := Range(s); r {
	case RangeLower, RangeUpper, RangeFull:
		return r, true
	case "":
		return RangeFull, true
	default:
		return "", false
	}
}

func (r Range) upper() bool { return r == RangeUpper || r == RangeFull }
func (r Range) lower() bool { return r == RangeLower || r == RangeFull }

// ChunksInput — вход задачи генерации чанков
type ChunksInput struct {
	PatchKey string `json:"patchKey"`
	Range    Range  `json:"range"`
}

// ChunksParams — параметры задачи генерации чанков
type ChunksParams struct {
	Blob      bool `json:"blob"`
	SkipItems bool `json:"skipItems"`
}

// ChunksOutput — результат: заглушки чанков либо сжатый блоб
type ChunksOutput struct {
	PatchKey string      `json:"patchKey"`
	Range    Range       `json:"range"`
	Chunks   []ChunkStub `json:"chunks,omitempty"`
	Blob     []byte      `json:"blob,omitempty"`
}

// Stubs возвращает заглушки, распаковывая блоб при необходимости
func (o ChunksOutput) Stubs() ([]ChunkStub, error) {
	if o.Blob != nil {
		return DecodeBlob(o.Blob)
	}
	return o.Chunks, nil
}

// GenerateChunks — обработчик задачи генерации чанков патча.
// Верхний диапазон идёт снизу вверх с пустыми чанками до верхнего id,
// нижний — сверху вниз до нижнего id. Сбой одного чанка отбрасывает только его.
func (g *Generator) GenerateChunks(ctx context.Context, in ChunksInput, p ChunksParams) (ChunksOutput, error) {
	out := ChunksOutput{PatchKey: in.PatchKey, Range: in.Range}
	rng, ok := ParseRange(string(in.Range))
	if !ok {
		return out, fmt.Errorf("unknown range %q", in.Range)
	}
	out.Range = rng

	patchID, ok := world.ParsePatchKey(in.PatchKey)
	if !ok {
		return out, fmt.Errorf("malformed patch key %q", in.PatchKey)
	}
	ground, err := g.groundPatch(in.PatchKey)
	if err != nil {
		return out, err
	}

	h := g.env.ChunkHeight
	var stubs []ChunkStub

	if rng.upper() {
		var items *container.ChunkContainer
		maxLevel := ground.Range.Max
		if !p.SkipItems {
			items, err = g.items.MergeIndividualChunks(ctx, in.PatchKey)
			if err != nil {
				g.logger.Warn("патч %s: предметы пропущены: %v", in.PatchKey, err)
				items = nil
			}
			if items != nil && !items.Bounds().Empty() {
				maxLevel = max(maxLevel, items.Bounds().Max.Y-1)
			}
		}

		from, to := g.env.ChunkSpan(ground.Range.Min, maxLevel)
		for y := from; y <= to; y++ {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			bounds, key := g.chunkBox(patchID, y)
			chunk, err := g.bakeChunk(ctx, ground, items, bounds)
			if err != nil {
				g.logger.Error("чанк %s отброшен: %v", key, err)
				continue
			}
			stubs = append(stubs, NewChunkStub(key, chunk))
		}
		for y := max(to+1, g.env.BottomID); y <= g.env.TopID; y++ {
			bounds, key := g.chunkBox(patchID, y)
			stubs = append(stubs, EmptyChunkStub(key, bounds, g.env.PatchMargin))
		}
	}

	if rng.lower() {
		start := min(vec.FloorDiv(ground.Range.Min, h)-1, g.env.TopID)
		for y := start; y >= g.env.BottomID; y-- {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			bounds, key := g.chunkBox(patchID, y)
			chunk, err := g.bakeChunk(ctx, ground, nil, bounds)
			if err != nil {
				g.logger.Error("чанк %s отброшен: %v", key, err)
				continue
			}
			stubs = append(stubs, NewChunkStub(key, chunk))
		}
	}

	if !p.Blob {
		out.Chunks = stubs
		return out, nil
	}
	if out.Blob, err = EncodeBlob(stubs); err != nil {
		return out, fmt.Errorf("encode blob %s: %w", in.PatchKey, err)
	}
	return out, nil
}
