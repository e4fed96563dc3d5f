package chunkgen

import (
	"context"
	"fmt"

	"github.com/annel0/voxelgen/internal/task"
	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world"
	"github.com/annel0/voxelgen/internal/world/block"
)

// ChunksTask — задача генерации чанков патча
type ChunksTask = task.Task[ChunksInput, ChunksParams, ChunksOutput]

// GroundInput — позиции (x, z), для которых нужен грунт
type GroundInput struct {
	Positions []vec.Vec2 `json:"positions"`
}

// GroundOutput — метаданные грунта в порядке запроса
type GroundOutput struct {
	Blocks []block.GroundBlockData `json:"blocks"`
}

// GroundTask — задача получения блоков грунта
type GroundTask = task.Task[GroundInput, struct{}, GroundOutput]

// ItemsInput — патч, для которого нужны предметы
type ItemsInput struct {
	PatchKey string `json:"patchKey"`
}

// ItemsTask — задача сборки чанка предметов патча
type ItemsTask = task.Task[ItemsInput, struct{}, ChunkStub]

// NewChunksTask создаёт задачу генерации чанков
func NewChunksTask(patchKey string, rng Range, params ChunksParams) *ChunksTask {
	t := task.New[ChunksInput, ChunksParams, ChunksOutput](task.KindChunks,
		ChunksInput{PatchKey: patchKey, Range: rng}, params)
	_ = t.Schedule()
	return t
}

// NewGroundTask создаёт задачу получения блоков грунта
func NewGroundTask(positions []vec.Vec2) *GroundTask {
	t := task.New[GroundInput, struct{}, GroundOutput](task.KindGround, GroundInput{Positions: positions}, struct{}{})
	_ = t.Schedule()
	return t
}

// NewItemsTask создаёт задачу сборки предметов патча
func NewItemsTask(patchKey string) *ItemsTask {
	t := task.New[ItemsInput, struct{}, ChunkStub](task.KindItems, ItemsInput{PatchKey: patchKey}, struct{}{})
	_ = t.Schedule()
	return t
}

// GenerateGround — обработчик задачи блоков грунта
func (g *Generator) GenerateGround(ctx context.Context, in GroundInput, _ struct{}) (GroundOutput, error) {
	out := GroundOutput{Blocks: make([]block.GroundBlockData, 0, len(in.Positions))}
	for _, pos := range in.Positions {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		d, err := g.GroundAt(pos)
		if err != nil {
			return out, err
		}
		out.Blocks = append(out.Blocks, d)
	}
	return out, nil
}

// GenerateItems — обработчик задачи предметов патча
func (g *Generator) GenerateItems(ctx context.Context, in ItemsInput, _ struct{}) (ChunkStub, error) {
	if _, ok := world.ParsePatchKey(in.PatchKey); !ok {
		return ChunkStub{}, fmt.Errorf("malformed patch key %q", in.PatchKey)
	}
	items, err := g.items.MergeIndividualChunks(ctx, in.PatchKey)
	if err != nil {
		return ChunkStub{}, err
	}
	if items == nil {
		bounds, _ := g.env.BoundsOfPatch(in.PatchKey)
		box := vec.Box3{
			Min: vec.Vec3{X: bounds.Min.X, Z: bounds.Min.Y},
			Max: vec.Vec3{X: bounds.Max.X, Z: bounds.Max.Y},
		}
		return EmptyChunkStub(in.PatchKey, box, 0), nil
	}
	return NewChunkStub(in.PatchKey, items), nil
}

// Register заполняет таблицу обработчиков всеми семействами задач генератора
func Register(table task.Table, g *Generator) {
	table.Register(task.KindChunks, task.HandlerFunc[ChunksInput, ChunksParams, ChunksOutput](g.GenerateChunks))
	table.Register(task.KindGround, task.HandlerFunc[GroundInput, struct{}, GroundOutput](g.GenerateGround))
	table.Register(task.KindItems, task.HandlerFunc[ItemsInput, struct{}, ChunkStub](g.GenerateItems))
}
