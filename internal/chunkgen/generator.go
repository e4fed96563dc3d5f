package chunkgen

import (
	"context"
	"fmt"

	"github.com/annel0/voxelgen/internal/logging"
	"github.com/annel0/voxelgen/internal/sampler"
	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world"
	"github.com/annel0/voxelgen/internal/world/block"
	"github.com/annel0/voxelgen/internal/world/container"
)

// Глубина подповерхностного слоя в блоках
const subsurfaceDepth = 3

// Deps — внешние поставщики данных генератора. Пустые поля заменяются значениями по умолчанию.
type Deps struct {
	Ground sampler.GroundSampler
	Caves  sampler.DensitySampler
	Items  sampler.ItemsProvider
	Lands  *block.LandTable
	Cache  GroundCache
	Logger *logging.Logger
}

// Generator запекает грунт и чанки патчей. Безопасен для параллельного вызова:
// каждая задача строит собственные контейнеры.
type Generator struct {
	env    *world.Env
	ground sampler.GroundSampler
	caves  sampler.DensitySampler
	items  sampler.ItemsProvider
	lands  *block.LandTable
	cache  GroundCache
	logger *logging.Logger
}

// NewGenerator создаёт генератор
func NewGenerator(env *world.Env, deps Deps) *Generator {
	if deps.Ground == nil {
		deps.Ground = sampler.NewPerlinGround(env.Seed, deps.Lands)
	}
	if deps.Caves == nil {
		deps.Caves = sampler.Solid{}
	}
	if deps.Items == nil {
		deps.Items = sampler.NoItems{}
	}
	if deps.Lands == nil {
		deps.Lands = block.DefaultLandTable()
	}
	if deps.Logger == nil {
		deps.Logger = logging.GetChunkgenLogger()
	}
	return &Generator{
		env:    env,
		ground: deps.Ground,
		caves:  deps.Caves,
		items:  deps.Items,
		lands:  deps.Lands,
		cache:  deps.Cache,
		logger: deps.Logger,
	}
}

// Env возвращает окружение мира
func (g *Generator) Env() *world.Env { return g.env }

// chunkBox возвращает границы чанка столба патча
func (g *Generator) chunkBox(patchID vec.Vec2, y int) (vec.Box3, string) {
	id := vec.Vec3{X: patchID.X, Y: y, Z: patchID.Y}
	return g.env.BoundsOfChunkID(id), world.SerializeChunkKey(id)
}

// material выбирает блок для высоты y в колонке с поверхностью level
func (g *Generator) material(d block.GroundBlockData, y, floorY int) block.Type {
	level := int(d.Level)
	switch {
	case y <= floorY:
		return block.BedrockType
	case y == level:
		return g.lands.Material(d.Biome, d.LandIndex)
	case y > level-subsurfaceDepth:
		return g.lands.Material(d.Biome, 0)
	default:
		return block.StoneType
	}
}

// bakeGroundChunk заполняет чанк грунтом и пещерами по запечённому патчу.
// Ошибка сэмплера плотности оставляет ячейку заполненной.
func (g *Generator) bakeGroundChunk(ctx context.Context, ground *GroundPatch, bounds vec.Box3) (*container.ChunkContainer, error) {
	chunk := container.NewChunkContainer(bounds, g.env.PatchMargin)
	ext := chunk.ExtendedBounds()
	floorY := g.env.BottomID * g.env.ChunkHeight

	for z := ext.Min.Z; z < ext.Max.Z; z++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := ext.Min.X; x < ext.Max.X; x++ {
			w, ok := ground.Read(vec.Vec2{X: x, Y: z})
			if !ok {
				continue
			}
			d := block.DecodeGround(w)
			level := int(d.Level)
			top := min(ext.Max.Y-1, level)
			for y := ext.Min.Y; y <= top; y++ {
				pos := vec.Vec3{X: x, Y: y, Z: z}
				if d.Flags.Has(block.FlagCavern) && y < level-1 && y > floorY {
					if solid, err := g.caves.GetBlockDensity(pos, level); err == nil && !solid {
						continue
					}
				}
				cell := block.SolidCell(g.material(d, y, floorY), (x+y+z)&1 == 1)
				if err := chunk.WriteCell(pos, cell); err != nil {
					return nil, fmt.Errorf("bake chunk %v: %w", bounds.Min, err)
				}
			}
		}
	}
	return chunk, nil
}

// bakeChunk собирает один чанк: сначала предметы, затем грунт поверх (грунт побеждает)
func (g *Generator) bakeChunk(ctx context.Context, ground *GroundPatch, items *container.ChunkContainer, bounds vec.Box3) (*container.ChunkContainer, error) {
	layer, err := g.bakeGroundChunk(ctx, ground, bounds)
	if err != nil {
		return nil, err
	}
	if items == nil {
		return layer, nil
	}

	target := container.NewChunkContainer(bounds, g.env.PatchMargin)
	if err := items.CopyContentToTarget(target, true); err != nil {
		return nil, fmt.Errorf("copy items: %w", err)
	}
	if err := layer.CopyContentToTarget(target, true); err != nil {
		return nil, fmt.Errorf("copy ground: %w", err)
	}
	return target, nil
}
