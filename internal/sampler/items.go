package sampler

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world"
	"github.com/annel0/voxelgen/internal/world/block"
	"github.com/annel0/voxelgen/internal/world/container"
	"github.com/cespare/xxhash/v2"
)

// Высота дерева над поверхностью
const treeHeight = 4

// ScatterItems расставляет деревья по патчу детерминированно по хешу позиции
type ScatterItems struct {
	env     *world.Env
	ground  GroundSampler
	Density uint64 // В среднем одно дерево на Density клеток
}

// NewScatterItems создаёт поставщика предметов
func NewScatterItems(env *world.Env, ground GroundSampler, density uint64) *ScatterItems {
	if density == 0 {
		density = 97
	}
	return &ScatterItems{env: env, ground: ground, Density: density}
}

func (s *ScatterItems) hit(pos vec.Vec2) bool {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(s.env.Seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(pos.X)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(pos.Y)))
	return xxhash.Sum64(buf[:])%s.Density == 0
}

// MergeIndividualChunks собирает все деревья патча в один столб
func (s *ScatterItems) MergeIndividualChunks(ctx context.Context, patchKey string) (*container.ChunkContainer, error) {
	bounds, ok := s.env.BoundsOfPatch(patchKey)
	if !ok {
		return nil, fmt.Errorf("malformed patch key %q", patchKey)
	}

	type tree struct {
		pos   vec.Vec2
		level int
	}
	var trees []tree
	minY, maxY := block.MaxGroundLevel+1, 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pos := vec.Vec2{X: x, Y: y}
			if !s.hit(pos) {
				continue
			}
			g, err := s.ground.ComputeGroundBlock(pos)
			if err != nil || g.Biome == block.BiomeOcean {
				continue
			}
			trees = append(trees, tree{pos: pos, level: int(g.Level)})
			minY = min(minY, int(g.Level)+1)
			maxY = max(maxY, int(g.Level)+1+treeHeight)
		}
	}
	if len(trees) == 0 {
		return nil, nil
	}

	box := vec.Box3{
		Min: vec.Vec3{X: bounds.Min.X, Y: minY, Z: bounds.Min.Y},
		Max: vec.Vec3{X: bounds.Max.X, Y: maxY, Z: bounds.Max.Y},
	}
	items := container.NewChunkContainer(box, 0)
	for _, t := range trees {
		for dy := 1; dy <= treeHeight; dy++ {
			p := vec.Vec3{X: t.pos.X, Y: t.level + dy, Z: t.pos.Y}
			if err := items.WriteCell(p, block.SolidCell(block.TreeType, false)); err != nil {
				return nil, err
			}
		}
	}
	return items, nil
}
