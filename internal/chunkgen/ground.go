package chunkgen

import (
	"fmt"
	"math"

	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world"
	"github.com/annel0/voxelgen/internal/world/block"
	"github.com/annel0/voxelgen/internal/world/container"
)

// ValueRange — диапазон высот поверхности патча
type ValueRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// GroundPatch — запечённый грунт патча вместе с каймой
type GroundPatch struct {
	*container.PatchContainer[block.GroundWord]
	Key       string
	Range     ValueRange
	Fallbacks int // Ячейки, для которых сэмплер не дал данных
}

// Cost возвращает размер данных патча в байтах (для кэша)
func (p *GroundPatch) Cost() int64 {
	return int64(len(p.Data()) * 4)
}

// GroundCache хранит запечённые патчи грунта по ключу патча
type GroundCache interface {
	Get(key string) (*GroundPatch, bool)
	Set(key string, p *GroundPatch, cost int64) bool
}

// bakeGroundPatch опрашивает сэмплер грунта по всем ячейкам патча с каймой.
// Ячейка без данных становится коренной породой на высоте 0 без пещер.
func (g *Generator) bakeGroundPatch(key string) (*GroundPatch, error) {
	bounds, ok := g.env.BoundsOfPatch(key)
	if !ok {
		return nil, fmt.Errorf("bake ground %q: malformed patch key", key)
	}

	patch := &GroundPatch{
		PatchContainer: container.NewPatchContainer[block.GroundWord](bounds, g.env.PatchMargin),
		Key:            key,
		Range:          ValueRange{Min: math.MaxInt, Max: math.MinInt},
	}
	data := patch.Data()
	for cell := range patch.IterData(nil, true) {
		d, err := g.ground.ComputeGroundBlock(cell.Pos)
		if err != nil {
			d = block.GroundBlockData{}
			patch.Fallbacks++
		}
		data[cell.Index] = block.EncodeGround(d)

		if bounds.Contains(cell.Pos) {
			patch.Range.Min = min(patch.Range.Min, int(d.Level))
			patch.Range.Max = max(patch.Range.Max, int(d.Level))
		}
	}

	if patch.Fallbacks > 0 {
		g.logger.Debug("патч %s: %d ячеек без данных грунта заменены коренной породой", key, patch.Fallbacks)
	}
	return patch, nil
}

// groundPatch возвращает патч из кэша или запекает его
func (g *Generator) groundPatch(key string) (*GroundPatch, error) {
	if g.cache != nil {
		if p, ok := g.cache.Get(key); ok {
			return p, nil
		}
	}
	p, err := g.bakeGroundPatch(key)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		g.cache.Set(key, p, p.Cost())
	}
	return p, nil
}

// GroundAt возвращает метаданные грунта для мировой позиции через кэш патчей
func (g *Generator) GroundAt(pos vec.Vec2) (block.GroundBlockData, error) {
	key := world.SerializePatchKey(g.env.ToPatchID(pos))
	p, err := g.groundPatch(key)
	if err != nil {
		return block.GroundBlockData{}, err
	}
	w, _ := p.Read(pos)
	return block.DecodeGround(w), nil
}
