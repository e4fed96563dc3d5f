package sampler

import (
	"context"
	"testing"

	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world"
	"github.com/annel0/voxelgen/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerlinGroundIsDeterministicAndInRange(t *testing.T) {
	a := NewPerlinGround(42, nil)
	b := NewPerlinGround(42, nil)
	lands := block.DefaultLandTable()

	for x := -50; x < 50; x += 7 {
		for z := -50; z < 50; z += 11 {
			pos := vec.Vec2{X: x, Y: z}
			ga, err := a.ComputeGroundBlock(pos)
			require.NoError(t, err)
			gb, _ := b.ComputeGroundBlock(pos)
			require.Equal(t, ga, gb, "одинаковый сид даёт одинаковый рельеф")

			assert.LessOrEqual(t, int(ga.Level), block.MaxGroundLevel)
			assert.Less(t, int(ga.LandIndex), max(lands.Lands(ga.Biome), 1))
			assert.Equal(t, ga, block.DecodeGround(block.EncodeGround(ga)))
		}
	}
}

func TestPerlinCavesRespectDepth(t *testing.T) {
	c := NewPerlinCaves(1)
	for y := 60; y <= 64; y++ {
		solid, err := c.GetBlockDensity(vec.Vec3{X: 3, Y: y, Z: 5}, 64)
		require.NoError(t, err)
		assert.True(t, solid, "у поверхности пещер нет")
	}
	solid, _ := c.GetBlockDensity(vec.Vec3{Y: 0}, 64)
	assert.True(t, solid, "нижний слой всегда заполнен")
}

func TestFlatAndDefaults(t *testing.T) {
	g, err := NewFlat(10, block.BiomePlains).ComputeGroundBlock(vec.Vec2{X: 100, Y: -3})
	require.NoError(t, err)
	assert.Equal(t, uint16(10), g.Level)

	solid, err := Solid{}.GetBlockDensity(vec.Vec3{}, 0)
	require.NoError(t, err)
	assert.True(t, solid)

	items, err := NoItems{}.MergeIndividualChunks(context.Background(), "0:0")
	assert.NoError(t, err)
	assert.Nil(t, items)
}

func TestScatterItems(t *testing.T) {
	env := &world.Env{PatchSize: 16, ChunkHeight: 16, TopID: 4, Seed: 7}
	s := NewScatterItems(env, NewFlat(20, block.BiomeForest), 1)

	items, err := s.MergeIndividualChunks(context.Background(), "1:0")
	require.NoError(t, err)
	require.NotNil(t, items)

	assert.Equal(t, 21, items.Bounds().Min.Y)
	assert.Equal(t, 21+treeHeight, items.Bounds().Max.Y)
	cell := items.ReadCell(vec.Vec3{X: 16, Y: 22, Z: 0})
	assert.Equal(t, block.TreeType, cell.BlockType, "при плотности 1 дерево в каждой клетке")

	_, err = s.MergeIndividualChunks(context.Background(), "oops")
	assert.Error(t, err)

	none, err := NewScatterItems(env, NewFlat(20, block.BiomeOcean), 1).MergeIndividualChunks(context.Background(), "0:0")
	require.NoError(t, err)
	assert.Nil(t, none, "в океане деревьев нет")
}
