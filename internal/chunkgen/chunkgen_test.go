package chunkgen

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/annel0/voxelgen/internal/sampler"
	"github.com/annel0/voxelgen/internal/task"
	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world"
	"github.com/annel0/voxelgen/internal/world/block"
	"github.com/annel0/voxelgen/internal/world/container"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv() *world.Env {
	return &world.Env{PatchSize: 4, ChunkHeight: 4, PatchMargin: 1, BottomID: 0, TopID: 6, Seed: 1}
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]*GroundPatch
	sets int
}

func (c *mapCache) Get(key string) (*GroundPatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.data[key]
	return p, ok
}

func (c *mapCache) Set(key string, p *GroundPatch, _ int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = p
	return true
}

func keysOf(stubs []ChunkStub) []string {
	keys := make([]string, 0, len(stubs))
	for _, s := range stubs {
		keys = append(keys, s.Key)
	}
	return keys
}

func TestFullRangeOnFlatGround(t *testing.T) {
	gen := NewGenerator(testEnv(), Deps{Ground: sampler.NewFlat(10, block.BiomePlains)})

	out, err := gen.GenerateChunks(context.Background(), ChunksInput{PatchKey: "0:0", Range: RangeFull}, ChunksParams{SkipItems: true})
	require.NoError(t, err)

	// Верх: 2..3 снизу вверх, пустые 4..6; низ: 1..0 сверху вниз
	assert.Equal(t, []string{"0_2_0", "0_3_0", "0_4_0", "0_5_0", "0_6_0", "0_1_0", "0_0_0"}, keysOf(out.Chunks))

	byKey := make(map[string]ChunkStub)
	for _, s := range out.Chunks {
		byKey[s.Key] = s
	}
	for _, key := range []string{"0_4_0", "0_5_0", "0_6_0"} {
		assert.True(t, byKey[key].Empty, "чанк %s выше поверхности пуст", key)
		assert.Nil(t, byKey[key].Payload)
	}

	surface, err := byKey["0_2_0"].Container()
	require.NoError(t, err)
	top := surface.ReadCell(vec.Vec3{X: 1, Y: 10, Z: 1})
	assert.Equal(t, block.DirtType, top.BlockType, "поверхность равнины — первая земля биома")
	assert.True(t, surface.ReadCell(vec.Vec3{X: 1, Y: 11, Z: 1}).Empty)

	bottom, err := byKey["0_0_0"].Container()
	require.NoError(t, err)
	assert.Equal(t, block.BedrockType, bottom.ReadCell(vec.Vec3{X: 0, Y: 0, Z: 0}).BlockType)
	assert.Equal(t, block.StoneType, bottom.ReadCell(vec.Vec3{X: 0, Y: 3, Z: 0}).BlockType)
}

func TestUpperAndLowerSeparately(t *testing.T) {
	gen := NewGenerator(testEnv(), Deps{Ground: sampler.NewFlat(10, block.BiomePlains)})

	upper, err := gen.GenerateChunks(context.Background(), ChunksInput{PatchKey: "-1:2", Range: RangeUpper}, ChunksParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"-1_2_2", "-1_3_2", "-1_4_2", "-1_5_2", "-1_6_2"}, keysOf(upper.Chunks))

	lower, err := gen.GenerateChunks(context.Background(), ChunksInput{PatchKey: "-1:2", Range: RangeLower}, ChunksParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"-1_1_2", "-1_0_2"}, keysOf(lower.Chunks))
}

func TestBlobRoundTrip(t *testing.T) {
	gen := NewGenerator(testEnv(), Deps{Ground: sampler.NewFlat(10, block.BiomeDesert)})
	ctx := context.Background()
	in := ChunksInput{PatchKey: "3:-2", Range: RangeFull}

	raw, err := gen.GenerateChunks(ctx, in, ChunksParams{})
	require.NoError(t, err)
	packed, err := gen.GenerateChunks(ctx, in, ChunksParams{Blob: true})
	require.NoError(t, err)
	require.NotEmpty(t, packed.Blob)
	assert.Nil(t, packed.Chunks)

	decoded, err := packed.Stubs()
	require.NoError(t, err)
	assert.Equal(t, raw.Chunks, decoded, "метаданные и данные совпадают побайтно")
}

func TestDecodeCorruptBlob(t *testing.T) {
	_, err := DecodeBlob([]byte("not gzip"))
	assert.ErrorIs(t, err, ErrCorruptBlob)

	bounds := vec.Box3{Max: vec.Vec3{X: 1, Y: 2, Z: 1}}
	blob, err := EncodeBlob([]ChunkStub{{Key: "0_0_0", Bounds: bounds, Payload: []byte{1, 2, 3, 4}}})
	require.NoError(t, err)
	_, err = DecodeBlob(blob[:len(blob)-10])
	assert.ErrorIs(t, err, ErrCorruptBlob)

	empty, err := EncodeBlob(nil)
	require.NoError(t, err)
	stubs, err := DecodeBlob(empty)
	require.NoError(t, err)
	assert.Empty(t, stubs)
}

func TestDecodeRejectsMismatchedRecords(t *testing.T) {
	rawRecord := func(meta string, payload []byte) []byte {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		var prefix [4]byte
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(meta)))
		_, _ = zw.Write(prefix[:])
		_, _ = zw.Write([]byte(meta))
		_, _ = zw.Write(payload)
		require.NoError(t, zw.Close())
		return buf.Bytes()
	}
	box := `{"min":{"x":0,"y":0,"z":0},"max":{"x":1,"y":1,"z":1}}`

	cases := map[string][]byte{
		"огромный размер":     rawRecord(`{"key":"0_0_0","bounds":`+box+`,"size":4611686018427387904}`, nil),
		"размер не по рамке":  rawRecord(`{"key":"0_0_0","bounds":`+box+`,"size":4}`, []byte{1, 2, 3, 4}),
		"пустые границы":      rawRecord(`{"key":"0_0_0","size":0,"empty":true}`, nil),
		"вывернутые границы":  rawRecord(`{"key":"0_0_0","bounds":{"min":{"x":4,"y":4,"z":4},"max":{"x":0,"y":0,"z":0}},"size":0,"empty":true}`, nil),
		"отрицательная кайма": rawRecord(`{"key":"0_0_0","bounds":`+box+`,"margin":-1,"size":0,"empty":true}`, nil),
		"гигантская рамка":    rawRecord(`{"key":"0_0_0","bounds":{"min":{"x":0,"y":0,"z":0},"max":{"x":1000000,"y":1000000,"z":1000000}},"size":0,"empty":true}`, nil),
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBlob(blob)
			assert.ErrorIs(t, err, ErrCorruptBlob)
		})
	}

	stubs, err := DecodeBlob(rawRecord(`{"key":"0_0_0","bounds":`+box+`,"size":2}`, []byte{7, 0}))
	require.NoError(t, err)
	require.Len(t, stubs, 1)
	c, err := stubs[0].Container()
	require.NoError(t, err)
	assert.Equal(t, vec.Vec3{X: 1, Y: 1, Z: 1}, c.Dimensions())
}

func TestContainerRejectsInvalidBounds(t *testing.T) {
	for _, b := range []vec.Box3{
		{},
		{Min: vec.Vec3{X: 4, Y: 4, Z: 4}},
		{Max: vec.Vec3{X: 2, Y: 0, Z: 2}},
	} {
		_, err := ChunkStub{Key: "0_0_0", Bounds: b, Empty: true}.Container()
		assert.ErrorIs(t, err, ErrInvalidBounds, "границы %v", b)
	}

	_, err := ChunkStub{Key: "0_0_0", Bounds: vec.Box3{Max: vec.Vec3{X: 1, Y: 1, Z: 1}}, Margin: -1, Empty: true}.Container()
	assert.ErrorIs(t, err, ErrInvalidBounds)
}

func TestMissingGroundSampleBecomesBedrock(t *testing.T) {
	ground := sampler.GroundFunc(func(pos vec.Vec2) (block.GroundBlockData, error) {
		if pos.X == 2 && pos.Y == 2 {
			return block.GroundBlockData{}, sampler.ErrNoSample
		}
		return block.GroundBlockData{Level: 6, Biome: block.BiomePlains, Flags: block.FlagCavern}, nil
	})
	caves := densityFunc(func(vec.Vec3, int) (bool, error) { return false, nil })
	gen := NewGenerator(testEnv(), Deps{Ground: ground, Caves: caves})

	patch, err := gen.bakeGroundPatch("0:0")
	require.NoError(t, err)
	assert.Equal(t, 1, patch.Fallbacks)
	assert.Equal(t, ValueRange{Min: 0, Max: 6}, patch.Range)

	// Минимум высоты 0, поэтому нижний диапазон пуст, а верхний начинается с чанка 0
	lower, err := gen.GenerateChunks(context.Background(), ChunksInput{PatchKey: "0:0", Range: RangeLower}, ChunksParams{})
	require.NoError(t, err)
	assert.Empty(t, lower.Chunks)

	out, err := gen.GenerateChunks(context.Background(), ChunksInput{PatchKey: "0:0", Range: RangeUpper}, ChunksParams{})
	require.NoError(t, err)
	require.NotEmpty(t, out.Chunks)
	require.Equal(t, "0_0_0", out.Chunks[0].Key)
	c, err := out.Chunks[0].Container()
	require.NoError(t, err)

	assert.Equal(t, block.BedrockType, c.ReadCell(vec.Vec3{X: 2, Y: 0, Z: 2}).BlockType)
	assert.True(t, c.ReadCell(vec.Vec3{X: 2, Y: 1, Z: 2}).Empty, "колонка без данных — только коренная порода")
}

type densityFunc func(pos vec.Vec3, ref int) (bool, error)

func (f densityFunc) GetBlockDensity(pos vec.Vec3, ref int) (bool, error) { return f(pos, ref) }

func TestCavesAndDensityErrors(t *testing.T) {
	flat := &sampler.Flat{Data: block.GroundBlockData{Level: 10, Biome: block.BiomePlains, Flags: block.FlagCavern}}
	caves := densityFunc(func(pos vec.Vec3, _ int) (bool, error) {
		switch pos.Y {
		case 5:
			return false, nil // пещера
		case 6:
			return false, errors.New("сэмплер недоступен")
		}
		return true, nil
	})
	gen := NewGenerator(testEnv(), Deps{Ground: flat, Caves: caves})

	bounds := gen.Env().BoundsOfChunkID(vec.Vec3{Y: 1})
	patch, err := gen.groundPatch("0:0")
	require.NoError(t, err)
	c, err := gen.bakeGroundChunk(context.Background(), patch, bounds)
	require.NoError(t, err)

	assert.True(t, c.ReadCell(vec.Vec3{X: 1, Y: 5, Z: 1}).Empty, "пещера вырезана")
	assert.False(t, c.ReadCell(vec.Vec3{X: 1, Y: 6, Z: 1}).Empty, "ошибка сэмплера — ячейка заполнена")
	assert.False(t, c.ReadCell(vec.Vec3{X: 1, Y: 4, Z: 1}).Empty)
}

type staticItems struct {
	c *container.ChunkContainer
}

func (s staticItems) MergeIndividualChunks(context.Context, string) (*container.ChunkContainer, error) {
	return s.c, nil
}

func TestItemsRaiseSpanAndGroundWins(t *testing.T) {
	env := testEnv()
	items := container.NewChunkContainer(vec.Box3{
		Min: vec.Vec3{X: 0, Y: 10, Z: 0},
		Max: vec.Vec3{X: 4, Y: 18, Z: 4},
	}, 0)
	tree := block.SolidCell(block.TreeType, false)
	for y := 10; y < 18; y++ {
		require.NoError(t, items.WriteCell(vec.Vec3{X: 2, Y: y, Z: 2}, tree))
	}

	gen := NewGenerator(env, Deps{Ground: sampler.NewFlat(10, block.BiomePlains), Items: staticItems{items}})
	out, err := gen.GenerateChunks(context.Background(), ChunksInput{PatchKey: "0:0", Range: RangeUpper}, ChunksParams{})
	require.NoError(t, err)
	// Предметы до высоты 17: диапазон 2..ceil(17/4)=5, пустой только 6
	assert.Equal(t, []string{"0_2_0", "0_3_0", "0_4_0", "0_5_0", "0_6_0"}, keysOf(out.Chunks))
	assert.False(t, out.Chunks[2].Empty, "чанк 4 содержит верх дерева")
	assert.True(t, out.Chunks[3].Empty, "чанк 5 выше дерева пуст")

	c, err := out.Chunks[0].Container()
	require.NoError(t, err)
	assert.Equal(t, block.DirtType, c.ReadCell(vec.Vec3{X: 2, Y: 10, Z: 2}).BlockType, "грунт побеждает предмет")
	assert.Equal(t, block.TreeType, c.ReadCell(vec.Vec3{X: 2, Y: 11, Z: 2}).BlockType)

	skipped, err := gen.GenerateChunks(context.Background(), ChunksInput{PatchKey: "0:0", Range: RangeUpper}, ChunksParams{SkipItems: true})
	require.NoError(t, err)
	assert.Len(t, skipped.Chunks, 5, "span 2..3 и пустые 4..6")
	assert.True(t, skipped.Chunks[2].Empty)
}

func TestGroundCacheReuse(t *testing.T) {
	cache := &mapCache{data: make(map[string]*GroundPatch)}
	gen := NewGenerator(testEnv(), Deps{Ground: sampler.NewFlat(7, block.BiomeForest), Cache: cache})

	out, err := gen.GenerateGround(context.Background(), GroundInput{Positions: []vec.Vec2{{X: 0, Y: 0}, {X: 1, Y: 3}, {X: -1, Y: 0}}}, struct{}{})
	require.NoError(t, err)
	require.Len(t, out.Blocks, 3)
	assert.Equal(t, uint16(7), out.Blocks[2].Level)
	assert.Equal(t, 2, cache.sets, "две позиции в одном патче, третья в соседнем")

	_, err = gen.GenerateChunks(context.Background(), ChunksInput{PatchKey: "0:0", Range: RangeUpper}, ChunksParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.sets, "патч взят из кэша")
}

func TestMalformedInput(t *testing.T) {
	gen := NewGenerator(testEnv(), Deps{Ground: sampler.NewFlat(1, block.BiomePlains)})
	_, err := gen.GenerateChunks(context.Background(), ChunksInput{PatchKey: "bad"}, ChunksParams{})
	assert.Error(t, err)
	_, err = gen.GenerateChunks(context.Background(), ChunksInput{PatchKey: "0:0", Range: "sideways"}, ChunksParams{})
	assert.Error(t, err)
	_, err = gen.GenerateItems(context.Background(), ItemsInput{PatchKey: ""}, struct{}{})
	assert.Error(t, err)
}

func TestRegisteredHandlersThroughTable(t *testing.T) {
	gen := NewGenerator(testEnv(), Deps{Ground: sampler.NewFlat(10, block.BiomePlains)})
	table := task.NewTable()
	Register(table, gen)
	require.NoError(t, table.Validate())

	ctx := context.Background()
	chunks := NewChunksTask("0:0", RangeUpper, ChunksParams{Blob: true})
	assert.Equal(t, task.StateScheduled, chunks.State())
	_, err := chunks.Process(ctx, table)
	require.NoError(t, err)
	out, err := chunks.Await(ctx)
	require.NoError(t, err)
	stubs, err := out.Stubs()
	require.NoError(t, err)
	assert.Len(t, stubs, 5)

	items := NewItemsTask("0:0")
	_, err = items.Process(ctx, table)
	require.NoError(t, err)
	stub, err := items.Await(ctx)
	require.NoError(t, err)
	assert.True(t, stub.Empty)

	ground := NewGroundTask([]vec.Vec2{{X: 5, Y: 5}})
	_, err = ground.Process(ctx, table)
	require.NoError(t, err)
	g, err := ground.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), g.Blocks[0].Level)
}
