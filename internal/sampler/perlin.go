package sampler

import (
	"math"

	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world/block"
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав
)

// PerlinGround — рельеф и биомы на шуме Перлина
type PerlinGround struct {
	height      *perlin.Perlin
	climate     *perlin.Perlin
	lands       *block.LandTable
	BaseLevel   float64
	Amplitude   float64
	Scale       float64
	ClimateSize float64
	SeaLevel    int
}

// NewPerlinGround создаёт сэмплер рельефа
func NewPerlinGround(seed int64, lands *block.LandTable) *PerlinGround {
	if lands == nil {
		lands = block.DefaultLandTable()
	}
	return &PerlinGround{
		height:      perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
		climate:     perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed+1),
		lands:       lands,
		BaseLevel:   96,
		Amplitude:   64,
		Scale:       1.0 / 128,
		ClimateSize: 1.0 / 512,
		SeaLevel:    80,
	}
}

// ComputeGroundBlock возвращает метаданные грунта для позиции
func (g *PerlinGround) ComputeGroundBlock(pos vec.Vec2) (block.GroundBlockData, error) {
	x, z := float64(pos.X), float64(pos.Y)

	// Шум в диапазоне [-1, 1]
	h := g.height.Noise2D(x*g.Scale, z*g.Scale)
	level := int(math.Round(g.BaseLevel + g.Amplitude*h))
	level = min(max(level, 1), block.MaxGroundLevel)

	temp := g.climate.Noise2D(x*g.ClimateSize, z*g.ClimateSize)
	moist := g.climate.Noise2D(z*g.ClimateSize+1000, x*g.ClimateSize+1000)
	biome := g.pickBiome(level, temp, moist)

	// Ярус земли растёт с высотой над уровнем моря
	lands := max(g.lands.Lands(biome), 1)
	tier := (level - g.SeaLevel) * lands / int(g.Amplitude+1)
	landIndex := uint8(min(max(tier, 0), lands-1))

	var flags block.GroundFlags
	if level > g.SeaLevel+2 {
		flags |= block.FlagCavern
	}

	return block.GroundBlockData{
		Level:     uint16(level),
		Biome:     biome,
		LandIndex: landIndex,
		Flags:     flags,
	}, nil
}

func (g *PerlinGround) pickBiome(level int, temp, moist float64) block.Biome {
	switch {
	case level < g.SeaLevel-2:
		return block.BiomeOcean
	case level <= g.SeaLevel+1:
		return block.BiomeBeach
	case level > g.SeaLevel+int(g.Amplitude*0.6):
		return block.BiomeMountains
	case temp < -0.3:
		return block.BiomeTundra
	case temp > 0.3 && moist < 0:
		return block.BiomeDesert
	case moist > 0.3:
		return block.BiomeSwamp
	case moist > 0:
		return block.BiomeForest
	default:
		return block.BiomePlains
	}
}

// PerlinCaves — пещеры по трёхмерному шуму
type PerlinCaves struct {
	noise     *perlin.Perlin
	Scale     float64
	Threshold float64
	MinDepth  int // Пещеры не ближе MinDepth блоков к поверхности
}

// NewPerlinCaves создаёт сэмплер пещер
func NewPerlinCaves(seed int64) *PerlinCaves {
	return &PerlinCaves{
		noise:     perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed+2),
		Scale:     1.0 / 24,
		Threshold: 0.35,
		MinDepth:  4,
	}
}

// GetBlockDensity возвращает false для ячеек пещеры
func (c *PerlinCaves) GetBlockDensity(pos vec.Vec3, referenceLevel int) (bool, error) {
	if pos.Y > referenceLevel-c.MinDepth || pos.Y <= 0 {
		return true, nil
	}
	n := c.noise.Noise3D(float64(pos.X)*c.Scale, float64(pos.Y)*c.Scale, float64(pos.Z)*c.Scale)
	return math.Abs(n) < c.Threshold, nil
}
