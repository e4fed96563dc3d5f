package block

// Biome — идентификатор биома (4 бита)
type Biome uint8

const (
	BiomeOcean Biome = iota
	BiomeBeach
	BiomePlains
	BiomeForest
	BiomeDesert
	BiomeSwamp
	BiomeTundra
	BiomeMountains
)

var biomeNames = [...]string{"ocean", "beach", "plains", "forest", "desert", "swamp", "tundra", "mountains"}

func (b Biome) String() string {
	if int(b) < len(biomeNames) {
		return biomeNames[b]
	}
	return "unknown"
}

// LandTable сопоставляет паре (биом, индекс земли) тип блока поверхности.
// Список земель каждого биома упорядочен от нижнего яруса к верхнему.
type LandTable struct {
	lands    map[Biome][]Type
	fallback Type
}

// NewLandTable создаёт таблицу земель с блоком по умолчанию fallback
func NewLandTable(fallback Type) *LandTable {
	return &LandTable{lands: make(map[Biome][]Type), fallback: fallback}
}

// DefaultLandTable возвращает таблицу земель по умолчанию
func DefaultLandTable() *LandTable {
	t := NewLandTable(StoneType)
	t.Set(BiomeOcean, SandType, GravelType, ClayType)
	t.Set(BiomeBeach, SandType, SandstoneType)
	t.Set(BiomePlains, DirtType, GrassType)
	t.Set(BiomeForest, DirtType, GrassType, MudType)
	t.Set(BiomeDesert, SandType, SandstoneType)
	t.Set(BiomeSwamp, MudType, ClayType, GrassType)
	t.Set(BiomeTundra, DirtType, SnowType, IceType)
	t.Set(BiomeMountains, StoneType, GravelType, SnowType)
	return t
}

// Set задаёт упорядоченный список земель биома
func (t *LandTable) Set(b Biome, lands ...Type) {
	t.lands[b] = append([]Type(nil), lands...)
}

// Lands возвращает число земель биома
func (t *LandTable) Lands(b Biome) int {
	return len(t.lands[b])
}

// Material возвращает тип блока для пары (биом, индекс).
// Индекс за пределами списка приводится к последней земле биома.
func (t *LandTable) Material(b Biome, landIndex uint8) Type {
	lands := t.lands[b]
	if len(lands) == 0 {
		return t.fallback
	}
	if int(landIndex) >= len(lands) {
		return lands[len(lands)-1]
	}
	return lands[landIndex]
}
