package block

// GroundWord — упакованные метаданные ячейки патча грунта
type GroundWord uint32

// GroundFlags — флаги ячейки грунта
type GroundFlags uint8

const (
	FlagBoard    GroundFlags = 1 << iota // Ячейка относится к игровой доске
	FlagCavern                           // Под ячейкой разрешены пещеры
	FlagReserved                         // Зарезервировано
)

// Has проверяет наличие флага
func (f GroundFlags) Has(flag GroundFlags) bool {
	return f&flag != 0
}

// Раскладка слова грунта, старшее поле первым
var (
	groundLevel     = NewBitField[GroundWord](14, 9)
	groundBiome     = NewBitField[GroundWord](10, 4)
	groundLandIndex = NewBitField[GroundWord](3, 7)
	groundFlags     = NewBitField[GroundWord](0, 3)
)

// Предельные значения полей грунта
const (
	MaxGroundLevel = 1<<9 - 1
	MaxLandIndex   = 1<<7 - 1
)

// GroundBlockData — распакованные метаданные ячейки грунта
type GroundBlockData struct {
	Level     uint16      // Высота поверхности 0..511
	Biome     Biome       // Биом 0..15
	LandIndex uint8       // Индекс в списке земель биома 0..127
	Flags     GroundFlags // Флаги 0..7
}

// EncodeGround упаковывает метаданные грунта.
// Значения вне диапазона поля молча усекаются до его ширины.
func EncodeGround(d GroundBlockData) GroundWord {
	var w GroundWord
	w = groundLevel.Set(w, uint32(d.Level))
	w = groundBiome.Set(w, uint32(d.Biome))
	w = groundLandIndex.Set(w, uint32(d.LandIndex))
	w = groundFlags.Set(w, uint32(d.Flags))
	return w
}

// DecodeGround распаковывает метаданные грунта
func DecodeGround(w GroundWord) GroundBlockData {
	return GroundBlockData{
		Level:     uint16(groundLevel.Get(w)),
		Biome:     Biome(groundBiome.Get(w)),
		LandIndex: uint8(groundLandIndex.Get(w)),
		Flags:     GroundFlags(groundFlags.Get(w)),
	}
}

// Level возвращает высоту без полной распаковки
func (w GroundWord) Level() int {
	return int(groundLevel.Get(w))
}

// Cavern сообщает, разрешены ли пещеры под ячейкой
func (w GroundWord) Cavern() bool {
	return GroundFlags(groundFlags.Get(w)).Has(FlagCavern)
}
