package block

// ChunkWord — упакованное содержимое ячейки чанка.
// Нулевое слово означает пустую ячейку.
type ChunkWord uint16

// EmptyWord — сентинел пустой ячейки
const EmptyWord ChunkWord = 0

// DataType — дискриминант содержимого ячейки
type DataType uint8

const (
	DataSolid  DataType = iota // Сплошной блок
	DataSprite                 // Спрайт
)

// Раскладка слова ячейки, старшее поле первым.
// Бит присутствия хранится инвертированным: 1 означает непустую ячейку.
var (
	cellPresent    = NewBitField[ChunkWord](14, 1)
	cellDataType   = NewBitField[ChunkWord](13, 1)
	cellChecker    = NewBitField[ChunkWord](12, 1)
	cellBlockType  = NewBitField[ChunkWord](0, 12)
	cellSpriteType = NewBitField[ChunkWord](2, 10)
	cellFragments  = NewBitField[ChunkWord](0, 2)
)

// Предельные значения полезной нагрузки
const (
	MaxBlockType  = 1<<12 - 1
	MaxSpriteType = 1<<10 - 1
	MaxFragments  = 1<<2 - 1
)

// ChunkBlockData — распакованное содержимое ячейки чанка.
// Для пустой ячейки остальные поля не имеют смысла и не заполняются.
type ChunkBlockData struct {
	Empty    bool
	DataType DataType

	// DataSolid
	Checker   bool
	BlockType Type

	// DataSprite
	SpriteType uint16
	Fragments  uint8
}

// EmptyCell возвращает пустую ячейку
func EmptyCell() ChunkBlockData {
	return ChunkBlockData{Empty: true}
}

// SolidCell возвращает ячейку со сплошным блоком
func SolidCell(t Type, checker bool) ChunkBlockData {
	return ChunkBlockData{DataType: DataSolid, BlockType: t, Checker: checker}
}

// SpriteCell возвращает ячейку со спрайтом
func SpriteCell(sprite uint16, fragments uint8) ChunkBlockData {
	return ChunkBlockData{DataType: DataSprite, SpriteType: sprite, Fragments: fragments}
}

// EncodeChunkCell упаковывает содержимое ячейки.
// Значения вне диапазона поля молча усекаются до его ширины.
func EncodeChunkCell(d ChunkBlockData) ChunkWord {
	if d.Empty {
		return EmptyWord
	}
	w := cellPresent.SetFlag(0, true)
	w = cellDataType.Set(w, uint32(d.DataType))
	switch d.DataType {
	case DataSprite:
		w = cellSpriteType.Set(w, uint32(d.SpriteType))
		w = cellFragments.Set(w, uint32(d.Fragments))
	default:
		w = cellChecker.SetFlag(w, d.Checker)
		w = cellBlockType.Set(w, uint32(d.BlockType))
	}
	return w
}

// DecodeChunkCell распаковывает содержимое ячейки.
// Полезная нагрузка пустой ячейки не читается.
func DecodeChunkCell(w ChunkWord) ChunkBlockData {
	if w.Empty() {
		return EmptyCell()
	}
	dt := DataType(cellDataType.Get(w))
	if dt == DataSprite {
		return SpriteCell(uint16(cellSpriteType.Get(w)), uint8(cellFragments.Get(w)))
	}
	return SolidCell(Type(cellBlockType.Get(w)), cellChecker.Flag(w))
}

// Empty сообщает, пуста ли ячейка
func (w ChunkWord) Empty() bool {
	return !cellPresent.Flag(w)
}

// BlockType возвращает тип сплошного блока или AirType для пустых ячеек и спрайтов
func (w ChunkWord) BlockType() Type {
	if w.Empty() || DataType(cellDataType.Get(w)) != DataSolid {
		return AirType
	}
	return Type(cellBlockType.Get(w))
}
