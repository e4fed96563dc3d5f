package block

import "sync"

// Type — идентификатор типа сплошного блока (12 бит)
type Type uint16

// Константы типов блоков
const (
	AirType Type = iota // 0, в ячейках чанка не хранится: пустая ячейка
	BedrockType
	StoneType
	DirtType
	GrassType
	SandType
	GravelType
	ClayType
	SnowType
	IceType
	WaterType
	MudType
	SandstoneType

	// Декоративные блоки (начиная с 100)
	FlowerType Type = 100
	TreeType   Type = 101
	CactusType Type = 102
)

// Info описывает зарегистрированный тип блока
type Info struct {
	ID    Type
	Name  string
	Solid bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[Type]Info)
)

func init() {
	for _, info := range []Info{
		{AirType, "air", false},
		{BedrockType, "bedrock", true},
		{StoneType, "stone", true},
		{DirtType, "dirt", true},
		{GrassType, "grass", true},
		{SandType, "sand", true},
		{GravelType, "gravel", true},
		{ClayType, "clay", true},
		{SnowType, "snow", true},
		{IceType, "ice", true},
		{WaterType, "water", false},
		{MudType, "mud", true},
		{SandstoneType, "sandstone", true},
		{FlowerType, "flower", false},
		{TreeType, "tree", true},
		{CactusType, "cactus", true},
	} {
		Register(info)
	}
}

// Register добавляет тип блока в регистр
func Register(info Info) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[info.ID&MaxBlockType] = info
}

// Get возвращает описание типа блока
func Get(id Type) (Info, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[id]
	return info, ok
}

// IsValid проверяет, зарегистрирован ли тип
func (t Type) IsValid() bool {
	_, ok := Get(t)
	return ok
}

// String возвращает имя типа блока
func (t Type) String() string {
	if info, ok := Get(t); ok {
		return info.Name
	}
	return "unknown"
}
