package task

import "fmt"

// Kind — закрытое перечисление семейств задач
type Kind uint8

const (
	KindUnknown Kind = iota
	KindChunks       // Генерация чанков патча
	KindGround       // Блоки грунта по списку позиций
	KindItems        // Чанк предметов патча
)

// AllKinds перечисляет все известные семейства задач
var AllKinds = []Kind{KindChunks, KindGround, KindItems}

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindChunks:  "chunks",
	KindGround:  "ground",
	KindItems:   "items",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind разбирает имя семейства задач
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s && k != KindUnknown {
			return k, true
		}
	}
	return KindUnknown, false
}

// MarshalText кодирует семейство задач именем
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText декодирует имя семейства. Неизвестное имя даёт KindUnknown без ошибки,
// чтобы получатель ответил пустыми данными, а не разорвал соединение.
func (k *Kind) UnmarshalText(b []byte) error {
	*k, _ = ParseKind(string(b))
	return nil
}
