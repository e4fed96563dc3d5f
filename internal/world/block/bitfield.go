package block

// Word — машинное слово, в которое упаковываются поля блока
type Word interface {
	~uint16 | ~uint32
}

// BitField описывает одно поле фиксированной ширины внутри слова W.
// Параметр W не даёт применить поле грунта к слову ячейки чанка и наоборот.
type BitField[W Word] struct {
	shift uint8
	width uint8
}

// NewBitField создаёт поле шириной width бит со сдвигом shift
func NewBitField[W Word](shift, width uint8) BitField[W] {
	return BitField[W]{shift: shift, width: width}
}

// Shift возвращает сдвиг поля
func (f BitField[W]) Shift() uint8 { return f.shift }

// Width возвращает ширину поля в битах
func (f BitField[W]) Width() uint8 { return f.width }

// Max возвращает наибольшее представимое значение поля
func (f BitField[W]) Max() uint32 {
	return uint32(1)<<f.width - 1
}

// Mask возвращает маску поля в позиции внутри слова
func (f BitField[W]) Mask() W {
	return W(f.Max() << f.shift)
}

// Get извлекает значение поля
func (f BitField[W]) Get(w W) uint32 {
	return uint32(w>>f.shift) & f.Max()
}

// Set записывает значение в поле. Лишние старшие биты значения отбрасываются.
func (f BitField[W]) Set(w W, v uint32) W {
	v &= f.Max()
	return w&^f.Mask() | W(v<<f.shift)
}

// Flag читает однобитовое поле как bool
func (f BitField[W]) Flag(w W) bool {
	return f.Get(w) != 0
}

// SetFlag записывает bool в однобитовое поле
func (f BitField[W]) SetFlag(w W, on bool) W {
	if on {
		return f.Set(w, 1)
	}
	return f.Set(w, 0)
}
