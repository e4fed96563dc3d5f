package container

import (
	"fmt"
	"iter"

	"github.com/annel0/voxelgen/internal/vec"
)

// Cell2 — элемент обхода патча
type Cell2 struct {
	Index    int      // Линейный индекс в массиве данных
	Pos      vec.Vec2 // Мировая позиция
	LocalPos vec.Vec2 // Позиция относительно bounds.Min
}

// PatchContainer — плотный двумерный массив значений над патчем с каймой.
// Нулевое значение T считается пустым сентинелом.
type PatchContainer[T comparable] struct {
	bounds vec.Box2
	margin int
	dims   vec.Vec2
	ext    vec.Vec2
	data   []T
}

// NewPatchContainer создаёт контейнер с выделенными данными
func NewPatchContainer[T comparable](bounds vec.Box2, margin int) *PatchContainer[T] {
	c := NewEmptyPatchContainer[T](bounds, margin)
	c.data = make([]T, c.ext.X*c.ext.Y)
	return c
}

// NewEmptyPatchContainer создаёт заготовку контейнера без данных.
// Запись в такой контейнер завершается ErrNotInitialized.
func NewEmptyPatchContainer[T comparable](bounds vec.Box2, margin int) *PatchContainer[T] {
	dims := bounds.Size()
	return &PatchContainer[T]{
		bounds: bounds,
		margin: margin,
		dims:   dims,
		ext:    vec.Vec2{X: dims.X + 2*margin, Y: dims.Y + 2*margin},
	}
}

// Bounds возвращает границы патча без каймы
func (c *PatchContainer[T]) Bounds() vec.Box2 { return c.bounds }

// ExtendedBounds возвращает границы с каймой
func (c *PatchContainer[T]) ExtendedBounds() vec.Box2 { return c.bounds.Expand(c.margin) }

// Margin возвращает ширину каймы
func (c *PatchContainer[T]) Margin() int { return c.margin }

// Dimensions возвращает размеры без каймы
func (c *PatchContainer[T]) Dimensions() vec.Vec2 { return c.dims }

// ExtendedDimensions возвращает размеры с каймой
func (c *PatchContainer[T]) ExtendedDimensions() vec.Vec2 { return c.ext }

// Initialized сообщает, выделены ли данные
func (c *PatchContainer[T]) Initialized() bool { return c.data != nil }

// Init выделяет данные для заготовки; повторный вызов ничего не делает
func (c *PatchContainer[T]) Init() {
	if c.data == nil {
		c.data = make([]T, c.ext.X*c.ext.Y)
	}
}

// Data возвращает массив данных (без копирования)
func (c *PatchContainer[T]) Data() []T { return c.data }

// Index возвращает линейный индекс локальной позиции или -1 за пределами каймы
func (c *PatchContainer[T]) Index(local vec.Vec2) int {
	x, y := local.X+c.margin, local.Y+c.margin
	if x < 0 || y < 0 || x >= c.ext.X || y >= c.ext.Y {
		return -1
	}
	return y*c.ext.X + x
}

// LocalPosFromIndex обратна Index
func (c *PatchContainer[T]) LocalPosFromIndex(i int) vec.Vec2 {
	return vec.Vec2{X: i%c.ext.X - c.margin, Y: i/c.ext.X - c.margin}
}

// ToLocalPos переводит мировую позицию в локальную
func (c *PatchContainer[T]) ToLocalPos(world vec.Vec2) vec.Vec2 { return world.Sub(c.bounds.Min) }

// ToWorldPos переводит локальную позицию в мировую
func (c *PatchContainer[T]) ToWorldPos(local vec.Vec2) vec.Vec2 { return local.Add(c.bounds.Min) }

// Read читает значение по мировой позиции
func (c *PatchContainer[T]) Read(world vec.Vec2) (T, bool) {
	var zero T
	if c.data == nil {
		return zero, false
	}
	i := c.Index(c.ToLocalPos(world))
	if i < 0 {
		return zero, false
	}
	return c.data[i], true
}

// Write записывает значение по мировой позиции
func (c *PatchContainer[T]) Write(world vec.Vec2, v T) error {
	if c.data == nil {
		return ErrNotInitialized
	}
	i := c.Index(c.ToLocalPos(world))
	if i < 0 {
		return fmt.Errorf("write %v: %w", world, ErrOutOfBounds)
	}
	c.data[i] = v
	return nil
}

// IterData обходит ячейки в пересечении box (nil означает весь контейнер)
// и границ контейнера. С includeMargins обход захватывает кайму.
// Последовательность ленивая и может обходиться повторно.
func (c *PatchContainer[T]) IterData(box *vec.Box2, includeMargins bool) iter.Seq[Cell2] {
	area := c.bounds
	if includeMargins {
		area = c.ExtendedBounds()
	}
	if box != nil {
		var ok bool
		if area, ok = area.Intersect(*box); !ok {
			return func(func(Cell2) bool) {}
		}
	}

	return func(yield func(Cell2) bool) {
		for y := area.Min.Y; y < area.Max.Y; y++ {
			for x := area.Min.X; x < area.Max.X; x++ {
				pos := vec.Vec2{X: x, Y: y}
				local := c.ToLocalPos(pos)
				if !yield(Cell2{Index: c.Index(local), Pos: pos, LocalPos: local}) {
					return
				}
			}
		}
	}
}

// CopyContentToTarget копирует данные в target на пересечении расширенных границ
// обоих контейнеров. С skipEmpty нулевые значения источника не переносятся.
func (c *PatchContainer[T]) CopyContentToTarget(target *PatchContainer[T], skipEmpty bool) error {
	if c.data == nil || target.data == nil {
		return ErrNotInitialized
	}
	overlap, ok := c.ExtendedBounds().Intersect(target.ExtendedBounds())
	if !ok {
		return nil
	}

	var zero T
	width := overlap.Max.X - overlap.Min.X
	for y := overlap.Min.Y; y < overlap.Max.Y; y++ {
		row := vec.Vec2{X: overlap.Min.X, Y: y}
		src := c.Index(c.ToLocalPos(row))
		dst := target.Index(target.ToLocalPos(row))
		if !skipEmpty {
			copy(target.data[dst:dst+width], c.data[src:src+width])
			continue
		}
		for i := 0; i < width; i++ {
			if v := c.data[src+i]; v != zero {
				target.data[dst+i] = v
			}
		}
	}
	return nil
}
