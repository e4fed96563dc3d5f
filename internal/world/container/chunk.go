package container

import (
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world/block"
)

// Cell3 — элемент обхода чанка
type Cell3 struct {
	Index    int
	Pos      vec.Vec3
	LocalPos vec.Vec3
}

// ChunkContainer — плотный трёхмерный массив упакованных ячеек чанка.
// Кайма одинаковой ширины по всем трём осям.
type ChunkContainer struct {
	bounds vec.Box3
	margin int
	dims   vec.Vec3
	ext    vec.Vec3
	data   []block.ChunkWord
}

// NewChunkContainer создаёт чанк с выделенными данными
func NewChunkContainer(bounds vec.Box3, margin int) *ChunkContainer {
	c := NewEmptyChunkContainer(bounds, margin)
	c.data = make([]block.ChunkWord, c.ext.X*c.ext.Y*c.ext.Z)
	return c
}

// NewEmptyChunkContainer создаёт заготовку чанка без данных
func NewEmptyChunkContainer(bounds vec.Box3, margin int) *ChunkContainer {
	dims := bounds.Size()
	return &ChunkContainer{
		bounds: bounds,
		margin: margin,
		dims:   dims,
		ext:    vec.Vec3{X: dims.X + 2*margin, Y: dims.Y + 2*margin, Z: dims.Z + 2*margin},
	}
}

// Bounds возвращает границы чанка без каймы
func (c *ChunkContainer) Bounds() vec.Box3 { return c.bounds }

// ExtendedBounds возвращает границы с каймой
func (c *ChunkContainer) ExtendedBounds() vec.Box3 { return c.bounds.Expand(c.margin) }

// Margin возвращает ширину каймы
func (c *ChunkContainer) Margin() int { return c.margin }

// Dimensions возвращает размеры без каймы
func (c *ChunkContainer) Dimensions() vec.Vec3 { return c.dims }

// ExtendedDimensions возвращает размеры с каймой
func (c *ChunkContainer) ExtendedDimensions() vec.Vec3 { return c.ext }

// Initialized сообщает, выделены ли данные
func (c *ChunkContainer) Initialized() bool { return c.data != nil }

// Data возвращает массив данных (без копирования)
func (c *ChunkContainer) Data() []block.ChunkWord { return c.data }

// Index возвращает линейный индекс локальной позиции или -1 за пределами каймы
func (c *ChunkContainer) Index(local vec.Vec3) int {
	m := c.margin
	x, y, z := local.X+m, local.Y+m, local.Z+m
	if x < 0 || y < 0 || z < 0 || x >= c.ext.X || y >= c.ext.Y || z >= c.ext.Z {
		return -1
	}
	return (z*c.ext.Y+y)*c.ext.X + x
}

// LocalPosFromIndex обратна Index
func (c *ChunkContainer) LocalPosFromIndex(i int) vec.Vec3 {
	x := i % c.ext.X
	i /= c.ext.X
	y := i % c.ext.Y
	z := i / c.ext.Y
	return vec.Vec3{X: x - c.margin, Y: y - c.margin, Z: z - c.margin}
}

// ToLocalPos переводит мировую позицию в локальную
func (c *ChunkContainer) ToLocalPos(world vec.Vec3) vec.Vec3 { return world.Sub(c.bounds.Min) }

// ToWorldPos переводит локальную позицию в мировую
func (c *ChunkContainer) ToWorldPos(local vec.Vec3) vec.Vec3 { return local.Add(c.bounds.Min) }

// Read читает упакованную ячейку по мировой позиции
func (c *ChunkContainer) Read(world vec.Vec3) (block.ChunkWord, bool) {
	if c.data == nil {
		return block.EmptyWord, false
	}
	i := c.Index(c.ToLocalPos(world))
	if i < 0 {
		return block.EmptyWord, false
	}
	return c.data[i], true
}

// ReadCell читает и распаковывает ячейку. Вне границ ячейка пуста.
func (c *ChunkContainer) ReadCell(world vec.Vec3) block.ChunkBlockData {
	w, _ := c.Read(world)
	return block.DecodeChunkCell(w)
}

// Write записывает упакованную ячейку по мировой позиции
func (c *ChunkContainer) Write(world vec.Vec3, w block.ChunkWord) error {
	if c.data == nil {
		return ErrNotInitialized
	}
	i := c.Index(c.ToLocalPos(world))
	if i < 0 {
		return fmt.Errorf("write %v: %w", world, ErrOutOfBounds)
	}
	c.data[i] = w
	return nil
}

// WriteCell упаковывает и записывает ячейку
func (c *ChunkContainer) WriteCell(world vec.Vec3, d block.ChunkBlockData) error {
	return c.Write(world, block.EncodeChunkCell(d))
}

// IsEmpty сообщает, что в чанке нет ни одной непустой ячейки
func (c *ChunkContainer) IsEmpty() bool {
	for _, w := range c.data {
		if w != block.EmptyWord {
			return false
		}
	}
	return true
}

// IterData обходит ячейки в пересечении box (nil означает весь чанк) и границ чанка
func (c *ChunkContainer) IterData(box *vec.Box3, includeMargins bool) iter.Seq[Cell3] {
	area := c.bounds
	if includeMargins {
		area = c.ExtendedBounds()
	}
	if box != nil {
		var ok bool
		if area, ok = area.Intersect(*box); !ok {
			return func(func(Cell3) bool) {}
		}
	}

	return func(yield func(Cell3) bool) {
		for z := area.Min.Z; z < area.Max.Z; z++ {
			for y := area.Min.Y; y < area.Max.Y; y++ {
				for x := area.Min.X; x < area.Max.X; x++ {
					pos := vec.Vec3{X: x, Y: y, Z: z}
					local := c.ToLocalPos(pos)
					if !yield(Cell3{Index: c.Index(local), Pos: pos, LocalPos: local}) {
						return
					}
				}
			}
		}
	}
}

// CopyContentToTarget копирует ячейки в target на пересечении расширенных границ.
// С skipEmpty пустые ячейки источника не затирают цель.
func (c *ChunkContainer) CopyContentToTarget(target *ChunkContainer, skipEmpty bool) error {
	if c.data == nil || target.data == nil {
		return ErrNotInitialized
	}
	overlap, ok := c.ExtendedBounds().Intersect(target.ExtendedBounds())
	if !ok {
		return nil
	}

	width := overlap.Max.X - overlap.Min.X
	for z := overlap.Min.Z; z < overlap.Max.Z; z++ {
		for y := overlap.Min.Y; y < overlap.Max.Y; y++ {
			row := vec.Vec3{X: overlap.Min.X, Y: y, Z: z}
			src := c.Index(c.ToLocalPos(row))
			dst := target.Index(target.ToLocalPos(row))
			if !skipEmpty {
				copy(target.data[dst:dst+width], c.data[src:src+width])
				continue
			}
			for i := 0; i < width; i++ {
				if w := c.data[src+i]; w != block.EmptyWord {
					target.data[dst+i] = w
				}
			}
		}
	}
	return nil
}

// Bytes кодирует ячейки в little-endian uint16
func (c *ChunkContainer) Bytes() []byte {
	buf := make([]byte, 2*len(c.data))
	for i, w := range c.data {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(w))
	}
	return buf
}

// LoadBytes заполняет чанк из little-endian представления, выделяя данные при необходимости
func (c *ChunkContainer) LoadBytes(buf []byte) error {
	n := c.ext.X * c.ext.Y * c.ext.Z
	if len(buf) != 2*n {
		return fmt.Errorf("payload size %d, want %d", len(buf), 2*n)
	}
	if c.data == nil {
		c.data = make([]block.ChunkWord, n)
	}
	for i := range c.data {
		c.data[i] = block.ChunkWord(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	return nil
}
