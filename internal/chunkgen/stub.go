package chunkgen

import (
	"errors"
	"fmt"

	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world/container"
)

// ChunkStub — переносимое представление чанка: метаданные и упакованные ячейки
type ChunkStub struct {
	Key     string   `json:"key"`
	Bounds  vec.Box3 `json:"bounds"`
	Margin  int      `json:"margin"`
	Empty   bool     `json:"empty"`
	Payload []byte   `json:"payload,omitempty"` // little-endian uint16 на ячейку, пусто для пустого чанка
}

// NewChunkStub упаковывает чанк. Для пустого чанка данные не передаются.
func NewChunkStub(key string, c *container.ChunkContainer) ChunkStub {
	stub := ChunkStub{Key: key, Bounds: c.Bounds(), Margin: c.Margin(), Empty: c.IsEmpty()}
	if !stub.Empty {
		stub.Payload = c.Bytes()
	}
	return stub
}

// EmptyChunkStub описывает пустой чанк
func EmptyChunkStub(key string, bounds vec.Box3, margin int) ChunkStub {
	return ChunkStub{Key: key, Bounds: bounds, Margin: margin, Empty: true}
}

// Предельное число ячеек чанка вместе с каймой
const maxChunkCells = 1 << 24

// ErrInvalidBounds — границы чанка пусты или слишком велики
var ErrInvalidBounds = errors.New("invalid chunk bounds")

// payloadSize возвращает размер упакованных ячеек чанка в байтах
func payloadSize(bounds vec.Box3, margin int) (int, error) {
	if bounds.Empty() || margin < 0 {
		return 0, fmt.Errorf("%w: %v margin %d", ErrInvalidBounds, bounds, margin)
	}
	size := bounds.Size()
	cells := 1
	for _, d := range [3]int{size.X, size.Y, size.Z} {
		ext := d + 2*margin
		if d <= 0 || ext <= 0 || ext > maxChunkCells || cells > maxChunkCells/ext {
			return 0, fmt.Errorf("%w: %v margin %d", ErrInvalidBounds, bounds, margin)
		}
		cells *= ext
	}
	return 2 * cells, nil
}

// Container восстанавливает чанк из заглушки
func (s ChunkStub) Container() (*container.ChunkContainer, error) {
	if _, err := payloadSize(s.Bounds, s.Margin); err != nil {
		return nil, fmt.Errorf("chunk %s: %w", s.Key, err)
	}
	c := container.NewChunkContainer(s.Bounds, s.Margin)
	if s.Empty {
		return c, nil
	}
	if err := c.LoadBytes(s.Payload); err != nil {
		return nil, fmt.Errorf("chunk %s: %w", s.Key, err)
	}
	return c, nil
}
