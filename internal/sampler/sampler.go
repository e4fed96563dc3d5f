// Package sampler описывает внешних поставщиков данных для генерации чанков
// и содержит реализации по умолчанию.
package sampler

import (
	"context"
	"errors"

	"github.com/annel0/voxelgen/internal/vec"
	"github.com/annel0/voxelgen/internal/world/block"
	"github.com/annel0/voxelgen/internal/world/container"
)

// ErrNoSample — у поставщика нет данных для позиции
var ErrNoSample = errors.New("no sample for position")

// GroundSampler вычисляет метаданные грунта для мировой позиции (x, z)
type GroundSampler interface {
	ComputeGroundBlock(pos vec.Vec2) (block.GroundBlockData, error)
}

// DensitySampler решает, заполнена ли ячейка под поверхностью (false — пещера)
type DensitySampler interface {
	GetBlockDensity(pos vec.Vec3, referenceLevel int) (bool, error)
}

// ItemsProvider собирает предметы и постройки патча в один чанк-столб.
// nil без ошибки означает отсутствие предметов.
type ItemsProvider interface {
	MergeIndividualChunks(ctx context.Context, patchKey string) (*container.ChunkContainer, error)
}

// GroundFunc адаптирует функцию к GroundSampler
type GroundFunc func(pos vec.Vec2) (block.GroundBlockData, error)

// ComputeGroundBlock вызывает функцию
func (f GroundFunc) ComputeGroundBlock(pos vec.Vec2) (block.GroundBlockData, error) {
	return f(pos)
}

// Flat возвращает одинаковый грунт во всех позициях
type Flat struct {
	Data block.GroundBlockData
}

// NewFlat создаёт плоский грунт на высоте level
func NewFlat(level int, biome block.Biome) *Flat {
	return &Flat{Data: block.GroundBlockData{Level: uint16(level), Biome: biome}}
}

// ComputeGroundBlock возвращает постоянный грунт
func (f *Flat) ComputeGroundBlock(vec.Vec2) (block.GroundBlockData, error) {
	return f.Data, nil
}

// Solid — плотность без пещер
type Solid struct{}

// GetBlockDensity всегда сообщает заполненную ячейку
func (Solid) GetBlockDensity(vec.Vec3, int) (bool, error) { return true, nil }

// NoItems — поставщик без предметов
type NoItems struct{}

// MergeIndividualChunks ничего не возвращает
func (NoItems) MergeIndividualChunks(context.Context, string) (*container.ChunkContainer, error) {
	return nil, nil
}
