package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxelgen/internal/vec"
)

// Значения окружения мира по умолчанию
const (
	DefaultPatchSize   = 64
	DefaultChunkHeight = 64
	DefaultPatchMargin = 2
	DefaultBottomID    = 0
	DefaultTopID       = 5
)

// Env описывает параметры мира, общие для планировщика, пула и обработчиков.
// Создаётся один раз при старте процесса и передаётся по ссылке.
type Env struct {
	PatchSize   int   // Размер патча по X/Z в блоках
	ChunkHeight int   // Высота чанка в блоках
	PatchMargin int   // Ширина каймы вокруг патча
	BottomID    int   // Нижний вертикальный id чанка
	TopID       int   // Верхний вертикальный id чанка
	Seed        int64 // Сид генерации
}

// DefaultEnv возвращает окружение со значениями по умолчанию
func DefaultEnv() *Env {
	return &Env{
		PatchSize:   DefaultPatchSize,
		ChunkHeight: DefaultChunkHeight,
		PatchMargin: DefaultPatchMargin,
		BottomID:    DefaultBottomID,
		TopID:       DefaultTopID,
	}
}

// Validate проверяет согласованность параметров
func (e *Env) Validate() error {
	if e == nil {
		return errors.New("world env is nil")
	}
	if e.PatchSize <= 0 {
		return fmt.Errorf("invalid patch size %d", e.PatchSize)
	}
	if e.ChunkHeight <= 0 {
		return fmt.Errorf("invalid chunk height %d", e.ChunkHeight)
	}
	if e.PatchMargin < 0 {
		return fmt.Errorf("invalid patch margin %d", e.PatchMargin)
	}
	if e.TopID < e.BottomID {
		return fmt.Errorf("top chunk id %d is below bottom id %d", e.TopID, e.BottomID)
	}
	return nil
}

// PatchDims возвращает размеры патча без каймы
func (e *Env) PatchDims() vec.Vec2 {
	return vec.Vec2{X: e.PatchSize, Y: e.PatchSize}
}

// ChunkDims возвращает размеры чанка без каймы
func (e *Env) ChunkDims() vec.Vec3 {
	return vec.Vec3{X: e.PatchSize, Y: e.ChunkHeight, Z: e.PatchSize}
}

// WorldHeight возвращает суммарную высоту столба чанков
func (e *Env) WorldHeight() int {
	return (e.TopID - e.BottomID + 1) * e.ChunkHeight
}
