package world

import (
	"github.com/annel0/voxelgen/internal/vec"
)

// ToPatchID переводит мировые координаты (x, z) в id патча
func (e *Env) ToPatchID(worldPos vec.Vec2) vec.Vec2 {
	return worldPos.FloorDiv(e.PatchSize)
}

// ToChunkID переводит мировые координаты (x, y, z) в id чанка
func (e *Env) ToChunkID(worldPos vec.Vec3) vec.Vec3 {
	return vec.Vec3{
		X: vec.FloorDiv(worldPos.X, e.PatchSize),
		Y: vec.FloorDiv(worldPos.Y, e.ChunkHeight),
		Z: vec.FloorDiv(worldPos.Z, e.PatchSize),
	}
}

// BoundsOfPatchID возвращает границы патча (без каймы)
func (e *Env) BoundsOfPatchID(id vec.Vec2) vec.Box2 {
	min := id.Scale(e.PatchSize)
	return vec.Box2{Min: min, Max: min.Add(e.PatchDims())}
}

// BoundsOfPatch возвращает границы патча по ключу
func (e *Env) BoundsOfPatch(key string) (vec.Box2, bool) {
	id, ok := ParsePatchKey(key)
	if !ok {
		return vec.Box2{}, false
	}
	return e.BoundsOfPatchID(id), true
}

// BoundsOfChunkID возвращает границы чанка (без каймы)
func (e *Env) BoundsOfChunkID(id vec.Vec3) vec.Box3 {
	min := vec.Vec3{X: id.X * e.PatchSize, Y: id.Y * e.ChunkHeight, Z: id.Z * e.PatchSize}
	return vec.Box3{Min: min, Max: min.Add(e.ChunkDims())}
}

// BoundsOfChunk возвращает границы чанка по ключу
func (e *Env) BoundsOfChunk(key string) (vec.Box3, bool) {
	id, ok := ParseChunkKey(key)
	if !ok {
		return vec.Box3{}, false
	}
	return e.BoundsOfChunkID(id), true
}

// PatchIDsInBox перечисляет id всех патчей, пересекающих прямоугольник,
// включая частично перекрытые крайние патчи.
func (e *Env) PatchIDsInBox(box vec.Box2) []vec.Vec2 {
	if box.Empty() {
		return nil
	}
	from := e.ToPatchID(box.Min)
	to := e.ToPatchID(vec.Vec2{X: box.Max.X - 1, Y: box.Max.Y - 1})

	ids := make([]vec.Vec2, 0, (to.X-from.X+1)*(to.Y-from.Y+1))
	for y := from.Y; y <= to.Y; y++ {
		for x := from.X; x <= to.X; x++ {
			ids = append(ids, vec.Vec2{X: x, Y: y})
		}
	}
	return ids
}

// PatchIDsAround возвращает квадратную окрестность радиуса radius вокруг патча center
func PatchIDsAround(center vec.Vec2, radius int) []vec.Vec2 {
	if radius < 0 {
		return nil
	}
	side := 2*radius + 1
	ids := make([]vec.Vec2, 0, side*side)
	for y := center.Y - radius; y <= center.Y+radius; y++ {
		for x := center.X - radius; x <= center.X+radius; x++ {
			ids = append(ids, vec.Vec2{X: x, Y: y})
		}
	}
	return ids
}

// ChunkIDsOfPatch перечисляет id чанков столба патча с вертикальными id [from, to]
func ChunkIDsOfPatch(patchID vec.Vec2, from, to int) []vec.Vec3 {
	if to < from {
		return nil
	}
	ids := make([]vec.Vec3, 0, to-from+1)
	for y := from; y <= to; y++ {
		ids = append(ids, vec.Vec3{X: patchID.X, Y: y, Z: patchID.Y})
	}
	return ids
}

// ChunkSpan возвращает вертикальный диапазон id чанков, покрывающий уровни [minLevel, maxLevel]
func (e *Env) ChunkSpan(minLevel, maxLevel int) (from, to int) {
	from = vec.FloorDiv(minLevel, e.ChunkHeight)
	to = vec.CeilDiv(maxLevel, e.ChunkHeight)
	return max(from, e.BottomID), min(to, e.TopID)
}
