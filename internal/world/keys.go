package world

import (
	"math"
	"strconv"
	"strings"

	"github.com/annel0/voxelgen/internal/vec"
)

const (
	patchKeySep = ":"
	chunkKeySep = "_"
)

// Сентинелы "неопределённого id": возвращаются при разборе некорректного ключа.
// Ключи часто приходят извне, поэтому разбор никогда не паникует.
var (
	UndefinedPatchID = vec.Vec2{X: math.MinInt, Y: math.MinInt}
	UndefinedChunkID = vec.Vec3{X: math.MinInt, Y: math.MinInt, Z: math.MinInt}
)

// SerializePatchKey формирует ключ патча вида "x:y"
func SerializePatchKey(id vec.Vec2) string {
	return strconv.Itoa(id.X) + patchKeySep + strconv.Itoa(id.Y)
}

// ParsePatchKey разбирает ключ "x:y". При ошибке возвращает UndefinedPatchID и false.
func ParsePatchKey(key string) (vec.Vec2, bool) {
	parts := strings.Split(key, patchKeySep)
	if len(parts) != 2 {
		return UndefinedPatchID, false
	}
	x, errX := strconv.Atoi(parts[0])
	y, errY := strconv.Atoi(parts[1])
	if errX != nil || errY != nil {
		return UndefinedPatchID, false
	}
	id := vec.Vec2{X: x, Y: y}
	if SerializePatchKey(id) != key {
		return UndefinedPatchID, false
	}
	return id, true
}

// SerializeChunkKey формирует ключ чанка вида "x_y_z" (y — вертикальный id)
func SerializeChunkKey(id vec.Vec3) string {
	return strconv.Itoa(id.X) + chunkKeySep + strconv.Itoa(id.Y) + chunkKeySep + strconv.Itoa(id.Z)
}

// ParseChunkKey разбирает ключ "x_y_z". При ошибке возвращает UndefinedChunkID и false.
func ParseChunkKey(key string) (vec.Vec3, bool) {
	parts := strings.Split(key, chunkKeySep)
	if len(parts) != 3 {
		return UndefinedChunkID, false
	}
	var coords [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return UndefinedChunkID, false
		}
		coords[i] = n
	}
	id := vec.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}
	if SerializeChunkKey(id) != key {
		return UndefinedChunkID, false
	}
	return id, true
}

// PatchKeyOfChunk возвращает ключ патча, над/под которым стоит чанк
func PatchKeyOfChunk(chunkKey string) (string, bool) {
	id, ok := ParseChunkKey(chunkKey)
	if !ok {
		return "", false
	}
	return SerializePatchKey(PatchIDOfChunk(id)), true
}

// PatchIDOfChunk возвращает id патча по id чанка
func PatchIDOfChunk(id vec.Vec3) vec.Vec2 {
	return vec.Vec2{X: id.X, Y: id.Z}
}
