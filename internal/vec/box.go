package vec

// Box2 — осевой прямоугольник, Min включительно, Max исключительно.
type Box2 struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

// Size возвращает размеры прямоугольника
func (b Box2) Size() Vec2 {
	return b.Max.Sub(b.Min)
}

// Empty возвращает true, если площадь прямоугольника нулевая
func (b Box2) Empty() bool {
	return b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y
}

// Contains проверяет попадание точки
func (b Box2) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X < b.Max.X && p.Y >= b.Min.Y && p.Y < b.Max.Y
}

// Expand расширяет прямоугольник на n клеток со всех сторон
func (b Box2) Expand(n int) Box2 {
	return Box2{
		Min: Vec2{X: b.Min.X - n, Y: b.Min.Y - n},
		Max: Vec2{X: b.Max.X + n, Y: b.Max.Y + n},
	}
}

// Intersect возвращает пересечение; ok=false, если пересечения нет
func (b Box2) Intersect(o Box2) (Box2, bool) {
	r := Box2{
		Min: Vec2{X: max(b.Min.X, o.Min.X), Y: max(b.Min.Y, o.Min.Y)},
		Max: Vec2{X: min(b.Max.X, o.Max.X), Y: min(b.Max.Y, o.Max.Y)},
	}
	return r, !r.Empty()
}

// Box3 — осевой параллелепипед, Min включительно, Max исключительно.
type Box3 struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Size возвращает размеры параллелепипеда
func (b Box3) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Empty возвращает true, если объём нулевой
func (b Box3) Empty() bool {
	return b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y || b.Max.Z <= b.Min.Z
}

// Contains проверяет попадание точки
func (b Box3) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X < b.Max.X &&
		p.Y >= b.Min.Y && p.Y < b.Max.Y &&
		p.Z >= b.Min.Z && p.Z < b.Max.Z
}

// Expand расширяет параллелепипед на n клеток по всем осям
func (b Box3) Expand(n int) Box3 {
	d := Vec3{X: n, Y: n, Z: n}
	return Box3{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}

// Intersect возвращает пересечение; ok=false, если пересечения нет
func (b Box3) Intersect(o Box3) (Box3, bool) {
	r := Box3{
		Min: Vec3{X: max(b.Min.X, o.Min.X), Y: max(b.Min.Y, o.Min.Y), Z: max(b.Min.Z, o.Min.Z)},
		Max: Vec3{X: min(b.Max.X, o.Max.X), Y: min(b.Max.Y, o.Max.Y), Z: min(b.Max.Z, o.Max.Z)},
	}
	return r, !r.Empty()
}

// Flat возвращает горизонтальную проекцию (X, Z)
func (b Box3) Flat() Box2 {
	return Box2{Min: b.Min.Flat(), Max: b.Max.Flat()}
}
