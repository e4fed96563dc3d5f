package vec

import "math"

// Vec2 представляет 2D целочисленные координаты
type Vec2 struct {
	X, Y int
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale умножает обе координаты на скаляр
func (v Vec2) Scale(k int) Vec2 {
	return Vec2{X: v.X * k, Y: v.Y * k}
}

// FloorDiv делит координаты с округлением вниз (корректно для отрицательных значений)
func (v Vec2) FloorDiv(d int) Vec2 {
	return Vec2{X: FloorDiv(v.X, d), Y: FloorDiv(v.Y, d)}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// ChebyshevTo возвращает расстояние Чебышёва (квадратная окрестность)
func (v Vec2) ChebyshevTo(other Vec2) int {
	return max(abs(v.X-other.X), abs(v.Y-other.Y))
}

// FloorDiv целочисленное деление с округлением к минус бесконечности
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// CeilDiv целочисленное деление с округлением к плюс бесконечности
func CeilDiv(a, b int) int {
	return -FloorDiv(-a, b)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
