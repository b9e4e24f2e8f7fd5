package utils

import "math"

// RotatedRect is a rectangle rotated about its center. Angle is in degrees,
// clockwise positive in image coordinates (y pointing down).
type RotatedRect struct {
	Center Point
	Width  float64
	Height float64
	Angle  float64
}

// Area returns the rectangle area.
func (r RotatedRect) Area() float64 { return r.Width * r.Height }

// Points returns the four corners. The order is bottom-left, top-left,
// top-right, bottom-right for an unrotated rectangle.
func (r RotatedRect) Points() [4]Point {
	rad := r.Angle * math.Pi / 180
	b := math.Cos(rad) * 0.5
	a := math.Sin(rad) * 0.5

	var pts [4]Point
	pts[0] = Point{
		X: r.Center.X - a*r.Height - b*r.Width,
		Y: r.Center.Y + b*r.Height - a*r.Width,
	}
	pts[1] = Point{
		X: r.Center.X + a*r.Height - b*r.Width,
		Y: r.Center.Y - b*r.Height - a*r.Width,
	}
	pts[2] = Point{X: 2*r.Center.X - pts[0].X, Y: 2*r.Center.Y - pts[0].Y}
	pts[3] = Point{X: 2*r.Center.X - pts[1].X, Y: 2*r.Center.Y - pts[1].Y}
	return pts
}

// BoundingRect returns the smallest integer rectangle containing every pixel
// touched by the corners: floor of the minimum, ceil of the maximum, both
// inclusive.
func (r RotatedRect) BoundingRect() Rect {
	pts := r.Points()
	box := BoundingBox(pts[:])
	x0 := int(math.Floor(box.MinX))
	y0 := int(math.Floor(box.MinY))
	x1 := int(math.Ceil(box.MaxX))
	y1 := int(math.Ceil(box.MaxY))
	return Rect{X: x0, Y: y0, Width: x1 - x0 + 1, Height: y1 - y0 + 1}
}

// PolygonArea returns the absolute area of a simple polygon (shoelace formula).
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}
