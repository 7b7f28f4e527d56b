// Package geometry converts OCR polygons into axis-aligned boxes.
package geometry

// BoundingBox is an axis-aligned rectangle in the OCR provider's page units.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FromPolygon converts a flat x,y,x,y,... vertex list into the smallest box
// containing every vertex. It returns nil when the list holds fewer than two
// values. A trailing unpaired x is ignored.
func FromPolygon(polygon []float64) *BoundingBox {
	if len(polygon) < 2 {
		return nil
	}
	pairs := len(polygon) / 2
	minX, minY := polygon[0], polygon[1]
	maxX, maxY := minX, minY
	for i := 1; i < pairs; i++ {
		x, y := polygon[2*i], polygon[2*i+1]
		minX = min(minX, x)
		maxX = max(maxX, x)
		minY = min(minY, y)
		maxY = max(maxY, y)
	}
	return &BoundingBox{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}
