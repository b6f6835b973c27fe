package geometry

import "marrowmap/pkg/domain"

// FlipY converts a point between stored and working orientation by mirroring
// the vertical axis against the region height. The flip is its own inverse:
// applying it twice yields the original coordinate exactly. Dropping it when
// round-tripping between annotation space and stored space mirrors every
// overlay, so every conversion must go through here.
func FlipY(p domain.Point, height float64) domain.Point {
	return domain.Point{X: p.X, Y: height - p.Y}
}

// FlipCell mirrors a coordinate-table row the same way.
func FlipCell(c domain.Cell, height float64) domain.Cell {
	return domain.Cell{LocalID: c.LocalID, X: c.X, Y: height - c.Y}
}
