// Package geometry reduces ROI polygons to single representative points and
// handles the stored/working orientation convention.
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"marrowmap/pkg/domain"
)

// Policy names a centroid reduction strategy. The two policies are distinct
// on purpose and must not be unified: droplet-style ROIs use the vertex mean
// with ceiling rounding, large-object ROIs use the true area-weighted
// centroid with nearest rounding.
type Policy string

const (
	// PolicyVertexMeanCeil averages the vertices and rounds each axis up,
	// keeping coordinates off fractional pixels.
	PolicyVertexMeanCeil Policy = "vertex_mean_ceil"
	// PolicyAreaWeighted computes the true polygon centroid via the shoelace
	// formula and rounds each axis to nearest.
	PolicyAreaWeighted Policy = "area_weighted"
)

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case PolicyVertexMeanCeil, PolicyAreaWeighted:
		return Policy(name), nil
	default:
		return "", fmt.Errorf("unknown centroid policy %q", name)
	}
}

// MinVertices is the smallest vertex count that forms a reducible polygon.
// Annotation tooling occasionally emits one- and two-point ROIs; those are
// rejected before reduction.
const MinVertices = 3

// Reduce collapses a polygon to one point under the given policy. Polygons
// with fewer than MinVertices vertices yield a MalformedAnnotationError.
func Reduce(regionID string, poly domain.Polygon, policy Policy) (domain.Point, error) {
	if len(poly.Vertices) < MinVertices {
		return domain.Point{}, domain.MalformedAnnotationError{
			RegionID:  regionID,
			PolygonID: poly.ID,
			Vertices:  len(poly.Vertices),
		}
	}
	vs := make([]r2.Vec, len(poly.Vertices))
	for i, v := range poly.Vertices {
		vs[i] = r2.Vec{X: v.X, Y: v.Y}
	}
	switch policy {
	case PolicyVertexMeanCeil:
		c := vertexMean(vs)
		return domain.Point{X: math.Ceil(c.X), Y: math.Ceil(c.Y)}, nil
	case PolicyAreaWeighted:
		c := areaCentroid(vs)
		return domain.Point{X: math.Round(c.X), Y: math.Round(c.Y)}, nil
	default:
		return domain.Point{}, fmt.Errorf("unknown centroid policy %q", policy)
	}
}

// RawCentroid returns the unrounded reduction under the given policy, used
// by placement checks and overlay rendering.
func RawCentroid(poly domain.Polygon, policy Policy) (domain.Point, error) {
	if len(poly.Vertices) < MinVertices {
		return domain.Point{}, fmt.Errorf("polygon %s: %d vertices, need at least %d", poly.ID, len(poly.Vertices), MinVertices)
	}
	vs := make([]r2.Vec, len(poly.Vertices))
	for i, v := range poly.Vertices {
		vs[i] = r2.Vec{X: v.X, Y: v.Y}
	}
	var c r2.Vec
	switch policy {
	case PolicyAreaWeighted:
		c = areaCentroid(vs)
	default:
		c = vertexMean(vs)
	}
	return domain.Point{X: c.X, Y: c.Y}, nil
}

func vertexMean(vs []r2.Vec) r2.Vec {
	var sum r2.Vec
	for _, v := range vs {
		sum = r2.Add(sum, v)
	}
	return r2.Scale(1/float64(len(vs)), sum)
}

// areaCentroid implements the standard shoelace centroid. Degenerate
// polygons with near-zero signed area fall back to the vertex mean, which is
// the only defensible point for a collapsed ring.
func areaCentroid(vs []r2.Vec) r2.Vec {
	var area, cx, cy float64
	n := len(vs)
	for i := 0; i < n; i++ {
		a := vs[i]
		b := vs[(i+1)%n]
		cross := a.X*b.Y - b.X*a.Y
		area += cross
		cx += (a.X + b.X) * cross
		cy += (a.Y + b.Y) * cross
	}
	area /= 2
	if math.Abs(area) < 1e-12 {
		return vertexMean(vs)
	}
	return r2.Vec{X: cx / (6 * area), Y: cy / (6 * area)}
}
