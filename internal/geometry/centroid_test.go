package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"marrowmap/pkg/domain"
)

func poly(id string, pts ...[2]float64) domain.Polygon {
	p := domain.Polygon{ID: id}
	for _, xy := range pts {
		p.Vertices = append(p.Vertices, domain.Point{X: xy[0], Y: xy[1]})
	}
	return p
}

func TestReduceVertexMeanCeil(t *testing.T) {
	// unit square at origin: raw mean (0.5, 0.5), ceiling lands on (1, 1)
	square := poly("sq", [2]float64{0, 0}, [2]float64{1, 0}, [2]float64{1, 1}, [2]float64{0, 1})

	raw, err := RawCentroid(square, PolicyVertexMeanCeil)
	if err != nil {
		t.Fatalf("RawCentroid: %v", err)
	}
	if raw.X != 0.5 || raw.Y != 0.5 {
		t.Fatalf("raw mean = %+v, want (0.5,0.5)", raw)
	}

	got, err := Reduce("r1", square, PolicyVertexMeanCeil)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if got.X != 1 || got.Y != 1 {
		t.Fatalf("ceil mean = %+v, want (1,1)", got)
	}
}

func TestReduceAreaWeighted(t *testing.T) {
	// right triangle (0,0)-(4,0)-(0,3): true centroid (4/3, 1)
	tri := poly("tri", [2]float64{0, 0}, [2]float64{4, 0}, [2]float64{0, 3})

	raw, err := RawCentroid(tri, PolicyAreaWeighted)
	if err != nil {
		t.Fatalf("RawCentroid: %v", err)
	}
	if math.Abs(raw.X-4.0/3.0) > 1e-9 || math.Abs(raw.Y-1.0) > 1e-9 {
		t.Fatalf("area centroid = %+v, want (1.333..., 1)", raw)
	}

	got, err := Reduce("r1", tri, PolicyAreaWeighted)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if got.X != 1 || got.Y != 1 {
		t.Fatalf("rounded centroid = %+v, want (1,1)", got)
	}
}

func TestAreaWeightedDiffersFromVertexMean(t *testing.T) {
	// Skewed quad with a dense vertex cluster pulls the vertex mean away
	// from the area centroid; the two policies must not agree here.
	quad := poly("q",
		[2]float64{0, 0}, [2]float64{10, 0}, [2]float64{10, 10},
		[2]float64{0.2, 10}, [2]float64{0.1, 10}, [2]float64{0, 10})

	mean, err := RawCentroid(quad, PolicyVertexMeanCeil)
	if err != nil {
		t.Fatalf("mean: %v", err)
	}
	area, err := RawCentroid(quad, PolicyAreaWeighted)
	if err != nil {
		t.Fatalf("area: %v", err)
	}
	if math.Abs(mean.X-area.X) < 1e-6 {
		t.Fatalf("policies unexpectedly agree: mean %+v area %+v", mean, area)
	}
}

func TestAreaCentroidInsideConvexHull(t *testing.T) {
	// For random convex polygons the area-weighted centroid must lie inside
	// the hull. Generate points on a circle (always convex in angle order).
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 3 + rng.Intn(8)
		cx, cy := rng.Float64()*100, rng.Float64()*100
		radius := 1 + rng.Float64()*50
		p := domain.Polygon{ID: "hull"}
		for i := 0; i < n; i++ {
			theta := 2 * math.Pi * (float64(i) + rng.Float64()*0.5) / float64(n)
			p.Vertices = append(p.Vertices, domain.Point{
				X: cx + radius*math.Cos(theta),
				Y: cy + radius*math.Sin(theta),
			})
		}
		c, err := RawCentroid(p, PolicyAreaWeighted)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if !insideConvex(p.Vertices, c) {
			t.Fatalf("trial %d: centroid %+v outside polygon %+v", trial, c, p.Vertices)
		}
	}
}

// insideConvex checks containment via consistent cross-product signs.
func insideConvex(vs []domain.Point, p domain.Point) bool {
	sign := 0.0
	n := len(vs)
	for i := 0; i < n; i++ {
		a, b := vs[i], vs[(i+1)%n]
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
		} else if (sign > 0) != (cross > 0) {
			return false
		}
	}
	return true
}

func TestReduceRejectsMalformedPolygons(t *testing.T) {
	for _, tc := range []struct {
		name string
		p    domain.Polygon
	}{
		{"one vertex", poly("p1", [2]float64{3, 4})},
		{"two vertices", poly("p2", [2]float64{3, 4}, [2]float64{5, 6})},
		{"empty", domain.Polygon{ID: "p0"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Reduce("r1", tc.p, PolicyAreaWeighted)
			var malformed domain.MalformedAnnotationError
			if !errors.As(err, &malformed) {
				t.Fatalf("want MalformedAnnotationError, got %v", err)
			}
			if malformed.PolygonID != tc.p.ID || malformed.RegionID != "r1" {
				t.Fatalf("error misattributed: %+v", malformed)
			}
		})
	}
}

func TestDegenerateRingFallsBackToMean(t *testing.T) {
	// three collinear points: zero area, vertex mean is the fallback
	line := poly("ln", [2]float64{0, 0}, [2]float64{2, 0}, [2]float64{4, 0})
	got, err := RawCentroid(line, PolicyAreaWeighted)
	if err != nil {
		t.Fatalf("RawCentroid: %v", err)
	}
	if got.X != 2 || got.Y != 0 {
		t.Fatalf("fallback centroid = %+v, want (2,0)", got)
	}
}

func TestParsePolicy(t *testing.T) {
	if _, err := ParsePolicy("vertex_mean_ceil"); err != nil {
		t.Fatalf("vertex_mean_ceil: %v", err)
	}
	if _, err := ParsePolicy("area_weighted"); err != nil {
		t.Fatalf("area_weighted: %v", err)
	}
	if _, err := ParsePolicy("median"); err == nil {
		t.Fatalf("unknown policy accepted")
	}
}

func TestFlipYRoundTrip(t *testing.T) {
	points := []domain.Point{{X: 0, Y: 0}, {X: 12.5, Y: 880}, {X: 3, Y: 1024}}
	for _, p := range points {
		back := FlipY(FlipY(p, 1024), 1024)
		if back != p {
			t.Fatalf("round trip %+v -> %+v", p, back)
		}
	}
	flipped := FlipY(domain.Point{X: 10, Y: 30}, 100)
	if flipped.X != 10 || flipped.Y != 70 {
		t.Fatalf("FlipY = %+v, want (10,70)", flipped)
	}
	c := FlipCell(domain.Cell{LocalID: 7, X: 1, Y: 2}, 10)
	if c.LocalID != 7 || c.Y != 8 {
		t.Fatalf("FlipCell = %+v", c)
	}
}
