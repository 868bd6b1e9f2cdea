package spatial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
	"github.com/peterstace/simplefeatures/geom"
)

func cellSet(cells []Cell) map[Cell]bool {
	out := make(map[Cell]bool, len(cells))
	for _, c := range cells {
		out[c] = true
	}
	return out
}

func ringPolygon(pts [][2]float64) geom.Polygon {
	flat := make([]float64, 0, 2*len(pts)+2)
	for _, p := range pts {
		flat = append(flat, p[0], p[1])
	}
	flat = append(flat, pts[0][0], pts[0][1])
	return geom.NewPolygon([]geom.LineString{geom.NewLineString(geom.NewSequence(flat, geom.DimXY))})
}

// expectedTopLayer computes, by exact polygon clipping, the XZ cells whose
// area of intersection with the footprint's top face is positive.
func expectedTopLayer(t *testing.T, f Footprint) map[[2]int]bool {
	t.Helper()
	c := f.Corners()
	face := ringPolygon([][2]float64{{c[0].X, c[0].Z}, {c[1].X, c[1].Z}, {c[2].X, c[2].Z}, {c[3].X, c[3].Z}})

	minX, maxX, minZ, maxZ := math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	for i := 0; i < 4; i++ {
		minX, maxX = math.Min(minX, c[i].X), math.Max(maxX, c[i].X)
		minZ, maxZ = math.Min(minZ, c[i].Z), math.Max(maxZ, c[i].Z)
	}
	out := map[[2]int]bool{}
	for z := int(math.Floor(minZ)) - 1; z <= int(math.Floor(maxZ))+1; z++ {
		for x := int(math.Floor(minX)) - 1; x <= int(math.Floor(maxX))+1; x++ {
			fx, fz := float64(x), float64(z)
			cell := ringPolygon([][2]float64{{fx, fz}, {fx + 1, fz}, {fx + 1, fz + 1}, {fx, fz + 1}})
			inter, err := geom.Intersection(face.AsGeometry(), cell.AsGeometry())
			if err != nil {
				t.Fatalf("intersection of cell (%d,%d): %v", x, z, err)
			}
			if inter.Area() > 1e-12 {
				out[[2]int{x, z}] = true
			}
		}
	}
	return out
}

func topLayer(cells []Cell, y int) map[[2]int]bool {
	out := map[[2]int]bool{}
	for _, c := range cells {
		if c.Y == y {
			out[[2]int{c.X, c.Z}] = true
		}
	}
	return out
}

func TestOccupiedCells_UnitSquareIsOneCell(t *testing.T) {
	f := Box(vmath.V3(0.5, 0, 0.5), vmath.V3(0.5, 0, 0.5))
	cells := OccupiedCells(f)
	if len(cells) != 1 || cells[0] != (Cell{0, 0, 0}) {
		t.Fatalf("expected exactly cell (0,0,0), got %v", cells)
	}
}

func TestOccupiedCells_AxisAlignedOnGridLines(t *testing.T) {
	// 2x3 box spanning x in [1,3], z in [-1,2] exactly.
	f := Box(vmath.V3(2, 0.5, 0.5), vmath.V3(1, 0.5, 1.5))
	got := cellSet(OccupiedCells(f))
	if len(got) != 6 {
		t.Fatalf("expected 6 cells, got %d: %v", len(got), got)
	}
	for x := 1; x <= 2; x++ {
		for z := -1; z <= 1; z++ {
			if !got[Cell{x, 0, z}] {
				t.Fatalf("missing cell (%d,0,%d)", x, z)
			}
		}
	}
}

func TestOccupiedCells_VerticalLayers(t *testing.T) {
	// Bottom 0.2, top 2.5: layers 0, 1, 2.
	f := Box(vmath.V3(0.5, 1.35, 0.5), vmath.V3(0.25, 1.15, 0.25))
	got := cellSet(OccupiedCells(f))
	for y := 0; y <= 2; y++ {
		if !got[Cell{0, y, 0}] {
			t.Fatalf("missing layer %d: %v", y, got)
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 cells, got %v", got)
	}
}

func TestOccupiedCells_LayersStopAtIntegerTop(t *testing.T) {
	// Box exactly from y=0 to y=2 occupies layers 0 and 1 only.
	f := Box(vmath.V3(0.5, 1, 0.5), vmath.V3(0.4, 1, 0.4))
	got := cellSet(OccupiedCells(f))
	if got[Cell{0, 2, 0}] || !got[Cell{0, 0, 0}] || !got[Cell{0, 1, 0}] {
		t.Fatalf("unexpected layers: %v", got)
	}
}

func TestOccupiedCells_DiamondExcludesCornerTouch(t *testing.T) {
	// A square rotated 45 deg centered on a grid vertex. Its corners land
	// exactly on grid lines; cells it only touches at those points must
	// not appear.
	f := Footprint{Center: vmath.V3(0, 0, 0), Extents: vmath.V3(math.Sqrt2/2, 0, math.Sqrt2/2), Yaw: math.Pi / 4}
	got := topLayer(OccupiedCells(f), 0)
	want := map[[2]int]bool{{-1, -1}: true, {0, -1}: true, {-1, 0}: true, {0, 0}: true}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for c := range want {
		if !got[c] {
			t.Fatalf("missing %v in %v", c, got)
		}
	}
}

func TestOccupiedCells_DiagonalThroughVertices(t *testing.T) {
	// Edges pass exactly through grid vertices (tie between x and z
	// crossings). The diagonal neighbours at those vertices are only touched.
	f := Footprint{Center: vmath.V3(2, 0, 2), Extents: vmath.V3(2*math.Sqrt2, 0, 0.5*math.Sqrt2), Yaw: math.Pi / 4}
	want := expectedTopLayer(t, f)
	got := topLayer(OccupiedCells(f), 0)
	compareLayers(t, f, want, got)
}

func TestOccupiedCells_MatchesExactCoverage(t *testing.T) {
	cases := []Footprint{
		Box(vmath.V3(0.3, 0, 0.7), vmath.V3(1.2, 0, 0.4)),
		{Center: vmath.V3(3.3, 0, -2.1), Extents: vmath.V3(1.5, 0, 0.6), Yaw: 0.3},
		{Center: vmath.V3(-4.75, 0, 1.25), Extents: vmath.V3(0.3, 0, 2.2), Yaw: 1.1},
		{Center: vmath.V3(0, 0, 0), Extents: vmath.V3(2, 0, 2), Yaw: math.Pi / 6},
		{Center: vmath.V3(10.5, 0, 10.5), Extents: vmath.V3(0.5, 0, 0.5), Yaw: math.Pi / 2},
		{Center: vmath.V3(7.1, 0, 3.9), Extents: vmath.V3(3.1, 0, 0.2), Yaw: -0.7},
	}
	rng := rand.New(rand.NewSource(7)) // #nosec G404 -- deterministic test input
	for i := 0; i < 40; i++ {
		cases = append(cases, Footprint{
			Center:  vmath.V3(rng.Float64()*20-10, 0, rng.Float64()*20-10),
			Extents: vmath.V3(0.1+rng.Float64()*3, 0, 0.1+rng.Float64()*3),
			Yaw:     rng.Float64() * 2 * math.Pi,
		})
	}
	for _, f := range cases {
		want := expectedTopLayer(t, f)
		got := topLayer(OccupiedCells(f), int(math.Floor(f.Center.Y)))
		compareLayers(t, f, want, got)
	}
}

func compareLayers(t *testing.T, f Footprint, want, got map[[2]int]bool) {
	t.Helper()
	for c := range want {
		if !got[c] {
			t.Fatalf("footprint %+v: cell %v intersects but was not occupied", f, c)
		}
	}
	for c := range got {
		if !want[c] {
			t.Fatalf("footprint %+v: cell %v occupied but does not intersect", f, c)
		}
	}
}

func TestOccupiedCells_DegenerateFallsBackToCenter(t *testing.T) {
	f := Box(vmath.V3(2.5, 0.5, -3.5), vmath.Vec3{})
	cells := OccupiedCells(f)
	if len(cells) != 1 || cells[0] != (Cell{2, 0, -4}) {
		t.Fatalf("expected center cell (2,0,-4), got %v", cells)
	}
}

func TestEdgeTraverser_TiePrefersX(t *testing.T) {
	tr := NewEdgeTraverser(0.5, 0.5, 1.5, 1.5)
	var visited [][2]int
	var zeroLen [][2]int
	for {
		x, z, t0, t1, ok := tr.Next()
		if !ok {
			break
		}
		if t1-t0 < 1e-12 {
			zeroLen = append(zeroLen, [2]int{x, z})
			continue
		}
		visited = append(visited, [2]int{x, z})
	}
	if len(visited) != 2 || visited[0] != [2]int{0, 0} || visited[1] != [2]int{1, 1} {
		t.Fatalf("expected (0,0) then (1,1), got %v", visited)
	}
	if len(zeroLen) != 1 || zeroLen[0] != [2]int{1, 0} {
		t.Fatalf("expected a zero-length x step into (1,0), got %v", zeroLen)
	}
}

func TestEdgeTraverser_SpansCoverSegment(t *testing.T) {
	tr := NewEdgeTraverser(-1.3, 2.7, 3.9, -0.4)
	prev := 0.0
	for {
		_, _, t0, t1, ok := tr.Next()
		if !ok {
			break
		}
		if t0 != prev || t1 < t0 {
			t.Fatalf("spans not contiguous: prev=%v t0=%v t1=%v", prev, t0, t1)
		}
		prev = t1
	}
	if prev != 1 {
		t.Fatalf("expected spans to end at 1, ended at %v", prev)
	}
}
