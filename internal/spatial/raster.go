package spatial

import (
	"math"
	"sort"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// Cell is the integer index of one unit cube of the grid.
type Cell struct {
	X, Y, Z int
}

// CellOf returns the cell containing p.
func CellOf(p vmath.Vec3) Cell {
	return Cell{X: int(math.Floor(p.X)), Y: int(math.Floor(p.Y)), Z: int(math.Floor(p.Z))}
}

const (
	// snapEps pulls coordinates that are within float noise of a grid line
	// onto it so rotated boxes do not grow slivers.
	snapEps = 1e-9
	// minSpan is the shortest edge piece, in world units, that marks a cell.
	minSpan = 1e-9
)

// rowSpan is the occupied column range of one grid row.
type rowSpan struct{ min, max int }

// OccupiedCells returns every cell whose interior intersects the footprint.
// The top face is projected onto XZ; its edges are walked with an
// EdgeTraverser to find the extreme columns of each row, each row is filled
// between them, and the layer is repeated for every vertical layer the box
// spans. Cells the footprint only touches along a corner or an edge are not
// included. A footprint with no horizontal area occupies the cell holding its
// center.
func OccupiedCells(f Footprint) []Cell {
	return appendOccupied(nil, f)
}

func appendOccupied(dst []Cell, f Footprint) []Cell {
	corners := f.Corners()
	var quad [4][2]float64
	var cx, cz float64
	for i := 0; i < 4; i++ {
		quad[i] = [2]float64{snap(corners[i].X), snap(corners[i].Z)}
		cx += quad[i][0] / 4
		cz += quad[i][1] / 4
	}

	rows := make(map[int]rowSpan, 8)
	mark := func(x, z int) {
		r, ok := rows[z]
		if !ok {
			rows[z] = rowSpan{x, x}
			return
		}
		if x < r.min {
			r.min = x
		}
		if x > r.max {
			r.max = x
		}
		rows[z] = r
	}

	for i := 0; i < 4; i++ {
		a, b := quad[i], quad[(i+1)%4]
		walkEdge(a, b, cx, cz, mark)
	}

	y0, y1 := layerRange(f)
	if len(rows) == 0 {
		c := CellOf(f.Center)
		for y := y0; y <= y1; y++ {
			dst = append(dst, Cell{X: c.X, Y: y, Z: c.Z})
		}
		return dst
	}

	zs := make([]int, 0, len(rows))
	for z := range rows {
		zs = append(zs, z)
	}
	sort.Ints(zs)

	// Top layer first, then replicated downward.
	for y := y1; y >= y0; y-- {
		for _, z := range zs {
			r := rows[z]
			for x := r.min; x <= r.max; x++ {
				dst = append(dst, Cell{X: x, Y: y, Z: z})
			}
		}
	}
	return dst
}

// walkEdge marks the cells crossed by segment a-b, skipping pieces too short
// to cover any area. A segment lying exactly on a grid line is attributed to
// the cell on the footprint's interior side, found via the centroid.
func walkEdge(a, b [2]float64, cx, cz float64, mark func(x, z int)) {
	dx, dz := b[0]-a[0], b[1]-a[1]
	length := math.Hypot(dx, dz)
	if length < minSpan {
		return
	}

	onColumnLine := dx == 0 && a[0] == math.Floor(a[0])
	onRowLine := dz == 0 && a[1] == math.Floor(a[1])

	tr := NewEdgeTraverser(a[0], a[1], b[0], b[1])
	for {
		x, z, t0, t1, ok := tr.Next()
		if !ok {
			return
		}
		if (t1-t0)*length < minSpan {
			continue
		}
		if onColumnLine {
			x = interiorSide(a[0], cx)
		}
		if onRowLine {
			z = interiorSide(a[1], cz)
		}
		mark(x, z)
	}
}

// interiorSide picks the cell index adjacent to grid line `line` on the side
// of `centroid`.
func interiorSide(line, centroid float64) int {
	l := int(line)
	if centroid < line {
		return l - 1
	}
	return l
}

// layerRange returns the inclusive vertical layers a footprint fills. A flat
// box still occupies the layer its center sits in.
func layerRange(f Footprint) (int, int) {
	bottom, top := snap(f.Bottom()), snap(f.Top())
	y0 := int(math.Floor(bottom))
	y1 := int(math.Ceil(top)) - 1
	if y1 < y0 {
		y1 = y0
	}
	return y0, y1
}

func snap(v float64) float64 {
	r := math.Round(v)
	if math.Abs(v-r) < snapEps {
		return r
	}
	return v
}
