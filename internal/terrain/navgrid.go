// Package terrain provides the reference route computer and obstruction
// checker used by the simulation: an A* walkability grid over rectangular
// obstacles on the XZ plane.
package terrain

import (
	"container/heap"
	"math"

	"github.com/Garsondee/Unit-Commander/internal/spatial"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// Rect is an axis-aligned obstacle on the ground plane.
type Rect struct {
	MinX, MinZ float64
	MaxX, MaxZ float64
}

// Expand grows r by pad on every side.
func (r Rect) Expand(pad float64) Rect {
	return Rect{r.MinX - pad, r.MinZ - pad, r.MaxX + pad, r.MaxZ + pad}
}

// Contains reports whether (x, z) lies inside r, edges included.
func (r Rect) Contains(x, z float64) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// NavGrid is a 2D walkability grid where true = blocked.
type NavGrid struct {
	cols     int
	rows     int
	cellSize float64
	blocked  []bool
}

// NewNavGrid builds a walkability grid covering [0,width)x[0,depth). Each cell
// that overlaps an obstacle grown by pad (unit clearance) is blocked.
func NewNavGrid(width, depth, cellSize float64, obstacles []Rect, pad float64) *NavGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(depth / cellSize))
	ng := &NavGrid{
		cols:     cols,
		rows:     rows,
		cellSize: cellSize,
		blocked:  make([]bool, cols*rows),
	}

	for _, o := range obstacles {
		b := o.Expand(pad)
		cMinX := max(0, int(math.Floor(b.MinX/cellSize)))
		cMinZ := max(0, int(math.Floor(b.MinZ/cellSize)))
		cMaxX := min(cols-1, int(math.Ceil(b.MaxX/cellSize))-1)
		cMaxZ := min(rows-1, int(math.Ceil(b.MaxZ/cellSize))-1)

		for cz := cMinZ; cz <= cMaxZ; cz++ {
			for cx := cMinX; cx <= cMaxX; cx++ {
				ng.blocked[cz*cols+cx] = true
			}
		}
	}
	return ng
}

// Size returns the grid dimensions in cells.
func (ng *NavGrid) Size() (cols, rows int) { return ng.cols, ng.rows }

// CellSize is the edge length of one nav cell in world units.
func (ng *NavGrid) CellSize() float64 { return ng.cellSize }

// IsCellBlocked returns true if the cell at (cx, cz) is not walkable.
func (ng *NavGrid) IsCellBlocked(cx, cz int) bool {
	if cx < 0 || cz < 0 || cx >= ng.cols || cz >= ng.rows {
		return true
	}
	return ng.blocked[cz*ng.cols+cx]
}

// WorldToCell converts a world position to grid cell coordinates.
func (ng *NavGrid) WorldToCell(p vmath.Vec3) (int, int) {
	return int(math.Floor(p.X / ng.cellSize)), int(math.Floor(p.Z / ng.cellSize))
}

// CellToWorld converts grid cell coordinates to the world-space cell center.
func (ng *NavGrid) CellToWorld(cx, cz int) vmath.Vec3 {
	return vmath.Vec3{
		X: (float64(cx) + 0.5) * ng.cellSize,
		Z: (float64(cz) + 0.5) * ng.cellSize,
	}
}

// --- A* pathfinding ---

type pathNode struct {
	cx, cz int
	g, h   float64
	parent *pathNode
	index  int // heap index
}

type openList []*pathNode

func (ol openList) Len() int           { return len(ol) }
func (ol openList) Less(i, j int) bool { return (ol[i].g + ol[i].h) < (ol[j].g + ol[j].h) }
func (ol openList) Swap(i, j int)      { ol[i], ol[j] = ol[j], ol[i]; ol[i].index = i; ol[j].index = j }
func (ol *openList) Push(x any)        { n := x.(*pathNode); n.index = len(*ol); *ol = append(*ol, n) }
func (ol *openList) Pop() any {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

var dirs = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// FindPath returns the cell-center waypoints from the cell holding from to
// the cell holding to. Returns nil if either end is blocked or no path exists.
func (ng *NavGrid) FindPath(from, to vmath.Vec3) []vmath.Vec3 {
	scx, scz := ng.WorldToCell(from)
	gcx, gcz := ng.WorldToCell(to)

	if ng.IsCellBlocked(scx, scz) || ng.IsCellBlocked(gcx, gcz) {
		return nil
	}

	key := func(cx, cz int) int { return cz*ng.cols + cx }
	heuristic := func(ax, az, bx, bz int) float64 {
		dx := math.Abs(float64(ax - bx))
		dz := math.Abs(float64(az - bz))
		return dx + dz + (math.Sqrt2-2)*math.Min(dx, dz)
	}

	start := &pathNode{cx: scx, cz: scz, h: heuristic(scx, scz, gcx, gcz)}
	ol := &openList{start}
	heap.Init(ol)

	closed := make(map[int]bool)
	best := make(map[int]*pathNode)
	best[key(scx, scz)] = start

	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
		if cur.cx == gcx && cur.cz == gcz {
			return ng.buildPath(cur)
		}
		k := key(cur.cx, cur.cz)
		if closed[k] {
			continue
		}
		closed[k] = true

		for _, d := range dirs {
			nx, nz := cur.cx+d[0], cur.cz+d[1]
			if ng.IsCellBlocked(nx, nz) {
				continue
			}
			// Prevent diagonal corner-cutting through blocked cells.
			if d[0] != 0 && d[1] != 0 {
				if ng.IsCellBlocked(cur.cx+d[0], cur.cz) || ng.IsCellBlocked(cur.cx, cur.cz+d[1]) {
					continue
				}
			}
			nk := key(nx, nz)
			if closed[nk] {
				continue
			}
			cost := 1.0
			if d[0] != 0 && d[1] != 0 {
				cost = math.Sqrt2
			}
			g := cur.g + cost
			if prev, ok := best[nk]; ok && g >= prev.g {
				continue
			}
			node := &pathNode{cx: nx, cz: nz, g: g, h: heuristic(nx, nz, gcx, gcz), parent: cur}
			best[nk] = node
			heap.Push(ol, node)
		}
	}
	return nil
}

func (ng *NavGrid) buildPath(end *pathNode) []vmath.Vec3 {
	var cells [][2]int
	for n := end; n != nil; n = n.parent {
		cells = append(cells, [2]int{n.cx, n.cz})
	}
	// Reverse
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	out := make([]vmath.Vec3, len(cells))
	for i, c := range cells {
		out[i] = ng.CellToWorld(c[0], c[1])
	}
	return out
}

// Walkable reports whether the straight segment a-b crosses only walkable
// cells. Cells the segment merely grazes at a corner do not count.
func (ng *NavGrid) Walkable(a, b vmath.Vec3) bool {
	s := ng.cellSize
	length := a.DistXZ(b) / s
	tr := spatial.NewEdgeTraverser(a.X/s, a.Z/s, b.X/s, b.Z/s)
	for {
		cx, cz, t0, t1, ok := tr.Next()
		if !ok {
			return true
		}
		if (t1-t0)*length < 1e-9 {
			continue
		}
		if ng.IsCellBlocked(cx, cz) {
			return false
		}
	}
}

// ComputeRoute finds a walkable route from from to to. The route starts at
// from, ends exactly at to, and has intermediate cell-center waypoints pulled
// tight wherever a straight walk is clear. ok is false when no route exists.
func (ng *NavGrid) ComputeRoute(from, to vmath.Vec3) ([]vmath.Vec3, bool) {
	cells := ng.FindPath(from, to)
	if cells == nil {
		return nil, false
	}
	raw := make([]vmath.Vec3, 0, len(cells)+1)
	raw = append(raw, from)
	if len(cells) > 2 {
		for _, c := range cells[1 : len(cells)-1] {
			c.Y = to.Y
			raw = append(raw, c)
		}
	}
	raw = append(raw, to)
	return ng.smooth(raw), true
}

// smooth drops intermediate waypoints that can be skipped by walking
// straight from the last kept waypoint.
func (ng *NavGrid) smooth(pts []vmath.Vec3) []vmath.Vec3 {
	if len(pts) <= 2 {
		return pts
	}
	out := []vmath.Vec3{pts[0]}
	anchor := 0
	for i := 2; i < len(pts); i++ {
		if !ng.Walkable(pts[anchor], pts[i]) {
			anchor = i - 1
			out = append(out, pts[anchor])
		}
	}
	return append(out, pts[len(pts)-1])
}
