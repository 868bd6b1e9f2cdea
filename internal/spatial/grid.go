// Package spatial indexes unit footprints on a grid of unit cubes and answers
// proximity queries over it.
package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

var (
	// ErrAlreadyIndexed is returned by Insert for an occupant already in the grid.
	ErrAlreadyIndexed = errors.New("spatial: occupant already indexed")
	// ErrNotIndexed is returned by Remove for an occupant not in the grid.
	ErrNotIndexed = errors.New("spatial: occupant not indexed")
)

// Occupant is anything the grid can index. Occupants are compared by value,
// so pointer types are the usual choice.
type Occupant interface {
	comparable
	Footprint() Footprint
}

const nilRecord int32 = -1

// record is one (occupant, cell) occupancy entry. Records of the same cell
// form a doubly linked list through prev/next pool indices.
type record[U Occupant] struct {
	occupant U
	cell     Cell
	prev     int32
	next     int32
}

// Grid maps occupants to the cells their footprint covers. Records live in a
// flat pool; each non-empty cell stores the index of its first record and
// freed slots are reused through a free list.
//
// Grid is not safe for concurrent use.
type Grid[U Occupant] struct {
	records []record[U]
	free    []int32
	heads   map[Cell]int32
	owned   map[U][]int32
	strict  bool

	scratch []Cell
	seen    map[U]struct{}
}

// GridOption configures a Grid.
type GridOption func(*gridConfig)

type gridConfig struct {
	strict bool
}

// WithStrict makes Insert and Remove panic on misuse instead of returning an
// error. Intended for debug builds and tests.
func WithStrict(strict bool) GridOption {
	return func(c *gridConfig) { c.strict = strict }
}

// NewGrid creates an empty grid.
func NewGrid[U Occupant](opts ...GridOption) *Grid[U] {
	var cfg gridConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Grid[U]{
		heads:  make(map[Cell]int32),
		owned:  make(map[U][]int32),
		strict: cfg.strict,
		seen:   make(map[U]struct{}),
	}
}

// Insert indexes u in every cell its footprint occupies.
func (g *Grid[U]) Insert(u U) error {
	if _, ok := g.owned[u]; ok {
		return g.misuse(ErrAlreadyIndexed)
	}
	g.scratch = appendOccupied(g.scratch[:0], u.Footprint())
	idx := make([]int32, 0, len(g.scratch))
	for _, c := range g.scratch {
		idx = append(idx, g.link(u, c))
	}
	g.owned[u] = idx
	return nil
}

// Remove unlinks every occupancy record of u.
func (g *Grid[U]) Remove(u U) error {
	idx, ok := g.owned[u]
	if !ok {
		return g.misuse(ErrNotIndexed)
	}
	for _, i := range idx {
		g.unlink(i)
	}
	delete(g.owned, u)
	return nil
}

// Update re-indexes u at its current footprint. An occupant that is not yet
// indexed is inserted.
func (g *Grid[U]) Update(u U) error {
	if _, ok := g.owned[u]; ok {
		if err := g.Remove(u); err != nil {
			return err
		}
	}
	return g.Insert(u)
}

// Contains reports whether u is indexed.
func (g *Grid[U]) Contains(u U) bool {
	_, ok := g.owned[u]
	return ok
}

// Len is the number of indexed occupants.
func (g *Grid[U]) Len() int { return len(g.owned) }

// CellCount is the number of non-empty cells.
func (g *Grid[U]) CellCount() int { return len(g.heads) }

// Cells returns the cells u occupies, in insertion order.
func (g *Grid[U]) Cells(u U) []Cell {
	idx := g.owned[u]
	out := make([]Cell, len(idx))
	for i, r := range idx {
		out[i] = g.records[r].cell
	}
	return out
}

// Occupants returns the occupants of c, most recently inserted first.
func (g *Grid[U]) Occupants(c Cell) []U {
	var out []U
	for i := g.headOf(c); i != nilRecord; i = g.records[i].next {
		out = append(out, g.records[i].occupant)
	}
	return out
}

// ForEachCell calls fn for every non-empty cell with its occupant count.
// Iteration order is unspecified.
func (g *Grid[U]) ForEachCell(fn func(c Cell, n int)) {
	for c, h := range g.heads {
		n := 0
		for i := h; i != nilRecord; i = g.records[i].next {
			n++
		}
		fn(c, n)
	}
}

// FindNear returns every occupant with at least one cell in the inclusive
// range [floor(center-halfExtents), floor(center+halfExtents)]. Each
// occupant appears once, in discovery order.
func (g *Grid[U]) FindNear(center, halfExtents vmath.Vec3) []U {
	lo := CellOf(center.Sub(halfExtents))
	hi := CellOf(center.Add(halfExtents))
	if lo.X > hi.X || lo.Y > hi.Y || lo.Z > hi.Z {
		return nil
	}

	clear(g.seen)
	var out []U
	collect := func(h int32) {
		for i := h; i != nilRecord; i = g.records[i].next {
			u := g.records[i].occupant
			if _, dup := g.seen[u]; dup {
				continue
			}
			g.seen[u] = struct{}{}
			out = append(out, u)
		}
	}

	// Scan whichever is smaller: the query box or the occupied cells.
	if rangeVolume(lo, hi) > float64(len(g.heads)) {
		for c, h := range g.heads {
			if c.X >= lo.X && c.X <= hi.X && c.Y >= lo.Y && c.Y <= hi.Y && c.Z >= lo.Z && c.Z <= hi.Z {
				collect(h)
			}
		}
		return out
	}
	for y := lo.Y; y <= hi.Y; y++ {
		for z := lo.Z; z <= hi.Z; z++ {
			for x := lo.X; x <= hi.X; x++ {
				if h, ok := g.heads[Cell{x, y, z}]; ok {
					collect(h)
				}
			}
		}
	}
	return out
}

func rangeVolume(lo, hi Cell) float64 {
	return float64(hi.X-lo.X+1) * float64(hi.Y-lo.Y+1) * float64(hi.Z-lo.Z+1)
}

// link prepends a record for (u, c) and returns its pool index.
func (g *Grid[U]) link(u U, c Cell) int32 {
	var i int32
	if n := len(g.free); n > 0 {
		i = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		if len(g.records) >= math.MaxInt32 {
			panic("spatial: record pool exhausted")
		}
		g.records = append(g.records, record[U]{})
		i = int32(len(g.records) - 1)
	}
	head := g.headOf(c)
	g.records[i] = record[U]{occupant: u, cell: c, prev: nilRecord, next: head}
	if head != nilRecord {
		g.records[head].prev = i
	}
	g.heads[c] = i
	return i
}

// unlink removes record i from its cell list and frees the slot.
func (g *Grid[U]) unlink(i int32) {
	r := &g.records[i]
	if r.prev != nilRecord {
		g.records[r.prev].next = r.next
	} else if r.next != nilRecord {
		g.heads[r.cell] = r.next
	} else {
		delete(g.heads, r.cell)
	}
	if r.next != nilRecord {
		g.records[r.next].prev = r.prev
	}
	var zero U
	*r = record[U]{occupant: zero, prev: nilRecord, next: nilRecord}
	g.free = append(g.free, i)
}

func (g *Grid[U]) headOf(c Cell) int32 {
	if h, ok := g.heads[c]; ok {
		return h
	}
	return nilRecord
}

func (g *Grid[U]) misuse(err error) error {
	if g.strict {
		panic(fmt.Sprintf("%v", err))
	}
	return err
}
