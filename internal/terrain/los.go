package terrain

import (
	"math"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

// Obstacles answers straight-line obstruction queries against a fixed set of
// rectangles, each grown by a clearance padding.
type Obstacles struct {
	rects []Rect
}

// NewObstacles copies rects, growing each by pad.
func NewObstacles(rects []Rect, pad float64) *Obstacles {
	grown := make([]Rect, len(rects))
	for i, r := range rects {
		grown[i] = r.Expand(pad)
	}
	return &Obstacles{rects: grown}
}

// Rects returns the padded rectangles.
func (o *Obstacles) Rects() []Rect { return o.rects }

// IsBlocked returns true if the XZ segment from->to intersects any obstacle.
func (o *Obstacles) IsBlocked(from, to vmath.Vec3) bool {
	for _, r := range o.rects {
		if segmentIntersectsRect(from.X, from.Z, to.X, to.Z, r) {
			return true
		}
	}
	return false
}

// FirstHit returns the segment parameter of the nearest obstacle entry along
// from->to. The bool is false when nothing is hit.
func (o *Obstacles) FirstHit(from, to vmath.Vec3) (float64, bool) {
	best := math.Inf(1)
	for _, r := range o.rects {
		if t, ok := segmentRectHitT(from.X, from.Z, to.X, to.Z, r); ok && t < best {
			best = t
		}
	}
	return best, !math.IsInf(best, 1)
}

// segmentRectHitT returns the first segment parameter t in [0,1] where the line
// from (ox,oz)->(ex,ez) enters the rectangle. The bool is false when no hit exists.
func segmentRectHitT(ox, oz, ex, ez float64, r Rect) (float64, bool) {
	dx := ex - ox
	dz := ez - oz

	tMin := 0.0
	tMax := 1.0

	// Check X slab
	if math.Abs(dx) < 1e-12 {
		if ox < r.MinX || ox > r.MaxX {
			return 0, false
		}
	} else {
		invD := 1.0 / dx
		t1 := (r.MinX - ox) * invD
		t2 := (r.MaxX - ox) * invD
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}

	// Check Z slab
	if math.Abs(dz) < 1e-12 {
		if oz < r.MinZ || oz > r.MaxZ {
			return 0, false
		}
	} else {
		invD := 1.0 / dz
		t1 := (r.MinZ - oz) * invD
		t2 := (r.MaxZ - oz) * invD
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}

	if tMax < 0 || tMin > 1 {
		return 0, false
	}
	return tMin, true
}

func segmentIntersectsRect(ox, oz, ex, ez float64, r Rect) bool {
	_, hit := segmentRectHitT(ox, oz, ex, ez, r)
	return hit
}
