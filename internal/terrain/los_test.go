package terrain

import (
	"testing"

	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

func TestIsBlocked_NoObstacles(t *testing.T) {
	o := NewObstacles(nil, 0)
	if o.IsBlocked(vmath.V3(0, 0, 0), vmath.V3(100, 0, 100)) {
		t.Fatal("should not be blocked with no obstacles")
	}
}

func TestIsBlocked_ThroughObstacle(t *testing.T) {
	o := NewObstacles([]Rect{{40, 40, 60, 60}}, 0)
	if !o.IsBlocked(vmath.V3(0, 0, 50), vmath.V3(100, 0, 50)) {
		t.Fatal("segment crossing the obstacle should be blocked")
	}
}

func TestIsBlocked_MissesObstacle(t *testing.T) {
	o := NewObstacles([]Rect{{40, 40, 60, 60}}, 0)
	if o.IsBlocked(vmath.V3(0, 0, 10), vmath.V3(100, 0, 10)) {
		t.Fatal("segment passing beside the obstacle should be clear")
	}
}

func TestIsBlocked_PaddingWidensObstacle(t *testing.T) {
	o := NewObstacles([]Rect{{40, 40, 60, 60}}, 5)
	if !o.IsBlocked(vmath.V3(0, 0, 37), vmath.V3(100, 0, 37)) {
		t.Fatal("segment inside the padding should be blocked")
	}
}

func TestIsBlocked_EndsBeforeObstacle(t *testing.T) {
	o := NewObstacles([]Rect{{40, 40, 60, 60}}, 0)
	if o.IsBlocked(vmath.V3(0, 0, 50), vmath.V3(30, 0, 50)) {
		t.Fatal("segment ending short of the obstacle should be clear")
	}
}

func TestIsBlocked_VerticalSegment(t *testing.T) {
	o := NewObstacles([]Rect{{40, 40, 60, 60}}, 0)
	if !o.IsBlocked(vmath.V3(50, 0, 0), vmath.V3(50, 0, 100)) {
		t.Fatal("axis-parallel segment through the obstacle should be blocked")
	}
}

func TestFirstHit_Nearest(t *testing.T) {
	o := NewObstacles([]Rect{{60, 40, 70, 60}, {20, 40, 30, 60}}, 0)
	tHit, ok := o.FirstHit(vmath.V3(0, 0, 50), vmath.V3(100, 0, 50))
	if !ok {
		t.Fatal("expected a hit")
	}
	if tHit < 0.19 || tHit > 0.21 {
		t.Fatalf("expected hit at t=0.2, got %.3f", tHit)
	}
}
