package view

import "github.com/Garsondee/Unit-Commander/internal/vmath"

const (
	zoomMin = 0.5
	zoomMax = 6.0
)

// Camera maps world XZ to screen pixels. World Z grows downward on screen.
type Camera struct {
	X, Z float64 // world point at the viewport centre
	Zoom float64
	// PPU is pixels per world unit at zoom 1.
	PPU float64

	// viewport size in pixels
	W, H float64
}

func (c Camera) scale() float64 { return c.PPU * c.Zoom }

// ToScreen converts a world position to viewport pixels.
func (c Camera) ToScreen(p vmath.Vec3) (float32, float32) {
	s := c.scale()
	return float32((p.X-c.X)*s + c.W/2), float32((p.Z-c.Z)*s + c.H/2)
}

// ToWorld converts viewport pixels to a world position on the ground.
func (c Camera) ToWorld(sx, sy float64) vmath.Vec3 {
	s := c.scale()
	return vmath.V3((sx-c.W/2)/s+c.X, 0, (sy-c.H/2)/s+c.Z)
}

// Pan moves the centre by screen pixels.
func (c *Camera) Pan(dx, dy float64) {
	s := c.scale()
	c.X += dx / s
	c.Z += dy / s
}

// ZoomBy multiplies the zoom, clamped.
func (c *Camera) ZoomBy(f float64) {
	c.Zoom = min(max(c.Zoom*f, zoomMin), zoomMax)
}

// Clamp keeps the viewport centre inside a width x depth map.
func (c *Camera) Clamp(width, depth float64) {
	c.X = min(max(c.X, 0), width)
	c.Z = min(max(c.Z, 0), depth)
}

// keyEdges turns held-key samples into press events.
type keyEdges[K comparable] struct {
	prev map[K]bool
	cur  map[K]bool
}

func newKeyEdges[K comparable]() *keyEdges[K] {
	return &keyEdges[K]{prev: map[K]bool{}, cur: map[K]bool{}}
}

// Sample records the key state for this frame and reports a fresh press.
func (k *keyEdges[K]) Sample(key K, down bool) bool {
	k.cur[key] = down
	return down && !k.prev[key]
}

// Next ends the frame.
func (k *keyEdges[K]) Next() {
	k.prev, k.cur = k.cur, k.prev
	clear(k.cur)
}
