// Package view is an interactive ebiten front end for a sim.World.
package view

import (
	"fmt"
	"image/color"
	"math"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/rs/zerolog"
	"golang.org/x/image/font/basicfont"

	"github.com/Garsondee/Unit-Commander/internal/command"
	"github.com/Garsondee/Unit-Commander/internal/path"
	"github.com/Garsondee/Unit-Commander/internal/scenario"
	"github.com/Garsondee/Unit-Commander/internal/sim"
	"github.com/Garsondee/Unit-Commander/internal/spatial"
	"github.com/Garsondee/Unit-Commander/internal/vmath"
)

var speeds = []float64{0, 0.5, 1, 2, 4}

func slower(cur float64) float64 {
	for i, s := range speeds {
		if s >= cur && i > 0 {
			return speeds[i-1]
		}
	}
	return cur
}

func faster(cur float64) float64 {
	for _, s := range speeds {
		if s > cur {
			return s
		}
	}
	return cur
}

var (
	colBackground = color.RGBA{R: 24, G: 30, B: 22, A: 255}
	colMap        = color.RGBA{R: 38, G: 48, B: 34, A: 255}
	colObstacle   = color.RGBA{R: 92, G: 84, B: 70, A: 255}
	colRoute      = color.RGBA{R: 220, G: 200, B: 90, A: 180}
	colDetour     = color.RGBA{R: 240, G: 120, B: 40, A: 220}
	colSelected   = color.RGBA{R: 240, G: 240, B: 120, A: 255}
	colGrid       = color.RGBA{R: 90, G: 170, B: 90, A: 70}
	colHUD        = color.RGBA{R: 200, G: 210, B: 200, A: 255}
)

// Viewer implements ebiten.Game.
type Viewer struct {
	world    *sim.World
	scenario *scenario.Scenario
	ctl      *Controller
	events   *EventLog
	log      zerolog.Logger
	face     text.Face

	cam       Camera
	keys      *keyEdges[ebiten.Key]
	buttons   *keyEdges[ebiten.MouseButton]
	simSpeed  float64
	tickAccum float64
	showGrid  bool
	showHUD   bool

	status string

	width, height int
	gameWidth     int
}

// New creates a viewer over w. sc may be nil; when set, its timed orders are
// issued as the world reaches them.
func New(w *sim.World, sc *scenario.Scenario, width, height int) *Viewer {
	v := &Viewer{
		world:     w,
		scenario:  sc,
		ctl:       NewController(w),
		events:    NewEventLog(),
		log:       w.Logger(),
		face:      text.NewGoXFace(basicfont.Face7x13),
		keys:      newKeyEdges[ebiten.Key](),
		buttons:   newKeyEdges[ebiten.MouseButton](),
		simSpeed:  1,
		showHUD:   true,
		width:     width,
		height:    height,
		gameWidth: width - logPanelWidth,
	}
	mw, md := w.Size()
	ppu := min(float64(v.gameWidth)/mw, float64(height)/md)
	v.cam = Camera{X: mw / 2, Z: md / 2, Zoom: 1, PPU: ppu, W: float64(v.gameWidth), H: float64(height)}
	w.SimLog().SetSink(v.events.Observe)
	return v
}

func (v *Viewer) Layout(_, _ int) (int, int) { return v.width, v.height }

func (v *Viewer) Update() error {
	v.handleInput()
	if v.simSpeed <= 0 {
		return nil
	}
	v.tickAccum += v.simSpeed
	for v.tickAccum >= 1.0 {
		v.tickAccum -= 1.0
		v.world.Step()
		if v.scenario != nil {
			if err := v.scenario.Apply(v.world); err != nil {
				v.log.Error().Err(err).Int("tick", v.world.Tick()).Msg("scenario order failed")
				v.status = err.Error()
			}
		}
	}
	return nil
}

func (v *Viewer) pressed(k ebiten.Key) bool { return v.keys.Sample(k, ebiten.IsKeyPressed(k)) }

func (v *Viewer) handleInput() {
	defer v.keys.Next()
	defer v.buttons.Next()

	pan := 6.0
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		v.cam.Pan(0, -pan)
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		v.cam.Pan(0, pan)
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		v.cam.Pan(-pan, 0)
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		v.cam.Pan(pan, 0)
	}
	if _, wy := ebiten.Wheel(); wy != 0 {
		v.cam.ZoomBy(math.Pow(1.12, wy))
	}
	if v.pressed(ebiten.KeyEqual) {
		v.cam.ZoomBy(1.25)
	}
	if v.pressed(ebiten.KeyMinus) {
		v.cam.ZoomBy(1 / 1.25)
	}
	v.cam.Clamp(v.world.Size())

	if v.pressed(ebiten.KeyP) {
		if v.simSpeed > 0 {
			v.simSpeed = 0
		} else {
			v.simSpeed = 1
		}
	}
	if v.pressed(ebiten.KeyComma) {
		v.simSpeed = slower(v.simSpeed)
	}
	if v.pressed(ebiten.KeyPeriod) {
		v.simSpeed = faster(v.simSpeed)
	}
	if v.pressed(ebiten.KeyH) {
		v.showHUD = !v.showHUD
	}
	if v.pressed(ebiten.KeyG) {
		v.showGrid = !v.showGrid
	}
	if v.pressed(ebiten.KeyN) {
		v.status = "formation: " + v.ctl.CycleFormation().String()
	}
	if v.pressed(ebiten.Key1) {
		v.ctl.SelectTeam(sim.TeamRed)
	}
	if v.pressed(ebiten.Key2) {
		v.ctl.SelectTeam(sim.TeamBlue)
	}
	if v.pressed(ebiten.KeyC) {
		if err := clipboard.WriteAll(v.world.Summary()); err != nil {
			v.log.Warn().Err(err).Msg("clipboard write failed")
			v.status = "clipboard unavailable"
		} else {
			v.status = "summary copied"
		}
	}

	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	mx, my := ebiten.CursorPosition()
	if mx >= v.gameWidth {
		return
	}
	p := v.cam.ToWorld(float64(mx), float64(my))
	if v.buttons.Sample(ebiten.MouseButtonLeft, ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)) {
		v.ctl.Select(p, shift)
	}
	if v.buttons.Sample(ebiten.MouseButtonRight, ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)) {
		g, err := v.ctl.Order(p, shift)
		if err != nil {
			v.status = err.Error()
			return
		}
		v.status = fmt.Sprintf("%s order: %d units", g.Kind(), g.Len())
	}
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(colBackground)

	mw, md := v.world.Size()
	v.fillWorldRect(screen, 0, 0, mw, md, colMap)
	for _, r := range v.world.Obstacles() {
		v.fillWorldRect(screen, r.MinX, r.MinZ, r.MaxX, r.MaxZ, colObstacle)
	}
	if v.showGrid {
		v.drawOccupancy(screen)
	}
	for _, g := range v.world.Groups() {
		v.drawGroup(screen, g)
	}
	selected := map[*sim.Agent]bool{}
	for _, a := range v.ctl.Selected() {
		selected[a] = true
	}
	for _, a := range v.world.Agents() {
		if a.Valid() {
			v.drawAgent(screen, a, selected[a])
		}
	}
	if v.showHUD {
		v.drawHUD(screen)
	}
	v.events.Draw(screen, v.face, v.gameWidth, v.height)
}

func (v *Viewer) fillWorldRect(dst *ebiten.Image, minX, minZ, maxX, maxZ float64, c color.Color) {
	x0, y0 := v.cam.ToScreen(vmath.V3(minX, 0, minZ))
	x1, y1 := v.cam.ToScreen(vmath.V3(maxX, 0, maxZ))
	vector.FillRect(dst, x0, y0, x1-x0, y1-y0, c, false)
}

func (v *Viewer) drawOccupancy(dst *ebiten.Image) {
	s := float32(v.cam.scale())
	v.world.Grid().ForEachCell(func(c spatial.Cell, n int) {
		x, y := v.cam.ToScreen(vmath.V3(float64(c.X), 0, float64(c.Z)))
		vector.StrokeRect(dst, x, y, s, s, 1, colGrid, false)
		if n > 1 {
			vector.FillRect(dst, x, y, s, s, color.RGBA{R: 200, G: 80, B: 60, A: 60}, false)
		}
	})
}

func (v *Viewer) drawPolyline(dst *ebiten.Image, pts []vmath.Vec3, c color.Color) {
	for i := 1; i < len(pts); i++ {
		x0, y0 := v.cam.ToScreen(pts[i-1])
		x1, y1 := v.cam.ToScreen(pts[i])
		vector.StrokeLine(dst, x0, y0, x1, y1, 1, c, true)
	}
}

func (v *Viewer) drawGroup(dst *ebiten.Image, g *command.Group) {
	v.drawPolyline(dst, g.Route(), colRoute)
	for _, m := range g.Members() {
		cur := m.CurrentPath()
		if cur == nil {
			continue
		}
		if !m.Paths().IsMain() {
			v.drawPolyline(dst, remaining(cur), colDetour)
		}
		if n, ok := m.NextNode(); ok {
			x0, y0 := v.cam.ToScreen(m.Unit().Position())
			x1, y1 := v.cam.ToScreen(n)
			vector.StrokeLine(dst, x0, y0, x1, y1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 50}, true)
		}
	}
	if obj := g.Objective(); obj.Kind == command.KindGoTo || obj.Kind == command.KindPatrol {
		x, y := v.cam.ToScreen(obj.Point)
		vector.StrokeCircle(dst, x, y, 4, 1, colRoute, true)
	}
}

// remaining is the unwalked part of p, from the waypoint reached last.
func remaining(p *path.Path) []vmath.Vec3 {
	nodes := p.Nodes()[p.NextIndex():]
	if prev, ok := p.PreviousNode(); ok {
		nodes = append([]vmath.Vec3{prev}, nodes...)
	}
	return nodes
}

func (v *Viewer) drawAgent(dst *ebiten.Image, a *sim.Agent, selected bool) {
	x, y := v.cam.ToScreen(a.Position())
	r := float32(max(a.Extents().X*v.cam.scale(), 3))
	c := teamColor(a.Team())
	if !a.Alive() {
		c = color.RGBA{R: 70, G: 70, B: 70, A: 255}
	}
	vector.FillCircle(dst, x, y, r, c, true)
	hx, hy := math.Cos(a.Yaw()), math.Sin(a.Yaw())
	vector.StrokeLine(dst, x, y, x+float32(hx)*r*1.6, y+float32(hy)*r*1.6, 1, color.White, true)
	if selected {
		vector.StrokeCircle(dst, x, y, r+3, 1.5, colSelected, true)
	}
	if v.isCommander(a) {
		vector.StrokeRect(dst, x-r-2, y-r-2, 2*r+4, 2*r+4, 1, color.White, true)
	}
	drawText(dst, v.face, a.Label(), int(x+r+2), int(y-r-8), colHUD)
}

func (v *Viewer) isCommander(a *sim.Agent) bool {
	for _, g := range v.world.Groups() {
		if c := g.Commander(); c != nil && c.Unit() == command.Unit(a) {
			return true
		}
	}
	return false
}

func (v *Viewer) drawHUD(dst *ebiten.Image) {
	speed := "PAUSED"
	if v.simSpeed > 0 {
		speed = fmt.Sprintf("x%.1f", v.simSpeed)
	}
	lines := []string{
		fmt.Sprintf("T=%d  %s  groups=%d  selected=%d  formation=%s",
			v.world.Tick(), speed, len(v.world.Groups()), len(v.ctl.Selected()), v.ctl.Formation()),
		"LMB select (shift add)  RMB order (shift patrol)  1/2 team  N formation",
		"WASD pan  wheel/+- zoom  P pause  ,/. speed  G grid  C copy summary  H hud",
	}
	if v.status != "" {
		lines = append(lines, v.status)
	}
	vector.FillRect(dst, 0, 0, float32(v.gameWidth), float32(len(lines)*14+6), color.RGBA{A: 160}, false)
	for i, l := range lines {
		drawText(dst, v.face, l, 6, 3+i*14, colHUD)
	}
}
