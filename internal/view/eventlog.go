package view

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/Unit-Commander/internal/sim"
)

const (
	logPanelWidth = 340
	logMaxEntries = 80
	logLineHeight = 14
)

// EventEntry is a single line in the event log.
type EventEntry struct {
	Tick    int
	Label   string
	Team    sim.Team
	Message string
}

// EventLog is a ring buffer of recent simulation events rendered on-screen.
type EventLog struct {
	entries []EventEntry
	head    int
	count   int
}

// NewEventLog creates an event log with a fixed capacity.
func NewEventLog() *EventLog {
	return &EventLog{entries: make([]EventEntry, logMaxEntries)}
}

// Add appends an entry, overwriting the oldest once full.
func (el *EventLog) Add(tick int, label string, team sim.Team, msg string) {
	el.entries[el.head] = EventEntry{Tick: tick, Label: label, Team: team, Message: msg}
	el.head = (el.head + 1) % logMaxEntries
	if el.count < logMaxEntries {
		el.count++
	}
}

// Recent returns entries oldest first.
func (el *EventLog) Recent() []EventEntry {
	out := make([]EventEntry, el.count)
	for i := 0; i < el.count; i++ {
		out[i] = el.entries[(el.head-el.count+i+logMaxEntries)%logMaxEntries]
	}
	return out
}

// Len is the number of stored entries.
func (el *EventLog) Len() int { return el.count }

// Observe is a SimLog sink. Per-node and movement chatter is dropped.
func (el *EventLog) Observe(e sim.SimLogEntry) {
	switch e.Category {
	case sim.CatMove:
		return
	case sim.CatPath:
		if e.Key != "traversed" {
			return
		}
	}
	msg := e.Category + " " + e.Key
	if e.Value != "" {
		msg += " " + e.Value
	}
	el.Add(e.Tick, e.Unit, sim.Team(e.Team), msg)
}

func teamColor(t sim.Team) color.RGBA {
	switch t {
	case sim.TeamRed:
		return color.RGBA{R: 210, G: 70, B: 70, A: 255}
	case sim.TeamBlue:
		return color.RGBA{R: 70, G: 110, B: 210, A: 255}
	}
	return color.RGBA{R: 170, G: 170, B: 170, A: 255}
}

// Draw renders the panel on the right side of the screen.
func (el *EventLog) Draw(screen *ebiten.Image, face text.Face, panelX, panelH int) {
	vector.FillRect(screen, float32(panelX), 0, logPanelWidth, float32(panelH), color.RGBA{R: 10, G: 12, B: 10, A: 248}, false)
	vector.StrokeLine(screen, float32(panelX), 0, float32(panelX), float32(panelH), 1, color.RGBA{R: 50, G: 70, B: 50, A: 255}, false)
	vector.FillRect(screen, float32(panelX), 0, logPanelWidth, 18, color.RGBA{R: 20, G: 30, B: 20, A: 255}, false)
	drawText(screen, face, "EVENT LOG", panelX+8, 3, color.White)

	entries := el.Recent()
	maxVisible := (panelH - 24) / logLineHeight
	if len(entries) > maxVisible {
		entries = entries[len(entries)-maxVisible:]
	}
	const highlight = 3

	y := 22
	for i, e := range entries {
		recent := i >= len(entries)-highlight
		if recent {
			vector.FillRect(screen, float32(panelX+2), float32(y), logPanelWidth-4, logLineHeight, color.RGBA{R: 30, G: 40, B: 30, A: 160}, false)
		}
		vector.FillRect(screen, float32(panelX+5), float32(y+4), 3, 6, teamColor(e.Team), false)

		var c color.Color = color.RGBA{R: 150, G: 160, B: 150, A: 255}
		if recent {
			c = color.White
		}
		drawText(screen, face, fmt.Sprintf("%5d %-4s %s", e.Tick, e.Label, e.Message), panelX+12, y, c)
		y += logLineHeight
	}
}

func drawText(dst *ebiten.Image, face text.Face, s string, x, y int, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(c)
	text.Draw(dst, s, face, op)
}
