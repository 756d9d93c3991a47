package interaction

import (
	"math"

	"github.com/ayusman/tryon/internal/overlay"
)

// Handle identifies the part of the overlay under the pointer.
type Handle int

const (
	HandleNone Handle = iota
	HandleBody
	HandleNW
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
)

var handleNames = map[Handle]string{
	HandleNone: "none",
	HandleBody: "body",
	HandleNW:   "nw",
	HandleN:    "n",
	HandleNE:   "ne",
	HandleE:    "e",
	HandleSE:   "se",
	HandleS:    "s",
	HandleSW:   "sw",
	HandleW:    "w",
}

func (h Handle) String() string {
	if name, ok := handleNames[h]; ok {
		return name
	}
	return "unknown"
}

// HandlePositions returns the center of every resize handle of t.
func HandlePositions(t overlay.Transform) map[Handle]Point {
	midX := t.Left + t.Width/2
	midY := t.Top + t.Height/2
	return map[Handle]Point{
		HandleNW: {X: t.Left, Y: t.Top},
		HandleN:  {X: midX, Y: t.Top},
		HandleNE: {X: t.Right(), Y: t.Top},
		HandleE:  {X: t.Right(), Y: midY},
		HandleSE: {X: t.Right(), Y: t.Bottom()},
		HandleS:  {X: midX, Y: t.Bottom()},
		HandleSW: {X: t.Left, Y: t.Bottom()},
		HandleW:  {X: t.Left, Y: midY},
	}
}

// handleOrder fixes the hit test priority; corners win over edges.
var handleOrder = []Handle{HandleNW, HandleNE, HandleSE, HandleSW, HandleN, HandleE, HandleS, HandleW}

// HitTest returns the handle of t under p, HandleBody for the rest of the
// overlay and HandleNone outside of it.
func HitTest(t overlay.Transform, p Point, radius float64) Handle {
	positions := HandlePositions(t)
	for _, h := range handleOrder {
		hp := positions[h]
		if math.Abs(p.X-hp.X) <= radius && math.Abs(p.Y-hp.Y) <= radius {
			return h
		}
	}
	if t.Contains(p.X, p.Y) {
		return HandleBody
	}
	return HandleNone
}

func (c *Controller) hitTest(t overlay.Transform, p Point) Handle {
	return HitTest(t, p, c.config.HandleRadius)
}
