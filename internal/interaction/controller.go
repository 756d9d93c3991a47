// Package interaction implements the drag and resize state machine for the overlay.
package interaction

import (
	"math"
	"sync"

	"github.com/ayusman/tryon/internal/overlay"
)

// State is a state of the gesture state machine.
type State int

const (
	// Idle means no overlay is selected.
	Idle State = iota
	// Selected means the overlay shows its handles and accepts gestures.
	Selected
	// Dragging means the overlay body follows the pointer.
	Dragging
	// Resizing means a handle follows the pointer with the aspect ratio locked.
	Resizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "unknown"
	}
}

// Selection is the user-facing selection flag: "selected" in every state
// but Idle, "none" otherwise.
func (s State) Selection() string {
	if s == Idle {
		return "none"
	}
	return "selected"
}

// Busy reports whether a gesture is in progress.
func (s State) Busy() bool {
	return s == Dragging || s == Resizing
}

// Point is a pointer position in source-image pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config holds interaction tuning values.
type Config struct {
	// HandleRadius is the half size of the square hit area around each handle.
	HandleRadius float64 `toml:"handle_radius"`
	// MinSize is the smallest width or height a resize can produce.
	MinSize float64 `toml:"min_size"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		HandleRadius: 8,
		MinSize:      4,
	}
}

// Controller routes pointer events to the overlay state. All methods are
// safe for concurrent use; events are applied in the order they acquire
// the controller.
type Controller struct {
	mu      sync.Mutex
	config  Config
	overlay *overlay.State
	state   State

	// Gesture bookkeeping.
	handle Handle
	ratio  float64
	start  overlay.Transform
	accX   float64
	accY   float64

	onChange func(State)
}

// NewController creates a Controller in the Idle state.
func NewController(config Config, st *overlay.State) *Controller {
	if config.MinSize <= 0 {
		config.MinSize = DefaultConfig().MinSize
	}
	if config.HandleRadius < 0 {
		config.HandleRadius = 0
	}
	return &Controller{
		config:  config,
		overlay: st,
		state:   Idle,
	}
}

// OnChange registers fn to be called after every state transition.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selected reports whether the overlay is selected, including mid-gesture.
func (c *Controller) Selected() bool {
	return c.State() != Idle
}

// Selection reports "selected" or "none".
func (c *Controller) Selection() string {
	return c.State().Selection()
}

// PointerDown handles a pointer press at p. A press on the overlay selects it;
// a press elsewhere deselects it. Presses during a gesture are ignored.
func (c *Controller) PointerDown(p Point) State {
	c.mu.Lock()
	prev := c.state
	hit := c.hitTest(c.overlay.Get(), p) != HandleNone

	switch c.state {
	case Idle:
		if hit {
			c.enterSelected()
		}
	case Selected:
		if !hit {
			c.state = Idle
		}
	}
	return c.unlockNotify(prev)
}

// PointerDownOutside deselects the overlay. It is delivered when a press
// lands outside the overlay region.
func (c *Controller) PointerDownOutside() State {
	c.mu.Lock()
	prev := c.state
	if c.state == Selected {
		c.state = Idle
	}
	return c.unlockNotify(prev)
}

// BeginGesture starts a drag or a resize at p. It only applies in the
// Selected state; a press on a handle resizes, a press on the body drags.
// It returns false when the event was ignored.
func (c *Controller) BeginGesture(p Point) bool {
	c.mu.Lock()
	if c.state != Selected {
		c.mu.Unlock()
		return false
	}

	current := c.overlay.Get()
	h := c.hitTest(current, p)
	if h == HandleNone {
		c.mu.Unlock()
		return false
	}

	c.handle = h
	c.start = current
	c.accX, c.accY = 0, 0
	if h == HandleBody {
		c.state = Dragging
	} else {
		c.state = Resizing
	}
	c.unlockNotify(Selected)
	return true
}

// Move applies a pointer movement of (dx, dy) since the previous event.
// Outside of a gesture it does nothing.
func (c *Controller) Move(dx, dy float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Dragging:
		return c.overlay.Set(c.overlay.Get().Translate(dx, dy))
	case Resizing:
		c.accX += dx
		c.accY += dy
		return c.overlay.Set(resize(c.start, c.handle, c.accX, c.accY, c.ratio, c.config.MinSize))
	}
	return nil
}

// PointerUp ends the current gesture.
func (c *Controller) PointerUp() State {
	c.mu.Lock()
	prev := c.state
	if c.state.Busy() {
		c.state = Selected
		c.handle = HandleNone
	}
	return c.unlockNotify(prev)
}

// Reset returns to Idle with the overlay at def. It is used when the asset
// changes or the image is replaced.
func (c *Controller) Reset(def overlay.Transform) error {
	c.mu.Lock()
	prev := c.state
	if err := c.overlay.Reset(def); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = Idle
	c.handle = HandleNone
	c.unlockNotify(prev)
	return nil
}

// TryApply writes an automatically computed transform. It is refused while a
// gesture is in progress so that user edits are never overwritten mid-drag.
func (c *Controller) TryApply(t overlay.Transform) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Busy() {
		return false, nil
	}
	if err := c.overlay.Set(t); err != nil {
		return false, err
	}
	if c.state == Selected {
		c.ratio = t.Ratio()
	}
	return true, nil
}

// enterSelected locks the aspect ratio of the current transform.
func (c *Controller) enterSelected() {
	c.state = Selected
	c.ratio = c.overlay.Get().Ratio()
}

// unlockNotify releases c.mu and reports a state change to the listener.
func (c *Controller) unlockNotify(prev State) State {
	state, fn := c.state, c.onChange
	c.mu.Unlock()
	if fn != nil && state != prev {
		fn(state)
	}
	return state
}

// resize computes the transform for a handle moved by (dx, dy) from start,
// keeping width/height equal to ratio and the opposite anchor fixed.
func resize(start overlay.Transform, h Handle, dx, dy, ratio, minSize float64) overlay.Transform {
	var width float64
	switch h {
	case HandleSE, HandleNE, HandleE:
		width = start.Width + dx
	case HandleSW, HandleNW, HandleW:
		width = start.Width - dx
	case HandleS:
		width = (start.Height + dy) * ratio
	case HandleN:
		width = (start.Height - dy) * ratio
	default:
		return start
	}

	width = math.Max(width, math.Max(minSize, minSize*ratio))
	height := width / ratio

	t := overlay.Transform{Width: width, Height: height}

	switch h {
	case HandleSE:
		t.Left, t.Top = start.Left, start.Top
	case HandleNE:
		t.Left, t.Top = start.Left, start.Bottom()-height
	case HandleSW:
		t.Left, t.Top = start.Right()-width, start.Top
	case HandleNW:
		t.Left, t.Top = start.Right()-width, start.Bottom()-height
	case HandleE:
		t.Left, t.Top = start.Left, start.Top+(start.Height-height)/2
	case HandleW:
		t.Left, t.Top = start.Right()-width, start.Top+(start.Height-height)/2
	case HandleS:
		t.Left, t.Top = start.Left+(start.Width-width)/2, start.Top
	case HandleN:
		t.Left, t.Top = start.Left+(start.Width-width)/2, start.Bottom()-height
	}
	return t
}
