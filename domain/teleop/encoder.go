package teleop

import "strings"

// Action is the edge of a held input.
type Action int

const (
	ActionStart Action = iota
	ActionStop
)

func (a Action) String() string {
	if a == ActionStart {
		return "start"
	}
	return "stop"
}

// Intent is a deduplicated input transition for one direction.
type Intent struct {
	Direction Direction
	Action    Action
}

// DefaultKeyBindings maps arrow keys and WASD to directions.
var DefaultKeyBindings = map[string]Direction{
	"arrowup":    Up,
	"arrowdown":  Down,
	"arrowleft":  Left,
	"arrowright": Right,
	"w":          Up,
	"s":          Down,
	"a":          Left,
	"d":          Right,
}

// Encoder turns keyboard and pointer events into start/stop intents. Native
// auto-repeat is absorbed: only inactive->active emits start and only
// active->inactive emits stop. Not safe for concurrent use.
type Encoder struct {
	bindings map[string]Direction
	active   map[Direction]bool
}

// NewEncoder returns an encoder using bindings, or DefaultKeyBindings when nil.
func NewEncoder(bindings map[string]Direction) *Encoder {
	if bindings == nil {
		bindings = DefaultKeyBindings
	}
	b := make(map[string]Direction, len(bindings))
	for k, d := range bindings {
		if d.Valid() {
			b[strings.ToLower(k)] = d
		}
	}
	return &Encoder{bindings: b, active: make(map[Direction]bool, len(Directions))}
}

// Resolve maps a key name to its bound direction.
func (e *Encoder) Resolve(key string) (Direction, bool) {
	d, ok := e.bindings[strings.ToLower(key)]
	return d, ok
}

// KeyDown handles a key press, including auto-repeated presses.
func (e *Encoder) KeyDown(key string) (Intent, bool) {
	d, ok := e.Resolve(key)
	if !ok {
		return Intent{}, false
	}
	return e.Press(d)
}

// KeyUp handles a key release.
func (e *Encoder) KeyUp(key string) (Intent, bool) {
	d, ok := e.Resolve(key)
	if !ok {
		return Intent{}, false
	}
	return e.Release(d)
}

// Press handles a pointer or touch press on a direction button.
func (e *Encoder) Press(d Direction) (Intent, bool) {
	if !d.Valid() || e.active[d] {
		return Intent{}, false
	}
	e.active[d] = true
	return Intent{Direction: d, Action: ActionStart}, true
}

// Release handles a pointer release or the pointer leaving the button.
func (e *Encoder) Release(d Direction) (Intent, bool) {
	if !e.active[d] {
		return Intent{}, false
	}
	delete(e.active, d)
	return Intent{Direction: d, Action: ActionStop}, true
}

// Active reports whether d is currently held.
func (e *Encoder) Active(d Direction) bool {
	return e.active[d]
}

// Reset releases every held direction and returns the stop intents in
// Directions order.
func (e *Encoder) Reset() []Intent {
	var out []Intent
	for _, d := range Directions {
		if e.active[d] {
			out = append(out, Intent{Direction: d, Action: ActionStop})
		}
	}
	e.active = make(map[Direction]bool, len(Directions))
	return out
}
