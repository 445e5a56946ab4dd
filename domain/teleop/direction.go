package teleop

import (
	"fmt"
	"strings"
)

// Direction is one of the four cardinal movement intents.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists every direction in a fixed order.
var Directions = []Direction{Up, Down, Left, Right}

// Valid reports whether d is one of the four known directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// ParseDirection parses a case-insensitive direction name.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
	return d, nil
}
