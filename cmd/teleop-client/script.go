package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/open-teleop/mission-control/domain/teleop"
)

// pauseToken holds nothing for the step's duration.
const pauseToken = "pause"

// Step holds a set of inputs for a duration. Inputs that parse as a
// direction name are pressed directly; anything else is treated as a key.
type Step struct {
	Inputs []string
	Hold   time.Duration
}

// ParseScript parses "up:1s,w+d:500ms,pause:200ms".
func ParseScript(script string) ([]Step, error) {
	var steps []Step
	for _, raw := range strings.Split(script, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		inputs, hold, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("step %q: missing duration", raw)
		}
		d, err := time.ParseDuration(hold)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", raw, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("step %q: negative duration", raw)
		}

		step := Step{Hold: d}
		if inputs != pauseToken {
			for _, in := range strings.Split(inputs, "+") {
				in = strings.TrimSpace(in)
				if in == "" {
					return nil, fmt.Errorf("step %q: empty input", raw)
				}
				step.Inputs = append(step.Inputs, in)
			}
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("empty script")
	}
	return steps, nil
}

// Driver is the input surface of a teleop.Session.
type Driver interface {
	KeyDown(key string) error
	KeyUp(key string) error
	Press(d teleop.Direction) error
	Release(d teleop.Direction) error
}

var _ Driver = (*teleop.Session)(nil)

func down(drv Driver, in string) error {
	if d, err := teleop.ParseDirection(in); err == nil {
		return drv.Press(d)
	}
	return drv.KeyDown(in)
}

func up(drv Driver, in string) error {
	if d, err := teleop.ParseDirection(in); err == nil {
		return drv.Release(d)
	}
	return drv.KeyUp(in)
}

// RunScript plays steps against drv. Inputs of a step are released in
// reverse order when its hold ends or ctx is cancelled.
func RunScript(ctx context.Context, drv Driver, steps []Step) error {
	for _, step := range steps {
		for _, in := range step.Inputs {
			if err := down(drv, in); err != nil {
				return fmt.Errorf("press %s: %w", in, err)
			}
		}

		timer := time.NewTimer(step.Hold)
		var cancelled bool
		select {
		case <-ctx.Done():
			cancelled = true
		case <-timer.C:
		}
		timer.Stop()

		for i := len(step.Inputs) - 1; i >= 0; i-- {
			if err := up(drv, step.Inputs[i]); err != nil {
				return fmt.Errorf("release %s: %w", step.Inputs[i], err)
			}
		}
		if cancelled {
			return ctx.Err()
		}
	}
	return nil
}
