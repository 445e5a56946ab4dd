package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/mission-control/domain/teleop"
)

type recordingDriver struct {
	events []string
}

func (r *recordingDriver) KeyDown(key string) error { r.events = append(r.events, "down:"+key); return nil }
func (r *recordingDriver) KeyUp(key string) error { r.events = append(r.events, "up:"+key); return nil }
func (r *recordingDriver) Press(d teleop.Direction) error {
	r.events = append(r.events, "press:"+string(d))
	return nil
}
func (r *recordingDriver) Release(d teleop.Direction) error {
	r.events = append(r.events, "release:"+string(d))
	return nil
}

func TestParseScript(t *testing.T) {
	steps, err := ParseScript("up:1s, w+d:500ms,pause:200ms")
	require.NoError(t, err)
	assert.Equal(t, []Step{
		{Inputs: []string{"up"}, Hold: time.Second},
		{Inputs: []string{"w", "d"}, Hold: 500 * time.Millisecond},
		{Hold: 200 * time.Millisecond},
	}, steps)
}

func TestParseScriptErrors(t *testing.T) {
	for _, script := range []string{"", "up", "up:soon", "up:-1s", "w++d:1s"} {
		_, err := ParseScript(script)
		assert.Error(t, err, script)
	}
}

func TestRunScript(t *testing.T) {
	drv := &recordingDriver{}
	steps, err := ParseScript("Left:0s,w+ArrowRight:1ms,pause:1ms")
	require.NoError(t, err)

	require.NoError(t, RunScript(context.Background(), drv, steps))
	assert.Equal(t, []string{
		"press:left", "release:left",
		"down:w", "down:ArrowRight", "up:ArrowRight", "up:w",
	}, drv.events)
}

func TestRunScriptCancelled(t *testing.T) {
	drv := &recordingDriver{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunScript(ctx, drv, []Step{{Inputs: []string{"up"}, Hold: time.Hour}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"press:up", "release:up"}, drv.events)
}
