package teleop

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyScenarios(t *testing.T) {
	arena := DefaultArena()

	cases := []struct {
		name  string
		start Position
		dir   Direction
		want  Position
	}{
		{"single step", Position{100, 100}, Right, Position{120, 100}},
		{"clamp right edge", Position{895, 100}, Right, Position{900, 100}},
		{"clamp bottom", Position{0, -5}, Down, Position{0, -10}},
		{"up increases y", Position{10, 10}, Up, Position{10, 30}},
		{"left", Position{10, 10}, Left, Position{0, 10}},
		{"unknown direction", Position{10, 10}, Direction("north"), Position{10, 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewDeviceState(arena, tc.start)
			assert.Equal(t, tc.want, s.Apply(tc.dir))
			assert.Equal(t, tc.want, s.Snapshot())
		})
	}
}

func TestSaturationIsIdempotent(t *testing.T) {
	arena := DefaultArena()

	s := NewDeviceState(arena, Position{0, 200})
	for i := 0; i < 10; i++ {
		s.Apply(Left)
	}
	assert.Equal(t, Position{0, 200}, s.Snapshot())

	s = NewDeviceState(arena, Position{300, arena.YMax})
	for i := 0; i < 10; i++ {
		s.Apply(Up)
	}
	assert.Equal(t, Position{300, arena.YMax}, s.Snapshot())
}

func TestClampAxesIndependent(t *testing.T) {
	arena := DefaultArena()
	assert.Equal(t, Position{900, -10}, arena.Clamp(Position{5000, -5000}))
	assert.Equal(t, Position{0, 504}, arena.Clamp(Position{-1, 505}))
	assert.Equal(t, Position{450, 0}, arena.Clamp(Position{450, 0}))
}

func TestNewDeviceStateClampsStart(t *testing.T) {
	s := NewDeviceState(DefaultArena(), Position{-40, 9000})
	assert.Equal(t, Position{0, 504}, s.Snapshot())

}

func TestSyncKeepsAuthoritativePosition(t *testing.T) {
	s := NewDeviceState(DefaultArena(), Position{100, 100})

	assert.Equal(t, Position{1000, -100}, s.Sync(Position{1000, -100}))
	assert.Equal(t, DefaultArena(), s.Arena())

	// the next local move is clamped again
	assert.Equal(t, Position{900, -10}, s.Apply(Right))
}

func TestClampInvariantHoldsForRandomSequences(t *testing.T) {
	arena := Arena{XMin: 0, XMax: 90, YMin: -10, YMax: 50, Step: 7}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		s := NewDeviceState(arena, Position{rng.Intn(200) - 50, rng.Intn(200) - 50})
		require.True(t, arena.Contains(s.Snapshot()))
		for i := 0; i < 100; i++ {
			p := s.Apply(Directions[rng.Intn(len(Directions))])
			require.Truef(t, arena.Contains(p), "position %+v escaped arena %+v", p, arena)
		}
	}
}

func TestArenaValidate(t *testing.T) {
	require.NoError(t, DefaultArena().Validate())
	assert.Error(t, Arena{XMin: 10, XMax: 0, Step: 1}.Validate())
	assert.Error(t, Arena{YMin: 10, YMax: 0, Step: 1}.Validate())
	assert.Error(t, Arena{Step: 0}.Validate())
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" UP ")
	require.NoError(t, err)
	assert.Equal(t, Up, d)

	_, err = ParseDirection("diagonal")
	assert.ErrorIs(t, err, ErrUnknownDirection)
}
