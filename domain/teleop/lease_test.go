package teleop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseRejectsSecondHolder(t *testing.T) {
	m := NewLeaseManager()

	release, err := m.Acquire("1", "a")
	require.NoError(t, err)
	assert.True(t, m.Held("1"))

	_, err = m.Acquire("1", "b")
	assert.ErrorIs(t, err, ErrDeviceBusy)

	other, err := m.Acquire("2", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, m.Leased())

	release()
	release()
	assert.False(t, m.Held("1"))

	again, err := m.Acquire("1", "c")
	require.NoError(t, err)

	// a stale release must not free the new holder
	release()
	assert.True(t, m.Held("1"))

	again()
	other()
	assert.Empty(t, m.Leased())
}
