package ipc

import (
	"testing"

	"github.com/nicolas-erasmus/rotse/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAndTake(t *testing.T) {
	c := NewMemChannel()
	assert.False(t, c.Pending())
	c.Submit(engine.CommandParam{MoveMode: engine.ModeSlew})
	require.True(t, c.Pending())
	cmd := c.Take()
	assert.Equal(t, engine.ModeSlew, cmd.MoveMode)
	assert.False(t, c.Pending())
}

func TestPublishIgnoredUntilRead(t *testing.T) {
	c := NewMemChannel()
	require.True(t, c.Publish(engine.MountStatus{MoveMode: engine.ModeSlew}))
	assert.False(t, c.Publish(engine.MountStatus{MoveMode: engine.ModeTrack}))

	s, ok := c.ReadStatus()
	require.True(t, ok)
	assert.Equal(t, engine.ModeSlew, s.MoveMode)

	assert.True(t, c.Publish(engine.MountStatus{MoveMode: engine.ModeTrack}))
}

func TestConsumerAbsentAfterTimeout(t *testing.T) {
	c := NewMemChannel()
	c.Publish(engine.MountStatus{})
	for i := 0; i < 5; i++ {
		c.Publish(engine.MountStatus{})
	}
	assert.True(t, c.ConsumerAbsent(5))
}
