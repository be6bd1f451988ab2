package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/richinsley/goshaderflow/message"
)

func TestPressedDefaultsFalse(t *testing.T) {
	k := New()
	assert.False(t, k.Pressed(65))
}

func TestHandlePressMarksKeyHeld(t *testing.T) {
	k := New()
	k.Handle(message.KeyboardPress{Key: 65, Action: 1})
	assert.True(t, k.Pressed(65))
}

func TestHandleReleaseMarksKeyUp(t *testing.T) {
	k := New()
	k.Handle(message.KeyboardPress{Key: 65, Action: 1})
	k.Handle(message.KeyboardPress{Key: 65, Action: ActionRelease})
	assert.False(t, k.Pressed(65))
}

func TestHandleIgnoresOtherMessages(t *testing.T) {
	k := New()
	k.Handle(message.WindowClose{})
	assert.False(t, k.Pressed(65))
}

func TestPipelineIsInert(t *testing.T) {
	k := New()
	assert.Nil(t, k.Pipeline())
}
