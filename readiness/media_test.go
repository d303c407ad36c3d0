package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoReadinessEitherOrder(t *testing.T) {
	tests := []struct {
		name   string
		first  func(*Video) bool
		second func(*Video) bool
		middle VideoState
	}{
		{"playing then timeupdate", (*Video).Playing, (*Video).TimeUpdate, PlayingOnly},
		{"timeupdate then playing", (*Video).TimeUpdate, (*Video).Playing, TimeUpdateOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			v := NewVideo(func() { calls++ })
			assert.Equal(t, NotStarted, v.State())

			assert.False(t, tt.first(v))
			assert.Equal(t, tt.middle, v.State())
			assert.Equal(t, 0, calls)

			assert.True(t, tt.second(v))
			assert.Equal(t, Ready, v.State())
			assert.Equal(t, 1, calls)

			// further events keep the terminal state and do not re-resolve
			assert.False(t, v.TimeUpdate())
			assert.False(t, v.Playing())
			assert.Equal(t, Ready, v.State())
			assert.Equal(t, 1, calls)
		})
	}
}

func TestVideoRepeatedSameEventStaysIntermediate(t *testing.T) {
	v := NewVideo(nil)
	for i := 0; i < 10; i++ {
		v.TimeUpdate()
	}
	assert.Equal(t, TimeUpdateOnly, v.State())
	assert.False(t, v.Ready())
}

func TestImageGateNeedsBothImages(t *testing.T) {
	var calls int
	g := NewImageGate(func() { calls++ })

	g.Fire(ImageB)
	assert.False(t, g.Ready())
	assert.Equal(t, 0, calls)

	g.Fire(ImageA)
	assert.True(t, g.Ready())
	assert.Equal(t, 1, calls)
}

func TestVideoStateString(t *testing.T) {
	assert.Equal(t, "timeupdate", TimeUpdateOnly.String())
	assert.Equal(t, "ready", Ready.String())
}
