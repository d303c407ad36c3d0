package gputest

import (
	"image/color"

	"github.com/richinsley/gochromakey/shader"
)

// Surface is a fixed-size host surface that asks to close after a number
// of presented frames.
type Surface struct {
	Width, Height int
	// CloseAfter closes the surface once this many frames were presented;
	// zero never closes.
	CloseAfter int
	Frames     int
	// OnFrame runs after every presented frame.
	OnFrame func(frame int)
}

func (s *Surface) MakeCurrent() {}

func (s *Surface) ShouldClose() bool {
	return s.CloseAfter > 0 && s.Frames >= s.CloseAfter
}

func (s *Surface) EndFrame() {
	s.Frames++
	if s.OnFrame != nil {
		s.OnFrame(s.Frames)
	}
}

func (s *Surface) GetFramebufferSize() (int, int) {
	return s.Width, s.Height
}

// ColorKeyShade is the compositor's fragment stage expressed on the CPU.
func ColorKeyShade(sample func(sampler string, u, v float32) color.RGBA, u, v float32) color.RGBA {
	return shader.ColorKey(
		sample(shader.Sampler3, u, v),
		sample(shader.Sampler1, u, v),
		sample(shader.Sampler2, u, v),
	)
}
