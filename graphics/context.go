package graphics

// Context is the host surface the compositor presents to.
type Context interface {
	MakeCurrent()
	ShouldClose() bool
	// EndFrame presents the frame and blocks until the next vsync-aligned
	// tick; it also pumps window events.
	EndFrame()
	GetFramebufferSize() (int, int)
}
