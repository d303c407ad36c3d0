package glfwcontext

import (
	"log"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	options "github.com/richinsley/gochromakey/options"
)

// Context is a visible GLFW window with a GL 4.1 core context.
type Context struct {
	window *glfw.Window
	// A map to store functions to be called on key presses.
	keyCallbacks map[glfw.Key]func()
}

// New creates the compositor window. The context is current on the
// calling thread when New returns.
func New(options *options.CompositorOptions) (*Context, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	// a recording keeps the size it was started with
	if *options.Record != "" {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	}
	glfw.WindowHint(glfw.DepthBits, 24)

	win, err := glfw.CreateWindow(*options.Width, *options.Height, "gochromakey", nil, nil)
	if err != nil {
		return nil, err
	}

	c := &Context{
		window:       win,
		keyCallbacks: make(map[glfw.Key]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)

	win.MakeContextCurrent()
	if *options.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	fbWidth, fbHeight := win.GetFramebufferSize()
	log.Printf("Window created: %dx%d (framebuffer %dx%d)", *options.Width, *options.Height, fbWidth, fbHeight)
	return c, nil
}

// RegisterKeyCallback runs f whenever key is pressed.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.keyCallbacks[key] = f
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}

	if action == glfw.Press {
		if callback, ok := c.keyCallbacks[key]; ok {
			callback()
		}
	}
}

// MakeCurrent makes the context current for the calling goroutine.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// Close asks the render loop to stop after the current frame.
func (c *Context) Close() {
	c.window.SetShouldClose(true)
}

func (c *Context) Shutdown() {
	c.window.Destroy()
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

func (c *Context) EndFrame() {
	c.window.SwapBuffers()
	glfw.PollEvents()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

// InitGraphics initializes the main graphics subsystem (GLFW). Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	log.Printf("GLFW Initialized")
	return nil
}

// TerminateGraphics shuts down the graphics subsystem. Must be called from the main thread.
func TerminateGraphics() {
	glfw.Terminate()
	log.Printf("GLFW Terminated")
}
