// Package gpu is the slice of OpenGL the compositor talks to. Everything
// above it holds a Device instead of calling gl directly, so a recording
// device can stand in for a real context in tests.
package gpu

import "fmt"

// Stage identifies a shader stage.
type Stage int

const (
	VertexStage Stage = iota
	FragmentStage
)

func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Wrap is a texture coordinate wrap mode.
type Wrap int

const (
	ClampToEdge Wrap = iota
	Repeat
)

// Filter is a texture sampling filter.
type Filter int

const (
	Linear Filter = iota
	Nearest
)

// TextureParams describes how a 2D texture is sampled.
type TextureParams struct {
	WrapS, WrapT Wrap
	MinFilter    Filter
	MagFilter    Filter
}

// Device is the capability surface of a current graphics context. All
// methods must be called from the thread that owns the context.
type Device interface {
	// CompileShader compiles one stage. On failure the shader object is
	// released and the returned error carries the info log.
	CompileShader(stage Stage, source string) (uint32, error)
	DeleteShader(shader uint32)
	// LinkProgram links a vertex and fragment shader into a program. On
	// failure the program is released and the error carries the info log.
	LinkProgram(vertex, fragment uint32) (uint32, error)
	DeleteProgram(program uint32)
	UseProgram(program uint32)
	AttribLocation(program uint32, name string) int32
	UniformLocation(program uint32, name string) int32
	UniformMatrix4(location int32, m *[16]float32)
	Uniform1i(location int32, v int32)

	CreateVertexArray() uint32
	DeleteVertexArray(vao uint32)
	// CreateStaticBuffer uploads data once in static-draw usage.
	CreateStaticBuffer(data []float32) uint32
	DeleteBuffer(buffer uint32)
	// VertexAttribute points an attribute at tightly packed float32
	// components of buffer and enables it on vao.
	VertexAttribute(vao, buffer uint32, location int32, components int32)

	CreateTexture(params TextureParams) uint32
	DeleteTexture(texture uint32)
	// TexImage2D (re)specifies the storage of texture as RGBA8.
	TexImage2D(texture uint32, width, height int, pixels []byte)
	// TexSubImage2D overwrites the full content of texture without
	// reallocating; the size must match the current storage.
	TexSubImage2D(texture uint32, width, height int, pixels []byte)
	ActiveTexture(unit int)
	BindTexture(texture uint32)

	Viewport(x, y, width, height int)
	// Clear clears color and depth; depth testing is left enabled with a
	// less-or-equal comparison.
	Clear(r, g, b, a float32, depth float64)
	// DrawTriangles draws count vertices starting at first as a triangle list.
	DrawTriangles(vao uint32, first, count int32)
	// ReadPixels copies the RGBA8 color of the default framebuffer into
	// dst, bottom row first.
	ReadPixels(x, y, width, height int, dst []byte)
}
