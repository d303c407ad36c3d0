package gpu

import (
	"fmt"
	"strings"
	"sync"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

var glInitOnce sync.Once

// GL is a Device backed by the current OpenGL 4.1 core context.
type GL struct{}

// NewGL loads the OpenGL function pointers. A context must be current on
// the calling thread.
func NewGL() (*GL, error) {
	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}
	return &GL{}, nil
}

// Version returns the GL_VERSION string of the current context.
func (d *GL) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func glStage(stage Stage) uint32 {
	if stage == FragmentStage {
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

func (d *GL) CompileShader(stage Stage, source string) (uint32, error) {
	shader := gl.CreateShader(glStage(stage))
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s", strings.TrimRight(logText, "\x00"))
	}
	return shader, nil
}

func (d *GL) DeleteShader(shader uint32) {
	gl.DeleteShader(shader)
}

func (d *GL) LinkProgram(vertex, fragment uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertex)
	gl.AttachShader(program, fragment)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logText))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("%s", strings.TrimRight(logText, "\x00"))
	}
	gl.DetachShader(program, vertex)
	gl.DetachShader(program, fragment)
	return program, nil
}

func (d *GL) DeleteProgram(program uint32) {
	gl.DeleteProgram(program)
}

func (d *GL) UseProgram(program uint32) {
	gl.UseProgram(program)
}

func (d *GL) AttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

func (d *GL) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *GL) UniformMatrix4(location int32, m *[16]float32) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

func (d *GL) Uniform1i(location int32, v int32) {
	gl.Uniform1i(location, v)
}

func (d *GL) CreateVertexArray() uint32 {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return vao
}

func (d *GL) DeleteVertexArray(vao uint32) {
	gl.DeleteVertexArrays(1, &vao)
}

func (d *GL) CreateStaticBuffer(data []float32) uint32 {
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return vbo
}

func (d *GL) DeleteBuffer(buffer uint32) {
	gl.DeleteBuffers(1, &buffer)
}

func (d *GL) VertexAttribute(vao, buffer uint32, location int32, components int32) {
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
	gl.VertexAttribPointer(uint32(location), components, gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(uint32(location))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

func glWrap(w Wrap) int32 {
	if w == Repeat {
		return gl.REPEAT
	}
	return gl.CLAMP_TO_EDGE
}

func glFilter(f Filter) int32 {
	if f == Nearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func (d *GL) CreateTexture(params TextureParams) uint32 {
	var texture uint32
	gl.GenTextures(1, &texture)
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(params.WrapS))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(params.WrapT))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(params.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(params.MagFilter))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return texture
}

func (d *GL) DeleteTexture(texture uint32) {
	gl.DeleteTextures(1, &texture)
}

func (d *GL) TexImage2D(texture uint32, width, height int, pixels []byte) {
	gl.BindTexture(gl.TEXTURE_2D, texture)
	// rows are tightly packed; the default alignment of 4 already matches RGBA8
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (d *GL) TexSubImage2D(texture uint32, width, height int, pixels []byte) {
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (d *GL) ActiveTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (d *GL) BindTexture(texture uint32) {
	gl.BindTexture(gl.TEXTURE_2D, texture)
}

func (d *GL) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *GL) Clear(r, g, b, a float32, depth float64) {
	gl.ClearColor(r, g, b, a)
	gl.ClearDepth(depth)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (d *GL) DrawTriangles(vao uint32, first, count int32) {
	gl.BindVertexArray(vao)
	gl.DrawArrays(gl.TRIANGLES, first, count)
	gl.BindVertexArray(0)
}

func (d *GL) ReadPixels(x, y, width, height int, dst []byte) {
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(dst))
}
