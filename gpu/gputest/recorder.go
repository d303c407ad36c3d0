// Package gputest provides an in-memory gpu.Device for tests. It records
// every call, keeps texture contents and can rasterize draws on the CPU.
package gputest

import (
	"errors"
	"fmt"
	"image/color"
	"regexp"
	"strings"

	"github.com/richinsley/gochromakey/gpu"
)

// ShadeFunc computes one fragment. sample reads the texture bound to the
// unit that the named sampler uniform points at, with nearest filtering.
type ShadeFunc func(sample func(sampler string, u, v float32) color.RGBA, u, v float32) color.RGBA

// Texture is the recorded state of one texture object.
type Texture struct {
	Params  gpu.TextureParams
	Width   int
	Height  int
	Pixels  []byte
	Specs   int // TexImage2D calls
	Updates int // TexSubImage2D calls
}

// Draw is one recorded DrawTriangles call.
type Draw struct {
	VAO     uint32
	Program uint32
	First   int32
	Count   int32
	// Units maps texture unit to the texture bound there at draw time.
	Units map[int]uint32
	// Samplers maps sampler uniform names to the unit they were set to.
	Samplers map[string]int32
}

type shaderObj struct {
	stage  gpu.Stage
	source string
}

type programObj struct {
	source   string
	uniforms map[string]int32
	attribs  map[string]int32
	values   map[int32]int32
	matrices map[int32][16]float32
}

// Recorder implements gpu.Device without a GPU.
type Recorder struct {
	// FailCompile makes compilation of a stage fail when its source
	// contains the given marker.
	FailCompile map[gpu.Stage]string
	// FailLink makes every link fail.
	FailLink bool
	// Shade, when set, rasterizes every draw into Framebuffer.
	Shade ShadeFunc

	Calls    []string
	Draws    []Draw
	Textures map[uint32]*Texture
	Buffers  map[uint32][]float32
	Attribs  map[uint32]map[int32]uint32 // vao -> location -> buffer

	ViewportW, ViewportH int
	// Framebuffer holds RGBA rows bottom-up, as GL stores them.
	Framebuffer []byte

	nextID     uint32
	shaders    map[uint32]*shaderObj
	programs   map[uint32]*programObj
	current    uint32
	activeUnit int
	units      map[int]uint32
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		FailCompile: make(map[gpu.Stage]string),
		Textures:    make(map[uint32]*Texture),
		Buffers:     make(map[uint32][]float32),
		Attribs:     make(map[uint32]map[int32]uint32),
		shaders:     make(map[uint32]*shaderObj),
		programs:    make(map[uint32]*programObj),
		units:       make(map[int]uint32),
	}
}

func (r *Recorder) id() uint32 {
	r.nextID++
	return r.nextID
}

func (r *Recorder) record(format string, args ...interface{}) {
	r.Calls = append(r.Calls, fmt.Sprintf(format, args...))
}

// Count returns how many recorded calls start with op.
func (r *Recorder) Count(op string) int {
	n := 0
	for _, c := range r.Calls {
		if c == op || strings.HasPrefix(c, op+"(") {
			n++
		}
	}
	return n
}

// LiveShaders returns the number of shader objects not yet deleted.
func (r *Recorder) LiveShaders() int { return len(r.shaders) }

// LivePrograms returns the number of program objects not yet deleted.
func (r *Recorder) LivePrograms() int { return len(r.programs) }

func (r *Recorder) CompileShader(stage gpu.Stage, source string) (uint32, error) {
	r.record("CompileShader(%s)", stage)
	if marker, ok := r.FailCompile[stage]; ok && marker != "" && strings.Contains(source, marker) {
		return 0, fmt.Errorf("ERROR: 0:1: '%s' : syntax error", marker)
	}
	id := r.id()
	r.shaders[id] = &shaderObj{stage: stage, source: source}
	return id, nil
}

func (r *Recorder) DeleteShader(shader uint32) {
	r.record("DeleteShader(%d)", shader)
	delete(r.shaders, shader)
}

func (r *Recorder) LinkProgram(vertex, fragment uint32) (uint32, error) {
	r.record("LinkProgram(%d, %d)", vertex, fragment)
	vs, ok := r.shaders[vertex]
	fs, ok2 := r.shaders[fragment]
	if !ok || !ok2 {
		return 0, errors.New("invalid shader object")
	}
	if r.FailLink {
		return 0, errors.New("ERROR: Linking failed")
	}
	id := r.id()
	r.programs[id] = &programObj{
		source:   vs.source + "\n" + fs.source,
		uniforms: make(map[string]int32),
		attribs:  make(map[string]int32),
		values:   make(map[int32]int32),
		matrices: make(map[int32][16]float32),
	}
	return id, nil
}

func (r *Recorder) DeleteProgram(program uint32) {
	r.record("DeleteProgram(%d)", program)
	delete(r.programs, program)
}

func (r *Recorder) UseProgram(program uint32) {
	r.record("UseProgram(%d)", program)
	r.current = program
}

// declared reports whether name appears as an identifier in src.
func declared(src, name string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	return re.MatchString(src)
}

func (r *Recorder) location(program uint32, name string, table func(*programObj) map[string]int32) int32 {
	p, ok := r.programs[program]
	if !ok || !declared(p.source, name) {
		return -1
	}
	locs := table(p)
	if loc, ok := locs[name]; ok {
		return loc
	}
	loc := int32(len(locs))
	locs[name] = loc
	return loc
}

func (r *Recorder) AttribLocation(program uint32, name string) int32 {
	return r.location(program, name, func(p *programObj) map[string]int32 { return p.attribs })
}

func (r *Recorder) UniformLocation(program uint32, name string) int32 {
	return r.location(program, name, func(p *programObj) map[string]int32 { return p.uniforms })
}

// Matrix returns the last matrix uploaded to the named uniform of program.
func (r *Recorder) Matrix(program uint32, name string) ([16]float32, bool) {
	p, ok := r.programs[program]
	if !ok {
		return [16]float32{}, false
	}
	loc, ok := p.uniforms[name]
	if !ok {
		return [16]float32{}, false
	}
	m, ok := p.matrices[loc]
	return m, ok
}

func (r *Recorder) UniformMatrix4(location int32, m *[16]float32) {
	r.record("UniformMatrix4(%d)", location)
	if p, ok := r.programs[r.current]; ok && location >= 0 {
		p.matrices[location] = *m
	}
}

func (r *Recorder) Uniform1i(location int32, v int32) {
	r.record("Uniform1i(%d, %d)", location, v)
	if p, ok := r.programs[r.current]; ok && location >= 0 {
		p.values[location] = v
	}
}

func (r *Recorder) CreateVertexArray() uint32 {
	id := r.id()
	r.record("CreateVertexArray() = %d", id)
	r.Attribs[id] = make(map[int32]uint32)
	return id
}

func (r *Recorder) DeleteVertexArray(vao uint32) {
	r.record("DeleteVertexArray(%d)", vao)
	delete(r.Attribs, vao)
}

func (r *Recorder) CreateStaticBuffer(data []float32) uint32 {
	id := r.id()
	r.record("CreateStaticBuffer(%d floats) = %d", len(data), id)
	r.Buffers[id] = append([]float32(nil), data...)
	return id
}

func (r *Recorder) DeleteBuffer(buffer uint32) {
	r.record("DeleteBuffer(%d)", buffer)
	delete(r.Buffers, buffer)
}

func (r *Recorder) VertexAttribute(vao, buffer uint32, location int32, components int32) {
	r.record("VertexAttribute(%d, %d, %d, %d)", vao, buffer, location, components)
	if attrs, ok := r.Attribs[vao]; ok {
		attrs[location] = buffer
	}
}

func (r *Recorder) CreateTexture(params gpu.TextureParams) uint32 {
	id := r.id()
	r.record("CreateTexture() = %d", id)
	r.Textures[id] = &Texture{Params: params}
	return id
}

func (r *Recorder) DeleteTexture(texture uint32) {
	r.record("DeleteTexture(%d)", texture)
	delete(r.Textures, texture)
}

func (r *Recorder) TexImage2D(texture uint32, width, height int, pixels []byte) {
	r.record("TexImage2D(%d, %dx%d)", texture, width, height)
	t, ok := r.Textures[texture]
	if !ok {
		return
	}
	t.Width, t.Height = width, height
	t.Pixels = append(t.Pixels[:0], pixels[:width*height*4]...)
	t.Specs++
}

func (r *Recorder) TexSubImage2D(texture uint32, width, height int, pixels []byte) {
	r.record("TexSubImage2D(%d, %dx%d)", texture, width, height)
	t, ok := r.Textures[texture]
	if !ok {
		return
	}
	if t.Width != width || t.Height != height {
		panic(fmt.Sprintf("gputest: TexSubImage2D %dx%d into %dx%d storage", width, height, t.Width, t.Height))
	}
	copy(t.Pixels, pixels[:width*height*4])
	t.Updates++
}

func (r *Recorder) ActiveTexture(unit int) {
	r.record("ActiveTexture(%d)", unit)
	r.activeUnit = unit
}

func (r *Recorder) BindTexture(texture uint32) {
	r.record("BindTexture(%d)", texture)
	r.units[r.activeUnit] = texture
}

func (r *Recorder) Viewport(x, y, width, height int) {
	r.record("Viewport(%d, %d, %d, %d)", x, y, width, height)
	r.ViewportW, r.ViewportH = width, height
}

func (r *Recorder) Clear(cr, cg, cb, ca float32, depth float64) {
	r.record("Clear")
	n := r.ViewportW * r.ViewportH * 4
	if cap(r.Framebuffer) < n {
		r.Framebuffer = make([]byte, n)
	}
	r.Framebuffer = r.Framebuffer[:n]
	px := [4]byte{byte(cr * 255), byte(cg * 255), byte(cb * 255), byte(ca * 255)}
	for i := 0; i < n; i += 4 {
		copy(r.Framebuffer[i:i+4], px[:])
	}
}

func (r *Recorder) DrawTriangles(vao uint32, first, count int32) {
	r.record("DrawTriangles(%d, %d, %d)", vao, first, count)
	d := Draw{
		VAO:      vao,
		Program:  r.current,
		First:    first,
		Count:    count,
		Units:    make(map[int]uint32),
		Samplers: make(map[string]int32),
	}
	for unit, tex := range r.units {
		if tex != 0 {
			d.Units[unit] = tex
		}
	}
	if p, ok := r.programs[r.current]; ok {
		for name, loc := range p.uniforms {
			if v, ok := p.values[loc]; ok {
				d.Samplers[name] = v
			}
		}
	}
	r.Draws = append(r.Draws, d)
	if r.Shade != nil {
		r.rasterize(d)
	}
}

// sample fetches the nearest texel of the texture bound for sampler.
func (r *Recorder) sample(d Draw, sampler string, u, v float32) color.RGBA {
	unit, ok := d.Samplers[sampler]
	if !ok {
		return color.RGBA{}
	}
	t, ok := r.Textures[d.Units[int(unit)]]
	if !ok || t.Width == 0 || t.Height == 0 {
		return color.RGBA{}
	}
	x := clamp(int(u*float32(t.Width)), t.Width-1)
	y := clamp(int(v*float32(t.Height)), t.Height-1)
	i := (y*t.Width + x) * 4
	return color.RGBA{t.Pixels[i], t.Pixels[i+1], t.Pixels[i+2], t.Pixels[i+3]}
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

// rasterize shades every framebuffer pixel. The compositor's quad covers
// the viewport with texture coordinates equal to the normalized pixel
// center, so no triangle setup is needed.
func (r *Recorder) rasterize(d Draw) {
	w, h := r.ViewportW, r.ViewportH
	if len(r.Framebuffer) != w*h*4 {
		r.Framebuffer = make([]byte, w*h*4)
	}
	sample := func(sampler string, u, v float32) color.RGBA {
		return r.sample(d, sampler, u, v)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u := (float32(x) + 0.5) / float32(w)
			v := (float32(y) + 0.5) / float32(h)
			c := r.Shade(sample, u, v)
			i := (y*w + x) * 4
			r.Framebuffer[i], r.Framebuffer[i+1], r.Framebuffer[i+2], r.Framebuffer[i+3] = c.R, c.G, c.B, c.A
		}
	}
}

// ReadPixels copies from Framebuffer; pixels outside it read as zero.
func (r *Recorder) ReadPixels(x, y, width, height int, dst []byte) {
	r.record("ReadPixels(%d, %d, %d, %d)", x, y, width, height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			o := (row*width + col) * 4
			fx, fy := x+col, y+row
			if fx < 0 || fy < 0 || fx >= r.ViewportW || fy >= r.ViewportH || len(r.Framebuffer) == 0 {
				copy(dst[o:o+4], []byte{0, 0, 0, 0})
				continue
			}
			i := (fy*r.ViewportW + fx) * 4
			copy(dst[o:o+4], r.Framebuffer[i:i+4])
		}
	}
}

// PixelAt returns the framebuffer pixel at window coordinates with the
// origin at the top-left corner.
func (r *Recorder) PixelAt(x, y int) color.RGBA {
	row := r.ViewportH - 1 - y
	i := (row*r.ViewportW + x) * 4
	return color.RGBA{r.Framebuffer[i], r.Framebuffer[i+1], r.Framebuffer[i+2], r.Framebuffer[i+3]}
}
