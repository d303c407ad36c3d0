// Package geometry holds the full-viewport quad drawn by the compositor.
package geometry

import (
	"github.com/richinsley/gochromakey/gpu"
	"github.com/richinsley/gochromakey/shader"
)

// VertexCount is the number of vertices in the quad: two triangles.
const VertexCount = 6

// Positions covers clip space, two triangles of 2D points.
var Positions = [VertexCount * 2]float32{
	-1.0, -1.0,
	1.0, -1.0,
	-1.0, 1.0,
	-1.0, 1.0,
	1.0, -1.0,
	1.0, 1.0,
}

// TexCoords maps each position to a texel; v = 0 is the bottom row, which
// is why textures are uploaded flipped.
var TexCoords = [VertexCount * 2]float32{
	0.0, 0.0,
	1.0, 0.0,
	0.0, 1.0,
	0.0, 1.0,
	1.0, 0.0,
	1.0, 1.0,
}

// Buffers owns the quad's vertex array and its two static buffers.
type Buffers struct {
	VAO          uint32
	Position     uint32
	TextureCoord uint32
}

// New uploads the quad. The data never changes afterwards.
func New(dev gpu.Device) *Buffers {
	return &Buffers{
		VAO:          dev.CreateVertexArray(),
		Position:     dev.CreateStaticBuffer(Positions[:]),
		TextureCoord: dev.CreateStaticBuffer(TexCoords[:]),
	}
}

// Bind points the program's attributes at the buffers, two floats per vertex.
func (b *Buffers) Bind(dev gpu.Device, p *shader.Program) {
	dev.VertexAttribute(b.VAO, b.Position, p.VertexPosition, 2)
	dev.VertexAttribute(b.VAO, b.TextureCoord, p.TextureCoord, 2)
}

func (b *Buffers) Destroy(dev gpu.Device) {
	dev.DeleteBuffer(b.Position)
	dev.DeleteBuffer(b.TextureCoord)
	dev.DeleteVertexArray(b.VAO)
}
