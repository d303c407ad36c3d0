// In renderer/scene.go
package renderer

import (
	"log"

	"github.com/richinsley/gochromakey/geometry"
	"github.com/richinsley/gochromakey/gpu"
	"github.com/richinsley/gochromakey/inputs"
	"github.com/richinsley/gochromakey/shader"
)

// Scene owns every GPU resource the compositor draws with.
type Scene struct {
	Title   string
	Program *shader.Program
	Quad    *geometry.Buffers

	// Textures bound to units 0, 1 and 2.
	SceneA *inputs.Texture
	SceneB *inputs.Texture
	Video  *inputs.Texture

	dev gpu.Device
}

// NewScene takes ownership of program and quad and allocates the three
// placeholder textures.
func NewScene(dev gpu.Device, title string, program *shader.Program, quad *geometry.Buffers) *Scene {
	return &Scene{
		Title:   title,
		Program: program,
		Quad:    quad,
		SceneA:  inputs.NewPlaceholderTexture(dev),
		SceneB:  inputs.NewPlaceholderTexture(dev),
		Video:   inputs.NewPlaceholderTexture(dev),
		dev:     dev,
	}
}

// textures returns the scene textures in texture unit order.
func (s *Scene) textures() [3]*inputs.Texture {
	return [3]*inputs.Texture{s.SceneA, s.SceneB, s.Video}
}

// Destroy releases all GPU resources used by the scene.
func (s *Scene) Destroy() {
	if s == nil {
		return
	}
	log.Printf("Destroying scene: %s", s.Title)

	for _, tex := range s.textures() {
		if tex != nil {
			tex.Destroy()
		}
	}
	if s.Quad != nil {
		s.Quad.Destroy(s.dev)
		s.Quad = nil
	}
	if s.Program != nil {
		s.Program.Destroy(s.dev)
	}
}
