package inputs

import (
	"github.com/richinsley/gochromakey/gpu"
)

// placeholderPixel is opaque blue, so a texture is bindable before any
// content arrived.
var placeholderPixel = [4]byte{0, 0, 255, 255}

// Texture is a 2D texture that is created once and overwritten in place.
type Texture struct {
	dev     gpu.Device
	ID      uint32
	width   int
	height  int
	scratch []byte // flipped rows, reused across updates
}

// NewPlaceholderTexture allocates a clamped, linearly filtered texture
// without mipmaps holding a single opaque pixel.
func NewPlaceholderTexture(dev gpu.Device) *Texture {
	t := &Texture{
		dev: dev,
		ID: dev.CreateTexture(gpu.TextureParams{
			WrapS:     gpu.ClampToEdge,
			WrapT:     gpu.ClampToEdge,
			MinFilter: gpu.Linear,
			MagFilter: gpu.Linear,
		}),
	}
	t.upload(1, 1, placeholderPixel[:])
	return t
}

// Size returns the dimensions of the current content.
func (t *Texture) Size() (int, int) {
	return t.width, t.height
}

// Update replaces the whole content with src. The caller must only pass a
// source that has content; sources with no pixels are ignored.
func (t *Texture) Update(src Source) {
	w, h := src.Size()
	pixels := src.Pixels()
	if w <= 0 || h <= 0 || len(pixels) < w*h*4 {
		return
	}
	t.upload(w, h, pixels)
}

// upload flips rows so the top image row lands at v = 1, then reuses the
// existing storage when the size did not change.
func (t *Texture) upload(w, h int, pixels []byte) {
	n := w * h * 4
	if cap(t.scratch) < n {
		t.scratch = make([]byte, n)
	}
	t.scratch = t.scratch[:n]
	flipRows(t.scratch, pixels, w*4, h)

	if w == t.width && h == t.height {
		t.dev.TexSubImage2D(t.ID, w, h, t.scratch)
		return
	}
	t.dev.TexImage2D(t.ID, w, h, t.scratch)
	t.width, t.height = w, h
}

func (t *Texture) Destroy() {
	if t.ID == 0 {
		return
	}
	t.dev.DeleteTexture(t.ID)
	t.ID = 0
}

// flipRows copies height rows of rowSize bytes from src to dst in reverse
// order.
func flipRows(dst, src []byte, rowSize, height int) {
	for y := 0; y < height; y++ {
		srcRow := src[((height-1)-y)*rowSize:]
		copy(dst[y*rowSize:(y+1)*rowSize], srcRow[:rowSize])
	}
}
