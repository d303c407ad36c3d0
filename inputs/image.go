// inputs/image.go
package inputs

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageSource is a decoded still image.
type ImageSource struct {
	Path   string
	rgba   *image.RGBA
	width  int
	height int
}

// NewImageSource converts img to tightly packed RGBA.
func NewImageSource(img image.Image) *ImageSource {
	s := &ImageSource{}
	s.set(img)
	return s
}

func (s *ImageSource) set(img image.Image) {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	s.rgba = rgba
	s.width, s.height = b.Dx(), b.Dy()
}

// DecodeImage decodes any registered format: PNG, JPEG, GIF, BMP, TIFF or WebP.
func DecodeImage(r io.Reader) (*ImageSource, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decoded %s image is empty", format)
	}
	return NewImageSource(img), nil
}

// ReadImageFile decodes the image at path.
func ReadImageFile(path string) (*ImageSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	src, err := DecodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.Path = path
	return src, nil
}

// LoadImage decodes path on its own goroutine and calls onLoad once with
// the result. The returned source has no content until onLoad ran with a
// nil error.
func LoadImage(path string, onLoad func(*ImageSource, error)) *ImageSource {
	s := &ImageSource{Path: path}
	go func() {
		decoded, err := ReadImageFile(path)
		if err != nil {
			onLoad(s, err)
			return
		}
		s.rgba, s.width, s.height = decoded.rgba, decoded.width, decoded.height
		log.Printf("Loaded image %s (%dx%d)", path, s.width, s.height)
		onLoad(s, nil)
	}()
	return s
}

func (s *ImageSource) Size() (int, int) {
	return s.width, s.height
}

func (s *ImageSource) Pixels() []byte {
	if s.rgba == nil {
		return nil
	}
	return s.rgba.Pix
}
