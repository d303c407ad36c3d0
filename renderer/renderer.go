package renderer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gochromakey/geometry"
	"github.com/richinsley/gochromakey/gpu"
	"github.com/richinsley/gochromakey/graphics"
	"github.com/richinsley/gochromakey/inputs"
	"github.com/richinsley/gochromakey/readiness"
)

// Camera setup for the quad.
const (
	FieldOfView = 45.0
	ZNear       = 0.1
	ZFar        = 100.0
	CameraZ     = -6.0
)

// Stage is the renderer's startup progress.
type Stage int

const (
	// WaitingImages draws nothing until both backgrounds decoded.
	WaitingImages Stage = iota
	// WaitingVideo redraws the backgrounds until the video is playing.
	WaitingVideo
	// Running refreshes the video texture and draws every tick.
	Running
)

func (s Stage) String() string {
	switch s {
	case WaitingImages:
		return "waiting-images"
	case WaitingVideo:
		return "waiting-video"
	case Running:
		return "running"
	}
	return "unknown"
}

// Config is everything a Renderer draws with. All of it is owned by the
// caller except Scene, which the Renderer destroys.
type Config struct {
	Device  gpu.Device
	Surface graphics.Context
	Scene   *Scene

	SceneA inputs.Source
	SceneB inputs.Source
	Video  inputs.Video

	Images     *readiness.Gate
	VideoReady *readiness.Video

	// Reloads, when set, delivers replacement backgrounds.
	Reloads <-chan inputs.ImageUpdate
	// Sink, when set, receives every presented frame.
	Sink FrameSink
}

// FrameSink consumes read-back frames: RGBA rows, bottom row first.
type FrameSink interface {
	Size() (width, height int)
	WriteFrame(pixels []byte) error
}

type Renderer struct {
	dev     gpu.Device
	surface graphics.Context
	scene   *Scene

	sceneA inputs.Source
	sceneB inputs.Source
	video  inputs.Video

	images     *readiness.Gate
	videoReady *readiness.Video
	reloads    <-chan inputs.ImageUpdate
	sink       FrameSink
	capture    []byte

	stage        Stage
	viewW, viewH int
	frames       int64
	videoUploads int64
	modelView    mgl32.Mat4
	projection   mgl32.Mat4
}

func New(cfg Config) (*Renderer, error) {
	switch {
	case cfg.Device == nil:
		return nil, errors.New("renderer needs a device")
	case cfg.Surface == nil:
		return nil, errors.New("renderer needs a surface")
	case cfg.Scene == nil || cfg.Scene.Program == nil || cfg.Scene.Quad == nil:
		return nil, errors.New("renderer needs a complete scene")
	case cfg.SceneA == nil || cfg.SceneB == nil || cfg.Video == nil:
		return nil, errors.New("renderer needs two images and a video")
	case cfg.Images == nil || cfg.VideoReady == nil:
		return nil, errors.New("renderer needs the image and video gates")
	}
	return &Renderer{
		dev:        cfg.Device,
		surface:    cfg.Surface,
		scene:      cfg.Scene,
		sceneA:     cfg.SceneA,
		sceneB:     cfg.SceneB,
		video:      cfg.Video,
		images:     cfg.Images,
		videoReady: cfg.VideoReady,
		reloads:    cfg.Reloads,
		sink:       cfg.Sink,
		modelView:  mgl32.Translate3D(0, 0, CameraZ),
	}, nil
}

func (r *Renderer) Stage() Stage {
	return r.stage
}

// Frames returns the number of draws issued so far.
func (r *Renderer) Frames() int64 {
	return r.frames
}

// Tick advances the startup sequence by one frame and draws when there is
// something to show. It returns an error only when the images failed.
func (r *Renderer) Tick() error {
	r.applyReloads()

	switch r.stage {
	case WaitingImages:
		select {
		case <-r.images.Done():
		default:
			return nil
		}
		if err := r.images.Err(); err != nil {
			return fmt.Errorf("failed to load scene images: %w", err)
		}
		w, h := r.surface.GetFramebufferSize()
		r.setViewport(w, h)
		r.scene.SceneA.Update(r.sceneA)
		r.scene.SceneB.Update(r.sceneB)
		log.Println("Scene images ready")
		r.stage = WaitingVideo
		r.DrawScene()

	case WaitingVideo:
		if err := r.videoReady.Err(); err != nil {
			return fmt.Errorf("video failed to start: %w", err)
		}
		if !r.videoReady.Ready() {
			r.DrawScene()
			return nil
		}
		log.Println("Video ready, compositing")
		r.stage = Running
		r.updateVideo()
		r.DrawScene()

	case Running:
		r.updateVideo()
		r.DrawScene()
	}
	return nil
}

// updateVideo copies the newest frame only when one arrived since the
// last upload.
func (r *Renderer) updateVideo() {
	if r.video.ReadyState() < inputs.HaveFutureData {
		return
	}
	r.scene.Video.Update(r.video)
	r.videoUploads++
}

func (r *Renderer) applyReloads() {
	if r.reloads == nil {
		return
	}
	for {
		select {
		case u := <-r.reloads:
			r.applyReload(u)
		default:
			return
		}
	}
}

func (r *Renderer) applyReload(u inputs.ImageUpdate) {
	var tex *inputs.Texture
	switch u.Index {
	case 0:
		r.sceneA = u.Image
		tex = r.scene.SceneA
	case 1:
		r.sceneB = u.Image
		tex = r.scene.SceneB
	default:
		return
	}
	// before the gate opens the new source is picked up with the first draw
	if r.stage != WaitingImages {
		tex.Update(u.Image)
	}
}

func (r *Renderer) setViewport(w, h int) {
	if w == r.viewW && h == r.viewH {
		return
	}
	r.dev.Viewport(0, 0, w, h)
	r.viewW, r.viewH = w, h
}

// DrawScene clears the surface and draws the keyed quad once.
func (r *Renderer) DrawScene() {
	w, h := r.surface.GetFramebufferSize()
	r.setViewport(w, h)
	if h == 0 {
		h = 1
	}

	r.dev.Clear(0, 0, 0, 1, 1)

	r.projection = mgl32.Perspective(mgl32.DegToRad(FieldOfView), float32(w)/float32(h), ZNear, ZFar)

	p := r.scene.Program
	r.scene.Quad.Bind(r.dev, p)
	r.dev.UseProgram(p.ID)
	r.dev.UniformMatrix4(p.ProjectionMatrix, (*[16]float32)(&r.projection))
	r.dev.UniformMatrix4(p.ModelViewMatrix, (*[16]float32)(&r.modelView))

	for unit, tex := range r.scene.textures() {
		r.dev.ActiveTexture(unit)
		r.dev.BindTexture(tex.ID)
		r.dev.Uniform1i(p.Samplers[unit], int32(unit))
	}

	r.dev.DrawTriangles(r.scene.Quad.VAO, 0, geometry.VertexCount)
	r.frames++
}

// Run ticks and presents until the surface asks to close or ctx ends.
// EndFrame blocks for the swap interval, which paces the loop.
func (r *Renderer) Run(ctx context.Context) error {
	r.surface.MakeCurrent()
	for !r.surface.ShouldClose() {
		select {
		case <-ctx.Done():
			log.Println("Render loop cancelled")
			return nil
		default:
		}

		drawn := r.frames
		if err := r.Tick(); err != nil {
			return err
		}
		if r.sink != nil && r.frames != drawn {
			if err := r.captureFrame(); err != nil {
				return err
			}
		}
		r.surface.EndFrame()
	}
	log.Printf("Render loop finished after %d frames, %d video uploads", r.frames, r.videoUploads)
	return nil
}

// captureFrame reads the finished frame back before it is presented.
// Frames whose size differs from the sink are skipped.
func (r *Renderer) captureFrame() error {
	w, h := r.sink.Size()
	if w != r.viewW || h != r.viewH {
		return nil
	}
	n := w * h * 4
	if cap(r.capture) < n {
		r.capture = make([]byte, n)
	}
	r.capture = r.capture[:n]
	r.dev.ReadPixels(0, 0, w, h, r.capture)
	if err := r.sink.WriteFrame(r.capture); err != nil {
		return fmt.Errorf("failed to record frame: %w", err)
	}
	return nil
}

// Destroy releases the scene. The sources and surface are left to the caller.
func (r *Renderer) Destroy() {
	r.scene.Destroy()
	r.scene = nil
}
