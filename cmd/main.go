package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	glfw "github.com/go-gl/glfw/v3.3/glfw"

	"github.com/richinsley/gochromakey/encoder"
	"github.com/richinsley/gochromakey/geometry"
	"github.com/richinsley/gochromakey/glfwcontext"
	"github.com/richinsley/gochromakey/gpu"
	"github.com/richinsley/gochromakey/inputs"
	"github.com/richinsley/gochromakey/options"
	"github.com/richinsley/gochromakey/renderer"
	"github.com/richinsley/gochromakey/shader"
	"github.com/richinsley/gochromakey/translator"
)

func init() {
	runtime.LockOSThread()
}

// forwardReloads copies watcher updates into reloads until the watcher closes.
func forwardReloads(w *inputs.Watcher, reloads chan<- inputs.ImageUpdate) {
	for u := range w.Updates() {
		select {
		case reloads <- u:
		default:
			log.Printf("Dropping reload of image %d, renderer is behind", u.Index)
		}
	}
}

// reloadFromDisk re-reads both backgrounds; bound to the R key.
func reloadFromDisk(paths []string, reloads chan<- inputs.ImageUpdate) {
	for i, p := range paths {
		img, err := inputs.ReadImageFile(p)
		if err != nil {
			log.Printf("Reload of %s failed: %v", p, err)
			continue
		}
		select {
		case reloads <- inputs.ImageUpdate{Index: i, Image: img}:
		default:
		}
	}
}

func run(opts *options.CompositorOptions) error {
	if err := glfwcontext.InitGraphics(); err != nil {
		return err
	}
	defer glfwcontext.TerminateGraphics()

	window, err := glfwcontext.New(opts)
	if err != nil {
		return err
	}
	defer window.Shutdown()

	dev, err := gpu.NewGL()
	if err != nil {
		return err
	}
	log.Printf("OpenGL version: %s", dev.Version())

	program, err := shader.BuildColorKey(dev, shader.WithTranslator(translator.WebGL2{}))
	if err != nil {
		return err
	}
	log.Println("Color key program built")
	scene := renderer.NewScene(dev, "color key", program, geometry.New(dev))

	media, err := inputs.OpenMedia(inputs.MediaOptions{
		SceneA:     *opts.SceneA,
		SceneB:     *opts.SceneB,
		Video:      *opts.Video,
		FFMPEGPath: *opts.FFMPEGPath,
	})
	if err != nil {
		scene.Destroy()
		return err
	}
	defer media.Close()

	reloads := make(chan inputs.ImageUpdate, 4)
	paths := []string{*opts.SceneA, *opts.SceneB}
	window.RegisterKeyCallback(glfw.KeyR, func() { reloadFromDisk(paths, reloads) })
	if *opts.Watch {
		watcher, err := inputs.WatchImages(paths...)
		if err != nil {
			scene.Destroy()
			return err
		}
		defer watcher.Close()
		go forwardReloads(watcher, reloads)
	}

	var sink renderer.FrameSink
	if *opts.Record != "" {
		// frames are read back at framebuffer size, which differs from the
		// window size on high-DPI displays
		fbWidth, fbHeight := window.GetFramebufferSize()
		enc, err := encoder.New(encoder.Options{
			OutputFile: *opts.Record,
			Width:      fbWidth,
			Height:     fbHeight,
			FPS:        *opts.FPS,
			Codec:      *opts.Codec,
			FFMPEGPath: *opts.FFMPEGPath,
		})
		if err != nil {
			scene.Destroy()
			return err
		}
		defer func() {
			if err := enc.Close(); err != nil {
				log.Printf("Recording failed: %v", err)
			} else {
				log.Printf("Successfully rendered to %s", *opts.Record)
			}
		}()
		sink = enc
	}

	r, err := renderer.New(renderer.Config{
		Device:     dev,
		Surface:    window,
		Scene:      scene,
		SceneA:     media.SceneA,
		SceneB:     media.SceneB,
		Video:      media.Video,
		Images:     media.Images,
		VideoReady: media.VideoReady,
		Reloads:    reloads,
		Sink:       sink,
	})
	if err != nil {
		scene.Destroy()
		return err
	}
	defer r.Destroy()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Starting render loop...")
	return r.Run(ctx)
}

func main() {
	opts, err := options.Parse(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	if *opts.Help {
		return
	}
	if err := opts.Validate(); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	if err := run(opts); err != nil {
		log.Fatalf("Compositor failed: %v", err)
	}
}
