package encoder

import (
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// numBuffers is how many frames may be queued ahead of the ffmpeg pipe.
const numBuffers = 4

// Frame represents a single rendered video frame's data, ready for encoding.
type Frame struct {
	Pixels []byte
	PTS    int64
}

// Options configures recording of the composited output.
type Options struct {
	OutputFile string
	Width      int
	Height     int
	FPS        int
	// Codec is "h264" or "hevc".
	Codec      string
	FFMPEGPath string
}

// Encoder writes RGBA frames, bottom row first as read back from GL, to an
// ffmpeg process that encodes them.
type Encoder struct {
	width, height int
	frameSize     int

	frames chan Frame
	free   chan []byte
	done   chan error
	wait   func() error // waits for the ffmpeg process, if any

	mu  sync.Mutex
	err error
	pts int64

	closeOnce sync.Once
	closeErr  error
}

func getArgs(opts Options) (inputArgs ffmpeg.KwArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{
		"f":         "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"framerate": fmt.Sprint(opts.FPS),
	}

	outputArgs = ffmpeg.KwArgs{
		"vf":      "vflip",
		"pix_fmt": "yuv420p",
	}
	switch runtime.GOOS {
	case "darwin":
		log.Println("Using macOS (VideoToolbox) hardware acceleration.")
		if opts.Codec == "hevc" {
			outputArgs["c:v"] = "hevc_videotoolbox"
		} else {
			outputArgs["c:v"] = "h264_videotoolbox"
		}
	default:
		log.Println("Using software encoding pipeline (no hardware acceleration).")
		if opts.Codec == "hevc" {
			outputArgs["c:v"] = "libx265"
		} else {
			outputArgs["c:v"] = "libx264"
		}
	}
	outputArgs["b:v"] = "25M"

	if opts.Codec == "hevc" && strings.HasSuffix(opts.OutputFile, ".mp4") {
		outputArgs["tag:v"] = "hvc1"
	}
	return
}

func (o Options) validate() error {
	switch {
	case o.OutputFile == "":
		return errors.New("no output file")
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("invalid frame size %dx%d", o.Width, o.Height)
	case o.FPS <= 0:
		return fmt.Errorf("invalid frame rate %d", o.FPS)
	case o.Codec != "h264" && o.Codec != "hevc":
		return fmt.Errorf("unsupported codec %q", o.Codec)
	}
	return nil
}

// New starts an ffmpeg process encoding to opts.OutputFile.
func New(opts Options) (*Encoder, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid recording options: %w", err)
	}

	pipeReader, pipeWriter := io.Pipe()
	inputArgs, outputArgs := getArgs(opts)
	ffmpegCmd := ffmpeg.Input("pipe:", inputArgs).
		Output(opts.OutputFile, outputArgs).
		OverWriteOutput().WithInput(pipeReader).ErrorToStdOut()
	if opts.FFMPEGPath != "" {
		ffmpegCmd = ffmpegCmd.SetFfmpegPath(opts.FFMPEGPath)
	}

	errc := make(chan error, 1)
	go func() {
		err := ffmpegCmd.Run()
		// a writer blocked on a dead process gets the error instead
		pipeReader.CloseWithError(err)
		errc <- err
	}()
	log.Printf("Recording %dx%d @ %d fps to %s", opts.Width, opts.Height, opts.FPS, opts.OutputFile)

	e := NewWithWriter(pipeWriter, opts.Width, opts.Height)
	e.wait = func() error {
		if err := <-errc; err != nil {
			return fmt.Errorf("ffmpeg encoder failed: %w", err)
		}
		return nil
	}
	return e, nil
}

// NewWithWriter encodes to w, which is closed by Close.
func NewWithWriter(w io.WriteCloser, width, height int) *Encoder {
	e := &Encoder{
		width:     width,
		height:    height,
		frameSize: width * height * 4,
		frames:    make(chan Frame, numBuffers),
		free:      make(chan []byte, numBuffers),
		done:      make(chan error, 1),
	}
	for i := 0; i < numBuffers; i++ {
		e.free <- make([]byte, e.frameSize)
	}
	go e.run(w)
	return e
}

// run is the consumer. After a write error it keeps draining so producers
// never block.
func (e *Encoder) run(w io.WriteCloser) {
	var werr error
	for frame := range e.frames {
		if werr == nil {
			if _, err := w.Write(frame.Pixels); err != nil {
				werr = fmt.Errorf("failed to write frame %d: %w", frame.PTS, err)
				log.Printf("Encoder: %v", werr)
				e.mu.Lock()
				e.err = werr
				e.mu.Unlock()
			}
		}
		e.free <- frame.Pixels
	}
	if err := w.Close(); err != nil && werr == nil {
		werr = err
	}
	e.done <- werr
}

func (e *Encoder) Size() (int, int) {
	return e.width, e.height
}

// Frames returns the number of frames queued so far.
func (e *Encoder) Frames() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pts
}

// WriteFrame queues a copy of pixels and must not be called after Close.
// It blocks while all buffers are in flight and returns the first write
// error seen by the consumer.
func (e *Encoder) WriteFrame(pixels []byte) error {
	if len(pixels) != e.frameSize {
		return fmt.Errorf("frame is %d bytes, want %d", len(pixels), e.frameSize)
	}
	e.mu.Lock()
	if e.err != nil {
		err := e.err
		e.mu.Unlock()
		return err
	}
	pts := e.pts
	e.pts++
	e.mu.Unlock()

	buf := <-e.free
	copy(buf, pixels)
	e.frames <- Frame{Pixels: buf, PTS: pts}
	return nil
}

// Close flushes queued frames and waits for the encoder to finish.
func (e *Encoder) Close() error {
	e.closeOnce.Do(func() {
		close(e.frames)
		e.closeErr = <-e.done
		if e.wait != nil {
			if err := e.wait(); err != nil && e.closeErr == nil {
				e.closeErr = err
			}
		}
		log.Printf("Encoder finished after %d frames", e.Frames())
	})
	return e.closeErr
}
