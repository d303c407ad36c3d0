// inputs/video.go
package inputs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoOptions configures the ffmpeg decode of a video file.
type VideoOptions struct {
	Path       string
	FFMPEGPath string
	// Loop restarts the file at its end, forever.
	Loop bool
	// Realtime paces decoding at the native frame rate.
	Realtime bool
}

// VideoEvents are playback notifications. Either may be nil. They run on
// the decoder's goroutines.
type VideoEvents struct {
	// Playing fires once, when the decoder has been started.
	Playing func()
	// TimeUpdate fires whenever a new frame was fully decoded.
	TimeUpdate func()
}

// VideoSource is a video decoded to RGBA frames by an ffmpeg process.
//
// The decoder fills back, then swaps it with pending. Pixels swaps pending
// with front when a newer frame exists. The render thread only reads front
// and the decoder only writes back, so neither ever sees a half-written
// frame and no frame is allocated after startup.
type VideoSource struct {
	width     int
	height    int
	frameRate float64

	mu        sync.Mutex
	back      []byte
	pending   []byte
	front     []byte
	fresh     bool
	haveFrame bool
	frames    int64
	err       error

	reader io.ReadCloser
	done   chan struct{}
	events VideoEvents
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
}

// parseProbe extracts the first video stream's size and frame rate from
// ffprobe's JSON output.
func parseProbe(data string) (width, height int, fps float64, err error) {
	var res probeResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to parse probe output: %w", err)
	}
	for _, s := range res.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return 0, 0, 0, fmt.Errorf("video stream has invalid size %dx%d", s.Width, s.Height)
		}
		fps = parseRate(s.AvgFrameRate)
		if fps == 0 {
			fps = parseRate(s.RFrameRate)
		}
		return s.Width, s.Height, fps, nil
	}
	return 0, 0, 0, errors.New("could not find video stream")
}

// parseRate parses ffprobe rationals such as "30000/1001"; it returns 0
// for anything unusable.
func parseRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// OpenVideo probes opts.Path and starts decoding it.
func OpenVideo(opts VideoOptions, events VideoEvents) (*VideoSource, error) {
	probe, err := ffmpeg.Probe(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video %s: %w", opts.Path, err)
	}
	width, height, fps, err := parseProbe(probe)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Path, err)
	}
	log.Printf("Video %s: %dx%d @ %.2f fps", opts.Path, width, height, fps)

	inputArgs := ffmpeg.KwArgs{}
	if opts.Loop {
		inputArgs["stream_loop"] = "-1"
	}
	if opts.Realtime {
		inputArgs["re"] = ""
	}
	outputArgs := ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"an":      "",
	}

	pipeReader, pipeWriter := io.Pipe()
	ffmpegCmd := ffmpeg.Input(opts.Path, inputArgs).
		Output("pipe:", outputArgs).
		WithOutput(pipeWriter).
		ErrorToStdOut()
	if opts.FFMPEGPath != "" {
		ffmpegCmd = ffmpegCmd.SetFfmpegPath(opts.FFMPEGPath)
	}

	v := newVideoSource(width, height, pipeReader, events)
	v.frameRate = fps

	go func() {
		err := ffmpegCmd.Run()
		if err != nil {
			log.Printf("FFmpeg decoder for %s finished with error: %v", opts.Path, err)
		}
		// Unblocks the frame reader; a nil error reads as io.EOF.
		pipeWriter.CloseWithError(err)
	}()
	log.Printf("Started FFmpeg decoder for %s", opts.Path)

	v.start()
	return v, nil
}

// NewVideoSourceFromReader decodes raw RGBA frames of the given size from
// r, such as the output of an already running decoder.
func NewVideoSourceFromReader(r io.Reader, width, height int, events VideoEvents) *VideoSource {
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	v := newVideoSource(width, height, rc, events)
	v.start()
	return v
}

func newVideoSource(width, height int, r io.ReadCloser, events VideoEvents) *VideoSource {
	frameSize := width * height * 4
	return &VideoSource{
		width:   width,
		height:  height,
		back:    make([]byte, frameSize),
		pending: make([]byte, frameSize),
		front:   make([]byte, frameSize),
		reader:  r,
		done:    make(chan struct{}),
		events:  events,
	}
}

func (v *VideoSource) start() {
	go v.readFrames()
	if v.events.Playing != nil {
		v.events.Playing()
	}
}

func (v *VideoSource) readFrames() {
	defer close(v.done)
	for {
		if _, err := io.ReadFull(v.reader, v.back); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				v.mu.Lock()
				v.err = err
				v.mu.Unlock()
			}
			return
		}

		v.mu.Lock()
		v.back, v.pending = v.pending, v.back
		v.fresh = true
		v.haveFrame = true
		v.frames++
		v.mu.Unlock()

		if v.events.TimeUpdate != nil {
			v.events.TimeUpdate()
		}
	}
}

func (v *VideoSource) Size() (int, int) {
	return v.width, v.height
}

// FrameRate is the probed frame rate, or 0 when unknown.
func (v *VideoSource) FrameRate() float64 {
	return v.frameRate
}

// Pixels returns the newest decoded frame. The slice stays valid until
// the next call.
func (v *VideoSource) Pixels() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fresh {
		v.front, v.pending = v.pending, v.front
		v.fresh = false
	}
	return v.front
}

func (v *VideoSource) ReadyState() ReadyState {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.fresh:
		return HaveEnoughData
	case v.haveFrame:
		return HaveCurrentData
	default:
		return HaveMetadata
	}
}

// Frames returns the number of frames decoded so far.
func (v *VideoSource) Frames() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

// Done is closed when the decoder stops producing frames.
func (v *VideoSource) Done() <-chan struct{} {
	return v.done
}

// Err returns the error that stopped the decoder, if any.
func (v *VideoSource) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Close stops decoding and waits for the reader to exit.
func (v *VideoSource) Close() error {
	err := v.reader.Close()
	<-v.done
	log.Println("Video decoder stopped")
	return err
}
