package encoder

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	fail   error
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	return s.buf.Write(p)
}

func (s *sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestEncoderWritesFramesInOrder(t *testing.T) {
	out := &sink{}
	e := NewWithWriter(out, 2, 1)

	var want []byte
	for i := 0; i < 10; i++ {
		frame := bytes.Repeat([]byte{byte(i)}, 8)
		want = append(want, frame...)
		require.NoError(t, e.WriteFrame(frame))
		// the encoder keeps its own copy
		frame[0] = 0xff
	}
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	assert.True(t, out.closed)
	assert.Equal(t, want, out.buf.Bytes())
	assert.Equal(t, int64(10), e.Frames())
}

func TestEncoderRejectsWrongFrameSize(t *testing.T) {
	e := NewWithWriter(&sink{}, 2, 2)
	defer e.Close()
	assert.Error(t, e.WriteFrame(make([]byte, 3)))
	assert.Equal(t, int64(0), e.Frames())
}

func TestEncoderReportsWriteError(t *testing.T) {
	boom := errors.New("broken pipe")
	out := &sink{fail: boom}
	e := NewWithWriter(out, 1, 1)

	// the first frame is accepted; its failure surfaces later
	require.NoError(t, e.WriteFrame(make([]byte, 4)))
	err := e.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestOptionsValidate(t *testing.T) {
	good := Options{OutputFile: "out.mp4", Width: 4, Height: 4, FPS: 30, Codec: "h264"}
	assert.NoError(t, good.validate())

	bad := []Options{
		{Width: 4, Height: 4, FPS: 30, Codec: "h264"},
		{OutputFile: "o.mp4", Height: 4, FPS: 30, Codec: "h264"},
		{OutputFile: "o.mp4", Width: 4, Height: 4, Codec: "h264"},
		{OutputFile: "o.mp4", Width: 4, Height: 4, FPS: 30, Codec: "vp9"},
	}
	for _, o := range bad {
		assert.Error(t, o.validate(), "%+v", o)
	}

	_, err := New(Options{})
	assert.Error(t, err)
}

func TestGetArgs(t *testing.T) {
	in, out := getArgs(Options{OutputFile: "clip.mp4", Width: 640, Height: 360, FPS: 25, Codec: "hevc"})
	assert.Equal(t, "rawvideo", in["f"])
	assert.Equal(t, "rgba", in["pix_fmt"])
	assert.Equal(t, "640x360", in["s"])
	assert.Equal(t, "25", in["framerate"])
	assert.Equal(t, "vflip", out["vf"])
	assert.Equal(t, "hvc1", out["tag:v"])
	assert.Contains(t, []string{"libx265", "hevc_videotoolbox"}, out["c:v"])
}
