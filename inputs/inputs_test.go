package inputs

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gochromakey/gpu"
	"github.com/richinsley/gochromakey/gpu/gputest"
	"github.com/richinsley/gochromakey/readiness"
)

// gradient returns a w x h image whose pixel (x, y) is (x, y, 7, 255).
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 7, 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestPlaceholderTexture(t *testing.T) {
	rec := gputest.NewRecorder()
	tex := NewPlaceholderTexture(rec)

	got := rec.Textures[tex.ID]
	require.NotNil(t, got)
	assert.Equal(t, gpu.TextureParams{
		WrapS: gpu.ClampToEdge, WrapT: gpu.ClampToEdge,
		MinFilter: gpu.Linear, MagFilter: gpu.Linear,
	}, got.Params)
	assert.Equal(t, 1, got.Width)
	assert.Equal(t, 1, got.Height)
	assert.Equal(t, []byte{0, 0, 255, 255}, got.Pixels)
}

func TestTextureUpdateFlipsRows(t *testing.T) {
	rec := gputest.NewRecorder()
	tex := NewPlaceholderTexture(rec)

	tex.Update(NewImageSource(gradient(3, 2)))
	got := rec.Textures[tex.ID]
	require.Equal(t, 3, got.Width)
	require.Equal(t, 2, got.Height)

	// first uploaded row (GL bottom) is the last image row
	assert.Equal(t, []byte{0, 1, 7, 255, 1, 1, 7, 255, 2, 1, 7, 255}, got.Pixels[:12])
	assert.Equal(t, []byte{0, 0, 7, 255, 1, 0, 7, 255, 2, 0, 7, 255}, got.Pixels[12:])
}

func TestTextureUpdateReusesStorage(t *testing.T) {
	rec := gputest.NewRecorder()
	tex := NewPlaceholderTexture(rec)
	id := tex.ID

	src := NewImageSource(gradient(4, 4))
	tex.Update(src)
	scratch := &tex.scratch[0]
	tex.Update(src)
	tex.Update(src)

	got := rec.Textures[id]
	assert.Equal(t, id, tex.ID)
	assert.Equal(t, 2, got.Specs) // placeholder + first real size
	assert.Equal(t, 2, got.Updates)
	assert.Same(t, scratch, &tex.scratch[0])
}

func TestTextureIgnoresEmptySource(t *testing.T) {
	rec := gputest.NewRecorder()
	tex := NewPlaceholderTexture(rec)
	tex.Update(&ImageSource{})
	assert.Equal(t, []byte{0, 0, 255, 255}, rec.Textures[tex.ID].Pixels)
}

func TestTextureDestroy(t *testing.T) {
	rec := gputest.NewRecorder()
	tex := NewPlaceholderTexture(rec)
	tex.Destroy()
	tex.Destroy()
	assert.Empty(t, rec.Textures)
	assert.Equal(t, 1, rec.Count("DeleteTexture"))
}

func TestNewImageSourceNormalizesBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 12, 11))
	img.Set(10, 10, color.RGBA{1, 2, 3, 4})
	img.Set(11, 10, color.RGBA{5, 6, 7, 8})

	src := NewImageSource(img)
	w, h := src.Size()
	assert.Equal(t, 2, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, src.Pixels())
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := DecodeImage(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writePNG(t, path, gradient(2, 2))

	gate := readiness.NewImageGate(nil)
	var loaded *ImageSource
	LoadImage(path, func(s *ImageSource, err error) {
		assert.NoError(t, err)
		loaded = s
		gate.Fire(readiness.ImageA)
		gate.Fire(readiness.ImageB)
	})

	select {
	case <-gate.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("image did not load")
	}
	w, h := loaded.Size()
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, path, loaded.Path)
	assert.Len(t, loaded.Pixels(), 16)
}

func TestLoadImageMissingFile(t *testing.T) {
	errc := make(chan error, 1)
	LoadImage(filepath.Join(t.TempDir(), "missing.png"), func(_ *ImageSource, err error) {
		errc <- err
	})
	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no callback")
	}
}

func TestParseProbe(t *testing.T) {
	data := `{"streams":[
		{"codec_type":"audio","sample_rate":"48000"},
		{"codec_type":"video","width":640,"height":360,"avg_frame_rate":"30000/1001","r_frame_rate":"30/1"}
	]}`
	w, h, fps, err := parseProbe(data)
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)
	assert.InDelta(t, 29.97, fps, 0.01)
}

func TestParseProbeFallsBackToRealFrameRate(t *testing.T) {
	_, _, fps, err := parseProbe(`{"streams":[{"codec_type":"video","width":2,"height":2,"avg_frame_rate":"0/0","r_frame_rate":"25/1"}]}`)
	require.NoError(t, err)
	assert.Equal(t, 25.0, fps)
}

func TestParseProbeErrors(t *testing.T) {
	_, _, _, err := parseProbe(`{"streams":[{"codec_type":"audio"}]}`)
	assert.Error(t, err)
	_, _, _, err = parseProbe(`{"streams":[{"codec_type":"video","width":0,"height":2}]}`)
	assert.Error(t, err)
	_, _, _, err = parseProbe(`not json`)
	assert.Error(t, err)
}

func TestVideoSourceFrames(t *testing.T) {
	frame1 := bytes.Repeat([]byte{10, 0, 0, 255}, 4)
	frame2 := bytes.Repeat([]byte{0, 0, 0, 255}, 4)

	video := readiness.NewVideo(nil)
	v := NewVideoSourceFromReader(bytes.NewReader(append(append([]byte{}, frame1...), frame2...)), 2, 2, VideoEvents{
		Playing:    func() { video.Playing() },
		TimeUpdate: func() { video.TimeUpdate() },
	})

	select {
	case <-v.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("decoder did not finish")
	}
	require.NoError(t, v.Err())
	assert.Equal(t, int64(2), v.Frames())
	assert.Equal(t, readiness.Ready, video.State())

	// only the newest frame is handed out, once
	assert.Equal(t, HaveEnoughData, v.ReadyState())
	assert.Equal(t, frame2, v.Pixels())
	assert.Equal(t, HaveCurrentData, v.ReadyState())
	assert.Equal(t, frame2, v.Pixels())

	w, h := v.Size()
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
	require.NoError(t, v.Close())
}

func TestVideoSourceTruncatedFrame(t *testing.T) {
	v := NewVideoSourceFromReader(bytes.NewReader([]byte{1, 2, 3}), 2, 2, VideoEvents{})
	<-v.Done()
	assert.Error(t, v.Err())
	assert.Equal(t, HaveMetadata, v.ReadyState())
	assert.Equal(t, int64(0), v.Frames())
}

func TestWatchImagesReloads(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, gradient(1, 1))
	writePNG(t, b, gradient(1, 1))

	w, err := WatchImages(a, b)
	require.NoError(t, err)
	defer w.Close()

	writePNG(t, b, gradient(3, 2))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case u := <-w.Updates():
			if u.Index != 1 {
				continue
			}
			width, height := u.Image.Size()
			if width != 3 {
				// an event for an incomplete write may decode the old size
				continue
			}
			assert.Equal(t, 2, height)
			return
		case <-deadline:
			t.Fatal("no reload for b.png")
		}
	}
}
