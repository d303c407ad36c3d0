package options

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseDefaults(t *testing.T) {
	opts, err := Parse("gochromakey", nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1280, *opts.Width)
	assert.Equal(t, 720, *opts.Height)
	assert.True(t, *opts.VSync)
	assert.False(t, *opts.Watch)
	assert.Error(t, opts.Validate())
}

func TestParseFlags(t *testing.T) {
	opts, err := Parse("gochromakey", []string{
		"-scene-a", "a.png", "-scene-b", "b.jpg", "-video", "v.mp4",
		"-width", "640", "-height", "480", "-watch",
	}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "a.png", *opts.SceneA)
	assert.Equal(t, "b.jpg", *opts.SceneB)
	assert.Equal(t, "v.mp4", *opts.Video)
	assert.Equal(t, 640, *opts.Width)
	assert.True(t, *opts.Watch)
	assert.NoError(t, opts.Validate())
}

func TestConfigFileFillsUnsetFlags(t *testing.T) {
	path := writeConfig(t, `
scene_a = "file-a.png"
scene_b = "file-b.png"
video = "file.mp4"
width = 800
vsync = false
record = "out.mp4"
fps = 30
`)
	opts, err := Parse("gochromakey", []string{"-config", path, "-scene-a", "flag-a.png", "-width", "1024"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "flag-a.png", *opts.SceneA)
	assert.Equal(t, "file-b.png", *opts.SceneB)
	assert.Equal(t, "file.mp4", *opts.Video)
	assert.Equal(t, 1024, *opts.Width)
	assert.Equal(t, 720, *opts.Height)
	assert.False(t, *opts.VSync)
	assert.Equal(t, "out.mp4", *opts.Record)
	assert.Equal(t, 30, *opts.FPS)
	assert.Equal(t, "h264", *opts.Codec)
	assert.NoError(t, opts.Validate())
}

func TestConfigFileRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `scene_c = "x.png"`)
	_, err := Parse("gochromakey", []string{"-config", path}, io.Discard)
	require.Error(t, err)

	var strict *toml.StrictMissingError
	assert.True(t, errors.As(err, &strict))
}

func TestConfigFileMissing(t *testing.T) {
	_, err := Parse("gochromakey", []string{"-config", filepath.Join(t.TempDir(), "nope.toml")}, io.Discard)
	assert.Error(t, err)
}

func TestParseUnknownFlag(t *testing.T) {
	_, err := Parse("gochromakey", []string{"-bogus"}, io.Discard)
	assert.Error(t, err)

	_, err = Parse("gochromakey", []string{"-h"}, io.Discard)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing a", []string{"-scene-b", "b", "-video", "v"}},
		{"missing b", []string{"-scene-a", "a", "-video", "v"}},
		{"missing video", []string{"-scene-a", "a", "-scene-b", "b"}},
		{"zero width", []string{"-scene-a", "a", "-scene-b", "b", "-video", "v", "-width", "0"}},
		{"negative height", []string{"-scene-a", "a", "-scene-b", "b", "-video", "v", "-height", "-1"}},
		{"bad codec", []string{"-scene-a", "a", "-scene-b", "b", "-video", "v", "-record", "o.mp4", "-codec", "vp9"}},
		{"zero fps", []string{"-scene-a", "a", "-scene-b", "b", "-video", "v", "-record", "o.mp4", "-fps", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := Parse("gochromakey", tt.args, io.Discard)
			require.NoError(t, err)
			assert.Error(t, opts.Validate())
		})
	}
}
