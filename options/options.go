package options

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type CompositorOptions struct {
	SceneA     *string // background shown where the video is black
	SceneB     *string // background shown everywhere else
	Video      *string
	Width      *int
	Height     *int
	FFMPEGPath *string
	Watch      *bool // reload the backgrounds when their files change
	VSync      *bool
	Record     *string // encode the composited frames to this file
	Codec      *string
	FPS        *int
	Config     *string // optional TOML file supplying defaults
	Help       *bool
}

// FileConfig is the layout of the -config file. Every key is optional.
type FileConfig struct {
	SceneA     string `toml:"scene_a"`
	SceneB     string `toml:"scene_b"`
	Video      string `toml:"video"`
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	FFMPEGPath string `toml:"ffmpeg"`
	Watch      *bool  `toml:"watch"`
	VSync      *bool  `toml:"vsync"`
	Record     string `toml:"record"`
	Codec      string `toml:"codec"`
	FPS        int    `toml:"fps"`
}

// NewFlagSet registers the compositor flags on a new flag set.
func NewFlagSet(name string) (*flag.FlagSet, *CompositorOptions) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	opts := &CompositorOptions{
		SceneA:     fs.String("scene-a", "", "Image shown where the video is pure black"),
		SceneB:     fs.String("scene-b", "", "Image shown where the video is not black"),
		Video:      fs.String("video", "", "Video file used as the key"),
		Width:      fs.Int("width", 1280, "Width of the window"),
		Height:     fs.Int("height", 720, "Height of the window"),
		FFMPEGPath: fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		Watch:      fs.Bool("watch", false, "Reload the images when they change on disk"),
		VSync:      fs.Bool("vsync", true, "Wait for vertical sync when presenting"),
		Record:     fs.String("record", "", "Output file name for recording"),
		Codec:      fs.String("codec", "h264", "Video codec for recording (h264 or hevc)"),
		FPS:        fs.Int("fps", 60, "Frames per second for recording"),
		Config:     fs.String("config", "", "TOML file with default option values"),
		Help:       fs.Bool("help", false, "Show help message"),
	}
	return fs, opts
}

// Parse reads args (without the program name). Values from -config fill in
// every option that was not given on the command line.
func Parse(name string, args []string, output io.Writer) (*CompositorOptions, error) {
	fs, opts := NewFlagSet(name)
	if output != nil {
		fs.SetOutput(output)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *opts.Help {
		fs.Usage()
		return opts, nil
	}
	if *opts.Config == "" {
		return opts, nil
	}

	cfg, err := LoadConfigFile(*opts.Config)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	opts.apply(cfg, set)
	return opts, nil
}

// LoadConfigFile decodes a TOML option file. Unknown keys are an error.
func LoadConfigFile(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	var cfg FileConfig
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func (o *CompositorOptions) apply(cfg *FileConfig, set map[string]bool) {
	setString := func(name string, dst *string, v string) {
		if !set[name] && v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int, v int) {
		if !set[name] && v != 0 {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v *bool) {
		if !set[name] && v != nil {
			*dst = *v
		}
	}
	setString("scene-a", o.SceneA, cfg.SceneA)
	setString("scene-b", o.SceneB, cfg.SceneB)
	setString("video", o.Video, cfg.Video)
	setInt("width", o.Width, cfg.Width)
	setInt("height", o.Height, cfg.Height)
	setString("ffmpeg", o.FFMPEGPath, cfg.FFMPEGPath)
	setBool("watch", o.Watch, cfg.Watch)
	setBool("vsync", o.VSync, cfg.VSync)
	setString("record", o.Record, cfg.Record)
	setString("codec", o.Codec, cfg.Codec)
	setInt("fps", o.FPS, cfg.FPS)
}

// Validate reports the first missing input or bad dimension.
func (o *CompositorOptions) Validate() error {
	switch {
	case *o.SceneA == "":
		return errors.New("missing -scene-a image")
	case *o.SceneB == "":
		return errors.New("missing -scene-b image")
	case *o.Video == "":
		return errors.New("missing -video file")
	case *o.Width <= 0 || *o.Height <= 0:
		return fmt.Errorf("invalid window size %dx%d", *o.Width, *o.Height)
	case *o.Record != "" && *o.Codec != "h264" && *o.Codec != "hevc":
		return fmt.Errorf("unsupported codec %q", *o.Codec)
	case *o.Record != "" && *o.FPS <= 0:
		return fmt.Errorf("invalid recording frame rate %d", *o.FPS)
	}
	return nil
}
