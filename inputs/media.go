package inputs

import (
	"fmt"

	"github.com/richinsley/gochromakey/readiness"
)

// MediaOptions names the compositor's three inputs.
type MediaOptions struct {
	SceneA     string
	SceneB     string
	Video      string
	FFMPEGPath string
}

// Media holds the three sources and the gates that report when each group
// is usable.
type Media struct {
	SceneA *ImageSource
	SceneB *ImageSource
	Video  *VideoSource

	Images     *readiness.Gate
	VideoReady *readiness.Video
}

// OpenMedia starts decoding both images and the video. It returns as soon
// as the work is started; the gates resolve later, from other goroutines.
func OpenMedia(opts MediaOptions) (*Media, error) {
	m := &Media{
		Images:     readiness.NewImageGate(nil),
		VideoReady: readiness.NewVideo(nil),
	}

	onLoad := func(event int) func(*ImageSource, error) {
		return func(_ *ImageSource, err error) {
			if err != nil {
				m.Images.Fail(err)
				return
			}
			m.Images.Fire(event)
		}
	}
	m.SceneA = LoadImage(opts.SceneA, onLoad(readiness.ImageA))
	m.SceneB = LoadImage(opts.SceneB, onLoad(readiness.ImageB))

	video, err := OpenVideo(VideoOptions{
		Path:       opts.Video,
		FFMPEGPath: opts.FFMPEGPath,
		Loop:       true,
		Realtime:   true,
	}, VideoEvents{
		Playing:    func() { m.VideoReady.Playing() },
		TimeUpdate: func() { m.VideoReady.TimeUpdate() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	m.Video = video
	return m, nil
}

// Close stops the video decoder.
func (m *Media) Close() error {
	if m.Video == nil {
		return nil
	}
	return m.Video.Close()
}
