package readiness

// Image events.
const (
	ImageA = iota
	ImageB
)

// NewImageGate returns the gate that opens once both backgrounds decoded.
func NewImageGate(onReady func()) *Gate {
	return NewGate(2, onReady)
}

// VideoState is the progress of a video towards a visible first frame.
type VideoState int

const (
	NotStarted VideoState = iota
	PlayingOnly
	TimeUpdateOnly
	Ready
)

func (s VideoState) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case PlayingOnly:
		return "playing"
	case TimeUpdateOnly:
		return "timeupdate"
	case Ready:
		return "ready"
	}
	return "unknown"
}

const (
	videoPlaying = iota
	videoTimeUpdate
)

// Video resolves once playback started and the media time advanced, in
// either order. A decoder can report playing before any frame exists, so
// both are required before the video texture is worth drawing.
type Video struct {
	*Gate
}

func NewVideo(onReady func()) *Video {
	return &Video{Gate: NewGate(2, onReady)}
}

// Playing latches the playback-started event.
func (v *Video) Playing() bool {
	return v.Fire(videoPlaying)
}

// TimeUpdate latches the time-advanced event.
func (v *Video) TimeUpdate() bool {
	return v.Fire(videoTimeUpdate)
}

func (v *Video) State() VideoState {
	playing, timeupdate := v.Fired(videoPlaying), v.Fired(videoTimeUpdate)
	switch {
	case playing && timeupdate:
		return Ready
	case playing:
		return PlayingOnly
	case timeupdate:
		return TimeUpdateOnly
	}
	return NotStarted
}
