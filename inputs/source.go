package inputs

// Source is pixel content a texture can be filled from: tightly packed
// RGBA8 rows, top row first.
type Source interface {
	Size() (width, height int)
	Pixels() []byte
}

// ReadyState mirrors the readiness levels of an HTML media element.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	// HaveMetadata: dimensions and frame rate are known.
	HaveMetadata
	// HaveCurrentData: a frame is available but it was already consumed.
	HaveCurrentData
	// HaveFutureData: a frame newer than the consumed one is available.
	HaveFutureData
	// HaveEnoughData: as HaveFutureData, with the decoder keeping pace.
	HaveEnoughData
)

func (s ReadyState) String() string {
	switch s {
	case HaveNothing:
		return "HAVE_NOTHING"
	case HaveMetadata:
		return "HAVE_METADATA"
	case HaveCurrentData:
		return "HAVE_CURRENT_DATA"
	case HaveFutureData:
		return "HAVE_FUTURE_DATA"
	case HaveEnoughData:
		return "HAVE_ENOUGH_DATA"
	}
	return "UNKNOWN"
}

// Video is a Source whose content changes over time.
type Video interface {
	Source
	ReadyState() ReadyState
}
