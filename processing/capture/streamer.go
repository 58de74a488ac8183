package capture

import (
	"errors"
	"time"
)

var (
	// ErrDeviceUnavailable is returned by Start when the device cannot be opened.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrNoFrame means the stream produced no color data this cycle.
	ErrNoFrame = errors.New("no frame available")
	// ErrStreamClosed means the source was stopped or its pipe ended.
	ErrStreamClosed = errors.New("frame stream closed")
)

// FrameSource produces BGR color frames from a camera or a recording.
//
// NextFrame blocks for at most about one frame interval. Stop is safe to call
// more than once and must be called on shutdown.
type FrameSource interface {
	Start() error
	NextFrame() (*Frame, error)
	Stop()
}

const standartFps uint = 30

// FrameTimeout is how long NextFrame waits for a frame at the given rate.
func FrameTimeout(fps uint) time.Duration {
	if fps == 0 {
		fps = standartFps
	}
	return 2 * time.Second / time.Duration(fps)
}
