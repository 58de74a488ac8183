package capture

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// pipeStreamer reads raw bgr24 frames from an ffmpeg stdout pipe and keeps
// only the most recent one for NextFrame.
type pipeStreamer struct {
	stopOnce sync.Once
	killOnce sync.Once

	width     int
	height    int
	targetFPS uint
	paced     bool

	cmd       *exec.Cmd
	frameChan chan *Frame
	stopChan  chan struct{}

	errMu   sync.Mutex
	lastErr error
}

func newPipeStreamer(width, height int, fps uint, paced bool) *pipeStreamer {
	if fps == 0 {
		fps = standartFps
	}

	return &pipeStreamer{
		width:     width,
		height:    height,
		targetFPS: fps,
		paced:     paced,
		frameChan: make(chan *Frame, 1),
		stopChan:  make(chan struct{}),
	}
}

func (ps *pipeStreamer) run(name string, args []string) error {
	ps.cmd = exec.Command(name, args...)

	stdout, err := ps.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	if err := ps.cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s start error: %v", ErrDeviceUnavailable, name, err)
	}

	go ps.readLoop(stdout)

	return nil
}

func (ps *pipeStreamer) readLoop(stdout io.ReadCloser) {
	defer close(ps.frameChan)
	defer stdout.Close()
	defer ps.stopCmdOut()

	frameSize := ps.width * ps.height * bytesPerPixel
	buffer := make([]byte, frameSize)

	var tick <-chan time.Time
	if ps.paced {
		ticker := time.NewTicker(time.Second / time.Duration(ps.targetFPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ps.stopChan:
				return
			case <-tick:
			}
		} else {
			select {
			case <-ps.stopChan:
				return
			default:
			}
		}

		if _, err := io.ReadFull(stdout, buffer); err != nil {
			select {
			case <-ps.stopChan:
			default:
				ps.setErr(fmt.Errorf("read error: %w", err))
			}
			return
		}

		frame, err := NewFrame(ps.width, ps.height, buffer)
		if err != nil {
			ps.setErr(err)
			return
		}

		ps.offer(frame)
	}
}

// offer replaces any frame nobody has taken yet.
func (ps *pipeStreamer) offer(frame *Frame) {
	for {
		select {
		case ps.frameChan <- frame:
			return
		default:
		}

		select {
		case <-ps.frameChan:
		default:
		}
	}
}

func (ps *pipeStreamer) NextFrame() (*Frame, error) {
	select {
	case frame, ok := <-ps.frameChan:
		if !ok {
			if err := ps.err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStreamClosed, err)
			}
			return nil, ErrStreamClosed
		}
		return frame, nil
	case <-time.After(FrameTimeout(ps.targetFPS)):
		return nil, ErrNoFrame
	}
}

func (ps *pipeStreamer) setErr(err error) {
	ps.errMu.Lock()
	defer ps.errMu.Unlock()
	ps.lastErr = err
}

func (ps *pipeStreamer) err() error {
	ps.errMu.Lock()
	defer ps.errMu.Unlock()
	return ps.lastErr
}

func (ps *pipeStreamer) stopCmdOut() {
	ps.killOnce.Do(func() {
		if ps.cmd != nil && ps.cmd.Process != nil {
			ps.cmd.Process.Kill()
			ps.cmd.Wait()
		}
	})
}

func (ps *pipeStreamer) Stop() {
	ps.stopOnce.Do(func() {
		close(ps.stopChan)
		ps.stopCmdOut()
	})
}
