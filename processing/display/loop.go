package display

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"robovision/internal/logger"
	"robovision/processing/capture"
)

// DefaultInterval is the display tick period.
const DefaultInterval = 30 * time.Millisecond

// View receives every frame the loop renders. Each call carries a newly
// allocated image that replaces the previous one.
type View interface {
	ShowFrame(img image.Image)
}

type Loop struct {
	source   capture.FrameSource
	view     View
	interval time.Duration

	mu         sync.RWMutex
	fps        uint
	latency    time.Duration
	frameCount uint
	lastFPS    time.Time
	lastErr    string
}

func NewLoop(source capture.FrameSource, view View, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Loop{
		source:   source,
		view:     view,
		interval: interval,
		lastFPS:  time.Now(),
	}
}

// Tick pulls one frame and renders it. It reports whether the view was updated.
func (l *Loop) Tick() bool {
	start := time.Now()

	frame, err := l.source.NextFrame()
	if err != nil {
		if !errors.Is(err, capture.ErrNoFrame) {
			l.reportErr(err)
		}
		return false
	}

	l.view.ShowFrame(frame.RGBA())
	l.record(time.Since(start))

	return true
}

// Run ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

func (l *Loop) Stats() (uint, time.Duration) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fps, l.latency
}

func (l *Loop) record(latency time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.latency = latency
	l.lastErr = ""
	l.frameCount++

	if time.Since(l.lastFPS) >= time.Second {
		l.fps = l.frameCount
		l.frameCount = 0
		l.lastFPS = time.Now()
	}
}

// reportErr logs only when the error text changes so a dead stream does not
// flood the log every tick.
func (l *Loop) reportErr(err error) {
	l.mu.Lock()
	repeated := l.lastErr == err.Error()
	l.lastErr = err.Error()
	l.mu.Unlock()

	if !repeated {
		logger.Warn(logger.Fields{"error": err.Error()}, "display: frame read failed")
	}
}
