package ui

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"robovision/internal/config"
	"robovision/internal/models"
	"robovision/processing/capture"
	"robovision/processing/query"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stillSource struct {
	frame   *capture.Frame
	stopped atomic.Bool
}

func (s *stillSource) Start() error { return nil }
func (s *stillSource) Stop()        { s.stopped.Store(true) }

func (s *stillSource) NextFrame() (*capture.Frame, error) {
	if s.stopped.Load() {
		return nil, capture.ErrStreamClosed
	}
	return s.frame, nil
}

type fakeBackend struct {
	calls atomic.Int32
	resp  *models.QueryResponse
	err   error
}

func (b *fakeBackend) Query(ctx context.Context, frameJPEG []byte, text string) (*models.QueryResponse, error) {
	b.calls.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	return b.resp, nil
}

func (b *fakeBackend) FetchImage(ctx context.Context, url string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

type memoryPublisher struct {
	mu     sync.Mutex
	got    []*models.QueryResult
	closed bool
}

func (p *memoryPublisher) Publish(result *models.QueryResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("publish after close")
	}
	p.got = append(p.got, result)
	return nil
}

func (p *memoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *memoryPublisher) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *memoryPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

// stalledBackend blocks every query until its context is cancelled.
type stalledBackend struct {
	entered  chan struct{}
	finished atomic.Bool
}

func (b *stalledBackend) Query(ctx context.Context, frameJPEG []byte, text string) (*models.QueryResponse, error) {
	close(b.entered)
	<-ctx.Done()
	b.finished.Store(true)
	return nil, ctx.Err()
}

func (b *stalledBackend) FetchImage(ctx context.Context, url string) (image.Image, error) {
	return nil, errors.New("unused")
}

func coords(v ...float64) []*float64 {
	out := make([]*float64, len(v))
	for i := range v {
		out[i] = &v[i]
	}
	return out
}

func newTestApp(t *testing.T, backend query.Backend) (*QueryApp, *stillSource, *memoryPublisher) {
	t.Helper()

	frame, err := capture.NewFrame(4, 4, make([]byte, 4*4*3))
	require.NoError(t, err)

	src := &stillSource{frame: frame}
	pub := &memoryPublisher{}

	qa := CreateApp(test.NewTempApp(t), config.NewDefaultConfig(), src, backend, pub)
	qa.configPath = filepath.Join(t.TempDir(), "config.json")

	return qa, src, pub
}

func TestSubmitButtonRunsQuery(t *testing.T) {
	backend := &fakeBackend{resp: &models.QueryResponse{
		MaskedImageURL: "http://mock/img.png",
		Coordinates:    coords(1, 2, 3),
	}}
	qa, _, pub := newTestApp(t, backend)

	qa.queryInput.SetText("apple")
	test.Tap(qa.submitButton)

	require.Eventually(t, func() bool { return pub.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return !qa.submitButton.Disabled() }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), backend.calls.Load())
	assert.Equal(t, `"apple" -> [1.0, 2.0, 3.0]`, qa.statusLabel.Text)
	assert.NotNil(t, qa.maskCanvas.Image)
}

func TestSubmitBlankQueryDoesNothing(t *testing.T) {
	backend := &fakeBackend{}
	qa, _, pub := newTestApp(t, backend)

	qa.queryInput.SetText("   ")
	test.Tap(qa.submitButton)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), backend.calls.Load())
	assert.Equal(t, 0, pub.count())
	assert.Nil(t, qa.maskCanvas.Image)
}

func TestSubmitFailureShowsError(t *testing.T) {
	backend := &fakeBackend{err: query.ErrTransport}
	qa, _, pub := newTestApp(t, backend)

	qa.queryInput.SetText("apple")
	test.Tap(qa.submitButton)

	require.Eventually(t, func() bool { return !qa.submitButton.Disabled() }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return qa.statusLabel.Text == "Error: transport error" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, pub.count())
	assert.Nil(t, qa.maskCanvas.Image)
}

func TestDisplayTickPaintsVideo(t *testing.T) {
	qa, _, _ := newTestApp(t, &fakeBackend{})

	require.True(t, qa.loop.Tick())
	require.Eventually(t, func() bool { return qa.videoCanvas.Image != nil }, time.Second, 10*time.Millisecond)
}

func TestShutdownReleasesEverything(t *testing.T) {
	qa, src, pub := newTestApp(t, &fakeBackend{})
	qa.startLoops()

	qa.Shutdown()
	qa.Shutdown()

	assert.True(t, src.stopped.Load())
	assert.True(t, pub.isClosed())
	assert.FileExists(t, qa.configPath)
	assert.True(t, errors.Is(qa.ctx.Err(), context.Canceled))
}

func TestShutdownWaitsForQueryInFlight(t *testing.T) {
	backend := &stalledBackend{entered: make(chan struct{})}
	qa, _, pub := newTestApp(t, backend)

	qa.queryInput.SetText("apple")
	test.Tap(qa.submitButton)

	select {
	case <-backend.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("query never reached the backend")
	}

	qa.Shutdown()

	assert.True(t, backend.finished.Load(), "Shutdown returned before the query goroutine")
	assert.False(t, qa.dispatcher.Busy())
	assert.Equal(t, 0, pub.count())
	assert.True(t, pub.isClosed())
	assert.Equal(t, `Querying "apple"...`, qa.statusLabel.Text)

	qa.queryInput.SetText("pear")
	test.Tap(qa.submitButton)
	assert.Equal(t, `Querying "apple"...`, qa.statusLabel.Text, "no query after shutdown")
}
