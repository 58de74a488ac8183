package query

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"robovision/internal/logger"
	"robovision/internal/models"
	"robovision/processing/capture"
	"robovision/processing/handoff"

	"github.com/google/uuid"
)

var (
	// ErrBusy is returned when a query is submitted while another is in flight.
	ErrBusy = errors.New("query already in progress")
	// ErrHandoff wraps a failed coordinate hand-off after an otherwise good query.
	ErrHandoff = errors.New("coordinate hand-off failed")
)

// Backend is the remote vision service.
type Backend interface {
	Query(ctx context.Context, frameJPEG []byte, text string) (*models.QueryResponse, error)
	FetchImage(ctx context.Context, url string) (image.Image, error)
}

// ResultView displays the masked image of a successful query.
type ResultView interface {
	ShowResult(img image.Image)
}

type Dispatcher struct {
	source    capture.FrameSource
	backend   Backend
	view      ResultView
	publisher handoff.Publisher

	jpegQuality int

	busy atomic.Bool

	mu   sync.RWMutex
	last *models.QueryResult
}

func NewDispatcher(source capture.FrameSource, backend Backend, view ResultView, publisher handoff.Publisher, jpegQuality int) *Dispatcher {
	return &Dispatcher{
		source:      source,
		backend:     backend,
		view:        view,
		publisher:   publisher,
		jpegQuality: jpegQuality,
	}
}

// Busy reports whether a query is being dispatched.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// LastResult is the most recent successful result, or nil.
func (d *Dispatcher) LastResult() *models.QueryResult {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}

// Submit runs one query. Blank text and a missing frame are no-ops and
// return (nil, nil). Any other failure leaves the result view, the hand-off
// target and LastResult untouched, except ErrHandoff, which is reported after
// the view and LastResult were already updated.
func (d *Dispatcher) Submit(ctx context.Context, text string) (*models.QueryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	if !d.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer d.busy.Store(false)

	id := uuid.NewString()
	fields := logger.Fields{"query_id": id, "query": text}

	frame, err := d.source.NextFrame()
	if err != nil {
		fields["error"] = err.Error()
		logger.Warn(fields, "query skipped: no frame")
		return nil, nil
	}

	result, err := d.dispatch(ctx, id, text, frame)
	if err != nil {
		fields["error"] = err.Error()
		logger.Error(fields, "query failed")
		return nil, err
	}

	d.view.ShowResult(result.MaskedImage)

	d.mu.Lock()
	d.last = result
	d.mu.Unlock()

	fields["coordinates"] = result.Coordinates.String()

	if err := d.publisher.Publish(result); err != nil {
		fields["error"] = err.Error()
		logger.Error(fields, "coordinate hand-off failed")
		return result, fmt.Errorf("%w: %v", ErrHandoff, err)
	}

	logger.Info(fields, "query done")

	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, id, text string, frame *capture.Frame) (*models.QueryResult, error) {
	jpegData, err := frame.JPEG(d.jpegQuality)
	if err != nil {
		return nil, err
	}

	resp, err := d.backend.Query(ctx, jpegData, text)
	if err != nil {
		return nil, err
	}

	coords, ok := resp.Triple()
	if !ok {
		return nil, fmt.Errorf("%w: coordinates must be three numbers", ErrMalformedResponse)
	}

	img, err := d.backend.FetchImage(ctx, resp.MaskedImageURL)
	if err != nil {
		return nil, err
	}

	return &models.QueryResult{
		ID:          id,
		Query:       text,
		MaskedImage: img,
		Coordinates: coords,
		ReceivedAt:  time.Now(),
	}, nil
}
