package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"robovision/internal/config"
	"robovision/internal/logger"
	"robovision/internal/models"
	"robovision/internal/ui/cwidget"
	"robovision/processing/capture"
	"robovision/processing/display"
	"robovision/processing/handoff"
	"robovision/processing/query"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const (
	windowTitle      = "AI Robotics Frontend"
	queryPlaceholder = "Type query, e.g. 'apple'"
)

type QueryApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	config     *config.Config
	configPath string
	source     capture.FrameSource
	publisher  handoff.Publisher
	loop       *display.Loop
	dispatcher *query.Dispatcher

	videoCanvas  *canvas.Image
	maskCanvas   *canvas.Image
	queryInput   *cwidget.Input[string]
	submitButton *widget.Button
	statusLabel  *widget.Label
	latencyLabel *widget.Label
	fpsLabel     *widget.Label

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// CreateApp wires the display loop and the query dispatcher to one window.
// The source must already be started.
func CreateApp(a fyne.App, cfg *config.Config, source capture.FrameSource, backend query.Backend, publisher handoff.Publisher) *QueryApp {
	w := a.NewWindow(windowTitle)
	w.Resize(fyne.NewSize(1200, 600))

	ctx, cancel := context.WithCancel(context.Background())

	qa := &QueryApp{
		fyneApp:    a,
		mainWin:    w,
		config:     cfg,
		configPath: config.DefaultConfigPath,
		source:     source,
		publisher:  publisher,
		ctx:        ctx,
		cancel:     cancel,
	}

	qa.loop = display.NewLoop(source, qa, display.DefaultInterval)
	qa.dispatcher = query.NewDispatcher(source, backend, qa, publisher, cfg.GetJPEGQuality())

	qa.buildContent()

	return qa
}

func (a *QueryApp) buildContent() {
	a.videoCanvas = canvas.NewImageFromImage(nil)
	a.videoCanvas.FillMode = canvas.ImageFillContain
	a.videoCanvas.SetMinSize(fyne.NewSize(float32(a.config.GetWidth()), float32(a.config.GetHeight())))

	a.maskCanvas = canvas.NewImageFromImage(nil)
	a.maskCanvas.FillMode = canvas.ImageFillContain
	a.maskCanvas.SetMinSize(fyne.NewSize(float32(a.config.GetWidth()), float32(a.config.GetHeight())))

	a.latencyLabel = widget.NewLabel(a.formatLatency(0))
	a.fpsLabel = widget.NewLabel(a.formatFPS(0))
	a.statusLabel = widget.NewLabel("Ready")

	a.queryInput = cwidget.NewQueryInput("Query", queryPlaceholder, a.submit)
	a.submitButton = widget.NewButtonWithIcon("Submit Query", theme.SearchIcon(), a.queryInput.Submit)

	left := container.NewBorder(
		container.NewHBox(
			widget.NewLabelWithStyle("Camera Stream", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			widget.NewSeparator(), a.fpsLabel,
			widget.NewSeparator(), a.latencyLabel,
		),
		container.NewVBox(a.queryInput, a.submitButton),
		nil, nil,
		a.videoCanvas,
	)

	right := container.NewBorder(
		widget.NewLabelWithStyle("Masked Image", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		nil, nil, nil,
		a.maskCanvas,
	)

	split := container.NewHSplit(
		container.NewPadded(left),
		container.NewPadded(right),
	)
	split.SetOffset(0.5)

	a.mainWin.SetContent(container.NewBorder(nil, a.statusLabel, nil, nil, split))

	a.mainWin.SetCloseIntercept(func() {
		a.Shutdown()
		a.mainWin.Close()
	})
}

// Run starts the display loop and blocks until the window is closed.
func (a *QueryApp) Run() {
	a.startLoops()

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()

	a.Shutdown()
}

func (a *QueryApp) startLoops() {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.loop.Run(a.ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.runStatLoop()
	}()
}

// Shutdown stops the loops and any query in flight, releases the camera and
// hand-off targets and saves the config. Safe to call more than once.
func (a *QueryApp) Shutdown() {
	a.stopOnce.Do(func() {
		a.cancel()
		a.wg.Wait()

		a.source.Stop()

		if err := a.publisher.Close(); err != nil {
			logger.Warn(logger.Fields{"error": err.Error()}, "close hand-off")
		}
		if err := a.config.Save(a.configPath); err != nil {
			logger.Warn(logger.Fields{"error": err.Error()}, "save config")
		}

		logger.Info(nil, "front-end stopped")
	})
}

// ShowFrame renders a live camera frame.
func (a *QueryApp) ShowFrame(img image.Image) {
	fyne.Do(func() {
		a.videoCanvas.Image = img
		a.videoCanvas.Refresh()
	})
}

// ShowResult renders the masked image of the last query.
func (a *QueryApp) ShowResult(img image.Image) {
	fyne.Do(func() {
		a.maskCanvas.Image = img
		a.maskCanvas.Refresh()
	})
}

// submit runs the query off the UI goroutine; the button stays disabled
// until it finishes. Shutdown waits for it, and a result that lands after
// shutdown is not rendered.
func (a *QueryApp) submit(text string) {
	if a.ctx.Err() != nil || a.dispatcher.Busy() {
		return
	}

	a.submitButton.Disable()
	a.statusLabel.SetText(fmt.Sprintf("Querying %q...", text))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		result, err := a.dispatcher.Submit(a.ctx, text)
		if a.ctx.Err() != nil {
			return
		}
		status := a.formatStatus(result, err)

		fyne.Do(func() {
			a.statusLabel.SetText(status)
			a.submitButton.Enable()
		})
	}()
}

func (a *QueryApp) runStatLoop() {
	uiTicker := time.NewTicker(time.Millisecond * 200)
	defer uiTicker.Stop()

	for {
		select {
		case <-uiTicker.C:
			fps, latency := a.loop.Stats()
			fyne.Do(func() {
				a.latencyLabel.SetText(a.formatLatency(latency))
				a.fpsLabel.SetText(a.formatFPS(fps))
			})
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *QueryApp) formatStatus(result *models.QueryResult, err error) string {
	switch {
	case errors.Is(err, query.ErrHandoff):
		return fmt.Sprintf("Coordinates %s not handed off: %v", result.Coordinates, err)
	case err != nil:
		return fmt.Sprintf("Error: %v", err)
	case result == nil:
		return "No frame captured, query skipped"
	default:
		return fmt.Sprintf("%q -> %s", result.Query, result.Coordinates)
	}
}

func (a *QueryApp) formatFPS(v uint) string {
	return fmt.Sprintf("FPS: %d", v)
}

func (a *QueryApp) formatLatency(v time.Duration) string {
	return fmt.Sprintf("Latency: %d ms", v.Milliseconds())
}
