package main

import (
	"errors"

	"robovision/internal/config"
	"robovision/internal/logger"
	ui "robovision/internal/ui"
	"robovision/processing/camera"
	"robovision/processing/capture"
	"robovision/processing/handoff"
	"robovision/processing/query"

	"fyne.io/fyne/v2/app"
)

func main() {
	cfg := config.LoadConfigFile(config.DefaultConfigPath)
	logger.Init(cfg.Log.Level, cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		logger.Fatal(logger.Fields{"error": err.Error()}, "invalid config")
	}

	source, err := camera.NewSource(cfg)
	if err != nil {
		logger.Fatal(logger.Fields{"error": err.Error()}, "frame source")
	}
	if err := source.Start(); err != nil {
		fields := logger.Fields{"error": err.Error(), "source": cfg.GetSource()}
		if cfg.GetSource() == config.SourceWebcam && errors.Is(err, capture.ErrDeviceUnavailable) {
			if devices, lerr := capture.ListCameras(); lerr == nil {
				fields["devices"] = devices
			}
		}
		logger.Fatal(fields, "camera unavailable")
	}
	defer source.Stop()

	publisher := newPublisher(cfg)
	defer publisher.Close()

	backend := query.NewClient(cfg.GetServerURL(), cfg.GetRequestTimeout())

	logger.Info(logger.Fields{
		"source":  cfg.GetSource(),
		"server":  cfg.GetServerURL(),
		"handoff": cfg.GetHandoffPath(),
	}, "front-end started")

	a := ui.CreateApp(app.New(), cfg, source, backend, publisher)
	a.Run()
}

func newPublisher(cfg *config.Config) handoff.Multi {
	var sinks handoff.Multi

	if path := cfg.GetHandoffPath(); path != "" {
		sinks = append(sinks, handoff.NewFileSink(path))
	}

	if url := cfg.GetRobotWSURL(); url != "" {
		ws := handoff.NewWebSocketSink(url)
		ws.Start()
		sinks = append(sinks, ws)
	}

	return sinks
}
