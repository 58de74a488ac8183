package camera

import (
	"fmt"

	"robovision/internal/config"
	"robovision/processing/capture"
)

// NewSource builds the frame source selected in cfg. The source is not started.
func NewSource(cfg *config.Config) (capture.FrameSource, error) {
	switch cfg.GetSource() {
	case config.SourceRealSense:
		return NewRealSense(cfg.Device.ID, cfg.GetFPS(), cfg.GetWidth(), cfg.GetHeight())
	case config.SourceWebcam:
		return capture.NewFFmpegDevice(cfg.Device.ID, cfg.GetFPS(), cfg.GetWidth(), cfg.GetHeight()), nil
	case config.SourceLocal:
		return capture.NewLocalStreamer(cfg.Local.Path, cfg.GetFPS(), cfg.GetWidth(), cfg.GetHeight()), nil
	default:
		return nil, fmt.Errorf("unknown source: %s", cfg.GetSource())
	}
}
