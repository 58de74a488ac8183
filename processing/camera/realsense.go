// Package camera opens the configured frame source. The RealSense color
// stream is read through OpenCV as a UVC device.
package camera

import (
	"fmt"
	"image"
	"strconv"
	"sync"

	"robovision/processing/capture"

	"gocv.io/x/gocv"
)

// RealSense reads the color stream of a depth camera. NextFrame may be
// called from the display loop and the query dispatcher concurrently.
type RealSense struct {
	mu       sync.Mutex
	stopOnce sync.Once

	deviceID int
	width    int
	height   int
	fps      uint

	webcam *gocv.VideoCapture
	mat    gocv.Mat
	bgr    gocv.Mat
	scaled gocv.Mat
}

func NewRealSense(deviceID string, fps uint, width, height int) (*RealSense, error) {
	id, err := strconv.Atoi(deviceID)
	if err != nil {
		return nil, fmt.Errorf("realsense device id must be numeric, got %q", deviceID)
	}

	return &RealSense{
		deviceID: id,
		width:    width,
		height:   height,
		fps:      fps,
	}, nil
}

func (rs *RealSense) Start() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	webcam, err := gocv.VideoCaptureDevice(rs.deviceID)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", capture.ErrDeviceUnavailable, rs.deviceID, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return fmt.Errorf("%w: device %d not opened", capture.ErrDeviceUnavailable, rs.deviceID)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(rs.width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(rs.height))
	webcam.Set(gocv.VideoCaptureFPS, float64(rs.fps))

	rs.webcam = webcam
	rs.mat = gocv.NewMat()
	rs.bgr = gocv.NewMat()
	rs.scaled = gocv.NewMat()

	return nil
}

func (rs *RealSense) NextFrame() (*capture.Frame, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.webcam == nil {
		return nil, capture.ErrStreamClosed
	}

	if ok := rs.webcam.Read(&rs.mat); !ok || rs.mat.Empty() {
		return nil, capture.ErrNoFrame
	}

	src := rs.mat
	switch rs.mat.Channels() {
	case 3:
	case 4:
		gocv.CvtColor(rs.mat, &rs.bgr, gocv.ColorBGRAToBGR)
		src = rs.bgr
	case 1:
		gocv.CvtColor(rs.mat, &rs.bgr, gocv.ColorGrayToBGR)
		src = rs.bgr
	default:
		return nil, fmt.Errorf("%w: unsupported channel count %d", capture.ErrNoFrame, rs.mat.Channels())
	}

	if src.Cols() != rs.width || src.Rows() != rs.height {
		gocv.Resize(src, &rs.scaled, image.Pt(rs.width, rs.height), 0, 0, gocv.InterpolationLinear)
		src = rs.scaled
	}

	return capture.NewFrame(src.Cols(), src.Rows(), src.ToBytes())
}

func (rs *RealSense) Stop() {
	rs.stopOnce.Do(func() {
		rs.mu.Lock()
		defer rs.mu.Unlock()

		if rs.webcam == nil {
			return
		}

		rs.webcam.Close()
		rs.mat.Close()
		rs.bgr.Close()
		rs.scaled.Close()
		rs.webcam = nil
	})
}
