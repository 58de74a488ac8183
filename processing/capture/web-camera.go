package capture

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
)

const videoNodeGlob = "/dev/video*"

// FFmpegDevice captures a camera through ffmpeg (v4l2 on Linux, dshow on Windows).
type FFmpegDevice struct {
	*pipeStreamer

	deviceName string
}

func NewFFmpegDevice(deviceName string, targetFps uint, width int, height int) *FFmpegDevice {
	return &FFmpegDevice{
		pipeStreamer: newPipeStreamer(width, height, targetFps, false),
		deviceName:   deviceName,
	}
}

// Start fails fast with ErrDeviceUnavailable when a v4l2 node is missing,
// instead of leaving ffmpeg to die after the first NextFrame timeout.
func (d *FFmpegDevice) Start() error {
	if runtime.GOOS != "windows" {
		if _, err := os.Stat(d.deviceName); err != nil {
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
	}
	return d.run("ffmpeg", d.args(runtime.GOOS))
}

func (d *FFmpegDevice) args(goos string) []string {
	input := []string{"-f", "v4l2", "-framerate", fmt.Sprint(d.targetFPS), "-i", d.deviceName}
	if goos == "windows" {
		input = []string{"-f", "dshow", "-framerate", fmt.Sprint(d.targetFPS), "-i", fmt.Sprintf("video=%s", d.deviceName)}
	}

	return append(input,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", d.targetFPS, d.width, d.height),
		"-f", "image2pipe",
		"-pix_fmt", "bgr24",
		"-vcodec", "rawvideo",
		"-",
	)
}

var dshowVideoDevice = regexp.MustCompile(`"([^"]+)"\s+\(video\)`)

// ListCameras returns capture device names usable as DeviceConfig.ID.
func ListCameras() ([]string, error) {
	if runtime.GOOS != "windows" {
		return listVideoNodes(videoNodeGlob)
	}

	cmd := exec.Command("ffmpeg", "-list_devices", "true", "-f", "dshow", "-i", "dummy")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Run()

	return parseDshowDevices(stderr.String()), nil
}

func listVideoNodes(pattern string) ([]string, error) {
	nodes, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func parseDshowDevices(output string) []string {
	var cameras []string
	seen := make(map[string]bool)

	for _, m := range dshowVideoDevice.FindAllStringSubmatch(output, -1) {
		name := m[1]
		if name != "dummy" && !seen[name] {
			cameras = append(cameras, name)
			seen[name] = true
		}
	}

	return cameras
}
