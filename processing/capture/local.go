package capture

import (
	"fmt"
	"os/exec"

	jsoniter "github.com/json-iterator/go"
)

// LocalFileStreamer replays a recording in a loop at the configured rate,
// scaled to the stream size. Used when no camera is attached.
type LocalFileStreamer struct {
	*pipeStreamer

	path string
}

func NewLocalStreamer(path string, targetFPS uint, width int, height int) *LocalFileStreamer {
	return &LocalFileStreamer{
		pipeStreamer: newPipeStreamer(width, height, targetFPS, true),
		path:         path,
	}
}

func (ls *LocalFileStreamer) Start() error {
	if _, _, err := probeVideoDimensions(ls.path); err != nil {
		return fmt.Errorf("%w: probe %s: %v", ErrDeviceUnavailable, ls.path, err)
	}

	return ls.run("ffmpeg", ls.args())
}

func (ls *LocalFileStreamer) args() []string {
	return []string{
		"-stream_loop", "-1",
		"-i", ls.path,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d:flags=neighbor", ls.targetFPS, ls.width, ls.height),
		"-f", "image2pipe",
		"-pix_fmt", "bgr24",
		"-vcodec", "rawvideo",
		"-",
	}
}

type probeData struct {
	Streams []struct {
		Width  uint16 `json:"width"`
		Height uint16 `json:"height"`
	} `json:"streams"`
}

func probeVideoDimensions(path string) (uint16, uint16, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, 0, err
	}

	return parseProbe(output)
}

func parseProbe(output []byte) (uint16, uint16, error) {
	var data probeData
	if err := jsoniter.Unmarshal(output, &data); err != nil {
		return 0, 0, err
	}

	if len(data.Streams) == 0 {
		return 0, 0, fmt.Errorf("no video streams found")
	}

	return data.Streams[0].Width, data.Streams[0].Height, nil
}
