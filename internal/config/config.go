package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type SourceType string

const (
	SourceRealSense SourceType = "RealSense"
	SourceWebcam    SourceType = "Web-Camera"
	SourceLocal     SourceType = "Local"

	DefaultConfigPath  string = "config.json"
	DefaultServerURL   string = "http://localhost:8000/query"
	DefaultHandoffPath string = "coords.txt"
)

type LocalConfig struct {
	Path string `json:"path"`
}

type DeviceConfig struct {
	// ID is a numeric index for RealSense (gocv) or a device path/name for ffmpeg.
	ID string `json:"id"`
}

type StreamConfig struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	FPS    uint `json:"fps"`
}

type BackendConfig struct {
	ServerURL        string `json:"server_url"`
	RequestTimeoutMs int    `json:"request_timeout_ms"`
	JPEGQuality      int    `json:"jpeg_quality"`
}

type HandoffConfig struct {
	Path       string `json:"path"`
	RobotWSURL string `json:"robot_ws_url"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type Config struct {
	mu sync.RWMutex

	ActiveSource SourceType   `json:"active_source"`
	Stream       StreamConfig `json:"stream"`

	Device DeviceConfig `json:"device"`
	Local  LocalConfig  `json:"local"`

	Backend BackendConfig `json:"backend"`
	Handoff HandoffConfig `json:"handoff"`
	Log     LogConfig     `json:"log"`
}

func (c *Config) GetSource() SourceType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ActiveSource
}

func (c *Config) GetFPS() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Stream.FPS
}

func (c *Config) GetWidth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Stream.Width
}

func (c *Config) GetHeight() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Stream.Height
}

func (c *Config) GetServerURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Backend.ServerURL
}

// GetRequestTimeout returns zero when no timeout is configured.
func (c *Config) GetRequestTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Backend.RequestTimeoutMs <= 0 {
		return 0
	}
	return time.Duration(c.Backend.RequestTimeoutMs) * time.Millisecond
}

func (c *Config) GetJPEGQuality() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Backend.JPEGQuality
}

func (c *Config) GetHandoffPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Handoff.Path
}

func (c *Config) GetRobotWSURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Handoff.RobotWSURL
}

func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Stream.Width <= 0 || c.Stream.Height <= 0 {
		return fmt.Errorf("invalid stream size %dx%d", c.Stream.Width, c.Stream.Height)
	}
	if c.Stream.FPS == 0 {
		return errors.New("stream fps must be positive")
	}
	if c.Backend.ServerURL == "" {
		return errors.New("backend server_url is empty")
	}
	if c.Handoff.Path == "" && c.Handoff.RobotWSURL == "" {
		return errors.New("no hand-off target configured")
	}
	return nil
}

func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// LoadConfigFile returns the defaults when path is missing or unreadable.
func LoadConfigFile(path string) *Config {
	cfg := NewDefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg
	}
	defer f.Close()

	loaded := NewDefaultConfig()
	if err := json.NewDecoder(f).Decode(loaded); err != nil {
		return cfg
	}

	return loaded
}

func NewDefaultConfig() *Config {
	return &Config{
		ActiveSource: SourceRealSense,
		Stream:       StreamConfig{Width: 640, Height: 480, FPS: 30},
		Device:       DeviceConfig{ID: "0"},
		Local:        LocalConfig{Path: "..."},
		Backend: BackendConfig{
			ServerURL:   DefaultServerURL,
			JPEGQuality: 95,
		},
		Handoff: HandoffConfig{Path: DefaultHandoffPath},
		Log:     LogConfig{Level: "info", File: "./storage/logs/robovision.log"},
	}
}
