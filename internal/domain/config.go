package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Capture      CaptureConfig      `mapstructure:"capture"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir     string        `mapstructure:"base_dir"`
	Streaming   bool          `mapstructure:"streaming"`    // read bodies incrementally with progress
	ChunkSize   int           `mapstructure:"chunk_size"`   // bytes per streamed read
	SettleDelay time.Duration `mapstructure:"settle_delay"` // pause after 100% before releasing temp files
	UserAgent   string        `mapstructure:"user_agent"`
}

// IncomingDir holds staged (temporary) files
func (c DownloadConfig) IncomingDir() string {
	return filepath.Join(c.BaseDir, "incoming")
}

// CompletedDir holds saved artifacts for the local store
func (c DownloadConfig) CompletedDir() string {
	return filepath.Join(c.BaseDir, "completed")
}

// LogsDir holds categorized log files
func (c DownloadConfig) LogsDir() string {
	return filepath.Join(c.BaseDir, "logs")
}

// CaptureConfig contains the re-encode pipeline settings
type CaptureConfig struct {
	FrameRate     int           `mapstructure:"frame_rate"`
	BitsPerSecond int           `mapstructure:"bits_per_second"`
	Timeslice     time.Duration `mapstructure:"timeslice"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	FFmpegBinary  string        `mapstructure:"ffmpeg_binary"`
	FFprobeBinary string        `mapstructure:"ffprobe_binary"`
}

// AuthConfig contains session provider settings
type AuthConfig struct {
	Provider      string `mapstructure:"provider"` // memory, redis
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	SessionKey    string `mapstructure:"session_key"`
	EventChannel  string `mapstructure:"event_channel"`
	EntryURL      string `mapstructure:"entry_url"`
}

// StorageConfig selects where artifacts are saved
type StorageConfig struct {
	Driver       string `mapstructure:"driver"` // local, s3
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Profile      string `mapstructure:"profile"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// DatabaseConfig contains history database settings
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Method     string `mapstructure:"method"` // log, osascript, notify-send
	FeedSize   int    `mapstructure:"feed_size"`
	FailureMsg string `mapstructure:"failure_message"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			BaseDir:     "$HOME/Downloads/vidgrab",
			Streaming:   true,
			ChunkSize:   32 * 1024,
			SettleDelay: time.Second,
			UserAgent:   "vidgrab/1.0",
		},
		Capture: CaptureConfig{
			FrameRate:     30,
			BitsPerSecond: 5_000_000,
			Timeslice:     100 * time.Millisecond,
			PollInterval:  100 * time.Millisecond,
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
		},
		Auth: AuthConfig{
			Provider:     "memory",
			RedisAddr:    "localhost:6379",
			SessionKey:   "vidgrab:session",
			EventChannel: "vidgrab:auth",
			EntryURL:     "/auth",
		},
		Storage: StorageConfig{
			Driver: "local",
			Prefix: "downloads/",
		},
		Database: DatabaseConfig{
			Path: "$HOME/Downloads/vidgrab/vidgrab.db",
		},
		Notification: NotificationConfig{
			Enabled:    true,
			Method:     "log",
			FeedSize:   50,
			FailureMsg: "Download failed. You can open the original file instead.",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
