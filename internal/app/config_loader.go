package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/vidgrab-go/internal/domain"
)

// LoadConfig loads configuration from file and environment.
// Environment variables use the VIDGRAB_ prefix, e.g. VIDGRAB_AUTH_PROVIDER.
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.vidgrab")
		v.AddConfigPath("/etc/vidgrab")
	}

	v.SetEnvPrefix("VIDGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// envKeys are the settings most often overridden from the environment.
// AutomaticEnv only applies to keys viper already knows about.
var envKeys = []string{
	"server.host", "server.port",
	"download.base_dir", "download.streaming", "download.settle_delay",
	"capture.frame_rate", "capture.bits_per_second", "capture.ffmpeg_binary", "capture.ffprobe_binary",
	"auth.provider", "auth.redis_addr", "auth.redis_password", "auth.redis_db", "auth.entry_url",
	"storage.driver", "storage.bucket", "storage.prefix", "storage.region", "storage.profile", "storage.use_path_style",
	"database.path",
	"notification.enabled", "notification.method",
	"logging.level", "logging.format", "logging.output_path",
}

func bindEnvKeys(v *viper.Viper) {
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
}

func expandPaths(config *domain.Config) {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Database.Path = expandPath(config.Database.Path)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	if config.Download.Streaming && config.Download.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive when streaming")
	}

	if config.Download.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}

	if config.Capture.FrameRate < 1 {
		return fmt.Errorf("capture frame rate must be at least 1")
	}

	if config.Capture.PollInterval <= 0 || config.Capture.Timeslice <= 0 {
		return fmt.Errorf("capture poll interval and timeslice must be positive")
	}

	switch config.Auth.Provider {
	case "memory":
	case "redis":
		if config.Auth.RedisAddr == "" {
			return fmt.Errorf("redis auth provider requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown auth provider: %q", config.Auth.Provider)
	}

	switch config.Storage.Driver {
	case "local":
	case "s3":
		if config.Storage.Bucket == "" {
			return fmt.Errorf("s3 storage requires a bucket")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", config.Storage.Driver)
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", config.Server)
	v.Set("download", config.Download)
	v.Set("capture", config.Capture)
	v.Set("auth", config.Auth)
	v.Set("storage", config.Storage)
	v.Set("database", config.Database)
	v.Set("notification", config.Notification)
	v.Set("logging", config.Logging)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
