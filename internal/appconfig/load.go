package appconfig

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"pkt.systems/ttyplay/internal/player"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("playback.speed", cfg.Playback.Speed)
	v.SetDefault("playback.max_record_bytes", cfg.Playback.MaxRecordBytes)
	v.SetDefault("playback.marker", cfg.Playback.Marker)
	v.SetDefault("playback.jump_base_seconds", cfg.Playback.JumpBaseSeconds)
	v.SetDefault("playback.jump_scale", cfg.Playback.JumpScale)
	v.SetDefault("playback.switch_latency_seconds", cfg.Playback.SwitchLatencySeconds)
	v.SetDefault("playback.peek_poll_millis", cfg.Playback.PeekPollMillis)
	v.SetDefault("serve.ssh_addr", cfg.Serve.SSHAddr)
	v.SetDefault("serve.host_key_path", cfg.Serve.HostKeyPath)
	v.SetDefault("serve.authorized_keys", cfg.Serve.AuthorizedKeys)
	v.SetDefault("serve.http_addr", cfg.Serve.HTTPAddr)
	v.SetDefault("serve.speed", cfg.Serve.Speed)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validatePlayback(cfg.Playback); err != nil {
		return Config{}, err
	}
	if err := player.CheckSpeed(cfg.Serve.Speed); err != nil {
		return Config{}, fmt.Errorf("serve.speed: %w", err)
	}
	return cfg, nil
}

func validatePlayback(cfg PlaybackConfig) error {
	if err := player.CheckSpeed(cfg.Speed); err != nil {
		return fmt.Errorf("playback.speed: %w", err)
	}
	if cfg.MaxRecordBytes <= 0 {
		return fmt.Errorf("playback.max_record_bytes must be positive")
	}
	if cfg.Marker == "" {
		return fmt.Errorf("playback.marker must not be empty")
	}
	for _, v := range []float64{cfg.JumpBaseSeconds, cfg.JumpScale, cfg.SwitchLatencySeconds} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("playback jump settings must be non-negative numbers")
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Serve.HostKeyPath = expandEnv(cfg.Serve.HostKeyPath)
	cfg.Serve.AuthorizedKeys = expandEnv(cfg.Serve.AuthorizedKeys)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
