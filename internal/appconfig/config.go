package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/player"
	"pkt.systems/ttyplay/internal/ttyrec"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string         `mapstructure:"state_dir" yaml:"state_dir"`
	Playback      PlaybackConfig `mapstructure:"playback" yaml:"playback"`
	Serve         ServeConfig    `mapstructure:"serve" yaml:"serve"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// PlaybackConfig controls local playback.
type PlaybackConfig struct {
	Speed                float64 `mapstructure:"speed" yaml:"speed"`
	MaxRecordBytes       int     `mapstructure:"max_record_bytes" yaml:"max_record_bytes"`
	Marker               string  `mapstructure:"marker" yaml:"marker"`
	JumpBaseSeconds      float64 `mapstructure:"jump_base_seconds" yaml:"jump_base_seconds"`
	JumpScale            float64 `mapstructure:"jump_scale" yaml:"jump_scale"`
	SwitchLatencySeconds float64 `mapstructure:"switch_latency_seconds" yaml:"switch_latency_seconds"`
	PeekPollMillis       int     `mapstructure:"peek_poll_millis" yaml:"peek_poll_millis"`
}

// ServeConfig configures the SSH and WebSocket watch servers.
type ServeConfig struct {
	SSHAddr        string  `mapstructure:"ssh_addr" yaml:"ssh_addr"`
	HostKeyPath    string  `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeys string  `mapstructure:"authorized_keys" yaml:"authorized_keys"`
	HTTPAddr       string  `mapstructure:"http_addr" yaml:"http_addr"`
	Speed          float64 `mapstructure:"speed" yaml:"speed"`
}

// Controls converts the playback section into player controls.
func (p PlaybackConfig) Controls() player.Controls {
	c := player.DefaultControls()
	if p.JumpBaseSeconds > 0 {
		c.JumpBase = ttyrec.FromSeconds(p.JumpBaseSeconds)
	}
	if p.JumpScale > 0 {
		c.JumpScale = p.JumpScale
	}
	if p.SwitchLatencySeconds > 0 {
		c.SwitchLatency = ttyrec.FromSeconds(p.SwitchLatencySeconds)
	}
	return c
}

// PollInterval is the peek-mode poll period.
func (p PlaybackConfig) PollInterval() time.Duration {
	if p.PeekPollMillis <= 0 {
		return player.DefaultPollInterval
	}
	return time.Duration(p.PeekPollMillis) * time.Millisecond
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".ttyplay", "state"),
		Playback: PlaybackConfig{
			Speed:                1,
			MaxRecordBytes:       ttyrec.DefaultMaxPayload,
			Marker:               string(index.DefaultMarker),
			JumpBaseSeconds:      player.DefaultJumpBase,
			JumpScale:            player.DefaultJumpScale,
			SwitchLatencySeconds: player.DefaultSwitchLatency,
			PeekPollMillis:       int(player.DefaultPollInterval / time.Millisecond),
		},
		Serve: ServeConfig{
			SSHAddr:     ":2222",
			HostKeyPath: filepath.Join(home, ".ttyplay", "ssh_host_key"),
			HTTPAddr:    ":8080",
			Speed:       1,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ttyplay", "config.yaml"), nil
}
