// Package config loads linechat configuration.
//
// Files are JSON by default; a path ending in ".toml" is decoded as TOML.
// A missing file yields DefaultConfig. Environment variables override file
// values, and command-line flags override both.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/codefionn/linechat/internal/consts"
	"github.com/codefionn/linechat/internal/logger"
)

// Environment variables that override file values
const (
	EnvLogLevel = "LINECHAT_LOG_LEVEL"
	EnvLogPath  = "LINECHAT_LOG_PATH"
	EnvAddr     = "LINECHAT_ADDR"
	EnvServer   = "LINECHAT_SERVER"
)

// ServerConfig configures the chat router
type ServerConfig struct {
	Addr                string  `json:"addr" toml:"addr"`
	WebSocketAddr       string  `json:"websocket_addr,omitempty" toml:"websocket_addr"`
	SendQueueSize       int     `json:"send_queue_size" toml:"send_queue_size"`
	WriteTimeoutSeconds int     `json:"write_timeout_seconds" toml:"write_timeout_seconds"`
	MaxLineBytes        int     `json:"max_line_bytes" toml:"max_line_bytes"`
	RateLimit           float64 `json:"rate_limit,omitempty" toml:"rate_limit"` // lines per second, 0 disables
	RateBurst           int     `json:"rate_burst,omitempty" toml:"rate_burst"`
	PIDFile             string  `json:"pid_file,omitempty" toml:"pid_file"`
	LogPath             string  `json:"log_path,omitempty" toml:"log_path"`
}

// WriteTimeout returns the per-line write deadline
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// ClientConfig configures the terminal client
type ClientConfig struct {
	ServerAddr            string `json:"server_addr" toml:"server_addr"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds" toml:"connect_timeout_seconds"`
	LogPath               string `json:"log_path,omitempty" toml:"log_path"`
}

// ConnectTimeout returns the dial timeout
func (c ClientConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// Config represents application configuration
type Config struct {
	LogLevel string       `json:"log_level" toml:"log_level"` // debug, info, warn, error, none
	Server   ServerConfig `json:"server" toml:"server"`
	Client   ClientConfig `json:"client" toml:"client"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "linechat")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "linechat")
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, "linechat")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "linechat")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "linechat")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "linechat")
	default:
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "linechat")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "linechat")
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:                consts.DefaultListenAddr,
			SendQueueSize:       consts.DefaultSendQueueSize,
			WriteTimeoutSeconds: int(consts.Timeout10Seconds / time.Second),
			MaxLineBytes:        consts.DefaultMaxLineBytes,
			LogPath:             logger.Console,
		},
		Client: ClientConfig{
			ServerAddr:            consts.DefaultServerAddr,
			ConnectTimeoutSeconds: int(consts.Timeout10Seconds / time.Second),
			// The terminal belongs to the chat view, so client logs go to a file.
			LogPath: filepath.Join(defaultStateDir(), "client.log"),
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
	}

	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults restores zero values that a partial file may have produced
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.SendQueueSize <= 0 {
		c.Server.SendQueueSize = def.Server.SendQueueSize
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = def.Server.WriteTimeoutSeconds
	}
	if c.Server.MaxLineBytes <= 0 {
		c.Server.MaxLineBytes = def.Server.MaxLineBytes
	}
	if c.Server.LogPath == "" {
		c.Server.LogPath = def.Server.LogPath
	}
	if c.Client.ServerAddr == "" {
		c.Client.ServerAddr = def.Client.ServerAddr
	}
	if c.Client.ConnectTimeoutSeconds <= 0 {
		c.Client.ConnectTimeoutSeconds = def.Client.ConnectTimeoutSeconds
	}
	if c.Client.LogPath == "" {
		c.Client.LogPath = def.Client.LogPath
	}
}

// ApplyEnv lets environment variables override file values
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogPath)); v != "" {
		c.Server.LogPath = v
		c.Client.LogPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServer)); v != "" {
		c.Client.ServerAddr = v
	}
}

// Validate reports configuration values that cannot work
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.WebSocketAddr != "" && c.Server.WebSocketAddr == c.Server.Addr {
		errs = append(errs, fmt.Errorf("server.websocket_addr %q collides with server.addr", c.Server.WebSocketAddr))
	}
	if c.Server.SendQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("server.send_queue_size must be positive, got %d", c.Server.SendQueueSize))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		errs = append(errs, errors.New("server.rate_burst must be positive when rate_limit is set"))
	}
	if c.Client.ServerAddr == "" {
		errs = append(errs, errors.New("client.server_addr must not be empty"))
	}
	return errors.Join(errs...)
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to encode TOML config: %w", err)
		}
		data = buf.Bytes()
	} else {
		encoded, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
		data = append(encoded, '\n')
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
