package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified": main keeps its flag value for that setting,
// and non-zero values replace the flag values. Addr and WebsocketAddr are
// parsed but main does not apply them; the listen ports come from --port and
// --websocket-port.
type Config struct {
	Addr          string `json:"addr" yaml:"addr" toml:"addr"`
	WebsocketAddr string `json:"websocket_addr" yaml:"websocket_addr" toml:"websocket_addr"`
	HomeDir       string `json:"home_dir" yaml:"home_dir" toml:"home_dir"`

	PostStopDelayMS            int `json:"post_stop_delay_ms" yaml:"post_stop_delay_ms" toml:"post_stop_delay_ms"`
	ForceShutdownWaitTimeoutMS int `json:"force_shutdown_wait_timeout_ms" yaml:"force_shutdown_wait_timeout_ms" toml:"force_shutdown_wait_timeout_ms"`
	QueueCheckIntervalMS       int `json:"queue_check_interval_ms" yaml:"queue_check_interval_ms" toml:"queue_check_interval_ms"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
