// Package config loads the undolog configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Journal drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverNone   = "none"
)

// Config is the top-level configuration of the undolog binary.
type Config struct {
	Log     Log     `mapstructure:"log"`
	HTTP    HTTP    `mapstructure:"http"`
	Journal Journal `mapstructure:"journal"`
	Metrics Metrics `mapstructure:"metrics"`
}

// Log selects logger verbosity and output format.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTP configures the serve command.
type HTTP struct {
	Addr string `mapstructure:"addr"`
}

// Journal configures where lifecycle events are recorded.
type Journal struct {
	Driver   string `mapstructure:"driver"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	MaxLen   int64  `mapstructure:"max_len"`
	// Lock enables a Redis lock per session for replicas sharing one journal.
	Lock bool `mapstructure:"lock"`
}

// Metrics configures the Prometheus collectors.
type Metrics struct {
	Namespace string `mapstructure:"namespace"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log:     Log{Level: "info", Format: "text"},
		HTTP:    HTTP{Addr: ":8080"},
		Journal: Journal{Driver: DriverMemory, Addr: "localhost:6379", Prefix: "undolog:journal:", MaxLen: 1000},
		Metrics: Metrics{Namespace: "undolog"},
	}
}

// Load reads a configuration file (YAML or JSON) over the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

// Parse decodes raw YAML (or JSON when isJSON is set) over the defaults.
func Parse(data []byte, isJSON bool) (Config, error) {
	cfg := Default()

	raw := map[string]any{}
	if isJSON {
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse config json: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(raw); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.Journal.Driver {
	case DriverMemory, DriverRedis, DriverNone:
	default:
		return fmt.Errorf("invalid config: unknown journal driver %q", c.Journal.Driver)
	}
	if c.Journal.Lock && c.Journal.Driver != DriverRedis {
		return errors.New("invalid config: journal.lock requires the redis driver")
	}
	if c.Journal.MaxLen < 0 {
		return errors.New("invalid config: journal.max_len must not be negative")
	}
	return nil
}
