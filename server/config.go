package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use strings like
// "5s" or "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the service configuration.
type Config struct {
	Addr          string   `yaml:"addr"`
	DataDir       string   `yaml:"data_dir"`
	ReadTimeout   Duration `yaml:"read_timeout"`
	WriteTimeout  Duration `yaml:"write_timeout"`
	ShutdownGrace Duration `yaml:"shutdown_grace"`
	StageLog      bool     `yaml:"stage_log"` // colored per-run pipeline summary on stdout
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		DataDir:       "data_files",
		ReadTimeout:   Duration(5 * time.Second),
		WriteTimeout:  Duration(10 * time.Second),
		ShutdownGrace: Duration(5 * time.Second),
	}
}

// LoadConfig reads a YAML config file and fills any absent fields with
// defaults. A missing or unreadable file is an error; callers that want
// to run without a file should use DefaultConfig directly.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultConfig().DataDir
	}
	return cfg, nil
}
