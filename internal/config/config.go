// Package config loads the ambient configuration for the server: tunables
// that shape how components A-K behave, as opposed to the wire protocol
// those components speak. Grounded on the teacher's internal/config
// LoadConfig/applyDefaults pattern (default-path search, YAML decode,
// then fill in zero values), retargeted from a TUI/process-list config to
// the handful of knobs this server actually exposes.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every ambient tunable for ptymuxd. Nothing here is part of
// the wire protocol (internal/protocol) — it only affects how the server
// itself behaves.
type Config struct {
	// PTYChunkSize bounds each blocking read on a session's PTY master, per
	// spec.md §4.B ("for real PTYs, at most 1024 bytes — a tunable per
	// instance").
	PTYChunkSize int `yaml:"pty_chunk_size"`

	// NonPTYChunkSize is the general-purpose reader chunk cap spec.md §4.B
	// allows for non-PTY file objects ("at most 10240 bytes"). Unused by
	// the current session model, which is PTY-only, but kept as a tunable
	// for any future non-PTY NonblockingByteReader instance.
	NonPTYChunkSize int `yaml:"non_pty_chunk_size"`

	// ControlBufferSize sizes the bufio.Reader behind the control channel's
	// NonblockingLineReader.
	ControlBufferSize int `yaml:"control_buffer_size"`

	// LogFile is where the server's log lines go. Empty means
	// standard error.
	LogFile string `yaml:"log_file"`
}

// defaultPaths mirrors the teacher's search order, renamed for this daemon.
var defaultPaths = []string{"ptymuxd.yaml", "ptymuxd.yml", ".ptymuxd.yaml", ".ptymuxd.yml"}

// Load reads configuration from path, or — if path is empty — the first of
// defaultPaths that exists. If none exist, Load returns the built-in
// defaults rather than an error: an ambient config file is an optional
// override, not a requirement to run the server.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, candidate := range defaultPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg := applyDefaults(Config{})
			return &cfg, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg = applyDefaults(cfg)
	return &cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.PTYChunkSize <= 0 {
		cfg.PTYChunkSize = 1024
	}
	if cfg.NonPTYChunkSize <= 0 {
		cfg.NonPTYChunkSize = 10240
	}
	if cfg.ControlBufferSize <= 0 {
		cfg.ControlBufferSize = 4096
	}
	return cfg
}
