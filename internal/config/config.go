package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultBaudRate      = 115200
	DefaultUploadTimeout = 5 * time.Minute
	DefaultProbeTimeout  = 2 * time.Second

	// CompanionURLEnv overrides companion_url when set.
	CompanionURLEnv = "BOARDBRIDGE_COMPANION_URL"

	dirName  = ".boardbridge"
	fileName = "config.json"
)

// Duration is a time.Duration that reads and writes as "90s"-style strings.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config holds all boardbridge configuration.
type Config struct {
	CompanionURL      string   `json:"companion_url,omitempty"`
	DefaultBoard      string   `json:"default_board,omitempty"`
	SerialPort        string   `json:"serial_port,omitempty"`
	SerialBaudRate    int      `json:"serial_baud_rate,omitempty"`
	ExportDir         string   `json:"export_dir,omitempty"`
	SerialEnumeration *bool    `json:"serial_enumeration,omitempty"`
	UploadTimeout     Duration `json:"upload_timeout,omitempty"`
	ProbeTimeout      Duration `json:"probe_timeout,omitempty"`
	LogLevel          string   `json:"log_level,omitempty"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	enum := true
	return Config{
		SerialBaudRate:    DefaultBaudRate,
		ExportDir:         defaultExportDir(),
		SerialEnumeration: &enum,
		UploadTimeout:     Duration(DefaultUploadTimeout),
		ProbeTimeout:      Duration(DefaultProbeTimeout),
		LogLevel:          "info",
	}
}

// SerialEnumerationEnabled reports whether host serial enumeration is allowed.
func (c Config) SerialEnumerationEnabled() bool {
	return c.SerialEnumeration == nil || *c.SerialEnumeration
}

// Load reads and merges global and project configs.
// Order: defaults → global (~/.config/boardbridge/config.json) →
// project (.boardbridge/config.json) → environment.
func Load(projectRoot string) Config {
	cfg := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		mergeFromFile(&cfg, filepath.Join(home, ".config", "boardbridge", fileName))
	}

	if projectRoot != "" {
		mergeFromFile(&cfg, filepath.Join(projectRoot, dirName, fileName))
	}

	if url := os.Getenv(CompanionURLEnv); url != "" {
		cfg.CompanionURL = url
	}

	return cfg
}

// FindProjectRoot walks up from startDir looking for a .boardbridge/
// directory. When none exists startDir itself is the root.
func FindProjectRoot(startDir string) string {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return startDir
	}
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, dirName)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// Dir returns the project-local state directory.
func Dir(projectRoot string) string {
	return filepath.Join(projectRoot, dirName)
}

// Save writes the config to the project .boardbridge/config.json by default,
// or to the global config if global is true.
func Save(cfg Config, projectRoot string, global bool) error {
	var dir string
	if global {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(home, ".config", "boardbridge")
	} else {
		dir = Dir(projectRoot)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, fileName), data, 0o644)
}

func defaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

func mergeFromFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return
	}

	if fileCfg.CompanionURL != "" {
		cfg.CompanionURL = fileCfg.CompanionURL
	}
	if fileCfg.DefaultBoard != "" {
		cfg.DefaultBoard = fileCfg.DefaultBoard
	}
	if fileCfg.SerialPort != "" {
		cfg.SerialPort = fileCfg.SerialPort
	}
	if fileCfg.SerialBaudRate != 0 {
		cfg.SerialBaudRate = fileCfg.SerialBaudRate
	}
	if fileCfg.ExportDir != "" {
		cfg.ExportDir = fileCfg.ExportDir
	}
	if fileCfg.SerialEnumeration != nil {
		cfg.SerialEnumeration = fileCfg.SerialEnumeration
	}
	if fileCfg.UploadTimeout != 0 {
		cfg.UploadTimeout = fileCfg.UploadTimeout
	}
	if fileCfg.ProbeTimeout != 0 {
		cfg.ProbeTimeout = fileCfg.ProbeTimeout
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
}
