package golisp

import (
	"os"

	"github.com/BurntSushi/toml"
)

// HeapConfig carries the knobs named by §4.1's trigger policy.
type HeapConfig struct {
	PageSize       int `toml:"page_size"`
	WatermarkBytes int `toml:"watermark_bytes"`
	CeilingBytes   int `toml:"ceiling_bytes"`
}

// ReplConfig carries the REPL/bootstrap driver's own knobs.
type ReplConfig struct {
	Prompt        string `toml:"prompt"`
	BootstrapFile string `toml:"bootstrap_file"`
	NoInitialize  bool   `toml:"no_initialize"`
}

// Config is the interpreter's struct-tagged configuration, loaded via
// BurntSushi/toml the way lookbusy1344/arm-emulator's config/config.go
// loads its own Config: defaults first, optional on-disk override layered
// on top.
type Config struct {
	Heap HeapConfig `toml:"heap"`
	Repl ReplConfig `toml:"repl"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Heap: HeapConfig{
			PageSize:       256,
			WatermarkBytes: 1 << 20,
			CeilingBytes:   256 << 20,
		},
		Repl: ReplConfig{
			Prompt:        "> ",
			BootstrapFile: "core.lisp",
			NoInitialize:  false,
		},
	}
}

// LoadConfig returns the defaults overlaid with path's TOML contents, if
// path exists; a missing file is not an error, matching the emulator's own
// Config.Load fallback.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
